package queue

import "errors"

var (
	// ErrEntryNotFound is returned for unknown entry ids.
	ErrEntryNotFound = errors.New("queue entry not found")

	// ErrInvalidTransition is returned when a status change would violate the entry lifecycle.
	ErrInvalidTransition = errors.New("invalid queue entry status transition")

	// ErrDuplicateEntry is returned when inserting an id that already exists.
	ErrDuplicateEntry = errors.New("queue entry already exists")

	// ErrInvalidEntry is returned when an entry is missing required fields.
	ErrInvalidEntry = errors.New("invalid queue entry")

	// ErrQueueFull is returned by a bounded store that cannot evict anything.
	ErrQueueFull = errors.New("queue is full")

	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("queue storage cannot be nil")

	// ErrNoAdapters is returned when a processor has no channel adapters.
	ErrNoAdapters = errors.New("no channel adapters registered")

	// ErrNoAdapter is recorded on entries whose channel has no adapter.
	ErrNoAdapter = errors.New("no adapter registered for channel")

	ErrAlreadyStarted = errors.New("processor already started")
	ErrNotStarted     = errors.New("processor not started")
)
