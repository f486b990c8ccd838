package notifications

import (
	"context"
	"sync"
)

// Preferences holds per-user channel opt-ins and the sound flag.
type Preferences struct {
	InApp bool `json:"in_app" bson:"in_app"`
	Email bool `json:"email" bson:"email"`
	Push  bool `json:"push" bson:"push"`
	Sound bool `json:"sound" bson:"sound"`
}

// DefaultPreferences is used when a user never saved preferences.
func DefaultPreferences() Preferences {
	return Preferences{InApp: true, Email: true, Push: false, Sound: true}
}

// Enabled reports whether the user opted into ch.
func (p Preferences) Enabled(ch Channel) bool {
	switch ch {
	case ChannelInApp:
		return p.InApp
	case ChannelEmail:
		return p.Email
	case ChannelPush:
		return p.Push
	}
	return false
}

// Channels returns the enabled channels in AllChannels order.
func (p Preferences) Channels() []Channel {
	channels := make([]Channel, 0, len(AllChannels))
	for _, ch := range AllChannels {
		if p.Enabled(ch) {
			channels = append(channels, ch)
		}
	}
	return channels
}

// PreferenceStore persists per-user preferences.
type PreferenceStore interface {
	// Get returns ErrPreferencesNotFound when the user has no stored record.
	Get(ctx context.Context, userID string) (*Preferences, error)

	// Upsert creates or replaces the user's preferences.
	Upsert(ctx context.Context, userID string, prefs Preferences) error
}

// MemoryPreferenceStore is an in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	prefs map[string]Preferences
	mu    sync.RWMutex
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]Preferences)}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prefs[userID]
	if !ok {
		return nil, ErrPreferencesNotFound
	}
	return &p, nil
}

func (s *MemoryPreferenceStore) Upsert(ctx context.Context, userID string, prefs Preferences) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[userID] = prefs
	return nil
}
