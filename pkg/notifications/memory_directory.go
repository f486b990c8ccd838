package notifications

import (
	"context"
	"slices"
	"sync"
)

// MemoryDirectory is an in-memory RecipientDirectory and DeviceTokenStore.
type MemoryDirectory struct {
	recipients map[string]Recipient
	tokens     map[string][]deviceToken // userID -> tokens
	mu         sync.RWMutex
}

type deviceToken struct {
	token    string
	platform string
	active   bool
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		recipients: make(map[string]Recipient),
		tokens:     make(map[string][]deviceToken),
	}
}

// SetRecipient creates or replaces the contact data of a user.
func (d *MemoryDirectory) SetRecipient(userID string, r Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recipients[userID] = r
}

func (d *MemoryDirectory) Recipient(ctx context.Context, userID string) (Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.recipients[userID]
	if !ok {
		return Recipient{}, ErrRecipientNotFound
	}
	return r, nil
}

// RegisterDeviceToken adds or reactivates a token for the user.
func (d *MemoryDirectory) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// A token belongs to one device, so it moves with re-registration.
	for uid, list := range d.tokens {
		d.tokens[uid] = slices.DeleteFunc(list, func(t deviceToken) bool { return t.token == token })
	}
	d.tokens[userID] = append(d.tokens[userID], deviceToken{token: token, platform: platform, active: true})
	return nil
}

func (d *MemoryDirectory) ActiveDeviceTokens(ctx context.Context, userID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var tokens []string
	for _, t := range d.tokens[userID] {
		if t.active {
			tokens = append(tokens, t.token)
		}
	}
	return tokens, nil
}

func (d *MemoryDirectory) DeactivateDeviceTokens(ctx context.Context, tokens ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, list := range d.tokens {
		for i := range list {
			if slices.Contains(tokens, list[i].token) {
				list[i].active = false
			}
		}
	}
	return nil
}
