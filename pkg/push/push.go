package push

import (
	"context"
	"errors"
)

// Gateway sends a multicast push message.
type Gateway interface {
	// SendMulticast delivers msg to every token and reports per-token results.
	// A non-nil error means the gateway could not be reached at all.
	SendMulticast(ctx context.Context, msg Message) (*BatchResponse, error)
}

// Message is a push notification addressed to one or more device tokens.
type Message struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
	Sound  bool
}

// SendResult is the outcome for a single token.
type SendResult struct {
	Token     string
	MessageID string
	Error     error
}

// Success reports whether the token accepted the message.
func (r SendResult) Success() bool { return r.Error == nil }

// BatchResponse aggregates per-token results of a multicast.
type BatchResponse struct {
	SuccessCount int
	FailureCount int
	Results      []SendResult
}

// InvalidTokens returns the tokens the gateway reported as unregistered or malformed.
func (b *BatchResponse) InvalidTokens() []string {
	if b == nil {
		return nil
	}
	var tokens []string
	for _, r := range b.Results {
		if errors.Is(r.Error, ErrInvalidToken) {
			tokens = append(tokens, r.Token)
		}
	}
	return tokens
}

func newBatchResponse(results []SendResult) *BatchResponse {
	resp := &BatchResponse{Results: results}
	for _, r := range results {
		if r.Success() {
			resp.SuccessCount++
		} else {
			resp.FailureCount++
		}
	}
	return resp
}
