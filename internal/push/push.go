package push

import (
	"context"
)

// Message is one push notification payload; Data rides along for client-side
// routing.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Result reports per-batch delivery. FailedTokens holds tokens the provider
// marked dead; callers should prune them from the user record.
type Result struct {
	SuccessCount int
	FailedTokens []string
}

type Sender interface {
	SendToTokens(ctx context.Context, tokens []string, msg Message) (*Result, error)
}

// Noop is used when no push credentials are configured.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) SendToTokens(_ context.Context, tokens []string, _ Message) (*Result, error) {
	return &Result{SuccessCount: len(tokens)}, nil
}
