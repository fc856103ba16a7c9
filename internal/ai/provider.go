package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is one blocking chat-completion result plus the provider
// identifiers echoed into the response envelope.
type Completion struct {
	ID      string
	Model   string
	Created int64
	Object  string
	Content string
}

// Delta is one increment of a streaming completion.
type Delta struct {
	ID      string
	Model   string
	Created int64
	Object  string
	Content string
}

type Provider interface {
	Chat(ctx context.Context, messages []Message) (*Completion, error)
}

// StreamProvider is an optional interface. Providers may implement streaming chat.
type StreamProvider interface {
	StreamChat(ctx context.Context, messages []Message) (<-chan Delta, <-chan error)
}
