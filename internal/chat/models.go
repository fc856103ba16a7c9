package chat

import "github.com/maskerade/privchat/internal/gateway"

// Turn is one raw UI turn. Assistant turns carry the masked forms of the
// preceding user turn and of themselves; user turns may be file-derived.
type Turn struct {
	Role                   string  `json:"role"`
	Content                string  `json:"content"`
	IsFileContent          bool    `json:"isFileContent,omitempty"`
	MaskedContentUser      *string `json:"masked_content_user,omitempty"`
	MaskedContentAssistant *string `json:"masked_content_assistant,omitempty"`
}

// CanonicalMessage is the normalized unit the prompt framer consumes.
// MaskedContent is nil when no masked variant has been computed yet.
type CanonicalMessage struct {
	Role          string
	Content       string
	IsFileData    bool
	MaskedContent *string
}

// Request is the body of the conversation endpoints.
type Request struct {
	Messages       []Turn `json:"messages"`
	Filter         string `json:"filter"`
	IsFileUploaded bool   `json:"isFileUploaded"`
	ConversationID string `json:"conversation_id"`
}

// Private reports whether the request runs in private (masking) mode.
// Anything other than an explicit "public" filter is treated as private.
func (r Request) Private() bool { return r.Filter != "public" }

type HistoryMetadata struct {
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Date           string `json:"date"`
}

// EnvelopeMessage is the assistant message inside the response envelope,
// including the masking audit metadata.
type EnvelopeMessage struct {
	Role                   string                `json:"role"`
	Content                string                `json:"content"`
	MaskedContentAssistant *string               `json:"masked_content_assistant"`
	MaskedContentUser      string                `json:"masked_content_user"`
	IdentifiedPII          []string              `json:"identified_pii"`
	IdentifiedTokens       []gateway.TokenRecord `json:"identified_tokens"`
}

type Choice struct {
	Messages []EnvelopeMessage `json:"messages"`
}

// ResponseEnvelope is the externally visible non-streaming response.
type ResponseEnvelope struct {
	ID              string          `json:"id"`
	Model           string          `json:"model"`
	Created         int64           `json:"created"`
	Object          string          `json:"object"`
	Choices         []Choice        `json:"choices"`
	HistoryMetadata HistoryMetadata `json:"history_metadata"`
}

type StreamMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type StreamChoice struct {
	Messages []StreamMessage `json:"messages"`
}

// StreamEvent is one self-contained NDJSON frame carrying the cumulative
// assistant text so far.
type StreamEvent struct {
	ID              string          `json:"id"`
	Model           string          `json:"model"`
	Created         int64           `json:"created"`
	Object          string          `json:"object"`
	Choices         []StreamChoice  `json:"choices"`
	HistoryMetadata HistoryMetadata `json:"history_metadata"`
}
