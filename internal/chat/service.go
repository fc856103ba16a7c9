package chat

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/maskerade/privchat/internal/ai"
	"github.com/maskerade/privchat/internal/gateway"
)

// Service drives one conversation turn end to end: normalize, frame, complete,
// unmask, assemble the response envelope.
type Service struct {
	provider ai.Provider
	unmasker gateway.Unmasker
	framer   *Framer
}

func NewService(provider ai.Provider, unmasker gateway.Unmasker, framer *Framer) *Service {
	return &Service{provider: provider, unmasker: unmasker, framer: framer}
}

// masking carries the audit metadata computed while framing a private prompt.
type masking struct {
	MaskedContentUser string
	PIIIdentified     []string
	IdentifiedTokens  []gateway.TokenRecord
}

// buildPrompt normalizes and frames the request, trims to the token budget,
// and prepends the file preamble when the current turn uploaded a file.
func (s *Service) buildPrompt(ctx context.Context, req Request) ([]ai.Message, masking, error) {
	audit := masking{PIIIdentified: []string{}, IdentifiedTokens: []gateway.TokenRecord{}}

	canonical, err := Normalize(req.Messages)
	if err != nil {
		return nil, audit, err
	}

	var systemPrompt, messages []ai.Message
	if req.Private() {
		systemPrompt, messages, audit.MaskedContentUser, audit.PIIIdentified, audit.IdentifiedTokens, err = s.framer.FramePrivate(ctx, canonical)
		if err != nil {
			return nil, audit, err
		}
	} else {
		systemPrompt, messages = s.framer.FramePublic(canonical)
	}

	messages, err = s.framer.Trim(messages)
	if err != nil {
		return nil, audit, err
	}

	if req.IsFileUploaded {
		messages = append(append([]ai.Message{}, systemPrompt...), messages...)
	}
	return messages, audit, nil
}

func historyMetadata(conversationID string) HistoryMetadata {
	return HistoryMetadata{
		ConversationID: conversationID,
		Title:          "chat",
		Date:           time.Now().UTC().Format("Mon, 02 Jan 2006, 15:04:05") + " GMT",
	}
}

// Respond runs one blocking conversation turn. In private mode the assistant
// reply is unmasked before it is returned; a failed unmask fails the whole
// request, so pseudonymized text never reaches the user.
func (s *Service) Respond(ctx context.Context, req Request) (*ResponseEnvelope, error) {
	messages, audit, err := s.buildPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Printf("[Conversation] Begin openai_api call with %d messages", len(messages))
	completion, err := s.provider.Chat(ctx, messages)
	if err != nil {
		return nil, err
	}
	log.Printf("[Conversation] End openai_api response")

	content := completion.Content
	var maskedAssistant *string
	if req.Private() {
		masked := completion.Content
		unmasked, err := s.unmasker.Unmask(ctx, masked)
		if err != nil {
			return nil, err
		}
		content = unmasked
		maskedAssistant = &masked
	}

	return &ResponseEnvelope{
		ID:      completion.ID,
		Model:   completion.Model,
		Created: completion.Created,
		Object:  completion.Object,
		Choices: []Choice{{
			Messages: []EnvelopeMessage{{
				Role:                   "assistant",
				Content:                content,
				MaskedContentAssistant: maskedAssistant,
				MaskedContentUser:      audit.MaskedContentUser,
				IdentifiedPII:          audit.PIIIdentified,
				IdentifiedTokens:       audit.IdentifiedTokens,
			}},
		}},
		HistoryMetadata: historyMetadata(req.ConversationID),
	}, nil
}

// RespondStream runs one streaming turn. Each event carries the cumulative
// assistant text so far. In private mode the cumulative text stays masked
// until the stream ends; one final event then carries the unmasked text,
// keeping the gateway to a single unmask call per turn.
func (s *Service) RespondStream(ctx context.Context, req Request) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)

		messages, _, err := s.buildPrompt(ctx, req)
		if err != nil {
			errs <- err
			return
		}

		sp, ok := s.provider.(ai.StreamProvider)
		if !ok {
			errs <- errors.New("provider does not support streaming")
			return
		}

		deltas, provErrs := sp.StreamChat(ctx, messages)

		streamDate := func() string {
			return time.Now().UTC().Format("2006-01-02T15:04:05.000000")
		}

		var accumulated string
		var last ai.Delta
		for d := range deltas {
			last = d
			accumulated += d.Content
			events <- StreamEvent{
				ID:      d.ID,
				Model:   d.Model,
				Created: d.Created,
				Object:  d.Object,
				Choices: []StreamChoice{{Messages: []StreamMessage{{Role: "assistant", Content: accumulated}}}},
				HistoryMetadata: HistoryMetadata{
					ConversationID: req.ConversationID,
					Title:          "chat",
					Date:           streamDate(),
				},
			}
		}

		select {
		case err := <-provErrs:
			if err != nil {
				errs <- err
				return
			}
		default:
		}

		if req.Private() && accumulated != "" {
			unmasked, err := s.unmasker.Unmask(ctx, accumulated)
			if err != nil {
				errs <- err
				return
			}
			events <- StreamEvent{
				ID:      last.ID,
				Model:   last.Model,
				Created: last.Created,
				Object:  last.Object,
				Choices: []StreamChoice{{Messages: []StreamMessage{{Role: "assistant", Content: unmasked}}}},
				HistoryMetadata: HistoryMetadata{
					ConversationID: req.ConversationID,
					Title:          "chat",
					Date:           streamDate(),
				},
			}
		}
	}()

	return events, errs
}
