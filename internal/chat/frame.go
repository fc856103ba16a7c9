package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/maskerade/privchat/internal/ai"
	"github.com/maskerade/privchat/internal/gateway"
	"github.com/maskerade/privchat/internal/tokens"
)

// Framer builds the final prompt sent to the completion API: selects the
// system preamble for file-derived context, masks user content in private
// mode, and trims oldest turns to fit the token budget.
type Framer struct {
	masker          gateway.Masker
	counter         tokens.Counter
	pdfSystemMsg    string
	maxPromptTokens int
}

func NewFramer(masker gateway.Masker, counter tokens.Counter, pdfSystemMsg string, maxPromptTokens int) *Framer {
	return &Framer{
		masker:          masker,
		counter:         counter,
		pdfSystemMsg:    pdfSystemMsg,
		maxPromptTokens: maxPromptTokens,
	}
}

func (f *Framer) filePreamble(text string) []ai.Message {
	return []ai.Message{{
		Role:    "system",
		Content: fmt.Sprintf("%s '%s'", f.pdfSystemMsg, text),
	}}
}

// FramePublic builds the prompt without any masking. A file-derived turn
// supersedes everything before it within the same request.
func (f *Framer) FramePublic(canonical []CanonicalMessage) (systemPrompt, messages []ai.Message) {
	for _, m := range canonical {
		if m.IsFileData {
			systemPrompt = f.filePreamble(m.Content)
			messages = nil
			continue
		}
		messages = append(messages, ai.Message{Role: m.Role, Content: m.Content})
	}
	return systemPrompt, messages
}

// FramePrivate builds the prompt from masked variants. A user turn lacking a
// precomputed masked variant is masked synchronously via the gateway; the
// result becomes the message content and is remembered as maskedContentUser
// for the response envelope.
func (f *Framer) FramePrivate(ctx context.Context, canonical []CanonicalMessage) (systemPrompt, messages []ai.Message, maskedContentUser string, piiIdentified []string, identifiedTokens []gateway.TokenRecord, err error) {
	piiIdentified = []string{}
	identifiedTokens = []gateway.TokenRecord{}

	for _, m := range canonical {
		if m.MaskedContent == nil {
			if m.IsFileData {
				systemPrompt = f.filePreamble(m.Content)
				messages = nil
				continue
			}
			masked, pii, toks, maskErr := f.masker.Mask(ctx, m.Content)
			if maskErr != nil {
				return nil, nil, "", nil, nil, maskErr
			}
			maskedContentUser = masked
			piiIdentified = pii
			identifiedTokens = toks
			messages = append(messages, ai.Message{Role: m.Role, Content: masked})
			continue
		}

		if m.IsFileData {
			systemPrompt = f.filePreamble(*m.MaskedContent)
			messages = nil
			continue
		}
		messages = append(messages, ai.Message{Role: m.Role, Content: *m.MaskedContent})
	}
	return systemPrompt, messages, maskedContentUser, piiIdentified, identifiedTokens, nil
}

// Trim drops the oldest message until the serialized message list fits the
// token budget. An empty result means a single turn alone exceeded the budget.
func (f *Framer) Trim(messages []ai.Message) ([]ai.Message, error) {
	for len(messages) > 0 {
		b, err := json.Marshal(messages)
		if err != nil {
			return nil, err
		}
		n, err := f.counter.Count(string(b))
		if err != nil {
			return nil, err
		}
		if n <= f.maxPromptTokens {
			return messages, nil
		}
		messages = messages[1:]
	}
	return nil, &PromptTooLargeError{Budget: f.maxPromptTokens}
}
