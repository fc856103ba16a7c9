package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls the chat completions API with fixed sampling
// parameters. Frequency and presence penalty are pinned to zero.
type OpenAIProvider struct {
	Model       string
	Temperature float32
	TopP        float32
	MaxTokens   int
	Stop        []string

	client *openai.Client
}

func NewOpenAIProvider(apiKey, model string, temperature, topP float32, maxTokens int, stop []string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 90 * time.Second}
	return &OpenAIProvider{
		Model:       model,
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Stop:        stop,
		client:      openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAIProvider) request(messages []Message, stream bool) openai.ChatCompletionRequest {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:            p.Model,
		Messages:         out,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		MaxTokens:        p.MaxTokens,
		Stop:             p.Stop,
		Stream:           stream,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (*Completion, error) {
	if p.client == nil {
		return nil, errors.New("openai: client is nil")
	}
	if strings.TrimSpace(p.Model) == "" {
		return nil, errors.New("openai: model is required")
	}

	resp, err := p.client.CreateChatCompletion(ctx, p.request(messages, false))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: empty response")
	}
	return &Completion{
		ID:      resp.ID,
		Model:   resp.Model,
		Created: resp.Created,
		Object:  resp.Object,
		Content: resp.Choices[0].Message.Content,
	}, nil
}

// StreamChat streams assistant content deltas.
// It returns immediately with two channels; both are closed when streaming ends.
func (p *OpenAIProvider) StreamChat(ctx context.Context, messages []Message) (<-chan Delta, <-chan error) {
	deltas := make(chan Delta, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(deltas)
		defer close(errs)

		if p.client == nil {
			errs <- errors.New("openai: client is nil")
			return
		}

		stream, err := p.client.CreateChatCompletionStream(ctx, p.request(messages, true))
		if err != nil {
			errs <- err
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errs <- err
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			content := resp.Choices[0].Delta.Content
			if content == "[DONE]" {
				// end-of-stream sentinel leaked into the delta text
				continue
			}
			deltas <- Delta{
				ID:      resp.ID,
				Model:   resp.Model,
				Created: resp.Created,
				Object:  resp.Object,
				Content: content,
			}
		}
	}()

	return deltas, errs
}
