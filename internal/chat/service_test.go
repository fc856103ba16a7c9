package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/maskerade/privchat/internal/ai"
	"github.com/maskerade/privchat/internal/gateway"
)

type recordingProvider struct {
	last    []ai.Message
	calls   int
	reply   string
	err     error
	streams [][]string // deltas per StreamChat call
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (*ai.Completion, error) {
	_ = ctx
	p.calls++
	// copy to avoid mutations
	p.last = append([]ai.Message(nil), messages...)
	if p.err != nil {
		return nil, p.err
	}
	return &ai.Completion{
		ID:      "chatcmpl-test",
		Model:   "gpt-test",
		Created: 1700000000,
		Object:  "chat.completion",
		Content: p.reply,
	}, nil
}

func (p *recordingProvider) StreamChat(ctx context.Context, messages []ai.Message) (<-chan ai.Delta, <-chan error) {
	_ = ctx
	p.calls++
	p.last = append([]ai.Message(nil), messages...)

	deltas := make(chan ai.Delta, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(deltas)
		defer close(errs)
		if len(p.streams) == 0 {
			return
		}
		chunks := p.streams[0]
		p.streams = p.streams[1:]
		for _, c := range chunks {
			deltas <- ai.Delta{
				ID:      "chatcmpl-test",
				Model:   "gpt-test",
				Created: 1700000000,
				Object:  "chat.completion.chunk",
				Content: c,
			}
		}
	}()
	return deltas, errs
}

type fakeUnmasker struct {
	calls int
	fail  bool
}

func (u *fakeUnmasker) Unmask(ctx context.Context, maskedContent string) (string, error) {
	u.calls++
	if u.fail {
		return "", &gateway.Error{Op: "unmask", Err: errors.New("boom")}
	}
	return strings.ReplaceAll(maskedContent, "<TOKEN-1>", "123-45-6789"), nil
}

func newTestService(provider ai.Provider, unmasker gateway.Unmasker, masker gateway.Masker, budget int) *Service {
	return NewService(provider, unmasker, NewFramer(masker, charCounter{}, "Answer questions about this document:", budget))
}

func TestRespond_PrivateMasksPromptAndUnmasksReply(t *testing.T) {
	masker := &fakeMasker{}
	unmasker := &fakeUnmasker{}
	provider := &recordingProvider{reply: "Your SSN is <TOKEN-1>."}
	svc := newTestService(provider, unmasker, masker, 10_000)

	envelope, err := svc.Respond(context.Background(), Request{
		Filter:         "private",
		ConversationID: "42",
		Messages:       []Turn{{Role: "user", Content: "My SSN is 123-45-6789"}},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}

	// the prompt forwarded upstream must not contain the literal SSN
	for _, m := range provider.last {
		if strings.Contains(m.Content, "123-45-6789") {
			t.Fatalf("upstream prompt leaked the SSN: %q", m.Content)
		}
	}

	reply := envelope.Choices[0].Messages[0]
	if !strings.Contains(reply.Content, "123-45-6789") {
		t.Fatalf("final content should be unmasked, got %q", reply.Content)
	}
	if reply.MaskedContentAssistant == nil || strings.Contains(*reply.MaskedContentAssistant, "123-45-6789") {
		t.Fatalf("masked_content_assistant should stay masked, got %v", reply.MaskedContentAssistant)
	}
	if reply.MaskedContentUser != "My SSN is <TOKEN-1>" {
		t.Fatalf("masked_content_user should echo the framing mask result, got %q", reply.MaskedContentUser)
	}
	if len(reply.IdentifiedPII) != 1 || len(reply.IdentifiedTokens) != 1 {
		t.Fatalf("expected audit lists from masking, got pii=%v tokens=%v", reply.IdentifiedPII, reply.IdentifiedTokens)
	}
	if envelope.HistoryMetadata.ConversationID != "42" || envelope.HistoryMetadata.Title != "chat" {
		t.Fatalf("unexpected history metadata: %+v", envelope.HistoryMetadata)
	}
}

func TestRespond_PublicSkipsGatewayEntirely(t *testing.T) {
	masker := &fakeMasker{}
	unmasker := &fakeUnmasker{}
	provider := &recordingProvider{reply: "hello"}
	svc := newTestService(provider, unmasker, masker, 10_000)

	envelope, err := svc.Respond(context.Background(), Request{
		Filter:   "public",
		Messages: []Turn{{Role: "user", Content: "My SSN is 123-45-6789"}},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if masker.calls != 0 || unmasker.calls != 0 {
		t.Fatalf("public mode must not touch the gateway: mask=%d unmask=%d", masker.calls, unmasker.calls)
	}
	reply := envelope.Choices[0].Messages[0]
	if reply.MaskedContentAssistant != nil {
		t.Fatalf("public replies carry no masked assistant content")
	}
}

func TestRespond_UnmaskFailureFailsRequest(t *testing.T) {
	provider := &recordingProvider{reply: "<TOKEN-1>"}
	svc := newTestService(provider, &fakeUnmasker{fail: true}, &fakeMasker{}, 10_000)

	_, err := svc.Respond(context.Background(), Request{
		Filter:   "private",
		Messages: []Turn{{Role: "user", Content: "hi"}},
	})
	var gerr *gateway.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected gateway error to propagate, got %v", err)
	}
}

func TestRespond_OversizedPromptNeverReachesProvider(t *testing.T) {
	provider := &recordingProvider{reply: "hello"}
	svc := newTestService(provider, &fakeUnmasker{}, &fakeMasker{}, 5)

	_, err := svc.Respond(context.Background(), Request{
		Filter:   "public",
		Messages: []Turn{{Role: "user", Content: strings.Repeat("x", 200)}},
	})
	var tooLarge *PromptTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected PromptTooLargeError, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("completion API must not be called for an oversized prompt, got %d calls", provider.calls)
	}
}

func TestRespond_FilePreamblePrependedWhenFileUploaded(t *testing.T) {
	provider := &recordingProvider{reply: "summary"}
	svc := newTestService(provider, &fakeUnmasker{}, &fakeMasker{}, 10_000)

	_, err := svc.Respond(context.Background(), Request{
		Filter:         "public",
		IsFileUploaded: true,
		Messages: []Turn{
			{Role: "user", Content: "the file body", IsFileContent: true},
			{Role: "user", Content: "summarize it"},
		},
	})
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(provider.last) != 2 {
		t.Fatalf("expected preamble + user message, got %d messages", len(provider.last))
	}
	if provider.last[0].Role != "system" || !strings.Contains(provider.last[0].Content, "the file body") {
		t.Fatalf("expected file preamble first, got %+v", provider.last[0])
	}
}

func TestRespondStream_EventsCarryCumulativeText(t *testing.T) {
	provider := &recordingProvider{streams: [][]string{{"Hel", "lo ", "world"}}}
	svc := newTestService(provider, &fakeUnmasker{}, &fakeMasker{}, 10_000)

	events, errs := svc.RespondStream(context.Background(), Request{
		Filter:         "public",
		ConversationID: "7",
		Messages:       []Turn{{Role: "user", Content: "hi"}},
	})

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(collected) != 3 {
		t.Fatalf("expected 3 events, got %d", len(collected))
	}
	want := []string{"Hel", "Hello ", "Hello world"}
	for i, ev := range collected {
		got := ev.Choices[0].Messages[0].Content
		if got != want[i] {
			t.Fatalf("event %d: expected cumulative %q, got %q", i, want[i], got)
		}
		if ev.HistoryMetadata.ConversationID != "7" {
			t.Fatalf("event %d missing history metadata", i)
		}
	}
}

func TestRespondStream_PrivateUnmasksFinalEventOnly(t *testing.T) {
	unmasker := &fakeUnmasker{}
	provider := &recordingProvider{streams: [][]string{{"<TOK", "EN-1>"}}}
	svc := newTestService(provider, unmasker, &fakeMasker{}, 10_000)

	events, errs := svc.RespondStream(context.Background(), Request{
		Filter:   "private",
		Messages: []Turn{{Role: "user", Content: "hi"}},
	})

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream: %v", err)
	}
	if unmasker.calls != 1 {
		t.Fatalf("expected a single unmask call for the whole stream, got %d", unmasker.calls)
	}
	final := collected[len(collected)-1].Choices[0].Messages[0].Content
	if final != "123-45-6789" {
		t.Fatalf("final event should carry unmasked text, got %q", final)
	}
	// intermediate events stay masked
	for _, ev := range collected[:len(collected)-1] {
		if strings.Contains(ev.Choices[0].Messages[0].Content, "123-45-6789") {
			t.Fatalf("intermediate event leaked unmasked text")
		}
	}
}
