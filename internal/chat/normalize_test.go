package chat

import (
	"errors"
	"testing"
)

func strptr(s string) *string { return &s }

func TestNormalize_FileDerivedTurnEmittedImmediately(t *testing.T) {
	turns := []Turn{
		{Role: "user", Content: "file body text", IsFileContent: true},
		{Role: "user", Content: "what does it say?"},
	}

	out, err := Normalize(turns)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 canonical messages, got %d", len(out))
	}
	if !out[0].IsFileData {
		t.Fatalf("expected first message to be file data")
	}
	if out[0].MaskedContent == nil || *out[0].MaskedContent != "file body text" {
		t.Fatalf("file turn should carry its own content as masked variant, got %v", out[0].MaskedContent)
	}
	if out[1].MaskedContent != nil {
		t.Fatalf("newest user turn should have no masked variant yet")
	}
}

func TestNormalize_PairsUserWithAssistant(t *testing.T) {
	turns := []Turn{
		{Role: "user", Content: "hello"},
		{
			Role:                   "assistant",
			Content:                "hi there",
			MaskedContentUser:      strptr("masked-hello"),
			MaskedContentAssistant: strptr("masked-hi"),
		},
		{Role: "user", Content: "follow up"},
	}

	out, err := Normalize(turns)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 canonical messages, got %d", len(out))
	}

	if out[0].Role != "user" || out[0].Content != "hello" {
		t.Fatalf("unexpected paired user message: %+v", out[0])
	}
	if out[0].MaskedContent == nil || *out[0].MaskedContent != "masked-hello" {
		t.Fatalf("paired user message should carry the assistant's masked_content_user")
	}
	if out[1].Role != "assistant" || out[1].MaskedContent == nil || *out[1].MaskedContent != "masked-hi" {
		t.Fatalf("unexpected assistant message: %+v", out[1])
	}
	if out[2].Role != "user" || out[2].Content != "follow up" || out[2].MaskedContent != nil {
		t.Fatalf("unexpected trailing user message: %+v", out[2])
	}
}

func TestNormalize_IntermediateUserWithoutReplyIsDropped(t *testing.T) {
	// A held user turn is only emitted when paired or when it is the last item.
	turns := []Turn{
		{Role: "user", Content: "abandoned"},
		{Role: "user", Content: "newest"},
	}

	out, err := Normalize(turns)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the newest user turn, got %d messages", len(out))
	}
	if out[0].Content != "newest" {
		t.Fatalf("unexpected content %q", out[0].Content)
	}
}

func TestNormalize_AssistantWithoutUserFails(t *testing.T) {
	turns := []Turn{
		{Role: "assistant", Content: "orphan reply"},
	}

	_, err := Normalize(turns)
	var malformed *MalformedConversationError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedConversationError, got %v", err)
	}
	if malformed.Index != 0 {
		t.Fatalf("expected offending index 0, got %d", malformed.Index)
	}
}
