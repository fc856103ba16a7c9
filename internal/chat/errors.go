package chat

import "fmt"

// PromptTooLargeError reports that trimming emptied the message list: a single
// turn alone exceeded the prompt token budget, which trimming cannot recover.
type PromptTooLargeError struct {
	Budget int
}

func (e *PromptTooLargeError) Error() string {
	return fmt.Sprintf("prompt size limit exceeded (budget %d tokens), shorten your prompt", e.Budget)
}

// MalformedConversationError reports an assistant turn with no preceding user
// turn to pair with.
type MalformedConversationError struct {
	Index int // position of the offending turn in the input list
}

func (e *MalformedConversationError) Error() string {
	return fmt.Sprintf("malformed conversation: assistant turn at index %d has no preceding user turn", e.Index)
}
