// Package tokens counts prompt tokens for budget trimming.
package tokens

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter reports the token count of a serialized prompt string.
type Counter interface {
	Count(s string) (int, error)
}

// TiktokenCounter counts with the BPE encoding of the target model.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for the given model, falling back
// to the gpt-3.5-turbo encoding for unknown (e.g. fine-tuned) model names.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(s string) (int, error) {
	return len(c.enc.Encode(s, nil, nil)), nil
}
