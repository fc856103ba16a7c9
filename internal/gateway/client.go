// Package gateway wraps the external PII tokenization service.
// Mask converts free text to a pseudonymized token string; Unmask reverses it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Error reports a mask/unmask transport or envelope failure. It is never
// swallowed: returning pseudonymized text to an end user is worse than failing.
type Error struct {
	Op  string // "mask" or "unmask"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tokenization gateway: error in %s api call: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TokenRecord is the audit artifact for one masked entity. The key is the
// concatenation prefix+token+suffix returned by the service and is never
// re-parsed by this system.
type TokenRecord struct {
	Key string `json:"key"`
}

// Masker is the slice of the gateway the prompt framer needs.
type Masker interface {
	Mask(ctx context.Context, content string) (masked string, piiIdentified []string, identifiedTokens []TokenRecord, err error)
}

// Unmasker is the slice of the gateway the orchestrator needs.
type Unmasker interface {
	Unmask(ctx context.Context, maskedContent string) (string, error)
}

type Client struct {
	MaskURL   string
	UnmaskURL string
	Token     string
	HTTP      *http.Client
}

func NewClient(maskURL, unmaskURL, token string) *Client {
	return &Client{
		MaskURL:   maskURL,
		UnmaskURL: unmaskURL,
		Token:     token,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

type maskRequest struct {
	Mask []maskValue `json:"mask"`
}

type maskValue struct {
	Value string `json:"value"`
}

type individualToken struct {
	Prefix string `json:"prefix"`
	Token  string `json:"token"`
	Suffix string `json:"suffix"`
	Value  string `json:"value"`
}

type maskResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		TokenValue string `json:"token_value"`
		// Entity breakdown is best-effort; may be absent or malformed.
		IndividualTokens json.RawMessage `json:"individual_tokens"`
	} `json:"data"`
}

type unmaskRequest struct {
	Unmask []unmaskValue `json:"unmask"`
}

type unmaskValue struct {
	TokenValue string `json:"token_value"`
}

type unmaskResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// Mask pseudonymizes content. The masked representation is the primary
// contract; the per-entity breakdown is secondary and degrades to empty lists
// when malformed or absent.
func (c *Client) Mask(ctx context.Context, content string) (string, []string, []TokenRecord, error) {
	log.Printf("[Gateway] Begin - mask_api call with %s", truncate(content, 256))

	body, err := c.put(ctx, c.MaskURL, maskRequest{Mask: []maskValue{{Value: content}}})
	if err != nil {
		log.Printf("[Gateway] Error in mask api call - %v", err)
		return "", nil, nil, &Error{Op: "mask", Err: err}
	}

	var decoded maskResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		log.Printf("[Gateway] Error in mask api call - %v", err)
		return "", nil, nil, &Error{Op: "mask", Err: err}
	}
	if !decoded.Success || len(decoded.Data) == 0 {
		log.Printf("[Gateway] Error in mask call - Response: %s", truncate(string(body), 256))
		return "", nil, nil, &Error{Op: "mask", Err: errors.New("non-success envelope")}
	}

	masked := decoded.Data[0].TokenValue
	log.Printf("[Gateway] mask_successful - Response: %s", truncate(string(body), 256))

	piiIdentified := []string{}
	identifiedTokens := []TokenRecord{}
	var entities []individualToken
	if err := json.Unmarshal(decoded.Data[0].IndividualTokens, &entities); err == nil {
		for _, e := range entities {
			identifiedTokens = append(identifiedTokens, TokenRecord{Key: e.Prefix + e.Token + e.Suffix})
			piiIdentified = append(piiIdentified, e.Value)
		}
	}

	return masked, piiIdentified, identifiedTokens, nil
}

// Unmask recovers the original text for a masked token string. Failures
// propagate to the caller.
func (c *Client) Unmask(ctx context.Context, maskedContent string) (string, error) {
	log.Printf("[Gateway] Begin - unmask_api call with %s", truncate(maskedContent, 256))

	body, err := c.put(ctx, c.UnmaskURL, unmaskRequest{Unmask: []unmaskValue{{TokenValue: maskedContent}}})
	if err != nil {
		log.Printf("[Gateway] Error in unmask api call - %v", err)
		return "", &Error{Op: "unmask", Err: err}
	}

	var decoded unmaskResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		log.Printf("[Gateway] Error in unmask api call - %v", err)
		return "", &Error{Op: "unmask", Err: err}
	}
	if !decoded.Success || len(decoded.Data) == 0 {
		log.Printf("[Gateway] Error in unmask call - Response: %s", truncate(string(body), 256))
		return "", &Error{Op: "unmask", Err: errors.New("non-success envelope")}
	}

	log.Printf("[Gateway] End - unmask_api call response %s", truncate(string(body), 256))
	return decoded.Data[0].Value, nil
}

func (c *Client) put(ctx context.Context, url string, payload any) ([]byte, error) {
	if c.HTTP == nil {
		return nil, errors.New("http client is nil")
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
