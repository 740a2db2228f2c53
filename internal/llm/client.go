// Package llm abstracts model invocation. The engine only sees the Client
// interface; concrete backends (chat-completions HTTP, containerised agent)
// are thin wrappers that may be slow and may fail.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Options tune a single invocation.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Response is a completed invocation. Token counts are zero when the backend
// does not report usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client invokes a model with an assembled prompt.
type Client interface {
	Invoke(ctx context.Context, prompt string, opts Options) (*Response, error)
}

// InvocationError classifies a failed invocation. Transient failures (rate
// limits, server errors, timeouts) are retried; permanent ones are not.
type InvocationError struct {
	Status    int
	Transient bool
	Msg       string
}

func (e *InvocationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("invocation failed (status %d): %s", e.Status, e.Msg)
	}
	return fmt.Sprintf("invocation failed: %s", e.Msg)
}

// IsTransient reports whether err is a retryable invocation failure.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Transient
	}
	// Deadline expiry and network-level failures surface as plain errors
	// from the HTTP client; treat them as transient.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
}

// HTTPClient invokes models through an OpenAI-compatible chat-completions
// endpoint.
type HTTPClient struct {
	BaseURL string
	// APIKeyEnv names the environment variable holding the bearer token.
	// Empty means unauthenticated (local gateways).
	APIKeyEnv string
	Timeout   time.Duration

	// HTTP is the underlying client; nil uses a client with Timeout.
	HTTP *http.Client
}

func NewHTTPClient(baseURL, apiKeyEnv string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, APIKeyEnv: apiKeyEnv, Timeout: timeout}
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.Timeout}
}

func (c *HTTPClient) Invoke(ctx context.Context, prompt string, opts Options) (*Response, error) {
	body := map[string]any{
		"model":       opts.Model,
		"temperature": opts.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKeyEnv != "" {
		key := os.Getenv(c.APIKeyEnv)
		if key == "" {
			return nil, &InvocationError{Msg: fmt.Sprintf("%s not set", c.APIKeyEnv)}
		}
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, &InvocationError{Transient: true, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody map[string]any
		json.NewDecoder(resp.Body).Decode(&errBody)
		return nil, &InvocationError{
			Status:    resp.StatusCode,
			Transient: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Msg:       fmt.Sprintf("%v", errBody),
		}
	}

	var chatResult struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResult); err != nil {
		return nil, &InvocationError{Msg: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(chatResult.Choices) == 0 {
		return nil, &InvocationError{Msg: "no choices in response"}
	}
	return &Response{
		Text:         chatResult.Choices[0].Message.Content,
		InputTokens:  chatResult.Usage.PromptTokens,
		OutputTokens: chatResult.Usage.CompletionTokens,
	}, nil
}
