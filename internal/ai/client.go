package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OpenRouterBaseURL is used when RuntimeConfig.BaseURL is empty.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterClient speaks the OpenAI-compatible /chat/completions protocol,
// OpenRouter by default.
type OpenRouterClient struct {
	http    *http.Client
	apiKey  string
	baseURL string
	retry   backoff
}

// NewOpenRouterClient builds a client from rc. Zero knobs fall back to a
// 120s timeout and three attempts with 500ms to 4s backoff.
func NewOpenRouterClient(rc RuntimeConfig) *OpenRouterClient {
	c := &OpenRouterClient{
		http:    &http.Client{Timeout: rc.HTTPTimeout},
		apiKey:  rc.APIKey,
		baseURL: strings.TrimRight(rc.BaseURL, "/"),
		retry:   backoff{attempts: rc.RetryMax, base: rc.BaseDelay, max: rc.MaxDelay},
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = 120 * time.Second
	}
	if c.baseURL == "" {
		c.baseURL = OpenRouterBaseURL
	}
	if c.retry.attempts <= 0 {
		c.retry.attempts = 3
	}
	if c.retry.base <= 0 {
		c.retry.base = 500 * time.Millisecond
	}
	if c.retry.max <= 0 {
		c.retry.max = 4 * time.Second
	}
	return c
}

// chatPayload is GenerateRequest plus the stream flag.
type chatPayload struct {
	GenerateRequest
	Stream bool `json:"stream,omitempty"`
}

func (c *OpenRouterClient) post(ctx context.Context, req GenerateRequest, stream bool) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is missing")
	}
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	body, err := json.Marshal(chatPayload{GenerateRequest: req, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("HTTP-Referer", "https://github.com/KaramelBytes/researchcrew-cli")
	httpReq.Header.Set("X-Title", "researchcrew")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		err = fmt.Errorf("http request: %w", err)
		if retryableNetErr(err) {
			return nil, &transient{err: err}
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		typed := classifyAPIError(decodeAPIError(resp), resp.Header)
		if retryableStatus(resp.StatusCode) {
			return nil, &transient{err: typed, after: retryAfter(resp.Header)}
		}
		return nil, typed
	}
	return resp, nil
}

// Generate sends one chat completion. 429 and 5xx replies and dropped
// connections are retried; a Retry-After header overrides the backoff.
func (c *OpenRouterClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	var out *GenerateResponse
	err := c.retry.run(ctx, "openrouter.generate", func() error {
		resp, err := c.post(ctx, req, false)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var decoded GenerateResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		decoded.RequestID = requestID(resp.Header)
		out = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateStream reads the server-sent event stream and calls onDelta for
// every non-empty content delta. It is not retried.
func (c *OpenRouterClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return settle(err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, ok := strings.CutPrefix(sc.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			return nil
		}
		var chunk struct {
			Choices []struct {
				Delta Message `json:"delta"`
			} `json:"choices"`
		}
		if json.Unmarshal([]byte(data), &chunk) != nil || len(chunk.Choices) == 0 {
			continue
		}
		if s := chunk.Choices[0].Delta.Content; s != "" {
			onDelta(s)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("stream read: %w", err)
	}
	return nil
}
