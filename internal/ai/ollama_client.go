package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaHost is used when no host is configured.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaClient talks to a local Ollama over /api/chat and /api/tags.
type OllamaClient struct {
	http  *http.Client
	host  string
	retry backoff
}

// NewOllamaClient targets host. Local generation is slow, so the default
// timeout is 300s; 5xx replies (often "loading model") are retried.
func NewOllamaClient(host string, httpTimeout time.Duration, retryMax int, baseDelay time.Duration) *OllamaClient {
	if host == "" {
		host = DefaultOllamaHost
	}
	if httpTimeout <= 0 {
		httpTimeout = 300 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 2
	}
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	return &OllamaClient{
		http:  &http.Client{Timeout: httpTimeout},
		host:  strings.TrimRight(host, "/"),
		retry: backoff{attempts: retryMax, base: baseDelay},
	}
}

// Host returns the base URL the client talks to.
func (c *OllamaClient) Host() string { return c.host }

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

// ollamaChunk is a whole reply, or one line of a streamed one.
type ollamaChunk struct {
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
}

func newOllamaChatRequest(req GenerateRequest, stream bool) (ollamaChatRequest, error) {
	if err := checkRequest(req); err != nil {
		return ollamaChatRequest{}, err
	}
	out := ollamaChatRequest{Model: req.Model, Messages: req.Messages, Stream: stream}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		out.Options = &ollamaOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}
	return out, nil
}

// send performs one request. Transport failures become UnreachableError and
// non-2xx replies are decoded into typed errors, 5xx marked transient.
func (c *OllamaClient) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.host+path, rd)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		unreach := &UnreachableError{Host: c.host, Err: err}
		if retryableNetErr(err) {
			return nil, &transient{err: unreach}
		}
		return nil, unreach
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		typed := classifyOllamaError(decodeAPIError(resp))
		if resp.StatusCode >= 500 {
			return nil, &transient{err: typed}
		}
		return nil, typed
	}
	return resp, nil
}

// Generate maps a non-streaming /api/chat reply onto GenerateResponse,
// including Ollama's token counts.
func (c *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	oreq, err := newOllamaChatRequest(req, false)
	if err != nil {
		return nil, err
	}
	var chunk ollamaChunk
	err = c.retry.run(ctx, "ollama.generate", func() error {
		resp, err := c.send(ctx, http.MethodPost, "/api/chat", oreq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(&chunk); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: chunk.Message.Content}}},
		Usage: Usage{
			PromptTokens:     chunk.PromptEvalCount,
			CompletionTokens: chunk.EvalCount,
			TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
		},
		RequestID: fmt.Sprintf("ollama_%d", time.Now().UnixNano()),
	}, nil
}

// GenerateStream decodes newline-delimited JSON chunks until done.
func (c *OllamaClient) GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error {
	oreq, err := newOllamaChatRequest(req, true)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPost, "/api/chat", oreq)
	if err != nil {
		return settle(err)
	}
	defer resp.Body.Close()
	dec := json.NewDecoder(resp.Body)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var chunk ollamaChunk
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode stream: %w", err)
		}
		if chunk.Message.Content != "" {
			onDelta(chunk.Message.Content)
		}
		if chunk.Done {
			return nil
		}
	}
}

// Ping expects 200 from GET /. Any other outcome is an UnreachableError.
func (c *OllamaClient) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, http.MethodGet, "", nil)
	if err != nil {
		err = settle(err)
		var unreach *UnreachableError
		if errors.As(err, &unreach) {
			return unreach
		}
		return &UnreachableError{Host: c.host, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode != http.StatusOK {
		return &UnreachableError{Host: c.host, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	return nil
}

// ListModels returns the names of the pulled models.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, settle(err)
	}
	defer resp.Body.Close()
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}
