package ai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx reply from a provider.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("status %d", e.StatusCode)
	var tags []string
	if e.Code != "" {
		tags = append(tags, "code "+e.Code)
	}
	if e.RequestID != "" {
		tags = append(tags, "request "+e.RequestID)
	}
	if len(tags) > 0 {
		s += " (" + strings.Join(tags, ", ") + ")"
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// AuthError is a 401 or 403.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }

// RateLimitError is a 429. RetryAfter is zero when the provider gave no hint.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited for %s: %s", e.RetryAfter, e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

// ModelNotFoundError means the provider does not serve the model, or for
// Ollama that it has not been pulled.
type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }

type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }

// QuotaExceededError covers billing and credit failures.
type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }

// ServerError is any 5xx.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }

// UnreachableError means no HTTP exchange happened, e.g. Ollama is not
// running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host == "" {
		return fmt.Sprintf("endpoint unreachable: %v", e.Err)
	}
	return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// decodeAPIError reads at most 8 KiB of a failed response. Both the OpenAI
// shape {"error":{"message","code"}} and the flat Ollama shape
// {"error":"..."} are understood; anything else leaves Message empty.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID(resp.Header)}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Code    string          `json:"code"`
	}
	if json.Unmarshal(body, &envelope) != nil {
		return apiErr
	}
	var nested struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if json.Unmarshal(envelope.Error, &nested) == nil {
		apiErr.Message, apiErr.Code = nested.Message, nested.Code
	} else {
		_ = json.Unmarshal(envelope.Error, &apiErr.Message)
	}
	if apiErr.Message == "" {
		apiErr.Message = envelope.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = envelope.Code
	}
	return apiErr
}

// errorRule turns an APIError into a typed error when match holds.
type errorRule struct {
	match func(e *APIError) bool
	wrap  func(e *APIError, h http.Header) error
}

func statusIn(codes ...int) func(*APIError) bool {
	return func(e *APIError) bool {
		for _, c := range codes {
			if e.StatusCode == c {
				return true
			}
		}
		return false
	}
}

func serverStatus(e *APIError) bool { return e.StatusCode >= 500 && e.StatusCode <= 599 }

func quotaSignal(e *APIError) bool {
	if e.Code == "quota_exceeded" || e.Code == "insufficient_quota" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "billing") || strings.Contains(msg, "limit exceeded")
}

// hostedRules apply to OpenRouter and other OpenAI-compatible APIs. The first
// match wins.
var hostedRules = []errorRule{
	{statusIn(http.StatusUnauthorized, http.StatusForbidden), func(e *APIError, _ http.Header) error { return &AuthError{e} }},
	{statusIn(http.StatusTooManyRequests), func(e *APIError, h http.Header) error {
		return &RateLimitError{APIError: e, RetryAfter: retryAfter(h)}
	}},
	{statusIn(http.StatusNotFound), func(e *APIError, _ http.Header) error {
		msg := strings.ToLower(e.Message)
		if e.Code == "model_not_found" || (strings.Contains(msg, "model") && strings.Contains(msg, "not found")) {
			return &ModelNotFoundError{e}
		}
		return e
	}},
	{statusIn(http.StatusBadRequest), func(e *APIError, _ http.Header) error { return &BadRequestError{e} }},
	{quotaSignal, func(e *APIError, _ http.Header) error { return &QuotaExceededError{e} }},
	{serverStatus, func(e *APIError, _ http.Header) error { return &ServerError{e} }},
}

// localRules apply to Ollama, where a 404 almost always means the model has
// not been pulled.
var localRules = []errorRule{
	{statusIn(http.StatusNotFound), func(e *APIError, _ http.Header) error { return &ModelNotFoundError{e} }},
	{statusIn(http.StatusBadRequest), func(e *APIError, _ http.Header) error { return &BadRequestError{e} }},
	{serverStatus, func(e *APIError, _ http.Header) error { return &ServerError{e} }},
}

func applyRules(rules []errorRule, e *APIError, h http.Header) error {
	for _, r := range rules {
		if r.match(e) {
			return r.wrap(e, h)
		}
	}
	return e
}

func classifyAPIError(e *APIError, h http.Header) error { return applyRules(hostedRules, e, h) }

func classifyOllamaError(e *APIError) error { return applyRules(localRules, e, nil) }

// requestID returns the first provider request ID header present.
func requestID(h http.Header) string {
	for _, k := range []string{"X-Request-Id", "OpenAI-Request-ID", "Openrouter-Request-ID", "X-Amzn-Requestid"} {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}
