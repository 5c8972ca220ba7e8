package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"
)

// OpenAIBaseURL is used when no base URL is configured for the openai backend.
const OpenAIBaseURL = "https://api.openai.com/v1"

// ChatModelOptions selects the model and sampling settings for NewChatModel.
type ChatModelOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Runtime     RuntimeConfig
}

// NewChatModel returns an eino chat model for backend. The openai backend
// uses the eino-ext OpenAI component; the others wrap a registered Runtime.
func NewChatModel(ctx context.Context, backend string, opts ChatModelOptions) (model.BaseChatModel, error) {
	if opts.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if backend == ProviderOpenAI {
		baseURL := opts.Runtime.BaseURL
		if baseURL == "" {
			baseURL = OpenAIBaseURL
		}
		cfg := &openai.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      opts.Runtime.APIKey,
			Model:       opts.Model,
			Temperature: lo.ToPtr(float32(opts.Temperature)),
			Timeout:     opts.Runtime.HTTPTimeout,
		}
		if opts.MaxTokens > 0 {
			cfg.MaxCompletionTokens = lo.ToPtr(opts.MaxTokens)
		}
		cm, err := openai.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("openai chat model: %w", err)
		}
		return cm, nil
	}
	rt, ok := GetRuntime(backend, opts.Runtime)
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (supported: openai, openrouter, ollama)", backend)
	}
	return NewRuntimeChatModel(rt, opts.Model, opts.Temperature, opts.MaxTokens), nil
}

// RuntimeChatModel adapts a Runtime to eino's BaseChatModel so it can sit in
// a compose graph.
type RuntimeChatModel struct {
	rt          Runtime
	model       string
	temperature float64
	maxTokens   int
}

// NewRuntimeChatModel wraps rt with default request settings.
func NewRuntimeChatModel(rt Runtime, modelName string, temperature float64, maxTokens int) *RuntimeChatModel {
	return &RuntimeChatModel{rt: rt, model: modelName, temperature: temperature, maxTokens: maxTokens}
}

func (m *RuntimeChatModel) request(input []*schema.Message, opts ...model.Option) GenerateRequest {
	o := model.GetCommonOptions(&model.Options{
		Model:       lo.ToPtr(m.model),
		Temperature: lo.ToPtr(float32(m.temperature)),
		MaxTokens:   lo.ToPtr(m.maxTokens),
	}, opts...)

	req := GenerateRequest{
		Model: lo.FromPtr(o.Model),
		Messages: lo.FilterMap(input, func(msg *schema.Message, _ int) (Message, bool) {
			if msg == nil {
				return Message{}, false
			}
			return Message{Role: string(msg.Role), Content: msg.Content}, true
		}),
		MaxTokens:   lo.FromPtr(o.MaxTokens),
		Temperature: float64(lo.FromPtr(o.Temperature)),
	}
	return req
}

// Generate runs a single completion and carries usage in ResponseMeta.
func (m *RuntimeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	resp, err := m.rt.Generate(ctx, m.request(input, opts...))
	if err != nil {
		return nil, err
	}
	out := schema.AssistantMessage(resp.Content(), nil)
	out.ResponseMeta = &schema.ResponseMeta{
		Usage: &schema.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		out.ResponseMeta.FinishReason = resp.Choices[0].FinishReason
	}
	return out, nil
}

// Stream forwards deltas when the runtime streams; otherwise it yields the
// full completion as one chunk.
func (m *RuntimeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	req := m.request(input, opts...)
	srt, ok := m.rt.(StreamRuntime)
	if !ok {
		msg, err := m.Generate(ctx, input, opts...)
		if err != nil {
			return nil, err
		}
		return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
	}

	sr, sw := schema.Pipe[*schema.Message](16)
	go func() {
		defer sw.Close()
		err := srt.GenerateStream(ctx, req, func(delta string) {
			sw.Send(schema.AssistantMessage(delta, nil), nil)
		})
		if err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}
