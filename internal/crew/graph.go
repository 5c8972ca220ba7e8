package crew

import (
	"context"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

type agentInput struct {
	System string
	Prompt string
}

type agentResult struct {
	Content string
	Usage   schema.TokenUsage
}

var thinkRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThink drops reasoning blocks some local models emit before the answer.
func stripThink(s string) string {
	s = thinkRe.ReplaceAllString(s, "")
	if i := strings.LastIndex(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	return strings.TrimSpace(s)
}

// compileAgent builds the per-agent graph:
// prepare_messages -> generate -> extract_output.
func compileAgent(ctx context.Context, a *Agent, log zerolog.Logger) (compose.Runnable[agentInput, *agentResult], error) {
	g := compose.NewGraph[agentInput, *agentResult]()

	_ = g.AddLambdaNode("prepare_messages", compose.InvokableLambda(func(ctx context.Context, in agentInput) ([]*schema.Message, error) {
		if a.Verbose {
			log.Debug().Str("agent", a.Role).Int("prompt_chars", len(in.Prompt)).Msg("prepared messages")
		}
		return []*schema.Message{
			schema.SystemMessage(in.System),
			schema.UserMessage(in.Prompt),
		}, nil
	}), compose.WithNodeName("Prepare Messages"))

	_ = g.AddChatModelNode("generate", a.Model, compose.WithNodeName(a.Role))

	_ = g.AddLambdaNode("extract_output", compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*agentResult, error) {
		out := &agentResult{Content: stripThink(msg.Content)}
		if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
			out.Usage = *msg.ResponseMeta.Usage
		}
		return out, nil
	}), compose.WithNodeName("Extract Output"))

	_ = g.AddEdge(compose.START, "prepare_messages")
	_ = g.AddEdge("prepare_messages", "generate")
	_ = g.AddEdge("generate", "extract_output")
	_ = g.AddEdge("extract_output", compose.END)

	return g.Compile(ctx, compose.WithGraphName(strings.ReplaceAll(a.Role, " ", "")))
}

// withTraceCallback logs node starts and chat model token usage.
func withTraceCallback(name string, log zerolog.Logger) compose.Option {
	return compose.WithCallbacks(
		callbacks.NewHandlerBuilder().
			OnStartFn(func(ctx context.Context, ri *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
				log.Debug().Str("graph", name).Str("node", ri.Name).Str("type", ri.Type).
					Str("component", string(ri.Component)).Msg("graph exec start")
				return ctx
			}).
			OnEndFn(func(ctx context.Context, ri *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
				if ri.Component != components.ComponentOfChatModel {
					return ctx
				}
				if in, out, ok := tokenUsage(output); ok {
					log.Info().Str("graph", name).Str("node", ri.Name).
						Int("prompt_tokens", in).Int("completion_tokens", out).Msg("chat model usage")
				}
				return ctx
			}).
			OnErrorFn(func(ctx context.Context, ri *callbacks.RunInfo, err error) context.Context {
				log.Warn().Err(err).Str("graph", name).Str("node", ri.Name).Msg("graph exec failed")
				return ctx
			}).
			Build(),
	)
}

func tokenUsage(output callbacks.CallbackOutput) (in, out int, ok bool) {
	co := model.ConvCallbackOutput(output)
	if co == nil {
		return 0, 0, false
	}
	if co.TokenUsage != nil {
		return co.TokenUsage.PromptTokens, co.TokenUsage.CompletionTokens, true
	}
	if co.Message != nil && co.Message.ResponseMeta != nil && co.Message.ResponseMeta.Usage != nil {
		u := co.Message.ResponseMeta.Usage
		return u.PromptTokens, u.CompletionTokens, true
	}
	return 0, 0, false
}
