package crew

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

func TestMain(m *testing.M) {
	utils.DisableTokenizer()
	os.Exit(m.Run())
}

// scriptedModel replies with the next entry of replies on every call.
type scriptedModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]*schema.Message
}

func (s *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, in)
	if s.err != nil {
		return nil, s.err
	}
	reply := ""
	if i := len(s.calls) - 1; i < len(s.replies) {
		reply = s.replies[i]
	}
	msg := schema.AssistantMessage(reply, nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}
	return msg, nil
}

func (s *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := s.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func fixedNow() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestKickoff_SequentialTasksShareContext(t *testing.T) {
	cm := &scriptedModel{replies: []string{"research notes about widgets", "# Research Report: Widgets\n\n## Introduction\n\nHi."}}
	c := NewWithModel(cm, Options{Now: fixedNow})

	out, err := c.Kickoff(context.Background(), "Widgets")
	require.NoError(t, err)
	assert.Equal(t, "# Research Report: Widgets\n\n## Introduction\n\nHi.", out.Raw)
	require.Len(t, out.TasksOutput, 2)
	assert.Equal(t, "research", out.TasksOutput[0].Task)
	assert.Equal(t, "Senior Data Researcher", out.TasksOutput[0].Agent)
	assert.Equal(t, "report", out.TasksOutput[1].Task)
	assert.Equal(t, "Reporting Analyst", out.TasksOutput[1].Agent)
	assert.Equal(t, 20, out.PromptTokens())
	assert.Equal(t, 10, out.CompletionTokens())

	require.Len(t, cm.calls, 2)
	research := cm.calls[0]
	require.Len(t, research, 2)
	assert.Equal(t, schema.System, research[0].Role)
	assert.Contains(t, research[0].Content, "Senior Data Researcher")
	assert.Contains(t, research[1].Content, `Research the topic: "Widgets" thoroughly.`)

	report := cm.calls[1]
	assert.Contains(t, report[0].Content, "Reporting Analyst")
	assert.Contains(t, report[1].Content, "[CONTEXT: Senior Data Researcher]\nresearch notes about widgets")
	assert.Contains(t, report[1].Content, "'# Research Report: Widgets'")
	assert.Contains(t, report[1].Content, "*Generated on: 2024-05-01 10:00:00*")
}

func TestKickoff_StripsThinkBlocks(t *testing.T) {
	cm := &scriptedModel{replies: []string{"<think>hmm</think>facts", "<think>\nplan\n</think>\n# Report"}}
	out, err := NewWithModel(cm, Options{}).Kickoff(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "facts", out.TasksOutput[0].Raw)
	assert.Equal(t, "# Report", out.Raw)
}

func TestKickoff_RetriesEmptyOutput(t *testing.T) {
	cm := &scriptedModel{replies: []string{"", "facts", "report"}}
	out, err := NewWithModel(cm, Options{MaxIterations: 2}).Kickoff(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 2, out.TasksOutput[0].Attempts)
	assert.Equal(t, 20, out.TasksOutput[0].PromptTokens)
	assert.Equal(t, 1, out.TasksOutput[1].Attempts)
}

func TestKickoff_EmptyOutputExhausted(t *testing.T) {
	cm := &scriptedModel{replies: []string{"", ""}}
	_, err := NewWithModel(cm, Options{MaxIterations: 2}).Kickoff(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyOutput)
	assert.Len(t, cm.calls, 2)
}

func TestKickoff_ModelError(t *testing.T) {
	boom := errors.New("backend down")
	var ended []string
	c := NewWithModel(&scriptedModel{err: boom}, Options{
		OnTaskEnd: func(t *Task, err error) {
			if err != nil {
				ended = append(ended, t.Name)
			}
		},
	})
	_, err := c.Kickoff(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "task research")
	assert.Equal(t, []string{"research"}, ended)
}

func TestKickoff_EmptyTopic(t *testing.T) {
	_, err := NewWithModel(&scriptedModel{}, Options{}).Kickoff(context.Background(), "  ")
	assert.Error(t, err)
}

func TestRun_AgentWithoutModel(t *testing.T) {
	c := New(NewResearcher(nil), NewAnalyst(nil), Options{})
	_, err := c.Run(context.Background(), c.Tasks("x"))
	assert.ErrorContains(t, err, "no chat model")
}

func TestKickoff_NotesAndTruncation(t *testing.T) {
	long := strings.Repeat("abcd", 50)
	cm := &scriptedModel{replies: []string{long, "report"}}
	c := NewWithModel(cm, Options{
		ContextTokens: 3,
		Notes:         []Note{{Name: "notes.md", Content: "local facts"}},
	})
	_, err := c.Kickoff(context.Background(), "x")
	require.NoError(t, err)

	assert.Contains(t, cm.calls[0][1].Content, "[REFERENCE NOTES]\n--- Document: notes.md ---\nlocal facts")
	report := cm.calls[1][1].Content
	assert.Contains(t, report, "[CONTEXT: Senior Data Researcher]\nabcdabcdabcd\n")
	assert.NotContains(t, report, long)
}

func TestTaskHooksOrder(t *testing.T) {
	var events []string
	c := NewWithModel(&scriptedModel{replies: []string{"a", "b"}}, Options{
		OnTaskStart: func(t *Task) { events = append(events, "start:"+t.Name) },
		OnTaskEnd:   func(t *Task, _ error) { events = append(events, "end:"+t.Name) },
	})
	_, err := c.Kickoff(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"start:research", "end:research", "start:report", "end:report"}, events)
}

func TestStripThink(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain", "plain"},
		{"<think>a</think>b", "b"},
		{"x<think>a</think>y<think>b</think>z", "xyz"},
		{"dangling</think> answer", "answer"},
		{"  padded  ", "padded"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, stripThink(c.in), c.in)
	}
}
