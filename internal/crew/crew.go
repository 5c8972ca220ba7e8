package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/researchcrew-cli/internal/logging"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

// ErrEmptyOutput is returned when an agent keeps answering with nothing.
var ErrEmptyOutput = errors.New("agent returned empty output")

// Options tunes a crew run.
type Options struct {
	// MaxIterations is the number of attempts per task when the model
	// returns empty content. Defaults to 3.
	MaxIterations int
	// ContextTokens caps each upstream output injected into a task prompt.
	// Zero disables truncation.
	ContextTokens int
	// Notes are attached to the research task.
	Notes []Note
	// Now stamps the report header. Defaults to time.Now.
	Now func() time.Time

	OnTaskStart func(t *Task)

	// OnTaskEnd runs after each task; t.Output is set when err is nil.
	OnTaskEnd func(t *Task, err error)
}

// Crew runs a researcher and an analyst sequentially.
type Crew struct {
	Researcher *Agent
	Analyst    *Agent

	opts Options
	log  zerolog.Logger
}

// CrewOutput is the result of Kickoff. Raw is the final task's output.
type CrewOutput struct {
	Raw         string       `json:"raw"`
	TasksOutput []TaskOutput `json:"tasks_output"`
}

// PromptTokens sums prompt usage across tasks.
func (o *CrewOutput) PromptTokens() int {
	n := 0
	for _, t := range o.TasksOutput {
		n += t.PromptTokens
	}
	return n
}

// CompletionTokens sums completion usage across tasks.
func (o *CrewOutput) CompletionTokens() int {
	n := 0
	for _, t := range o.TasksOutput {
		n += t.CompletionTokens
	}
	return n
}

// New builds a crew from two agents.
func New(researcher, analyst *Agent, opts Options) *Crew {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Crew{
		Researcher: researcher,
		Analyst:    analyst,
		opts:       opts,
		log:        logging.GetLogger("crew"),
	}
}

// NewWithModel builds the default crew with both agents sharing cm.
func NewWithModel(cm model.BaseChatModel, opts Options) *Crew {
	return New(NewResearcher(cm), NewAnalyst(cm), opts)
}

// Tasks returns the research and report tasks for topic.
func (c *Crew) Tasks(topic string) []*Task {
	research := NewResearchTask(c.Researcher, topic, c.opts.Notes)
	report := NewReportTask(c.Analyst, research, topic, c.opts.Now())
	return []*Task{research, report}
}

// Kickoff researches topic and returns the analyst's report.
func (c *Crew) Kickoff(ctx context.Context, topic string) (*CrewOutput, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}
	return c.Run(ctx, c.Tasks(topic))
}

// Run executes tasks in order. Each task sees the outputs of the tasks in
// its Context.
func (c *Crew) Run(ctx context.Context, tasks []*Task) (*CrewOutput, error) {
	if len(tasks) == 0 {
		return nil, errors.New("no tasks to run")
	}
	runnables := map[*Agent]compose.Runnable[agentInput, *agentResult]{}
	out := &CrewOutput{}
	for _, t := range tasks {
		if t.Agent == nil || t.Agent.Model == nil {
			return nil, fmt.Errorf("task %s: agent has no chat model", t.Name)
		}
		r, ok := runnables[t.Agent]
		if !ok {
			var err error
			r, err = compileAgent(ctx, t.Agent, c.log)
			if err != nil {
				return nil, fmt.Errorf("compile agent %s: %w", t.Agent.Role, err)
			}
			runnables[t.Agent] = r
		}

		if c.opts.OnTaskStart != nil {
			c.opts.OnTaskStart(t)
		}
		res, err := c.execute(ctx, r, t)
		if err == nil {
			t.Output = res
		}
		if c.opts.OnTaskEnd != nil {
			c.opts.OnTaskEnd(t, err)
		}
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
		out.TasksOutput = append(out.TasksOutput, *res)
		out.Raw = res.Raw
	}
	return out, nil
}

func (c *Crew) execute(ctx context.Context, r compose.Runnable[agentInput, *agentResult], t *Task) (*TaskOutput, error) {
	in := agentInput{System: t.Agent.SystemPrompt(), Prompt: t.prompt(c.opts.ContextTokens)}
	log := c.log.With().Str("task", t.Name).Str("agent", t.Agent.Role).Logger()
	log.Info().Int("prompt_tokens_est", utils.CountTokens(in.System)+utils.CountTokens(in.Prompt)).Msg("task started")

	start := time.Now()
	out := &TaskOutput{Task: t.Name, Agent: t.Agent.Role}
	for attempt := 1; attempt <= c.opts.MaxIterations; attempt++ {
		out.Attempts = attempt
		res, err := r.Invoke(ctx, in, withTraceCallback(t.Agent.Role, log))
		if err != nil {
			return nil, err
		}
		out.PromptTokens += res.Usage.PromptTokens
		out.CompletionTokens += res.Usage.CompletionTokens
		if res.Content != "" {
			out.Raw = res.Content
			out.Duration = time.Since(start)
			log.Info().Dur("took", out.Duration).Int("attempts", attempt).Msg("task finished")
			return out, nil
		}
		log.Warn().Int("attempt", attempt).Msg("empty output, retrying")
	}
	return nil, ErrEmptyOutput
}
