package crew

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

// Note is a reference document handed to the research task.
type Note struct {
	Name    string
	Content string
}

// Task is one unit of work executed by an agent. Tasks listed in Context
// feed their raw output into this task's prompt.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *Agent
	Context        []*Task
	Notes          []Note

	Output *TaskOutput
}

// TaskOutput is the result of a completed task.
type TaskOutput struct {
	Task             string        `json:"task"`
	Agent            string        `json:"agent"`
	Raw              string        `json:"raw"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Duration         time.Duration `json:"duration"`
	Attempts         int           `json:"attempts"`
}

// NewResearchTask asks the researcher to investigate topic.
func NewResearchTask(agent *Agent, topic string, notes []Note) *Task {
	return &Task{
		Name: "research",
		Description: fmt.Sprintf(`Research the topic: %q thoroughly.

Your task is to:
1. Gather comprehensive information on the topic
2. Identify key facts, trends, and insights
3. Find relevant statistics and data points
4. Analyze the current state and historical context
5. Identify credible sources and references
6. Organize your findings in a structured format
7. Provide a summary of the most important discoveries

Your research should be thorough, accurate, and properly cited.
The output will be used by the Reporting Analyst to create a comprehensive report.`, topic),
		ExpectedOutput: `A comprehensive research document with the following sections:
1. Executive Summary
2. Key Findings
3. Detailed Analysis
4. Data Points and Statistics
5. Trends and Patterns
6. References and Citations

The document should be well-structured, fact-based, and contain all relevant information on the topic.`,
		Agent: agent,
		Notes: notes,
	}
}

// reportSections is the order the analyst must follow.
var reportSections = []string{
	"Executive Summary",
	"Introduction",
	"Methodology",
	"Key Findings and Insights",
	"Detailed Analysis",
	"Data Visualization Suggestions",
	"Implications",
	"Recommendations",
	"Conclusion",
	"References",
}

// NewReportTask asks the analyst to turn research output into the final
// markdown report. generated is stamped into the report header.
func NewReportTask(agent *Agent, research *Task, topic string, generated time.Time) *Task {
	var sb strings.Builder
	sb.WriteString(`Create a comprehensive report based on the research findings provided by the Senior Data Researcher.

Your task is to:
1. Review and analyze the research findings
2. Identify the most important insights and key takeaways
3. Structure the information in a logical and coherent manner
4. Create a narrative that explains the significance of the findings
5. Develop clear, concise sections with appropriate headings
6. Include relevant data visualizations (described textually)
7. Provide actionable recommendations based on the insights
8. Ensure the report is accessible to both technical and non-technical audiences

`)
	sb.WriteString(formattingRules(topic, generated))

	var out strings.Builder
	out.WriteString("A comprehensive report with the following sections:\n")
	for i, s := range reportSections {
		fmt.Fprintf(&out, "%d. %s\n", i+1, s)
	}
	out.WriteString("\nThe report should be well-structured, insightful, and actionable, with a clear narrative that explains the significance of the findings.")

	return &Task{
		Name:           "report",
		Description:    sb.String(),
		ExpectedOutput: out.String(),
		Agent:          agent,
		Context:        []*Task{research},
	}
}

func formattingRules(topic string, generated time.Time) string {
	var sb strings.Builder
	sb.WriteString("FORMATTING INSTRUCTIONS - FOLLOW EXACTLY:\n")
	fmt.Fprintf(&sb, "Start with '# Research Report: %s' followed by '*Generated on: %s*'.\n",
		topic, generated.Format("2006-01-02 15:04:05"))
	sb.WriteString(`Format sections as in this example:

## Key Findings and Insights

### Finding One

Content about finding one...

## Data Visualization Suggestions

### Growth Trend Visualization

A line chart showing growth trends over time...

## References

### Author, A. (Year)

*Title of the work*. Publisher information.

RULES:
1. NEVER use "**Section Title:**" or numbered formats like "1. Section Title:"
2. ALWAYS use "## " (double hash) for main section headers
3. ALWAYS use "### " (triple hash) for ALL subsections, including individual references
4. NEVER use bullet points with "- **Title:**" format for any content
5. ALWAYS format each reference as a separate subsection with "### " followed by the author and year

Include these sections in this order:
`)
	for _, s := range reportSections {
		fmt.Fprintf(&sb, "## %s\n", s)
	}
	return sb.String()
}

// Prompt assembles the user message for t, including upstream outputs and
// reference notes.
func (t *Task) Prompt() string { return t.prompt(0) }

// prompt is Prompt with each upstream output cut to contextTokens when
// contextTokens > 0.
func (t *Task) prompt(contextTokens int) string {
	var sb strings.Builder
	sb.WriteString("[TASK]\n")
	sb.WriteString(strings.TrimSpace(t.Description))
	sb.WriteString("\n\n[EXPECTED OUTPUT]\n")
	sb.WriteString(strings.TrimSpace(t.ExpectedOutput))
	sb.WriteString("\n")

	for _, c := range t.Context {
		if c.Output == nil || c.Output.Raw == "" {
			continue
		}
		raw := c.Output.Raw
		if contextTokens > 0 {
			raw = utils.TruncateToTokenLimit(raw, contextTokens)
		}
		fmt.Fprintf(&sb, "\n[CONTEXT: %s]\n", c.Agent.Role)
		sb.WriteString(raw)
		sb.WriteString("\n")
	}

	if len(t.Notes) > 0 {
		sb.WriteString("\n[REFERENCE NOTES]\n")
		for _, n := range t.Notes {
			sb.WriteString("--- Document: ")
			sb.WriteString(n.Name)
			sb.WriteString(" ---\n")
			sb.WriteString(n.Content)
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
