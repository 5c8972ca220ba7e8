package crew

import (
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// Agent is a role-played LLM persona. Each agent owns its chat model.
type Agent struct {
	Role            string
	Goal            string
	Backstory       string
	Verbose         bool
	AllowDelegation bool
	Model           model.BaseChatModel
}

// NewResearcher returns the Senior Data Researcher.
func NewResearcher(cm model.BaseChatModel) *Agent {
	return &Agent{
		Role: "Senior Data Researcher",
		Goal: "Conduct comprehensive research on the given topic and provide accurate, " +
			"up-to-date information with proper citations",
		Backstory: "You are an experienced data researcher with expertise in gathering, " +
			"analyzing, and synthesizing information from various sources. You have " +
			"a strong background in academic research, data analysis, and fact-checking. " +
			"You are meticulous and thorough in your approach, always ensuring that " +
			"your research is accurate and well-documented.",
		Verbose:         true,
		AllowDelegation: true,
		Model:           cm,
	}
}

// NewAnalyst returns the Reporting Analyst.
func NewAnalyst(cm model.BaseChatModel) *Agent {
	return &Agent{
		Role: "Reporting Analyst",
		Goal: "Create comprehensive, well-structured reports based on research findings " +
			"that are clear, insightful, and actionable",
		Backstory: "You are an expert reporting analyst with a talent for transforming " +
			"complex research data into clear, compelling reports. You have " +
			"exceptional skills in data visualization, narrative structure, and " +
			"communication. You excel at identifying key insights and presenting " +
			"them in a way that is accessible to various audiences while maintaining " +
			"accuracy and depth.",
		Verbose:         true,
		AllowDelegation: true,
		Model:           cm,
	}
}

// SystemPrompt is the persona preamble sent as the system message.
func (a *Agent) SystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are ")
	sb.WriteString(a.Role)
	sb.WriteString(". ")
	sb.WriteString(a.Backstory)
	sb.WriteString("\n\nYour personal goal is: ")
	sb.WriteString(a.Goal)
	if a.AllowDelegation {
		sb.WriteString("\n\nYou work in a team. Use the context handed over by your coworkers when it is provided.")
	}
	return sb.String()
}
