package report

import (
	"strings"
)

// keyword groups checked in order; the first group with a hit picks the chart kind.
var suggestionKeywords = []struct {
	kind     ChartKind
	keywords []string
}{
	{KindTrend, []string{"adoption", "growth", "trend"}},
	{KindComparison, []string{"productivity", "impact", "error"}},
	{KindFlow, []string{"ci/cd", "pipeline", "flowchart", "workflow", "process"}},
	{KindShare, []string{"share", "distribution", "breakdown"}},
	{KindComparison, []string{"compar", "versus", " vs ", " vs."}},
}

// Default placeholders used when a report has no usable visualization suggestions.
var defaultSuggestions = []Subsection{
	{Title: "Growth Trend", Content: "Trend analysis over time"},
	{Title: "Comparative Analysis", Content: "Comparison of key metrics"},
	{Title: "Process Workflow", Content: "Visualization of the process flow"},
}

func classifySuggestion(text string) (ChartKind, bool) {
	lower := " " + strings.ToLower(text) + " "
	for _, group := range suggestionKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(lower, kw) {
				return group.kind, true
			}
		}
	}
	return 0, false
}

// VisualizationFromSuggestion turns a "### Title" suggestion from the report
// into an illustrative chart. The title decides the chart kind; the
// description is only consulted when the title has no recognizable keyword.
// It returns nil when neither does.
func VisualizationFromSuggestion(title, description string) *Chart {
	kind, ok := classifySuggestion(title)
	if !ok {
		kind, ok = classifySuggestion(description)
	}
	if !ok {
		return nil
	}
	c := newChart("viz", kind, strings.TrimSpace(title), strings.TrimSpace(description))
	return &c
}

// DefaultVisualization builds a placeholder chart of the given kind. The
// original suggestion's description is kept so the reader still sees what
// the analyst asked for.
func DefaultVisualization(kind ChartKind, title, origTitle, origDescription string) Chart {
	desc := strings.TrimSpace(origDescription)
	if desc == "" {
		desc = strings.TrimSpace(origTitle)
	}
	return newChart("viz", kind, title, desc)
}

func defaultCharts() []Chart {
	out := make([]Chart, 0, len(defaultSuggestions))
	for i, s := range defaultSuggestions {
		out = append(out, DefaultVisualization(ChartKind(i), s.Title, s.Title, s.Content))
	}
	return out
}

// chartsForSuggestions applies the suggestion heuristics and falls back to
// the default placeholders.
func chartsForSuggestions(items []Subsection) []Chart {
	var charts []Chart
	for _, item := range items {
		if c := VisualizationFromSuggestion(item.Title, item.Content); c != nil {
			charts = append(charts, *c)
		}
	}
	if len(charts) > 0 {
		return charts
	}
	if len(items) == 0 {
		return defaultCharts()
	}
	for i, item := range items {
		if i >= len(defaultSuggestions) {
			break
		}
		charts = append(charts, DefaultVisualization(ChartKind(i), defaultSuggestions[i].Title, item.Title, item.Content))
	}
	return charts
}
