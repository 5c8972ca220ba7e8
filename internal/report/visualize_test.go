package report

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisualizationFromSuggestion(t *testing.T) {
	cases := []struct {
		title, desc string
		wantType    string // "" means no chart
	}{
		{"AI Adoption Over Time", "", "scatter"},
		{"Productivity Impact", "", "bar"},
		{"CI/CD Pipeline", "", "sankey"},
		{"Approval Process", "", "sankey"},
		{"Vendor Market Share", "", "pie"},
		{"Cloud versus On-Prem", "", "bar"},
		{"Chart 1", "A flowchart of the release workflow", "sankey"},
		{"Chart 2", "Bar chart comparing costs", "bar"},
		{"Chart 3", "Nothing useful", ""},
	}
	for _, c := range cases {
		t.Run(c.title, func(t *testing.T) {
			got := VisualizationFromSuggestion(c.title, c.desc)
			if c.wantType == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, c.wantType, got.Data[0]["type"])
			assert.Equal(t, c.title, got.Title)
			assert.Equal(t, c.desc, got.Description)
		})
	}
}

func TestVisualizationFromSuggestion_TitleWinsOverDescription(t *testing.T) {
	got := VisualizationFromSuggestion("Growth of users", "pie chart share breakdown")
	require.NotNil(t, got)
	assert.Equal(t, "scatter", got.Data[0]["type"])
}

func TestDefaultVisualization(t *testing.T) {
	c := DefaultVisualization(KindComparison, "Comparative Analysis", "Foo", "")
	assert.Equal(t, "Comparative Analysis", c.Title)
	assert.Equal(t, "Foo", c.Description)
	require.Len(t, c.Data, 2)
	assert.Equal(t, "group", c.Layout["barmode"])

	c = DefaultVisualization(KindTrend, "Growth Trend", "Foo", "Bar")
	assert.Equal(t, "Bar", c.Description)
	assert.Equal(t, adoptionYears, c.Data[0]["x"])
}

func TestChartIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^viz_[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c := DefaultVisualization(KindFlow, "t", "o", "d")
		assert.Regexp(t, re, c.ID)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestChartKindString(t *testing.T) {
	assert.Equal(t, "trend", KindTrend.String())
	assert.Equal(t, "share", KindShare.String())
	assert.Equal(t, "unknown", ChartKind(42).String())
}
