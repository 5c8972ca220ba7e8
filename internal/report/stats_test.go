package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStatistics(t *testing.T) {
	text := "The global market reached $45.5 billion in 2023, growing at 12% annually."
	got := ExtractStatistics(text)
	assert.Equal(t, []Stat{
		{Title: "The global market reached", Value: "$45.5", Description: "In billion"},
		{Title: "Growth rate", Value: "12%", Description: "Annual Rate"},
	}, got)
}

func TestExtractStatistics_CapsAtFour(t *testing.T) {
	text := strings.Repeat("Sales rose by 5% overall. ", 10)
	got := ExtractStatistics(text)
	require.Len(t, got, 4)
	for _, s := range got {
		assert.Equal(t, "5%", s.Value)
		assert.Equal(t, "Growth Rate", s.Description)
	}
	assert.Equal(t, "Sales rose by", got[0].Title)
}

func TestExtractStatistics_None(t *testing.T) {
	assert.Empty(t, ExtractStatistics("no numbers here"))
	assert.Nil(t, KeyMetricsChart(nil))
}

func TestKeyMetricsChart(t *testing.T) {
	c := KeyMetricsChart([]Stat{
		{Title: "Market", Value: "$45.5"},
		{Title: "Growth", Value: "12%"},
	})
	require.NotNil(t, c)
	assert.Equal(t, []float64{45.5, 12}, c.Data[0]["x"])
	assert.Equal(t, []string{"Market", "Growth"}, c.Data[0]["y"])
	assert.Equal(t, "h", c.Data[0]["orientation"])
}

func TestTrendChart(t *testing.T) {
	c := TrendChart("The market is expected to grow at a CAGR of 10% through 2030.")
	require.NotNil(t, c)
	assert.Equal(t, "Market Growth Projection (10% CAGR)", c.Title)
	assert.Equal(t, []int{2023, 2024, 2025, 2026, 2027}, c.Data[0]["x"])
	assert.Equal(t, []float64{100, 110, 121, 133.1, 146.41}, c.Data[0]["y"])

	assert.Nil(t, TrendChart("flat as a pancake"))
}

func TestTrendChart_SubjectFallback(t *testing.T) {
	c := TrendChart("Revenue shows annual growth of 7.5% for vendors.")
	require.NotNil(t, c)
	assert.Equal(t, "Market Growth Projection (7.5% CAGR)", c.Title)
}

func TestComparisonChart(t *testing.T) {
	text := "China, United States and India are the leading producers of solar panels."
	c := ComparisonChart(text)
	require.NotNil(t, c)
	assert.Equal(t, "Producers Comparison", c.Title)
	assert.Equal(t, []string{"China", "India", "United States"}, c.Data[0]["labels"])

	again := ComparisonChart(text)
	assert.Equal(t, c.Data[0]["values"], again.Data[0]["values"])
	for _, v := range c.Data[0]["values"].([]int) {
		assert.GreaterOrEqual(t, v, 20)
		assert.LessOrEqual(t, v, 100)
	}

	assert.Nil(t, ComparisonChart("nothing to compare here"))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Market value", capitalize("MARKET VALUE"))
	assert.Equal(t, "", capitalize("  "))
	assert.Equal(t, "Éclair", capitalize("éclair"))
}
