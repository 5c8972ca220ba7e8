package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_ContainsSectionsAndCharts(t *testing.T) {
	stableIDs(t)
	doc := ParseSections(PreprocessMarkdown(rawReport))
	out, err := RenderString(RenderData{Document: doc, GeneratedOn: "2024-05-01 10:00:00"})
	require.NoError(t, err)

	assert.Contains(t, out, "<title>Research Report: AI in DevOps</title>")
	assert.Contains(t, out, PlotlyURL)
	assert.Contains(t, out, `<section id="executive-summary" class="report-section executive_summary">`)
	assert.Contains(t, out, "<h3>Automation</h3>")
	assert.Contains(t, out, "<p>Pipelines run themselves.</p>")

	for _, c := range doc.Charts() {
		assert.Contains(t, out, `<div id="`+c.ID+`" class="plotly-graph">`)
		assert.Contains(t, out, `Plotly.newPlot("`+c.ID+`"`)
	}
	assert.Equal(t, len(doc.Charts()), strings.Count(out, "Plotly.newPlot("))
}

func TestRender_SanitizesMarkdown(t *testing.T) {
	doc := &Document{
		Topic: "XSS",
		Sections: []Section{{
			Title:   "Introduction",
			Kind:    SectionStandard,
			Content: "Hello <script>alert(1)</script> **bold** [link](javascript:alert(1))",
		}},
	}
	out, err := RenderString(RenderData{Document: doc})
	require.NoError(t, err)
	assert.NotContains(t, out, "alert(1)</script>")
	assert.NotContains(t, out, "javascript:alert")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestRender_EscapesTitles(t *testing.T) {
	doc := &Document{Topic: "<b>Topic</b>"}
	out, err := RenderString(RenderData{Document: doc})
	require.NoError(t, err)
	assert.Contains(t, out, "Research Report: &lt;b&gt;Topic&lt;/b&gt;")
}

func TestRender_NilDocument(t *testing.T) {
	_, err := RenderString(RenderData{})
	assert.Error(t, err)
}

func TestUniqueAnchor(t *testing.T) {
	seen := map[string]int{}
	assert.Equal(t, "key-findings", uniqueAnchor("Key Findings", seen))
	assert.Equal(t, "key-findings-2", uniqueAnchor("Key findings!", seen))
	assert.Equal(t, "section", uniqueAnchor("???", seen))
}

func TestSave_WritesMarkdownAndHTML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	now := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

	res, err := Save(rawReport, "AI in/DevOps", dir, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AI_in_DevOps_20240501-093015.md"), res.MarkdownPath)
	assert.Equal(t, filepath.Join(dir, "AI_in_DevOps_20240501-093015.html"), res.HTMLPath)

	md, err := os.ReadFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, PreprocessMarkdown(rawReport), string(md))

	html, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Generated on 2024-05-01 09:30:15")
	assert.Contains(t, string(html), "Research Report: AI in/DevOps")
	require.NotNil(t, res.Document)
	assert.Equal(t, "AI in DevOps", res.Document.Topic)
}

func TestSanitizeTopic(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeTopic(" a b/c "))
}
