package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stableIDs replaces chart IDs with a per-test counter.
func stableIDs(t *testing.T) {
	t.Helper()
	prev := newChartID
	n := 0
	newChartID = func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%08d", prefix, n)
	}
	t.Cleanup(func() { newChartID = prev })
}

func sectionTitles(doc *Document) []string {
	return lo.Map(doc.Sections, func(s Section, _ int) string { return s.Title })
}

func findSection(t *testing.T, doc *Document, title string) Section {
	t.Helper()
	s, ok := lo.Find(doc.Sections, func(s Section) bool { return s.Title == title })
	require.True(t, ok, "section %q not found in %v", title, sectionTitles(doc))
	return s
}

func TestParseSections_TopicAndDate(t *testing.T) {
	doc := ParseSections(PreprocessMarkdown(rawReport))
	assert.Equal(t, "AI in DevOps", doc.Topic)
	assert.Equal(t, "2024-05-01", doc.GeneratedOn)
}

func TestParseSections_TopicFallback(t *testing.T) {
	doc := ParseSections("AI Trends\n\n## Introduction\n\nText.\n")
	assert.Equal(t, "AI Trends", doc.Topic)
}

func TestParseSections_OrderAndDefaultVisualization(t *testing.T) {
	stableIDs(t)
	md := "# Research Report: Widgets\n\n" +
		"## Conclusion\n\nWrap up.\n\n" +
		"## Introduction\n\nHello.\n\n" +
		"## Executive Summary\n\nShort version.\n\n" +
		"## Custom Topic\n\nExtra.\n\n" +
		"## Key Findings\n\n### Finding One\n\nDetail.\n"

	doc := ParseSections(md)
	want := []string{"Executive Summary", "Introduction", "Key Findings", "Data Visualization", "Conclusion", "Custom Topic"}
	if diff := cmp.Diff(want, sectionTitles(doc)); diff != "" {
		t.Fatalf("section order (-want +got):\n%s", diff)
	}

	viz := findSection(t, doc, "Data Visualization")
	assert.Equal(t, SectionVisualization, viz.Kind)
	require.Len(t, viz.Charts, 3)
	assert.Equal(t, []string{"Growth Trend", "Comparative Analysis", "Process Workflow"},
		lo.Map(viz.Charts, func(c Chart, _ int) string { return c.Title }))
	assert.Equal(t, "sankey", viz.Charts[2].Data[0]["type"])

	assert.Equal(t, SectionExecutiveSummary, findSection(t, doc, "Executive Summary").Kind)
	kf := findSection(t, doc, "Key Findings")
	assert.Equal(t, SectionContainer, kf.Kind)
	assert.Equal(t, []Subsection{{Title: "Finding One", Content: "Detail."}}, kf.Subsections)
}

func TestParseSections_DefaultVisualizationPosition(t *testing.T) {
	cases := []struct {
		name string
		md   string
		want []string
	}{
		{
			name: "no anchors",
			md:   "## Alpha\n\na\n\n## Beta\n\nb\n\n## Gamma\n\nc\n\n## Delta\n\nd\n",
			want: []string{"Data Visualization", "Alpha", "Beta", "Gamma", "Delta"},
		},
		{
			name: "after detailed analysis",
			md:   "## Detailed Analysis\n\n### Part\n\nx\n\n## Alpha\n\na\n",
			want: []string{"Detailed Analysis", "Data Visualization", "Alpha"},
		},
		{
			name: "empty document",
			md:   "",
			want: []string{"Data Visualization"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, sectionTitles(ParseSections(c.md)))
		})
	}
}

func TestParseSections_VisualizationSuggestions(t *testing.T) {
	stableIDs(t)
	md := "# Research Report: AI\n\n" +
		"## Data Visualization\n\n" +
		"### AI Adoption Growth\n\nLine chart of adoption per year.\n\n" +
		"### Market Share Breakdown\n\nPie chart of vendors.\n\n" +
		"### Something Else\n\nNothing to see.\n"

	doc := ParseSections(md)
	viz := findSection(t, doc, "Data Visualization")
	require.Len(t, viz.Charts, 2)
	assert.Equal(t, "AI Adoption Growth", viz.Charts[0].Title)
	assert.Equal(t, "Line chart of adoption per year.", viz.Charts[0].Description)
	assert.Equal(t, "scatter", viz.Charts[0].Data[0]["type"])
	assert.Equal(t, "Market Share Breakdown", viz.Charts[1].Title)
	assert.Equal(t, "pie", viz.Charts[1].Data[0]["type"])
}

func TestParseSections_SuggestionsWithoutKeywordsGetDefaults(t *testing.T) {
	stableIDs(t)
	md := "## Data Visualization\n\n### Foo\n\nBar.\n\n### Baz\n\nQux.\n"
	viz := findSection(t, ParseSections(md), "Data Visualization")
	require.Len(t, viz.Charts, 2)
	assert.Equal(t, "Growth Trend", viz.Charts[0].Title)
	assert.Equal(t, "Bar.", viz.Charts[0].Description)
	assert.Equal(t, "Comparative Analysis", viz.Charts[1].Title)
	assert.Equal(t, "Qux.", viz.Charts[1].Description)
}

func TestParseSections_Containers(t *testing.T) {
	long := strings.Repeat("word ", 25)
	md := "## Key Findings\n" +
		"- **Speed:** Faster builds.\n" +
		"- **Cost:** Lower bills.\n\n" +
		"## Recommendations\n\nDo more.\n\n" +
		"## Detailed Analysis\n\n" + long + "\n"

	doc := ParseSections(md)
	kf := findSection(t, doc, "Key Findings")
	assert.Equal(t, []Subsection{
		{Title: "Speed", Content: "Faster builds."},
		{Title: "Cost", Content: "Lower bills."},
	}, kf.Subsections)

	assert.NotContains(t, sectionTitles(doc), "Recommendations")

	da := findSection(t, doc, "Detailed Analysis")
	assert.Equal(t, SectionStandard, da.Kind)
	assert.Equal(t, strings.TrimSpace(long), da.Content)
}

func TestParseSections_ContainerIntroKept(t *testing.T) {
	md := "## Key Findings\n\nThree themes emerged.\n\n### One\n\nFirst.\n"
	kf := findSection(t, ParseSections(md), "Key Findings")
	assert.Equal(t, "Three themes emerged.", kf.Content)
	require.Len(t, kf.Subsections, 1)
}

func TestParseSections_ReferencesLast(t *testing.T) {
	doc := ParseSections(PreprocessMarkdown(referencesReport))
	titles := sectionTitles(doc)
	require.NotEmpty(t, titles)
	assert.Equal(t, "References", titles[len(titles)-1])
	assert.Equal(t, 1, lo.Count(titles, "References"))

	refs := doc.Sections[len(doc.Sections)-1]
	assert.Equal(t, SectionReferences, refs.Kind)
	assert.Equal(t, []string{"Smith, J. (2020)", "Energy Agency", "Reference"},
		lo.Map(refs.Subsections, func(s Subsection, _ int) string { return s.Title }))
}

func TestParseSections_ReferencesFromPlainList(t *testing.T) {
	md := "## Conclusion\n\nEnd.\n\n## References\n\n- Doe (2019) Wind study.\n* Roe. Grid study.\n\n## Appendix\n\nMore.\n"
	doc := ParseSections(md)
	refs := doc.Sections[len(doc.Sections)-1]
	require.Equal(t, "References", refs.Title)
	assert.Equal(t, []Subsection{
		{Title: "Doe (2019)", Content: "Doe (2019) Wind study."},
		{Title: "Roe", Content: "Roe. Grid study."},
	}, refs.Subsections)
	assert.Contains(t, sectionTitles(doc), "Appendix")
}

func TestParseSections_SuffixedReferencesHeader(t *testing.T) {
	headers := []string{
		"## References and Further Reading",
		"## Sources and References",
		"**References and Sources:**",
		"**References and Sources**",
	}
	for _, h := range headers {
		t.Run(h, func(t *testing.T) {
			md := "# Research Report: Solar\n\n## Conclusion\n\nDone.\n\n" + h + "\n\n" +
				"1. Smith, J. (2020). Solar power.\n2. Doe (2019) Wind study.\n"
			for _, in := range []string{md, PreprocessMarkdown(md)} {
				doc := ParseSections(in)
				refs := doc.Sections[len(doc.Sections)-1]
				require.Equal(t, "References", refs.Title, "sections %v", sectionTitles(doc))
				assert.Equal(t, SectionReferences, refs.Kind)
				require.Len(t, refs.Subsections, 2)
				assert.Equal(t, "Smith, J. (2020)", refs.Subsections[0].Title)
				assert.Contains(t, refs.Subsections[0].Content, "Solar power")
				assert.Equal(t, 1, lo.Count(sectionTitles(doc), "References"))
			}
		})
	}
}

func TestParseSections_TopicHeaderIgnored(t *testing.T) {
	md := "# Research Report: Widgets\n\n## Widgets\n\nStray.\n\n## Conclusion\n\nEnd.\n"
	assert.Equal(t, []string{"Data Visualization", "Conclusion"}, sectionTitles(ParseSections(md)))
}

func TestParseSections_PseudoHeadersWithoutPreprocessing(t *testing.T) {
	md := "**Introduction:**\nHello.\n\n1. **Methodology:**\nWe read.\n\n2. Conclusion:\nBye.\n"
	doc := ParseSections(md)
	assert.Equal(t, []string{"Introduction", "Methodology", "Data Visualization", "Conclusion"}, sectionTitles(doc))
	assert.Equal(t, "We read.", findSection(t, doc, "Methodology").Content)
}

func TestParseSections_CustomChartsAndStats(t *testing.T) {
	stableIDs(t)
	md := "# Research Report: Renewable Energy\n\n" +
		"## Executive Summary\n\n" +
		"Renewable energy cost trends keep improving. The market reached $45.5 billion in 2023 " +
		"and should grow at a CAGR of 10% through 2030.\n"

	doc := ParseSections(md)
	ids := lo.Map(doc.CustomCharts, func(c Chart, _ int) string { return strings.SplitN(c.ID, "_0", 2)[0] })
	assert.Equal(t, []string{"renewable_cost", "trend"}, ids)

	require.NotEmpty(t, doc.KeyStats)
	assert.Equal(t, "$45.5", doc.KeyStats[0].Value)
	require.NotNil(t, doc.KeyMetrics)

	all := doc.Charts()
	unique := lo.Uniq(lo.Map(all, func(c Chart, _ int) string { return c.ID }))
	assert.Len(t, unique, len(all))
}

func TestParseSections_EntityComparisonChart(t *testing.T) {
	stableIDs(t)
	md := "# Research Report: Solar\n\n## Introduction\n\n" +
		"Output grew fast. China, United States and India are the leading producers of solar panels.\n"

	doc := ParseSections(md)
	ids := lo.Map(doc.CustomCharts, func(c Chart, _ int) string { return strings.SplitN(c.ID, "_0", 2)[0] })
	assert.Equal(t, []string{"comparison"}, ids)
	assert.Equal(t, "Producers Comparison", doc.CustomCharts[0].Title)
}
