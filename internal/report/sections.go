package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// SectionKind decides how a section is rendered.
type SectionKind string

const (
	SectionExecutiveSummary SectionKind = "executive_summary"
	SectionContainer        SectionKind = "container"
	SectionVisualization    SectionKind = "visualization"
	SectionReferences       SectionKind = "references"
	SectionStandard         SectionKind = "standard"
)

// Subsection is a "### Title" block, or a bold bullet promoted to one.
type Subsection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Section is one top-level block of the report. Content is markdown.
type Section struct {
	Title       string       `json:"title"`
	Kind        SectionKind  `json:"kind"`
	Content     string       `json:"content,omitempty"`
	Subsections []Subsection `json:"subsections,omitempty"`
	Charts      []Chart      `json:"charts,omitempty"`
}

// Document is the parsed form of a report, ready for rendering.
type Document struct {
	Topic        string    `json:"topic"`
	GeneratedOn  string    `json:"generated_on,omitempty"`
	Sections     []Section `json:"sections"`
	CustomCharts []Chart   `json:"custom_charts,omitempty"`
	KeyStats     []Stat    `json:"key_stats,omitempty"`
	KeyMetrics   *Chart    `json:"key_metrics,omitempty"`
}

// Charts returns every chart in the document in render order.
func (d *Document) Charts() []Chart {
	var out []Chart
	if d.KeyMetrics != nil {
		out = append(out, *d.KeyMetrics)
	}
	for _, s := range d.Sections {
		out = append(out, s.Charts...)
	}
	return append(out, d.CustomCharts...)
}

const minContainerWords = 20

var (
	topicRe       = regexp.MustCompile(`#[ \t]*Research Report:[ \t]*([^\n]*)`)
	parseDateRe   = regexp.MustCompile(`\*Generated on: ([^*]*)\*`)
	subsectionRe  = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	bulletTitleRe = regexp.MustCompile(`^[-•]\s+\*\*([^*\n:]+):?\*\*:?\s*(.*)$`)
	bulletStartRe = regexp.MustCompile(`^\s*[-•]`)
	listItemRe    = regexp.MustCompile(`^(?:\d+\.|-|\*)\s*(.*)$`)

	sectionHeaderRes = []*regexp.Regexp{
		regexp.MustCompile(`^##\s+(.+?)\s*$`),
		regexp.MustCompile(`^\*\*([^*:]+):\*\*\s*$`),
		regexp.MustCompile(`^\*\*\d+\.\s+([^*:]+):\*\*\s*$`),
		regexp.MustCompile(`^\d+\.\s+\*\*([^*:]+):\*\*\s*$`),
		regexp.MustCompile(`^\d+\.\s+([^:\n]+):\s*$`),
	}
)

// sectionOrder ranks sections by the first key contained in the lower-cased
// title. Unmatched titles sort after all listed ones.
var sectionOrder = []struct {
	key  string
	rank int
}{
	{"executive summary", 0},
	{"introduction", 1},
	{"methodology", 2},
	{"key findings", 3},
	{"detailed analysis", 4},
	{"data visualization", 5},
	{"implications", 6},
	{"recommendations", 7},
	{"conclusion", 8},
	{"references", 999},
}

const unrankedSection = 500

func sectionRank(title string) int {
	lower := strings.ToLower(title)
	for _, o := range sectionOrder {
		if strings.Contains(lower, o.key) {
			return o.rank
		}
	}
	return unrankedSection
}

func classifySection(title string) SectionKind {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "data visualization") || strings.Contains(lower, "visualizations"):
		return SectionVisualization
	case strings.Contains(lower, "references"):
		return SectionReferences
	case strings.Contains(lower, "executive summary"):
		return SectionExecutiveSummary
	case strings.Contains(lower, "key findings"),
		strings.Contains(lower, "detailed analysis"),
		strings.Contains(lower, "recommendations"):
		return SectionContainer
	default:
		return SectionStandard
	}
}

type rawSection struct {
	title string
	body  []string
}

// ParseSections splits preprocessed markdown into renderable sections.
// A "Data Visualization" section is always present, references always come
// last, and every other section follows the usual report order.
func ParseSections(md string) *Document {
	md = normalizeNewlines(md)
	doc := &Document{Topic: extractTopic(md)}
	if m := parseDateRe.FindStringSubmatch(md); m != nil {
		doc.GeneratedOn = strings.TrimSpace(m[1])
	}

	var sections []Section
	hasViz := false
	for _, raw := range splitSections(md, doc.Topic) {
		content := strings.TrimSpace(strings.Join(raw.body, "\n"))
		kind := classifySection(raw.title)
		switch kind {
		case SectionReferences:
			// collected separately below
			continue
		case SectionVisualization:
			hasViz = true
			_, items := splitSubsections(raw.body)
			sections = append(sections, Section{
				Title:  raw.title,
				Kind:   kind,
				Charts: chartsForSuggestions(items),
			})
		case SectionContainer:
			intro, subs := splitSubsections(raw.body)
			if len(subs) == 0 {
				intro, subs = "", splitBoldBullets(raw.body)
			}
			switch {
			case len(subs) > 0:
				sections = append(sections, Section{Title: raw.title, Kind: kind, Content: intro, Subsections: subs})
			case len(strings.Fields(content)) > minContainerWords:
				sections = append(sections, Section{Title: raw.title, Kind: SectionStandard, Content: content})
			}
		default:
			sections = append(sections, Section{Title: raw.title, Kind: kind, Content: content})
		}
	}

	if !hasViz {
		sections = insertDefaultVisualization(sections)
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sectionRank(sections[i].Title) < sectionRank(sections[j].Title)
	})

	if refs := extractReferences(md); len(refs) > 0 {
		sections = append(sections, Section{Title: "References", Kind: SectionReferences, Subsections: refs})
	}
	doc.Sections = sections

	doc.CustomCharts = customCharts(md)
	doc.KeyStats = ExtractStatistics(md)
	doc.KeyMetrics = KeyMetricsChart(doc.KeyStats)
	return doc
}

func extractTopic(md string) string {
	if m := topicRe.FindStringSubmatch(md); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	lines := strings.Split(md, "\n")
	for _, l := range lines[:min(5, len(lines))] {
		if strings.TrimSpace(l) != "" && !strings.HasPrefix(l, "#") && !strings.HasPrefix(l, "*") {
			return strings.TrimSpace(l)
		}
	}
	return ""
}

func sectionTitle(line string) (string, bool) {
	t := strings.TrimSpace(line)
	for _, re := range sectionHeaderRes {
		if m := re.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

// splitSections cuts the text at section headers. Headers repeating the
// topic are treated as body text of the previous section.
func splitSections(md, topic string) []rawSection {
	var out []rawSection
	var cur *rawSection
	for _, line := range strings.Split(md, "\n") {
		if title, ok := sectionTitle(line); ok && !strings.EqualFold(title, topic) {
			out = append(out, rawSection{title: title})
			cur = &out[len(out)-1]
			continue
		}
		if cur != nil {
			cur.body = append(cur.body, line)
		}
	}
	return out
}

// splitSubsections returns the text before the first "###" header and the
// "###" blocks that follow it.
func splitSubsections(lines []string) (string, []Subsection) {
	var intro []string
	var subs []Subsection
	var body []string
	flush := func() {
		if len(subs) > 0 {
			subs[len(subs)-1].Content = strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = nil
	}
	for _, l := range lines {
		if m := subsectionRe.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			flush()
			subs = append(subs, Subsection{Title: m[1]})
			continue
		}
		if len(subs) == 0 {
			intro = append(intro, l)
		} else {
			body = append(body, l)
		}
	}
	flush()
	return strings.TrimSpace(strings.Join(intro, "\n")), subs
}

func splitBoldBullets(lines []string) []Subsection {
	var subs []Subsection
	for i := 0; i < len(lines); i++ {
		m := bulletTitleRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		body := []string{m[2]}
		for i+1 < len(lines) && !bulletStartRe.MatchString(lines[i+1]) {
			i++
			body = append(body, lines[i])
		}
		subs = append(subs, Subsection{
			Title:   strings.TrimSpace(m[1]),
			Content: strings.TrimSpace(strings.Join(body, "\n")),
		})
	}
	return subs
}

func insertDefaultVisualization(sections []Section) []Section {
	viz := Section{Title: "Data Visualization", Kind: SectionVisualization, Charts: defaultCharts()}
	pos := -1
	for _, key := range []string{"detailed analysis", "key findings"} {
		_, idx, ok := lo.FindIndexOf(sections, func(s Section) bool {
			return strings.Contains(strings.ToLower(s.Title), key)
		})
		if ok {
			pos = idx + 1
			break
		}
	}
	if pos < 0 {
		pos = min(3, len(sections))
	}
	return append(sections[:pos], append([]Section{viz}, sections[pos:]...)...)
}

// extractReferences reads the first references section as "###" entries,
// else list items, else non-empty lines.
func extractReferences(md string) []Subsection {
	lines := strings.Split(md, "\n")
	start, end := referencesBounds(lines)
	if start < 0 {
		return nil
	}
	body := lines[start+1 : end]

	if _, subs := splitSubsections(body); len(subs) > 0 {
		return subs
	}
	var items []string
	for _, l := range body {
		if m := listItemRe.FindStringSubmatch(strings.TrimSpace(l)); m != nil && strings.TrimSpace(m[1]) != "" {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	if len(items) == 0 {
		items = lo.FilterMap(body, func(l string, _ int) (string, bool) {
			t := strings.TrimSpace(l)
			return t, t != ""
		})
	}
	return lo.Map(items, func(ref string, _ int) Subsection {
		return Subsection{Title: referenceHeading(ref), Content: ref}
	})
}

func customCharts(md string) []Chart {
	var charts []Chart
	lower := strings.ToLower(md)
	if strings.Contains(lower, "renewable energy") &&
		(strings.Contains(lower, "cost trends") || strings.Contains(lower, "declining cost")) {
		charts = append(charts, RenewableCostChart())
	}
	if c := TrendChart(md); c != nil {
		charts = append(charts, *c)
	}
	if c := ComparisonChart(md); c != nil {
		charts = append(charts, *c)
	}
	return charts
}
