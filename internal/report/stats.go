package report

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Stat is a headline number lifted from the report body.
type Stat struct {
	Title       string `json:"title"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

const maxStats = 4

var (
	currencyRe  = regexp.MustCompile(`\$(\d+(?:\.\d+)?)\s*(billion|million|trillion)`)
	percentRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)
	statTitleRe = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[a-z]+){1,4}`)

	cagrRe    = regexp.MustCompile(`(?i)(?:CAGR|growth rate|annual growth|compound annual growth rate).*?(\d+(?:\.\d+)?)%`)
	subjectRe = regexp.MustCompile(`(?i)(market|industry|demand|consumption|production)`)

	entityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`((?:[A-Z][a-z]+\s*)+)(?:,\s*(?:and\s+)?|\s+and\s+)((?:[A-Z][a-z]+\s*)+)(?:,\s*(?:and\s+)?|\s+and\s+)((?:[A-Z][a-z]+\s*)+).*?(?:top|leading|major)`),
		regexp.MustCompile(`((?:[A-Z][a-z]+\s*)+)(?:,\s*(?:and\s+)?|\s+and\s+)((?:[A-Z][a-z]+\s*)+)(?:,\s*(?:and\s+)?|\s+and\s+)((?:[A-Z][a-z]+\s*)+).*?(?:producers?|consumers?|countries|markets)`),
	}
)

// ExtractStatistics collects currency amounts first, then percentages, and
// keeps at most four.
func ExtractStatistics(text string) []Stat {
	var stats []Stat
	for _, m := range currencyRe.FindAllStringSubmatchIndex(text, -1) {
		value := text[m[2]:m[3]]
		unit := text[m[4]:m[5]]
		words := strings.Fields(text[max(0, m[0]-50):m[0]])
		title := "Market Value"
		if len(words) > 0 {
			title = strings.Join(words[max(0, len(words)-5):], " ")
		}
		stats = append(stats, Stat{
			Title:       capitalize(title),
			Value:       "$" + value,
			Description: "In " + unit,
		})
	}
	for _, m := range percentRe.FindAllStringSubmatchIndex(text, -1) {
		value := text[m[2]:m[3]]
		context := text[max(0, m[0]-50):min(len(text), m[0]+50)]
		title := "Growth Rate"
		if t := statTitleRe.FindString(context); t != "" {
			title = t
		}
		desc := "Growth Rate"
		lc := strings.ToLower(context)
		if strings.Contains(lc, "annual") || strings.Contains(lc, "year") {
			desc = "Annual Rate"
		}
		stats = append(stats, Stat{
			Title:       capitalize(title),
			Value:       value + "%",
			Description: desc,
		})
	}
	if len(stats) > maxStats {
		stats = stats[:maxStats]
	}
	return stats
}

// KeyMetricsChart draws the extracted stats as a horizontal bar chart.
func KeyMetricsChart(stats []Stat) *Chart {
	if len(stats) == 0 {
		return nil
	}
	titles := lo.Map(stats, func(s Stat, _ int) string { return s.Title })
	values := lo.Map(stats, func(s Stat, _ int) float64 { return numericValue(s.Value) })
	colors := metricColors[:min(len(stats), len(metricColors))]
	return &Chart{
		ID:          newChartID("key_metrics"),
		Title:       "Key Metrics",
		Description: "Visual representation of key metrics extracted from the report.",
		Data: []map[string]any{{
			"x":           values,
			"y":           titles,
			"type":        "bar",
			"orientation": "h",
			"marker":      map[string]any{"color": colors},
		}},
		Layout: map[string]any{
			"margin": margin(10, 40, 140, 10),
			"height": 300,
			"yaxis":  map[string]any{"automargin": true},
			"xaxis":  map[string]any{"title": "Value"},
		},
	}
}

// TrendChart projects five years of compound growth from the first growth
// rate the report mentions.
func TrendChart(text string) *Chart {
	m := cagrRe.FindStringSubmatchIndex(text)
	if m == nil {
		return nil
	}
	rate, err := strconv.ParseFloat(text[m[2]:m[3]], 64)
	if err != nil {
		return nil
	}
	years := intRange(2023, 2027)
	values := make([]float64, len(years))
	v := 100.0
	for i := range years {
		values[i] = round2(v)
		v *= 1 + rate/100
	}
	subject := "Market"
	if s := subjectRe.FindString(text[max(0, m[0]-100):m[0]]); s != "" {
		subject = capitalize(s)
	}
	rs := strconv.FormatFloat(rate, 'f', -1, 64)
	return &Chart{
		ID:          newChartID("trend"),
		Title:       fmt.Sprintf("%s Growth Projection (%s%% CAGR)", subject, rs),
		Description: fmt.Sprintf("Projected growth based on the %s%% CAGR mentioned in the report.", rs),
		Data: []map[string]any{{
			"x":    years,
			"y":    values,
			"type": "scatter",
			"mode": "lines+markers",
			"name": "Projected Growth",
			"line": map[string]any{"color": "#3498db", "width": 3},
		}},
		Layout: map[string]any{
			"margin": margin(30, 50, 50, 30),
			"height": 350,
			"xaxis":  map[string]any{"title": "Year"},
			"yaxis":  map[string]any{"title": "Value (indexed to 100)"},
		},
	}
}

// ComparisonChart looks for lists of three capitalized names followed by a
// ranking word ("leading producers", "top markets") and plots them as a pie.
// Values are illustrative but stable for a given name.
func ComparisonChart(text string) *Chart {
	var found []string
	for _, re := range entityPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			for _, g := range m[1:] {
				g = strings.TrimSpace(g)
				if len(g) > 2 {
					found = append(found, g)
				}
			}
		}
	}
	entities := lo.Filter(lo.Uniq(found), func(e string, _ int) bool {
		return len(strings.Fields(e)) < 3
	})
	if len(entities) > 5 {
		entities = entities[:5]
	}
	if len(entities) < 2 {
		return nil
	}
	sort.Strings(entities)
	values := lo.Map(entities, func(e string, _ int) int { return illustrativeValue(e) })

	lower := strings.ToLower(text)
	entityType := "Market Share"
	switch {
	case strings.Contains(lower, "producer"):
		entityType = "Producers"
	case strings.Contains(lower, "countr"):
		entityType = "Countries"
	case lo.SomeBy(entities, func(e string) bool { return strings.HasSuffix(e, "Inc") || strings.HasSuffix(e, "Co") }):
		entityType = "Companies"
	}
	return &Chart{
		ID:          newChartID("comparison"),
		Title:       entityType + " Comparison",
		Description: fmt.Sprintf("Relative comparison of %s mentioned in the report. Values are illustrative.", strings.ToLower(entityType)),
		Data: []map[string]any{{
			"values":                 values,
			"labels":                 entities,
			"type":                   "pie",
			"textinfo":               "label+percent",
			"insidetextorientation": "radial",
		}},
		Layout: map[string]any{
			"margin": margin(30, 30, 30, 30),
			"height": 400,
		},
	}
}

// illustrativeValue maps a name onto [20, 100].
func illustrativeValue(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return 20 + int(h.Sum32()%81)
}

func numericValue(s string) float64 {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	f, _ := strconv.ParseFloat(clean, 64)
	return f
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
