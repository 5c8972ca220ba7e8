package report

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Chart is a Plotly figure rendered into a placeholder div of the HTML report.
// Data and Layout are passed to Plotly.newPlot verbatim.
type Chart struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Data        []map[string]any `json:"data"`
	Layout      map[string]any   `json:"layout"`
}

// ChartKind selects one of the built-in illustrative datasets.
type ChartKind int

const (
	KindTrend ChartKind = iota
	KindComparison
	KindFlow
	KindShare
)

func (k ChartKind) String() string {
	switch k {
	case KindTrend:
		return "trend"
	case KindComparison:
		return "comparison"
	case KindFlow:
		return "flow"
	case KindShare:
		return "share"
	default:
		return "unknown"
	}
}

// newChartID is swapped in tests to get stable IDs.
var newChartID = func(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

var (
	adoptionYears = intRange(2015, 2025)
	adoptionRates = []float64{10, 15, 22, 30, 40, 53, 68, 75, 82, 88, 92}

	impactLabels = []string{"Development Time", "Error Rate"}
	impactBefore = []float64{100, 65}
	impactAfter  = []float64{68, 28}

	flowLabels = []string{
		"Code Commit", "AI Code Analysis", "Automated Testing",
		"AI Security Scan", "AI Performance Optimization", "Container Build",
		"Deployment", "AI Monitoring",
	}
	flowColors = []string{"#34495e", "#3498db", "#2ecc71", "#e74c3c", "#9b59b6", "#f1c40f", "#1abc9c", "#e67e22"}
	flowSource = []int{0, 0, 1, 2, 3, 4, 5, 6}
	flowTarget = []int{1, 2, 3, 4, 5, 5, 6, 7}
	flowValue  = []int{8, 2, 8, 8, 4, 4, 8, 8}

	shareLabels = []string{"Segment A", "Segment B", "Segment C", "Other"}
	shareValues = []float64{42, 27, 18, 13}

	metricColors = []string{"#3498db", "#2ecc71", "#e74c3c", "#f39c12"}
)

func newChart(prefix string, kind ChartKind, title, description string) Chart {
	c := Chart{
		ID:          newChartID(prefix),
		Title:       title,
		Description: description,
	}
	switch kind {
	case KindTrend:
		c.Data = []map[string]any{{
			"x":    adoptionYears,
			"y":    adoptionRates,
			"type": "scatter",
			"mode": "lines+markers",
			"name": "Adoption Rate",
			"line": map[string]any{"color": "#2ecc71", "width": 3},
		}}
		c.Layout = baseLayout(title, 350, margin(50, 60, 60, 30))
		c.Layout["xaxis"] = map[string]any{"title": "Year"}
		c.Layout["yaxis"] = map[string]any{"title": "Adoption Rate (%)"}
	case KindComparison:
		c.Data = []map[string]any{
			{
				"x":      impactLabels,
				"y":      impactBefore,
				"type":   "bar",
				"name":   "Before Implementation",
				"marker": map[string]any{"color": "#3498db"},
			},
			{
				"x":      impactLabels,
				"y":      impactAfter,
				"type":   "bar",
				"name":   "After Implementation",
				"marker": map[string]any{"color": "#2ecc71"},
			},
		}
		c.Layout = baseLayout(title, 350, margin(50, 60, 60, 30))
		c.Layout["yaxis"] = map[string]any{"title": "Value (relative)"}
		c.Layout["barmode"] = "group"
	case KindFlow:
		c.Data = []map[string]any{{
			"type":        "sankey",
			"orientation": "h",
			"node": map[string]any{
				"pad":       15,
				"thickness": 20,
				"line":      map[string]any{"color": "black", "width": 0.5},
				"label":     flowLabels,
				"color":     flowColors,
			},
			"link": map[string]any{
				"source": flowSource,
				"target": flowTarget,
				"value":  flowValue,
			},
		}}
		c.Layout = baseLayout(title, 400, margin(50, 30, 30, 30))
		c.Layout["font"] = map[string]any{"size": 10}
	case KindShare:
		c.Data = []map[string]any{{
			"values":                 shareValues,
			"labels":                 shareLabels,
			"type":                   "pie",
			"textinfo":               "label+percent",
			"insidetextorientation": "radial",
		}}
		c.Layout = baseLayout(title, 400, margin(50, 30, 30, 30))
	}
	return c
}

// RenewableCostChart plots levelized solar and wind costs for 2010-2022.
func RenewableCostChart() Chart {
	years := intRange(2010, 2022)
	solar := []float64{300, 270, 230, 200, 180, 150, 130, 110, 95, 84, 75, 68, 60}
	wind := []float64{150, 140, 135, 130, 120, 110, 100, 90, 85, 78, 72, 66, 60}
	layout := baseLayout("Declining Costs of Renewable Energy (2010-2022)", 400, margin(50, 50, 60, 20))
	layout["xaxis"] = map[string]any{"title": "Year"}
	layout["yaxis"] = map[string]any{"title": "Levelized Cost of Energy ($/MWh)"}
	layout["legend"] = map[string]any{"x": 0.01, "y": 0.99}
	return Chart{
		ID:          newChartID("renewable_cost"),
		Title:       "Declining Costs of Renewable Energy",
		Description: "This chart illustrates the significant cost reduction in solar and wind energy technologies over the past decade.",
		Data: []map[string]any{
			{
				"x": years, "y": solar, "type": "scatter", "mode": "lines+markers",
				"name": "Solar PV", "line": map[string]any{"color": "#f39c12", "width": 3},
			},
			{
				"x": years, "y": wind, "type": "scatter", "mode": "lines+markers",
				"name": "Wind", "line": map[string]any{"color": "#3498db", "width": 3},
			},
		},
		Layout: layout,
	}
}

func baseLayout(title string, height int, m map[string]any) map[string]any {
	return map[string]any{
		"title":  title,
		"height": height,
		"margin": m,
	}
}

func margin(t, b, l, r int) map[string]any {
	return map[string]any{"t": t, "b": b, "l": l, "r": r}
}

// intRange returns the inclusive range [from, to].
func intRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
