package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// PlotlyURL is the CDN build referenced by rendered reports.
const PlotlyURL = "https://cdn.plot.ly/plotly-2.27.0.min.js"

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.ParseFS(templateFS, "templates/report.html.tmpl"))

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	sanitizer = bluemonday.UGCPolicy()

	anchorRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// RenderData is everything the HTML report needs.
type RenderData struct {
	Title       string
	GeneratedOn string
	Document    *Document
}

type sectionView struct {
	Title       string
	Anchor      string
	Kind        SectionKind
	Content     template.HTML
	Subsections []subsectionView
	Charts      []Chart
}

type subsectionView struct {
	Title   string
	Content template.HTML
}

type pageView struct {
	Title        string
	GeneratedOn  string
	PlotlyURL    string
	KeyStats     []Stat
	KeyMetrics   *Chart
	Sections     []sectionView
	CustomCharts []Chart
	Charts       []Chart
}

// Render writes the HTML report for data.Document to w.
func Render(w io.Writer, data RenderData) error {
	if data.Document == nil {
		return fmt.Errorf("render: no document")
	}
	doc := data.Document
	page := pageView{
		Title:        data.Title,
		GeneratedOn:  data.GeneratedOn,
		PlotlyURL:    PlotlyURL,
		KeyStats:     doc.KeyStats,
		KeyMetrics:   doc.KeyMetrics,
		CustomCharts: doc.CustomCharts,
		Charts:       doc.Charts(),
	}
	if page.Title == "" {
		page.Title = "Research Report: " + doc.Topic
	}
	if page.GeneratedOn == "" {
		page.GeneratedOn = doc.GeneratedOn
	}
	seen := map[string]int{}
	for _, s := range doc.Sections {
		v := sectionView{
			Title:  s.Title,
			Anchor: uniqueAnchor(s.Title, seen),
			Kind:   s.Kind,
			Charts: s.Charts,
		}
		var err error
		if v.Content, err = markdownHTML(s.Content); err != nil {
			return fmt.Errorf("render section %q: %w", s.Title, err)
		}
		for _, sub := range s.Subsections {
			body, err := markdownHTML(sub.Content)
			if err != nil {
				return fmt.Errorf("render subsection %q: %w", sub.Title, err)
			}
			v.Subsections = append(v.Subsections, subsectionView{Title: sub.Title, Content: body})
		}
		page.Sections = append(page.Sections, v)
	}
	if err := reportTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(data RenderData) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// markdownHTML converts a markdown fragment and strips anything unsafe.
func markdownHTML(md string) (template.HTML, error) {
	if strings.TrimSpace(md) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

func uniqueAnchor(title string, seen map[string]int) string {
	a := strings.Trim(anchorRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if a == "" {
		a = "section"
	}
	seen[a]++
	if n := seen[a]; n > 1 {
		return fmt.Sprintf("%s-%d", a, n)
	}
	return a
}
