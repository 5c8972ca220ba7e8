package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// htmlParser reduces HTML (for example a previously rendered report) to
// plain text so it can be used as reference notes.
type htmlParser struct{}

var (
	blockTagRe   = regexp.MustCompile(`(?i)</?(p|div|section|h[1-6]|li|ul|ol|br|tr|table|article|header|footer)[^>]*>`)
	scriptLikeRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

func (htmlParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm")
}

func (htmlParser) Parse(content []byte) (string, error) {
	text := scriptLikeRe.ReplaceAllString(string(content), "")
	text = blockTagRe.ReplaceAllString(text, "\n")
	text = bluemonday.StrictPolicy().Sanitize(text)
	text = html.UnescapeString(text)

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRunRe.ReplaceAllString(l, " "))
	}
	text = blankRunRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}
