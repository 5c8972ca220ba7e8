package parser

import (
	"regexp"
	"strings"
)

type markdownParser struct{}

var (
	frontMatterRe = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	extraBlankRe  = regexp.MustCompile(`\n{3,}`)
)

func (markdownParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

// Parse keeps markdown as-is apart from line endings, YAML front matter and
// runs of blank lines.
func (markdownParser) Parse(content []byte) (string, error) {
	text := normalizeText(content)
	text = frontMatterRe.ReplaceAllString(text, "")
	return extraBlankRe.ReplaceAllString(text, "\n\n"), nil
}
