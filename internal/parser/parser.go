// Package parser turns --context files into plain text for the research
// prompt.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// ErrUnsupported is returned for binary formats such as PDF or images.
var ErrUnsupported = errors.New("unsupported document format")

// Parser converts one file format to text.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte) (string, error)
}

var parsers = []Parser{txtParser{}, markdownParser{}, htmlParser{}}

// Register adds p ahead of the built-in parsers.
func Register(p Parser) {
	parsers = append([]Parser{p}, parsers...)
}

var binaryExts = []string{".pdf", ".docx", ".doc", ".xlsx", ".xls", ".png", ".jpg", ".jpeg", ".gif", ".zip"}

// ParseFile reads path and converts it with the first parser that accepts
// the name. Unknown extensions are treated as plain text.
func ParseFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if lo.Contains(binaryExts, ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read context file: %w", err)
	}
	p, ok := lo.Find(parsers, func(p Parser) bool { return p.CanParse(path) })
	if !ok {
		p = txtParser{}
	}
	return p.Parse(data)
}
