package parser

import (
	"bytes"
	"strings"
)

type txtParser struct{}

func (txtParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}

func (txtParser) Parse(content []byte) (string, error) {
	return normalizeText(content), nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeText drops a UTF-8 BOM and converts CRLF/CR line endings to LF.
func normalizeText(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
