package report

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	reportTitleRe = regexp.MustCompile(`(?i)(?:#\s*|^\*\*|^)Research Report:?\s*([^\n*#]+)`)
	generatedOnRe = regexp.MustCompile(`\*Generated on:?\s*([^*\n]+)\*`)

	titleLineRe = regexp.MustCompile(`(?i)^(?:#\s*|\*\*)?Research Report:?`)
	dateLineRe  = regexp.MustCompile(`^\*Generated on:?\s*[^*\n]+\*\s*$`)

	// Pseudo-headers an LLM emits instead of "## Title". The bold forms may
	// carry trailing text on the same line.
	boldNumberedHeaderRe = regexp.MustCompile(`^\*\*\d+\.\s+([^*:]+):\*\*\s*(.*)$`)
	numberedBoldHeaderRe = regexp.MustCompile(`^\d+\.\s+\*\*([^*:]+):\*\*\s*(.*)$`)
	boldHeaderRe         = regexp.MustCompile(`^\*\*([^*:]+):\*\*\s*(.*)$`)
	numberedHeaderRe     = regexp.MustCompile(`^\d+\.\s+([^:\n]+):\s*$`)

	boldBulletRe    = regexp.MustCompile(`^[-•]\s+\*\*([^*:]+):?\*\*:?\s*(.*)$`)
	numberedStartRe = regexp.MustCompile(`^\d+\.`)

	referencesHeaderRe = regexp.MustCompile(`(?i)^(?:##\s*[^#\n]*\breferences\b[^\n]*|\*\*[^*\n]*\breferences\b[^*\n]*\*\*\s*:?)\s*$`)
	numberedItemRe     = regexp.MustCompile(`^\d+\.\s*(.*)$`)
	bulletItemRe       = regexp.MustCompile(`^[-*•]\s+(.*)$`)
	authorYearRe       = regexp.MustCompile(`^([^(]+)\(([^)]+)\)`)
)

// PreprocessMarkdown normalizes LLM-generated markdown so ParseSections sees
// "## Section" and "### Subsection" headers:
//
//   - pseudo-headers ("**1. Title:**", "1. **Title:**", "**Title:**",
//     "1. Title:") become "## Title";
//   - "- **Title:** text" bullets become "### Title" subsections;
//   - reference lists become one "### Author (Year)" entry per reference;
//   - the "# Research Report: <title>" and "*Generated on: <date>*" lines are
//     moved to the top.
//
// Running it on its own output changes nothing but blank lines. Text with
// no recognisable structure is returned as is, apart from line endings.
func PreprocessMarkdown(md string) string {
	md = normalizeNewlines(md)

	title := ""
	if m := reportTitleRe.FindStringSubmatch(md); m != nil {
		title = strings.TrimSpace(m[1])
	}
	date := ""
	if m := generatedOnRe.FindStringSubmatch(md); m != nil {
		date = strings.TrimSpace(m[1])
	}

	orig := strings.Split(md, "\n")
	lines := orig
	if title != "" {
		lines = dropHeaderLines(lines)
	}
	lines = convertPseudoHeaders(lines)
	lines = convertBoldBullets(lines)
	lines = formatReferences(lines)

	if title == "" {
		if slices.Equal(lines, orig) {
			// nothing recognised; leave the text alone
			return md
		}
		return collapseBlankLines(strings.Join(lines, "\n"))
	}
	body := collapseBlankLines(strings.Join(lines, "\n"))
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Research Report: %s\n\n", title)
	if date != "" {
		fmt.Fprintf(&sb, "*Generated on: %s*\n\n", date)
	}
	sb.WriteString(body)
	return collapseBlankLines(sb.String())
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// collapseBlankLines trims trailing spaces, squeezes runs of blank lines to
// one and ends the text with a single newline.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if l == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, l)
	}
	res := strings.TrimRight(strings.Join(out, "\n"), "\n")
	if res == "" {
		return ""
	}
	return res + "\n"
}

func dropHeaderLines(lines []string) []string {
	out := lines[:0:0]
	seenContent := false
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if dateLineRe.MatchString(t) {
			continue
		}
		// Title lines only count before the body starts or as a # header.
		if titleLineRe.MatchString(t) && (!seenContent || strings.HasPrefix(t, "#")) {
			continue
		}
		if t != "" {
			seenContent = true
		}
		out = append(out, l)
	}
	return out
}

func pseudoHeader(line string) (title, rest string, ok bool) {
	t := strings.TrimSpace(line)
	for _, re := range []*regexp.Regexp{boldNumberedHeaderRe, numberedBoldHeaderRe, boldHeaderRe} {
		if m := re.FindStringSubmatch(t); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	if m := numberedHeaderRe.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1]), "", true
	}
	return "", "", false
}

func convertPseudoHeaders(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		title, rest, ok := pseudoHeader(l)
		if !ok {
			out = append(out, l)
			continue
		}
		out = append(out, "", "## "+title, "")
		if rest != "" {
			out = append(out, rest, "")
		}
	}
	return out
}

// endsBulletBody reports whether a line terminates the body of a bold bullet.
func endsBulletBody(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" ||
		strings.HasPrefix(t, "-") ||
		strings.HasPrefix(t, "•") ||
		strings.HasPrefix(t, "**") ||
		strings.HasPrefix(t, "#") ||
		numberedStartRe.MatchString(t)
}

func convertBoldBullets(lines []string) []string {
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		m := boldBulletRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			out = append(out, lines[i])
			continue
		}
		body := []string{}
		if first := strings.TrimSpace(m[2]); first != "" {
			body = append(body, first)
		}
		for i+1 < len(lines) && !endsBulletBody(lines[i+1]) {
			i++
			body = append(body, strings.TrimSpace(lines[i]))
		}
		out = append(out, "", "### "+strings.TrimSpace(m[1]), "")
		if len(body) > 0 {
			out = append(out, strings.Join(body, "\n"), "")
		}
	}
	return out
}

// formatReferences rewrites the references section into "### heading"
// entries unless it already has them.
func formatReferences(lines []string) []string {
	start, end := referencesBounds(lines)
	if start < 0 {
		return lines
	}
	body := lines[start+1 : end]

	out := make([]string, 0, len(lines)+8)
	out = append(out, lines[:start]...)
	out = append(out, "", "## References", "")
	if hasSubsections(body) {
		out = append(out, body...)
	} else {
		preamble, refs := splitReferences(body)
		if preamble != "" {
			out = append(out, preamble, "")
		}
		for _, ref := range refs {
			out = append(out, "### "+referenceHeading(ref), "", ref, "")
		}
	}
	out = append(out, lines[end:]...)
	return out
}

// isReferencesHeader accepts "## References", "**References:**" and any
// section header whose title mentions references, such as
// "## Sources and References".
func isReferencesHeader(line string) bool {
	t := strings.TrimSpace(line)
	if title, ok := sectionTitle(t); ok {
		return classifySection(title) == SectionReferences
	}
	return referencesHeaderRe.MatchString(t)
}

// referencesBounds returns the header index of the first references section
// and the index of the next "## " header, or -1 when there is none.
func referencesBounds(lines []string) (start, end int) {
	start = slices.IndexFunc(lines, isReferencesHeader)
	if start < 0 {
		return -1, -1
	}
	end = len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "## ") {
			end = i
			break
		}
	}
	return start, end
}

func hasSubsections(lines []string) bool {
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "### ") {
			return true
		}
	}
	return false
}

// splitReferences breaks a reference list into entries: numbered items,
// else bullet items, else blank-line separated paragraphs. Text ahead of
// the first list item is returned as preamble.
func splitReferences(lines []string) (string, []string) {
	for _, re := range []*regexp.Regexp{numberedItemRe, bulletItemRe} {
		if preamble, items := splitList(lines, re); len(items) > 0 {
			return preamble, items
		}
	}
	var refs []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			refs = append(refs, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return "", refs
}

func splitList(lines []string, itemRe *regexp.Regexp) (string, []string) {
	var preamble []string
	var items []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			if s := strings.TrimSpace(strings.Join(cur, "\n")); s != "" {
				items = append(items, s)
			}
			cur = nil
		}
	}
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if m := itemRe.FindStringSubmatch(t); m != nil {
			flush()
			cur = []string{strings.TrimSpace(m[1])}
			continue
		}
		if t == "" {
			continue
		}
		if cur == nil {
			preamble = append(preamble, t)
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return strings.Join(preamble, "\n"), items
}

// referenceHeading picks "Author (Year)" when the entry leads with it, the
// first sentence when that is short, and "Reference" otherwise.
func referenceHeading(ref string) string {
	first := strings.SplitN(ref, "\n", 2)[0]
	if m := authorYearRe.FindStringSubmatch(first); m != nil {
		return strings.TrimSpace(m[1]) + " (" + strings.TrimSpace(m[2]) + ")"
	}
	if head, _, ok := strings.Cut(first, "."); ok {
		if h := strings.TrimSpace(head); h != "" && len(h) < 50 {
			return h
		}
	}
	return "Reference"
}
