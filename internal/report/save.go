package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/researchcrew-cli/internal/logging"
	"github.com/KaramelBytes/researchcrew-cli/internal/utils"
)

// TimestampLayout is the suffix format of saved report files.
const TimestampLayout = "20060102-150405"

// SaveResult lists what Save wrote. HTMLPath is empty when rendering failed.
type SaveResult struct {
	MarkdownPath string
	HTMLPath     string
	Document     *Document
}

// SanitizeTopic makes a topic usable as a file name prefix.
func SanitizeTopic(topic string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(strings.TrimSpace(topic))
}

// Save preprocesses text, writes <topic>_<ts>.md into dir, then renders and
// writes <topic>_<ts>.html next to it. The markdown is kept when rendering
// fails; the render error is returned alongside the partial result.
func Save(text, topic, dir string, now time.Time) (*SaveResult, error) {
	log := logging.GetLogger("report")
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	md := PreprocessMarkdown(text)
	base := SanitizeTopic(topic) + "_" + now.Format(TimestampLayout)

	res := &SaveResult{MarkdownPath: filepath.Join(dir, base+".md")}
	if err := utils.SafeWriteFile(res.MarkdownPath, []byte(md)); err != nil {
		return nil, fmt.Errorf("write markdown: %w", err)
	}
	log.Info().Str("path", res.MarkdownPath).Msg("markdown report saved")

	htmlPath := filepath.Join(dir, base+".html")
	doc, err := RenderFile(md, topic, now, htmlPath)
	res.Document = doc
	if err != nil {
		log.Error().Err(err).Str("path", htmlPath).Msg("html render failed")
		return res, err
	}
	res.HTMLPath = htmlPath
	log.Info().Str("path", htmlPath).Int("sections", len(doc.Sections)).Int("charts", len(doc.Charts())).Msg("html report saved")
	return res, nil
}

// RenderFile parses preprocessed markdown and writes the HTML report to path.
func RenderFile(md, topic string, generated time.Time, path string) (*Document, error) {
	doc := ParseSections(md)
	if strings.TrimSpace(topic) == "" {
		topic = doc.Topic
	}
	var buf bytes.Buffer
	err := Render(&buf, RenderData{
		Title:       "Research Report: " + topic,
		GeneratedOn: generated.Format("2006-01-02 15:04:05"),
		Document:    doc,
	})
	if err != nil {
		return doc, fmt.Errorf("render html: %w", err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return doc, fmt.Errorf("write html: %w", err)
	}
	return doc, nil
}
