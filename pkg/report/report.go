// Package report writes the grounded vs ungrounded comparison table.
package report

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// DefaultOutput is where the comparison table goes when no path is given.
const DefaultOutput = "comparison_noRAG_vs_RAG.md"

// Row is one compared question.
type Row struct {
	ID       string
	Question string
	NoRAG    string
	RAG      string
}

// Table renders rows as a Markdown table. Answers are flattened to a single
// line and pipes are escaped so every row stays one table row.
func Table(rows []Row) string {
	var b strings.Builder
	b.WriteString("| Question | no-RAG | RAG |\n")
	b.WriteString("|----------|--------|-----|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(r.ID), cell(r.NoRAG), cell(r.RAG))
	}
	return b.String()
}

// Questions renders the question text for each row ID as a Markdown list,
// so the table can stay narrow.
func Questions(rows []Row) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "- **%s**: %s\n", r.ID, cell(r.Question))
	}
	return b.String()
}

// Document is the full report: the question list followed by the table.
func Document(rows []Row) string {
	return "# no-RAG vs RAG\n\n" + Questions(rows) + "\n" + Table(rows)
}

// WriteMarkdown writes Document(rows) to path.
func WriteMarkdown(path string, rows []Row) error {
	if err := os.WriteFile(path, []byte(Document(rows)), 0o644); err != nil {
		return ragerr.Wrap(err, ragerr.CodeReportWriteFailure, "writing comparison report", ragerr.FieldPath(path))
	}
	return nil
}

// RenderHTML converts Markdown, including GFM tables, to an HTML fragment.
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	var out bytes.Buffer
	if err := md.Convert([]byte(markdown), &out); err != nil {
		return "", ragerr.Wrap(err, ragerr.CodeReportWriteFailure, "rendering report html")
	}
	return out.String(), nil
}

// WriteHTML renders rows to a standalone HTML page at path.
func WriteHTML(path string, rows []Row) error {
	body, err := RenderHTML(Document(rows))
	if err != nil {
		return err
	}
	page := "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>no-RAG vs RAG</title></head>\n<body>\n" +
		body + "</body>\n</html>\n"
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return ragerr.Wrap(err, ragerr.CodeReportWriteFailure, "writing html report", ragerr.FieldPath(path))
	}
	return nil
}

// ReadQuestions reads one question per line. Blank lines and lines starting
// with # are skipped.
func ReadQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeCLIInputInvalid, "opening questions file", ragerr.FieldPath(path))
	}
	defer f.Close()

	var questions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := sc.Err(); err != nil {
		return nil, ragerr.Wrap(err, ragerr.CodeCLIInputInvalid, "reading questions file", ragerr.FieldPath(path))
	}
	return questions, nil
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.TrimSpace(s)
}
