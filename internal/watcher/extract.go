package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Source type tags attached to watched files by extension.
const (
	SourceTypeMarkdown = "markdown"
	SourceTypeTextFile = "textfile"
	SourceTypePDF      = "pdf"
)

// Document is the extracted content of a watched file, ready to be sent to
// the ingestion API. Path is absolute and doubles as the source URL.
type Document struct {
	Text       string
	Title      string
	Path       string
	SourceType string
}

// Extract reads a file and produces its text content plus a display title.
// Markdown titles come from the first heading, PDFs go through pdftotext,
// and everything falls back to the file name when no better title exists.
func Extract(ctx context.Context, runner CommandRunner, path string) (*Document, error) {
	var (
		content    string
		title      string
		sourceType string
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		content = string(data)
		title = firstHeading(data)
		sourceType = SourceTypeMarkdown
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		content = string(data)
		sourceType = SourceTypeTextFile
	case ".pdf":
		out, err := runner.Run(ctx, "pdftotext", path, "-")
		if err != nil {
			return nil, fmt.Errorf("pdftotext %s: %w", path, err)
		}
		content = string(out)
		sourceType = SourceTypePDF
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(path))
	}

	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	if title == "" {
		title = filepath.Base(path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return &Document{Text: content, Title: title, Path: abs, SourceType: sourceType}, nil
}

// firstHeading returns the text of the first markdown heading, or "" when
// the document has none.
func firstHeading(source []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var title string
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		title = headingText(n, source)
		return ast.WalkStop, nil
	})
	return strings.TrimSpace(title)
}

func headingText(heading ast.Node, source []byte) string {
	var sb strings.Builder
	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			sb.Write(textNode.Segment.Value(source))
		}
	}
	return sb.String()
}
