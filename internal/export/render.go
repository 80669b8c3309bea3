// Package export converts notes into downloadable documents.
package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	mdparser "github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/noteflow/internal/apperr"
	"github.com/starford/noteflow/internal/models"
	"github.com/starford/noteflow/internal/parser"
)

// Format is an export target.
type Format string

const (
	Markdown Format = "md"
	Text     Format = "txt"
	HTML     Format = "html"
	DOCX     Format = "docx"
	PDF      Format = "pdf"
)

// Formats lists every supported format.
var Formats = []Format{Markdown, Text, HTML, DOCX, PDF}

// ParseFormat resolves a format name. An empty name means markdown.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return Markdown, nil
	}
	s = strings.ToLower(strings.TrimPrefix(s, "."))
	if s == "markdown" {
		return Markdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown export format %q", apperr.ErrInvalidPayload, s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case Text:
		return "text/plain; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case DOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case PDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Render converts note to f.
func Render(note models.Note, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return MarkdownBytes(note)
	case Text:
		return []byte(PlainText(note)), nil
	case HTML:
		return HTMLBytes(note), nil
	case DOCX:
		return DOCXBytes(note)
	case PDF:
		return PDFBytes(note), nil
	}
	return nil, fmt.Errorf("%w: unknown export format %q", apperr.ErrInvalidPayload, f)
}

// MarkdownBytes returns the note as markdown with a frontmatter header, in
// the form the import inbox reads back.
func MarkdownBytes(note models.Note) ([]byte, error) {
	return parser.Format(note)
}

func parse(content string) ast.Node {
	p := mdparser.NewWithExtensions(mdparser.CommonExtensions | mdparser.AutoHeadingIDs | mdparser.NoEmptyLineBeforeBlock)
	return p.Parse([]byte(content))
}

// PlainText strips markdown syntax, keeping one line per block.
func PlainText(note models.Note) string {
	var b strings.Builder
	if note.Title != "" {
		b.WriteString(note.Title)
		b.WriteString("\n\n")
	}
	b.WriteString(plainText(note.Content))
	return b.String()
}

func plainText(content string) string {
	var b strings.Builder
	ast.WalkFunc(parse(content), func(node ast.Node, entering bool) ast.WalkStatus {
		switch n := node.(type) {
		case *ast.Text:
			if entering {
				b.Write(n.Literal)
			}
		case *ast.Code:
			if entering {
				b.Write(n.Literal)
			}
		case *ast.CodeBlock:
			if entering {
				b.Write(n.Literal)
				if !bytes.HasSuffix(n.Literal, []byte("\n")) {
					b.WriteByte('\n')
				}
			}
		case *ast.Softbreak, *ast.Hardbreak:
			if entering {
				b.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading:
			if !entering {
				b.WriteByte('\n')
			}
		case *ast.ListItem:
			if entering {
				b.WriteString("- ")
			} else if !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		}
		return ast.GoToNext
	})
	return strings.TrimRight(b.String(), "\n") + "\n"
}

var htmlPolicy = bluemonday.UGCPolicy()

// HTMLBytes renders the note to a standalone, sanitized HTML page.
func HTMLBytes(note models.Note) []byte {
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank})
	body := htmlPolicy.SanitizeBytes(markdown.Render(parse(note.Content), renderer))

	title := html.EscapeString(note.Title)
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n</head>\n<body>\n", title)
	if title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>\n", title)
	}
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}
