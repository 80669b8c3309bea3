// Package parser reads and writes markdown documents with YAML frontmatter
// carrying a note's title, date and tags.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/noteflow/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Document is a parsed markdown file.
type Document struct {
	Title string
	Date  time.Time
	// Tags from frontmatter first, then inline #tags. Color is empty when the
	// file did not specify one.
	Tags []models.Tag
	Body string
}

type frontmatter struct {
	Title string    `yaml:"title,omitempty"`
	Date  time.Time `yaml:"date,omitempty"`
	Tags  []tagYAML `yaml:"tags,omitempty"`
}

// tagYAML accepts either a bare name or a {name, color} mapping.
type tagYAML models.Tag

func (t *tagYAML) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		t.Name = n.Value
		return nil
	}
	var m struct {
		Name  string `yaml:"name"`
		Color string `yaml:"color"`
	}
	if err := n.Decode(&m); err != nil {
		return err
	}
	t.Name, t.Color = m.Name, m.Color
	return nil
}

func (t tagYAML) MarshalYAML() (interface{}, error) {
	if t.Color == "" {
		return t.Name, nil
	}
	return map[string]string{"name": t.Name, "color": t.Color}, nil
}

// Parse splits frontmatter from body and derives title and tags. Invalid
// frontmatter is treated as part of the body.
func Parse(data []byte) (*Document, error) {
	fm, body := splitFrontmatter(data)

	doc := &Document{Title: fm.Title, Date: fm.Date, Body: body}
	seen := make(map[string]struct{})
	add := func(t models.Tag) {
		t.Name = strings.TrimSpace(t.Name)
		key := models.NormalizeTagName(t.Name)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		doc.Tags = append(doc.Tags, t)
	}
	for _, t := range fm.Tags {
		add(models.Tag(t))
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(models.Tag{Name: m[1]})
	}

	if doc.Title == "" {
		doc.Title = firstHeading(body)
	}
	return doc, nil
}

func splitFrontmatter(data []byte) (frontmatter, string) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return frontmatter{}, string(data)
	}
	return fm, body
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// Format writes note as a markdown document with frontmatter. Parse reads
// the result back to the same title, date and tags.
func Format(note models.Note) ([]byte, error) {
	fm := frontmatter{Title: note.Title, Date: note.Date.UTC()}
	for _, t := range note.Tags {
		fm.Tags = append(fm.Tags, tagYAML(t))
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("parser: marshal frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n")
	b.WriteString(note.Content)
	if !strings.HasSuffix(note.Content, "\n") {
		b.WriteByte('\n')
	}
	return b.Bytes(), nil
}
