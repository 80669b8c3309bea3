package parser

import (
	"testing"
	"time"

	"github.com/starford/noteflow/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - name: work\n    color: ff0000\n---\n# Hello\nBody text.\n")
	d, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Title != "Hello" {
		t.Errorf("title = %q, want %q", d.Title, "Hello")
	}
	if len(d.Tags) != 2 || d.Tags[0] != (models.Tag{Name: "go"}) || d.Tags[1] != (models.Tag{Name: "work", Color: "ff0000"}) {
		t.Errorf("tags = %v", d.Tags)
	}
	if d.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", d.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	d, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Title, "Just a heading")
	}
	if !d.Date.IsZero() {
		t.Errorf("date = %v, want zero", d.Date)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := "---\n: invalid: yaml: {{{\n---\nBody\n"
	d, err := Parse([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Body != input {
		t.Errorf("invalid frontmatter should stay in the body, got %q", d.Body)
	}
}

func TestParse_InlineTagsDeduplicated(t *testing.T) {
	d, err := Parse([]byte("---\ntags: [Go]\n---\nLearning #go and #rust today. #rust\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Tags) != 2 || d.Tags[0].Name != "Go" || d.Tags[1].Name != "rust" {
		t.Errorf("tags = %v, want [Go rust]", d.Tags)
	}
}

func TestParse_TitleFromLaterHeading(t *testing.T) {
	d, _ := Parse([]byte("intro\n\n# Real Title\n"))
	if d.Title != "Real Title" {
		t.Errorf("title = %q", d.Title)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	note := models.Note{
		Title:   "Trip: plan",
		Date:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Content: "Pack bags.",
		Tags:    []models.Tag{{Name: "travel", Color: "00aaff"}},
	}
	data, err := Format(note)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	d, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Title != note.Title {
		t.Errorf("title = %q", d.Title)
	}
	if !d.Date.Equal(note.Date) {
		t.Errorf("date = %v", d.Date)
	}
	if len(d.Tags) != 1 || d.Tags[0] != note.Tags[0] {
		t.Errorf("tags = %v", d.Tags)
	}
	if d.Body != "Pack bags.\n" {
		t.Errorf("body = %q", d.Body)
	}
}
