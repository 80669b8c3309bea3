// Package tags keeps note-embedded tags consistent with each user's tag
// registry and derives the sorted, filtered note view.
package tags

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/starford/noteflow/internal/models"
)

// Sanitize drops every embedded tag named like deleted. It returns the
// resulting notes and, separately, the notes whose tag set shrank. With a nil
// deleted tag the notes are returned unchanged.
func Sanitize(notes []models.Note, deleted *models.Tag) (out []models.Note, shrunk []models.Note) {
	out = models.CloneNotes(notes)
	if deleted == nil || deleted.Name == "" {
		return out, nil
	}
	for i, n := range out {
		kept := make([]models.Tag, 0, len(n.Tags))
		for _, t := range n.Tags {
			if !models.SameTagName(t.Name, deleted.Name) {
				kept = append(kept, t)
			}
		}
		if len(kept) != len(n.Tags) {
			out[i].Tags = kept
			shrunk = append(shrunk, out[i].Clone())
		}
	}
	return out, shrunk
}

// ColorMatch returns notes whose embedded tags carry the registry color of
// the same-named registry tag. Tags absent from the registry keep their own
// color. It is a pure projection; nothing is written anywhere.
func ColorMatch(notes []models.Note, registry []models.Tag) []models.Note {
	colors := make(map[string]string, len(registry))
	for _, t := range registry {
		colors[models.NormalizeTagName(t.Name)] = t.Color
	}
	out := models.CloneNotes(notes)
	for i := range out {
		for j, t := range out[i].Tags {
			if c, ok := colors[models.NormalizeTagName(t.Name)]; ok && c != t.Color {
				out[i].Tags[j].Color = c
			}
		}
	}
	return out
}

// Arrange applies the view order. Date and title modes sort (stable on
// ties); tags mode keeps upstream order and filters to notes carrying at
// least one selected tag.
func Arrange(notes []models.Note, opts models.SortOptions) []models.Note {
	out := models.CloneNotes(notes)
	if out == nil {
		out = []models.Note{}
	}

	switch opts.Mode {
	case models.SortByDate:
		sort.SliceStable(out, func(i, j int) bool {
			if opts.Descending {
				return out[i].Date.After(out[j].Date)
			}
			return out[i].Date.Before(out[j].Date)
		})
	case models.SortByTitle:
		sort.SliceStable(out, func(i, j int) bool {
			if opts.Descending {
				return out[i].Title > out[j].Title
			}
			return out[i].Title < out[j].Title
		})
	case models.SortByTags:
		selected := make(map[string]struct{}, len(opts.SelectedTags))
		for _, name := range opts.SelectedTags {
			selected[models.NormalizeTagName(name)] = struct{}{}
		}
		filtered := out[:0]
		for _, n := range out {
			for _, t := range n.Tags {
				if _, ok := selected[models.NormalizeTagName(t.Name)]; ok {
					filtered = append(filtered, n)
					break
				}
			}
		}
		out = filtered
	}
	return out
}

// View is the outcome of one reconciliation pass.
type View struct {
	Notes []models.Note
	// Edits are the notes that lost a deleted tag and must be written back.
	Edits []models.Note
}

// Derive computes the displayed notes from raw notes, the registry and the
// one-shot deleted-tag signal.
func Derive(notes []models.Note, registry []models.Tag, deleted *models.Tag, opts models.SortOptions) View {
	sanitized, shrunk := Sanitize(notes, deleted)
	return View{
		Notes: Arrange(ColorMatch(sanitized, registry), opts),
		Edits: shrunk,
	}
}

// Suggested returns registry tags not present in active, ordered by name.
func Suggested(registry, active []models.Tag) []models.Tag {
	out := []models.Tag{}
	for _, t := range registry {
		if _, ok := models.FindTag(active, t.Name); !ok {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ResolveTyped turns a typed name into a tag: the registry tag of the same
// name when one exists, otherwise a new tag with a color from newColor.
func ResolveTyped(name string, registry []models.Tag, newColor func() string) (models.Tag, bool) {
	name = strings.TrimSpace(name)
	if t, ok := models.FindTag(registry, name); ok {
		return t, true
	}
	return models.Tag{Name: name, Color: newColor()}, false
}

// Promotable returns the tags of active that are not yet in the registry.
func Promotable(active, registry []models.Tag) []models.Tag {
	var out []models.Tag
	for _, t := range active {
		if _, ok := models.FindTag(registry, t.Name); !ok {
			out = append(out, t)
		}
	}
	return out
}

// RandomColor returns a random 6-hex-digit color.
func RandomColor() string {
	return fmt.Sprintf("%06x", rand.IntN(1<<24))
}
