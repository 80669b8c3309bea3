// Package models defines the domain types for noteflow.
package models

import (
	"strings"
	"time"
)

// Note is a markdown note owned by a single user.
type Note struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
	Tags    []Tag     `json:"tags"`
	UserID  string    `json:"userId"`

	// Transient flags exist only in the client store while a remote write is
	// in flight. They are never persisted.
	TransientCreating bool `json:"transientCreating,omitempty"`
	TransientDeleting bool `json:"transientDeleting,omitempty"`
}

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	n.Tags = CloneTags(n.Tags)
	return n
}

// HasTag reports whether n carries an embedded tag with the given name.
func (n Note) HasTag(name string) bool {
	for _, t := range n.Tags {
		if SameTagName(t.Name, name) {
			return true
		}
	}
	return false
}

// NotePatch is a partial update of a note. Nil fields are left unchanged.
type NotePatch struct {
	Title   *string    `json:"title,omitempty"`
	Content *string    `json:"content,omitempty"`
	Tags    []Tag      `json:"tags,omitempty"`
	Date    *time.Time `json:"date,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p NotePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.Date == nil
}

// Apply returns a copy of n with the patch applied.
func (p NotePatch) Apply(n Note) Note {
	out := n.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Content != nil {
		out.Content = *p.Content
	}
	if p.Tags != nil {
		out.Tags = CloneTags(p.Tags)
	}
	if p.Date != nil {
		out.Date = *p.Date
	}
	return out
}

// Tag is a name+color label. Names are compared case-insensitively.
type Tag struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NormalizeTagName returns the comparison key for a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SameTagName reports whether a and b name the same tag.
func SameTagName(a, b string) bool {
	return NormalizeTagName(a) == NormalizeTagName(b)
}

// CloneTags copies a tag slice, preserving nil.
func CloneTags(tags []Tag) []Tag {
	if tags == nil {
		return nil
	}
	out := make([]Tag, len(tags))
	copy(out, tags)
	return out
}

// CloneNotes deep-copies a note slice.
func CloneNotes(notes []Note) []Note {
	if notes == nil {
		return nil
	}
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// FindTag returns the tag named name from tags.
func FindTag(tags []Tag, name string) (Tag, bool) {
	for _, t := range tags {
		if SameTagName(t.Name, name) {
			return t, true
		}
	}
	return Tag{}, false
}
