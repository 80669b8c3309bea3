package models

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var colorRe = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// Validate checks the tag has a name and a 6-hex-digit color.
func (t Tag) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&t.Color, validation.Required, validation.Match(colorRe)),
	)
}

// Validate checks the fields every stored note must carry.
func (n Note) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.ID, validation.Required),
		validation.Field(&n.UserID, validation.Required),
		validation.Field(&n.Tags),
	)
}

// Validate checks every tag in the patch.
func (p NotePatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Tags),
	)
}

// Validate checks the sort mode is known.
func (o SortOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Mode, validation.Required, validation.In(SortByDate, SortByTitle, SortByTags)),
	)
}
