package export

import "strings"

var forbidden = strings.NewReplacer(
	"<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "",
)

// Sanitize makes name safe as a file name: the characters <>:"/\|?* are
// removed (not replaced), whitespace runs collapse to one space and the
// edges are trimmed.
func Sanitize(name string) string {
	return strings.Join(strings.Fields(forbidden.Replace(name)), " ")
}

// Filename returns the download name for a note title in format f.
func Filename(title string, f Format) string {
	base := Sanitize(title)
	if base == "" {
		base = "untitled"
	}
	return base + "." + f.Ext()
}
