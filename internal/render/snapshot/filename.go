package snapshot

import (
	"regexp"
	"strings"
)

const (
	maxFilenameStem = 80
	defaultStem     = "page"
)

var filenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// SanitizeFilename turns a page title into an ASCII filename ending in ".pdf".
// The stem is at most 80 characters and is "page" when nothing usable remains.
func SanitizeFilename(title string) string {
	// Fields splits on Unicode whitespace, so NBSP and ideographic spaces separate words too
	stem := strings.Join(strings.Fields(title), " ")
	stem = filenameUnsafe.ReplaceAllString(stem, "")
	if stem == "" {
		stem = defaultStem
	}

	stem = strings.ReplaceAll(stem, " ", "_")
	if len(stem) > maxFilenameStem {
		stem = stem[:maxFilenameStem]
	}

	return stem + ".pdf"
}
