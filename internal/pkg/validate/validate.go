package validate

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxLen reports whether value fits in a varchar(n) column.
func MaxLen(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

// CanonicalUUID parses any accepted UUID spelling and returns the lower-case
// hyphenated form.
func CanonicalUUID(value string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
