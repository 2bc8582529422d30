package storage

import (
	"fmt"
	"strings"
)

// Ident is a table identifier that is safe to interpolate into the
// identifier position of a statement. It is validated once at
// configuration time; queries never re-check it.
type Ident string

// NewIdent derives a safe identifier from caller input. Characters
// outside [A-Za-z0-9_] are dropped and a leading digit gets an underscore
// prefix. Input with no usable characters is rejected.
func NewIdent(raw string) (Ident, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_':
			b.WriteRune(r)
		}
	}

	s := b.String()
	if s == "" {
		return "", fmt.Errorf("table name %q has no identifier characters", raw)
	}
	if s[0] >= '0' && s[0] <= '9' {
		s = "_" + s
	}
	return Ident(s), nil
}

func (i Ident) String() string { return string(i) }
