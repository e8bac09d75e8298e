package relink

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/texrelink/internal/apperr"
)

var extensionRe = regexp.MustCompile(`^\.?[A-Za-z0-9_+-]+$`)

// ExtensionSet is a set of case-folded extensions without the leading dot.
type ExtensionSet map[string]struct{}

// ParseExtensions validates and normalises an extension list. One leading
// dot per element is tolerated. An empty list is valid and matches nothing.
func ParseExtensions(exts []string) (ExtensionSet, error) {
	err := validation.Validate(exts,
		validation.Each(validation.Required, validation.Match(extensionRe)),
	)
	if err != nil {
		return nil, fmt.Errorf("relink: extensions %q: %v: %w", exts, err, apperr.ErrInvalidInput)
	}
	set := make(ExtensionSet, len(exts))
	for _, e := range exts {
		set[fold(strings.TrimPrefix(e, "."))] = struct{}{}
	}
	return set, nil
}

// Allows reports whether filename carries an extension in the set.
func (s ExtensionSet) Allows(filename string) bool {
	ext := filepath.Ext(filename)
	if ext == "" || ext == filename {
		return false
	}
	_, ok := s[fold(ext[1:])]
	return ok
}

// List returns the extensions in sorted order.
func (s ExtensionSet) List() []string {
	out := make([]string, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// fold returns the lower-case form of s used for filename keys. It is a
// plain case mapping, so "straße" and "strasse" stay distinct. A Caser is
// stateful, so each call gets its own.
func fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

// stripExt removes the final extension the way a leading-dot aware splitter
// does: ".png" and "..png" keep their name, "a.b.png" becomes "a.b".
func stripExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || strings.Trim(name[:i], ".") == "" {
		return name
	}
	return name[:i]
}

// baseName extracts the final path element accepting both separator styles.
func baseName(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}
