package relink

import (
	"github.com/starford/texrelink/internal/storage"
)

// Match kinds reported on rewrites.
const (
	MatchExact = "exact"
	MatchStem  = "stem"
)

type entry struct {
	key  string // folded filename
	stem string // folded filename without extension
	path string // absolute path
}

// SearchIndex maps folded filenames to absolute paths. It is built once per
// relink pass and never mutated afterwards. When two files share a name the
// first one discovered is kept.
type SearchIndex struct {
	byName  map[string]int
	entries []entry // discovery order
}

// BuildIndex walks tree and registers every file whose extension is in exts.
func BuildIndex(tree storage.Tree, exts ExtensionSet) (*SearchIndex, error) {
	ix := &SearchIndex{byName: make(map[string]int)}
	if len(exts) == 0 {
		return ix, nil
	}
	err := tree.Walk(func(_, abs string) error {
		name := baseName(abs)
		if !exts.Allows(name) {
			return nil
		}
		key := fold(name)
		if _, dup := ix.byName[key]; dup {
			return nil
		}
		ix.byName[key] = len(ix.entries)
		ix.entries = append(ix.entries, entry{key: key, stem: stripExt(key), path: abs})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ix, nil
}

// Len returns the number of indexed filenames.
func (ix *SearchIndex) Len() int {
	return len(ix.entries)
}

// Lookup returns the path registered for filename, compared caselessly.
func (ix *SearchIndex) Lookup(filename string) (string, bool) {
	i, ok := ix.byName[fold(filename)]
	if !ok {
		return "", false
	}
	return ix.entries[i].path, true
}

// LookupStem scans entries in discovery order for the first one whose
// extension-stripped name equals the extension-stripped filename.
func (ix *SearchIndex) LookupStem(filename string) (string, bool) {
	stem := stripExt(fold(filename))
	for _, e := range ix.entries {
		if e.stem == stem {
			return e.path, true
		}
	}
	return "", false
}

// Match tries an exact lookup, then the stem scan when fallback is set.
// It returns the matched path and the kind of match.
func (ix *SearchIndex) Match(filename string, fallback bool) (string, string, bool) {
	if p, ok := ix.Lookup(filename); ok {
		return p, MatchExact, true
	}
	if !fallback {
		return "", "", false
	}
	if p, ok := ix.LookupStem(filename); ok {
		return p, MatchStem, true
	}
	return "", "", false
}
