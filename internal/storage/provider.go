// Package storage defines the read-only texture library abstraction.
package storage

// Tree is the interface for read-only library traversal.
type Tree interface {
	// Root returns the absolute library root.
	Root() string
	// Walk calls fn for every regular file under the root in lexical order.
	// rel is relative to the root, abs is the absolute path.
	Walk(fn func(rel, abs string) error) error
	// Exists reports whether path names an existing regular file.
	Exists(path string) bool
}
