// Package relink resolves broken file references by matching filenames
// against an index of a library directory tree.
package relink

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/storage"
)

// Options tunes a relink pass. The zero value disables the stem fallback
// and produces absolute paths.
type Options struct {
	// BaseDir resolves relative reference paths and, when set, rewritten
	// paths are expressed relative to it.
	BaseDir string
	// RelativePrefix marks a path as relative to BaseDir (e.g. "//").
	RelativePrefix string
	// StemFallback enables matching by filename without extension when the
	// exact filename lookup misses.
	StemFallback bool
	// Exists reports whether a resolved reference path exists. Defaults to
	// storage.FileExists.
	Exists func(path string) bool
	Logger *slog.Logger
}

// Relink validates its inputs, indexes root and rewrites the paths of the
// candidate references that can be matched. Invalid root or extensions
// yield an apperr.ErrInvalidInput error and no report.
func Relink(root string, extensions []string, refs []*models.AssetReference, opts Options) (*models.RelinkReport, error) {
	exts, err := ParseExtensions(extensions)
	if err != nil {
		return nil, err
	}
	tree, err := storage.NewFS(root)
	if err != nil {
		return nil, err
	}
	return RelinkTree(tree, exts, refs, opts)
}

// RelinkTree runs a pass over an already validated tree.
func RelinkTree(tree storage.Tree, exts ExtensionSet, refs []*models.AssetReference, opts Options) (*models.RelinkReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := newResolver(opts)

	report := &models.RelinkReport{
		Total:        len(refs),
		Rewrites:     []models.Rewrite{},
		StillMissing: []string{},
	}

	candidates := make([]*models.AssetReference, 0, len(refs))
	for _, ref := range refs {
		if r.isCandidate(ref) {
			candidates = append(candidates, ref)
		}
	}
	report.Examined = len(candidates)
	if len(candidates) == 0 {
		return report, nil
	}

	ix, err := BuildIndex(tree, exts)
	if err != nil {
		return nil, err
	}
	logger.Debug("relink: index built",
		slog.String("root", tree.Root()),
		slog.Int("files", ix.Len()),
		slog.Int("candidates", len(candidates)))

	for _, ref := range candidates {
		filename := baseName(r.trimPrefix(ref.Path))
		match, kind, ok := ix.Match(filename, opts.StemFallback)
		if !ok {
			report.Missing++
			report.StillMissing = append(report.StillMissing, displayName(ref))
			logger.Debug("relink: no match", slog.String("asset", displayName(ref)), slog.String("path", ref.Path))
			continue
		}
		newPath := r.express(match)
		report.Rewrites = append(report.Rewrites, models.Rewrite{
			AssetID: ref.ID,
			Name:    ref.Name,
			OldPath: ref.Path,
			NewPath: newPath,
			Match:   kind,
		})
		logger.Debug("relink: relinked",
			slog.String("asset", displayName(ref)),
			slog.String("from", ref.Path),
			slog.String("to", newPath),
			slog.String("match", kind))
		ref.Path = newPath
		report.Relinked++
	}
	return report, nil
}

// Missing returns the references a pass with opts would consider candidates,
// without touching them.
func Missing(refs []*models.AssetReference, opts Options) []*models.AssetReference {
	r := newResolver(opts)
	var out []*models.AssetReference
	for _, ref := range refs {
		if r.isCandidate(ref) {
			out = append(out, ref)
		}
	}
	return out
}

type resolver struct {
	base   string
	prefix string
	exists func(string) bool
}

func newResolver(opts Options) *resolver {
	r := &resolver{prefix: opts.RelativePrefix, exists: opts.Exists}
	if r.exists == nil {
		r.exists = storage.FileExists
	}
	if opts.BaseDir != "" {
		if abs, err := filepath.Abs(opts.BaseDir); err == nil {
			r.base = abs
		}
	}
	return r
}

func (r *resolver) isCandidate(ref *models.AssetReference) bool {
	if ref == nil || ref.Embedded || ref.Path == "" {
		return false
	}
	return !r.exists(r.resolve(ref.Path))
}

func (r *resolver) trimPrefix(p string) string {
	if r.prefix != "" {
		return strings.TrimPrefix(p, r.prefix)
	}
	return p
}

// resolve turns a stored reference path into a filesystem path for probing.
func (r *resolver) resolve(p string) string {
	if r.prefix != "" && strings.HasPrefix(p, r.prefix) {
		return filepath.Join(r.base, filepath.FromSlash(strings.TrimPrefix(p, r.prefix)))
	}
	if filepath.IsAbs(p) || r.base == "" {
		return p
	}
	return filepath.Join(r.base, filepath.FromSlash(p))
}

// express returns match relative to the base directory when representable.
func (r *resolver) express(match string) string {
	if r.base == "" {
		return match
	}
	rel, err := filepath.Rel(r.base, match)
	if err != nil {
		return match
	}
	return r.prefix + rel
}

func displayName(ref *models.AssetReference) string {
	if ref.Name != "" {
		return ref.Name
	}
	return ref.Path
}
