// Package relinkservice coordinates the asset store and the relinker.
package relinkservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/texrelink/internal/apperr"
	"github.com/starford/texrelink/internal/assets"
	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/relink"
)

// Event kinds passed to EventCallback.
const (
	EventRelinked  = "relinked"
	EventCompleted = "completed"
)

// EventCallback is called after a relink pass: once per rewrite with
// EventRelinked and the rewrite, then once with EventCompleted and the report.
type EventCallback func(kind string, payload any)

// Defaults are the library settings used when a request leaves them empty.
type Defaults struct {
	Root           string
	Extensions     []string
	BaseDir        string
	RelativePrefix string
	StemFallback   bool
}

// Request overrides Defaults for a single pass. Nil pointers and empty
// values fall back to the defaults.
type Request struct {
	Root         string   `json:"root,omitempty"`
	Extensions   []string `json:"extensions,omitempty"`
	BaseDir      string   `json:"base_dir,omitempty"`
	StemFallback *bool    `json:"stem_fallback,omitempty"`
	DryRun       bool     `json:"dry_run,omitempty"`
}

// Result is a report plus the id of the persisted run (empty for dry runs).
type Result struct {
	RunID string `json:"run_id,omitempty"`
	*models.RelinkReport
}

// Service coordinates store and relink operations.
type Service struct {
	store    assets.Store
	defaults Defaults
	logger   *slog.Logger

	// mu serialises passes so two rewrites of the same references never interleave.
	mu sync.Mutex
	cb EventCallback
}

// NewService creates a new relink service.
func NewService(store assets.Store, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, defaults: defaults, logger: logger}
}

// OnEvent registers the event callback.
func (s *Service) OnEvent(cb EventCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

// Defaults returns the configured defaults.
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// RegisterAsset stores a reference, replacing one with the same name.
func (s *Service) RegisterAsset(_ context.Context, a models.AssetReference) (*models.AssetReference, error) {
	return s.store.UpsertAsset(a)
}

// GetAsset returns a reference by name.
func (s *Service) GetAsset(_ context.Context, name string) (*models.AssetReference, error) {
	return s.store.GetAsset(name)
}

// DeleteAsset removes a reference by name.
func (s *Service) DeleteAsset(_ context.Context, name string) error {
	return s.store.DeleteAsset(name)
}

// ListAssets returns every stored reference.
func (s *Service) ListAssets(_ context.Context) ([]models.AssetReference, error) {
	list, err := s.store.ListAssets()
	return nonNilSlice(list), err
}

// ListMissing returns the stored references whose path does not resolve.
func (s *Service) ListMissing(_ context.Context) ([]models.AssetReference, error) {
	list, err := s.store.ListAssets()
	if err != nil {
		return nil, err
	}
	refs := pointers(list)
	missing := relink.Missing(refs, s.options(Request{}))
	out := make([]models.AssetReference, len(missing))
	for i, r := range missing {
		out[i] = *r
	}
	return out, nil
}

// Relink runs one pass over all stored references and persists the rewrites
// together with a run record. Invalid input wraps apperr.ErrInvalidInput.
func (s *Service) Relink(_ context.Context, req Request) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := req.Root
	if root == "" {
		root = s.defaults.Root
	}
	exts := req.Extensions
	if exts == nil {
		exts = s.defaults.Extensions
	}

	list, err := s.store.ListAssets()
	if err != nil {
		return nil, err
	}
	refs := pointers(list)

	report, err := relink.Relink(root, exts, refs, s.options(req))
	if err != nil {
		return nil, err
	}

	res := &Result{RelinkReport: report}
	if req.DryRun {
		return res, nil
	}

	run := models.RelinkRun{
		ID:        uuid.NewString(),
		Root:      root,
		Examined:  report.Examined,
		Relinked:  report.Relinked,
		Missing:   report.Missing,
		CreatedAt: time.Now().UTC(),
	}
	applied, err := s.store.ApplyRewrites(run, report.Rewrites)
	if err != nil {
		return nil, fmt.Errorf("relinkservice: persist run: %w", err)
	}
	if skipped := len(report.Rewrites) - len(applied); skipped > 0 {
		s.logger.Warn("skipped rewrites of references changed during the pass", slog.Int("skipped", skipped))
		report.Examined -= skipped
		report.Relinked -= skipped
		report.Rewrites = applied
	}
	res.RunID = run.ID

	s.logger.Info("relink pass finished",
		slog.String("run_id", run.ID),
		slog.String("root", root),
		slog.Int("examined", report.Examined),
		slog.Int("relinked", report.Relinked),
		slog.Int("missing", report.Missing))

	if s.cb != nil {
		for _, rw := range report.Rewrites {
			s.cb(EventRelinked, rw)
		}
		s.cb(EventCompleted, res)
	}
	return res, nil
}

// Runs returns recent relink runs.
func (s *Service) Runs(_ context.Context, limit int) ([]models.RelinkRun, error) {
	runs, err := s.store.ListRuns(limit)
	return nonNilSlice(runs), err
}

// RunRewrites returns the rewrites of one run.
func (s *Service) RunRewrites(_ context.Context, runID string) ([]models.Rewrite, error) {
	if runID == "" {
		return nil, fmt.Errorf("relinkservice: run id is required: %w", apperr.ErrInvalidInput)
	}
	rws, err := s.store.RunRewrites(runID)
	return nonNilSlice(rws), err
}

func (s *Service) options(req Request) relink.Options {
	opts := relink.Options{
		BaseDir:        s.defaults.BaseDir,
		RelativePrefix: s.defaults.RelativePrefix,
		StemFallback:   s.defaults.StemFallback,
		Logger:         s.logger,
	}
	if req.BaseDir != "" {
		opts.BaseDir = req.BaseDir
	}
	if req.StemFallback != nil {
		opts.StemFallback = *req.StemFallback
	}
	return opts
}

func pointers(list []models.AssetReference) []*models.AssetReference {
	out := make([]*models.AssetReference, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
