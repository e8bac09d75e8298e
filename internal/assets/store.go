package assets

import "github.com/starford/texrelink/internal/models"

// Store defines the asset store operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	UpsertAsset(a models.AssetReference) (*models.AssetReference, error)
	GetAsset(name string) (*models.AssetReference, error)
	ListAssets() ([]models.AssetReference, error)
	DeleteAsset(name string) error
	ApplyRewrites(run models.RelinkRun, rewrites []models.Rewrite) ([]models.Rewrite, error)
	ListRuns(limit int) ([]models.RelinkRun, error)
	RunRewrites(runID string) ([]models.Rewrite, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
