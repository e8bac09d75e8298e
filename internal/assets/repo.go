package assets

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/texrelink/internal/apperr"
	"github.com/starford/texrelink/internal/models"
)

// UpsertAsset inserts a reference or replaces the path and embedded flag of
// the one with the same name. It returns the stored row.
func (db *DB) UpsertAsset(a models.AssetReference) (*models.AssetReference, error) {
	if a.Name == "" {
		return nil, fmt.Errorf("assets: name is required: %w", apperr.ErrInvalidInput)
	}
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO assets (name, path, embedded, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			path       = excluded.path,
			embedded   = excluded.embedded,
			updated_at = excluded.updated_at
	`, a.Name, a.Path, a.Embedded, now)
	if err != nil {
		return nil, fmt.Errorf("assets: upsert %s: %w", a.Name, err)
	}
	return db.GetAsset(a.Name)
}

// GetAsset returns the reference with the given name.
func (db *DB) GetAsset(name string) (*models.AssetReference, error) {
	var a models.AssetReference
	err := db.conn.QueryRow(`
		SELECT id, name, path, embedded, updated_at FROM assets WHERE name = ?
	`, name).Scan(&a.ID, &a.Name, &a.Path, &a.Embedded, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assets: %s: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("assets: get %s: %w", name, err)
	}
	return &a, nil
}

// ListAssets returns every reference ordered by name.
func (db *DB) ListAssets() ([]models.AssetReference, error) {
	rows, err := db.conn.Query(`SELECT id, name, path, embedded, updated_at FROM assets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("assets: list: %w", err)
	}
	defer rows.Close()

	var out []models.AssetReference
	for rows.Next() {
		var a models.AssetReference
		if err := rows.Scan(&a.ID, &a.Name, &a.Path, &a.Embedded, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAsset removes a reference by name.
func (db *DB) DeleteAsset(name string) error {
	res, err := db.conn.Exec(`DELETE FROM assets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("assets: delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("assets: %s: %w", name, apperr.ErrNotFound)
	}
	return nil
}

// ApplyRewrites records a relink run and applies its path rewrites within a
// single transaction. A rewrite only lands if the row still holds OldPath and
// is not embedded; rows changed since the pass read them are skipped and
// dropped from the run's examined and relinked counts. It returns the
// rewrites that were applied.
func (db *DB) ApplyRewrites(run models.RelinkRun, rewrites []models.Rewrite) ([]models.Rewrite, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("assets: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	applied := make([]models.Rewrite, 0, len(rewrites))
	if len(rewrites) > 0 {
		upd, err := tx.Prepare(`
			UPDATE assets SET path = ?, updated_at = ?
			WHERE id = ? AND path = ? AND embedded = 0
		`)
		if err != nil {
			return nil, fmt.Errorf("assets: prepare update: %w", err)
		}
		defer upd.Close()

		for _, rw := range rewrites {
			res, err := upd.Exec(rw.NewPath, run.CreatedAt, rw.AssetID, rw.OldPath)
			if err != nil {
				return nil, fmt.Errorf("assets: update %s: %w", rw.Name, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				continue
			}
			applied = append(applied, rw)
		}
	}

	skipped := len(rewrites) - len(applied)
	run.Examined -= skipped
	run.Relinked -= skipped
	_, err = tx.Exec(`
		INSERT INTO relink_runs (id, root, examined, relinked, missing, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Root, run.Examined, run.Relinked, run.Missing, run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("assets: insert run: %w", err)
	}

	if len(applied) > 0 {
		logStmt, err := tx.Prepare(`
			INSERT INTO relink_rewrites (run_id, asset_id, name, old_path, new_path, match_kind)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return nil, fmt.Errorf("assets: prepare rewrite log: %w", err)
		}
		defer logStmt.Close()

		for _, rw := range applied {
			if _, err := logStmt.Exec(run.ID, rw.AssetID, rw.Name, rw.OldPath, rw.NewPath, rw.Match); err != nil {
				return nil, fmt.Errorf("assets: log rewrite %s: %w", rw.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("assets: commit: %w", err)
	}
	return applied, nil
}

// ListRuns returns the most recent relink runs, newest first.
func (db *DB) ListRuns(limit int) ([]models.RelinkRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, root, examined, relinked, missing, created_at
		FROM relink_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("assets: list runs: %w", err)
	}
	defer rows.Close()

	var out []models.RelinkRun
	for rows.Next() {
		var r models.RelinkRun
		if err := rows.Scan(&r.ID, &r.Root, &r.Examined, &r.Relinked, &r.Missing, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunRewrites returns the rewrites logged for a run.
func (db *DB) RunRewrites(runID string) ([]models.Rewrite, error) {
	var exists int
	if err := db.conn.QueryRow(`SELECT count(*) FROM relink_runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("assets: run %s: %w", runID, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("assets: run %s: %w", runID, apperr.ErrNotFound)
	}

	rows, err := db.conn.Query(`
		SELECT asset_id, name, old_path, new_path, match_kind
		FROM relink_rewrites
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("assets: run rewrites: %w", err)
	}
	defer rows.Close()

	var out []models.Rewrite
	for rows.Next() {
		var rw models.Rewrite
		if err := rows.Scan(&rw.AssetID, &rw.Name, &rw.OldPath, &rw.NewPath, &rw.Match); err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}
