// Package models defines the domain types for texrelink.
package models

import "time"

// AssetReference is one externally referenced file (usually an image) tracked by
// the asset store. Embedded references are packed into the project file and are
// never considered missing.
type AssetReference struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Embedded  bool      `json:"embedded"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rewrite records one path change applied by a relink pass.
type Rewrite struct {
	AssetID int64  `json:"asset_id,omitempty"`
	Name    string `json:"name"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
	Match   string `json:"match"` // "exact" or "stem"
}

// RelinkReport summarises a relink pass.
//
// Examined counts candidate references (not embedded, path did not resolve).
// Relinked + Missing always equals Examined.
type RelinkReport struct {
	Total        int       `json:"total"`
	Examined     int       `json:"examined"`
	Relinked     int       `json:"relinked"`
	Missing      int       `json:"missing"`
	Rewrites     []Rewrite `json:"rewrites"`
	StillMissing []string  `json:"still_missing"`
}

// RelinkRun is a persisted summary of a relink pass.
type RelinkRun struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	Examined  int       `json:"examined"`
	Relinked  int       `json:"relinked"`
	Missing   int       `json:"missing"`
	CreatedAt time.Time `json:"created_at"`
}
