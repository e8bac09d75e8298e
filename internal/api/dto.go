package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/placement"
	"github.com/starford/texrelink/internal/relinkservice"
	"github.com/starford/texrelink/internal/vcolor"
)

// RegisterAssetRequest is the request body for registering a reference.
type RegisterAssetRequest struct {
	Name     string `json:"name" example:"wall_diffuse" validate:"required"`
	Path     string `json:"path" example:"//textures/wall_diffuse.png"`
	Embedded bool   `json:"embedded,omitempty"`
}

// Validate checks the request before it reaches the store.
func (r RegisterAssetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Path, validation.Length(0, 4096)),
	)
}

// AssetListResponse wraps asset listings.
type AssetListResponse struct {
	Assets []models.AssetReference `json:"assets" validate:"required"`
	Total  int                     `json:"total" example:"42" validate:"required"`
}

// RelinkRequest is the optional body of POST /relink.
type RelinkRequest = relinkservice.Request

// RelinkResponse is the report of a relink pass.
type RelinkResponse = relinkservice.Result

// RunListResponse wraps relink history.
type RunListResponse struct {
	Runs []models.RelinkRun `json:"runs" validate:"required"`
}

// RewriteListResponse wraps the rewrites of one run.
type RewriteListResponse struct {
	RunID    string           `json:"run_id" validate:"required"`
	Rewrites []models.Rewrite `json:"rewrites" validate:"required"`
}

// PlacementRequest is the body of POST /placement/format. Rotation defaults
// to identity when omitted. Portal, if present, must hold four vertices.
type PlacementRequest struct {
	Position placement.Vec3   `json:"position"`
	Rotation *placement.Quat  `json:"rotation,omitempty"`
	Portal   []placement.Vec3 `json:"portal,omitempty"`
}

// PlacementResponse carries the formatted strings.
type PlacementResponse struct {
	Position string `json:"position" example:"1.000000, 2.000000, 3.000000"`
	Rotation string `json:"rotation" example:"0.000000, 0.000000, 0.000000, 1.000000"`
	XML      string `json:"xml"`
	Portal   string `json:"portal,omitempty"`
}

// AverageColorRequest is the body of POST /colors/average.
type AverageColorRequest struct {
	Colors []vcolor.Color `json:"colors" validate:"required"`
}

// AverageColorResponse is the mean colour and its hex form.
type AverageColorResponse struct {
	Color vcolor.Color `json:"color"`
	Hex   string       `json:"hex" example:"#7F7F7F"`
}
