package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/placement"
	"github.com/starford/texrelink/internal/relinkservice"
	"github.com/starford/texrelink/internal/vcolor"
)

// Handler holds API route handlers.
type Handler struct {
	svc *relinkservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *relinkservice.Service) *Handler {
	return &Handler{svc: svc}
}

// assetName extracts the {name} URL parameter, decoding escaped characters.
func assetName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListAssets handles GET /api/assets.
//
//	@Summary		List registered asset references
//	@Tags			assets
//	@Produce		json
//	@Success		200	{object}	AssetListResponse
//	@Security		BearerAuth
//	@Router			/assets [get]
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAssets(r.Context())
	if err != nil {
		writeServiceError(w, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Assets: list, Total: len(list)})
}

// ListMissing handles GET /api/assets/missing.
//
//	@Summary		List references whose path does not resolve
//	@Tags			assets
//	@Produce		json
//	@Success		200	{object}	AssetListResponse
//	@Security		BearerAuth
//	@Router			/assets/missing [get]
func (h *Handler) ListMissing(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListMissing(r.Context())
	if err != nil {
		writeServiceError(w, "list missing", err)
		return
	}
	writeJSON(w, http.StatusOK, AssetListResponse{Assets: list, Total: len(list)})
}

// RegisterAsset handles POST /api/assets.
//
//	@Summary		Register or update an asset reference
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RegisterAssetRequest	true	"Reference"
//	@Success		201		{object}	models.AssetReference
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) RegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	a, err := h.svc.RegisterAsset(r.Context(), models.AssetReference{
		Name:     req.Name,
		Path:     req.Path,
		Embedded: req.Embedded,
	})
	if err != nil {
		writeServiceError(w, "register asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// GetAsset handles GET /api/assets/{name}.
//
//	@Summary		Get one asset reference
//	@Tags			assets
//	@Produce		json
//	@Param			name	path		string	true	"Reference name"
//	@Success		200		{object}	models.AssetReference
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets/{name} [get]
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.GetAsset(r.Context(), assetName(r))
	if err != nil {
		writeServiceError(w, "get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// DeleteAsset handles DELETE /api/assets/{name}.
//
//	@Summary		Delete an asset reference
//	@Tags			assets
//	@Param			name	path	string	true	"Reference name"
//	@Success		204		"Deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets/{name} [delete]
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAsset(r.Context(), assetName(r)); err != nil {
		writeServiceError(w, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Relink handles POST /api/relink. The body is optional.
//
//	@Summary		Run a relink pass over all registered references
//	@Tags			relink
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RelinkRequest	false	"Overrides"
//	@Success		200		{object}	RelinkResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/relink [post]
func (h *Handler) Relink(w http.ResponseWriter, r *http.Request) {
	var req RelinkRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	res, err := h.svc.Relink(r.Context(), req)
	if err != nil {
		writeServiceError(w, "relink", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		Relink history, newest first
//	@Tags			relink
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// RunRewrites handles GET /api/runs/{id}/rewrites.
//
//	@Summary		Rewrites applied by one run
//	@Tags			relink
//	@Produce		json
//	@Param			id	path		string	true	"Run id"
//	@Success		200	{object}	RewriteListResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id}/rewrites [get]
func (h *Handler) RunRewrites(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rws, err := h.svc.RunRewrites(r.Context(), id)
	if err != nil {
		writeServiceError(w, "run rewrites", err)
		return
	}
	writeJSON(w, http.StatusOK, RewriteListResponse{RunID: id, Rewrites: rws})
}

// FormatPlacement handles POST /api/placement/format.
//
//	@Summary		Format a position and rotation for map files
//	@Tags			utilities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PlacementRequest	true	"Placement"
//	@Success		200		{object}	PlacementResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/placement/format [post]
func (h *Handler) FormatPlacement(w http.ResponseWriter, r *http.Request) {
	var req PlacementRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	p := placement.Placement{Position: req.Position, Rotation: placement.Identity}
	if req.Rotation != nil {
		p.Rotation = *req.Rotation
	}
	resp := PlacementResponse{
		Position: placement.FormatPosition(p.Position),
		Rotation: placement.FormatRotation(p.Rotation),
		XML:      placement.FormatXML(p),
	}
	if len(req.Portal) > 0 {
		portal, err := placement.NewPortal(req.Portal...)
		if err == nil {
			resp.Portal, err = portal.FormatAll()
		}
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AverageColor handles POST /api/colors/average.
//
//	@Summary		Average vertex colours
//	@Tags			utilities
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AverageColorRequest	true	"Colours"
//	@Success		200		{object}	AverageColorResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/colors/average [post]
func (h *Handler) AverageColor(w http.ResponseWriter, r *http.Request) {
	var req AverageColorRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	avg, err := vcolor.Average(req.Colors)
	if errors.Is(err, vcolor.ErrNoColors) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, AverageColorResponse{Color: avg, Hex: vcolor.Hex(avg)})
}
