package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/texrelink/internal/models"
	"github.com/starford/texrelink/internal/relinkservice"
	"github.com/starford/texrelink/internal/testutil"
)

// testEnv sets up a temp texture library, SQLite store, service, and router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string, files ...string) (*relinkservice.Service, http.Handler, string) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil, files...)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sseHandler http.Handler, files ...string) (*relinkservice.Service, http.Handler, string) {
	t.Helper()
	root := testutil.TestLibrary(t, files...)
	svc := relinkservice.NewService(testutil.TestStore(t), relinkservice.Defaults{
		Root:         root,
		Extensions:   []string{"png", "jpg", "dds"},
		StemFallback: true,
	}, nil)
	return svc, NewRouter(svc, authEnabled, token, sseHandler), root
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestRegisterAndGetAsset(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Name: "wall", Path: "/old/wall.png"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/assets/wall", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	a := decode[models.AssetReference](t, w)
	if a.Name != "wall" || a.Path != "/old/wall.png" {
		t.Errorf("asset = %+v", a)
	}

	w = do(t, router, http.MethodGet, "/assets", nil)
	list := decode[AssetListResponse](t, w)
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}
}

func TestRegisterAsset_Validation(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Path: "/x.png"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader("{not json"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
}

func TestGetAsset_NotFound(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/assets/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteAsset(t *testing.T) {
	_, router, _ := testEnv(t, "")
	do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Name: "wall", Path: "/x.png"})

	if w := do(t, router, http.MethodDelete, "/assets/wall", nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d, want 204", w.Code)
	}
	if w := do(t, router, http.MethodDelete, "/assets/wall", nil); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestRelinkEndpoint(t *testing.T) {
	_, router, root := testEnv(t, "", "walls/wall_diffuse.png", "floor.DDS")
	gone := t.TempDir()

	do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Name: "wall", Path: filepath.Join(gone, "wall_diffuse.png")})
	do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Name: "sky", Path: filepath.Join(gone, "sky.png")})
	do(t, router, http.MethodPost, "/assets", RegisterAssetRequest{Name: "packed", Path: filepath.Join(gone, "packed.png"), Embedded: true})

	w := do(t, router, http.MethodGet, "/assets/missing", nil)
	if got := decode[AssetListResponse](t, w).Total; got != 2 {
		t.Errorf("missing before = %d, want 2", got)
	}

	// Empty body uses configured defaults.
	w = do(t, router, http.MethodPost, "/relink", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("relink = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[RelinkResponse](t, w)
	if res.Examined != 2 || res.Relinked != 1 || res.Missing != 1 {
		t.Errorf("report = %+v", res.RelinkReport)
	}
	if res.RunID == "" {
		t.Error("expected run id")
	}

	w = do(t, router, http.MethodGet, "/assets/wall", nil)
	if a := decode[models.AssetReference](t, w); a.Path != filepath.Join(root, "walls", "wall_diffuse.png") {
		t.Errorf("wall path = %q", a.Path)
	}

	w = do(t, router, http.MethodGet, "/runs", nil)
	if runs := decode[RunListResponse](t, w).Runs; len(runs) != 1 || runs[0].ID != res.RunID {
		t.Errorf("runs = %+v", runs)
	}

	w = do(t, router, http.MethodGet, "/runs/"+res.RunID+"/rewrites", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rewrites = %d", w.Code)
	}
	if rws := decode[RewriteListResponse](t, w).Rewrites; len(rws) != 1 || rws[0].Name != "wall" {
		t.Errorf("rewrites = %+v", rws)
	}
}

func TestRelinkEndpoint_InvalidInput(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/relink", RelinkRequest{Root: filepath.Join(t.TempDir(), "absent")})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad root = %d, want 400", w.Code)
	}
	w = do(t, router, http.MethodPost, "/relink", RelinkRequest{Extensions: []string{"p n g"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad extension = %d, want 400", w.Code)
	}
}

func TestRunRewrites_UnknownRun(t *testing.T) {
	_, router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/runs/nope/rewrites", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestFormatPlacement(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/placement/format", map[string]any{
		"position": map[string]float64{"x": 1, "y": 2, "z": 3},
		"rotation": map[string]float64{"w": 1, "x": 0, "y": 0, "z": 0},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[PlacementResponse](t, w)
	if resp.Position != "1.000000, 2.000000, 3.000000" {
		t.Errorf("position = %q", resp.Position)
	}
	if resp.Rotation != "0.000000, 0.000000, 0.000000, 1.000000" {
		t.Errorf("rotation = %q", resp.Rotation)
	}

	w = do(t, router, http.MethodPost, "/placement/format", map[string]any{
		"position": map[string]float64{},
		"portal":   []map[string]float64{{"x": 1}, {"x": 2}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("incomplete portal = %d, want 400", w.Code)
	}
}

func TestAverageColor(t *testing.T) {
	_, router, _ := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/colors/average", AverageColorRequest{Colors: nil})
	if w.Code != http.StatusBadRequest {
		t.Errorf("no colors = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodPost, "/colors/average", map[string]any{
		"colors": []map[string]float64{{"r": 1, "g": 0, "b": 0}, {"r": 0, "g": 0, "b": 1}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decode[AverageColorResponse](t, w); resp.Hex != "#7F007F" {
		t.Errorf("hex = %q, want #7F007F", resp.Hex)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/assets", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/assets", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router, _ := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/relink", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// blockingSSE writes stream headers and blocks until the request ends.
var blockingSSE = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, true, "secret", blockingSSE)
	if w := do(t, router, http.MethodGet, "/events", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router, _ := testEnvWithSSE(t, true, "tok", blockingSSE)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}
