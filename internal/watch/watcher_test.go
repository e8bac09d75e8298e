package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/texrelink/internal/relink"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, root string, exts ...string) *atomic.Int32 {
	t.Helper()
	set, err := relink.ParseExtensions(exts)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var passes atomic.Int32
	go Watch(ctx, root, set, 50*time.Millisecond, quietLogger(), func(context.Context) error {
		passes.Add(1)
		return nil
	})
	time.Sleep(100 * time.Millisecond)
	return &passes
}

func TestWatch_NewTextureTriggersPass(t *testing.T) {
	root := t.TempDir()
	passes := startWatch(t, root, "png")

	_ = os.WriteFile(filepath.Join(root, "wall.png"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return passes.Load() > 0
	}, "new texture did not trigger a relink pass")
}

func TestWatch_IgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	passes := startWatch(t, root, "png")

	_ = os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644)
	time.Sleep(400 * time.Millisecond)

	if n := passes.Load(); n != 0 {
		t.Errorf("passes = %d, want 0", n)
	}
}

func TestWatch_NewDirWatched(t *testing.T) {
	root := t.TempDir()
	passes := startWatch(t, root, "dds")

	sub := filepath.Join(root, "sub")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(150 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(sub, "floor.dds"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return passes.Load() > 0
	}, "texture in new subdir did not trigger a relink pass")
}

func TestWatch_Debounces(t *testing.T) {
	root := t.TempDir()
	passes := startWatch(t, root, "png")

	for _, n := range []string{"a.png", "b.png", "c.png"} {
		_ = os.WriteFile(filepath.Join(root, n), []byte("x"), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return passes.Load() > 0
	}, "burst did not trigger a relink pass")
	time.Sleep(200 * time.Millisecond)
	if n := passes.Load(); n > 2 {
		t.Errorf("passes = %d, burst should collapse", n)
	}
}

func TestContainsMatching(t *testing.T) {
	dir := t.TempDir()
	set, _ := relink.ParseExtensions([]string{"png"})
	if containsMatching(dir, set) {
		t.Error("empty dir reported matching")
	}
	_ = os.MkdirAll(filepath.Join(dir, "a"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, "a", "x.PNG"), []byte("x"), 0o644)
	if !containsMatching(dir, set) {
		t.Error("nested texture not found")
	}
}
