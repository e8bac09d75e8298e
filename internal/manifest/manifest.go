// Package manifest reads and writes YAML reference manifests used by the
// one-shot relink command.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/starford/texrelink/internal/apperr"
	"github.com/starford/texrelink/internal/models"
)

// Entry is one reference as written in the manifest.
type Entry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Embedded bool   `yaml:"embedded,omitempty"`
}

// Manifest lists the references of one project file.
type Manifest struct {
	// BaseDir is the directory relative paths are resolved against. When
	// empty, the manifest's own directory is used.
	BaseDir string  `yaml:"base_dir,omitempty"`
	Assets  []Entry `yaml:"assets"`
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %v: %w", path, err, apperr.ErrInvalidInput)
	}
	return &m, nil
}

// ResolveBaseDir returns BaseDir, falling back to the directory of the
// manifest file itself. Relative BaseDir values are taken relative to it too.
func (m *Manifest) ResolveBaseDir(manifestPath string) string {
	dir := filepath.Dir(manifestPath)
	switch {
	case m.BaseDir == "":
		return dir
	case filepath.IsAbs(m.BaseDir):
		return m.BaseDir
	default:
		return filepath.Join(dir, m.BaseDir)
	}
}

// References converts entries to asset references. The entry index doubles
// as the reference ID so rewrites can be mapped back.
func (m *Manifest) References() []*models.AssetReference {
	out := make([]*models.AssetReference, len(m.Assets))
	for i, e := range m.Assets {
		out[i] = &models.AssetReference{
			ID:       int64(i),
			Name:     e.Name,
			Path:     e.Path,
			Embedded: e.Embedded,
		}
	}
	return out
}

// ApplyRewrites copies rewritten paths back into the entries.
func (m *Manifest) ApplyRewrites(rewrites []models.Rewrite) {
	for _, rw := range rewrites {
		if rw.AssetID < 0 || int(rw.AssetID) >= len(m.Assets) {
			continue
		}
		m.Assets[rw.AssetID].Path = rw.NewPath
	}
}

// Save atomically writes the manifest: tmp file → fsync → rename.
func Save(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: encode: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".texrelink-tmp-*")
	if err != nil {
		return fmt.Errorf("manifest: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("manifest: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("manifest: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("manifest: rename: %w", err)
	}
	success = true
	return nil
}

// Lock takes an exclusive advisory lock next to the manifest so concurrent
// runs cannot interleave their rewrites. The returned func releases it.
func Lock(path string, timeout time.Duration) (func(), error) {
	l := flock.New(path + ".lock")
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("manifest: lock %s: %w", path, err)
		}
		if locked {
			// The lock file stays on disk. Removing it after Unlock would let a
			// waiter holding the old inode and a newcomer on a fresh file both
			// believe they own the lock.
			return func() { _ = l.Unlock() }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("manifest: %s is locked by another run", path)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
