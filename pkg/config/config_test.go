package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	valid bool
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	s.valid = true
	return nil
}

func write(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CFG_SET", "value")
	t.Setenv("CFG_EMPTY", "")
	cases := map[string]string{
		"${CFG_SET}":             "value",
		"$CFG_SET/x":             "value/x",
		"${CFG_EMPTY:-fallback}": "fallback",
		"${CFG_UNSET:-/tmp/a}":   "/tmp/a",
		"${CFG_SET:-ignored}":    "value",
		"${CFG_UNSET}":           "",
	}
	for in, want := range cases {
		if got := ExpandEnv(in); got != want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoad_KeepsDefaultsAndValidates(t *testing.T) {
	p := write(t, "port: 8081\n")
	s := &sample{Name: "default"}
	if err := Load(p, s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "default" || s.Port != 8081 || !s.valid {
		t.Errorf("s = %+v", s)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := write(t, "name: x\n")
	if err := Load(p, &sample{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	s := &sample{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), s)
	if err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if !s.valid {
		t.Error("defaults were not validated")
	}
}
