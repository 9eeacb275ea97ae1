package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port < 0 {
		return errors.New("port must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("DEVTALLY_TEST_NAME", "tally")
	path := writeFile(t, "name: ${DEVTALLY_TEST_NAME}\nport: 9090\n")

	var got sample
	if err := Load(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "tally" || got.Port != 9090 {
		t.Errorf("got %+v", got)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeFile(t, "name: x\n")
	got := sample{Port: 8080}
	if err := Load(path, &got); err != nil {
		t.Fatal(err)
	}
	if got.Port != 8080 {
		t.Errorf("port = %d, want default 8080", got.Port)
	}
}

func TestLoadValidates(t *testing.T) {
	path := writeFile(t, "port: -1\n")
	var got sample
	err := Load(path, &got)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	got := sample{Name: "default", Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &got)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if got.Name != "default" {
		t.Errorf("defaults overwritten: %+v", got)
	}

	got.Port = -5
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &got); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestLoadOptionalExistingFile(t *testing.T) {
	path := writeFile(t, "name: file\n")
	var got sample
	found, err := LoadOptional(path, &got)
	if err != nil || !found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if got.Name != "file" {
		t.Errorf("name = %q", got.Name)
	}
}
