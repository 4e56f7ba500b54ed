package domreplay

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/domreplay/runner"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
browser:
  headful: true
resolver:
  min_confidence: 0.5
run:
  continue_on_failure: true
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Browser.Headful {
		t.Error("headful not parsed")
	}
	if cfg.Browser.Stealth == nil || !*cfg.Browser.Stealth {
		t.Error("stealth should default to on")
	}
	if cfg.Browser.NavigateTimeout != 30*time.Second {
		t.Errorf("navigate timeout = %s, want 30s default", cfg.Browser.NavigateTimeout)
	}
	if cfg.Resolver.MinConfidence != 0.5 {
		t.Errorf("min confidence = %v", cfg.Resolver.MinConfidence)
	}
	if !cfg.Run.ContinueOnFailure {
		t.Error("continue_on_failure not parsed")
	}
}

func TestLoadConfigStealthOff(t *testing.T) {
	path := writeFile(t, "cfg.yaml", `
browser:
  stealth: false
`)
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Browser.Stealth == nil || *cfg.Browser.Stealth {
		t.Error("explicit stealth: false was overridden")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := writeFile(t, "cfg.yaml", "browser: [not: a map")
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadStepsFile(t *testing.T) {
	path := writeFile(t, "steps.yaml", `
name: login flow
url: https://example.com/login
steps:
  - id: open-menu
    action: click
    descriptor:
      id: menu
  - action: input
    value: alice@example.com
    descriptor:
      name: email
  - descriptor:
      id: status
`)
	sf, err := LoadStepsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if sf.Name != "login flow" || sf.URL != "https://example.com/login" {
		t.Fatalf("header = %q %q", sf.Name, sf.URL)
	}
	if len(sf.Steps) != 3 {
		t.Fatalf("steps = %d", len(sf.Steps))
	}
	if sf.Steps[0].ID != "open-menu" {
		t.Errorf("explicit ID overwritten: %q", sf.Steps[0].ID)
	}
	if sf.Steps[1].ID != "step-2" {
		t.Errorf("missing ID not filled: %q", sf.Steps[1].ID)
	}
	if sf.Steps[1].Value != "alice@example.com" {
		t.Errorf("value = %q", sf.Steps[1].Value)
	}
	if sf.Steps[1].Descriptor.Name != "email" {
		t.Errorf("descriptor name = %q", sf.Steps[1].Descriptor.Name)
	}
	if sf.Steps[2].Action != runner.ActionAssert {
		t.Errorf("missing action should default to assert, got %q", sf.Steps[2].Action)
	}
}

func TestLoadStepsFileEmpty(t *testing.T) {
	path := writeFile(t, "steps.yaml", "url: https://example.com\nsteps: []\n")
	_, err := LoadStepsFile(path)
	if !errors.Is(err, runner.ErrNoSteps) {
		t.Fatalf("err = %v, want ErrNoSteps", err)
	}
}
