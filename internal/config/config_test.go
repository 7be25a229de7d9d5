package config

import (
	"os"
	"path/filepath"
	"testing"

	"qtrak/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qtrak.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.DBPath != "qtrak.db" || cfg.ActivityLimit != 200 {
		t.Errorf("defaults wrong: %+v", cfg)
	}
	if len(cfg.SeedRules) != len(DefaultRules) {
		t.Errorf("default rules not installed: %d", len(cfg.SeedRules))
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
db: /var/lib/qtrak/prod.db
activity_limit: 50
seed_rules:
  - name: return_fast
    family: production_return
    threshold: 1
    unit: days
    severity: critical
    active: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/var/lib/qtrak/prod.db" || cfg.ActivityLimit != 50 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if len(cfg.SeedRules) != 1 {
		t.Fatalf("seed rules: got %d, want 1", len(cfg.SeedRules))
	}
	r := cfg.SeedRules[0]
	if r.Family != models.FamilyProductionReturn || r.Severity != models.SeverityCritical {
		t.Errorf("rule decoded wrong: %+v", r)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := writeConfig(t, "db: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("broken yaml must error")
	}
}

func TestLoadRejectsInvalidRule(t *testing.T) {
	path := writeConfig(t, `
seed_rules:
  - name: bad
    family: martian
    threshold: 1
    unit: hours
    severity: warning
`)
	if _, err := Load(path); err == nil {
		t.Fatal("invalid rule family must error")
	}
}

func TestDefaultRulesValidate(t *testing.T) {
	for _, r := range DefaultRules {
		if err := r.Validate(); err != nil {
			t.Errorf("default rule %q invalid: %v", r.Name, err)
		}
	}
}
