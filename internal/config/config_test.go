package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	child := filepath.Join(dir, "child.yaml")

	if err := os.WriteFile(base, []byte(`
$include: child.yaml
server:
  port: 9999
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(child, []byte(`
server:
  host: "127.0.0.1"
  port: 8080
logging:
  level: debug
`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(base)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1 (from included child)", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (base overrides child)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadRawDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")

	if err := os.WriteFile(a, []byte("$include: b.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("$include: a.yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRaw(a); err == nil {
		t.Fatal("expected include cycle error, got nil")
	}
}

func TestValidateVersionRejectsNewer(t *testing.T) {
	err := ValidateVersion(CurrentVersion + 1)
	if err == nil {
		t.Fatal("expected error for future config version")
	}
}

func TestJSONSchemaIsStable(t *testing.T) {
	a, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema: %v", err)
	}
	b, _ := JSONSchema()
	if string(a) != string(b) {
		t.Error("JSONSchema() should be memoized and stable across calls")
	}
	if len(a) == 0 {
		t.Error("JSONSchema() returned empty output")
	}
}

func TestDefaultKeywordRulesCoverBuiltinAgents(t *testing.T) {
	rules := DefaultKeywordRules()
	for _, name := range []string{"builder", "architect", "security", "release_manager"} {
		if len(rules[name]) == 0 {
			t.Errorf("expected keyword rules for agent %q", name)
		}
	}
}
