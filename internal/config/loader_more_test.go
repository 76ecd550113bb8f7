package config

import (
	"testing"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/predictd-config.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "port: 8000\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "port=8000\nmodels_dir\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnv_PortOverridesDefault(t *testing.T) {
	cfg, err := ApplyEnv(Defaults(), envMap(map[string]string{"PORT": "9001"}))
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Port != 9001 {
		t.Fatalf("port = %d, want 9001", cfg.Port)
	}
}

func TestApplyEnv_InvalidInt(t *testing.T) {
	if _, err := ApplyEnv(Defaults(), envMap(map[string]string{"PORT": "eighty"})); err == nil {
		t.Fatalf("expected error for non-numeric PORT")
	}
}

func TestResolve_Precedence(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "port: 7000\nmodels_dir: /file-models\ncors_origins: [\"https://a.example\"]\n")
	cfg, err := Resolve(p, envMap(map[string]string{
		"PREDICTD_MODELS_DIR": "/env-models",
		"PREDICTD_PRELOAD":    "a, b,,c",
	}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Port != 7000 {
		t.Fatalf("file port lost: %d", cfg.Port)
	}
	if cfg.ModelsDir != "/env-models" {
		t.Fatalf("env should override file: %q", cfg.ModelsDir)
	}
	if cfg.TempDir != "temp" {
		t.Fatalf("default temp dir lost: %q", cfg.TempDir)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://a.example" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if len(cfg.Preload) != 3 || cfg.Preload[2] != "c" {
		t.Fatalf("preload = %v", cfg.Preload)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected port range error")
	}
	cfg = Defaults()
	cfg.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected workers error")
	}
}
