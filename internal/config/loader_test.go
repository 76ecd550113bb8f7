package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "port: 9999\nmodels_dir: /m\ntemp_dir: /t\nworkers: 3\npreload: [lidah_model, kuku_model]\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Port != 9999 || cfg.ModelsDir != "/m" || cfg.TempDir != "/t" || cfg.Workers != 3 || len(cfg.Preload) != 2 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"port":7070,"models_dir":"/m","max_upload_mb":4,"tongue_model":"t1"}`)
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Port != 7070 || cfg.ModelsDir != "/m" || cfg.MaxUploadMB != 4 || cfg.TongueModel != "t1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "port=8081\nmodels_dir=\"/x\"\nqueue_depth=5\nnail_model=\"n1\"\n")
	cfg, err := Load(p)
	if err != nil { t.Fatalf("load: %v", err) }
	if cfg.Port != 8081 || cfg.ModelsDir != "/x" || cfg.QueueDepth != 5 || cfg.NailModel != "n1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil { t.Fatalf("expected error on empty path") }
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil { t.Fatalf("expected unsupported extension error") }
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Port != 8000 {
		t.Fatalf("default port = %d, want 8000", cfg.Port)
	}
	if cfg.ModelsDir != "models" || cfg.TempDir != "temp" {
		t.Fatalf("unexpected dirs: %+v", cfg)
	}
	if cfg.ListenAddr() != "0.0.0.0:8000" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
		{" , ", []string{}},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}
