package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, home, data string) {
	t.Helper()
	cfgDir := filepath.Join(home, ".config", "gpulaunch")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "default.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"provider":"ec2","image":"nvidia/cuda:12.4.1-runtime-ubuntu22.04","disk_gb":50}`)
	// Override HOME so LoadConfig reads our temp file.
	t.Setenv("HOME", dir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider != "ec2" {
		t.Errorf("Provider = %q, want %q", cfg.Provider, "ec2")
	}
	if cfg.Image != "nvidia/cuda:12.4.1-runtime-ubuntu22.04" {
		t.Errorf("Image = %q", cfg.Image)
	}
	if cfg.DiskGB != 50 {
		t.Errorf("DiskGB = %d, want 50", cfg.DiskGB)
	}
	// Non-overridden fields keep defaults.
	if cfg.VastCLI != "vastai" {
		t.Errorf("VastCLI = %q, want default %q", cfg.VastCLI, "vastai")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("LoadConfig without a file = %+v, want defaults", cfg)
	}
	if cfg.DiskGB != 100 || cfg.Image != "pytorch/pytorch:latest" {
		t.Errorf("default launch spec = %d GB %q", cfg.DiskGB, cfg.Image)
	}
}

func TestLoadConfigBadJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "{bad json")
	t.Setenv("HOME", dir)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for bad JSON")
	}
}

func TestWithOverridesEnv(t *testing.T) {
	t.Setenv("GPULAUNCH_PROVIDER", "ec2")
	t.Setenv("GPULAUNCH_DISK_GB", "250")
	t.Setenv("VAST_API_KEY", "from-env")

	cfg, err := Defaults().WithOverrides(NewViper())
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if cfg.Provider != "ec2" {
		t.Errorf("Provider = %q, want ec2", cfg.Provider)
	}
	if cfg.DiskGB != 250 {
		t.Errorf("DiskGB = %d, want 250", cfg.DiskGB)
	}
	if cfg.VastAPIKey != "from-env" {
		t.Errorf("VastAPIKey = %q, want from-env", cfg.VastAPIKey)
	}
	if cfg.Image != Defaults().Image {
		t.Errorf("Image = %q, want default", cfg.Image)
	}
}

func TestWithOverridesFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("provider", "vast", "")
	fs.String("image", "", "")
	if err := fs.Parse([]string{"--image", "ubuntu:24.04"}); err != nil {
		t.Fatal(err)
	}
	v := NewViper()
	if err := v.BindPFlags(fs); err != nil {
		t.Fatal(err)
	}

	base := Defaults()
	base.Provider = "ec2"
	cfg, err := base.WithOverrides(v)
	if err != nil {
		t.Fatalf("WithOverrides: %v", err)
	}
	if cfg.Image != "ubuntu:24.04" {
		t.Errorf("Image = %q, want flag value", cfg.Image)
	}
	// Unchanged flags do not clobber file settings.
	if cfg.Provider != "ec2" {
		t.Errorf("Provider = %q, want ec2 from base", cfg.Provider)
	}
}

func TestWithOverridesInvalidProvider(t *testing.T) {
	t.Setenv("GPULAUNCH_PROVIDER", "lambda")
	if _, err := Defaults().WithOverrides(NewViper()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestResolveVastAPIKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "vast_key")
	if err := os.WriteFile(keyPath, []byte("file-key\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := Config{VastKeyPath: keyPath}
	if got := cfg.ResolveVastAPIKey(); got != "file-key" {
		t.Errorf("ResolveVastAPIKey = %q, want file-key", got)
	}
	cfg.VastAPIKey = "explicit"
	if got := cfg.ResolveVastAPIKey(); got != "explicit" {
		t.Errorf("ResolveVastAPIKey = %q, want explicit", got)
	}
	if got := (Config{VastKeyPath: filepath.Join(dir, "missing")}).ResolveVastAPIKey(); got != "" {
		t.Errorf("ResolveVastAPIKey with no file = %q, want empty", got)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if got := expandHome("~/.vast_api_key"); got != filepath.Join(home, ".vast_api_key") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome = %q", got)
	}
}
