package config

import (
	"os"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != Default().Port {
		t.Errorf("Port = %d, want default %d", cfg.Port, Default().Port)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(path, []byte("host: 1.2.3.4\nport: 8080\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("SERVER_HOST", "10.0.0.5")
	t.Setenv("SERVER_PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Host != "10.0.0.5" {
		t.Errorf("Host = %q, want 10.0.0.5", cfg.Host)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	base, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg, err := ParseFlags(base, []string{"--port", "12345"})
	if err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if cfg.Port != 12345 {
		t.Errorf("Port = %d, want 12345 (CLI wins over env)", cfg.Port)
	}
}

func TestParseFlags_TLSRequiresCertAndKey(t *testing.T) {
	_, err := ParseFlags(Default(), []string{"--tls"})
	if err == nil {
		t.Error("ParseFlags() with --tls and no cert/key, want error")
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("port: 8080\nkv_host: redis.internal\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.KVHost != "redis.internal" {
		t.Errorf("KVHost = %q, want redis.internal", cfg.KVHost)
	}
}
