package cli

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", "", false, false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Format != "table" {
		t.Errorf("Format = %q", cfg.Format)
	}
	if cfg.Quiet || cfg.NoColor {
		t.Errorf("Expected quiet and no-color off by default: %+v", cfg)
	}
}

func TestLoadConfigFlagsWin(t *testing.T) {
	t.Setenv("RASTREO_SERVER", "http://env-host:8080")
	t.Setenv("RASTREO_FORMAT", "json")

	cfg, err := LoadConfig("http://flag-host:9090", "table", true, false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerURL != "http://flag-host:9090" {
		t.Errorf("Expected the flag to win, got %q", cfg.ServerURL)
	}
	if cfg.Format != "table" {
		t.Errorf("Expected the flag to win, got %q", cfg.Format)
	}
	if !cfg.Quiet {
		t.Error("Expected quiet from flag")
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("RASTREO_SERVER", "https://rastreo.example.com")
	t.Setenv("RASTREO_FORMAT", "json")

	cfg, err := LoadConfig("", "", false, false)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ServerURL != "https://rastreo.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q", cfg.Format)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	if _, err := LoadConfig("localhost:8080", "", false, false); err == nil {
		t.Error("Expected a scheme-less server URL to be rejected")
	}
	if _, err := LoadConfig("", "xml", false, false); err == nil {
		t.Error("Expected an unsupported format to be rejected")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("corto", 40); got != "corto" {
		t.Errorf("truncate = %q", got)
	}
	long := "Entregado en el domicilio del destinatario por el distribuidor"
	got := truncate(long, 20)
	if len([]rune(got)) > 20 {
		t.Errorf("Expected at most 20 runes, got %d (%q)", len([]rune(got)), got)
	}

	accented := strings.Repeat("í", 30)
	got = truncate(accented, 20)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if want := strings.Repeat("í", 17) + "..."; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
