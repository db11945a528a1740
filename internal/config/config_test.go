package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty key file", func(c *Config) { c.Identity.KeyFile = " " }},
		{"bad port", func(c *Config) { c.P2P.ListenPort = 70000 }},
		{"empty mdns tag", func(c *Config) { c.P2P.MdnsTag = "" }},
		{"heartbeat >= ttl", func(c *Config) { c.Presence.HeartbeatSec = c.Presence.TTLSec }},
		{"negative quiet period", func(c *Config) { c.Call.QuietPeriodMs = -1 }},
		{"empty activity topic", func(c *Config) { c.Call.ActivityTopic = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEnsureCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huddle.json")

	cfg, created, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !created {
		t.Fatal("expected a new config file")
	}
	if cfg.Presence.Topic != "huddle.presence.v1" {
		t.Fatalf("topic = %q", cfg.Presence.Topic)
	}

	// Second call loads the existing file.
	_, created, err = Ensure(path)
	if err != nil {
		t.Fatalf("Ensure (existing): %v", err)
	}
	if created {
		t.Fatal("second Ensure must not recreate the file")
	}
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huddle.json")
	body := append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"profile":{"name":"bom-peer"}}`)...)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Profile.Name != "bom-peer" {
		t.Fatalf("name = %q", cfg.Profile.Name)
	}
	// Missing fields fall back to defaults.
	if cfg.Call.QuietPeriodMs != 500 {
		t.Fatalf("quiet period = %d, want default 500", cfg.Call.QuietPeriodMs)
	}
}
