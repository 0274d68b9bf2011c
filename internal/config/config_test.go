package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamedns.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PingCount != 10 || cfg.MaxWorkers != 10 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Timeout.Duration() != time.Second {
		t.Fatalf("default timeout = %v, want 1s", cfg.Timeout.Duration())
	}
	if !*cfg.ShowAllServers {
		t.Fatal("show_all_servers should default to true")
	}
	if !cfg.History.IsEnabled() {
		t.Fatal("history should default to enabled")
	}
}

func TestLoadParsesSettings(t *testing.T) {
	path := writeConfig(t, `
ping_count: 5
timeout: 250ms
max_workers: 4
show_all_servers: false
custom_servers:
  - name: Lab
    address: 10.0.0.53
history:
  enabled: false
web:
  enabled: true
  bind_port: 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PingCount != 5 || cfg.MaxWorkers != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Timeout.Duration() != 250*time.Millisecond {
		t.Fatalf("timeout = %v, want 250ms", cfg.Timeout.Duration())
	}
	if *cfg.ShowAllServers {
		t.Fatal("show_all_servers should be false")
	}
	if len(cfg.CustomServers) != 1 || cfg.CustomServers[0].Address != "10.0.0.53" {
		t.Fatalf("custom servers = %+v", cfg.CustomServers)
	}
	if cfg.History.IsEnabled() {
		t.Fatal("history should be disabled")
	}
	if cfg.Web.BindPort != 9000 || cfg.Web.BindAddr != "127.0.0.1" {
		t.Fatalf("web config = %+v", cfg.Web)
	}
}

func TestNumericTimeoutIsSeconds(t *testing.T) {
	cfg, err := Load(writeConfig(t, "timeout: 2\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout.Duration() != 2*time.Second {
		t.Fatalf("timeout = %v, want 2s", cfg.Timeout.Duration())
	}
}

func TestValidateRejectsFaults(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"ping_count: -1\n", "ping_count must be > 0"},
		{"ping_count: 500\n", "ping_count cannot exceed"},
		{"timeout: -1s\n", "timeout must be > 0"},
		{"max_workers: -2\n", "max_workers must be > 0"},
		{"custom_servers:\n  - name: X\n", "name and address"},
		{"web:\n  bind_port: 70000\n", "bind_port"},
	}
	for _, tc := range cases {
		_, err := Load(writeConfig(t, tc.body))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("config %q: got err %v, want %q", tc.body, err, tc.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gamedns.yaml")
	cfg := Default()
	cfg.PingCount = 7
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.PingCount != 7 {
		t.Fatalf("PingCount = %d, want 7", loaded.PingCount)
	}
}
