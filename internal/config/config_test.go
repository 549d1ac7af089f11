package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mk2.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/ttyUSB0"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Path != "/dev/ttyUSB0" {
		t.Errorf("device.path = %q", cfg.Device.Path)
	}
	if cfg.Device.Baud != 2400 {
		t.Errorf("device.baud = %d, want default 2400", cfg.Device.Baud)
	}
	if cfg.Link.ReplyTimeout.Duration != 500*time.Millisecond {
		t.Errorf("link.reply_timeout = %v", cfg.Link.ReplyTimeout.Duration)
	}
	if cfg.Link.Retries != 3 {
		t.Errorf("link.retries = %d", cfg.Link.Retries)
	}
	if cfg.HTTP.Listen != ":9655" {
		t.Errorf("http.listen = %q", cfg.HTTP.Listen)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/ttyUSB1"
address = 3

[link]
reply_timeout = "250ms"
retries = 1

[monitor]
poll_interval = "10s"

[http]
listen = "127.0.0.1:8080"
cors_origins = ["https://example.net"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Address != 3 {
		t.Errorf("device.address = %d", cfg.Device.Address)
	}
	if cfg.Link.ReplyTimeout.Duration != 250*time.Millisecond {
		t.Errorf("link.reply_timeout = %v", cfg.Link.ReplyTimeout.Duration)
	}
	if cfg.Monitor.PollInterval.Duration != 10*time.Second {
		t.Errorf("monitor.poll_interval = %v", cfg.Monitor.PollInterval.Duration)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://example.net" {
		t.Errorf("http.cors_origins = %v", cfg.HTTP.CORSOrigins)
	}
}

func TestLoadRejectsMissingDevicePath(t *testing.T) {
	path := writeConfig(t, `
[link]
retries = 1
`)
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/ttyUSB0"
bud = 2400
`)
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load = %v, want ErrInvalid", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[device]
path = "/dev/ttyUSB0"

[link]
reply_timeout = "fast"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted an unparseable duration")
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero baud", func(c *Config) { c.Device.Baud = 0 }},
		{"negative retries", func(c *Config) { c.Link.Retries = -1 }},
		{"zero poll interval", func(c *Config) { c.Monitor.PollInterval.Duration = 0 }},
		{"empty listen", func(c *Config) { c.HTTP.Listen = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Device.Path = "/dev/ttyUSB0"
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate = %v, want ErrInvalid", err)
			}
		})
	}
}
