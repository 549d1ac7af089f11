// Package config loads the TOML configuration shared by the daemons.
//
// Ownership boundary:
//   - file parsing, defaulting and validation
//   - nothing here opens ports or devices; callers do that with the
//     validated values
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

var ErrInvalid = errors.New("config: invalid")

// Duration is a time.Duration that decodes from TOML strings like "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Device  DeviceConfig  `toml:"device"`
	Link    LinkConfig    `toml:"link"`
	Monitor MonitorConfig `toml:"monitor"`
	HTTP    HTTPConfig    `toml:"http"`
}

// DeviceConfig locates the interface on the serial bus.
type DeviceConfig struct {
	Path    string `toml:"path"`
	Baud    int    `toml:"baud"`
	Address uint8  `toml:"address"`
}

// LinkConfig tunes the command/reply exchange behavior.
type LinkConfig struct {
	ReplyTimeout     Duration `toml:"reply_timeout"`
	Retries          int      `toml:"retries"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
}

// MonitorConfig drives the polling daemon.
type MonitorConfig struct {
	PollInterval Duration `toml:"poll_interval"`
}

// HTTPConfig is the monitor daemon's serving surface.
type HTTPConfig struct {
	Listen      string   `toml:"listen"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Default returns the built-in configuration. The interface hardware only
// talks at 2400 baud.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Baud: 2400,
		},
		Link: LinkConfig{
			ReplyTimeout:     Duration{500 * time.Millisecond},
			Retries:          3,
			HandshakeTimeout: Duration{2 * time.Second},
		},
		Monitor: MonitorConfig{
			PollInterval: Duration{5 * time.Second},
		},
		HTTP: HTTPConfig{
			Listen: ":9655",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q in %s", ErrInvalid, undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Device.Path == "" {
		return fmt.Errorf("%w: device.path is required", ErrInvalid)
	}
	if c.Device.Baud <= 0 {
		return fmt.Errorf("%w: device.baud must be positive", ErrInvalid)
	}
	if c.Link.ReplyTimeout.Duration <= 0 {
		return fmt.Errorf("%w: link.reply_timeout must be positive", ErrInvalid)
	}
	if c.Link.Retries < 0 {
		return fmt.Errorf("%w: link.retries must not be negative", ErrInvalid)
	}
	if c.Monitor.PollInterval.Duration <= 0 {
		return fmt.Errorf("%w: monitor.poll_interval must be positive", ErrInvalid)
	}
	if c.HTTP.Listen == "" {
		return fmt.Errorf("%w: http.listen is required", ErrInvalid)
	}
	return nil
}
