// Package config loads and stores agent configuration in the XDG config dir.
// Only non-secret settings are kept here; the API key and the Dentrix
// connection string go through internal/secrets.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"gain/agent/internal/xdg"
)

// Config holds non-sensitive agent settings.
type Config struct {
	LogLevel string        `json:"log_level"`
	Bus      BusConfig     `json:"bus"`
	IPC      IPCConfig     `json:"ipc"`
	Dentrix  DentrixConfig `json:"dentrix"`
	Storage  StorageConfig `json:"storage"`
}

// BusConfig holds cloud event bus connection settings.
type BusConfig struct {
	// URL is the websocket endpoint of the Gain event bus.
	URL string `json:"url"`
	// HandshakeTimeoutMS bounds a single websocket dial.
	HandshakeTimeoutMS int `json:"handshake_timeout_ms"`
	// ReconnectDelayMS is the fixed delay between reconnect attempts.
	ReconnectDelayMS int `json:"reconnect_delay_ms"`
	// SuperviseIntervalMS is how often the relay re-checks its socket
	// independent of the built-in reconnect loop.
	SuperviseIntervalMS int `json:"supervise_interval_ms"`
	// EmitThrottleMS is the minimum delay between result emits. Too fast
	// and we risk overflowing buffer queues on the bus's ingress side.
	EmitThrottleMS int `json:"emit_throttle_ms"`
}

// IPCConfig holds local control channel settings.
type IPCConfig struct {
	// Endpoint is the pipe/socket name shared with the settings app.
	Endpoint string `json:"endpoint"`
	// DialTimeoutMS bounds client connection attempts to the service.
	DialTimeoutMS int `json:"dial_timeout_ms"`
	// RetryDelayMS is the backoff applied when the server channel cannot
	// be (re)created.
	RetryDelayMS int `json:"retry_delay_ms"`
}

// DentrixConfig holds local database supervision settings.
type DentrixConfig struct {
	// KeyFile overrides the vendor auth key file discovered at install
	// time. Empty means use the installer-provided location.
	KeyFile string `json:"key_file"`
	// User and Password identify the DDP integration user provisioned
	// with the key file.
	User     string `json:"user"`
	Password string `json:"password"`
	// RetryIntervalMS is how often registration is retried while the
	// connection string is unset.
	RetryIntervalMS int `json:"retry_interval_ms"`
}

// StorageConfig selects the secret store backend.
type StorageConfig struct {
	// Backend is "file" (base64 records under the state dir) or
	// "keyring" (OS credential store).
	Backend string `json:"backend"`
}

// HandshakeTimeout returns the websocket dial bound as a duration.
func (b BusConfig) HandshakeTimeout() time.Duration {
	return time.Duration(b.HandshakeTimeoutMS) * time.Millisecond
}

// ReconnectDelay returns the fixed reconnect backoff as a duration.
func (b BusConfig) ReconnectDelay() time.Duration {
	return time.Duration(b.ReconnectDelayMS) * time.Millisecond
}

// SuperviseInterval returns the supervisory tick as a duration.
func (b BusConfig) SuperviseInterval() time.Duration {
	return time.Duration(b.SuperviseIntervalMS) * time.Millisecond
}

// EmitThrottle returns the minimum inter-emit delay as a duration.
func (b BusConfig) EmitThrottle() time.Duration {
	return time.Duration(b.EmitThrottleMS) * time.Millisecond
}

// DialTimeout returns the IPC client dial bound as a duration.
func (i IPCConfig) DialTimeout() time.Duration {
	return time.Duration(i.DialTimeoutMS) * time.Millisecond
}

// RetryDelay returns the IPC server re-listen backoff as a duration.
func (i IPCConfig) RetryDelay() time.Duration {
	return time.Duration(i.RetryDelayMS) * time.Millisecond
}

// RetryInterval returns the registration retry period as a duration.
func (d DentrixConfig) RetryInterval() time.Duration {
	return time.Duration(d.RetryIntervalMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Bus: BusConfig{
			URL:                 "wss://bus.fluidicml.com/adapter",
			HandshakeTimeoutMS:  10_000,
			ReconnectDelayMS:    5_000,
			SuperviseIntervalMS: 30_000,
			EmitThrottleMS:      500,
		},
		IPC: IPCConfig{
			Endpoint:      "gain-dentrix",
			DialTimeoutMS: 2_500,
			RetryDelayMS:  5_000,
		},
		Dentrix: DentrixConfig{
			RetryIntervalMS: 10_000,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
	}
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; a missing file returns defaults.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
