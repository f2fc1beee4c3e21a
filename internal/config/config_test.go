package config

import (
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", c.LogLevel, "info")
	}
	if c.IPC.Endpoint != "gain-dentrix" {
		t.Errorf("IPC.Endpoint = %q, want %q", c.IPC.Endpoint, "gain-dentrix")
	}
	if got, want := c.IPC.DialTimeout(), 2500*time.Millisecond; got != want {
		t.Errorf("IPC.DialTimeout() = %v, want %v", got, want)
	}
	if got, want := c.Dentrix.RetryInterval(), 10*time.Second; got != want {
		t.Errorf("Dentrix.RetryInterval() = %v, want %v", got, want)
	}
	if got, want := c.Bus.EmitThrottle(), 500*time.Millisecond; got != want {
		t.Errorf("Bus.EmitThrottle() = %v, want %v", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c := Default()
	c.LogLevel = "debug"
	c.Bus.URL = "wss://staging.fluidicml.com/adapter"
	if err := Save(c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", loaded.LogLevel, "debug")
	}
	if loaded.Bus.URL != c.Bus.URL {
		t.Errorf("Bus.URL = %q, want %q", loaded.Bus.URL, c.Bus.URL)
	}
}
