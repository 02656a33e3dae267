package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Transport TransportConfig `yaml:"transport"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Secure    bool   `yaml:"secure"`
	Token     string `yaml:"token"`
	APIPrefix string `yaml:"api_prefix"`
}

type SessionConfig struct {
	// Codec selects the frame encoding: "json" or "cbor".
	Codec string `yaml:"codec"`
	// ReconnectDelay is how long to wait before reopening a channel the
	// server disconnected.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	// ConnectionLostDelay debounces the connection-lost notice.
	ConnectionLostDelay time.Duration `yaml:"connection_lost_delay"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
}

type TransportConfig struct {
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PongTimeout        time.Duration `yaml:"pong_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
}

type SnapshotConfig struct {
	// Path is an image file returned for take_xtal_snapshot requests.
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "localhost",
			Port:      8081,
			APIPrefix: "/mxcube/api/v0.1",
		},
		Session: SessionConfig{
			Codec:               "json",
			ReconnectDelay:      500 * time.Millisecond,
			ConnectionLostDelay: 2 * time.Second,
			RequestTimeout:      10 * time.Second,
		},
		Transport: TransportConfig{
			ReconnectBaseDelay: time.Second,
			ReconnectMaxDelay:  30 * time.Second,
			PingInterval:       30 * time.Second,
			PongTimeout:        60 * time.Second,
			WriteTimeout:       10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Session.Codec {
	case "json", "cbor":
	default:
		return fmt.Errorf("session.codec %q: want json or cbor", c.Session.Codec)
	}

	durations := []struct {
		name string
		d    time.Duration
	}{
		{"session.reconnect_delay", c.Session.ReconnectDelay},
		{"session.connection_lost_delay", c.Session.ConnectionLostDelay},
		{"session.request_timeout", c.Session.RequestTimeout},
		{"transport.reconnect_base_delay", c.Transport.ReconnectBaseDelay},
		{"transport.reconnect_max_delay", c.Transport.ReconnectMaxDelay},
		{"transport.ping_interval", c.Transport.PingInterval},
		{"transport.pong_timeout", c.Transport.PongTimeout},
		{"transport.write_timeout", c.Transport.WriteTimeout},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.d)
		}
	}
	if c.Transport.ReconnectMaxDelay < c.Transport.ReconnectBaseDelay {
		return fmt.Errorf("transport.reconnect_max_delay %v is below reconnect_base_delay %v",
			c.Transport.ReconnectMaxDelay, c.Transport.ReconnectBaseDelay)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q: want debug, info, warn or error", l.Level)
}

// BaseURL is the HTTP origin of the server, e.g. "http://localhost:8081".
func (s ServerConfig) BaseURL() string {
	scheme := "http"
	if s.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, s.Host, s.Port)
}
