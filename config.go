package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	StaticDir       string        `yaml:"staticDir"`
}

// UDPConfig contains the S-LDM datagram listener configuration
type UDPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind" validate:"omitempty,ip"`
	Port    int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// FeedConfig selects at most one polled vehicle feed
type FeedConfig struct {
	GTFSRTURL      string        `yaml:"gtfsrtURL" validate:"omitempty,url"`
	SiriXMLURL     string        `yaml:"siriXmlURL" validate:"omitempty,url"`
	SiriJSONURL    string        `yaml:"siriJsonURL" validate:"omitempty,url"`
	RefreshMinSecs int           `yaml:"refreshMinSecs" validate:"gte=1"`
	Timeout        time.Duration `yaml:"timeout"`
	StationType    int           `yaml:"stationType" validate:"gte=0"`
}

// MapConfig contains map options announced by polled feeds
type MapConfig struct {
	Token string `yaml:"token"`
}

// RelayConfig toggles the socket.io relay for legacy browser clients
type RelayConfig struct {
	SocketIO bool `yaml:"socketio"`
}

// LogConfig contains logger configuration
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Config is the root configuration structure
type Config struct {
	Server ServerConfig `yaml:"server"`
	UDP    UDPConfig    `yaml:"udp"`
	Feed   FeedConfig   `yaml:"feed"`
	Map    MapConfig    `yaml:"map"`
	Relay  RelayConfig  `yaml:"relay"`
	Log    LogConfig    `yaml:"log"`
}

// busStationType is the ETSI station type used for polled transit vehicles.
const busStationType = 6

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			StaticDir:       "./static",
		},
		UDP: UDPConfig{
			Enabled: true,
			Bind:    "0.0.0.0",
			Port:    48110,
		},
		Feed: FeedConfig{
			RefreshMinSecs: 10,
			Timeout:        10 * time.Second,
			StationType:    busStationType,
		},
		Relay: RelayConfig{SocketIO: true},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// loadConfig reads path over the defaults. An empty path yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	feeds := 0
	for _, u := range []string{c.Feed.GTFSRTURL, c.Feed.SiriXMLURL, c.Feed.SiriJSONURL} {
		if u != "" {
			feeds++
		}
	}
	if feeds > 1 {
		return errors.New("invalid config: provide at most one of feed.gtfsrtURL, feed.siriXmlURL, feed.siriJsonURL")
	}
	if feeds == 0 && !c.UDP.Enabled {
		return errors.New("invalid config: no update source, enable udp or configure a feed")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("invalid config: server.shutdownTimeout must be positive")
	}
	return nil
}
