// Package config loads the station configuration: a yaml file plus
// RINGSIDE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ringsidehq/ringside/internal/feed"
	"github.com/ringsidehq/ringside/internal/models"
)

// Config is the station configuration file.
type Config struct {
	// APIBaseURL is the scoring backend's REST root.
	APIBaseURL string `yaml:"api_base_url"`
	// WSBaseURL is the push channel root.
	WSBaseURL string `yaml:"ws_base_url"`
	// AuthToken is an optional bearer token for the REST API.
	AuthToken string `yaml:"auth_token"`

	Feed struct {
		KeepaliveSeconds        int `yaml:"keepalive_seconds"`
		ReconnectBackoffSeconds int `yaml:"reconnect_backoff_seconds"`
	} `yaml:"feed"`

	Match MatchSection `yaml:"match"`
}

// MatchSection describes the bout the station should open. Durations
// are clock strings because that is how match records store them.
type MatchSection struct {
	MatchID       int64             `yaml:"match_id"`
	Category      string            `yaml:"category"`
	Area          string            `yaml:"area"`
	Red           models.Competitor `yaml:"red"`
	Blue          models.Competitor `yaml:"blue"`
	RoundDuration string            `yaml:"round_duration"`
	RestDuration  string            `yaml:"rest_duration"`
	TotalRounds   int               `yaml:"total_rounds"`
}

// Load reads the yaml file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://localhost:8080"
	}
	if c.WSBaseURL == "" {
		c.WSBaseURL = "ws://localhost:8080"
	}
	if c.Feed.KeepaliveSeconds <= 0 {
		c.Feed.KeepaliveSeconds = 30
	}
	if c.Feed.ReconnectBackoffSeconds <= 0 {
		c.Feed.ReconnectBackoffSeconds = 3
	}
	if c.Match.RoundDuration == "" {
		c.Match.RoundDuration = "00:03:00"
	}
	if c.Match.RestDuration == "" {
		c.Match.RestDuration = "00:01:00"
	}
	if c.Match.TotalRounds == 0 {
		c.Match.TotalRounds = 3
	}
	if c.Match.Red.Side == "" {
		c.Match.Red.Side = models.SideRed
	}
	if c.Match.Blue.Side == "" {
		c.Match.Blue.Side = models.SideBlue
	}
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getEnv("RINGSIDE_API_BASE_URL", c.APIBaseURL)
	c.WSBaseURL = getEnv("RINGSIDE_WS_BASE_URL", c.WSBaseURL)
	c.AuthToken = getEnv("RINGSIDE_AUTH_TOKEN", c.AuthToken)
}

// FeedConfig maps the file settings onto the push channel client.
func (c *Config) FeedConfig() feed.Config {
	fc := feed.DefaultConfig(c.WSBaseURL)
	fc.KeepaliveInterval = time.Duration(c.Feed.KeepaliveSeconds) * time.Second
	fc.ReconnectBackoff = time.Duration(c.Feed.ReconnectBackoffSeconds) * time.Second
	return fc
}

// MatchConfig parses the match section into the session configuration.
func (c *Config) MatchConfig() (models.MatchConfig, error) {
	round, err := models.ParseClockDuration(c.Match.RoundDuration)
	if err != nil {
		return models.MatchConfig{}, fmt.Errorf("round_duration: %w", err)
	}
	rest, err := models.ParseClockDuration(c.Match.RestDuration)
	if err != nil {
		return models.MatchConfig{}, fmt.Errorf("rest_duration: %w", err)
	}
	mc := models.MatchConfig{
		MatchID:       c.Match.MatchID,
		Category:      c.Match.Category,
		Area:          c.Match.Area,
		Red:           c.Match.Red,
		Blue:          c.Match.Blue,
		RoundDuration: round,
		RestDuration:  rest,
		TotalRounds:   c.Match.TotalRounds,
	}
	if err := mc.Validate(); err != nil {
		return models.MatchConfig{}, err
	}
	return mc, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
