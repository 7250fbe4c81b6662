// Package server — configuration.
// The server is configured from a YAML file; every value has a default so a
// minimal file only needs the upstream URL.
package server

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for optional configuration values.
const (
	DefaultListen       = ":8080"
	DefaultAMPPrefix    = "/amp"
	DefaultStaticPrefix = "/static/"
	DefaultProbeTimeout = 10 * time.Second
)

// Configuration validation errors. Sentinel values so callers can match
// with errors.Is.
var (
	// ErrNoUpstream is returned when the upstream base URL is missing.
	ErrNoUpstream = errors.New("no upstream configured: set upstream to the canonical site base URL")

	// ErrBadUpstream is returned when the upstream base URL does not parse
	// as an absolute URL.
	ErrBadUpstream = errors.New("invalid upstream: must be an absolute URL")
)

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// StaticConfig maps a URL prefix to the directory serving it. It feeds the
// stylesheet resolver and nothing else; the upstream serves the assets
// themselves.
type StaticConfig struct {
	// URLPrefix is the path prefix under which the upstream serves static
	// assets (e.g. "/static/").
	URLPrefix string `yaml:"url_prefix"`

	// Dir is the local directory holding the same assets.
	Dir string `yaml:"dir"`
}

// Config holds the AMP proxy server configuration.
type Config struct {
	// Listen is the address the server binds to.
	Listen string `yaml:"listen"`

	// Upstream is the base URL of the canonical (non-AMP) site.
	Upstream string `yaml:"upstream"`

	// AMPPrefix is the path prefix under which AMP variants are served.
	// A request for <AMPPrefix>/foo mirrors the canonical page /foo.
	AMPPrefix string `yaml:"amp_prefix"`

	// Static configures the stylesheet resolver.
	Static StaticConfig `yaml:"static"`

	// ProbeTimeout bounds each image dimension probe. An unresponsive
	// image host must not stall a whole page transformation.
	ProbeTimeout Duration `yaml:"probe_timeout"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.AMPPrefix == "" {
		c.AMPPrefix = DefaultAMPPrefix
	}
	if c.Static.URLPrefix == "" {
		c.Static.URLPrefix = DefaultStaticPrefix
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = Duration(DefaultProbeTimeout)
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Upstream == "" {
		return ErrNoUpstream
	}
	u, err := url.Parse(c.Upstream)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrBadUpstream
	}
	return nil
}
