// Package config holds authctl settings: defaults, then environment, then
// command-line flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// Config holds runtime settings for the authctl CLI.
//
// Fields:
//   - ServerURL: base URL of the authkeeper HTTP API.
//   - SessionFile: where the current token pair is kept between runs.
//   - Timeout: per-request HTTP timeout.
type Config struct {
	ServerURL   string        `env:"AUTHCTL_SERVER"`
	SessionFile string        `env:"AUTHCTL_SESSION"`
	Timeout     time.Duration `env:"AUTHCTL_TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.Timeout = 10 * time.Second

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.SessionFile = filepath.Join(home, ".authkeeper", "session.json")
}

// LoadConfig builds a Config from defaults, the environment and args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseFlags overlays the flags it knows about:
//
//	-a string        server base URL
//	-session string  session file path
//	-timeout dur     request timeout
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-session", "-timeout"})

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "authkeeper server base URL")
	fs.StringVar(&cfg.SessionFile, "session", cfg.SessionFile, "session file")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")

	return fs.Parse(args)
}
