// Package config loads SugarGuard configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Config holds process configuration. Credentials come from the LINE
// developer console; everything else has a sensible default.
type Config struct {
	// LINE Messaging API credentials
	ChannelSecret string `env:"LINE_CHANNEL_SECRET,required"`
	ChannelToken  string `env:"LINE_CHANNEL_ACCESS_TOKEN,required"`

	// Storage
	DatabaseURL string `env:"DATABASE_URL"`
	StateDir    string `env:"SUGARGUARD_STATE_DIR" envDefault:"/var/lib/sugarguard"`

	// HTTP
	Addr string `env:"API_ADDR" envDefault:":8080"`
}

// New parses the configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DebugEnabled reports whether SUGARGUARD_DEBUG asks for debug-level logging.
// It reads the variable directly rather than through New so the logger can be
// configured before any other startup work, including config parsing itself.
// Accepts the strconv.ParseBool forms plus on/off.
func DebugEnabled() bool {
	raw := strings.TrimSpace(os.Getenv("SUGARGUARD_DEBUG"))
	if raw == "" {
		return false
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	switch strings.ToLower(raw) {
	case "on":
		return true
	case "off":
		return false
	}
	slog.Warn("Unrecognized SUGARGUARD_DEBUG value, debug logging stays off", "value", raw)
	return false
}
