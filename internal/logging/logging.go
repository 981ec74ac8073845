// Package logging configures the zerolog logger used across the client.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bluetuith-org/pbap-client/api/config"
	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "PBAP_LOG_LEVEL"
	EnvLogTimestamp = "PBAP_LOG_TIMESTAMP"
	EnvLogNoColor   = "PBAP_LOG_NOCOLOR"
)

// New returns a console logger writing to out, configured from cfg and
// then from the environment.
func New(out io.Writer, cfg config.LogConfig) zerolog.Logger {
	applyEnvOverrides(&cfg)

	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		output.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "pbapctl").Logger()
}

// NewStderr returns New(os.Stderr, cfg).
func NewStderr(cfg config.LogConfig) zerolog.Logger {
	return New(os.Stderr, cfg)
}

func applyEnvOverrides(cfg *config.LogConfig) {
	if lvl := strings.TrimSpace(os.Getenv(EnvLogLevel)); lvl != "" {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel parses a level name, accepting a few aliases.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
