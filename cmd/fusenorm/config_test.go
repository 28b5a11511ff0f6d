package main

import (
	"context"
	"testing"

	"github.com/urfave/cli/v3"
)

// runLoggingMerge runs a command with the logging flags and applies cfg the
// way the Before hook does, returning the resolved level and format.
func runLoggingMerge(t *testing.T, args []string, cfg Config) (string, string) {
	t.Helper()
	var level, format string
	cmd := &cli.Command{
		Name:  "fusenorm",
		Flags: loggingFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			level, format = logLevel, logFormat
			applyLoggingConfig(c, cfg, &level, &format)
			return nil
		},
	}
	if err := cmd.Run(context.Background(), append([]string{"fusenorm"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return level, format
}

func TestLoggingConfigAppliesWhenFlagsUnset(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "json"}
	level, format := runLoggingMerge(t, nil, cfg)
	if level != "debug" {
		t.Errorf("level = %q, want config value debug", level)
	}
	if format != "json" {
		t.Errorf("format = %q, want config value json", format)
	}
}

func TestLoggingFlagsWinOverConfig(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "json"}
	level, format := runLoggingMerge(t, []string{"--log-level", "warn", "--log-format", "text"}, cfg)
	if level != "warn" {
		t.Errorf("level = %q, want flag value warn", level)
	}
	if format != "text" {
		t.Errorf("format = %q, want flag value text", format)
	}
}

func TestLoggingDefaultsWithoutConfig(t *testing.T) {
	level, format := runLoggingMerge(t, nil, Config{})
	if level != "info" {
		t.Errorf("level = %q, want default info", level)
	}
	if format != "pretty" {
		t.Errorf("format = %q, want default pretty", format)
	}
}
