/*
PURPOSE:
  Provides a structured logger for flame-speed.
  Wraps slog for consistent output.

REQUIREMENTS:
  User-specified:
  - Progress output for long reductions: selected reaction, weight, remaining count, new speed.

  Implementation-discovered:
  - Needs Debug for network chatter, Info for progress, Warn for retries, Error for failures.
  - Level comes from --log-level or log_level in the config file.

ARCHITECTURE INTEGRATION:
  - Used everywhere.

ERROR HANDLING:
  - ParseLevel rejects unknown level names.

IMPLEMENTATION RULES:
  - Use `log/slog` (Go 1.21+).
  - Logs go to stderr so stdout stays clean for `inspect`.

USAGE:
  output.Logger.Info("message", "key", "value")
  output.Configure(os.Stderr, "debug")

SELF-HEALING INSTRUCTIONS:
  - Ensure Go 1.21+ is used.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - JSON handler for non-interactive runs?
*/

package output

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

func init() {
	Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// SetLogger allows overriding the default logger (e.g. for testing or config changes)
func SetLogger(l *slog.Logger) {
	Logger = l
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Configure installs a text logger writing to w at the named level.
func Configure(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
	return nil
}
