package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/phanxgames/matrixclock/config"
)

// ExitError is an error carrying a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Options are the parsed command-line settings.
type Options struct {
	// ConfigPath is the HCL file to load; empty selects config.Default.
	ConfigPath string
	// Display overrides the configured backend when set.
	Display   string
	LogFormat string
	LogLevel  string
	// LogFile receives log output instead of the command's output stream.
	LogFile string
}

// Parse processes command-line arguments. It returns the options, whether the
// program should exit cleanly (help was requested), or an *ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	flagSet := flag.NewFlagSet("matrixclock", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
matrixclock - a scriptable 64x32 LED matrix clock.

Usage:
  matrixclock [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to an HCL engine config. Built-in defaults are used when omitted.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the HCL engine config.")
	displayFlag := flagSet.String("display", "", "Display backend override. Options: 'ebiten', 'terminal', 'headless'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFileFlag := flagSet.String("log-file", "", "Write logs to this file. Required to see logs with the terminal display.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	path := *configFlag
	if path == "" && flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "too many arguments"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	display := strings.ToLower(*displayFlag)
	switch display {
	case "", config.BackendEbiten, config.BackendTerminal, config.BackendHeadless:
	default:
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid display: %q", *displayFlag)}
	}

	return &Options{
		ConfigPath: path,
		Display:    display,
		LogFormat:  logFormat,
		LogLevel:   logLevel,
		LogFile:    *logFileFlag,
	}, false, nil
}

// NewLogger creates a logger for the given level and format. It does not set
// the global logger.
func NewLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
