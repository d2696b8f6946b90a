// Package diag provides the diagnostic sink used by the compiler and
// processor: a structured, leveled logger that tolerates a nil handle so
// library callers who don't want logging can pass nothing at all.
package diag

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Config controls the package-level logger's verbosity and formatting.
type Config struct {
	// Verbose enables debug-level logging, timestamps, and caller info.
	Verbose bool

	// Timestamps controls timestamp display. Nil means use default (true).
	Timestamps *bool
}

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	ReportCaller:    false,
	TimeFormat:      "15:04:05",
})

// Setup reconfigures the package-level logger, mirroring the CLI's
// --verbose flag.
func Setup(cfg Config) {
	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	showTimestamps := true
	if cfg.Timestamps != nil {
		showTimestamps = *cfg.Timestamps
	}
	if cfg.Verbose {
		showTimestamps = true
	}

	logger = log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: showTimestamps,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "15:04:05",
	})
}

var (
	colorCyan = lipgloss.Color("14")
	styleDim  = lipgloss.NewStyle().Faint(true)
	styleNoun = lipgloss.NewStyle().Foreground(colorCyan)
)

// Sink is the diagnostic-sink collaborator handed to the compiler and
// processor: (level, message, structured_data) with an optional scope
// prefix (a provider name, a bundle path). A nil *Sink is valid and every
// method on it is a no-op, so callers that don't want diagnostics can pass
// nil without branching.
type Sink struct {
	logger *log.Logger
}

// ScopedSink returns a Sink whose output is prefixed with the given scope
// name (e.g. a provider name during compilation, or "bundle" during load).
func ScopedSink(scope string) *Sink {
	prefix := fmt.Sprintf("%s%s",
		styleDim.Render("s:"),
		styleNoun.Render(scope),
	)
	return &Sink{logger: logger.WithPrefix(prefix)}
}

// RootSink returns a Sink with no scope prefix.
func RootSink() *Sink { return &Sink{logger: logger} }

func (s *Sink) Debug(msg string, keyvals ...any) {
	if s == nil {
		return
	}
	s.logger.Debug(msg, keyvals...)
}

func (s *Sink) Info(msg string, keyvals ...any) {
	if s == nil {
		return
	}
	s.logger.Info(msg, keyvals...)
}

func (s *Sink) Warn(msg string, keyvals ...any) {
	if s == nil {
		return
	}
	s.logger.Warn(msg, keyvals...)
}

func (s *Sink) Error(msg string, keyvals ...any) {
	if s == nil {
		return
	}
	s.logger.Error(msg, keyvals...)
}

// Debug logs at the package level (unscoped), used by top-level CLI code.
func Debug(msg string, keyvals ...any) { logger.Debug(msg, keyvals...) }
func Info(msg string, keyvals ...any)  { logger.Info(msg, keyvals...) }
func Warn(msg string, keyvals ...any)  { logger.Warn(msg, keyvals...) }
func Error(msg string, keyvals ...any) { logger.Error(msg, keyvals...) }

// Details prints supplementary multi-line content to stderr — used for
// validation reports that don't fit the key-value log format.
func Details(msg string) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, msg)
}

// Println writes a line to stdout, unformatted — used for CLI command
// results (compiled bundle summaries, validation pass/fail lines).
func Println(msg string) {
	os.Stdout.WriteString(msg + "\n")
}

// BoolPtr is a convenience constructor for Config.Timestamps.
func BoolPtr(b bool) *bool { return &b }
