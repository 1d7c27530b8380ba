package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Alijeyrad/carevisit_backend/config"
	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
)

// Options tweak New for callers that own the terminal.
type Options struct {
	// NoStdout drops the stdout sink even when configured. The calendar TUI
	// draws on stdout and logs to file only.
	NoStdout bool
}

// New builds a logger from config, fanning out to stdout, a rotated file and
// Loki as configured. The returned func flushes and stops the sinks.
func New(cfg *config.Config, opts ...Options) (*slog.Logger, func()) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	level := parseLevel(cfg.Logging.Level)
	isDev := strings.EqualFold(cfg.Server.Environment, "development")
	out := cfg.Logging.Output

	var writers []io.Writer
	if !o.NoStdout && (out.Stdout || (!out.File.Enabled && !out.Loki.Enabled)) {
		writers = append(writers, os.Stdout)
	}
	if out.File.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   out.File.Path,
			MaxSize:    out.File.MaxSizeMB,
			MaxBackups: out.File.MaxBackups,
			MaxAge:     out.File.MaxAgeDays,
			Compress:   out.File.Compress,
		})
	}

	var (
		handlers []slog.Handler
		stops    []func()
	)
	if len(writers) > 0 {
		handlers = append(handlers, writerHandler(io.MultiWriter(writers...), cfg.Logging.Format, level, isDev))
	}

	if out.Loki.Enabled {
		h, stop, err := newLokiHandler(out.Loki, level)
		if err != nil {
			// keep the other sinks; a broken log shipper must not stop the service
			slog.Warn("loki logging disabled", "err", err)
		} else {
			handlers = append(handlers, h)
			stops = append(stops, stop)
		}
	}

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.NewTextHandler(io.Discard, nil)
	case 1:
		h = handlers[0]
	default:
		h = &multiHandler{handlers: handlers}
	}

	serviceName := cfg.Observability.ServiceName
	if serviceName == "" {
		serviceName = constants.ServiceName
	}
	logger := slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("env", cfg.Server.Environment),
	)
	return logger, func() {
		for _, stop := range stops {
			stop()
		}
	}
}

func writerHandler(w io.Writer, format string, level slog.Level, isDev bool) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: isDev}
	if strings.EqualFold(format, "json") || !isDev {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func Default() *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(h).With(slog.String("service", constants.ServiceName))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
