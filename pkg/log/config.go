// Package log wires zerolog up as the process-wide structured logger.
// Configure it once at startup via Init; request-scoped children travel
// on the context (see Ctx).
package log

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the output level and format.
type Config struct {
	Level       string `mapstructure:"level"`
	Pretty      bool   `mapstructure:"pretty"`
	ServiceName string `mapstructure:"service_name"`
}

var (
	// JSON at info level until Init runs.
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
	once   sync.Once
)

// Init configures the process-wide logger from the service config. Later
// calls are no-ops. The stdlib logger is redirected too, so stray
// log.Printf calls still come out as structured JSON.
func Init(cfg Config) {
	once.Do(func() {
		var out io.Writer = os.Stdout
		if cfg.Pretty {
			out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
		}

		level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
		if err != nil || level == zerolog.NoLevel {
			level = zerolog.InfoLevel
		}

		lc := zerolog.New(out).Level(level).With().Timestamp()
		if cfg.ServiceName != "" {
			lc = lc.Str(FieldService, cfg.ServiceName)
		}
		global = lc.Logger()

		stdlog.SetFlags(0)
		stdlog.SetOutput(global.With().Str("source", "stdlog").Logger())
	})
}

// L returns the process-wide logger.
func L() zerolog.Logger {
	return global
}
