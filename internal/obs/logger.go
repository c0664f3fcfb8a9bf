// Package obs carries Kiln's ambient observability stack: a zerolog
// logger configuration (Init), and the prometheus metrics kernel
// dispatch records on the hot path. No kernel or command in this module
// calls Init or writes log events.
package obs

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger the way cmd/fletcher's main
// does: console-formatted, RFC3339 timestamps, caller info attached.
// Kernels never log per-call on the hot path.
func Init(level zerolog.Level) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Caller().
		Logger().
		Level(level)
}
