// Package logx provides the structured-logging seam used by the
// dispatch engine and queue facade.
//
// Adapted from the retrieval pack's bassosimone-nop SLogger
// abstraction: an interface narrow enough that *slog.Logger satisfies
// it directly, with a discarding default so the engine never writes
// to stdout/stderr unless a caller opts in.
package logx

import (
	"github.com/google/uuid"
)

// Logger is the structured-logging contract. *slog.Logger satisfies
// this interface, as do test doubles that record calls.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// Default returns a no-op Logger.
func Default() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(msg string, args ...any) {}
func (discard) Info(msg string, args ...any)  {}

// NewSpanID returns a UUIDv7 used only to correlate log lines emitted
// for the same Message; it is never a stable identity (spec.md §3:
// "identity: no stable ID; pointer identity suffices").
func NewSpanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Practically unreachable: NewV7 only fails if the system
		// random source is broken. Fall back to the nil UUID rather
		// than panicking a library call out of a logging helper.
		return uuid.Nil.String()
	}
	return id.String()
}
