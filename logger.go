package rmask

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Editors embedded in a host that never
// calls SetLogger stay quiet, and disabled levels cost one atomic load.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// The sync timer of any open editor may log at any moment, so the logger
// is swapped atomically.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger sets the logger shared by the engine, codec, regional and
// saves packages. Editors created with WithLogger use their own logger
// instead. Nil silences output again.
//
// Debug covers new layers, history pushes, abandoned gestures, opened
// sessions and region extraction. Info covers layer deletion, canvas
// resizes, decodes and saved files. Warn is for input that was partly
// unusable without failing the operation, such as a layer raster dropped
// during decode or a save file whose embedded state could not be parsed.
//
// The rmask CLI wires this to a text handler on stderr:
//
//	rmask.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the shared logger. It is never nil.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
