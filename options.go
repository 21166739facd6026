package rmask

import (
	"log/slog"
	"time"
)

// Option configures an Editor during creation.
// Use functional options to customize Editor behavior.
//
// Example:
//
//	// Defaults: 100px brush, masks fully opaque, no persistence
//	ed := rmask.NewEditor(1024, 1024)
//
//	// Persist 300ms after the last edit
//	ed := rmask.NewEditor(1024, 1024, rmask.WithSyncFunc(store.Put))
type Option func(*options)

// options holds optional configuration for Editor creation.
type options struct {
	syncFn      SyncFunc
	syncDelay   time.Duration
	brushSize   float64
	maskOpacity float64
	thumbSize   int
	logger      *slog.Logger
}

// defaultOptions returns the default editor options.
func defaultOptions() options {
	return options{
		syncDelay: DefaultSyncDelay,
		brushSize: DefaultBrushSize,
		thumbSize: DefaultThumbnailSize,
	}
}

// WithSyncFunc sets the function that persists editor state.
// It is called with a deep copy of the state on a timer goroutine, after
// edits have been quiet for the sync delay, and on Flush.
func WithSyncFunc(fn SyncFunc) Option {
	return func(o *options) {
		o.syncFn = fn
	}
}

// WithSyncDelay overrides DefaultSyncDelay. Non-positive values keep the
// default.
func WithSyncDelay(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.syncDelay = d
		}
	}
}

// WithBrushSize sets the initial brush diameter in canvas pixels.
func WithBrushSize(size float64) Option {
	return func(o *options) {
		o.brushSize = size
	}
}

// WithMaskOpacity sets the initial mask opacity setting in [0, 100].
func WithMaskOpacity(percent float64) Option {
	return func(o *options) {
		o.maskOpacity = percent
	}
}

// WithThumbnailSize sets the edge length of layer thumbnails.
func WithThumbnailSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.thumbSize = size
		}
	}
}

// WithLogger sets the logger used for this editor's messages. Without it
// the editor logs through the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
