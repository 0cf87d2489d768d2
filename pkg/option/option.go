package option

import (
	"github.com/go-logr/logr"
)

// ProgressCallback defines the signature for progress update functions.
// Parameters:
// - stage: A short description of the work in progress, e.g. "zero-fill".
// - bytesWritten: The number of bytes written so far.
// - totalBytes: The total number of bytes to be written.
type ProgressCallback func(
	stage string,
	bytesWritten int64,
	totalBytes int64,
)

// Options represents the options for opening or creating a disk image
type Options struct {
	Logger           logr.Logger
	ProgressCallback ProgressCallback
	ReadOnly         bool
	FixedTable       bool
	StrictTable      bool
}

// Option represents a function that modifies the Options
type Option func(*Options)

// Default returns the options used when none are supplied.
func Default() Options {
	return Options{
		Logger:     logr.Discard(),
		FixedTable: true,
	}
}

// Apply returns the defaults modified by opts.
func Apply(opts ...Option) Options {
	o := Default()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger passed to every component of the disk
func WithLogger(logger logr.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithProgress sets a progress callback function that will be called while an image is written.
func WithProgress(callback ProgressCallback) Option {
	return func(o *Options) {
		o.ProgressCallback = callback
	}
}

// WithReadOnly opens the image without write access. Flush fails on a read-only disk.
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

// WithFixedTable sets whether Flush writes the partition table zero-filled to capacity (the default) or only the
// populated entries.
func WithFixedTable(fixed bool) Option {
	return func(o *Options) {
		o.FixedTable = fixed
	}
}

// WithStrictTable makes the partition table reject data that does not divide into whole entries.
func WithStrictTable(strict bool) Option {
	return func(o *Options) {
		o.StrictTable = strict
	}
}
