package raster

import "errors"

// Fatal error categories from spec.md §7. InputError conditions surface
// as one of the first three; TransientDecoderError surfaces as
// ErrTransientDecoder and is retried once by the caller before becoming
// fatal.
var (
	ErrFileNotFound      = errors.New("raster: file not found")
	ErrUnsupportedFormat = errors.New("raster: unsupported format")
	ErrWindowOutOfBounds = errors.New("raster: window out of bounds")
	ErrTransientDecoder  = errors.New("raster: transient decoder error")
)
