package def

import (
	"github.com/pkg/errors"
)

// Error kinds returned by the decoder. Returned errors carry additional
// context and should be tested with errors.Is.
var (
	ErrTruncatedInput       = errors.New("def: truncated input")
	ErrInvalidHeader        = errors.New("def: invalid header")
	ErrInvalidGroupTable    = errors.New("def: invalid group table")
	ErrTruncatedFrame       = errors.New("def: truncated frame")
	ErrUnknownCompression   = errors.New("def: unknown compression variant")
	ErrDecompressionOverrun = errors.New("def: decompression overrun")
	ErrNoSuchFrame          = errors.New("def: no such frame")
)
