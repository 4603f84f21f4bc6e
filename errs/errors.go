// Package errs defines the error values shared by the region format engines.
//
// Structural violations that carry no useful payload are sentinel errors and
// should be tested with errors.Is. Failures that carry diagnostic payloads
// (signature mismatches, version and chunk count disagreements, exhausted
// decompression strategies) are structured types and should be tested with
// errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat indicates a structural violation: a short file, a
	// cursor/length mismatch, or a malformed region filename.
	ErrInvalidFormat = errors.New("invalid file format")

	// ErrUnsupportedCompression indicates a sector chunk header with a
	// compression code other than inline zlib (2) or external zlib (130).
	// It is a structural violation, so it matches ErrInvalidFormat.
	ErrUnsupportedCompression = fmt.Errorf("unsupported chunk compression code: %w", ErrInvalidFormat)

	// ErrInvalidChunkIndex indicates a chunk index outside [0, 1024).
	ErrInvalidChunkIndex = errors.New("chunk index out of range")

	// ErrRegionOverflow indicates a chunk whose compressed payload exceeds
	// 255 sectors in a context that cannot route it to an external file.
	ErrRegionOverflow = errors.New("chunk exceeds maximum sector count")
)

// InvalidSignatureError reports a stream file whose leading or trailing
// signature does not match the format constant.
type InvalidSignatureError struct {
	Expected uint64
	Found    uint64
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature: expected %#x, found %#x", e.Expected, e.Found)
}

// UnsupportedVersionError reports a stream header version outside {1, 2}.
type UnsupportedVersionError struct {
	Version uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported version: %d", e.Version)
}

// InvalidChunkCountError reports a stream header chunk count that disagrees
// with the number of non-empty entries in the decompressed meta prefix.
type InvalidChunkCountError struct {
	Expected uint16
	Found    uint16
}

func (e *InvalidChunkCountError) Error() string {
	return fmt.Sprintf("invalid chunk count: expected %d, found %d", e.Expected, e.Found)
}

// DecompressionError reports that every decompression strategy failed.
// Reason holds the message of the last strategy attempted.
type DecompressionError struct {
	Reason string
}

func (e *DecompressionError) Error() string {
	return "decompression failed: " + e.Reason
}

// CompressionError reports an output-side compressor failure.
type CompressionError struct {
	Reason string
}

func (e *CompressionError) Error() string {
	return "compression failed: " + e.Reason
}
