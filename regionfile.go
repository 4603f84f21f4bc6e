// Package regionfile converts and repairs voxel-world region files between
// the legacy sector-addressed format (.mca, with .mcc overflow siblings) and
// the single-stream compressed format (.linear).
//
// # Core Packages
//
//   - anvil: the sector format engine (read, write, external overflow files)
//   - linear: the stream format engine (read, write, envelope verification)
//   - region: the in-memory model shared by both engines
//   - repair: the chunk payload repair engine
//   - nbt: the tagged-value codec the repair engine consumes
//
// # Basic Usage
//
// Converting one file:
//
//	r, err := regionfile.ReadFile("world/region/r.0.0.mca", nil)
//	if err != nil {
//	    return err
//	}
//	err = regionfile.WriteFile("out/r.0.0.linear", r, 6, nil)
//
// The destination format is chosen by file extension. Both writers assemble
// the file in memory, replace the destination atomically, and stamp it with
// the source's modification time, so conversions are idempotent under
// mtime-based skip logic.
package regionfile

import (
	"fmt"
	"path/filepath"

	"github.com/arloliu/regionfile/anvil"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/linear"
	"github.com/arloliu/regionfile/region"
)

// Format identifies an on-disk region file format.
type Format int

const (
	// FormatUnknown is a file whose extension matches neither format.
	FormatUnknown Format = iota
	// FormatAnvil is the sector-addressed legacy format (.mca).
	FormatAnvil
	// FormatLinear is the single-stream compressed format (.linear).
	FormatLinear
)

// DetectFormat maps a file path to its region format by extension.
func DetectFormat(path string) Format {
	switch filepath.Ext(path) {
	case ".mca":
		return FormatAnvil
	case ".linear":
		return FormatLinear
	default:
		return FormatUnknown
	}
}

// ReadFile reads a region file of either format, chosen by extension.
// counters may be nil.
func ReadFile(path string, counters *region.Counters) (*region.Region, error) {
	switch DetectFormat(path) {
	case FormatAnvil:
		return anvil.ReadRegion(path, counters)
	case FormatLinear:
		return linear.ReadRegion(path, counters)
	default:
		return nil, fmt.Errorf("region file %s: unrecognized extension: %w", path, errs.ErrInvalidFormat)
	}
}

// WriteFile writes a region in the format chosen by the destination
// extension. counters may be nil.
func WriteFile(path string, r *region.Region, compressionLevel int, counters *region.Counters) error {
	switch DetectFormat(path) {
	case FormatAnvil:
		return anvil.WriteRegion(path, r, compressionLevel, counters)
	case FormatLinear:
		return linear.WriteRegion(path, r, compressionLevel, counters)
	default:
		return fmt.Errorf("region file %s: unrecognized extension: %w", path, errs.ErrInvalidFormat)
	}
}
