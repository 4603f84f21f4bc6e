package anvil

import (
	"fmt"
	"path/filepath"

	"github.com/arloliu/regionfile/compress"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/internal/fsutil"
	"github.com/arloliu/regionfile/internal/pool"
	"github.com/arloliu/regionfile/region"
)

// WriteRegion writes a region as a sector-format file.
//
// The file image is assembled in memory and written with an atomic replace,
// then stamped with the region's mtime. Chunks whose compressed payload
// exceeds 255 sectors are routed to sibling overflow files, each atomically
// written and stamped the same way. counters may be nil.
func WriteRegion(path string, r *region.Region, compressionLevel int, counters *region.Counters) error {
	destDir := filepath.Dir(path)

	buf := pool.GetFileBuffer()
	defer pool.PutFileBuffer(buf)

	if err := assemble(buf, r, compressionLevel, destDir); err != nil {
		return fmt.Errorf("write region %s: %w", path, err)
	}

	if err := fsutil.AtomicWrite(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write region %s: %w", path, err)
	}

	if err := fsutil.SetMtime(path, r.Mtime); err != nil {
		return fmt.Errorf("write region %s: %w", path, err)
	}

	if counters != nil {
		counters.AddFile()
		counters.AddBytesWritten(uint64(buf.Len()))
		counters.AddChunks(uint64(r.ChunkCount()))
	}

	return nil
}

// Bytes assembles a sector-format image in memory.
//
// Unlike WriteRegion it has nowhere to put overflow files, so a chunk that
// needs more than 255 sectors fails with errs.ErrRegionOverflow.
func Bytes(r *region.Region, compressionLevel int) ([]byte, error) {
	buf := &pool.ByteBuffer{}
	if err := assemble(buf, r, compressionLevel, ""); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// assemble builds the complete file image into buf. When externalDir is
// empty, oversized chunks are an error instead of an overflow file.
func assemble(buf *pool.ByteBuffer, r *region.Region, compressionLevel int, externalDir string) error {
	var locations [region.ChunksPerRegion]chunkLocation

	sectors := pool.GetFileBuffer()
	defer pool.PutFileBuffer(sectors)

	currentSector := uint32(headerSectors)

	for i := 0; i < region.ChunksPerRegion; i++ {
		chunk := r.Chunk(i)
		if chunk == nil {
			continue
		}

		compressed, err := compress.CompressZlib(chunk.Data, compressionLevel)
		if err != nil {
			return &errs.CompressionError{Reason: err.Error()}
		}

		dataSize := ChunkHeaderSize + len(compressed)
		sectorsNeeded := (dataSize + SectorSize - 1) / SectorSize

		if sectorsNeeded > MaxSectorCount {
			if externalDir == "" {
				return fmt.Errorf("chunk %d needs %d sectors: %w", i, sectorsNeeded, errs.ErrRegionOverflow)
			}

			if err := writeExternalChunk(externalDir, r, chunk, compressed); err != nil {
				return err
			}

			header := chunkHeader{Length: 1, Compression: CompressionExternal}.bytes()
			start := sectors.Len()
			sectors.MustWrite(header[:])
			sectors.PadTo(start + SectorSize)

			locations[i] = chunkLocation{Offset: currentSector, SectorCount: 1}
			currentSector++

			continue
		}

		header := chunkHeader{Length: uint32(len(compressed)) + 1, Compression: CompressionZlib}.bytes()
		start := sectors.Len()
		sectors.MustWrite(header[:])
		sectors.MustWrite(compressed)
		sectors.PadTo(start + sectorsNeeded*SectorSize)

		locations[i] = chunkLocation{Offset: currentSector, SectorCount: uint8(sectorsNeeded)}
		currentSector += uint32(sectorsNeeded)
	}

	for i := range locations {
		entry := locations[i].bytes()
		buf.MustWrite(entry[:])
	}
	buf.PadTo(SectorSize)

	// Absent slots get a zero timestamp; only present chunks keep theirs.
	for i := 0; i < region.ChunksPerRegion; i++ {
		var timestamp uint32
		if r.Chunk(i) != nil {
			timestamp = r.Timestamp(i)
		}
		buf.B = engine.AppendUint32(buf.B, timestamp)
	}
	buf.PadTo(headerSectors * SectorSize)

	buf.MustWrite(sectors.Bytes())

	return nil
}

func writeExternalChunk(dir string, r *region.Region, chunk *region.Chunk, compressed []byte) error {
	externalPath := filepath.Join(dir, ExternalFileName(chunk.X, chunk.Z))

	if err := fsutil.AtomicWrite(externalPath, compressed); err != nil {
		return fmt.Errorf("external chunk file %s: %w", externalPath, err)
	}

	if err := fsutil.SetMtime(externalPath, r.Mtime); err != nil {
		return fmt.Errorf("external chunk file %s: %w", externalPath, err)
	}

	return nil
}
