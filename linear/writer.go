package linear

import (
	"fmt"

	"github.com/arloliu/regionfile/compress"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/internal/fsutil"
	"github.com/arloliu/regionfile/internal/pool"
	"github.com/arloliu/regionfile/region"
)

// WriteRegion writes a region as a stream-format file (header version 1).
//
// Absent slots contribute a zero-size meta entry that still carries the
// region's timestamp for that index, so timestamps survive a round trip even
// where no chunk does. The file is written with an atomic replace and
// stamped with the region's mtime. counters may be nil.
//
// compressionLevel is recorded in the header truncated to a signed byte;
// callers should stay within [-128, 127].
func WriteRegion(path string, r *region.Region, compressionLevel int, counters *region.Counters) error {
	blob := pool.GetFileBuffer()
	defer pool.PutFileBuffer(blob)

	var (
		newestTimestamp uint32
		chunkCount      uint16
	)

	for i := 0; i < region.ChunksPerRegion; i++ {
		chunk := r.Chunk(i)
		timestamp := r.Timestamp(i)

		if chunk == nil {
			meta := chunkMeta{Size: 0, Timestamp: timestamp}.bytes()
			blob.MustWrite(meta[:])
			continue
		}

		meta := chunkMeta{Size: uint32(chunk.Size()), Timestamp: timestamp}.bytes()
		blob.MustWrite(meta[:])

		chunkCount++
		if timestamp > newestTimestamp {
			newestTimestamp = timestamp
		}
	}

	for i := 0; i < region.ChunksPerRegion; i++ {
		if chunk := r.Chunk(i); chunk != nil {
			blob.MustWrite(chunk.Data)
		}
	}

	compressed, err := compress.CompressZstd(blob.Bytes(), compressionLevel)
	if err != nil {
		return fmt.Errorf("write region %s: %w", path,
			&errs.CompressionError{Reason: err.Error()})
	}

	h := header{
		Signature:        Signature,
		Version:          Version,
		NewestTimestamp:  uint64(newestTimestamp),
		CompressionLevel: int8(compressionLevel),
		ChunkCount:       chunkCount,
		CompressedSize:   uint32(len(compressed)),
	}

	file := pool.GetFileBuffer()
	defer pool.PutFileBuffer(file)

	headerBytes := h.bytes()
	file.MustWrite(headerBytes[:])
	file.PadTo(HeaderSize + padSize)
	file.MustWrite(compressed)
	file.B = engine.AppendUint64(file.B, Signature)

	if err := fsutil.AtomicWrite(path, file.Bytes()); err != nil {
		return fmt.Errorf("write region %s: %w", path, err)
	}

	if err := fsutil.SetMtime(path, r.Mtime); err != nil {
		return fmt.Errorf("write region %s: %w", path, err)
	}

	if counters != nil {
		counters.AddFile()
		counters.AddBytesWritten(uint64(file.Len()))
		counters.AddChunks(uint64(chunkCount))
	}

	return nil
}
