package anvil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arloliu/regionfile/compress"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/internal/fsutil"
	"github.com/arloliu/regionfile/region"
)

// ExternalFileName returns the name of the overflow file for a chunk at the
// given absolute coordinates.
func ExternalFileName(chunkX, chunkZ int32) string {
	return fmt.Sprintf("c.%d.%d.mcc", chunkX, chunkZ)
}

// ReadRegion reads a sector-format region file into memory.
//
// Location entries whose declared sector run extends past the end of the
// file are skipped rather than failing the whole region; truncated files
// still yield their readable chunks. Every other malformation aborts the
// read. counters may be nil.
func ReadRegion(path string, counters *region.Counters) (*region.Region, error) {
	regionX, regionZ, err := region.ParseFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	data, closeMmap, err := fsutil.MmapFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region %s: %w", path, err)
	}
	defer closeMmap()

	fileSize := len(data)
	if counters != nil {
		counters.AddBytesRead(uint64(fileSize))
	}

	if fileSize < headerSectors*SectorSize {
		return nil, fmt.Errorf("region %s: %d bytes is below the two header sectors: %w",
			path, fileSize, errs.ErrInvalidFormat)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	r := region.New(regionX, regionZ)
	r.Mtime = info.ModTime().Unix()

	for i := 0; i < region.ChunksPerRegion; i++ {
		r.SetTimestamp(i, engine.Uint32(data[SectorSize+i*4:]))
	}

	sourceDir := filepath.Dir(path)

	var chunksLoaded uint64
	for i := 0; i < region.ChunksPerRegion; i++ {
		loc := parseChunkLocation(data[i*LocationEntrySize:])
		if loc.Offset == 0 || loc.SectorCount == 0 {
			continue
		}

		chunkStart := int(loc.Offset) * SectorSize
		chunkEnd := chunkStart + int(loc.SectorCount)*SectorSize
		if chunkEnd > fileSize {
			// Entry points past the end of a (likely truncated) file.
			continue
		}

		chunkData := data[chunkStart:chunkEnd]
		if len(chunkData) < ChunkHeaderSize {
			continue
		}

		header := parseChunkHeader(chunkData)
		compressed := chunkData[ChunkHeaderSize:]

		chunkX, chunkZ := region.ChunkCoords(regionX, regionZ, i)

		var payload []byte
		switch header.Compression {
		case CompressionZlib:
			// A corrupt header may declare more bytes than the sector run
			// actually holds; trust whichever is smaller.
			length := int(header.Length)
			if length > len(compressed) {
				length = len(compressed)
			}

			payload, err = compress.DecompressZlib(compressed[:length])
			if err != nil {
				return nil, fmt.Errorf("region %s chunk %d: %w", path, i, err)
			}
		case CompressionExternal:
			externalPath := filepath.Join(sourceDir, ExternalFileName(chunkX, chunkZ))

			payload, err = readExternalChunk(externalPath)
			if err != nil {
				return nil, fmt.Errorf("region %s chunk %d: %w", path, i, err)
			}
		default:
			return nil, fmt.Errorf("region %s chunk %d: code %d: %w",
				path, i, header.Compression, errs.ErrUnsupportedCompression)
		}

		if err := r.SetChunk(i, region.NewChunk(payload, chunkX, chunkZ), r.Timestamp(i)); err != nil {
			return nil, err
		}
		chunksLoaded++
	}

	if counters != nil {
		counters.AddFile()
		counters.AddChunks(chunksLoaded)
	}

	return r, nil
}

// readExternalChunk decompresses a whole overflow file.
func readExternalChunk(path string) ([]byte, error) {
	data, closeMmap, err := fsutil.MmapFile(path)
	if err != nil {
		return nil, fmt.Errorf("external chunk file %s: %w", path, err)
	}
	defer closeMmap()

	payload, err := compress.DecompressZlib(data)
	if err != nil {
		return nil, fmt.Errorf("external chunk file %s: %w", path, err)
	}

	return payload, nil
}
