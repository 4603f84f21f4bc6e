package linear

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arloliu/regionfile/compress"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/internal/fsutil"
	"github.com/arloliu/regionfile/region"
)

// ReadRegion reads a stream-format region file into memory. counters may be
// nil.
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

	if fileSize < HeaderSize+footerSize {
		return nil, fmt.Errorf("region %s: %d bytes is below the minimum file size: %w",
			path, fileSize, errs.ErrInvalidFormat)
	}

	h, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", path, err)
	}

	if !h.validSignature() {
		return nil, fmt.Errorf("region %s: %w", path,
			&errs.InvalidSignatureError{Expected: Signature, Found: h.Signature})
	}

	if !h.supportedVersion() {
		return nil, fmt.Errorf("region %s: %w", path,
			&errs.UnsupportedVersionError{Version: h.Version})
	}

	footerStart := fileSize - footerSize
	if footer := engine.Uint64(data[footerStart:]); footer != Signature {
		return nil, fmt.Errorf("region %s: %w", path,
			&errs.InvalidSignatureError{Expected: Signature, Found: footer})
	}

	if footerStart < HeaderSize+padSize {
		return nil, fmt.Errorf("region %s: no room for a compressed payload: %w",
			path, errs.ErrInvalidFormat)
	}

	decompressed, err := decompressWithRetry(data[HeaderSize+padSize:footerStart], h.ChunkCount)
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", path, err)
	}

	if len(decompressed) < metaPrefixSize {
		return nil, fmt.Errorf("region %s: blob smaller than the meta prefix: %w",
			path, errs.ErrInvalidFormat)
	}

	var (
		metas        [region.ChunksPerRegion]chunkMeta
		payloadTotal int
		realCount    uint16
	)
	for i := 0; i < region.ChunksPerRegion; i++ {
		metas[i] = parseChunkMeta(decompressed[i*chunkMetaSize:])
		if metas[i].Size > 0 {
			realCount++
			payloadTotal += int(metas[i].Size)
		}
	}

	if realCount != h.ChunkCount {
		return nil, fmt.Errorf("region %s: %w", path,
			&errs.InvalidChunkCountError{Expected: h.ChunkCount, Found: realCount})
	}

	if metaPrefixSize+payloadTotal != len(decompressed) {
		return nil, fmt.Errorf("region %s: meta sizes do not account for the blob: %w",
			path, errs.ErrInvalidFormat)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	r := region.New(regionX, regionZ)
	r.Mtime = info.ModTime().Unix()

	cursor := metaPrefixSize
	for i := 0; i < region.ChunksPerRegion; i++ {
		r.SetTimestamp(i, metas[i].Timestamp)

		if metas[i].Size == 0 {
			continue
		}

		payload := make([]byte, metas[i].Size)
		copy(payload, decompressed[cursor:cursor+int(metas[i].Size)])
		cursor += int(metas[i].Size)

		chunkX, chunkZ := region.ChunkCoords(regionX, regionZ, i)
		if err := r.SetChunk(i, region.NewChunk(payload, chunkX, chunkZ), metas[i].Timestamp); err != nil {
			return nil, err
		}
	}

	if counters != nil {
		counters.AddFile()
		counters.AddChunks(uint64(realCount))
	}

	return r, nil
}

// decompressWithRetry attempts the decompression strategies in order of
// decreasing confidence and increasing cost. Some producers emit frames
// without a declared decompressed size, so a single strategy is not enough:
// first the default bulk path, then a 64 MiB bound, then a heuristic bound
// from the chunk count, and finally a streaming copy.
func decompressWithRetry(compressed []byte, chunkCount uint16) ([]byte, error) {
	out, err := compress.DecompressZstd(compressed)
	if err == nil {
		return out, nil
	}
	lastErr := fmt.Errorf("standard decompression failed: %w", err)

	out, err = compress.DecompressZstdBounded(compressed, 64<<20)
	if err == nil {
		return out, nil
	}
	lastErr = fmt.Errorf("limited decompression failed: %w", err)

	out, err = compress.DecompressZstdBounded(compressed, uint64(chunkCount)*16*1024)
	if err == nil {
		return out, nil
	}
	lastErr = fmt.Errorf("estimated size decompression failed: %w", err)

	out, err = compress.DecompressZstdStream(compressed)
	if err == nil {
		return out, nil
	}
	lastErr = fmt.Errorf("streaming decompression failed: %w", err)

	return nil, &errs.DecompressionError{Reason: lastErr.Error()}
}
