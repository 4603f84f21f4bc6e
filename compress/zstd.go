//go:build !nobuild

package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse to eliminate allocation overhead.
// The klauspost/compress/zstd library is explicitly designed for decoder reuse:
// "The decoder has been designed to operate without allocations after a warmup.
// This means that you should store the decoder for best performance."
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1), // Single-threaded for predictable performance
			zstd.WithDecoderLowmem(false),  // Use more memory for better performance
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

// CompressZstd compresses data with Zstandard at the given level.
//
// Level follows zstd conventions (1 fastest, 19+ best); the writer maps it
// onto the nearest supported encoder level. Encoders are created per call
// because the level varies by caller.
func CompressZstd(data []byte, level int) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderCRC(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// DecompressZstd decompresses a Zstandard frame with the pooled default
// decoder. This is the cheapest strategy and succeeds for well-formed frames
// regardless of whether they declare a decompressed size.
func DecompressZstd(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	// Get decoder from pool (reuses "warmed up" decoder)
	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	// DecodeAll is stateless - safe to use with pooled decoder
	// Even if this call fails, the decoder can be reused for next call
	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}

// DecompressZstdBounded decompresses with an explicit upper bound on the
// decompressed size. Frames whose content exceeds the bound fail rather than
// allocate; producers that omit the decompressed-size framing are handled by
// bounding memory instead of trusting the header.
func DecompressZstdBounded(data []byte, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		return nil, fmt.Errorf("zstd decompression bound is zero")
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(maxSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create bounded zstd decoder: %w", err)
	}
	defer decoder.Close()

	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("bounded zstd decompression failed: %w", err)
	}

	return decompressed, nil
}

// DecompressZstdStream decompresses by streaming into a growing buffer.
// Slowest strategy, but memory-bounded by actual content rather than by any
// declared size; last resort for frames the bulk paths reject.
func DecompressZstdStream(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create streaming zstd decoder: %w", err)
	}
	defer decoder.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, decoder); err != nil {
		return nil, fmt.Errorf("streaming zstd decompression failed: %w", err)
	}

	return out.Bytes(), nil
}
