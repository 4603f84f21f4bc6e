//go:build nobuild

package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/valyala/gozstd"
)

// CompressZstd compresses data with Zstandard at the given level.
func CompressZstd(data []byte, level int) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, level), nil
}

// DecompressZstd decompresses a Zstandard frame with the default output
// capacity.
func DecompressZstd(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}

// DecompressZstdBounded decompresses with an explicit upper bound on the
// decompressed size.
func DecompressZstdBounded(data []byte, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		return nil, fmt.Errorf("zstd decompression bound is zero")
	}

	out, err := gozstd.Decompress(make([]byte, 0, maxSize), data)
	if err != nil {
		return nil, fmt.Errorf("bounded zstd decompression failed: %w", err)
	}
	if uint64(len(out)) > maxSize {
		return nil, fmt.Errorf("decompressed size %d exceeds bound %d", len(out), maxSize)
	}

	return out, nil
}

// DecompressZstdStream decompresses by streaming into a growing buffer.
func DecompressZstdStream(data []byte) ([]byte, error) {
	reader := gozstd.NewReader(bytes.NewReader(data))
	defer reader.Release()

	var out bytes.Buffer
	if _, err := io.Copy(&out, reader); err != nil {
		return nil, fmt.Errorf("streaming zstd decompression failed: %w", err)
	}

	return out.Bytes(), nil
}
