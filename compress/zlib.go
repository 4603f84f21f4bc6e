package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ZlibCodec provides zlib compression for sector-format chunk payloads.
//
// The sector format stores each chunk zlib-compressed (compression code 2),
// and oversized chunks land in external files that are a bare zlib stream.
type ZlibCodec struct{}

var _ Codec = (*ZlibCodec)(nil)

// NewZlibCodec creates a new zlib codec with the default compression level.
func NewZlibCodec() ZlibCodec {
	return ZlibCodec{}
}

// Compress compresses the input data at zlib's default level.
func (c ZlibCodec) Compress(data []byte) ([]byte, error) {
	return CompressZlib(data, zlib.DefaultCompression)
}

// Decompress restores a zlib stream.
func (c ZlibCodec) Decompress(data []byte) ([]byte, error) {
	return DecompressZlib(data)
}

// CompressZlib compresses data with zlib at the given level.
//
// Level follows zlib conventions: 0 stores, 1 is fastest, 9 is best, and
// zlib.DefaultCompression (-1) selects the library default.
func CompressZlib(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}

	return buf.Bytes(), nil
}

// DecompressZlib restores a full zlib stream into a newly allocated slice.
func DecompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}

	return out, nil
}
