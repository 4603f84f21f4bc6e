// Package compress provides the compression codecs used by the region file
// formats: zlib for sector-format chunk payloads and external overflow files,
// and Zstandard for the stream-format blob.
//
// The on-disk formats pin their codecs, so unlike a negotiating format there
// is no codec registry here. The Codec interface exists so tests and callers
// that round-trip payloads can treat the two algorithms (and the no-op
// bypass) uniformly.
package compress

// Compressor compresses a payload and returns the compressed result.
//
// Memory management:
//   - Returned slice is owned by the caller; it is newly allocated except
//     for NoOpCodec, which returns the input slice itself
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a payload previously compressed with the matching
// algorithm. Implementations validate the input framing and return an error
// for corrupted or incompatible data.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
//
// All implementations in this package are stateless values and safe for
// concurrent use.
type Codec interface {
	Compressor
	Decompressor
}
