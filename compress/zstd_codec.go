package compress

// DefaultZstdLevel is the level the ZstdCodec compresses at when the caller
// does not choose one.
const DefaultZstdLevel = 3

// ZstdCodec provides Zstandard compression for the stream-format blob.
//
// Zstd is a good fit for the linear payload: the concatenated chunk payloads
// are large (often several MiB of already-structured NBT), compress far
// better as one stream than per-chunk, and decompress quickly enough that a
// whole region can be unpacked per file open.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstd codec with default settings.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}

// Compress compresses the input data at DefaultZstdLevel.
func (c ZstdCodec) Compress(data []byte) ([]byte, error) {
	return CompressZstd(data, DefaultZstdLevel)
}

// Decompress restores a Zstandard frame.
func (c ZstdCodec) Decompress(data []byte) ([]byte, error) {
	return DecompressZstd(data)
}
