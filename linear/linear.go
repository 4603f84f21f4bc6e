// Package linear implements the single-stream compressed region format.
//
// A file is a 24-byte packed header, 8 zero bytes, one Zstandard-compressed
// blob, and an 8-byte trailing repeat of the signature. The decompressed blob
// is a fixed prefix of 1024 eight-byte chunk-meta entries (size, timestamp)
// followed by the payloads of present chunks concatenated in index order with
// no framing between them.
package linear

import (
	"github.com/arloliu/regionfile/endian"
	"github.com/arloliu/regionfile/errs"
	"github.com/arloliu/regionfile/region"
)

const (
	// Signature is the 64-bit magic at both ends of a stream file.
	Signature uint64 = 0xC3FF13183CCA9D9A

	// Version is the header version the writer emits. Readers also accept
	// version 2.
	Version = 1

	// HeaderSize is the packed header size in bytes.
	HeaderSize = 24

	// padSize is the run of zero bytes between header and compressed blob.
	padSize = 8

	// footerSize is the trailing signature size.
	footerSize = 8

	// chunkMetaSize is the size of one chunk-meta entry inside the blob.
	chunkMetaSize = 8

	// metaPrefixSize is the fixed meta prefix inside the decompressed blob.
	metaPrefixSize = region.ChunksPerRegion * chunkMetaSize
)

var engine = endian.GetBigEndianEngine()

// header is the packed 24-byte file header. Fields are laid out in order:
// signature, version, newest timestamp, compression level, chunk count,
// compressed size; every integer big-endian.
type header struct {
	Signature        uint64 // byte offset 0-7
	Version          uint8  // byte offset 8
	NewestTimestamp  uint64 // byte offset 9-16
	CompressionLevel int8   // byte offset 17
	ChunkCount       uint16 // byte offset 18-19
	CompressedSize   uint32 // byte offset 20-23
}

func parseHeader(data []byte) (header, error) {
	if len(data) < HeaderSize {
		return header{}, errs.ErrInvalidFormat
	}

	return header{
		Signature:        engine.Uint64(data[0:8]),
		Version:          data[8],
		NewestTimestamp:  engine.Uint64(data[9:17]),
		CompressionLevel: int8(data[17]),
		ChunkCount:       engine.Uint16(data[18:20]),
		CompressedSize:   engine.Uint32(data[20:24]),
	}, nil
}

func (h header) bytes() [HeaderSize]byte {
	var b [HeaderSize]byte
	engine.PutUint64(b[0:8], h.Signature)
	b[8] = h.Version
	engine.PutUint64(b[9:17], h.NewestTimestamp)
	b[17] = uint8(h.CompressionLevel)
	engine.PutUint16(b[18:20], h.ChunkCount)
	engine.PutUint32(b[20:24], h.CompressedSize)

	return b
}

func (h header) validSignature() bool {
	return h.Signature == Signature
}

func (h header) supportedVersion() bool {
	return h.Version == 1 || h.Version == 2
}

// chunkMeta is one entry of the meta prefix: payload size in bytes (0 means
// the slot is absent) and the slot timestamp. Timestamps are recorded even
// for absent slots.
type chunkMeta struct {
	Size      uint32
	Timestamp uint32
}

func parseChunkMeta(data []byte) chunkMeta {
	return chunkMeta{
		Size:      engine.Uint32(data[0:4]),
		Timestamp: engine.Uint32(data[4:8]),
	}
}

func (m chunkMeta) bytes() [chunkMetaSize]byte {
	var b [chunkMetaSize]byte
	engine.PutUint32(b[0:4], m.Size)
	engine.PutUint32(b[4:8], m.Timestamp)

	return b
}
