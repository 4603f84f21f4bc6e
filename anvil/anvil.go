// Package anvil implements the legacy sector-addressed region format.
//
// A file is laid out as 1024 four-byte location entries, 1024 four-byte
// timestamps, then chunk payloads aligned to 4096-byte sectors. Each payload
// starts with a five-byte header: a big-endian length (counting the
// compression code byte that follows) and the code itself. Chunks whose
// compressed payload would exceed 255 sectors escape to a sibling
// "c.<x>.<z>.mcc" file holding a bare zlib stream, marked in the main file by
// a one-sector placeholder with the external compression code.
package anvil

import (
	"github.com/arloliu/regionfile/endian"
)

const (
	// SectorSize is the addressable unit of the format.
	SectorSize = 4096

	// LocationEntrySize is the size of one location table entry.
	LocationEntrySize = 4

	// ChunkHeaderSize is the size of the per-chunk payload header.
	ChunkHeaderSize = 5

	// MaxSectorCount is the largest sector run a location entry can address.
	MaxSectorCount = 255

	// CompressionZlib marks an inline zlib payload.
	CompressionZlib = 2

	// CompressionExternal marks a payload stored in an external file,
	// zlib-compressed.
	CompressionExternal = 128 + CompressionZlib

	// headerSectors is the number of sectors occupied by the location table
	// and the timestamp table. Payload allocation starts after them.
	headerSectors = 2
)

var engine = endian.GetBigEndianEngine()

// chunkLocation is one entry of the location table: a 3-byte sector offset
// (MSB first) followed by a 1-byte sector count. Zero offset and zero count
// means the slot is absent.
type chunkLocation struct {
	Offset      uint32
	SectorCount uint8
}

func parseChunkLocation(data []byte) chunkLocation {
	return chunkLocation{
		Offset:      uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2]),
		SectorCount: data[3],
	}
}

func (l chunkLocation) bytes() [LocationEntrySize]byte {
	return [LocationEntrySize]byte{
		byte(l.Offset >> 16),
		byte(l.Offset >> 8),
		byte(l.Offset),
		l.SectorCount,
	}
}

func (l chunkLocation) isEmpty() bool {
	return l.Offset == 0 && l.SectorCount == 0
}

// chunkHeader is the 5-byte header at the start of a payload sector run.
// Length counts the compression code byte plus the compressed bytes that
// follow, so the compressed payload is Length-1 bytes.
type chunkHeader struct {
	Length      uint32
	Compression uint8
}

func parseChunkHeader(data []byte) chunkHeader {
	return chunkHeader{
		Length:      engine.Uint32(data[0:4]),
		Compression: data[4],
	}
}

func (h chunkHeader) bytes() [ChunkHeaderSize]byte {
	var b [ChunkHeaderSize]byte
	engine.PutUint32(b[0:4], h.Length)
	b[4] = h.Compression

	return b
}
