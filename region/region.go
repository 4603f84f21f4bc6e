// Package region holds the in-memory model shared by the sector and stream
// format engines: a sparse set of chunk payloads keyed by local index, a
// dense per-slot timestamp vector, and the region coordinates parsed from the
// filename.
//
// The two structures are deliberately independent: the stream format persists
// timestamps for slots that hold no chunk, so folding them into one
// array-of-optional would either lose that distinction on the sector side or
// bloat it.
package region

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/regionfile/endian"
	"github.com/arloliu/regionfile/errs"
)

const (
	// RegionDimension is the side length of a region in chunks.
	RegionDimension = 32

	// ChunksPerRegion is the number of chunk slots in a region.
	ChunksPerRegion = RegionDimension * RegionDimension
)

// Chunk is an opaque byte payload plus absolute chunk coordinates.
//
// The payload is the uncompressed tagged-value byte stream. The format
// engines treat it as opaque; only the repair engine parses it.
type Chunk struct {
	Data []byte
	X    int32
	Z    int32
}

// NewChunk creates a chunk holding the given payload at absolute coordinates.
func NewChunk(data []byte, x, z int32) *Chunk {
	return &Chunk{Data: data, X: x, Z: z}
}

// Size returns the payload length in bytes.
func (c *Chunk) Size() int {
	return len(c.Data)
}

// ChunkCoords maps a local chunk index to absolute chunk coordinates.
func ChunkCoords(regionX, regionZ int32, index int) (x, z int32) {
	x = regionX*RegionDimension + int32(index%RegionDimension)
	z = regionZ*RegionDimension + int32(index/RegionDimension)

	return x, z
}

// Region is the in-memory representation of one region file.
//
// A Region is not safe for concurrent use; conversion parallelism is
// per-file, with each worker owning its Region.
type Region struct {
	// X, Z are the region coordinates parsed from the filename.
	X int32
	Z int32

	// Mtime is the source file's modification time in seconds since the
	// epoch. Writers stamp it onto the destination so that conversion is
	// idempotent with respect to mtime-based skip logic.
	Mtime int64

	chunks     map[int]*Chunk
	timestamps [ChunksPerRegion]uint32
}

// New creates an empty region at the given coordinates. Mtime defaults to
// the current wall clock; readers overwrite it from the source file.
func New(x, z int32) *Region {
	return &Region{
		X:      x,
		Z:      z,
		Mtime:  time.Now().Unix(),
		chunks: make(map[int]*Chunk),
	}
}

// ParseFilename extracts the region coordinates from a region filename.
//
// The grammar is a dotted name with at least three parts; parts[1] and
// parts[2] are signed decimal coordinates ("r.-1.3.mca" -> (-1, 3)). The
// extension is not checked here. Any other shape fails with
// errs.ErrInvalidFormat.
func ParseFilename(name string) (x, z int32, err error) {
	parts := strings.Split(name, ".")
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("region filename %q: %w", name, errs.ErrInvalidFormat)
	}

	rx, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("region filename %q: invalid X coordinate: %w", name, errs.ErrInvalidFormat)
	}

	rz, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("region filename %q: invalid Z coordinate: %w", name, errs.ErrInvalidFormat)
	}

	return int32(rx), int32(rz), nil
}

// ChunkCount returns the number of present chunks.
func (r *Region) ChunkCount() int {
	return len(r.chunks)
}

// Chunk returns the chunk at the given local index, or nil when the slot is
// absent.
func (r *Region) Chunk(index int) *Chunk {
	return r.chunks[index]
}

// SetChunk stores a chunk at the given local index and records its timestamp.
func (r *Region) SetChunk(index int, chunk *Chunk, timestamp uint32) error {
	if index < 0 || index >= ChunksPerRegion {
		return fmt.Errorf("index %d: %w", index, errs.ErrInvalidChunkIndex)
	}

	r.chunks[index] = chunk
	r.timestamps[index] = timestamp

	return nil
}

// RemoveChunk drops the chunk at the given local index and clears its
// timestamp.
func (r *Region) RemoveChunk(index int) {
	if index < 0 || index >= ChunksPerRegion {
		return
	}

	delete(r.chunks, index)
	r.timestamps[index] = 0
}

// ChunkAt returns the chunk at absolute chunk coordinates, or nil.
func (r *Region) ChunkAt(x, z int32) *Chunk {
	return r.chunks[localIndex(x, z)]
}

// SetChunkAt stores a chunk by absolute chunk coordinates.
func (r *Region) SetChunkAt(x, z int32, chunk *Chunk, timestamp uint32) error {
	return r.SetChunk(localIndex(x, z), chunk, timestamp)
}

// Timestamp returns the recorded timestamp for a slot. The slot need not
// hold a chunk: the stream format preserves timestamps for empty slots.
func (r *Region) Timestamp(index int) uint32 {
	if index < 0 || index >= ChunksPerRegion {
		return 0
	}

	return r.timestamps[index]
}

// SetTimestamp records a timestamp for a slot without touching the chunk.
func (r *Region) SetTimestamp(index int, timestamp uint32) {
	if index < 0 || index >= ChunksPerRegion {
		return
	}

	r.timestamps[index] = timestamp
}

// PayloadDigest returns a 64-bit digest over the present chunk indices and
// their payload bytes. Two regions with the same digest hold the same chunks
// in the same slots; verification compares digests instead of materializing
// both payload sets side by side.
func (r *Region) PayloadDigest() uint64 {
	engine := endian.GetBigEndianEngine()
	digest := xxhash.New()

	var idx [4]byte
	for i := 0; i < ChunksPerRegion; i++ {
		chunk := r.chunks[i]
		if chunk == nil {
			continue
		}

		engine.PutUint32(idx[:], uint32(i))
		_, _ = digest.Write(idx[:])
		_, _ = digest.Write(chunk.Data)
	}

	return digest.Sum64()
}

func localIndex(x, z int32) int {
	localX := int(x & (RegionDimension - 1))
	localZ := int(z & (RegionDimension - 1))

	return localZ*RegionDimension + localX
}
