package region

import "sync/atomic"

// Counters tracks aggregate work across concurrent per-file workers.
//
// All methods use atomic fetch-add; the counters are independent additive
// values, so no ordering between them is needed and any interleaving of
// workers yields the same totals.
type Counters struct {
	filesProcessed  atomic.Uint64
	bytesRead       atomic.Uint64
	bytesWritten    atomic.Uint64
	chunksProcessed atomic.Uint64
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// AddFile records one processed file.
func (c *Counters) AddFile() {
	c.filesProcessed.Add(1)
}

// AddBytesRead records bytes read from a source file.
func (c *Counters) AddBytesRead(n uint64) {
	c.bytesRead.Add(n)
}

// AddBytesWritten records bytes written to a destination file.
func (c *Counters) AddBytesWritten(n uint64) {
	c.bytesWritten.Add(n)
}

// AddChunks records processed chunks.
func (c *Counters) AddChunks(n uint64) {
	c.chunksProcessed.Add(n)
}

// Stats is a point-in-time snapshot of a Counters.
type Stats struct {
	FilesProcessed  uint64
	BytesRead       uint64
	BytesWritten    uint64
	ChunksProcessed uint64
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() Stats {
	return Stats{
		FilesProcessed:  c.filesProcessed.Load(),
		BytesRead:       c.bytesRead.Load(),
		BytesWritten:    c.bytesWritten.Load(),
		ChunksProcessed: c.chunksProcessed.Load(),
	}
}
