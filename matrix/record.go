package matrix

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// Record is the measured distance between two input points. OriginIndex and
// DestinationIndex are the points' positions in the input, with
// OriginIndex < DestinationIndex.
type Record struct {
	Origin           string
	Destination      string
	Distance         float64
	OriginIndex      int
	DestinationIndex int
}

// SortByGeneration orders records the way pairs are generated: by origin
// position, then destination position.
func SortByGeneration(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := cmp.Compare(a.OriginIndex, b.OriginIndex); c != 0 {
			return c
		}
		return cmp.Compare(a.DestinationIndex, b.DestinationIndex)
	})
}

// Collector is a Sink that keeps every record in memory. It is safe for
// concurrent use.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// NewCollector returns a Collector with room for size records.
func NewCollector(size int) *Collector {
	return &Collector{records: make([]Record, 0, size)}
}

// Write appends r.
func (c *Collector) Write(_ context.Context, r Record) error {
	c.add(r)
	return nil
}

func (c *Collector) add(r Record) {
	c.mu.Lock()
	c.records = append(c.records, r)
	c.mu.Unlock()
}

// Len returns the number of records collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns the collected records in arrival order. The returned slice
// is owned by the caller only once no more writes can happen.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records
}
