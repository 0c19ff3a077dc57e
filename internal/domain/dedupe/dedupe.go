// Package dedupe remembers which activity messages were already applied, so
// a redelivered message is acknowledged without being written twice.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/ladder/pkg/metrics"
)

const defaultMaxSize = 10000

// Deduper records seen message ids.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if
	// not. The check and the record happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later delivery is applied again. Use it when
	// applying the message failed after it was recorded.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type slot struct {
	id  string
	seq uint64
}

// windowDeduper keeps the most recent maxSize ids. Older ids fall out in
// arrival order. maxSize <= 0 keeps everything.
type windowDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64
	order   []slot
	head    int
	seq     uint64
	maxSize int
}

// NewInMemoryDeduper creates a deduper with the given options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &windowDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]uint64)
	return d
}

// SeenAndRecord implements Deduper.
func (d *windowDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		metrics.RecordActivityDuplicate()
		return true
	}
	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
	}
	d.seq++
	d.seen[id] = d.seq
	if d.maxSize > 0 {
		d.order = append(d.order, slot{id: id, seq: d.seq})
	}
	return false
}

// Unrecord implements Deduper. The id's slot in the window is left behind
// and skipped at eviction time.
func (d *windowDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// evictOldest must be called with d.mu held.
func (d *windowDeduper) evictOldest() {
	for d.head < len(d.order) {
		s := d.order[d.head]
		d.order[d.head] = slot{}
		d.head++
		if seq, ok := d.seen[s.id]; ok && seq == s.seq {
			delete(d.seen, s.id)
			break
		}
	}
	if d.head > len(d.order)/2 {
		d.order = append(d.order[:0], d.order[d.head:]...)
		d.head = 0
	}
}

// Size implements Deduper.
func (d *windowDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
