package metrics

import (
	"sort"
	"sync"
)

// reservoirSize bounds the number of latency samples kept for percentile
// computation. Spec §4.8 mandates the last K=1024 samples, diverging from
// original_source's 10,000-entry random reservoir (see DESIGN.md).
const reservoirSize = 1024

// latencyHistogram keeps a fixed set of coarse buckets for a quick
// distribution shape plus a ring of the most recent raw samples for
// percentile computation.
type latencyHistogram struct {
	mu      sync.Mutex
	buckets [7]uint64
	samples []uint64
	next    int
	max     int
	seen    uint64
}

func newLatencyHistogram(max int) latencyHistogram {
	return latencyHistogram{max: max}
}

func bucketFor(us uint64) int {
	switch {
	case us <= 10:
		return 0
	case us <= 100:
		return 1
	case us <= 1000:
		return 2
	case us <= 10000:
		return 3
	case us <= 100000:
		return 4
	case us <= 1000000:
		return 5
	default:
		return 6
	}
}

// record adds one sample, keeping only the most recent max samples: once
// the ring fills, each new sample overwrites the oldest.
func (h *latencyHistogram) record(us uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buckets[bucketFor(us)]++
	h.seen++

	if len(h.samples) < h.max {
		h.samples = append(h.samples, us)
		return
	}
	h.samples[h.next] = us
	h.next = (h.next + 1) % h.max
}

// percentile returns the p-th percentile (0-100) over the current
// reservoir, or 0 if no samples have been recorded.
func (h *latencyHistogram) percentile(p uint8) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) == 0 {
		return 0
	}
	sorted := make([]uint64, len(h.samples))
	copy(sorted, h.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(p) / 100.0 * float64(len(sorted)-1))
	return sorted[idx]
}

func (h *latencyHistogram) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buckets = [7]uint64{}
	h.samples = nil
	h.next = 0
	h.seen = 0
}
