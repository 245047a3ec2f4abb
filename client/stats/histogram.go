package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Bucket upper bounds in microseconds. The last bucket is open ended.
var bucketBounds = []int64{10, 50, 100, 500, 1000, 5000}

// NumBuckets is the number of histogram buckets including the open ended one
var NumBuckets = len(bucketBounds) + 1

// Histogram counts latencies into fixed buckets
type Histogram struct {
	counts []atomic.Int64
	total  atomic.Int64
}

func NewHistogram() *Histogram {
	return &Histogram{counts: make([]atomic.Int64, NumBuckets)}
}

// BucketOf returns the index of the bucket holding a latency in microseconds.
// Buckets are half-open: [0,10), [10,50), ... [5000, inf).
func BucketOf(micros int64) int {
	for i, bound := range bucketBounds {
		if micros < bound {
			return i
		}
	}
	return len(bucketBounds)
}

func (h *Histogram) Add(micros int64) {
	h.counts[BucketOf(micros)].Add(1)
	h.total.Add(1)
}

func (h *Histogram) AddDuration(d time.Duration) {
	h.Add(d.Microseconds())
}

// Merge adds the counts of other bucket by bucket
func (h *Histogram) Merge(other *Histogram) {
	if other == nil {
		return
	}
	for i := range h.counts {
		h.counts[i].Add(other.counts[i].Load())
	}
	h.total.Add(other.total.Load())
}

func (h *Histogram) Count(bucket int) int64 {
	return h.counts[bucket].Load()
}

func (h *Histogram) Counts() []int64 {
	out := make([]int64, len(h.counts))
	for i := range h.counts {
		out[i] = h.counts[i].Load()
	}
	return out
}

func (h *Histogram) Total() int64 {
	return h.total.Load()
}

// Labels names the buckets, e.g. "0-10us" and "5000+us"
func Labels() []string {
	labels := make([]string, 0, NumBuckets)
	lower := int64(0)
	for _, bound := range bucketBounds {
		labels = append(labels, fmt.Sprintf("%d-%dus", lower, bound))
		lower = bound
	}
	return append(labels, fmt.Sprintf("%d+us", lower))
}

// UpperBounds returns the bucket bounds in seconds, for exporters that want them
func UpperBounds() []float64 {
	out := make([]float64, len(bucketBounds))
	for i, b := range bucketBounds {
		out[i] = float64(b) / 1e6
	}
	return out
}
