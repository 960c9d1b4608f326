// Package optimizer estimates predicate selectivity and per-table scan
// cost from equi-width histograms, used by the query planner to order
// joins and choose access paths.
package optimizer

import (
	"dinodb/pkg/storage"

	"github.com/spaolacci/murmur3"
)

// selectivity bounds, matching the histogram's estimate range.
const (
	SelectivityNone = 0.0
	SelectivityAll  = 1.0
)

// IntHistogram is a fixed-width histogram over one integer-valued
// field, used to estimate the selectivity of a comparison against it
// in constant space regardless of how many values it has seen.
type IntHistogram struct {
	min, max int32
	gap      int32
	buckets  []int64
	total    int64
}

// NewIntHistogram builds an empty histogram with the given bucket
// count over the inclusive range [min, max].
func NewIntHistogram(buckets int, min, max int32) *IntHistogram {
	gap := (max - min) / int32(buckets)
	if gap < 1 {
		gap = 1
	}
	return &IntHistogram{min: min, max: max, gap: gap, buckets: make([]int64, buckets)}
}

func (h *IntHistogram) bucketOf(v int32) int {
	idx := int((v - h.min) / h.gap)
	if idx >= len(h.buckets) {
		idx = len(h.buckets) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// AddValue records one observation of v.
func (h *IntHistogram) AddValue(v int32) {
	h.buckets[h.bucketOf(v)]++
	h.total++
}

// EstimateSelectivity returns the estimated fraction of observed
// values for which "value op v" holds. Values outside [min, max] are
// handled by direct range reasoning; GREATER_THAN_OR_EQ and
// LESS_THAN_OR_EQ are approximated by their strict counterparts, which
// is exact except at the query value itself.
func (h *IntHistogram) EstimateSelectivity(op storage.Op, v int32) float64 {
	if h.total == 0 {
		return SelectivityNone
	}
	if v > h.max || v < h.min {
		switch op {
		case storage.Equals:
			return SelectivityNone
		case storage.NotEquals:
			return SelectivityAll
		}
		less := op == storage.LessThan || op == storage.LessThanOrEqual
		greater := op == storage.GreaterThan || op == storage.GreaterThanOrEqual
		if v > h.max {
			if less {
				return SelectivityAll
			}
			if greater {
				return SelectivityNone
			}
		} else {
			if less {
				return SelectivityNone
			}
			if greater {
				return SelectivityAll
			}
		}
	}

	idx := h.bucketOf(v)
	ratio := float64(h.buckets[idx]) / float64(int64(h.gap)*h.total)

	switch op {
	case storage.Equals:
		return ratio
	case storage.NotEquals:
		return 1 - ratio
	case storage.GreaterThan, storage.GreaterThanOrEqual:
		bucketRight := int32(idx+1)*h.gap + h.min
		frac := ratio * float64(bucketRight-v)
		for i := idx + 1; i < len(h.buckets); i++ {
			frac += float64(h.buckets[i]) / float64(h.total)
		}
		return frac
	case storage.LessThan, storage.LessThanOrEqual:
		bucketLeft := int32(idx)*h.gap + h.min
		frac := ratio * float64(v-bucketLeft)
		for i := idx - 1; i >= 0; i-- {
			frac += float64(h.buckets[i]) / float64(h.total)
		}
		return frac
	default:
		return SelectivityNone
	}
}

// AvgSelectivity returns the mean per-bucket selectivity, a rough
// estimate useful when the comparison value isn't known yet.
func (h *IntHistogram) AvgSelectivity() float64 {
	if h.total == 0 {
		return SelectivityNone
	}
	var sum float64
	for _, b := range h.buckets {
		sum += float64(b) / float64(h.total)
	}
	return sum / float64(len(h.buckets))
}

// StringHistogram estimates string-field selectivity by hashing each
// value into the range of an underlying IntHistogram. Equality and
// inequality use that histogram's estimate for the bucket the hash falls
// into, so strings hashing into the same bucket share one estimate;
// ordered comparisons are only as meaningful as hash order, which is
// arbitrary, so they degrade to AvgSelectivity.
type StringHistogram struct {
	inner *IntHistogram
}

// NewStringHistogram builds an empty histogram with the given bucket count.
func NewStringHistogram(buckets int) *StringHistogram {
	return &StringHistogram{inner: NewIntHistogram(buckets, 0, int32(^uint32(0)>>1))}
}

func hashString(s string) int32 {
	h := murmur3.Sum32([]byte(s))
	return int32(h >> 1) // clear sign bit: keep in [0, math.MaxInt32]
}

// AddValue records one observation of v.
func (h *StringHistogram) AddValue(v string) {
	h.inner.AddValue(hashString(v))
}

// EstimateSelectivity returns the estimated fraction of observed
// values for which "value op v" holds.
func (h *StringHistogram) EstimateSelectivity(op storage.Op, v string) float64 {
	switch op {
	case storage.Equals, storage.NotEquals:
		return h.inner.EstimateSelectivity(op, hashString(v))
	default:
		return h.inner.AvgSelectivity()
	}
}

// AvgSelectivity returns the mean per-bucket selectivity.
func (h *StringHistogram) AvgSelectivity() float64 {
	return h.inner.AvgSelectivity()
}
