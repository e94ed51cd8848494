package utils

import (
	"sort"

	"coin-observer/src/models"
)

// -----------------------------------------------------------------------------
// PriceBuffer is a bounded buffer of price points kept in ascending timestamp
// order. Late points are merged into place; when full the oldest point goes.
// Not safe for concurrent use.
// -----------------------------------------------------------------------------

type PriceBuffer struct {
	data     []models.MPricePoint
	capacity int
}

// -----------------------------------------------------------------------------

// NewPriceBuffer creates a new buffer with fixed capacity
func NewPriceBuffer(capacity int) *PriceBuffer {
	if capacity <= 0 {
		capacity = DefaultMaxPoints
	}

	return &PriceBuffer{
		data:     make([]models.MPricePoint, 0, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Insert places point after every stored point with the same or an earlier
// timestamp, then trims the oldest entries above capacity.
func (pb *PriceBuffer) Insert(point models.MPricePoint) {
	n := len(pb.data)
	if n == 0 || pb.data[n-1].Timestamp <= point.Timestamp {
		pb.data = append(pb.data, point)
	} else {
		idx := sort.Search(n, func(i int) bool {
			return pb.data[i].Timestamp > point.Timestamp
		})
		pb.data = append(pb.data, models.MPricePoint{})
		copy(pb.data[idx+1:], pb.data[idx:])
		pb.data[idx] = point
	}

	if over := len(pb.data) - pb.capacity; over > 0 {
		pb.dropFront(over)
	}
}

// -----------------------------------------------------------------------------

// PruneUpTo removes every point with Timestamp <= cutoff and returns how many
// were removed.
func (pb *PriceBuffer) PruneUpTo(cutoff int64) int {
	idx := sort.Search(len(pb.data), func(i int) bool {
		return pb.data[i].Timestamp > cutoff
	})
	pb.dropFront(idx)
	return idx
}

// -----------------------------------------------------------------------------

func (pb *PriceBuffer) dropFront(n int) {
	if n <= 0 {
		return
	}
	remaining := copy(pb.data, pb.data[n:])
	clear(pb.data[remaining:])
	pb.data = pb.data[:remaining]
}

// -----------------------------------------------------------------------------

// Latest returns the newest point
func (pb *PriceBuffer) Latest() (models.MPricePoint, bool) {
	if len(pb.data) == 0 {
		return models.MPricePoint{}, false
	}
	return pb.data[len(pb.data)-1], true
}

// -----------------------------------------------------------------------------

// Oldest returns the oldest point
func (pb *PriceBuffer) Oldest() (models.MPricePoint, bool) {
	if len(pb.data) == 0 {
		return models.MPricePoint{}, false
	}
	return pb.data[0], true
}

// -----------------------------------------------------------------------------

// Nearest returns the point whose timestamp is closest to target. On equal
// distance the earliest stored point wins.
func (pb *PriceBuffer) Nearest(target int64) (models.MPricePoint, bool) {
	n := len(pb.data)
	if n == 0 {
		return models.MPricePoint{}, false
	}

	// first index at or after target
	idx := sort.Search(n, func(i int) bool {
		return pb.data[i].Timestamp >= target
	})

	best := -1
	var bestDist int64
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= n {
			continue
		}
		d := absInt64(pb.data[i].Timestamp - target)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}

	// walk back over earlier points at the same distance (duplicate timestamps)
	for best > 0 && absInt64(pb.data[best-1].Timestamp-target) == bestDist {
		best--
	}
	return pb.data[best], true
}

// -----------------------------------------------------------------------------

// GetAll returns a copy of all points, oldest first
func (pb *PriceBuffer) GetAll() []models.MPricePoint {
	out := make([]models.MPricePoint, len(pb.data))
	copy(out, pb.data)
	return out
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (pb *PriceBuffer) Size() int {
	return len(pb.data)
}

// -----------------------------------------------------------------------------

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
