package usecases

import (
	"sync"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/pkg/geospatial"
)

// Binner accumulates items into heatmap bins keyed by their rounded
// representative coordinate.
type Binner struct {
	mu     sync.Mutex
	places int
	index  map[[2]float64]int
	points []domain.HeatPoint
	seen   int
}

// NewBinner creates a Binner rounding coordinates to places decimals.
func NewBinner(places int) *Binner {
	return &Binner{places: places, index: make(map[[2]float64]int)}
}

// Add bins items and returns how many were binned. Items without geometry
// or with unreadable coordinates are skipped.
func (b *Binner) Add(items []domain.Item) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	added := 0
	for i := range items {
		if !items[i].HasGeometry() {
			continue
		}
		c, err := geospatial.Representative(items[i].Geo.Geometry.Coordinates)
		if err != nil {
			continue
		}
		key := [2]float64{geospatial.Round(c[0], b.places), geospatial.Round(c[1], b.places)}
		if idx, ok := b.index[key]; ok {
			b.points[idx].I++
		} else {
			b.index[key] = len(b.points)
			b.points = append(b.points, domain.HeatPoint{C: key, I: 1})
		}
		added++
	}
	b.seen += len(items)
	return added
}

// Points returns a copy of the current bins in insertion order.
func (b *Binner) Points() []domain.HeatPoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.HeatPoint(nil), b.points...)
}

// Seen returns the number of items offered to Add since the last Reset.
func (b *Binner) Seen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen
}

// Reset drops all bins.
func (b *Binner) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.index = make(map[[2]float64]int)
	b.points = nil
	b.seen = 0
}

// positions returns the representative position of every item with a
// geometry, skipping items that resolve to a zero longitude or latitude.
func positions(items []domain.Item) [][2]float64 {
	out := make([][2]float64, 0, len(items))
	for i := range items {
		if !items[i].HasGeometry() {
			continue
		}
		c, err := geospatial.Representative(items[i].Geo.Geometry.Coordinates)
		if err != nil || c[0] == 0 || c[1] == 0 {
			continue
		}
		out = append(out, c)
	}
	return out
}
