package domain

import "encoding/json"

// Geometry is a GeoJSON geometry. Coordinates are kept raw because their
// nesting depth depends on Type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// IsPoint reports whether the geometry is a GeoJSON Point.
func (g *Geometry) IsPoint() bool {
	return g != nil && g.Type == "Point"
}

// Query types for non-point regions.
const (
	QueryWithin     = "within"
	QueryIntersects = "intersects"
)

// Region is the user-drawn search area.
type Region struct {
	Geometry    *Geometry `json:"geometry"`
	QueryType   string    `json:"query_type,omitempty"`   // within | intersects (non-point)
	MinDistance float64   `json:"min_distance,omitempty"` // meters (point)
	MaxDistance float64   `json:"max_distance,omitempty"` // meters (point)
}
