package usecases

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// geoField is the item field the geospatial plugin indexes.
const geoField = "geo.geometry"

// Query is a MongoDB-compatible filter object.
type Query map[string]any

// Encode returns the canonical JSON form of q. Keys are emitted in sorted
// order so equal queries always encode identically.
func (q Query) Encode() string {
	if len(q) == 0 {
		return "{}"
	}
	data, err := json.Marshal(map[string]any(q))
	if err != nil {
		// Queries only hold values decoded from JSON or finite numbers.
		panic(fmt.Sprintf("encode query: %v", err))
	}
	return string(data)
}

// Merge returns a new query holding the keys of filter overlaid with geo.
func Merge(filter, geo Query) Query {
	out := make(Query, len(filter)+len(geo))
	for k, v := range filter {
		out[k] = v
	}
	for k, v := range geo {
		out[k] = v
	}
	return out
}

// GeoQuery builds the geospatial part of a search for region. Points become a
// $near query bounded by the region's distances; any other geometry becomes
// $geoWithin or $geoIntersects depending on the query type.
func GeoQuery(region domain.Region) (Query, error) {
	g := region.Geometry
	if g == nil || g.Type == "" || len(g.Coordinates) == 0 {
		return nil, ErrInvalidRegion
	}

	var coords any
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	geometry := map[string]any{"type": g.Type, "coordinates": coords}

	if g.IsPoint() {
		if region.MaxDistance < 0 || region.MinDistance < 0 {
			return nil, fmt.Errorf("%w: distances must not be negative", ErrInvalidRegion)
		}
		if region.MaxDistance > 0 && region.MinDistance > region.MaxDistance {
			return nil, fmt.Errorf("%w: min_distance exceeds max_distance", ErrInvalidRegion)
		}
		near := map[string]any{
			"$geometry":    geometry,
			"$minDistance": region.MinDistance,
		}
		if region.MaxDistance > 0 {
			near["$maxDistance"] = region.MaxDistance
		}
		return Query{geoField: map[string]any{"$near": near}}, nil
	}

	var op string
	switch strings.ToLower(region.QueryType) {
	case "", domain.QueryIntersects:
		op = "$geoIntersects"
	case domain.QueryWithin:
		op = "$geoWithin"
	default:
		return nil, fmt.Errorf("%w: unknown query type %q", ErrInvalidRegion, region.QueryType)
	}
	return Query{geoField: map[string]any{op: map[string]any{"$geometry": geometry}}}, nil
}
