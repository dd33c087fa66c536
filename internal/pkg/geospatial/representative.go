package geospatial

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// outlierDegrees is how far a coordinate may sit from the median before it is
// ignored when averaging.
const outlierDegrees = 0.5

// Representative returns one [lon, lat] position for a GeoJSON coordinates
// array of any nesting depth. Points are returned as-is. Lines, polygons and
// multi-geometries are reduced to their first ring, then to the outlier-free
// mean around the median of each axis. Empty coordinates yield [0, 0].
func Representative(coordinates json.RawMessage) ([2]float64, error) {
	if len(coordinates) == 0 || string(coordinates) == "null" {
		return [2]float64{}, nil
	}
	var v any
	if err := json.Unmarshal(coordinates, &v); err != nil {
		return [2]float64{}, fmt.Errorf("decode coordinates: %w", err)
	}
	arr, ok := v.([]any)
	if !ok {
		return [2]float64{}, fmt.Errorf("coordinates must be an array")
	}
	return representative(arr), nil
}

func representative(arr []any) [2]float64 {
	if len(arr) == 0 {
		return [2]float64{}
	}
	if _, isNum := arr[0].(float64); isNum {
		return position(arr)
	}

	// Descend through the first element until arr is a list of positions.
	for {
		first, ok := arr[0].([]any)
		if !ok || len(first) == 0 {
			break
		}
		if _, isNum := first[0].(float64); isNum {
			break
		}
		arr = first
	}

	xs := make([]float64, 0, len(arr))
	ys := make([]float64, 0, len(arr))
	for _, p := range arr {
		pos, ok := p.([]any)
		if !ok || len(pos) < 2 {
			continue
		}
		x, okX := pos[0].(float64)
		y, okY := pos[1].(float64)
		if !okX || !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if len(xs) == 0 {
		return [2]float64{}
	}
	return [2]float64{trimmedMean(xs), trimmedMean(ys)}
}

func position(arr []any) [2]float64 {
	var out [2]float64
	for i := 0; i < 2 && i < len(arr); i++ {
		if f, ok := arr[i].(float64); ok {
			out[i] = f
		}
	}
	return out
}

// trimmedMean averages the values lying within outlierDegrees of the median.
func trimmedMean(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	idx := int(math.Round(float64(len(sorted)) / 2))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	mid := sorted[idx]

	var sum float64
	var n int
	for _, v := range sorted {
		if math.Abs(v-mid) < outlierDegrees {
			sum += v
			n++
		}
	}
	if n == 0 {
		return mid
	}
	return sum / float64(n)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
