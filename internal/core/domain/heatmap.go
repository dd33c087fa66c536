package domain

import "math"

// HeatPoint is one heatmap bin: rounded [lon, lat] and an item count.
type HeatPoint struct {
	C [2]float64 `json:"c"`
	I int        `json:"i"`
}

// Intensity is the rendering weight of the bin.
func (p HeatPoint) Intensity() float64 {
	return math.Log10(float64(p.I) * 10)
}

// HeatmapStatus describes sampling progress.
type HeatmapStatus struct {
	Query            string `json:"query"`
	BaseSampling     bool   `json:"base_sampling"`
	CurrentSampling  bool   `json:"current_sampling"`
	BaseItemsSeen    int    `json:"base_items_seen"`
	CurrentItemsSeen int    `json:"current_items_seen"`
}

// Heatmap is a snapshot of the current heatmap.
type Heatmap struct {
	Points []HeatPoint   `json:"points"`
	Status HeatmapStatus `json:"status"`
}

// SampleProgress is published after each sampled page.
type SampleProgress struct {
	Scope   string `json:"scope"` // heatmap | session
	ScopeID string `json:"scope_id,omitempty"`
	Query   string `json:"query"`
	Offset  int    `json:"offset"`
	Fetched int    `json:"fetched"`
	Bins    int    `json:"bins"`
	Done    bool   `json:"done"`
}
