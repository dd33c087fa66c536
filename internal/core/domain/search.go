package domain

import "time"

// ResultRow is one rendered row of the results table.
type ResultRow struct {
	Index          int    `json:"index"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	SensorModality string `json:"sensor_modality,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
	ImagePath      string `json:"image_path"`
	ThumbnailID    string `json:"thumbnail_id,omitempty"`
	ViewURL        string `json:"view_url"`
}

// ResultsPage is one page of a results session.
type ResultsPage struct {
	SessionID string      `json:"session_id"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	Query     string      `json:"query"`
	Range     string      `json:"range"`
	Rows      []ResultRow `json:"rows"`
	Items     []Item      `json:"-"`
}

// SavedSearch is a persisted region search.
type SavedSearch struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Region      Region          `json:"region"`
	Filters     SelectedFilters `json:"filters"`
	StringKeys  []string        `json:"string_keys,omitempty"`
	NumericKeys []string        `json:"numeric_keys,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
