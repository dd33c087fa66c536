package domain

import "time"

// Reserved field names and values used by the filter state.
const (
	// UnspecifiedValue stands for "field missing or null" in histograms and selections.
	UnspecifiedValue = "ResultsViewUnspecified"
	// CollectionField is the item field holding the top-level collection ID.
	CollectionField = "baseParentId"
	// MetaPrefix prefixes metadata fields in queries and distinct lookups.
	MetaPrefix = "meta."
)

// Range is a closed numeric interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TimeRange is a closed time interval.
type TimeRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// SelectedFilters is the user's current facet selection.
type SelectedFilters struct {
	Values    map[string][]string `json:"values"`
	Ranges    map[string]Range    `json:"ranges,omitempty"`
	Timestamp *TimeRange          `json:"timestamp,omitempty"`
}

// NewSelectedFilters returns an empty selection.
func NewSelectedFilters() SelectedFilters {
	return SelectedFilters{
		Values: make(map[string][]string),
		Ranges: make(map[string]Range),
	}
}

// Clone returns a deep copy.
func (s SelectedFilters) Clone() SelectedFilters {
	out := NewSelectedFilters()
	for k, v := range s.Values {
		out.Values[k] = append([]string{}, v...)
	}
	for k, v := range s.Ranges {
		out.Ranges[k] = v
	}
	if s.Timestamp != nil {
		ts := *s.Timestamp
		out.Timestamp = &ts
	}
	return out
}

// FacetValue is one checkbox of a string facet.
type FacetValue struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
	Overflow bool   `json:"overflow"` // hidden until "show more"
}

// StringFacet is the rendered state of a string-valued field.
type StringFacet struct {
	Key           string       `json:"key"`
	Name          string       `json:"name"`
	SelectedLabel string       `json:"selected_label"`
	Values        []FacetValue `json:"values"`
	HasMore       bool         `json:"has_more"`
}

// RangeFacet is the rendered state of a numeric slider.
type RangeFacet struct {
	Key      string  `json:"key"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Value    Range   `json:"value"`
	Disabled bool    `json:"disabled"`
}

// FieldOption is an entry in the "edit shown filters" list.
type FieldOption struct {
	Key     string `json:"key"`
	Checked bool   `json:"checked"`
}

// FilterView is the full rendered filter panel.
type FilterView struct {
	Strings   []StringFacet `json:"strings"`
	Ranges    []RangeFacet  `json:"ranges"`
	Timestamp *TimeRange    `json:"timestamp,omitempty"`
}
