package usecases

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

const (
	// Slider bounds used while a numeric field's range is still unknown.
	unknownMin = -99999999
	unknownMax = 99999999

	// Facet values listed before "show more".
	expandedFacetValues = 5

	collectionDisplayName  = "Girder Collection"
	unspecifiedLabel       = "Not Specified"
	unspecifiedSelectLabel = "Unspecified"
)

// FilterConfig holds the defaults of a filter panel.
type FilterConfig struct {
	DefaultStringKeys  []string
	DefaultNumericKeys []string
	TimestampKey       string
}

// fieldInfo is what is known about one field: a value histogram for string
// fields, bounds for numeric ones.
type fieldInfo struct {
	counts map[string]int
	bounds *domain.Range
}

type slider struct {
	bounds  domain.Range
	enabled bool
}

// FilterState is the state of one filter panel. It aggregates histograms and
// bounds from sampled items and distinct-value lookups, tracks the user's
// selection and builds the matching query object. It is safe for concurrent
// use.
type FilterState struct {
	mu  sync.RWMutex
	cfg FilterConfig

	selected    domain.SelectedFilters
	stringKeys  []string
	numericKeys []string

	values  map[string][]any
	info    map[string]*fieldInfo
	sliders map[string]slider
	names   map[string]string
	// fields whose distinct lookup failed and must be requested again
	retry map[string]bool
}

// NewFilterState creates a FilterState seeded with selected. Nil key lists
// fall back to the configured defaults.
func NewFilterState(selected domain.SelectedFilters, stringKeys, numericKeys []string, cfg FilterConfig) *FilterState {
	if stringKeys == nil {
		stringKeys = cfg.DefaultStringKeys
	}
	if numericKeys == nil {
		numericKeys = cfg.DefaultNumericKeys
	}
	sel := selected.Clone()
	return &FilterState{
		cfg:         cfg,
		selected:    sel,
		stringKeys:  append([]string{}, stringKeys...),
		numericKeys: append([]string{}, numericKeys...),
		values:      make(map[string][]any),
		info:        make(map[string]*fieldInfo),
		retry:       make(map[string]bool),
		sliders:     make(map[string]slider),
		names:       make(map[string]string),
	}
}

// MetadataFields flattens meta into dot-separated leaf names under prefix.
// Arrays yield nothing and nil or empty-string leaves are skipped.
func MetadataFields(prefix string, meta map[string]any) []string {
	var fields []string
	walkMetadata(prefix, meta, func(field string, _ any) {
		fields = append(fields, field)
	})
	sort.Strings(fields)
	return fields
}

func walkMetadata(prefix string, meta map[string]any, fn func(field string, value any)) {
	for k, v := range meta {
		switch val := v.(type) {
		case nil:
		case string:
			if val != "" {
				fn(prefix+k, val)
			}
		case map[string]any:
			walkMetadata(prefix+k+".", val, fn)
		case []any:
		default:
			fn(prefix+k, val)
		}
	}
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return domain.UnspecifiedValue
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

func (f *FilterState) infoFor(field string) *fieldInfo {
	fi, ok := f.info[field]
	if !ok {
		fi = &fieldInfo{counts: make(map[string]int)}
		f.info[field] = fi
	}
	return fi
}

// Ingest folds a page of sampled items into the histograms and returns the
// fields, in query form, whose distinct values have not been requested yet.
func (f *FilterState) Ingest(items []domain.Item) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var newFields []string
	if _, ok := f.values[domain.CollectionField]; !ok {
		f.values[domain.CollectionField] = []any{}
		f.infoFor(domain.CollectionField)
		newFields = append(newFields, domain.CollectionField)
	}

	for i := range items {
		for _, field := range MetadataFields("", items[i].Meta) {
			_, hasValues := f.values[field]
			_, hasInfo := f.info[field]
			if !hasValues && (!hasInfo || f.retry[field]) {
				delete(f.retry, field)
				f.values[field] = []any{}
				newFields = append(newFields, domain.MetaPrefix+field)
			}
		}
	}

	for i := range items {
		meta := items[i].Meta
		present := make(map[string]bool)
		walkMetadata("", meta, func(field string, v any) {
			present[field] = true
			fi := f.infoFor(field)
			if isNumber(v) {
				return
			}
			fi.counts[valueString(v)]++
		})
		for _, key := range f.stringKeys {
			if !present[key] {
				f.infoFor(key).counts[domain.UnspecifiedValue]++
			}
		}
		f.infoFor(domain.CollectionField).counts[items[i].BaseParentID]++
	}

	f.refreshSliders()
	return newFields
}

// ForgetField drops the placeholder Ingest registered for field, given in
// query form, so the next page asks for its distinct values again.
func (f *FilterState) ForgetField(field string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if field == domain.CollectionField {
		delete(f.values, field)
		return
	}
	key := strings.TrimPrefix(field, domain.MetaPrefix)
	delete(f.values, key)
	f.retry[key] = true
}

// ApplyDistinct records the distinct values of field, given in query form.
// Numeric fields widen their bounds; string fields get a zero-count entry for
// every value so each one can be selected.
func (f *FilterState) ApplyDistinct(field string, values []any) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if field == domain.CollectionField {
		f.values[field] = values
		fi := f.infoFor(field)
		for _, v := range values {
			key := valueString(v)
			if _, ok := fi.counts[key]; !ok {
				fi.counts[key] = 0
			}
		}
		f.refreshSliders()
		return
	}

	key := strings.TrimPrefix(field, domain.MetaPrefix)
	f.values[key] = values
	fi := f.infoFor(key)

	if len(values) > 0 && isNumber(values[0]) {
		for _, v := range values {
			n, ok := toFloat(v)
			if !ok {
				continue
			}
			if fi.bounds == nil {
				fi.bounds = &domain.Range{Min: n, Max: n}
				continue
			}
			fi.bounds.Min = math.Min(fi.bounds.Min, n)
			fi.bounds.Max = math.Max(fi.bounds.Max, n)
		}
	} else {
		for _, v := range values {
			if _, ok := fi.counts[valueString(v)]; !ok {
				fi.counts[valueString(v)] = 0
			}
		}
		if _, ok := fi.counts[domain.UnspecifiedValue]; !ok {
			fi.counts[domain.UnspecifiedValue] = 0
		}
	}
	f.refreshSliders()
}

// refreshSliders recomputes slider bounds for the visible numeric fields and
// drops range selections that no longer fit. Callers hold f.mu.
func (f *FilterState) refreshSliders() {
	for _, key := range f.numericKeys {
		fi, ok := f.info[key]
		if !ok {
			continue
		}
		s := slider{bounds: domain.Range{Min: unknownMin, Max: unknownMax}}
		if fi.bounds != nil {
			s.bounds = domain.Range{Min: math.Floor(fi.bounds.Min), Max: math.Ceil(fi.bounds.Max)}
			s.enabled = true
		}
		f.sliders[key] = s

		if r, ok := f.selected.Ranges[key]; ok {
			if r.Min < s.bounds.Min || r.Max > s.bounds.Max || r == s.bounds {
				delete(f.selected.Ranges, key)
			}
		}
	}
}

// SetCollectionName records the display name of a collection ID.
func (f *FilterState) SetCollectionName(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names[id] = name
}

// UnnamedCollections returns the collection IDs seen so far without a
// display name.
func (f *FilterState) UnnamedCollections() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var ids []string
	if fi, ok := f.info[domain.CollectionField]; ok {
		for id := range fi.counts {
			if _, named := f.names[id]; !named && id != "" {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Toggle adds or removes value from the selection of key.
func (f *FilterState) Toggle(key, value string, checked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.selected.Values[key]
	idx := -1
	for i, v := range current {
		if v == value {
			idx = i
			break
		}
	}
	switch {
	case checked && idx == -1:
		f.selected.Values[key] = append(current, value)
	case !checked && idx != -1:
		f.selected.Values[key] = append(current[:idx:idx], current[idx+1:]...)
	}
}

// SetRange selects [min, max] on the slider of key.
func (f *FilterState) SetRange(key string, min, max float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sliders[key]
	if !ok || !f.isNumericKey(key) {
		return fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return fmt.Errorf("%w: [%v, %v]", ErrInvalidRange, min, max)
	}
	if min < s.bounds.Min || max > s.bounds.Max {
		return fmt.Errorf("%w: [%v, %v] outside [%v, %v]", ErrInvalidRange, min, max, s.bounds.Min, s.bounds.Max)
	}

	r := domain.Range{Min: min, Max: max}
	if r == s.bounds {
		delete(f.selected.Ranges, key)
		return nil
	}
	f.selected.Ranges[key] = r
	return nil
}

// SetTimestamp selects a timestamp window.
func (f *FilterState) SetTimestamp(min, max time.Time) error {
	if max.Before(min) {
		return fmt.Errorf("%w: timestamp max before min", ErrInvalidRange)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected.Timestamp = &domain.TimeRange{Min: min, Max: max}
	return nil
}

// ClearTimestamp removes the timestamp window.
func (f *FilterState) ClearTimestamp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected.Timestamp = nil
}

func (f *FilterState) isNumericKey(key string) bool {
	for _, k := range f.numericKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (f *FilterState) isVisible(key string) bool {
	if f.isNumericKey(key) {
		return true
	}
	for _, k := range f.stringKeys {
		if k == key {
			return true
		}
	}
	return false
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// SetFieldVisible shows or hides a field in the panel. A field whose
// distinct values are numbers becomes a slider, anything else a facet.
func (f *FilterState) SetFieldVisible(key string, visible bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !visible {
		f.stringKeys = removeKey(f.stringKeys, key)
		f.numericKeys = removeKey(f.numericKeys, key)
		delete(f.sliders, key)
		return
	}
	if f.isVisible(key) {
		return
	}
	if vals := f.values[key]; len(vals) > 0 && isNumber(vals[0]) {
		f.numericKeys = append(f.numericKeys, key)
	} else {
		f.stringKeys = append(f.stringKeys, key)
	}
	f.refreshSliders()
}

// Keys returns copies of the visible string and numeric keys.
func (f *FilterState) Keys() (stringKeys, numericKeys []string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string{}, f.stringKeys...), append([]string{}, f.numericKeys...)
}

// View renders the filter panel.
func (f *FilterState) View() domain.FilterView {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var view domain.FilterView
	for _, key := range append(append([]string{}, f.stringKeys...), domain.CollectionField) {
		view.Strings = append(view.Strings, f.stringFacet(key))
	}

	for _, key := range f.numericKeys {
		s, ok := f.sliders[key]
		if !ok {
			continue
		}
		value := s.bounds
		if r, ok := f.selected.Ranges[key]; ok {
			value = r
		}
		view.Ranges = append(view.Ranges, domain.RangeFacet{
			Key:      key,
			Min:      s.bounds.Min,
			Max:      s.bounds.Max,
			Value:    value,
			Disabled: !s.enabled,
		})
	}

	if f.selected.Timestamp != nil {
		ts := *f.selected.Timestamp
		view.Timestamp = &ts
	}
	return view
}

func (f *FilterState) stringFacet(key string) domain.StringFacet {
	facet := domain.StringFacet{Key: key, Name: key}
	if key == domain.CollectionField {
		facet.Name = collectionDisplayName
	}

	selected := make(map[string]bool)
	for _, v := range f.selected.Values[key] {
		selected[v] = true
	}

	if fi, ok := f.info[key]; ok {
		values := make([]string, 0, len(fi.counts))
		for v := range fi.counts {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool {
			ci, cj := fi.counts[values[i]], fi.counts[values[j]]
			if ci != cj {
				return ci > cj
			}
			return values[i] < values[j]
		})
		for i, v := range values {
			facet.Values = append(facet.Values, domain.FacetValue{
				Value:    v,
				Label:    f.valueLabel(key, v),
				Count:    fi.counts[v],
				Selected: selected[v],
				Overflow: i >= expandedFacetValues,
			})
		}
		facet.HasMore = len(values) > expandedFacetValues
	}

	facet.SelectedLabel = f.selectedLabel(key)
	return facet
}

func (f *FilterState) valueLabel(key, value string) string {
	if value == domain.UnspecifiedValue {
		return unspecifiedLabel
	}
	if key == domain.CollectionField {
		if name, ok := f.names[value]; ok {
			return name
		}
	}
	return value
}

func (f *FilterState) selectedLabel(key string) string {
	values := f.selected.Values[key]
	if len(values) == 0 {
		return " - No filter applied"
	}
	friendly := make([]string, len(values))
	for i, v := range values {
		switch {
		case v == domain.UnspecifiedValue:
			friendly[i] = unspecifiedSelectLabel
		case key == domain.CollectionField && f.names[v] != "":
			friendly[i] = f.names[v]
		default:
			friendly[i] = v
		}
	}
	return " - " + strings.Join(friendly, ", ")
}

// AvailableFields lists the fields that can be shown in the panel, shortest
// name first, filtered by a case-insensitive substring.
func (f *FilterState) AvailableFields(search string) []domain.FieldOption {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var fields []string
	for key, vals := range f.values {
		if key == f.cfg.TimestampKey || key == domain.CollectionField || len(vals) == 0 {
			continue
		}
		switch v := vals[0].(type) {
		case string:
			if v == "" {
				continue
			}
		default:
			if !isNumber(v) {
				continue
			}
		}
		fields = append(fields, key)
	}
	sort.Strings(fields)
	sort.SliceStable(fields, func(i, j int) bool { return len(fields[i]) < len(fields[j]) })

	search = strings.ToLower(search)
	out := make([]domain.FieldOption, 0, len(fields))
	for _, key := range fields {
		if search != "" && !strings.Contains(strings.ToLower(key), search) {
			continue
		}
		out = append(out, domain.FieldOption{Key: key, Checked: f.isVisible(key)})
	}
	return out
}

// QueryObject builds the MongoDB-compatible filter for the current selection.
func (f *FilterState) QueryObject() Query {
	f.mu.RLock()
	defer f.mu.RUnlock()

	q := Query{}

	for _, key := range f.numericKeys {
		s, ok := f.sliders[key]
		if !ok {
			continue
		}
		r, ok := f.selected.Ranges[key]
		if !ok || r == s.bounds {
			continue
		}
		q[domain.MetaPrefix+key] = map[string]any{"$gte": r.Min, "$lte": r.Max}
	}

	for _, key := range f.stringKeys {
		values := f.selected.Values[key]
		if len(values) == 0 {
			continue
		}
		in := make([]any, len(values))
		for i, v := range values {
			if v == domain.UnspecifiedValue {
				in[i] = nil
			} else {
				in[i] = v
			}
		}
		q[domain.MetaPrefix+key] = map[string]any{"$in": in}
	}

	if ids := f.selected.Values[domain.CollectionField]; len(ids) > 0 {
		in := make([]any, len(ids))
		for i, id := range ids {
			in[i] = map[string]any{"$oid": id}
		}
		q[domain.CollectionField] = map[string]any{"$in": in}
	}

	if ts := f.selected.Timestamp; ts != nil && !ts.Min.IsZero() && !ts.Max.IsZero() {
		q[domain.MetaPrefix+f.cfg.TimestampKey] = map[string]any{
			"$gte": ts.Min.Unix(),
			"$lte": ts.Max.Unix(),
		}
	}

	return q
}

// Selected returns a deep copy of the current selection.
func (f *FilterState) Selected() domain.SelectedFilters {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected.Clone()
}
