package natsadapter

import (
	"encoding/json"
	"testing"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

func TestProgressRoundTrip(t *testing.T) {
	in := &domain.SampleProgress{
		Scope:   "session",
		ScopeID: "s1",
		Query:   `{"meta.platform":{"$in":["A"]}}`,
		Offset:  2000,
		Fetched: 1000,
		Bins:    12,
		Done:    true,
	}

	data, err := EncodeProgress(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeProgress(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *out != *in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestProgressJSON(t *testing.T) {
	data, err := EncodeProgress(&domain.SampleProgress{Scope: "heatmap", Query: "{}", Fetched: 5})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	js, err := ProgressJSON(data)
	if err != nil {
		t.Fatalf("json: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", js, err)
	}
	if m["scope"] != "heatmap" || m["fetched"] != float64(5) || m["done"] != false {
		t.Errorf("unexpected payload %s", js)
	}
}

func TestProgressSubject(t *testing.T) {
	tests := []struct {
		in   domain.SampleProgress
		want string
	}{
		{domain.SampleProgress{Scope: "heatmap"}, "geofacet.progress.heatmap"},
		{domain.SampleProgress{Scope: "session", ScopeID: "abc"}, "geofacet.progress.session.abc"},
		{domain.SampleProgress{Scope: "session"}, "geofacet.progress.heatmap"},
	}
	for _, tt := range tests {
		if got := ProgressSubject(&tt.in); got != tt.want {
			t.Errorf("ProgressSubject(%+v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubscriberWithoutConn(t *testing.T) {
	s := NewSubscriber(nil)
	if s.Connected() {
		t.Error("expected disconnected")
	}
	if _, err := s.SubscribeProgressJSON(SubjectHeatmapProgress, func([]byte) {}); err == nil {
		t.Error("expected error without a connection")
	}
}
