package natsadapter

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// EncodeProgress serialises a progress event as a protobuf Struct.
func EncodeProgress(p *domain.SampleProgress) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"scope":    p.Scope,
		"scope_id": p.ScopeID,
		"query":    p.Query,
		"offset":   p.Offset,
		"fetched":  p.Fetched,
		"bins":     p.Bins,
		"done":     p.Done,
	})
	if err != nil {
		return nil, fmt.Errorf("build progress struct: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeProgress is the inverse of EncodeProgress.
func DecodeProgress(data []byte) (*domain.SampleProgress, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	f := s.GetFields()
	return &domain.SampleProgress{
		Scope:   f["scope"].GetStringValue(),
		ScopeID: f["scope_id"].GetStringValue(),
		Query:   f["query"].GetStringValue(),
		Offset:  int(f["offset"].GetNumberValue()),
		Fetched: int(f["fetched"].GetNumberValue()),
		Bins:    int(f["bins"].GetNumberValue()),
		Done:    f["done"].GetBoolValue(),
	}, nil
}

// ProgressJSON converts an encoded progress event to JSON for clients.
func ProgressJSON(data []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return protojson.Marshal(&s)
}
