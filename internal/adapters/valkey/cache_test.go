package valkey

import "testing"

func TestOperation(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"distinct:meta.platform", "distinct"},
		{"collection:abc", "collection"},
		{"plain", "other"},
		{":leading", "other"},
	}
	for _, tt := range tests {
		if got := operation(tt.key); got != tt.want {
			t.Errorf("operation(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
