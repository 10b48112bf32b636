package kv

import (
	"context"
	"testing"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	if err := s.Store(ctx, map[string]string{"Token": "tkn", "Role": "TEACHER"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	tests := []struct {
		name string
		keys []string
		want map[string]string
	}{
		{name: "both", keys: []string{"Token", "Role"}, want: map[string]string{"Token": "tkn", "Role": "TEACHER"}},
		{name: "one", keys: []string{"Role"}, want: map[string]string{"Role": "TEACHER"}},
		{name: "unknown", keys: []string{"lol"}, want: map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := s.Load(ctx, tt.keys...)
			if len(got) != len(tt.want) {
				t.Fatalf("Load() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Load()[%s] = %q, want %q", k, got[k], v)
				}
			}
		})
	}

	_ = s.Remove(ctx, "Token", "Role")
	if got, _ := s.Load(ctx, "Token", "Role"); len(got) != 0 {
		t.Errorf("Load() after Remove() = %v, want empty", got)
	}
}
