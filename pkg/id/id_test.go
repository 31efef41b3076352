package id

import (
	"strings"
	"testing"
)

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 10000; i++ {
		v := New("")
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate id after %d iterations: %s", i, v)
		}
		seen[v] = struct{}{}
	}
}

func TestNewPrefix(t *testing.T) {
	t.Run("with prefix", func(t *testing.T) {
		v := New("order")
		if !strings.HasPrefix(v, "order_") {
			t.Fatalf("expected order_ prefix, got %s", v)
		}
		if len(v) <= len("order_") {
			t.Fatalf("id body is empty: %s", v)
		}
	})

	t.Run("without prefix", func(t *testing.T) {
		v := New("")
		if strings.HasPrefix(v, "_") {
			t.Fatalf("unexpected leading underscore: %s", v)
		}
	})
}
