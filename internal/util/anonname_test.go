package util

import (
	"strings"
	"testing"
)

func TestAnonNameIsDeterministicPerSeed(t *testing.T) {
	if AnonName(42) != AnonName(42) {
		t.Fatalf("same seed produced different names")
	}
}

func TestAnonNameFormat(t *testing.T) {
	seeds := []int64{0, 1, 7, 999, 123456789}
	for _, seed := range seeds {
		name := AnonName(seed)
		if !strings.HasPrefix(name, "anon-") {
			t.Fatalf("unexpected name %q for seed %d", name, seed)
		}
		if len(name) != len("anon-000") {
			t.Fatalf("expected three digit suffix, got %q", name)
		}
	}
}
