package fact

import (
	"testing"

	"github.com/symbolica/symbolica/pkg/value"
)

func TestEnvOverlayShadowsOriginal(t *testing.T) {
	env := NewEnv(Map{"x": value.Int(1)})
	if v, ok := env.Lookup("x"); !ok || !value.Equal(v, value.Int(1)) {
		t.Fatalf("expected original x=1, got %v ok=%v", v, ok)
	}

	env.Write("x", value.Int(2))
	if v, ok := env.Lookup("x"); !ok || !value.Equal(v, value.Int(2)) {
		t.Fatalf("expected overlay x=2, got %v ok=%v", v, ok)
	}
}

func TestEnvLookupMissingIsNotOK(t *testing.T) {
	env := NewEnv(Map{})
	if _, ok := env.Lookup("missing"); ok {
		t.Fatal("expected missing field to report ok=false, not Null")
	}
}

func TestVerdictOnlyIncludesWrites(t *testing.T) {
	env := NewEnv(Map{"a": value.Int(1)})
	env.Write("b", value.Int(2))

	verdict := env.Verdict()
	if len(verdict) != 1 {
		t.Fatalf("expected verdict to contain only writes, got %v", verdict)
	}
	if !value.Equal(verdict["b"], value.Int(2)) {
		t.Fatalf("expected b=2, got %v", verdict["b"])
	}
}
