package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"popxf/domain/core"
)

func valueFrom(t *testing.T, src string) core.Value {
	t.Helper()
	var v core.Value
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", src, err)
	}
	return v
}

func TestScaleResolverScalar(t *testing.T) {
	r, err := NewScaleResolver(valueFrom(t, "91.1876"), 3, false)
	if err != nil {
		t.Fatalf("NewScaleResolver failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if r.ScaleFor(i) != 91.1876 {
			t.Errorf("ScaleFor(%d) = %v", i, r.ScaleFor(i))
		}
	}
}

func TestScaleResolverArray(t *testing.T) {
	r, err := NewScaleResolver(valueFrom(t, "[4.8, 4.2]"), 2, false)
	if err != nil {
		t.Fatalf("NewScaleResolver failed: %v", err)
	}
	if r.ScaleFor(0) != 4.8 || r.ScaleFor(1) != 4.2 {
		t.Errorf("per-observable scales wrong: %v, %v", r.ScaleFor(0), r.ScaleFor(1))
	}
}

func TestScaleResolverArityMismatch(t *testing.T) {
	_, err := NewScaleResolver(valueFrom(t, "[4.8, 4.2]"), 3, false)
	if !errors.Is(err, core.ErrScaleArity) {
		t.Errorf("err = %v, want ErrScaleArity", err)
	}
}

func TestScaleResolverArrayForbiddenInFunctionMode(t *testing.T) {
	_, err := NewScaleResolver(valueFrom(t, "[4.8]"), 1, true)
	if !errors.Is(err, core.ErrInvalidScaleMode) {
		t.Errorf("err = %v, want ErrInvalidScaleMode", err)
	}
}
