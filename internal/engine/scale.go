package engine

import (
	"fmt"

	"popxf/domain/core"
)

// ScaleResolver exposes the renormalization scale per observable. The scalar
// document form applies one scale to every observable; the array form maps
// index to scale and is only legal in direct mode.
type ScaleResolver struct {
	scalar float64
	perObs []float64
}

// NewScaleResolver narrows the metadata.scale value. m is the observable
// count; functionMode forbids the array form.
func NewScaleResolver(scale core.Value, m int, functionMode bool) (*ScaleResolver, error) {
	switch scale.Kind() {
	case core.KindNumber:
		n, _ := scale.AsNumber()
		return &ScaleResolver{scalar: n}, nil
	case core.KindArray:
		if functionMode {
			return nil, core.ErrInvalidScaleMode
		}
		seq, ok := scale.AsNumberSlice()
		if !ok {
			return nil, fmt.Errorf("%w: scale array must hold numbers", core.ErrScaleArity)
		}
		if len(seq) != m {
			return nil, fmt.Errorf("%w: got %d, want %d", core.ErrScaleArity, len(seq), m)
		}
		return &ScaleResolver{perObs: seq}, nil
	default:
		return nil, fmt.Errorf("%w: scale must be a number or array, got %s", core.ErrScaleArity, scale.Kind())
	}
}

// ScaleFor returns the scale for one observable index.
func (r *ScaleResolver) ScaleFor(i int) float64 {
	if r.perObs != nil {
		return r.perObs[i]
	}
	return r.scalar
}
