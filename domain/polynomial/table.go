// Package polynomial stores truncated-polynomial coefficients keyed by
// canonical monomial and evaluates them at parameter points.
package polynomial

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"

	"popxf/domain/core"
	"popxf/domain/monomial"
)

type entry struct {
	key    monomial.Key
	text   string // canonical encoding
	coeffs []float64
}

// Table is an immutable coefficient table over a fixed number of targets
// (observables or named polynomials). Missing monomials are implicit zeros.
type Table struct {
	codec   *monomial.Codec
	width   int
	entries []entry
	byText  map[string]int
}

// Build decodes a raw key→coefficients mapping into a table. Two raw keys
// decoding to the same canonical key is a duplicate; every coefficient
// sequence must have exactly width entries. Entries are stored sorted by
// canonical key so evaluation order is deterministic.
func Build(codec *monomial.Codec, raw map[string][]float64, width int) (*Table, error) {
	t := &Table{
		codec:   codec,
		width:   width,
		entries: make([]entry, 0, len(raw)),
		byText:  make(map[string]int, len(raw)),
	}

	texts := make([]string, 0, len(raw))
	for text := range raw {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	for _, text := range texts {
		key, err := codec.Decode(text)
		if err != nil {
			return nil, err
		}
		canonical := codec.Encode(key)
		if _, seen := t.byText[canonical]; seen {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateMonomial, canonical)
		}
		coeffs := raw[text]
		if len(coeffs) != width {
			return nil, core.NewLengthMismatchError(text, len(coeffs), width)
		}
		t.byText[canonical] = len(t.entries)
		t.entries = append(t.entries, entry{key: key, text: canonical, coeffs: coeffs})
	}
	return t, nil
}

// Width returns the number of targets per coefficient sequence.
func (t *Table) Width() int { return t.width }

// Len returns the number of stored monomials.
func (t *Table) Len() int { return len(t.entries) }

// Keys returns the canonical key strings in storage order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.text
	}
	return out
}

// Coefficient returns the coefficient sequence for a canonical key string,
// or the zero sequence if the monomial is absent.
func (t *Table) Coefficient(text string) []float64 {
	if i, ok := t.byText[text]; ok {
		return t.entries[i].coeffs
	}
	return make([]float64, t.width)
}

// Evaluate computes the polynomial value for one target index at a parameter
// point.
func (t *Table) Evaluate(point map[string]complex128, target int) (float64, error) {
	if target < 0 || target >= t.width {
		return 0, fmt.Errorf("target index %d out of range [0,%d)", target, t.width)
	}
	sum := 0.0
	for _, e := range t.entries {
		sum += e.key.Product(point) * e.coeffs[target]
	}
	return sum, nil
}

// EvaluateAll computes all targets at one parameter point. Each monomial's
// scalar product is computed once and scaled into the result vector, so the
// cost is O(len(entries) * width).
func (t *Table) EvaluateAll(point map[string]complex128) []float64 {
	result := make([]float64, t.width)
	for _, e := range t.entries {
		p := e.key.Product(point)
		if p == 0 {
			continue
		}
		floats.AddScaled(result, p, e.coeffs)
	}
	return result
}
