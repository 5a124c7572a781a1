package engine

import (
	"fmt"

	"popxf/domain/document"
	"popxf/domain/monomial"
	"popxf/domain/polynomial"
)

// UncertaintyAggregator holds one coefficient table per breakdown source.
// A bare width-N sequence is normalized into a table with a single
// constant-term key; the object form goes through the same build path as any
// other table. No combined total across sources is computed here: the format
// prescribes no combination formula, so that stays a caller policy.
type UncertaintyAggregator struct {
	sources []string
	tables  map[string]*polynomial.Table
}

// NewUncertaintyAggregator normalizes every breakdown source. sources gives
// the author order; any source missing from it is appended alphabetically by
// the caller beforehand.
func NewUncertaintyAggregator(codec *monomial.Codec, width int,
	breakdown map[string]document.Uncertainty, sources []string) (*UncertaintyAggregator, error) {

	agg := &UncertaintyAggregator{
		tables: make(map[string]*polynomial.Table, len(breakdown)),
	}
	for _, source := range sources {
		unc, ok := breakdown[source]
		if !ok {
			continue
		}
		raw := unc.Table
		if unc.IsBare {
			raw = map[string][]float64{
				codec.Encode(codec.Constant()): unc.Bare,
			}
		}
		table, err := polynomial.Build(codec, raw, width)
		if err != nil {
			return nil, fmt.Errorf("uncertainty source %q: %w", source, err)
		}
		agg.sources = append(agg.sources, source)
		agg.tables[source] = table
	}
	return agg, nil
}

// Sources returns the breakdown sources in document order.
func (a *UncertaintyAggregator) Sources() []string {
	return a.sources
}

// Table returns the coefficient table for one source.
func (a *UncertaintyAggregator) Table(source string) (*polynomial.Table, bool) {
	t, ok := a.tables[source]
	return t, ok
}

// Evaluate computes every source's value for one target index at a parameter
// point.
func (a *UncertaintyAggregator) Evaluate(point map[string]complex128, target int) (map[string]float64, error) {
	out := make(map[string]float64, len(a.sources))
	for _, source := range a.sources {
		v, err := a.tables[source].Evaluate(point, target)
		if err != nil {
			return nil, err
		}
		out[source] = v
	}
	return out, nil
}
