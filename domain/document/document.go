// Package document models a POPxf document: the raw, leniently decoded form
// the validator inspects, and the typed form the engine is built from.
package document

import (
	"encoding/json"
	"fmt"

	"popxf/domain/core"
	"popxf/domain/monomial"
)

// SchemaURL is the $schema value this engine version accepts.
const SchemaURL = "https://json.schemastore.org/popxf-1.0.json"

// Raw is a document decoded without shape assumptions. Every field is a
// tagged value; narrowing (and complaining about wrong types) is the
// validator's job, so one bad field never aborts decoding the rest.
type Raw struct {
	Schema   core.Value `json:"$schema"`
	Metadata core.Value `json:"metadata"`
	Data     core.Value `json:"data"`
}

// Parse decodes document bytes into the raw form. Only syntactically broken
// JSON fails here.
func Parse(data []byte) (*Raw, error) {
	var raw Raw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	return &raw, nil
}

// Expression is one observable's function-of-polynomials recipe: local
// variable names bound to declared polynomial names, and the expression text
// over those locals.
type Expression struct {
	Variables  map[string]string
	Expression string
}

// Uncertainty is one breakdown source in either of its two shapes: a bare
// width-N sequence (constant-term shorthand) or a full coefficient table.
type Uncertainty struct {
	Bare   []float64
	Table  map[string][]float64
	IsBare bool
}

// Basis describes the parameter naming convention. At least one arm is
// present on a valid document; parameters not covered by wcxf sectors are
// assumed to belong to the custom arm.
type Basis struct {
	WCxf   *WCxfBasis
	Custom core.Value // opaque
}

// WCxfBasis names an external WCxf EFT/basis pair.
type WCxfBasis struct {
	EFT     string
	Basis   string
	Sectors []string
}

// Metadata is the typed metadata block.
type Metadata struct {
	ObservableNames []string
	Parameters      []string
	Basis           Basis
	PolynomialOrder int
	Scale           core.Value // scalar or array; resolved by the engine
	PolynomialNames []string   // nil in direct mode
	Reproducibility core.Value // documentary, passed through untouched
	Misc            core.Value // documentary, passed through untouched
}

// Data is the typed data block.
type Data struct {
	ObservableCentral       map[string][]float64 // direct mode
	PolynomialCentral       map[string][]float64 // function mode
	ObservableExpressions   []Expression         // function mode, one per observable
	ObservableUncertainties map[string]Uncertainty
	PolynomialUncertainties map[string]Uncertainty
	UncertaintySources      []string // author order of observable uncertainty sources
}

// Document is the typed view of a validated document.
type Document struct {
	Schema   string
	Metadata Metadata
	Data     Data
}

// FunctionMode reports whether the document uses function-of-polynomials
// evaluation.
func (d *Document) FunctionMode() bool {
	return d.Metadata.PolynomialNames != nil
}

// FromRaw narrows a raw document into the typed form. It expects a document
// the validator has already accepted; shape problems surface as errors all
// the same so an unvalidated document cannot slip through as garbage.
func FromRaw(raw *Raw) (*Document, error) {
	doc := &Document{}

	schema, ok := raw.Schema.AsString()
	if !ok {
		return nil, fmt.Errorf("$schema: expected string, got %s", raw.Schema.Kind())
	}
	doc.Schema = schema

	meta := raw.Metadata
	if meta.Kind() != core.KindObject {
		return nil, fmt.Errorf("metadata: expected object, got %s", meta.Kind())
	}

	names, ok := meta.Field("observable_names").AsStringSlice()
	if !ok {
		return nil, fmt.Errorf("metadata.observable_names: expected array of strings")
	}
	doc.Metadata.ObservableNames = names

	params, ok := meta.Field("parameters").AsStringSlice()
	if !ok {
		return nil, fmt.Errorf("metadata.parameters: expected array of strings")
	}
	doc.Metadata.Parameters = params

	basis, err := narrowBasis(meta.Field("basis"))
	if err != nil {
		return nil, err
	}
	doc.Metadata.Basis = basis

	doc.Metadata.PolynomialOrder = monomial.DefaultOrder
	if v := meta.Field("polynomial_order"); !v.IsAbsent() {
		order, ok := v.AsNumber()
		if !ok {
			return nil, fmt.Errorf("metadata.polynomial_order: expected number")
		}
		doc.Metadata.PolynomialOrder = int(order)
	}

	doc.Metadata.Scale = meta.Field("scale")
	doc.Metadata.Reproducibility = meta.Field("reproducibility")
	doc.Metadata.Misc = meta.Field("misc")

	if v := meta.Field("polynomial_names"); !v.IsAbsent() {
		pnames, ok := v.AsStringSlice()
		if !ok {
			return nil, fmt.Errorf("metadata.polynomial_names: expected array of strings")
		}
		doc.Metadata.PolynomialNames = pnames
	}

	data := raw.Data
	if data.Kind() != core.KindObject {
		return nil, fmt.Errorf("data: expected object, got %s", data.Kind())
	}

	if v := data.Field("observable_central"); !v.IsAbsent() {
		table, err := narrowTable(v, "data.observable_central")
		if err != nil {
			return nil, err
		}
		doc.Data.ObservableCentral = table
	}
	if v := data.Field("polynomial_central"); !v.IsAbsent() {
		table, err := narrowTable(v, "data.polynomial_central")
		if err != nil {
			return nil, err
		}
		doc.Data.PolynomialCentral = table
	}
	if v := data.Field("observable_expressions"); !v.IsAbsent() {
		exprs, err := narrowExpressions(v)
		if err != nil {
			return nil, err
		}
		doc.Data.ObservableExpressions = exprs
	}
	if v := data.Field("observable_uncertainties"); !v.IsAbsent() {
		unc, err := narrowUncertainties(v, "data.observable_uncertainties")
		if err != nil {
			return nil, err
		}
		doc.Data.ObservableUncertainties = unc
		doc.Data.UncertaintySources = v.ObjectKeys()
	}
	if v := data.Field("polynomial_uncertainties"); !v.IsAbsent() {
		unc, err := narrowUncertainties(v, "data.polynomial_uncertainties")
		if err != nil {
			return nil, err
		}
		doc.Data.PolynomialUncertainties = unc
	}

	return doc, nil
}

func narrowBasis(v core.Value) (Basis, error) {
	var basis Basis
	if v.Kind() != core.KindObject {
		return basis, fmt.Errorf("metadata.basis: expected object, got %s", v.Kind())
	}
	if w := v.Field("wcxf"); !w.IsAbsent() {
		if w.Kind() != core.KindObject {
			return basis, fmt.Errorf("metadata.basis.wcxf: expected object")
		}
		wcxf := &WCxfBasis{}
		wcxf.EFT, _ = w.Field("eft").AsString()
		wcxf.Basis, _ = w.Field("basis").AsString()
		if s := w.Field("sectors"); !s.IsAbsent() {
			sectors, ok := s.AsStringSlice()
			if !ok {
				return basis, fmt.Errorf("metadata.basis.wcxf.sectors: expected array of strings")
			}
			wcxf.Sectors = sectors
		}
		basis.WCxf = wcxf
	}
	basis.Custom = v.Field("custom")
	return basis, nil
}

func narrowTable(v core.Value, path string) (map[string][]float64, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %s", path, v.Kind())
	}
	out := make(map[string][]float64, len(obj))
	for key, val := range obj {
		seq, ok := val.AsNumberSlice()
		if !ok {
			return nil, fmt.Errorf("%s[%q]: expected array of numbers", path, key)
		}
		out[key] = seq
	}
	return out, nil
}

func narrowExpressions(v core.Value) ([]Expression, error) {
	arr, ok := v.AsArray()
	if !ok {
		return nil, fmt.Errorf("data.observable_expressions: expected array, got %s", v.Kind())
	}
	out := make([]Expression, len(arr))
	for i, el := range arr {
		if el.Kind() != core.KindObject {
			return nil, fmt.Errorf("data.observable_expressions[%d]: expected object", i)
		}
		exprText, ok := el.Field("expression").AsString()
		if !ok {
			return nil, fmt.Errorf("data.observable_expressions[%d].expression: expected string", i)
		}
		vars, ok := el.Field("variables").AsObject()
		if !ok {
			return nil, fmt.Errorf("data.observable_expressions[%d].variables: expected object", i)
		}
		locals := make(map[string]string, len(vars))
		for local, target := range vars {
			name, ok := target.AsString()
			if !ok {
				return nil, fmt.Errorf("data.observable_expressions[%d].variables[%q]: expected string", i, local)
			}
			locals[local] = name
		}
		out[i] = Expression{Variables: locals, Expression: exprText}
	}
	return out, nil
}

func narrowUncertainties(v core.Value, path string) (map[string]Uncertainty, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, fmt.Errorf("%s: expected object, got %s", path, v.Kind())
	}
	out := make(map[string]Uncertainty, len(obj))
	for source, val := range obj {
		switch val.Kind() {
		case core.KindArray:
			seq, ok := val.AsNumberSlice()
			if !ok {
				return nil, fmt.Errorf("%s[%q]: bare form must be an array of numbers", path, source)
			}
			out[source] = Uncertainty{Bare: seq, IsBare: true}
		case core.KindObject:
			table, err := narrowTable(val, fmt.Sprintf("%s[%q]", path, source))
			if err != nil {
				return nil, err
			}
			out[source] = Uncertainty{Table: table}
		default:
			return nil, fmt.Errorf("%s[%q]: expected array or object, got %s", path, source, val.Kind())
		}
	}
	return out, nil
}
