// Package validation runs the collect-all structural checks over a POPxf
// document. It never stops at the first problem: the primary consumer is
// authoring/QA tooling, which wants the complete list of violations in one
// pass.
package validation

import (
	"fmt"
	"math"

	"popxf/domain/core"
	"popxf/domain/document"
	"popxf/domain/expr"
	"popxf/domain/monomial"
)

// Code classifies a violation.
type Code string

const (
	CodeStructural      Code = "structural_error"
	CodeSchemaViolation Code = "schema_violation"
	CodeModeConflict    Code = "mode_conflict"
	CodeSchemaVersion   Code = "schema_version"
)

// Violation is one finding, attached to the offending field path.
type Violation struct {
	Path    string `json:"path"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.Path, v.Code, v.Message)
}

// Options tunes validator behavior.
type Options struct {
	// AcceptAnySchemaVersion disables the $schema literal check, for hosts
	// that opt into forward compatibility.
	AcceptAnySchemaVersion bool
}

// Validate parses and checks document bytes. An empty result means the
// document is accepted. Malformed JSON and wrong primitive types come back
// as violations, never as panics or errors.
func Validate(data []byte, opts Options) []Violation {
	raw, err := document.Parse(data)
	if err != nil {
		return []Violation{{Path: "$", Code: CodeStructural, Message: err.Error()}}
	}
	return ValidateRaw(raw, opts)
}

// ValidateRaw checks an already-parsed raw document.
func ValidateRaw(raw *document.Raw, opts Options) []Violation {
	v := &validator{opts: opts}
	v.run(raw)
	return v.violations
}

type validator struct {
	opts       Options
	violations []Violation
}

func (v *validator) add(path string, code Code, format string, args ...interface{}) {
	v.violations = append(v.violations, Violation{
		Path:    path,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) run(raw *document.Raw) {
	v.checkSchema(raw.Schema)

	meta := raw.Metadata
	if meta.Kind() != core.KindObject {
		v.add("metadata", CodeStructural, "expected object, got %s", meta.Kind())
		return
	}
	data := raw.Data
	if data.Kind() != core.KindObject {
		v.add("data", CodeStructural, "expected object, got %s", data.Kind())
		return
	}

	observables := v.checkNameList(meta.Field("observable_names"), "metadata.observable_names", true)
	params := v.checkNameList(meta.Field("parameters"), "metadata.parameters", true)
	order := v.checkOrder(meta.Field("polynomial_order"))
	v.checkBasis(meta.Field("basis"))

	// Function-mode field group: all three or none.
	polyNames := meta.Field("polynomial_names")
	exprs := data.Field("observable_expressions")
	polyCentral := data.Field("polynomial_central")
	obsCentral := data.Field("observable_central")

	groupPresent := 0
	for _, f := range []core.Value{polyNames, exprs, polyCentral} {
		if !f.IsAbsent() {
			groupPresent++
		}
	}
	functionMode := groupPresent == 3
	if groupPresent > 0 && groupPresent < 3 {
		v.add("data", CodeModeConflict,
			"polynomial_names, observable_expressions and polynomial_central must be present together (%d of 3 found)",
			groupPresent)
	}
	if functionMode && !obsCentral.IsAbsent() {
		v.add("data.observable_central", CodeModeConflict,
			"direct-mode observable_central and function-of-polynomials fields are both present")
	}
	if groupPresent == 0 && obsCentral.IsAbsent() {
		v.add("data", CodeModeConflict,
			"neither observable_central nor the function-of-polynomials field group is present")
	}

	var polynomials []string
	if !polyNames.IsAbsent() {
		polynomials = v.checkNameList(polyNames, "metadata.polynomial_names", true)
	}

	// A codec is only constructible with a valid order and parameter list;
	// without one the per-key checks are skipped (their prerequisites already
	// produced violations).
	var codec *monomial.Codec
	if order >= monomial.MinOrder && order <= monomial.MaxOrder && params != nil {
		codec, _ = monomial.NewCodec(order, params)
	}

	// A width of -1 means the defining name list itself failed, so length
	// comparisons against it are suppressed rather than cascading.
	m := -1
	if observables != nil {
		m = len(observables)
	}
	k := -1
	if polynomials != nil {
		k = len(polynomials)
	}

	if !obsCentral.IsAbsent() {
		v.checkTable(obsCentral, "data.observable_central", codec, m)
	}
	if functionMode {
		v.checkTable(polyCentral, "data.polynomial_central", codec, k)
		v.checkExpressions(exprs, m, polynomials)
	}

	v.checkScale(meta.Field("scale"), m, functionMode)

	if unc := data.Field("observable_uncertainties"); !unc.IsAbsent() {
		v.checkUncertainties(unc, "data.observable_uncertainties", codec, m)
	}
	if unc := data.Field("polynomial_uncertainties"); !unc.IsAbsent() {
		if !functionMode {
			v.add("data.polynomial_uncertainties", CodeSchemaViolation,
				"polynomial_uncertainties requires function-of-polynomials mode")
		} else {
			v.checkUncertainties(unc, "data.polynomial_uncertainties", codec, k)
		}
	}
}

func (v *validator) checkSchema(schema core.Value) {
	s, ok := schema.AsString()
	if !ok {
		v.add("$schema", CodeStructural, "expected string, got %s", schema.Kind())
		return
	}
	if !v.opts.AcceptAnySchemaVersion && s != document.SchemaURL {
		v.add("$schema", CodeSchemaVersion, "got %q, want %q", s, document.SchemaURL)
	}
}

// checkNameList validates an ordered list of unique non-empty names and
// returns it (nil when the shape is wrong).
func (v *validator) checkNameList(val core.Value, path string, required bool) []string {
	if val.IsAbsent() {
		if required {
			v.add(path, CodeSchemaViolation, "required field is missing")
		}
		return nil
	}
	names, ok := val.AsStringSlice()
	if !ok {
		v.add(path, CodeStructural, "expected array of strings, got %s", val.Kind())
		return nil
	}
	if len(names) == 0 {
		v.add(path, CodeSchemaViolation, "must not be empty")
		return nil
	}
	seen := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			v.add(fmt.Sprintf("%s[%d]", path, i), CodeSchemaViolation, "name must not be empty")
		}
		if prev, dup := seen[name]; dup {
			v.add(fmt.Sprintf("%s[%d]", path, i), CodeSchemaViolation,
				"duplicate name %q (first declared at index %d)", name, prev)
		} else {
			seen[name] = i
		}
	}
	return names
}

func (v *validator) checkOrder(val core.Value) int {
	if val.IsAbsent() {
		return monomial.DefaultOrder
	}
	n, ok := val.AsNumber()
	if !ok {
		v.add("metadata.polynomial_order", CodeStructural, "expected number, got %s", val.Kind())
		return 0
	}
	if n != math.Trunc(n) {
		v.add("metadata.polynomial_order", CodeSchemaViolation, "must be an integer, got %v", n)
		return 0
	}
	order := int(n)
	if order < monomial.MinOrder || order > monomial.MaxOrder {
		v.add("metadata.polynomial_order", CodeSchemaViolation,
			"must be in [%d,%d], got %d", monomial.MinOrder, monomial.MaxOrder, order)
		return 0
	}
	return order
}

func (v *validator) checkBasis(val core.Value) {
	if val.IsAbsent() {
		v.add("metadata.basis", CodeSchemaViolation, "required field is missing")
		return
	}
	if val.Kind() != core.KindObject {
		v.add("metadata.basis", CodeStructural, "expected object, got %s", val.Kind())
		return
	}
	wcxf := val.Field("wcxf")
	custom := val.Field("custom")
	if wcxf.IsAbsent() && custom.IsAbsent() {
		v.add("metadata.basis", CodeSchemaViolation, "at least one of wcxf or custom is required")
		return
	}
	if !wcxf.IsAbsent() {
		if wcxf.Kind() != core.KindObject {
			v.add("metadata.basis.wcxf", CodeStructural, "expected object, got %s", wcxf.Kind())
			return
		}
		if _, ok := wcxf.Field("eft").AsString(); !ok {
			v.add("metadata.basis.wcxf.eft", CodeSchemaViolation, "required string is missing")
		}
		if _, ok := wcxf.Field("basis").AsString(); !ok {
			v.add("metadata.basis.wcxf.basis", CodeSchemaViolation, "required string is missing")
		}
		if s := wcxf.Field("sectors"); !s.IsAbsent() {
			if _, ok := s.AsStringSlice(); !ok {
				v.add("metadata.basis.wcxf.sectors", CodeStructural, "expected array of strings")
			}
		}
	}
}

// checkTable validates one coefficient table: keys decode canonically against
// the declared parameters, no two keys share a canonical form, and every
// sequence has the expected width.
func (v *validator) checkTable(val core.Value, path string, codec *monomial.Codec, width int) {
	obj, ok := val.AsObject()
	if !ok {
		v.add(path, CodeStructural, "expected object, got %s", val.Kind())
		return
	}
	canonical := make(map[string]string, len(obj))
	for _, key := range val.ObjectKeys() {
		keyPath := fmt.Sprintf("%s[%q]", path, key)
		if codec != nil {
			decoded, err := codec.Decode(key)
			if err != nil {
				v.add(keyPath, CodeSchemaViolation, "%v", err)
			} else {
				canon := codec.Encode(decoded)
				if first, dup := canonical[canon]; dup {
					v.add(keyPath, CodeSchemaViolation,
						"duplicate monomial: decodes to the same term as %q", first)
				} else {
					canonical[canon] = key
				}
			}
		}
		seq, ok := obj[key].AsNumberSlice()
		if !ok {
			v.add(keyPath, CodeStructural, "expected array of numbers")
			continue
		}
		if width >= 0 && len(seq) != width {
			v.add(keyPath, CodeSchemaViolation, "sequence has %d entries, want %d", len(seq), width)
		}
	}
}

func (v *validator) checkExpressions(val core.Value, m int, polynomials []string) {
	arr, ok := val.AsArray()
	if !ok {
		v.add("data.observable_expressions", CodeStructural, "expected array, got %s", val.Kind())
		return
	}
	if m >= 0 && len(arr) != m {
		v.add("data.observable_expressions", CodeSchemaViolation,
			"has %d entries, want one per observable (%d)", len(arr), m)
	}
	declared := make(map[string]struct{}, len(polynomials))
	for _, p := range polynomials {
		declared[p] = struct{}{}
	}
	for i, el := range arr {
		path := fmt.Sprintf("data.observable_expressions[%d]", i)
		if el.Kind() != core.KindObject {
			v.add(path, CodeStructural, "expected object, got %s", el.Kind())
			continue
		}
		exprText, ok := el.Field("expression").AsString()
		if !ok {
			v.add(path+".expression", CodeSchemaViolation, "required string is missing")
		} else if _, err := expr.Parse(exprText); err != nil {
			v.add(path+".expression", CodeSchemaViolation, "%v", err)
		}
		vars, ok := el.Field("variables").AsObject()
		if !ok {
			v.add(path+".variables", CodeSchemaViolation, "required object is missing")
			continue
		}
		for _, local := range el.Field("variables").ObjectKeys() {
			target, ok := vars[local].AsString()
			if !ok {
				v.add(fmt.Sprintf("%s.variables[%q]", path, local), CodeStructural,
					"expected polynomial name string")
				continue
			}
			if _, known := declared[target]; !known {
				v.add(fmt.Sprintf("%s.variables[%q]", path, local), CodeSchemaViolation,
					"%q is not a declared polynomial name", target)
			}
		}
	}
}

func (v *validator) checkScale(val core.Value, m int, functionMode bool) {
	if val.IsAbsent() {
		v.add("metadata.scale", CodeSchemaViolation, "required field is missing")
		return
	}
	switch val.Kind() {
	case core.KindNumber:
		// scalar form, applies to every observable
	case core.KindArray:
		if functionMode {
			v.add("metadata.scale", CodeSchemaViolation,
				"per-observable scale array is not allowed in function-of-polynomials mode")
		}
		seq, ok := val.AsNumberSlice()
		if !ok {
			v.add("metadata.scale", CodeStructural, "expected array of numbers")
			return
		}
		if m >= 0 && len(seq) != m {
			v.add("metadata.scale", CodeSchemaViolation,
				"array has %d entries, want one per observable (%d)", len(seq), m)
		}
	default:
		v.add("metadata.scale", CodeStructural, "expected number or array, got %s", val.Kind())
	}
}

func (v *validator) checkUncertainties(val core.Value, path string, codec *monomial.Codec, width int) {
	obj, ok := val.AsObject()
	if !ok {
		v.add(path, CodeStructural, "expected object, got %s", val.Kind())
		return
	}
	for _, source := range val.ObjectKeys() {
		sourcePath := fmt.Sprintf("%s[%q]", path, source)
		entry := obj[source]
		switch entry.Kind() {
		case core.KindArray:
			seq, ok := entry.AsNumberSlice()
			if !ok {
				v.add(sourcePath, CodeStructural, "bare form must be an array of numbers")
				continue
			}
			if width >= 0 && len(seq) != width {
				v.add(sourcePath, CodeSchemaViolation,
					"bare sequence has %d entries, want %d", len(seq), width)
			}
		case core.KindObject:
			v.checkTable(entry, sourcePath, codec, width)
		default:
			v.add(sourcePath, CodeStructural,
				"expected array (bare) or object (table), got %s", entry.Kind())
		}
	}
}
