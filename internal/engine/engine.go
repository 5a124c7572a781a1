// Package engine evaluates validated POPxf documents: direct polynomial
// observables, or function-of-polynomials composition through the expression
// evaluator. An Engine is immutable once built; any number of parameter
// points may be evaluated against it concurrently.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"popxf/domain/core"
	"popxf/domain/document"
	"popxf/domain/expr"
	"popxf/domain/monomial"
	"popxf/domain/polynomial"
	"popxf/internal/validation"
)

// Mode is the evaluation mode, fixed at construction.
type Mode int

const (
	ModeDirect Mode = iota
	ModeFunction
)

func (m Mode) String() string {
	if m == ModeFunction {
		return "function-of-polynomials"
	}
	return "direct"
}

// InvalidDocumentError aggregates the validator findings that blocked engine
// construction.
type InvalidDocumentError struct {
	Violations []validation.Violation
}

func (e *InvalidDocumentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v (%d violations)", core.ErrInvalidDocument, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.String())
	}
	return b.String()
}

func (e *InvalidDocumentError) Unwrap() error { return core.ErrInvalidDocument }

// ObservableResult is the outcome for one observable at one parameter point.
// Err is scoped to this observable; other observables in the same call still
// evaluate.
type ObservableResult struct {
	Central       float64
	Uncertainties map[string]float64
	Warnings      []expr.DomainWarning
	Err           error
}

type compiledExpr struct {
	variables map[string]string // local name -> polynomial name
	node      expr.Node
}

// Engine evaluates one document's observables.
type Engine struct {
	doc    *document.Document
	codec  *monomial.Codec
	mode   Mode
	scales *ScaleResolver

	central   *polynomial.Table // over M (direct) or K (function)
	polyIndex map[string]int    // polynomial name -> table index, function mode
	exprs     []compiledExpr    // one per observable, function mode
	evaluator *expr.Evaluator

	obsUnc  *UncertaintyAggregator
	polyUnc *UncertaintyAggregator
}

// Build validates document bytes and constructs an engine. Validation
// failures come back aggregated as *InvalidDocumentError.
func Build(data []byte, opts validation.Options) (*Engine, error) {
	if violations := validation.Validate(data, opts); len(violations) > 0 {
		return nil, &InvalidDocumentError{Violations: violations}
	}
	raw, err := document.Parse(data)
	if err != nil {
		return nil, err
	}
	doc, err := document.FromRaw(raw)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// New constructs an engine from a typed document. The document is expected
// to have passed validation; mode consistency is still enforced here because
// the two mode field groups must never be silently reconciled.
func New(doc *document.Document) (*Engine, error) {
	functionFields := doc.Metadata.PolynomialNames != nil ||
		doc.Data.PolynomialCentral != nil || doc.Data.ObservableExpressions != nil
	fullFunction := doc.Metadata.PolynomialNames != nil &&
		doc.Data.PolynomialCentral != nil && doc.Data.ObservableExpressions != nil

	if functionFields && !fullFunction {
		return nil, fmt.Errorf("%w: partial function-of-polynomials field group", core.ErrModeConflict)
	}
	if fullFunction && doc.Data.ObservableCentral != nil {
		return nil, fmt.Errorf("%w: observable_central present alongside function-of-polynomials fields", core.ErrModeConflict)
	}
	if !fullFunction && doc.Data.ObservableCentral == nil {
		return nil, fmt.Errorf("%w: no central values in either mode", core.ErrModeConflict)
	}

	codec, err := monomial.NewCodec(doc.Metadata.PolynomialOrder, doc.Metadata.Parameters)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		doc:       doc,
		codec:     codec,
		evaluator: expr.NewEvaluator(nil),
	}

	m := len(doc.Metadata.ObservableNames)
	if fullFunction {
		e.mode = ModeFunction
		k := len(doc.Metadata.PolynomialNames)
		e.central, err = polynomial.Build(codec, doc.Data.PolynomialCentral, k)
		if err != nil {
			return nil, fmt.Errorf("polynomial_central: %w", err)
		}
		e.polyIndex = make(map[string]int, k)
		for i, name := range doc.Metadata.PolynomialNames {
			e.polyIndex[name] = i
		}
		if len(doc.Data.ObservableExpressions) != m {
			return nil, fmt.Errorf("observable_expressions: got %d, want %d", len(doc.Data.ObservableExpressions), m)
		}
		e.exprs = make([]compiledExpr, m)
		for i, oe := range doc.Data.ObservableExpressions {
			node, err := expr.Parse(oe.Expression)
			if err != nil {
				return nil, fmt.Errorf("observable_expressions[%d]: %w", i, err)
			}
			for local, target := range oe.Variables {
				if _, ok := e.polyIndex[target]; !ok {
					return nil, fmt.Errorf("observable_expressions[%d].variables[%q]: %w: %q",
						i, local, core.ErrUnknownPolynomial, target)
				}
			}
			e.exprs[i] = compiledExpr{variables: oe.Variables, node: node}
		}
	} else {
		e.mode = ModeDirect
		e.central, err = polynomial.Build(codec, doc.Data.ObservableCentral, m)
		if err != nil {
			return nil, fmt.Errorf("observable_central: %w", err)
		}
	}

	e.scales, err = NewScaleResolver(doc.Metadata.Scale, m, e.mode == ModeFunction)
	if err != nil {
		return nil, err
	}

	if doc.Data.ObservableUncertainties != nil {
		sources := doc.Data.UncertaintySources
		if sources == nil {
			sources = sortedSources(doc.Data.ObservableUncertainties)
		}
		e.obsUnc, err = NewUncertaintyAggregator(codec, m, doc.Data.ObservableUncertainties, sources)
		if err != nil {
			return nil, fmt.Errorf("observable_uncertainties: %w", err)
		}
	}
	if doc.Data.PolynomialUncertainties != nil && e.mode == ModeFunction {
		k := len(doc.Metadata.PolynomialNames)
		e.polyUnc, err = NewUncertaintyAggregator(codec, k,
			doc.Data.PolynomialUncertainties, sortedSources(doc.Data.PolynomialUncertainties))
		if err != nil {
			return nil, fmt.Errorf("polynomial_uncertainties: %w", err)
		}
	}

	return e, nil
}

func sortedSources(m map[string]document.Uncertainty) []string {
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Mode returns the evaluation mode.
func (e *Engine) Mode() Mode { return e.mode }

// Document returns the underlying typed document.
func (e *Engine) Document() *document.Document { return e.doc }

// Observables returns the declared observable names in order.
func (e *Engine) Observables() []string { return e.doc.Metadata.ObservableNames }

// ScaleFor returns the renormalization scale for one observable index.
func (e *Engine) ScaleFor(i int) float64 { return e.scales.ScaleFor(i) }

// ObservableUncertainties returns the per-source aggregator over observables,
// or nil when the document carries none.
func (e *Engine) ObservableUncertainties() *UncertaintyAggregator { return e.obsUnc }

// PolynomialUncertainties returns the per-source aggregator over named
// polynomials, or nil.
func (e *Engine) PolynomialUncertainties() *UncertaintyAggregator { return e.polyUnc }

// PolynomialValues evaluates every named polynomial at one point (function
// mode only).
func (e *Engine) PolynomialValues(point map[string]complex128) map[string]float64 {
	if e.mode != ModeFunction {
		return nil
	}
	values := e.central.EvaluateAll(point)
	out := make(map[string]float64, len(e.polyIndex))
	for name, i := range e.polyIndex {
		out[name] = values[i]
	}
	return out
}

// EvaluateObservable computes one observable's central value at a point.
func (e *Engine) EvaluateObservable(i int, point map[string]complex128) (float64, []expr.DomainWarning, error) {
	if i < 0 || i >= len(e.doc.Metadata.ObservableNames) {
		return 0, nil, fmt.Errorf("observable index %d out of range", i)
	}
	if e.mode == ModeDirect {
		v, err := e.central.Evaluate(point, i)
		return v, nil, err
	}
	polyValues := e.PolynomialValues(point)
	return e.evaluateExpression(i, polyValues)
}

func (e *Engine) evaluateExpression(i int, polyValues map[string]float64) (float64, []expr.DomainWarning, error) {
	ce := e.exprs[i]
	bindings := make(map[string]float64, len(ce.variables))
	for local, target := range ce.variables {
		bindings[local] = polyValues[target]
	}
	res, err := e.evaluator.Evaluate(ce.node, bindings)
	if err != nil {
		return 0, nil, err
	}
	return res.Value, res.Warnings, nil
}

// Evaluate computes every observable at one parameter point. Failures are
// scoped per observable: a bad expression on one observable is reported on
// its result and the rest still evaluate.
func (e *Engine) Evaluate(point map[string]complex128) map[string]ObservableResult {
	names := e.doc.Metadata.ObservableNames
	out := make(map[string]ObservableResult, len(names))

	var centrals []float64
	var polyValues map[string]float64
	if e.mode == ModeDirect {
		centrals = e.central.EvaluateAll(point)
	} else {
		// Each named polynomial is evaluated once and shared read-only
		// across all observables that reference it.
		polyValues = e.PolynomialValues(point)
	}

	for i, name := range names {
		var res ObservableResult
		if e.mode == ModeDirect {
			res.Central = centrals[i]
		} else {
			res.Central, res.Warnings, res.Err = e.evaluateExpression(i, polyValues)
		}
		if e.obsUnc != nil && res.Err == nil {
			unc, err := e.obsUnc.Evaluate(point, i)
			if err != nil {
				res.Err = err
			} else {
				res.Uncertainties = unc
			}
		}
		out[name] = res
	}
	return out
}
