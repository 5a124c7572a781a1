package expr

import (
	"fmt"
	"math"

	"popxf/domain/core"
)

// DomainWarning records a numeric domain issue hit during evaluation. The
// IEEE result is still produced; warnings ride alongside it so a batch over
// many observables never aborts on one bad denominator.
type DomainWarning struct {
	Op     string // operator or function name
	Detail string
}

func (w DomainWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Op, w.Detail)
}

// Result carries an evaluated value plus any domain warnings.
type Result struct {
	Value    float64
	Warnings []DomainWarning
}

// Tainted reports whether any domain warning was raised.
func (r Result) Tainted() bool { return len(r.Warnings) > 0 }

// Function is one allow-listed callable.
type Function struct {
	Arity int
	Apply func(args []float64) float64
	// Check returns a non-empty detail string when the arguments leave the
	// function's domain.
	Check func(args []float64) string
}

func unary(f func(float64) float64, check func(float64) string) Function {
	fn := Function{
		Arity: 1,
		Apply: func(args []float64) float64 { return f(args[0]) },
	}
	if check != nil {
		fn.Check = func(args []float64) string { return check(args[0]) }
	}
	return fn
}

func defaultFunctions() map[string]Function {
	return map[string]Function{
		"sqrt": unary(math.Sqrt, func(x float64) string {
			if x < 0 {
				return fmt.Sprintf("negative argument %g", x)
			}
			return ""
		}),
		"sin": unary(math.Sin, nil),
		"cos": unary(math.Cos, nil),
		"tan": unary(math.Tan, nil),
		"exp": unary(math.Exp, nil),
		"log": unary(math.Log, func(x float64) string {
			if x <= 0 {
				return fmt.Sprintf("non-positive argument %g", x)
			}
			return ""
		}),
		"abs": unary(math.Abs, nil),
		"pow": {
			Arity: 2,
			Apply: func(args []float64) float64 { return math.Pow(args[0], args[1]) },
			Check: func(args []float64) string {
				if math.IsNaN(math.Pow(args[0], args[1])) {
					return fmt.Sprintf("pow(%g, %g) has no real value", args[0], args[1])
				}
				return ""
			},
		},
	}
}

// Evaluator evaluates parsed expression trees against scalar bindings.
// The zero value is not usable; construct with NewEvaluator.
type Evaluator struct {
	functions map[string]Function
}

// NewEvaluator builds an evaluator with the standard allow-list plus any
// extra functions the host registers. Extras may shadow the defaults.
func NewEvaluator(extra map[string]Function) *Evaluator {
	fns := defaultFunctions()
	for name, fn := range extra {
		fns[name] = fn
	}
	return &Evaluator{functions: fns}
}

// Evaluate walks the tree. References to names missing from bindings and
// calls outside the allow-list are errors; numeric domain issues become
// warnings on the Result.
func (e *Evaluator) Evaluate(n Node, bindings map[string]float64) (Result, error) {
	var res Result
	v, err := e.eval(n, bindings, &res.Warnings)
	if err != nil {
		return Result{}, err
	}
	res.Value = v
	return res, nil
}

func (e *Evaluator) eval(n Node, bindings map[string]float64, warnings *[]DomainWarning) (float64, error) {
	switch v := n.(type) {
	case Literal:
		return v.Value, nil
	case VariableRef:
		val, ok := bindings[v.Name]
		if !ok {
			return 0, core.NewUnknownVariableError(v.Name)
		}
		return val, nil
	case UnaryOp:
		x, err := e.eval(v.Operand, bindings, warnings)
		if err != nil {
			return 0, err
		}
		return -x, nil
	case BinaryOp:
		left, err := e.eval(v.Left, bindings, warnings)
		if err != nil {
			return 0, err
		}
		right, err := e.eval(v.Right, bindings, warnings)
		if err != nil {
			return 0, err
		}
		switch v.Op {
		case "+":
			return left + right, nil
		case "-":
			return left - right, nil
		case "*":
			return left * right, nil
		case "/":
			if right == 0 {
				*warnings = append(*warnings, DomainWarning{Op: "/", Detail: "division by zero"})
			}
			return left / right, nil
		case "**":
			out := math.Pow(left, right)
			if math.IsNaN(out) && !math.IsNaN(left) && !math.IsNaN(right) {
				*warnings = append(*warnings, DomainWarning{
					Op:     "**",
					Detail: fmt.Sprintf("%g**%g has no real value", left, right),
				})
			}
			return out, nil
		default:
			return 0, fmt.Errorf("%w: operator %q", core.ErrParse, v.Op)
		}
	case Call:
		fn, ok := e.functions[v.Name]
		if !ok {
			return 0, core.NewUnknownFunctionError(v.Name)
		}
		if len(v.Args) != fn.Arity {
			return 0, fmt.Errorf("%w: %s takes %d argument(s), got %d",
				core.ErrParse, v.Name, fn.Arity, len(v.Args))
		}
		args := make([]float64, len(v.Args))
		for i, a := range v.Args {
			x, err := e.eval(a, bindings, warnings)
			if err != nil {
				return 0, err
			}
			args[i] = x
		}
		if fn.Check != nil {
			if detail := fn.Check(args); detail != "" {
				*warnings = append(*warnings, DomainWarning{Op: v.Name, Detail: detail})
			}
		}
		return fn.Apply(args), nil
	default:
		return 0, fmt.Errorf("%w: unknown node type %T", core.ErrParse, n)
	}
}
