// Package expr implements the restricted arithmetic expression language used
// by function-of-polynomials observables: literals, variable references,
// unary minus, + - * / **, parentheses, and calls to an allow-listed set of
// elementary functions. It is deliberately not a general interpreter: no
// assignment, no control flow, no access to anything but the bindings handed
// to Evaluate.
package expr

// Node is one tagged variant of the expression tree.
type Node interface {
	node()
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// VariableRef names a bound scalar.
type VariableRef struct {
	Name string
}

// UnaryOp is unary minus.
type UnaryOp struct {
	Op      string // "-"
	Operand Node
}

// BinaryOp is one of + - * / **.
type BinaryOp struct {
	Op    string
	Left  Node
	Right Node
}

// Call invokes an allow-listed function.
type Call struct {
	Name string
	Args []Node
}

func (Literal) node()     {}
func (VariableRef) node() {}
func (UnaryOp) node()     {}
func (BinaryOp) node()    {}
func (Call) node()        {}
