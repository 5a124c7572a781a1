// Package monomial implements the canonical string encoding of polynomial
// terms. A key is a fixed-arity tuple of parameter names (empty string =
// padding for lower-degree terms) plus an optional trailing tag selecting the
// real or imaginary part of each slot, e.g. "('','C1')" or "('C7','C7','RI')".
package monomial

import (
	"strings"

	"popxf/domain/core"
)

const (
	// MinOrder and MaxOrder bound the supported polynomial truncation order.
	MinOrder = 1
	MaxOrder = 5
	// DefaultOrder applies when a document does not declare polynomial_order.
	DefaultOrder = 2
)

const (
	TagReal      = 'R'
	TagImaginary = 'I'
)

// Key is one decoded polynomial term: exactly Order slots, each a declared
// parameter name or "" padding, and one R/I tag per slot. Keys are built by
// Codec.Decode and never mutated afterwards.
type Key struct {
	Slots []string
	// Tags holds one of TagReal/TagImaginary per slot. nil means all real,
	// which is also the canonical form when no slot selects an imaginary part.
	Tags []byte
}

// Constant reports whether the key is the all-padding constant term.
func (k Key) Constant() bool {
	for _, s := range k.Slots {
		if s != "" {
			return false
		}
	}
	return true
}

// Degree counts the non-padding slots.
func (k Key) Degree() int {
	d := 0
	for _, s := range k.Slots {
		if s != "" {
			d++
		}
	}
	return d
}

func (k Key) tagAt(i int) byte {
	if k.Tags == nil {
		return TagReal
	}
	return k.Tags[i]
}

// Product computes the monomial's scalar factor at a parameter point: the
// product over slots of Re or Im of the slot's parameter, padding slots
// contributing 1. Parameters absent from the point evaluate as 0.
func (k Key) Product(point map[string]complex128) float64 {
	prod := 1.0
	for i, s := range k.Slots {
		if s == "" {
			continue
		}
		v := point[s]
		if k.tagAt(i) == TagImaginary {
			prod *= imag(v)
		} else {
			prod *= real(v)
		}
	}
	return prod
}

// Codec decodes and encodes keys against one declared parameter set and one
// polynomial order. Construct with NewCodec; zero value is not usable.
type Codec struct {
	order  int
	params map[string]struct{}
}

// NewCodec builds a codec for the given truncation order and declared
// parameter names. Order outside [MinOrder, MaxOrder] is rejected.
func NewCodec(order int, params []string) (*Codec, error) {
	if order < MinOrder || order > MaxOrder {
		return nil, core.NewKeyError("", "polynomial order out of range")
	}
	set := make(map[string]struct{}, len(params))
	for _, p := range params {
		set[p] = struct{}{}
	}
	return &Codec{order: order, params: set}, nil
}

// Order returns the codec's polynomial order.
func (c *Codec) Order() int { return c.order }

// Constant returns the all-padding constant-term key for this order.
func (c *Codec) Constant() Key {
	return Key{Slots: make([]string, c.order)}
}

// Decode parses a stringified-tuple key. It rejects wrong tuple arity, tags
// outside {R,I} or of the wrong length, undeclared parameter names, and
// non-canonically-ordered slots. Producers must emit the one canonical form;
// re-sorting here would make distinct raw keys silently collide.
func (c *Codec) Decode(text string) (Key, error) {
	elems, err := splitTuple(text)
	if err != nil {
		return Key{}, err
	}

	var slots []string
	var tag string
	switch len(elems) {
	case c.order:
		slots = elems
	case c.order + 1:
		slots, tag = elems[:c.order], elems[c.order]
	default:
		return Key{}, core.NewKeyError(text, "tuple length must be order or order+1")
	}

	key := Key{Slots: slots}
	if tag != "" || len(elems) == c.order+1 {
		if len(tag) != c.order {
			return Key{}, core.NewKeyError(text, "tag length must equal polynomial order")
		}
		tags := make([]byte, c.order)
		allReal := true
		for i := 0; i < len(tag); i++ {
			switch tag[i] {
			case TagReal:
				tags[i] = TagReal
			case TagImaginary:
				tags[i] = TagImaginary
				allReal = false
			default:
				return Key{}, core.NewKeyError(text, "tag characters must be R or I")
			}
		}
		if !allReal {
			key.Tags = tags
		}
	}

	for _, s := range key.Slots {
		if s == "" {
			continue
		}
		if _, ok := c.params[s]; !ok {
			return Key{}, core.NewUnknownParamError(s)
		}
	}

	if !c.IsCanonical(key) {
		return Key{}, core.NewKeyOrderError(text)
	}
	return key, nil
}

// IsCanonical checks the canonical slot order: padding first, then names
// non-decreasing by code point; equal names ordered real part before
// imaginary; padding slots never tagged imaginary. Repeated names are legal
// (squares and higher powers).
func (c *Codec) IsCanonical(k Key) bool {
	if len(k.Slots) != c.order {
		return false
	}
	if k.Tags != nil && len(k.Tags) != c.order {
		return false
	}
	for i, s := range k.Slots {
		if s == "" && k.tagAt(i) == TagImaginary {
			return false
		}
		if i == 0 {
			continue
		}
		prev := k.Slots[i-1]
		if prev > s {
			return false
		}
		if prev == s && prev != "" && k.tagAt(i-1) == TagImaginary && k.tagAt(i) == TagReal {
			return false
		}
	}
	return true
}

// Encode renders the canonical text form of a key: tuple of quoted slots,
// with a trailing tag element only when an imaginary part is selected.
// Encode(Decode(s)) == s for every canonical s.
func (c *Codec) Encode(k Key) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, s := range k.Slots {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('\'')
		b.WriteString(s)
		b.WriteByte('\'')
	}
	if k.Tags != nil {
		b.WriteString(",'")
		b.Write(k.Tags)
		b.WriteByte('\'')
	} else if len(k.Slots) == 1 {
		// Python 1-tuple form
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

// splitTuple parses "('a', 'b', ...)" into its quoted elements. A trailing
// comma before the closing paren is accepted (Python 1-tuple repr).
func splitTuple(text string) ([]string, error) {
	s := strings.TrimSpace(text)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, core.NewKeyError(text, "not a parenthesized tuple")
	}
	s = s[1 : len(s)-1]

	var elems []string
	i := 0
	for {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		quote := s[i]
		if quote != '\'' && quote != '"' {
			return nil, core.NewKeyError(text, "tuple elements must be quoted")
		}
		i++
		start := i
		for i < len(s) && s[i] != quote {
			i++
		}
		if i >= len(s) {
			return nil, core.NewKeyError(text, "unterminated quoted element")
		}
		elems = append(elems, s[start:i])
		i++
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i < len(s) {
			if s[i] != ',' {
				return nil, core.NewKeyError(text, "expected comma between elements")
			}
			i++
		}
	}
	if len(elems) == 0 {
		return nil, core.NewKeyError(text, "empty tuple")
	}
	return elems, nil
}
