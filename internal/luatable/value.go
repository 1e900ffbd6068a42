// Package luatable decodes the Lua table literals KOReader writes into its
// per-book sidecar files into a generic, typed value tree.
//
// The tree is a closed set of six concrete types implementing Value:
//
//	Null, Bool, Number, String, Sequence, Mapping
//
// Callers switch on the concrete type; lookups on a Mapping report a miss
// explicitly instead of returning a zero value.
package luatable

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete type behind a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a decoded Lua value. The interface is sealed: only the types in
// this package implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the Lua nil literal.
type Null struct{}

// Bool is a Lua boolean.
type Bool bool

// String is a Lua string with escapes already resolved.
type String string

// Number keeps the literal text of a Lua number so integers larger than
// 2^53 (millisecond epochs, for instance) are not rounded.
type Number struct {
	Text string
}

// Sequence is a table made only of positional items.
type Sequence []Value

// Field is one keyed entry of a Mapping.
type Field struct {
	Key string
	// Numeric is true for keys written as numbers ([1] = ...) and for the
	// implicit indices of positional items inside a keyed table.
	Numeric bool
	Value   Value
}

// Mapping is a table with at least one explicit key, in source order.
type Mapping struct {
	Fields []Field
}

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (String) Kind() Kind   { return KindString }
func (Number) Kind() Kind   { return KindNumber }
func (Sequence) Kind() Kind { return KindSequence }
func (*Mapping) Kind() Kind { return KindMapping }

func (Null) sealed()     {}
func (Bool) sealed()     {}
func (String) sealed()   {}
func (Number) sealed()   {}
func (Sequence) sealed() {}
func (*Mapping) sealed() {}

// Float64 converts the literal to a float64.
func (n Number) Float64() (float64, error) {
	if isHexLiteral(n.Text) {
		i, err := n.Int64()
		return float64(i), err
	}
	return strconv.ParseFloat(n.Text, 64)
}

// Int64 converts the literal to an int64. Floats with a zero fraction are
// accepted; other floats are an error.
func (n Number) Int64() (int64, error) {
	if isHexLiteral(n.Text) {
		neg := strings.HasPrefix(n.Text, "-")
		digits := strings.TrimPrefix(n.Text, "-")
		u, err := strconv.ParseUint(digits[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		if neg {
			return -int64(u), nil
		}
		return int64(u), nil
	}
	if i, err := strconv.ParseInt(n.Text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(n.Text, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, &strconv.NumError{Func: "Int64", Num: n.Text, Err: strconv.ErrSyntax}
	}
	return int64(f), nil
}

func isHexLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// Len returns the number of fields.
func (m *Mapping) Len() int {
	return len(m.Fields)
}

// Get returns the value stored under a string key. String keys take
// precedence over numeric keys with the same text.
func (m *Mapping) Get(key string) (Value, bool) {
	var numeric Value
	for _, f := range m.Fields {
		if f.Key != key {
			continue
		}
		if !f.Numeric {
			return f.Value, true
		}
		if numeric == nil {
			numeric = f.Value
		}
	}
	return numeric, numeric != nil
}

// Lookup tries each key in order and returns the first value found along
// with the key that matched.
func (m *Mapping) Lookup(keys ...string) (Value, string, bool) {
	for _, k := range keys {
		if v, ok := m.Get(k); ok {
			return v, k, true
		}
	}
	return nil, "", false
}

// GetString returns the value under key when it is a String.
func (m *Mapping) GetString(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// GetMapping returns the value under key when it is a Mapping.
func (m *Mapping) GetMapping(key string) (*Mapping, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	mm, ok := v.(*Mapping)
	return mm, ok
}

// set stores a field, replacing an existing one with the same key and
// numeric flag in place so that source order is that of first appearance.
func (m *Mapping) set(f Field) {
	for i := range m.Fields {
		if m.Fields[i].Key == f.Key && m.Fields[i].Numeric == f.Numeric {
			m.Fields[i].Value = f.Value
			return
		}
	}
	m.Fields = append(m.Fields, f)
}

// Items returns the values of a table in order regardless of whether it
// decoded as a Sequence or a Mapping. Any other value yields nil.
func Items(v Value) []Value {
	switch t := v.(type) {
	case Sequence:
		return t
	case *Mapping:
		out := make([]Value, 0, len(t.Fields))
		for _, f := range t.Fields {
			out = append(out, f.Value)
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two trees hold the same values. Number literals are
// compared by value so that 1 and 1.0 are equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false
		}
		if x.Text == y.Text {
			return true
		}
		fx, errx := x.Float64()
		fy, erry := y.Float64()
		return errx == nil && erry == nil && fx == fy
	case Sequence:
		y, ok := b.(Sequence)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			fx, fy := x.Fields[i], y.Fields[i]
			if fx.Key != fy.Key || fx.Numeric != fy.Numeric || !Equal(fx.Value, fy.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
