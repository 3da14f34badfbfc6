package paramlit

import (
	"math"
	"strconv"
	"strings"
)

// Value is an immutable dynamically typed field value.
type Value struct {
	kind     Kind
	i        int64
	u        uint64
	unsigned bool
	f        float64
	b        bool
	s        string
	items    []Value
	fields   []Field
}

// Field is a named Value. Records and map values are ordered lists of fields.
type Field struct {
	Name  string
	Value Value
}

// Int returns an integer Value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Uint returns an integer Value. Values that fit int64 are stored signed so
// that Uint(5) equals Int(5).
func Uint(v uint64) Value {
	if v <= math.MaxInt64 {
		return Int(int64(v))
	}
	return Value{kind: KindInt, u: v, unsigned: true}
}

// Float returns a floating point Value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String returns a string Value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Symbol returns a bare identifier Value.
func Symbol(v string) Value { return Value{kind: KindSymbol, s: v} }

// List returns a sequence Value. The items are copied.
func List(items ...Value) Value {
	return Value{kind: KindList, items: append([]Value{}, items...)}
}

// Ints is shorthand for a List of Int values.
func Ints(vs ...int64) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = Int(v)
	}
	return Value{kind: KindList, items: items}
}

// Map returns an ordered name/value Value. The fields are copied.
func Map(fields ...Field) Value {
	return Value{kind: KindMap, fields: append([]Field{}, fields...)}
}

// F is shorthand for constructing a Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the zero Value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the signed integer held by v.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt || v.unsigned {
		return 0, false
	}
	return v.i, true
}

// AsUint returns the integer held by v when it is non-negative.
func (v Value) AsUint() (uint64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	if v.unsigned {
		return v.u, true
	}
	if v.i < 0 {
		return 0, false
	}
	return uint64(v.i), true
}

// IsUnsigned reports whether v holds an integer above MaxInt64.
func (v Value) IsUnsigned() bool { return v.kind == KindInt && v.unsigned }

func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		if v.unsigned {
			return float64(v.u), true
		}
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the text of a string or symbol Value.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString || v.kind == KindSymbol
}

// Items returns a copy of the elements of a list Value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return append([]Value(nil), v.items...)
}

// Len returns the number of items or fields.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.items)
	case KindMap:
		return len(v.fields)
	}
	return 0
}

// Index returns the i-th item of a list Value.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// Fields returns a copy of the fields of a map Value.
func (v Value) Fields() []Field {
	if v.kind != KindMap {
		return nil
	}
	return append([]Field(nil), v.fields...)
}

// Get looks up a field of a map Value.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for _, f := range v.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Equal reports deep equality. Maps compare in field order.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.unsigned == o.unsigned && v.i == o.i && v.u == o.u
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	case KindString, KindSymbol:
		return v.s == o.s
	case KindList:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Name != o.fields[i].Name || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// Key returns a canonical text form usable as a map key for counting equal
// values.
func (v Value) Key() string {
	b := &strings.Builder{}
	v.writeKey(b)
	return b.String()
}

func (v Value) writeKey(b *strings.Builder) {
	b.WriteString(v.kind.String())
	b.WriteByte(':')
	switch v.kind {
	case KindInt:
		if v.unsigned {
			b.WriteString(strconv.FormatUint(v.u, 10))
		} else {
			b.WriteString(strconv.FormatInt(v.i, 10))
		}
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	case KindString, KindSymbol:
		b.WriteString(strconv.Quote(v.s))
	case KindList:
		b.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			it.writeKey(b)
		}
		b.WriteByte(']')
	case KindMap:
		b.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(f.Name))
			b.WriteByte('=')
			f.Value.writeKey(b)
		}
		b.WriteByte('}')
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return strconv.Quote(v.s)
	case KindSymbol:
		return v.s
	}
	k := v.Key()
	return k[strings.IndexByte(k, ':')+1:]
}
