package paramlit

// Record is one test case: an ordered, immutable mapping from field name to
// Value. Transformations return a new Record.
type Record struct {
	fields []Field
}

// NewRecord builds a Record from fields. A repeated name keeps its first
// position and its last value.
func NewRecord(fields ...Field) Record {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i := indexOf(out, f.Name); i >= 0 {
			out[i].Value = f.Value
			continue
		}
		out = append(out, f)
	}
	return Record{fields: out}
}

func indexOf(fs []Field, name string) int {
	for i := range fs {
		if fs[i].Name == name {
			return i
		}
	}
	return -1
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field { return append([]Field(nil), r.fields...) }

// Names returns the field names in order.
func (r Record) Names() []string {
	out := make([]string, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Name
	}
	return out
}

// Get returns the value of name.
func (r Record) Get(name string) (Value, bool) {
	if i := indexOf(r.fields, name); i >= 0 {
		return r.fields[i].Value, true
	}
	return Value{}, false
}

// Has reports whether name is present.
func (r Record) Has(name string) bool { return indexOf(r.fields, name) >= 0 }

// Set returns a copy of r with name bound to v. An existing field keeps its
// position; a new one is appended.
func (r Record) Set(name string, v Value) Record {
	out := make([]Field, len(r.fields), len(r.fields)+1)
	copy(out, r.fields)
	if i := indexOf(out, name); i >= 0 {
		out[i].Value = v
	} else {
		out = append(out, Field{Name: name, Value: v})
	}
	return Record{fields: out}
}

// Without returns a copy of r with name removed.
func (r Record) Without(name string) Record {
	i := indexOf(r.fields, name)
	if i < 0 {
		return r
	}
	out := make([]Field, 0, len(r.fields)-1)
	out = append(out, r.fields[:i]...)
	out = append(out, r.fields[i+1:]...)
	return Record{fields: out}
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(o Record) bool {
	if len(r.fields) != len(o.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i].Name != o.fields[i].Name || !r.fields[i].Value.Equal(o.fields[i].Value) {
			return false
		}
	}
	return true
}

// String renders r for diagnostics.
func (r Record) String() string { return Map(r.fields...).String() }
