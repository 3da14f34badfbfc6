// Package schema describes the positional literal layouts of the supported
// test suites and resolves which layout a literal uses.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
)

// Field is one positional member of a literal entry.
type Field struct {
	Name string     // declared member name
	Kind codec.Kind // codec used for the token
	// CType overrides the member type printed by Generate. Empty means
	// Kind.CType().
	CType string
	// Default is substituted when a record omits the field. A null Value means
	// the kind default.
	Default paramlit.Value
}

// TilingKey reports whether the field always renders as decimal with a UL
// suffix.
func (f Field) TilingKey() bool { return f.Kind == codec.TilingKey }

// DefaultValue returns the value used for a missing field.
func (f Field) DefaultValue() (paramlit.Value, bool) {
	if !f.Default.IsNull() {
		return f.Default, true
	}
	return f.Kind.Default()
}

// Constant describes the shared constant a layout conventionally hoists.
type Constant struct {
	Field string // declared field whose common value is hoisted
	Name  string // e.g. COMPILE_INFO
	CType string // e.g. std::string
	Raw   bool   // render string values as R"(...)"
}

// Layout controls how the encoder arranges entries.
type Layout struct {
	ArrayName    string // defaults to cases_params
	Comment      string // line emitted right above the array, if any
	Indent       string // before each entry's opening brace
	Continuation string // before fields that start a new line
	Separator    string // between fields sharing a line; defaults to ", "
	Breaks       []int  // field indices that start a new line
	// Expanded puts every field on its own line and every aggregate item on
	// its own line below it.
	Expanded     bool
	BlankBetween bool // blank line between entries
}

// DefaultArrayName is used when a layout names no array.
const DefaultArrayName = "cases_params"

// Array returns the array name, falling back to DefaultArrayName.
func (l Layout) Array() string {
	if l.ArrayName != "" {
		return l.ArrayName
	}
	return DefaultArrayName
}

// Sep returns the field separator, falling back to ", ".
func (l Layout) Sep() string {
	if l.Separator != "" {
		return l.Separator
	}
	return ", "
}

// BreaksBefore reports whether field i starts a new line.
func (l Layout) BreaksBefore(i int) bool {
	for _, b := range l.Breaks {
		if b == i {
			return true
		}
	}
	return false
}

// Probe is what the registry knows about a literal when resolving its layout.
type Probe struct {
	TypeName   string
	FieldCount int    // token count of the first entry; -1 when unknown
	Source     string // surrounding text, for marker and struct checks
}

// Descriptor is one literal layout.
type Descriptor struct {
	Name    string // declared C++ type name
	Variant string // tells apart layouts sharing a type name
	Doc     string
	Fields  []Field
	// Remap renames declared fields to record field names.
	Remap map[string]string
	// Marker is a source fragment that identifies this variant when the
	// entry count is unknown, e.g. "bool expectSuccess;".
	Marker string
	// Claims overrides the default predicate (count equality, then marker,
	// then struct declaration).
	Claims   func(Probe) bool
	Constant *Constant
	Layout   Layout
	// NameOnly keeps the descriptor out of count-only fallback.
	NameOnly bool

	once  sync.Once
	index map[string]int
	back  map[string]string
}

// ID names the descriptor uniquely within a registry.
func (d *Descriptor) ID() string {
	if d.Variant == "" {
		return d.Name
	}
	return d.Name + "/" + d.Variant
}

func (d *Descriptor) String() string { return fmt.Sprintf("%s (%d fields)", d.ID(), len(d.Fields)) }

// Arity is the number of positional fields.
func (d *Descriptor) Arity() int { return len(d.Fields) }

// Field looks up a field by declared or record name.
func (d *Descriptor) Field(name string) (Field, int, bool) {
	d.init()
	if i, ok := d.index[name]; ok {
		return d.Fields[i], i, true
	}
	if decl, ok := d.back[name]; ok {
		i := d.index[decl]
		return d.Fields[i], i, true
	}
	return Field{}, -1, false
}

// RecordName maps a declared field name to the name used in records.
func (d *Descriptor) RecordName(declared string) string {
	if n, ok := d.Remap[declared]; ok {
		return n
	}
	return declared
}

// Lookup returns the value a record holds for field f, trying the record
// name before the declared name.
func (d *Descriptor) Lookup(r paramlit.Record, f Field) (paramlit.Value, bool) {
	if v, ok := r.Get(d.RecordName(f.Name)); ok {
		return v, true
	}
	return r.Get(f.Name)
}

// Claim reports whether the descriptor accepts the probe.
func (d *Descriptor) Claim(p Probe) bool {
	if d.Claims != nil {
		return d.Claims(p)
	}
	if p.FieldCount >= 0 {
		return p.FieldCount == len(d.Fields)
	}
	if d.Marker != "" && p.Source != "" {
		return strings.Contains(p.Source, d.Marker)
	}
	if p.Source != "" {
		if n, ok := StructFieldCount(p.Source, d.Name); ok {
			return n == len(d.Fields)
		}
	}
	return true
}

func (d *Descriptor) init() { d.once.Do(d.build) }

func (d *Descriptor) build() {
	index := make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		index[f.Name] = i
	}
	back := make(map[string]string, len(d.Remap))
	for decl, rec := range d.Remap {
		back[rec] = decl
	}
	d.index, d.back = index, back
}

// validate checks the descriptor in isolation.
func (d *Descriptor) validate() paramlit.Issues {
	var iss paramlit.Issues
	add := func(format string, args ...any) {
		iss = append(iss, paramlit.Issue{
			Code:    paramlit.CodeInvalidSchema,
			Message: d.ID() + ": " + fmt.Sprintf(format, args...),
			Offset:  -1,
			Entry:   -1,
		})
	}
	if d.Name == "" {
		add("empty type name")
	}
	if len(d.Fields) == 0 {
		add("no fields")
	}
	seen := map[string]bool{}
	for i, f := range d.Fields {
		switch {
		case f.Name == "":
			add("field %d has no name", i)
		case seen[f.Name]:
			add("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		if _, ok := f.DefaultValue(); !ok {
			add("field %s of kind %s needs a default", f.Name, f.Kind)
		}
	}
	for decl, rec := range d.Remap {
		if !seen[decl] {
			add("remap of unknown field %s", decl)
		}
		if seen[rec] && rec != decl {
			add("remap target %s collides with a declared field", rec)
		}
	}
	if c := d.Constant; c != nil {
		f, _, ok := d.Field(c.Field)
		switch {
		case !ok:
			add("constant field %s is not declared", c.Field)
		case !f.Kind.Scalar():
			add("constant field %s is not scalar", c.Field)
		}
		if !codec.IsIdentifier(c.Name) {
			add("constant name %q is not an identifier", c.Name)
		}
	}
	for _, b := range d.Layout.Breaks {
		if b <= 0 || b >= len(d.Fields) {
			add("line break before field %d is out of range", b)
		}
	}
	return iss
}
