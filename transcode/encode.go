package transcode

import (
	"fmt"
	"strings"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
	"github.com/utgen/paramlit/schema"
)

// EncodeOpt configures Encode. When several are passed the last one wins.
type EncodeOpt struct {
	// SharedField names the field whose most frequent value is hoisted into
	// a constant. Empty means the layout's own constant field, if any.
	SharedField string
	// NoShare disables hoisting altogether.
	NoShare bool
	// ConstantName overrides the hoisted constant's name.
	ConstantName string
	// TypeName overrides the declared element type of the array.
	TypeName string
}

// Output is the generated code.
type Output struct {
	Array    string   // optional comment line, then `Type name[] = {...};`
	Constant string   // constant declaration; empty when nothing was hoisted
	Binding  *Binding // the hoisted value, nil when nothing was hoisted
}

// Encode renders records as the array literal of layout d.
//
// Fields are looked up by record name first, then declared name; missing
// fields take the field default. The most frequent value of the shared field
// is hoisted when it occurs at least twice; ties go to the value seen first.
// Empty strings are never hoisted.
func Encode(records []paramlit.Record, d *schema.Descriptor, opts ...EncodeOpt) (*Output, error) {
	var opt EncodeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	if d == nil {
		return nil, paramlit.Errorf(paramlit.CodeUnsupportedSchema, "nil schema")
	}

	rows, err := resolveRows(records, d)
	if err != nil {
		return nil, err
	}

	share, err := shareSpec(d, opt)
	if err != nil {
		return nil, err
	}
	out := &Output{}
	sharedIdx := -1
	if share != nil {
		_, sharedIdx, _ = d.Field(share.Field)
		if v, ok := mostCommon(rows, sharedIdx); ok {
			decl, err := constantDecl(share, d.Fields[sharedIdx], v)
			if err != nil {
				return nil, err
			}
			out.Constant = decl
			out.Binding = &Binding{Name: share.Name, Field: d.Fields[sharedIdx].Name, Value: v}
		}
	}

	l := d.Layout
	typeName := d.Name
	if opt.TypeName != "" {
		typeName = opt.TypeName
	}
	var b strings.Builder
	if l.Comment != "" {
		b.WriteString(l.Comment)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s %s[] = {\n", typeName, l.Array())
	var iss paramlit.Issues
	for i, row := range rows {
		texts := make([]string, len(row))
		for j, v := range row {
			f := d.Fields[j]
			if out.Binding != nil && j == sharedIdx && v.Equal(out.Binding.Value) {
				texts[j] = out.Binding.Name
				continue
			}
			t, err := renderField(f, v, l)
			if err != nil {
				it := paramlit.EntryIssue(i, -1, f.Name, paramlit.CodeInvalidRecord, "%s", causeMessage(err))
				it.Cause = err
				iss = append(iss, it)
				continue
			}
			texts[j] = t
		}
		if i > 0 && l.BlankBetween {
			b.WriteByte('\n')
		}
		writeEntry(&b, texts, l)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	b.WriteString("};")
	out.Array = b.String()
	return out, nil
}

// resolveRows orders every record's values by the declared fields.
func resolveRows(records []paramlit.Record, d *schema.Descriptor) ([][]paramlit.Value, error) {
	rows := make([][]paramlit.Value, len(records))
	var iss paramlit.Issues
	for i, r := range records {
		row := make([]paramlit.Value, d.Arity())
		for j, f := range d.Fields {
			v, ok := d.Lookup(r, f)
			if !ok || v.IsNull() {
				if v, ok = f.DefaultValue(); !ok {
					iss = append(iss, paramlit.EntryIssue(i, -1, f.Name, paramlit.CodeInvalidRecord, "missing field %s has no default", f.Name))
					continue
				}
			}
			row[j] = v
		}
		rows[i] = row
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return rows, nil
}

func shareSpec(d *schema.Descriptor, opt EncodeOpt) (*schema.Constant, error) {
	if opt.NoShare {
		return nil, nil
	}
	name := opt.SharedField
	if name == "" {
		if d.Constant == nil {
			return nil, nil
		}
		name = d.Constant.Field
	}
	f, _, ok := d.Field(name)
	if !ok {
		return nil, paramlit.Errorf(paramlit.CodeInvalidRecord, "shared field %s is not declared by %s", name, d.ID())
	}
	if !f.Kind.Scalar() {
		return nil, paramlit.Errorf(paramlit.CodeInvalidRecord, "shared field %s of kind %s cannot be hoisted", name, f.Kind)
	}
	var c schema.Constant
	if d.Constant != nil && d.Constant.Field == f.Name {
		c = *d.Constant
	} else {
		c = schema.Constant{Field: f.Name, Name: constantName(f.Name), CType: f.Kind.CType()}
	}
	if opt.ConstantName != "" {
		c.Name = opt.ConstantName
	}
	if !codec.IsIdentifier(c.Name) {
		return nil, paramlit.Errorf(paramlit.CodeInvalidRecord, "constant name %q is not an identifier", c.Name)
	}
	return &c, nil
}

// constantName derives an upper snake case name from a field name.
func constantName(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				prev := field[i-1]
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// mostCommon returns the most frequent hoistable value in column col when it
// occurs at least twice. Ties go to the value seen first.
func mostCommon(rows [][]paramlit.Value, col int) (paramlit.Value, bool) {
	counts := map[string]int{}
	var order []paramlit.Value
	for _, row := range rows {
		v := row[col]
		if s, ok := v.AsString(); v.IsNull() || (ok && s == "") {
			continue
		}
		k := v.Key()
		if counts[k] == 0 {
			order = append(order, v)
		}
		counts[k]++
	}
	var (
		best  paramlit.Value
		bestN int
	)
	for _, v := range order {
		if n := counts[v.Key()]; n > bestN {
			best, bestN = v, n
		}
	}
	return best, bestN >= 2
}

func constantDecl(c *schema.Constant, f schema.Field, v paramlit.Value) (string, error) {
	var lit string
	if s, ok := v.AsString(); ok && f.Kind == codec.String && c.Raw {
		lit = codec.RawQuote(s)
	} else {
		t, err := codec.Encode(f.Kind, v, nil)
		if err != nil {
			return "", paramlit.Errorf(paramlit.CodeInvalidRecord, "constant %s: %s", c.Name, causeMessage(err))
		}
		lit = t
	}
	ctype := c.CType
	if ctype == "" {
		ctype = f.Kind.CType()
	}
	return fmt.Sprintf("const %s %s = %s;", ctype, c.Name, lit), nil
}

// renderField encodes one value. Expanded layouts put aggregate items on
// their own lines.
func renderField(f schema.Field, v paramlit.Value, l schema.Layout) (string, error) {
	if l.Expanded && !f.Kind.Scalar() {
		if ie, ok := codec.For(f.Kind).(codec.ItemEncoder); ok {
			items, err := ie.EncodeItems(v, nil)
			if err != nil {
				return "", err
			}
			if len(items) == 0 {
				return "{}", nil
			}
			inner := itemIndent(l)
			last := ""
			if closesItems(f.Kind) {
				last = ","
			}
			return "{\n" + inner + strings.Join(items, ",\n"+inner) + last + "\n" + l.Continuation + "}", nil
		}
	}
	return codec.Encode(f.Kind, v, nil)
}

// closesItems reports whether the last item of an expanded aggregate keeps
// its comma. Sequences do; key/value collections such as attribute lists do
// not.
func closesItems(k codec.Kind) bool {
	switch k {
	case codec.StringPairs, codec.NamedIntLists, codec.Attrs:
		return false
	}
	return true
}

// itemIndent nests one step deeper than the continuation indent.
func itemIndent(l schema.Layout) string {
	step := strings.TrimPrefix(l.Continuation, l.Indent)
	if step == "" || step == l.Continuation {
		step = "    "
	}
	return l.Continuation + step
}

func writeEntry(b *strings.Builder, texts []string, l schema.Layout) {
	b.WriteString(l.Indent)
	b.WriteByte('{')
	if l.Expanded {
		b.WriteByte('\n')
		for j, t := range texts {
			b.WriteString(l.Continuation)
			b.WriteString(t)
			if j < len(texts)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(l.Indent)
		b.WriteString("},\n")
		return
	}
	for j, t := range texts {
		if j > 0 {
			if l.BreaksBefore(j) {
				b.WriteString(",\n")
				b.WriteString(l.Continuation)
			} else {
				b.WriteString(l.Sep())
			}
		}
		b.WriteString(t)
	}
	b.WriteString("},\n")
}
