// Package transcode converts between case records and the positional array
// literal embedded in a generated C++ test source.
package transcode

import (
	"strings"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
	"github.com/utgen/paramlit/internal/cppsrc"
	"github.com/utgen/paramlit/internal/scan"
	"github.com/utgen/paramlit/schema"
)

// DecodeOpt configures Decode. When several are passed the last one wins.
type DecodeOpt struct {
	// Schema forces the layout instead of resolving it.
	Schema *schema.Descriptor
	// Registry resolves the layout; nil means schema.Default().
	Registry *schema.Registry
	// OnMismatch selects what happens to an entry whose field count differs
	// from the layout: Error aborts, Warn skips the entry and records it in
	// Document.Skipped, Ignore drops it.
	OnMismatch paramlit.Severity
}

// Constant is a shared constant declared next to the array.
type Constant struct {
	Name  string
	CType string
	Init  string // initializer token text
}

// Binding is the shared constant referenced by the hoisted field.
type Binding struct {
	Name  string
	Field string // declared field name
	Value paramlit.Value
}

// Document is a decoded array literal.
type Document struct {
	Schema    *schema.Descriptor
	TypeName  string
	ArrayName string
	Constants []Constant
	Binding   *Binding
	Records   []paramlit.Record
	Skipped   paramlit.Issues
}

// Decode locates the case array in src and decodes every entry into a
// record. Records keep entry order and declared field order.
func Decode(src string, opts ...DecodeOpt) (*Document, error) {
	var opt DecodeOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	reg := opt.Registry
	if reg == nil {
		reg = schema.Default()
	}

	arr, ok, err := cppsrc.FindArray(src)
	if err != nil {
		return nil, fromScan(err)
	}
	if !ok {
		return nil, paramlit.Issues{{Code: paramlit.CodeMissingBlock, Message: "no `Type name[] = {...};` array found", Offset: -1, Entry: -1}}
	}
	body := arr.Body(src)
	entries, err := scan.Entries(body)
	if err != nil {
		return nil, fromScanAt(err, arr.Open+1)
	}

	consts := cppsrc.FindConstants(src[:arr.Start])
	ctx := &codec.Context{Constants: cppsrc.ConstantMap(consts)}
	doc := &Document{TypeName: arr.TypeName, ArrayName: arr.Name}
	for _, c := range consts {
		doc.Constants = append(doc.Constants, Constant{Name: c.Name, CType: c.CType, Init: c.Init})
	}

	// split every entry up front: the first one drives resolution
	split := make([][]paramlit.Token, len(entries))
	for i, e := range entries {
		toks, err := paramlit.SplitFieldsAt(e.Text, arr.Open+1+e.Offset)
		if err != nil {
			return nil, err
		}
		split[i] = toks
	}

	d := opt.Schema
	if d == nil {
		count := -1
		if len(split) > 0 {
			count = len(split[0])
		}
		d, err = reg.ResolveProbe(schema.Probe{TypeName: arr.TypeName, FieldCount: count, Source: src[:arr.Start]})
		if err != nil {
			return nil, withOffset(err, arr.Start)
		}
	}
	doc.Schema = d

	var iss paramlit.Issues
	for i, toks := range split {
		entryOff := arr.Open + 1 + entries[i].Offset
		if len(toks) != d.Arity() {
			it := paramlit.EntryIssue(i, entryOff, "", paramlit.CodeFieldCountMismatch,
				"entry has %d fields, %s expects %d", len(toks), d.ID(), d.Arity())
			it.Params = map[string]any{"want": d.Arity(), "got": len(toks)}
			switch opt.OnMismatch {
			case paramlit.Warn:
				doc.Skipped = append(doc.Skipped, it)
				continue
			case paramlit.Ignore:
				continue
			}
			iss = append(iss, it)
			continue
		}
		rec, err := decodeEntry(d, toks, i, ctx)
		if err != nil {
			iss = paramlit.AppendIssues(iss, asIssues(err)...)
			continue
		}
		doc.Records = append(doc.Records, rec)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	doc.Binding = bindingOf(d, doc.Constants, ctx)
	return doc, nil
}

func decodeEntry(d *schema.Descriptor, toks []paramlit.Token, entry int, ctx *codec.Context) (paramlit.Record, error) {
	fields := make([]paramlit.Field, len(toks))
	for j, tok := range toks {
		f := d.Fields[j]
		v, err := codec.Decode(f.Kind, tok.Text, ctx)
		if err != nil {
			it := paramlit.EntryIssue(entry, tok.Offset, f.Name, paramlit.CodeInvalidValue, "%s", causeMessage(err))
			it.Cause = err
			return paramlit.Record{}, paramlit.Issues{it}
		}
		fields[j] = paramlit.F(d.RecordName(f.Name), v)
	}
	return paramlit.NewRecord(fields...), nil
}

// bindingOf reports the layout's shared constant when the source declares it.
func bindingOf(d *schema.Descriptor, consts []Constant, ctx *codec.Context) *Binding {
	c := d.Constant
	if c == nil {
		return nil
	}
	f, _, ok := d.Field(c.Field)
	if !ok {
		return nil
	}
	for _, k := range consts {
		if k.Name != c.Name {
			continue
		}
		v, err := codec.Decode(f.Kind, k.Name, ctx)
		if err != nil {
			return nil
		}
		return &Binding{Name: k.Name, Field: f.Name, Value: v}
	}
	return nil
}

func asIssues(err error) paramlit.Issues {
	if iss, ok := paramlit.AsIssues(err); ok {
		return iss
	}
	return paramlit.Issues{{Code: paramlit.CodeInvalidValue, Message: err.Error(), Offset: -1, Entry: -1, Cause: err}}
}

// causeMessage flattens a codec error, dropping the code and location
// prefix of the innermost issue.
func causeMessage(err error) string {
	msg := err.Error()
	if iss, ok := paramlit.AsIssues(err); ok && len(iss) == 1 {
		if prefix, found := strings.CutSuffix(msg, iss.Error()); found {
			return prefix + iss[0].Message
		}
	}
	return msg
}
