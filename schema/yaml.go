package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
)

// Spec is the YAML form of a Descriptor.
type Spec struct {
	Name     string            `yaml:"name"`
	Variant  string            `yaml:"variant,omitempty"`
	Doc      string            `yaml:"doc,omitempty"`
	Fields   []FieldSpec       `yaml:"fields"`
	Remap    map[string]string `yaml:"remap,omitempty"`
	Marker   string            `yaml:"marker,omitempty"`
	NameOnly bool              `yaml:"name_only,omitempty"`
	Constant *ConstantSpec     `yaml:"constant,omitempty"`
	Layout   LayoutSpec        `yaml:"layout,omitempty"`
}

// FieldSpec is one field. Default is C++ initializer text, e.g.
// "ge::DT_FLOAT16" or "{16, 128}".
type FieldSpec struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	CType   string `yaml:"ctype,omitempty"`
	Default string `yaml:"default,omitempty"`
}

type ConstantSpec struct {
	Field string `yaml:"field"`
	Name  string `yaml:"name"`
	CType string `yaml:"ctype,omitempty"`
	Raw   bool   `yaml:"raw,omitempty"`
}

type LayoutSpec struct {
	Array        string `yaml:"array,omitempty"`
	Comment      string `yaml:"comment,omitempty"`
	Indent       string `yaml:"indent,omitempty"`
	Continuation string `yaml:"continuation,omitempty"`
	Separator    string `yaml:"separator,omitempty"`
	Breaks       []int  `yaml:"breaks,omitempty"`
	Expanded     bool   `yaml:"expanded,omitempty"`
	BlankBetween bool   `yaml:"blank_between,omitempty"`
}

// Descriptor converts s. The result is validated when it is registered.
func (s Spec) Descriptor() (*Descriptor, error) {
	d := &Descriptor{
		Name:     s.Name,
		Variant:  s.Variant,
		Doc:      s.Doc,
		Remap:    s.Remap,
		Marker:   s.Marker,
		NameOnly: s.NameOnly,
		Layout: Layout{
			ArrayName:    s.Layout.Array,
			Comment:      s.Layout.Comment,
			Indent:       s.Layout.Indent,
			Continuation: s.Layout.Continuation,
			Separator:    s.Layout.Separator,
			Breaks:       s.Layout.Breaks,
			Expanded:     s.Layout.Expanded,
			BlankBetween: s.Layout.BlankBetween,
		},
	}
	for _, fs := range s.Fields {
		k, err := codec.ParseKind(fs.Kind)
		if err != nil {
			return nil, specError(s, "field %s: %v", fs.Name, err)
		}
		f := Field{Name: fs.Name, Kind: k, CType: fs.CType}
		if fs.Default != "" {
			v, err := codec.Decode(k, fs.Default, nil)
			if err != nil {
				return nil, specError(s, "field %s default: %v", fs.Name, err)
			}
			f.Default = v
		}
		d.Fields = append(d.Fields, f)
	}
	if c := s.Constant; c != nil {
		d.Constant = &Constant{Field: c.Field, Name: c.Name, CType: c.CType, Raw: c.Raw}
	}
	return d, nil
}

func specError(s Spec, format string, args ...any) error {
	id := s.Name
	if s.Variant != "" {
		id += "/" + s.Variant
	}
	return paramlit.Issues{{
		Code:    paramlit.CodeInvalidSchema,
		Message: id + ": " + fmt.Sprintf(format, args...),
		Offset:  -1,
		Entry:   -1,
	}}
}

// Descriptors converts every spec, collecting all failures.
func Descriptors(specs []Spec) ([]*Descriptor, error) {
	var (
		out []*Descriptor
		iss paramlit.Issues
	)
	for _, s := range specs {
		d, err := s.Descriptor()
		if err != nil {
			if more, ok := paramlit.AsIssues(err); ok {
				iss = paramlit.AppendIssues(iss, more...)
				continue
			}
			return nil, err
		}
		out = append(out, d)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

// LoadYAML reads a document of the form
//
//	schemas:
//	  - name: FooTilingTestParam
//	    fields:
//	      - {name: case_name, kind: string}
//
// Unknown keys are rejected.
func LoadYAML(r io.Reader) ([]*Descriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Schemas []Spec `yaml:"schemas"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, paramlit.Issues{{Code: paramlit.CodeInvalidSchema, Message: err.Error(), Offset: -1, Entry: -1, Cause: err}}
	}
	return Descriptors(doc.Schemas)
}
