package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/utgen/paramlit"
)

// Registry is an immutable set of descriptors.
type Registry struct {
	all    []*Descriptor
	byID   map[string]*Descriptor
	byName map[string][]*Descriptor
	// count-only fallback candidates, unique per arity
	byArity map[int]*Descriptor
}

// NewRegistry validates descs and indexes them. Descriptor IDs must be
// unique, and no two fallback-eligible descriptors may share an arity.
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]*Descriptor, len(descs)),
		byName:  make(map[string][]*Descriptor),
		byArity: make(map[int]*Descriptor),
	}
	var iss paramlit.Issues
	for _, d := range descs {
		if d == nil {
			continue
		}
		if bad := d.validate(); len(bad) > 0 {
			iss = paramlit.AppendIssues(iss, bad...)
			continue
		}
		d.init()
		if prev, ok := r.byID[d.ID()]; ok {
			if prev != d {
				iss = append(iss, schemaIssue("duplicate descriptor %s", d.ID()))
			}
			continue
		}
		if !d.NameOnly {
			if prev, ok := r.byArity[d.Arity()]; ok {
				iss = append(iss, schemaIssue("%s and %s both have %d fields; mark one NameOnly", prev.ID(), d.ID(), d.Arity()))
				continue
			}
			r.byArity[d.Arity()] = d
		}
		r.all = append(r.all, d)
		r.byID[d.ID()] = d
		r.byName[d.Name] = append(r.byName[d.Name], d)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return r, nil
}

// With returns a new registry holding r's descriptors followed by extra.
func (r *Registry) With(extra ...*Descriptor) (*Registry, error) {
	all := append(append([]*Descriptor(nil), r.all...), extra...)
	return NewRegistry(all...)
}

// All returns the descriptors in registration order.
func (r *Registry) All() []*Descriptor { return append([]*Descriptor(nil), r.all...) }

// Get returns the descriptor with the given ID, or the single descriptor of
// that type name.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	if d, ok := r.byID[id]; ok {
		return d, true
	}
	if ds := r.byName[id]; len(ds) == 1 {
		return ds[0], true
	}
	return nil, false
}

// Names returns the sorted descriptor IDs.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.all))
	for _, d := range r.all {
		out = append(out, d.ID())
	}
	sort.Strings(out)
	return out
}

// Resolve picks the descriptor for a literal of the given type name and
// first-entry token count.
func (r *Registry) Resolve(typeName string, fieldCount int) (*Descriptor, error) {
	return r.ResolveProbe(Probe{TypeName: typeName, FieldCount: fieldCount})
}

// ResolveProbe resolves in priority order: exact type name, the predicate
// among same-name descriptors, then the fallback-eligible descriptor of the
// same arity.
func (r *Registry) ResolveProbe(p Probe) (*Descriptor, error) {
	named := r.byName[p.TypeName]
	if len(named) > 0 {
		var claims []*Descriptor
		for _, d := range named {
			if d.Claim(p) {
				claims = append(claims, d)
			}
		}
		switch len(claims) {
		case 1:
			return claims[0], nil
		case 0:
		default:
			ids := make([]string, len(claims))
			for i, d := range claims {
				ids[i] = d.ID()
			}
			return nil, paramlit.Issues{{
				Code:    paramlit.CodeAmbiguousSchema,
				Message: fmt.Sprintf("%s with %d fields matches %s", p.TypeName, p.FieldCount, strings.Join(ids, ", ")),
				Offset:  -1,
				Entry:   -1,
				Params:  map[string]any{"type": p.TypeName, "count": p.FieldCount, "candidates": ids},
			}}
		}
	}
	if p.FieldCount >= 0 {
		if d, ok := r.byArity[p.FieldCount]; ok {
			return d, nil
		}
	}
	msg := fmt.Sprintf("no layout for %s with %d fields", p.TypeName, p.FieldCount)
	if len(named) > 0 {
		arities := make([]string, len(named))
		for i, d := range named {
			arities[i] = fmt.Sprint(d.Arity())
		}
		msg += fmt.Sprintf(" (known arities: %s)", strings.Join(arities, ", "))
	}
	return nil, paramlit.Issues{{
		Code:    paramlit.CodeUnsupportedSchema,
		Message: msg,
		Offset:  -1,
		Entry:   -1,
		Params:  map[string]any{"type": p.TypeName, "count": p.FieldCount},
	}}
}

// Detect resolves the layout of a source that declares one of the registered
// parameter structs but may not contain a case array yet, such as a skeleton.
// The first declared type name in registration order wins. A source that
// declares no registered struct falls back to a layout derived from its own
// declaration; see deriveDeclared.
func (r *Registry) Detect(src string) (*Descriptor, error) {
	seen := map[string]bool{}
	for _, d := range r.all {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		if _, ok := StructFieldCount(src, d.Name); !ok {
			continue
		}
		if named := r.byName[d.Name]; len(named) == 1 {
			return named[0], nil
		}
		return r.ResolveProbe(Probe{TypeName: d.Name, FieldCount: -1, Source: src})
	}
	if d, ok := deriveDeclared(src); ok {
		return d, nil
	}
	return nil, paramlit.Issues{{
		Code:    paramlit.CodeUnsupportedSchema,
		Message: "source declares none of the registered parameter structs",
		Offset:  -1,
		Entry:   -1,
	}}
}

func schemaIssue(format string, args ...any) paramlit.Issue {
	return paramlit.Issue{Code: paramlit.CodeInvalidSchema, Message: fmt.Sprintf(format, args...), Offset: -1, Entry: -1}
}

var builtin = mustRegistry(Builtins()...)

// Default returns the registry of built-in layouts.
func Default() *Registry { return builtin }

func mustRegistry(descs ...*Descriptor) *Registry {
	r, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return r
}
