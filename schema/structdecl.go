package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
	"github.com/utgen/paramlit/internal/scan"
)

// Member is one data member parsed from a struct declaration.
type Member struct {
	CType string
	Name  string
}

// StructMembers returns the data members of the struct typeName declared in
// src. ok is false when src declares no such struct.
func StructMembers(src, typeName string) (members []Member, ok bool, err error) {
	re := regexp.MustCompile(`\bstruct\s+` + regexp.QuoteMeta(typeName) + `\s*(?::[^{;]*)?\{`)
	loc := re.FindStringIndex(src)
	if loc == nil {
		return nil, false, nil
	}
	open := loc[1] - 1
	end, err := scan.Matching(src, open)
	if err != nil {
		return nil, true, err
	}
	stmts, err := scan.Split(src[open+1:end], ';', open+1)
	if err != nil {
		return nil, true, err
	}
	for _, st := range stmts {
		ms, err := parseMembers(scan.StripComments(st.Text))
		if err != nil {
			return nil, true, paramlit.Issues{paramlit.IssueAt(st.Offset, paramlit.CodeInvalidSchema, err.Error())}
		}
		members = append(members, ms...)
	}
	return members, true, nil
}

// StructFieldCount counts the data members of struct typeName in src. It is
// the structural fingerprint used when a literal has no entries to count.
func StructFieldCount(src, typeName string) (int, bool) {
	ms, ok, err := StructMembers(src, typeName)
	if !ok || err != nil {
		return 0, false
	}
	return len(ms), true
}

var accessLabelRe = regexp.MustCompile(`^(?:(?:public|private|protected)\s*:\s*)+`)

func parseMembers(stmt string) ([]Member, error) {
	stmt = strings.TrimSpace(accessLabelRe.ReplaceAllString(stmt, ""))
	if stmt == "" {
		return nil, nil
	}
	head := stmt
	if i := strings.IndexAny(head, "{="); i >= 0 {
		head = head[:i]
	}
	first := strings.Fields(head)
	if len(first) > 0 {
		switch first[0] {
		case "static", "using", "typedef", "friend", "enum", "struct", "class":
			return nil, nil
		}
	}
	// member functions and constructors
	if strings.Contains(head, "(") {
		return nil, nil
	}
	decls, err := scan.Split(stmt, ',', 0)
	if err != nil {
		return nil, err
	}
	var (
		out   []Member
		ctype string
	)
	for i, d := range decls {
		text := d.Text
		if j := strings.IndexAny(text, "{="); j >= 0 {
			text = text[:j]
		}
		text = strings.TrimSpace(text)
		if k := strings.IndexByte(text, '['); k >= 0 {
			text = strings.TrimSpace(text[:k])
		}
		name := trailingIdent(text)
		if name == "" {
			return nil, fmt.Errorf("cannot find member name in %q", d.Text)
		}
		if i == 0 {
			ctype = strings.TrimSpace(text[:len(text)-len(name)])
			if ctype == "" {
				return nil, fmt.Errorf("member %s has no type", name)
			}
		}
		out = append(out, Member{CType: ctype, Name: name})
	}
	return out, nil
}

func trailingIdent(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			i--
			continue
		}
		break
	}
	name := s[i:]
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return ""
	}
	return name
}

var (
	structDeclRe = regexp.MustCompile(`\bstruct\s+([A-Za-z_]\w*)\s*(?::[^{;]*)?\{`)
	paramTypeRe  = regexp.MustCompile(`\bTestWithParam\s*<\s*([A-Za-z_][\w:]*)\s*>`)
)

// deriveDeclared builds a layout from a struct declared in src. The type
// bound by a TestWithParam fixture is tried first, then the declared structs
// from last to first.
func deriveDeclared(src string) (*Descriptor, bool) {
	var names []string
	for _, m := range paramTypeRe.FindAllStringSubmatch(src, -1) {
		name := m[1]
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
		names = append(names, name)
	}
	decls := structDeclRe.FindAllStringSubmatch(src, -1)
	for i := len(decls) - 1; i >= 0; i-- {
		names = append(names, decls[i][1])
	}
	for _, name := range names {
		d, err := FromStruct(src, name)
		if err == nil && len(d.Fields) > 0 && len(d.validate()) == 0 {
			return d, true
		}
	}
	return nil, false
}

// FromStruct builds a descriptor from the declaration of struct typeName in
// src, mapping each member type to a field kind.
func FromStruct(src, typeName string) (*Descriptor, error) {
	ms, ok, err := StructMembers(src, typeName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, paramlit.Errorf(paramlit.CodeUnsupportedSchema, "struct %s not declared", typeName)
	}
	d := &Descriptor{Name: typeName, Doc: "derived from struct declaration", Layout: Layout{Indent: "    "}}
	for _, m := range ms {
		f, err := FieldFor(m)
		if err != nil {
			return nil, paramlit.Errorf(paramlit.CodeUnsupportedSchema, "%s.%s: %v", typeName, m.Name, err)
		}
		d.Fields = append(d.Fields, f)
	}
	return d, nil
}

// symbolDefaults are the defaults of known enum member types.
var symbolDefaults = map[string]string{
	"ge::DataType":    DTFloat16,
	"ge::graphStatus": "ge::GRAPH_SUCCESS",
	"ge::Format":      codec.DefaultTensorFormat,
}

// FieldFor maps a struct member to a field.
func FieldFor(m Member) (Field, error) {
	t := normalizeCType(m.CType)
	f := Field{Name: m.Name, CType: m.CType}
	switch t {
	case "bool":
		f.Kind = codec.Bool
	case "int", "long", "longlong", "unsigned", "unsignedint", "unsignedlong", "unsignedlonglong",
		"int8_t", "int16_t", "int32_t", "int64_t", "uint8_t", "uint16_t", "uint32_t", "uint64_t", "size_t":
		f.Kind = codec.Int
		if m.Name == "expectTilingKey" {
			f.Kind = codec.TilingKey
		}
	case "float", "double":
		f.Kind = codec.Float
	case "string", "char*":
		f.Kind = codec.String
	case "initializer_list<int64_t>", "vector<int64_t>", "vector<int32_t>", "vector<uint32_t>",
		"vector<uint64_t>", "vector<size_t>", "vector<int>", "initializer_list<size_t>":
		f.Kind = codec.IntList
	case "vector<vector<int64_t>>", "initializer_list<initializer_list<int64_t>>":
		f.Kind = codec.IntMatrix
	case "vector<ge::DataType>", "initializer_list<ge::DataType>":
		f.Kind = codec.SymbolList
	case "vector<pair<string,string>>":
		f.Kind = codec.StringPairs
	case "vector<pair<string,vector<int64_t>>>":
		f.Kind = codec.NamedIntLists
	case "vector<pair<size_t,ge::DataType>>":
		f.Kind = codec.IndexSymbolPairs
	case "vector<TensorDescription>", "vector<gert::TilingContextPara::TensorDescription>":
		f.Kind = codec.Tensors
	case "vector<OpAttr>", "vector<gert::TilingContextPara::OpAttr>":
		f.Kind = codec.Attrs
	default:
		def, ok := symbolDefaults[t]
		if !ok {
			return Field{}, fmt.Errorf("unsupported member type %s", m.CType)
		}
		f.Kind = codec.Symbol
		f.Default = paramlit.Symbol(def)
	}
	return f, nil
}

func normalizeCType(t string) string {
	t = strings.ReplaceAll(t, "std::", "")
	t = strings.TrimPrefix(strings.TrimSpace(t), "const ")
	return strings.Join(strings.Fields(t), "")
}
