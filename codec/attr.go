package codec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/utgen/paramlit"
)

// AttrFactory is the function template used to wrap attribute values.
const AttrFactory = "build_from"

var attrCallRe = regexp.MustCompile(`(?s)^([A-Za-z_][\w:]*)\s*<\s*(.+?)\s*>\s*\((.*)\)$`)

// attrCodec handles operator attribute lists:
//
//	{{"group_ep", build_from<std::string>("ep")}, {"ep_world_size", build_from<int64_t>(8)}}
//
// decoded as an ordered map from attribute name to a typed value.
type attrCodec struct{}

func (attrCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	items, err := elements(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	fields := make([]paramlit.Field, 0, len(items))
	for i, it := range items {
		kv, err := elements(it)
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("attr %d: %w", i, err)
		}
		if len(kv) != 2 {
			return paramlit.Value{}, invalid("attr %d: expected name and value, got %d elements", i, len(kv))
		}
		name, err := Unquote(paramlit.StripComments(kv[0]))
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("attr %d name: %w", i, err)
		}
		v, err := decodeAttrValue(paramlit.StripComments(kv[1]), ctx)
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("attr %q: %w", name, err)
		}
		fields = append(fields, paramlit.F(name, v))
	}
	return paramlit.Map(fields...), nil
}

func decodeAttrValue(text string, ctx *Context) (paramlit.Value, error) {
	m := attrCallRe.FindStringSubmatch(text)
	if m == nil || (m[1] != AttrFactory && !strings.HasSuffix(m[1], "::"+AttrFactory)) {
		return paramlit.Value{}, invalid("expected %s<T>(value), got %q", AttrFactory, clip(text))
	}
	typ, arg := strings.ReplaceAll(m[2], " ", ""), strings.TrimSpace(m[3])
	switch typ {
	case "std::string", "string":
		return stringCodec{}.Decode(arg, ctx)
	case "int64_t", "int32_t", "int", "uint32_t", "uint64_t", "size_t":
		return intCodec{}.Decode(arg, ctx)
	case "bool":
		return boolCodec{}.Decode(arg, ctx)
	case "float", "double":
		return floatCodec{}.Decode(arg, ctx)
	case "std::vector<int64_t>", "vector<int64_t>":
		return listCodec{elem: intCodec{}}.Decode(arg, ctx)
	}
	return paramlit.Value{}, invalid("unsupported attribute type %s", m[2])
}

func (c attrCodec) Encode(v paramlit.Value, ctx *Context) (string, error) {
	items, err := c.EncodeItems(v, ctx)
	if err != nil {
		return "", err
	}
	return "{" + strings.Join(items, ", ") + "}", nil
}

func (attrCodec) EncodeItems(v paramlit.Value, ctx *Context) ([]string, error) {
	if v.Kind() != paramlit.KindMap {
		return nil, invalid("expected attribute map, got %s", v.Kind())
	}
	out := make([]string, 0, v.Len())
	for _, f := range v.Fields() {
		var (
			typ string
			arg string
			err error
		)
		switch f.Value.Kind() {
		case paramlit.KindString:
			typ, arg, err = "std::string", Quote(mustString(f.Value)), nil
		case paramlit.KindInt:
			typ, arg, err = "int64_t", FormatInt(f.Value), nil
		case paramlit.KindBool:
			typ = "bool"
			arg, err = boolCodec{}.Encode(f.Value, ctx)
		case paramlit.KindFloat:
			typ = "float"
			arg, err = floatCodec{}.Encode(f.Value, ctx)
		case paramlit.KindList:
			typ = "std::vector<int64_t>"
			arg, err = listCodec{elem: intCodec{}}.Encode(f.Value, ctx)
		default:
			err = invalid("attribute of kind %s has no C++ type", f.Value.Kind())
		}
		if err != nil {
			return nil, fmt.Errorf("attr %q: %w", f.Name, err)
		}
		out = append(out, fmt.Sprintf("{%s, %s<%s>(%s)}", Quote(f.Name), AttrFactory, typ, arg))
	}
	return out, nil
}

func mustString(v paramlit.Value) string {
	s, _ := v.AsString()
	return s
}
