// Package codec converts single field tokens of a C++ positional initializer
// to paramlit Values and back.
//
// Every codec is a pure function of its token (or value) and the Context,
// which carries the shared constants known for the current document.
package codec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/utgen/paramlit"
)

// Kind selects the codec used for a schema field.
type Kind int

const (
	Int              Kind = iota // 16, 0x11E1A300, 8UL
	TilingKey                    // Int that always encodes as decimal with a UL suffix.
	Bool                         // true / false
	String                       // "text", R"(raw)", or a constant placeholder
	Float                        // 1e-06, 0.5f
	Symbol                       // ge::DT_FLOAT16
	IntList                      // {16, 128}
	IntMatrix                    // {{16, 128}, {4, 64}}
	SymbolList                   // {ge::DT_FLOAT16, ge::DT_INT8}
	StringPairs                  // {{"k", "v"}}
	NamedIntLists                // {{"k", {1, 2}}}
	IndexSymbolPairs             // {{0, ge::DT_FLOAT}}
	Tensors                      // {{{{8, 7}, {8, 7}}, ge::DT_INT32, ge::FORMAT_ND}}
	Attrs                        // {{"group_ep", build_from<std::string>("ep")}}
)

var kindNames = map[Kind]string{
	Int:              "int",
	TilingKey:        "tiling_key",
	Bool:             "bool",
	String:           "string",
	Float:            "float",
	Symbol:           "symbol",
	IntList:          "int_list",
	IntMatrix:        "int_matrix",
	SymbolList:       "symbol_list",
	StringPairs:      "string_pairs",
	NamedIntLists:    "named_int_lists",
	IndexSymbolPairs: "index_symbol_pairs",
	Tensors:          "tensors",
	Attrs:            "attrs",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name as printed by Kind.String back to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// Scalar reports whether values of k render as a single token. Only scalar
// kinds can be hoisted into a shared constant.
func (k Kind) Scalar() bool {
	switch k {
	case Int, TilingKey, Bool, String, Float, Symbol:
		return true
	}
	return false
}

// Default returns the value substituted when a record omits a field of kind
// k. Symbol has no natural default; schemas supply one per field.
func (k Kind) Default() (paramlit.Value, bool) {
	switch k {
	case Int, TilingKey:
		return paramlit.Int(0), true
	case Bool:
		return paramlit.Bool(false), true
	case String:
		return paramlit.String(""), true
	case Float:
		return paramlit.Float(0), true
	case Symbol:
		return paramlit.Value{}, false
	case StringPairs, NamedIntLists, Attrs:
		return paramlit.Map(), true
	}
	return paramlit.List(), true
}

// CType is the C++ member type conventionally declared for k.
func (k Kind) CType() string {
	switch k {
	case Int:
		return "int64_t"
	case TilingKey:
		return "uint64_t"
	case Bool:
		return "bool"
	case String:
		return "std::string"
	case Float:
		return "float"
	case Symbol:
		return "ge::DataType"
	case IntList:
		return "std::initializer_list<int64_t>"
	case IntMatrix:
		return "std::vector<std::vector<int64_t>>"
	case SymbolList:
		return "std::vector<ge::DataType>"
	case StringPairs:
		return "std::vector<std::pair<std::string, std::string>>"
	case NamedIntLists:
		return "std::vector<std::pair<std::string, std::vector<int64_t>>>"
	case IndexSymbolPairs:
		return "std::vector<std::pair<size_t, ge::DataType>>"
	case Tensors:
		return "std::vector<TensorDescription>"
	case Attrs:
		return "std::vector<OpAttr>"
	}
	return "auto"
}

// Context carries document level state consulted while decoding and
// encoding.
type Context struct {
	// Constants maps constant names to their initializer token text. A bare
	// token naming one of them decodes as that initializer.
	Constants map[string]string
}

// Codec converts between one field token and a Value.
type Codec interface {
	Decode(tok string, ctx *Context) (paramlit.Value, error)
	Encode(v paramlit.Value, ctx *Context) (string, error)
}

// ItemEncoder is implemented by aggregate codecs whose elements a layout may
// place on separate lines.
type ItemEncoder interface {
	EncodeItems(v paramlit.Value, ctx *Context) ([]string, error)
}

var codecs = map[Kind]Codec{
	Int:              intCodec{},
	TilingKey:        intCodec{tilingKey: true},
	Bool:             boolCodec{},
	String:           stringCodec{},
	Float:            floatCodec{},
	Symbol:           symbolCodec{},
	IntList:          listCodec{elem: intCodec{}},
	IntMatrix:        listCodec{elem: listCodec{elem: intCodec{}}},
	SymbolList:       listCodec{elem: symbolCodec{}},
	StringPairs:      pairMapCodec{value: stringCodec{}},
	NamedIntLists:    pairMapCodec{value: listCodec{elem: intCodec{}}},
	IndexSymbolPairs: listCodec{elem: tupleCodec{elems: []Codec{intCodec{}, symbolCodec{}}}},
	Tensors:          listCodec{elem: tensorCodec{}},
	Attrs:            attrCodec{},
}

// For returns the codec of kind k.
func For(k Kind) Codec {
	if c, ok := codecs[k]; ok {
		return c
	}
	return invalidCodec{k}
}

// Decode decodes tok with the codec of kind k.
func Decode(k Kind, tok string, ctx *Context) (paramlit.Value, error) {
	return For(k).Decode(tok, ctx)
}

// Encode encodes v with the codec of kind k.
func Encode(k Kind, v paramlit.Value, ctx *Context) (string, error) {
	return For(k).Encode(v, ctx)
}

type invalidCodec struct{ k Kind }

func (c invalidCodec) Decode(string, *Context) (paramlit.Value, error) {
	return paramlit.Value{}, invalid("no codec for %s", c.k)
}

func (c invalidCodec) Encode(paramlit.Value, *Context) (string, error) {
	return "", invalid("no codec for %s", c.k)
}

func invalid(format string, args ...any) error {
	return paramlit.Errorf(paramlit.CodeInvalidValue, format, args...)
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:::[A-Za-z_][A-Za-z0-9_]*)*$`)

// IsIdentifier reports whether s is a possibly qualified C++ identifier.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// prepare strips comments from tok and expands a constant placeholder.
// placeholder is the constant name when one was expanded.
func prepare(tok string, ctx *Context) (text, placeholder string) {
	text = paramlit.StripComments(tok)
	if ctx != nil && IsIdentifier(text) {
		if init, ok := ctx.Constants[text]; ok {
			return paramlit.StripComments(init), text
		}
	}
	return text, ""
}

// elements splits a braced aggregate token into its items.
func elements(text string) ([]string, error) {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "{") || !strings.HasSuffix(t, "}") {
		return nil, invalid("expected braced list, got %q", clip(t))
	}
	toks, err := paramlit.SplitFields(t)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(toks))
	for i, tk := range toks {
		out[i] = tk.Text
	}
	return out, nil
}

func clip(s string) string {
	const limit = 40
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
