package codec

import (
	"fmt"
	"strings"

	"github.com/utgen/paramlit"
)

// listCodec handles {a, b, ...} with every item decoded by elem.
type listCodec struct{ elem Codec }

func (c listCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	items, err := elements(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	out := make([]paramlit.Value, len(items))
	for i, it := range items {
		v, err := c.elem.Decode(it, ctx)
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = v
	}
	return paramlit.List(out...), nil
}

func (c listCodec) Encode(v paramlit.Value, ctx *Context) (string, error) {
	items, err := c.EncodeItems(v, ctx)
	if err != nil {
		return "", err
	}
	return "{" + strings.Join(items, ", ") + "}", nil
}

func (c listCodec) EncodeItems(v paramlit.Value, ctx *Context) ([]string, error) {
	if v.Kind() != paramlit.KindList {
		return nil, invalid("expected list, got %s", v.Kind())
	}
	out := make([]string, v.Len())
	for i, it := range v.Items() {
		s, err := c.elem.Encode(it, ctx)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// tupleCodec handles a fixed-arity positional aggregate such as
// {0, ge::DT_FLOAT}, decoded as a list.
type tupleCodec struct{ elems []Codec }

func (c tupleCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	items, err := elements(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	if len(items) != len(c.elems) {
		return paramlit.Value{}, invalid("expected %d elements, got %d", len(c.elems), len(items))
	}
	out := make([]paramlit.Value, len(items))
	for i, it := range items {
		if out[i], err = c.elems[i].Decode(it, ctx); err != nil {
			return paramlit.Value{}, err
		}
	}
	return paramlit.List(out...), nil
}

func (c tupleCodec) Encode(v paramlit.Value, ctx *Context) (string, error) {
	if v.Kind() != paramlit.KindList || v.Len() != len(c.elems) {
		return "", invalid("expected %d-element list, got %s", len(c.elems), v)
	}
	parts := make([]string, len(c.elems))
	for i, e := range c.elems {
		s, err := e.Encode(v.Index(i), ctx)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// pairMapCodec handles {{"key", value}, ...}, decoded as an ordered map.
type pairMapCodec struct{ value Codec }

func (c pairMapCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	items, err := elements(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	fields := make([]paramlit.Field, 0, len(items))
	for i, it := range items {
		kv, err := elements(it)
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("pair %d: %w", i, err)
		}
		if len(kv) != 2 {
			return paramlit.Value{}, invalid("pair %d: expected 2 elements, got %d", i, len(kv))
		}
		key, err := Unquote(paramlit.StripComments(kv[0]))
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("pair %d key: %w", i, err)
		}
		v, err := c.value.Decode(kv[1], ctx)
		if err != nil {
			return paramlit.Value{}, fmt.Errorf("pair %q: %w", key, err)
		}
		fields = append(fields, paramlit.F(key, v))
	}
	return paramlit.Map(fields...), nil
}

func (c pairMapCodec) Encode(v paramlit.Value, ctx *Context) (string, error) {
	items, err := c.EncodeItems(v, ctx)
	if err != nil {
		return "", err
	}
	return "{" + strings.Join(items, ", ") + "}", nil
}

func (c pairMapCodec) EncodeItems(v paramlit.Value, ctx *Context) ([]string, error) {
	if v.Kind() != paramlit.KindMap {
		return nil, invalid("expected map, got %s", v.Kind())
	}
	out := make([]string, 0, v.Len())
	for _, f := range v.Fields() {
		s, err := c.value.Encode(f.Value, ctx)
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", f.Name, err)
		}
		out = append(out, "{"+Quote(f.Name)+", "+s+"}")
	}
	return out, nil
}

// Tensor description field names.
const (
	TensorShape  = "shape"
	TensorDType  = "dtype"
	TensorFormat = "format"
)

// DefaultTensorFormat is used when a tensor description omits its format.
const DefaultTensorFormat = "ge::FORMAT_ND"

// tensorCodec handles {{origin, storage}, dtype, format}. The shape pair is
// kept as a list of int lists; {} means a null tensor.
type tensorCodec struct{}

var shapeCodec = listCodec{elem: listCodec{elem: intCodec{}}}

func (tensorCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	items, err := elements(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	if len(items) != 3 {
		return paramlit.Value{}, invalid("tensor description needs shape, dtype and format, got %d elements", len(items))
	}
	shape, err := shapeCodec.Decode(items[0], ctx)
	if err != nil {
		return paramlit.Value{}, fmt.Errorf("shape: %w", err)
	}
	dt, err := symbolCodec{}.Decode(items[1], ctx)
	if err != nil {
		return paramlit.Value{}, fmt.Errorf("dtype: %w", err)
	}
	format, err := symbolCodec{}.Decode(items[2], ctx)
	if err != nil {
		return paramlit.Value{}, fmt.Errorf("format: %w", err)
	}
	return paramlit.Map(
		paramlit.F(TensorShape, shape),
		paramlit.F(TensorDType, dt),
		paramlit.F(TensorFormat, format),
	), nil
}

func (tensorCodec) Encode(v paramlit.Value, ctx *Context) (string, error) {
	if v.Kind() != paramlit.KindMap {
		return "", invalid("expected tensor description map, got %s", v.Kind())
	}
	shape, ok := v.Get(TensorShape)
	if !ok {
		shape = paramlit.List()
	}
	s, err := shapeCodec.Encode(shape, ctx)
	if err != nil {
		return "", fmt.Errorf("shape: %w", err)
	}
	dt, ok := v.Get(TensorDType)
	if !ok {
		return "", invalid("tensor description without dtype")
	}
	d, err := symbolCodec{}.Encode(dt, ctx)
	if err != nil {
		return "", fmt.Errorf("dtype: %w", err)
	}
	format, ok := v.Get(TensorFormat)
	if !ok {
		format = paramlit.Symbol(DefaultTensorFormat)
	}
	f, err := symbolCodec{}.Encode(format, ctx)
	if err != nil {
		return "", fmt.Errorf("format: %w", err)
	}
	return "{" + s + ", " + d + ", " + f + "}", nil
}
