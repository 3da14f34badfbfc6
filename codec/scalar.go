package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/utgen/paramlit"
)

// HexThreshold is the magnitude above which integers encode as uppercase
// hexadecimal.
const HexThreshold = 100000000

type intCodec struct{ tilingKey bool }

func (intCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	return ParseInt(text)
}

func (c intCodec) Encode(v paramlit.Value, _ *Context) (string, error) {
	if f, ok := v.AsFloat(); ok && v.Kind() == paramlit.KindFloat {
		switch {
		case f != math.Trunc(f) || f < -(1<<63) || f >= 1<<64:
			return "", invalid("%v is not an integer", f)
		case f >= 1<<63:
			v = paramlit.Uint(uint64(f))
		default:
			v = paramlit.Int(int64(f))
		}
	}
	if v.Kind() != paramlit.KindInt {
		return "", invalid("expected int, got %s", v.Kind())
	}
	if c.tilingKey {
		if u, ok := v.AsUint(); ok {
			return strconv.FormatUint(u, 10) + "UL", nil
		}
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10) + "UL", nil
	}
	return FormatInt(v), nil
}

// FormatInt renders an integer Value in minimal decimal, or as 0x%X when it
// exceeds HexThreshold.
func FormatInt(v paramlit.Value) string {
	if u, ok := v.AsUint(); ok {
		if u > HexThreshold {
			return fmt.Sprintf("0x%X", u)
		}
		return strconv.FormatUint(u, 10)
	}
	i, _ := v.AsInt()
	return strconv.FormatInt(i, 10)
}

var intSuffixes = map[string]bool{
	"u": true, "l": true, "ul": true, "lu": true,
	"ll": true, "ull": true, "llu": true,
}

// ParseInt parses a C++ integer literal: optional sign, base prefix
// (0x, 0b, leading 0 for octal), digit separators and a u/l suffix.
func ParseInt(text string) (paramlit.Value, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return paramlit.Value{}, invalid("empty integer")
	}
	body := strings.TrimRight(s, "uUlL")
	if suf := strings.ToLower(s[len(body):]); suf != "" && !intSuffixes[suf] {
		return paramlit.Value{}, invalid("bad integer suffix in %q", clip(s))
	}
	if strings.ContainsRune(body, '_') {
		return paramlit.Value{}, invalid("invalid integer %q", clip(s))
	}
	body = strings.ReplaceAll(body, "'", "")
	if i, err := strconv.ParseInt(body, 0, 64); err == nil {
		return paramlit.Int(i), nil
	}
	if u, err := strconv.ParseUint(strings.TrimPrefix(body, "+"), 0, 64); err == nil {
		return paramlit.Uint(u), nil
	}
	return paramlit.Value{}, invalid("invalid integer %q", clip(s))
}

type boolCodec struct{}

func (boolCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	switch text {
	case "true":
		return paramlit.Bool(true), nil
	case "false":
		return paramlit.Bool(false), nil
	}
	return paramlit.Value{}, invalid("expected true or false, got %q", clip(text))
}

func (boolCodec) Encode(v paramlit.Value, _ *Context) (string, error) {
	b, ok := v.AsBool()
	if !ok {
		return "", invalid("expected bool, got %s", v.Kind())
	}
	return strconv.FormatBool(b), nil
}

type floatCodec struct{}

func (floatCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	s := strings.TrimRight(text, "fFlL")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || strings.ContainsRune(s, '_') {
		// hexadecimal integers are valid float initializers too
		if iv, ierr := ParseInt(text); ierr == nil {
			f, _ = iv.AsFloat()
			return paramlit.Float(f), nil
		}
		return paramlit.Value{}, invalid("invalid float %q", clip(text))
	}
	return paramlit.Float(f), nil
}

func (floatCodec) Encode(v paramlit.Value, _ *Context) (string, error) {
	f, ok := v.AsFloat()
	if !ok {
		return "", invalid("expected float, got %s", v.Kind())
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", invalid("float %v has no literal form", f)
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

type symbolCodec struct{}

func (symbolCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, _ := prepare(tok, ctx)
	if !IsIdentifier(text) {
		return paramlit.Value{}, invalid("expected identifier, got %q", clip(text))
	}
	return paramlit.Symbol(text), nil
}

func (symbolCodec) Encode(v paramlit.Value, _ *Context) (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", invalid("expected symbol, got %s", v.Kind())
	}
	if !IsIdentifier(s) {
		return "", invalid("%q is not an identifier", clip(s))
	}
	return s, nil
}
