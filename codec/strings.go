package codec

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/utgen/paramlit"
)

type stringCodec struct{}

func (stringCodec) Decode(tok string, ctx *Context) (paramlit.Value, error) {
	text, placeholder := prepare(tok, ctx)
	if IsIdentifier(text) {
		if placeholder != "" {
			return paramlit.Value{}, invalid("constant %s does not hold a string", placeholder)
		}
		// unknown constant: keep its name
		return paramlit.String(text), nil
	}
	s, err := Unquote(text)
	if err != nil {
		return paramlit.Value{}, err
	}
	return paramlit.String(s), nil
}

func (stringCodec) Encode(v paramlit.Value, _ *Context) (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", invalid("expected string, got %s", v.Kind())
	}
	return Quote(s), nil
}

// Quote renders s as an ordinary C++ string literal.
func Quote(s string) string {
	b := &strings.Builder{}
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c == 0x7f {
				// three octal digits never absorb a following character
				b.WriteByte('\\')
				b.WriteString(strconv.FormatInt(int64(c)|0o1000, 8)[1:])
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// RawQuote renders s as a raw string literal, picking a delimiter that does
// not occur in s.
func RawQuote(s string) string {
	delim := ""
	for i := 0; strings.Contains(s, ")"+delim+`"`); i++ {
		delim = "d" + strconv.Itoa(i)
	}
	return `R"` + delim + "(" + s + ")" + delim + `"`
}

// Unquote evaluates one or more adjacent C++ string literals (ordinary,
// prefixed or raw) and returns their concatenation.
func Unquote(text string) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", invalid("expected string literal, got empty token")
	}
	var b strings.Builder
	for t != "" {
		for _, p := range []string{"u8", "u", "U", "L"} {
			if strings.HasPrefix(t, p+`"`) || strings.HasPrefix(t, p+`R"`) {
				t = t[len(p):]
				break
			}
		}
		var (
			s    string
			rest string
			err  error
		)
		switch {
		case strings.HasPrefix(t, `R"`):
			s, rest, err = unquoteRaw(t)
		case strings.HasPrefix(t, `"`):
			s, rest, err = unquoteOrdinary(t)
		default:
			return "", invalid("expected string literal, got %q", clip(text))
		}
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		t = paramlit.StripComments(rest)
	}
	return b.String(), nil
}

func unquoteRaw(t string) (s, rest string, err error) {
	open := strings.IndexByte(t, '(')
	if open < 0 {
		return "", "", invalid("malformed raw string %q", clip(t))
	}
	delim := t[2:open]
	end := strings.Index(t[open+1:], ")"+delim+`"`)
	if end < 0 {
		return "", "", invalid("unterminated raw string %q", clip(t))
	}
	body := t[open+1 : open+1+end]
	return body, t[open+1+end+len(delim)+2:], nil
}

func unquoteOrdinary(t string) (s, rest string, err error) {
	var b strings.Builder
	for i := 1; i < len(t); i++ {
		c := t[i]
		switch c {
		case '"':
			return b.String(), t[i+1:], nil
		case '\\':
			n, err := unescape(&b, t, i+1)
			if err != nil {
				return "", "", err
			}
			i = n - 1
		default:
			b.WriteByte(c)
		}
	}
	return "", "", invalid("unterminated string %q", clip(t))
}

// unescape writes the escape sequence starting at t[i] (just after the
// backslash) and returns the index following it.
func unescape(b *strings.Builder, t string, i int) (int, error) {
	if i >= len(t) {
		return 0, invalid("dangling backslash")
	}
	c := t[i]
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'v':
		b.WriteByte('\v')
	case 'f':
		b.WriteByte('\f')
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case '\\', '"', '\'', '?':
		b.WriteByte(c)
	case 'x':
		j := i + 1
		for j < len(t) && isHex(t[j]) {
			j++
		}
		if j == i+1 {
			return 0, invalid(`\x without digits`)
		}
		n, _ := strconv.ParseUint(t[i+1:j], 16, 64)
		b.WriteByte(byte(n))
		return j, nil
	case 'u', 'U':
		width := 4
		if c == 'U' {
			width = 8
		}
		if i+1+width > len(t) {
			return 0, invalid(`truncated \%c escape`, c)
		}
		n, err := strconv.ParseUint(t[i+1:i+1+width], 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return 0, invalid(`invalid \%c escape`, c)
		}
		b.WriteRune(rune(n))
		return i + 1 + width, nil
	default:
		if c >= '0' && c <= '7' {
			j := i
			for j < len(t) && j < i+3 && t[j] >= '0' && t[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(t[i:j], 8, 16)
			b.WriteByte(byte(n))
			return j, nil
		}
		return 0, invalid(`unknown escape \%c`, c)
	}
	return i + 1, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
