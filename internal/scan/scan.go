// Package scan splits C++ aggregate initializer text into entries and fields.
//
// It only tracks the lexical shape needed for splitting: nesting of braces,
// parentheses and template angle brackets, string and character literals
// (including raw strings) and comments. Nothing is evaluated.
package scan

import (
	"fmt"
	"strings"
)

// Token is a trimmed slice of the scanned text with its byte offset.
type Token struct {
	Text   string
	Offset int
}

// Error reports a lexical failure at a byte offset of the scanned text.
type Error struct {
	Offset int
	Msg    string
}

func (e *Error) Error() string { return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg) }

type closer struct {
	ch  byte
	off int
}

// walker visits every byte of src outside of strings and comments together
// with the current nesting depth.
type walker struct {
	src   string
	stack []closer
}

// walk calls fn for each structural byte. depth is the nesting depth before
// the byte is applied. fn returning false stops the walk.
func (w *walker) walk(fn func(i int, c byte, depth int) bool) error {
	src := w.src
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				return nil
			}
			i += nl
			continue
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return &Error{Offset: i, Msg: "unterminated block comment"}
			}
			i += end + 3
			continue
		case c == 'R' && i+1 < len(src) && src[i+1] == '"' && !identByteBefore(src, i):
			end, err := skipRawString(src, i)
			if err != nil {
				return err
			}
			i = end
			continue
		case c == '\'' && digitSeparator(src, i):
			continue
		case c == '"' || c == '\'':
			end, err := skipQuoted(src, i)
			if err != nil {
				return err
			}
			i = end
			continue
		}
		depth := len(w.stack)
		switch c {
		case '{':
			w.stack = append(w.stack, closer{'}', i})
		case '(':
			w.stack = append(w.stack, closer{')', i})
		case '[':
			w.stack = append(w.stack, closer{']', i})
		case '<':
			if identByteBefore(src, i) {
				w.stack = append(w.stack, closer{'>', i})
			}
		case '>':
			if n := len(w.stack); n > 0 && w.stack[n-1].ch == '>' {
				w.stack = w.stack[:n-1]
			}
		case '}', ')', ']':
			n := len(w.stack)
			if n == 0 {
				return &Error{Offset: i, Msg: fmt.Sprintf("unbalanced %q", c)}
			}
			// a pending template bracket never spans a closing brace
			for n > 0 && w.stack[n-1].ch == '>' {
				n--
			}
			if n == 0 || w.stack[n-1].ch != c {
				return &Error{Offset: i, Msg: fmt.Sprintf("unbalanced %q", c)}
			}
			w.stack = w.stack[:n-1]
		}
		if !fn(i, c, depth) {
			return nil
		}
	}
	for n := len(w.stack); n > 0; n-- {
		if top := w.stack[n-1]; top.ch != '>' {
			return &Error{Offset: top.off, Msg: "unclosed bracket"}
		}
	}
	return nil
}

func identByteBefore(src string, i int) bool {
	if i == 0 {
		return false
	}
	return isIdentByte(src[i-1])
}

func isIdentByte(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// digitSeparator reports whether the quote at src[i] separates digits of a
// number literal such as 1'000 or 0xFF'FF.
func digitSeparator(src string, i int) bool {
	if i == 0 || i+1 >= len(src) || !isHexDigit(src[i-1]) || !isHexDigit(src[i+1]) {
		return false
	}
	start := i
	for start > 0 {
		c := src[start-1]
		if c == '\'' || c == '.' || c == '_' || isHexDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			start--
			continue
		}
		break
	}
	return src[start] >= '0' && src[start] <= '9'
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// skipQuoted returns the index of the closing quote of the literal at i.
func skipQuoted(src string, i int) (int, error) {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j, nil
		case '\n':
			if q == '\'' {
				return 0, &Error{Offset: i, Msg: "unterminated character literal"}
			}
		}
	}
	return 0, &Error{Offset: i, Msg: "unterminated string"}
}

// skipRawString returns the index of the closing quote of R"d(...)d" at i.
func skipRawString(src string, i int) (int, error) {
	open := strings.IndexByte(src[i+2:], '(')
	if open < 0 || open > 16 {
		return 0, &Error{Offset: i, Msg: "malformed raw string delimiter"}
	}
	delim := src[i+2 : i+2+open]
	end := ")" + delim + "\""
	k := strings.Index(src[i+3+open:], end)
	if k < 0 {
		return 0, &Error{Offset: i, Msg: "unterminated raw string"}
	}
	return i + 3 + open + k + len(end) - 1, nil
}

// Entries splits an array body into brace-delimited entries. Commas and
// comments between entries are skipped; anything else is an error.
func Entries(body string) ([]Token, error) {
	var out []Token
	start := -1
	var bad *Error
	w := &walker{src: body}
	err := w.walk(func(i int, c byte, depth int) bool {
		if depth > 0 {
			if depth == 1 && c == '}' && len(w.stack) == 0 {
				out = append(out, Token{Text: body[start : i+1], Offset: start})
				start = -1
			}
			return true
		}
		switch {
		case c == '{':
			start = i
		case c == ',' || isSpace(c):
		default:
			bad = &Error{Offset: i, Msg: fmt.Sprintf("unexpected %q between entries", c)}
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if bad != nil {
		return nil, bad
	}
	if start >= 0 {
		return nil, &Error{Offset: start, Msg: "unterminated entry"}
	}
	return out, nil
}

// Fields splits one aggregate into its top-level comma separated tokens. The
// enclosing braces are optional. A trailing comma produces no empty token.
func Fields(entry string) ([]Token, error) {
	inner, base := Unwrap(entry)
	return Split(inner, ',', base)
}

// Split cuts text at every top-level sep byte. Offsets are shifted by base.
func Split(text string, sep byte, base int) ([]Token, error) {
	var out []Token
	start := 0
	w := &walker{src: text}
	err := w.walk(func(i int, c byte, depth int) bool {
		if c == sep && depth == 0 {
			out = appendTrimmed(out, text, start, i, base)
			start = i + 1
		}
		return true
	})
	if err != nil {
		if se, ok := err.(*Error); ok {
			se.Offset += base
		}
		return nil, err
	}
	out = appendTrimmed(out, text, start, len(text), base)
	return out, nil
}

// Matching returns the index of the bracket closing the one at src[open].
func Matching(src string, open int) (int, error) {
	if open < 0 || open >= len(src) || !strings.ContainsRune("{([", rune(src[open])) {
		return 0, &Error{Offset: open, Msg: "no opening bracket"}
	}
	w := &walker{src: src[open:]}
	closedAt := -1
	err := w.walk(func(i int, c byte, depth int) bool {
		if depth == 1 && len(w.stack) == 0 {
			closedAt = i
			return false
		}
		return true
	})
	if err != nil {
		if se, ok := err.(*Error); ok {
			se.Offset += open
		}
		return 0, err
	}
	if closedAt < 0 {
		return 0, &Error{Offset: open, Msg: "unclosed bracket"}
	}
	return open + closedAt, nil
}

// StatementEnd returns the index of the first ';' at nesting depth zero at or
// after from.
func StatementEnd(src string, from int) (int, error) {
	w := &walker{src: src[from:]}
	end := -1
	err := w.walk(func(i int, c byte, depth int) bool {
		if c == ';' && depth == 0 {
			end = i
			return false
		}
		return true
	})
	if err != nil {
		if se, ok := err.(*Error); ok {
			se.Offset += from
		}
		return 0, err
	}
	if end < 0 {
		return 0, &Error{Offset: from, Msg: "missing ';'"}
	}
	return from + end, nil
}

// Unwrap strips one pair of enclosing braces (and surrounding whitespace)
// when they enclose the whole text. base is the offset of the inner text
// relative to s.
func Unwrap(s string) (inner string, base int) {
	lead := len(s) - len(strings.TrimLeft(s, " \t\r\n"))
	t := strings.TrimSpace(s)
	if len(t) < 2 || t[0] != '{' || t[len(t)-1] != '}' {
		return s, 0
	}
	// the opening brace must close at the very end
	w := &walker{src: t}
	closedAt := -1
	_ = w.walk(func(i int, c byte, depth int) bool {
		if c == '}' && len(w.stack) == 0 {
			closedAt = i
			return false
		}
		return true
	})
	if closedAt != len(t)-1 {
		return s, 0
	}
	return t[1 : len(t)-1], lead + 1
}

func appendTrimmed(out []Token, s string, from, to, base int) []Token {
	seg := s[from:to]
	text := strings.TrimSpace(seg)
	if text == "" || isCommentOnly(text) {
		return out
	}
	off := from + strings.Index(seg, text)
	return append(out, Token{Text: text, Offset: base + off})
}

// isCommentOnly reports whether text holds nothing but comments.
func isCommentOnly(text string) bool { return StripComments(text) == "" }

// StripComments removes leading and trailing comments from a token.
func StripComments(text string) string {
	for {
		t := strings.TrimSpace(text)
		switch {
		case strings.HasPrefix(t, "//"):
			nl := strings.IndexByte(t, '\n')
			if nl < 0 {
				return ""
			}
			text = t[nl+1:]
		case strings.HasPrefix(t, "/*"):
			end := strings.Index(t, "*/")
			if end < 0 {
				return t
			}
			text = t[end+2:]
		default:
			return stripTrailingComment(t)
		}
	}
}

func stripTrailingComment(t string) string {
	cut := -1
	for i := 0; i+1 < len(t); i++ {
		switch {
		case t[i] == '\'' && digitSeparator(t, i):
		case t[i] == '"' || t[i] == '\'':
			end, err := skipQuoted(t, i)
			if err != nil {
				return t
			}
			i = end
		case t[i] == 'R' && t[i+1] == '"' && !identByteBefore(t, i):
			end, err := skipRawString(t, i)
			if err != nil {
				return t
			}
			i = end
		case t[i] == '/' && (t[i+1] == '/' || t[i+1] == '*'):
			cut = i
		}
		if cut >= 0 {
			break
		}
	}
	if cut < 0 {
		return t
	}
	return strings.TrimSpace(t[:cut])
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' }
