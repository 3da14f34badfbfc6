// Package cppsrc locates the generated pieces of a C++ test source: the case
// array declaration and top-level constant declarations.
package cppsrc

import (
	"regexp"
	"strings"

	"github.com/utgen/paramlit/internal/scan"
)

// Array is a `Type name[] = { ... };` declaration.
type Array struct {
	TypeName string
	Name     string
	Start    int // first byte of the declaration line
	End      int // just past the terminating ';'
	Open     int // index of the opening brace
	Close    int // index of the closing brace
}

// Body returns the text between the braces.
func (a Array) Body(src string) string { return src[a.Open+1 : a.Close] }

var arrayRe = regexp.MustCompile(`(?m)^[ \t]*(?:static[ \t]+)?(?:const[ \t]+)?([A-Za-z_][\w:]*)[ \t]+([A-Za-z_]\w*)[ \t]*\[[ \t]*\][ \t]*=[ \t\r\n]*\{`)

// FindArray returns the first array declaration in src. ok is false when
// there is none.
func FindArray(src string) (a Array, ok bool, err error) {
	for _, m := range arrayRe.FindAllStringSubmatchIndex(src, -1) {
		if insideComment(src, m[0]) {
			continue
		}
		a = Array{
			TypeName: src[m[2]:m[3]],
			Name:     src[m[4]:m[5]],
			Start:    m[0],
			Open:     m[1] - 1,
		}
		if a.Close, err = scan.Matching(src, a.Open); err != nil {
			return Array{}, true, err
		}
		end, err := scan.StatementEnd(src, a.Close+1)
		if err != nil {
			return Array{}, true, err
		}
		if strings.TrimSpace(src[a.Close+1:end]) != "" {
			return Array{}, true, &scan.Error{Offset: a.Close + 1, Msg: "expected ';' after array initializer"}
		}
		a.End = end + 1
		return a, true, nil
	}
	return Array{}, false, nil
}

// Constant is a top-level `const Type NAME = init;` declaration.
type Constant struct {
	Name  string
	CType string
	Init  string
	Start int // first byte of the declaration line
	End   int // just past the terminating ';'
}

var constRe = regexp.MustCompile(`(?m)^(?:static[ \t]+)?(?:const|constexpr)[ \t]+`)

// FindConstants returns the constants declared at the start of a line, in
// source order. References, pointers, arrays and function declarations are
// ignored.
func FindConstants(src string) []Constant {
	var out []Constant
	for _, m := range constRe.FindAllStringIndex(src, -1) {
		if insideComment(src, m[0]) {
			continue
		}
		end, err := scan.StatementEnd(src, m[1])
		if err != nil {
			// not a declaration we understand; the literal split reports
			// real syntax errors
			continue
		}
		stmt := src[m[1]:end]
		eq := strings.IndexByte(stmt, '=')
		if eq < 0 {
			continue
		}
		head := strings.TrimSpace(stmt[:eq])
		if strings.ContainsAny(head, "(&*[") {
			continue
		}
		name := trailingIdent(head)
		ctype := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(head[:len(head)-len(name)]), "const "))
		if name == "" || ctype == "" {
			continue
		}
		out = append(out, Constant{
			Name:  name,
			CType: ctype,
			Init:  strings.TrimSpace(stmt[eq+1:]),
			Start: m[0],
			End:   end + 1,
		})
	}
	return out
}

// ConstantMap maps constant names to their initializer text.
func ConstantMap(cs []Constant) map[string]string {
	m := make(map[string]string, len(cs))
	for _, c := range cs {
		m[c.Name] = c.Init
	}
	return m
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
	if i == len(s) || s[i] >= '0' && s[i] <= '9' {
		return ""
	}
	return s[i:]
}

// insideComment reports whether pos lies in a // or /* */ comment. Only the
// current line and unterminated block comments before pos are considered.
func insideComment(src string, pos int) bool {
	lineStart := strings.LastIndexByte(src[:pos], '\n') + 1
	if strings.Contains(src[lineStart:pos], "//") {
		return true
	}
	open := strings.LastIndex(src[:pos], "/*")
	return open >= 0 && !strings.Contains(src[open:pos], "*/")
}

// LineStart returns the index of the first byte of the line holding pos.
func LineStart(src string, pos int) int { return strings.LastIndexByte(src[:pos], '\n') + 1 }

// LineEnd returns the index just past the newline ending the line holding
// pos, or len(src).
func LineEnd(src string, pos int) int {
	if i := strings.IndexByte(src[pos:], '\n'); i >= 0 {
		return pos + i + 1
	}
	return len(src)
}
