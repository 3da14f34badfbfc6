// Package skeleton splices generated case arrays into C++ test skeletons and
// takes them out again.
package skeleton

import (
	"fmt"
	"strings"

	"github.com/utgen/paramlit"
)

// DefaultAnchors are the line prefixes before which generated code goes.
var DefaultAnchors = []string{"TEST_P("}

// Diag carries non-fatal warnings produced while patching.
type Diag interface {
	HasWarnings() bool
	Warnings() []string
	Issues() paramlit.Issues
}

type simpleDiag struct{ iss paramlit.Issues }

func (d *simpleDiag) HasWarnings() bool { return len(d.iss) > 0 }

func (d *simpleDiag) Warnings() []string {
	out := make([]string, len(d.iss))
	for i, it := range d.iss {
		out[i] = it.Message
	}
	return out
}

func (d *simpleDiag) Issues() paramlit.Issues { return append(paramlit.Issues(nil), d.iss...) }

func (d *simpleDiag) warnf(code string, offset int, f string, a ...any) {
	d.iss = append(d.iss, paramlit.IssueAt(offset, code, fmt.Sprintf(f, a...)))
}

// PatchOpt configures Patch.
type PatchOpt struct {
	// Anchors overrides DefaultAnchors. The first line starting with any of
	// them is the insertion point.
	Anchors []string
}

// Anchor returns the offset of the first line of text starting with one of
// anchors, or -1.
func Anchor(text string, anchors ...string) int {
	if len(anchors) == 0 {
		anchors = DefaultAnchors
	}
	for pos := 0; pos < len(text); {
		line := text[pos:]
		for _, a := range anchors {
			if strings.HasPrefix(line, a) {
				return pos
			}
		}
		nl := strings.IndexByte(line, '\n')
		if nl < 0 {
			break
		}
		pos += nl + 1
	}
	return -1
}

// Patch inserts constDecl (if any) and literal right before the anchor line,
// each followed by one blank line. Everything else in skeleton is kept byte
// for byte. Without an anchor the block is appended and a MissingAnchor
// warning is recorded.
func Patch(skeleton, literal, constDecl string, opts ...PatchOpt) (string, Diag) {
	var opt PatchOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	d := &simpleDiag{}
	var block strings.Builder
	if constDecl != "" {
		block.WriteString(constDecl)
		block.WriteString("\n\n")
	}
	block.WriteString(literal)

	pos := Anchor(skeleton, opt.Anchors...)
	if pos < 0 {
		d.warnf(paramlit.CodeMissingAnchor, len(skeleton), "no line starting with %s; generated code appended", strings.Join(anchorsOrDefault(opt.Anchors), " or "))
		var b strings.Builder
		b.WriteString(skeleton)
		if skeleton != "" && !strings.HasSuffix(skeleton, "\n") {
			b.WriteByte('\n')
		}
		if skeleton != "" {
			b.WriteByte('\n')
		}
		b.WriteString(block.String())
		b.WriteByte('\n')
		return b.String(), d
	}
	block.WriteString("\n\n")
	return skeleton[:pos] + block.String() + skeleton[pos:], d
}

func anchorsOrDefault(a []string) []string {
	if len(a) == 0 {
		return DefaultAnchors
	}
	return a
}
