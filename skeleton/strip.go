package skeleton

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/internal/cppsrc"
	"github.com/utgen/paramlit/internal/scan"
)

// GeneratedComments are comment lines the generator places above the array.
var GeneratedComments = []string{"// 用例列表集", "// 用例参数列表"}

// StripOpt configures Strip.
type StripOpt struct {
	// Comments overrides GeneratedComments.
	Comments []string
}

type span struct{ from, to int }

// Strip removes a generated block from text: the case array, the marker
// comment lines right above it, the constants the array references, and one
// blank line after each of them. Strip(Patch(s, l, c)) == s.
func Strip(text string, opts ...StripOpt) (string, error) {
	var opt StripOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	comments := opt.Comments
	if comments == nil {
		comments = GeneratedComments
	}

	arr, ok, err := cppsrc.FindArray(text)
	if err != nil {
		var se *scan.Error
		if errors.As(err, &se) {
			return "", paramlit.Issues{paramlit.IssueAt(se.Offset, paramlit.CodeMalformedLiteral, se.Msg)}
		}
		return "", err
	}
	if !ok {
		return "", paramlit.Issues{{Code: paramlit.CodeMissingBlock, Message: "no case array to strip", Offset: -1, Entry: -1}}
	}

	start := cppsrc.LineStart(text, arr.Start)
	for start > 0 {
		prev := cppsrc.LineStart(text, start-1)
		if !isMarker(text[prev:start], comments) {
			break
		}
		start = prev
	}
	spans := []span{{start, withBlankLine(text, cppsrc.LineEnd(text, arr.End-1))}}

	body := arr.Body(text)
	for _, c := range cppsrc.FindConstants(text[:start]) {
		if !referenced(body, c.Name) {
			continue
		}
		spans = append(spans, span{cppsrc.LineStart(text, c.Start), withBlankLine(text, cppsrc.LineEnd(text, c.End-1))})
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].from < spans[j].from })
	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.from < last {
			s.from = last
		}
		if s.to <= s.from {
			continue
		}
		b.WriteString(text[last:s.from])
		last = s.to
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func isMarker(line string, comments []string) bool {
	l := strings.TrimSpace(line)
	for _, c := range comments {
		if strings.HasPrefix(l, c) {
			return true
		}
	}
	return false
}

// withBlankLine extends end over one following empty line.
func withBlankLine(text string, end int) int {
	switch {
	case strings.HasPrefix(text[end:], "\n"):
		return end + 1
	case strings.HasPrefix(text[end:], "\r\n"):
		return end + 2
	}
	return end
}

func referenced(body, name string) bool {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(body)
}
