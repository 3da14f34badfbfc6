package skeleton

import (
	"regexp"
	"strings"

	"github.com/utgen/paramlit/internal/cppsrc"
	"github.com/utgen/paramlit/internal/scan"
)

var guardRe = regexp.MustCompile(`(?m)^[ \t]*if[ \t]*\([ \t]*!IsOpImplRegistryAvailable\(\)[ \t]*\)[ \t]*\{`)

// RemoveRegistryGuard deletes every
//
//	if (!IsOpImplRegistryAvailable()) {
//	    GTEST_SKIP() << "...";
//	}
//
// block, whole lines included, and reports how many were removed.
func RemoveRegistryGuard(text string) (string, int) {
	var (
		b    strings.Builder
		last int
		n    int
	)
	for _, m := range guardRe.FindAllStringIndex(text, -1) {
		if m[0] < last {
			continue
		}
		end, err := scan.Matching(text, m[1]-1)
		if err != nil {
			continue
		}
		b.WriteString(text[last:m[0]])
		last = cppsrc.LineEnd(text, end)
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}
