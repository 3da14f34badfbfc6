package batch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
)

// Comparison is the outcome of verifying one operator.
type Comparison struct {
	Op     string
	Output string
	Target string
	Diff   string // (-target +output); empty when the files agree
	Err    error
}

// Match reports whether the output agrees with the target.
func (c Comparison) Match() bool { return c.Err == nil && c.Diff == "" }

// Verify compares Output(op) with Target(op) for every op, ignoring blank
// lines and trailing whitespace.
func (r *Runner) Verify(ctx context.Context, ops []string) ([]Comparison, error) {
	out := make([]Comparison, len(ops))
	err := r.each(ctx, len(ops),
		func(i int) { out[i] = r.compare(ops[i]) },
		func(i int, err error) { out[i] = Comparison{Op: ops[i], Err: err} },
	)
	return out, err
}

func (r *Runner) compare(op string) Comparison {
	c := Comparison{Op: op, Output: r.Paths.Output(op), Target: r.Paths.Target(op)}
	got, err := os.ReadFile(c.Output)
	if err != nil {
		c.Err = fmt.Errorf("failed to read output: %w", err)
		return c
	}
	want, err := os.ReadFile(c.Target)
	if err != nil {
		c.Err = fmt.Errorf("failed to read target: %w", err)
		return c
	}
	c.Diff = Compare(string(got), string(want))
	log := r.logger().With(zap.String("op", op))
	if c.Diff != "" {
		log.Warn("output differs from target", zap.String("target", c.Target))
	} else {
		log.Debug("output matches target")
	}
	return c
}

// Compare diffs two sources line by line, ignoring blank lines and trailing
// whitespace. The result is empty when they agree. Removed target lines are
// prefixed with '-' and added output lines with '+', each followed by its
// line number among the compared lines.
func Compare(got, want string) string {
	g, w := significant(got), significant(want)
	if cmp.Equal(w, g) {
		return ""
	}
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lines := dmp.DiffLinesToChars(joinLines(w), joinLines(g))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	wantLine, gotLine := 1, 1
	for _, d := range diffs {
		text := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			wantLine += len(text)
			gotLine += len(text)
		case diffmatchpatch.DiffDelete:
			for _, l := range text {
				fmt.Fprintf(&out, "-%d: %s\n", wantLine, l)
				wantLine++
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range text {
				fmt.Fprintf(&out, "+%d: %s\n", gotLine, l)
				gotLine++
			}
		}
	}
	return out.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func significant(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
