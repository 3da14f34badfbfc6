// Package batch generates the test sources of many operators concurrently
// and compares them with reference sources.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/i18n"
	"github.com/utgen/paramlit/internal/config"
	"github.com/utgen/paramlit/internal/fsutil"
	"github.com/utgen/paramlit/schema"
	"github.com/utgen/paramlit/skeleton"
	"github.com/utgen/paramlit/source/jsonl"
	"github.com/utgen/paramlit/transcode"
)

// Result is the outcome of one operator.
type Result struct {
	Op      string
	Output  string
	Schema  string // descriptor ID; empty when the skeleton was copied
	Records int
	// Copied is set when the input was missing or empty and the skeleton
	// was written unchanged.
	Copied        bool
	GuardsRemoved int
	Warnings      paramlit.Issues
	Err           error
}

// Runner generates operators. The zero value is usable once Paths is set.
type Runner struct {
	Paths Paths
	// Library supplies skeletons. Nil means the template files of Paths,
	// then skeletons generated from Registry.
	Library     skeleton.Library
	Registry    *schema.Registry
	Concurrency int
	// DuplicateKeys is applied to repeated keys in input records.
	DuplicateKeys paramlit.Severity
	Logger        *zap.Logger
}

func (r *Runner) registry() *schema.Registry {
	if r.Registry != nil {
		return r.Registry
	}
	return schema.Default()
}

func (r *Runner) library() skeleton.Library {
	if r.Library != nil {
		return r.Library
	}
	return skeleton.Chain{r.Paths.Library(), skeleton.Generated{Registry: r.registry()}}
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

// each calls fn for every index with at most Concurrency calls in flight.
// Indices not started before ctx is done get ctx's error via skip.
func (r *Runner) each(ctx context.Context, n int, fn func(i int), skip func(i int, err error)) error {
	var g errgroup.Group
	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				skip(i, err)
				return nil
			}
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Run generates every operator in ops. A failing operator never stops the
// others; its error is in its Result. The returned error is only ever the
// context's.
func (r *Runner) Run(ctx context.Context, ops []string) ([]Result, error) {
	results := make([]Result, len(ops))
	err := r.each(ctx, len(ops),
		func(i int) { results[i] = r.Generate(ops[i]) },
		func(i int, err error) { results[i] = Result{Op: ops[i], Output: r.Paths.Output(ops[i]), Err: err} },
	)
	return results, err
}

// Generate produces the output of a single operator.
func (r *Runner) Generate(op string) Result {
	res := Result{Op: op, Output: r.Paths.Output(op)}
	log := r.logger().With(zap.String("op", op))

	text, err := r.render(op, &res)
	if err != nil {
		res.Err = err
		log.Error("generation failed", zap.Error(err))
		return res
	}
	if err := fsutil.WriteFile(res.Output, []byte(text), 0o644); err != nil {
		res.Err = fmt.Errorf("failed to write %s: %w", res.Output, err)
		log.Error("write failed", zap.Error(err))
		return res
	}
	for _, it := range res.Warnings {
		log.Warn("warning", zap.String("issue", i18n.Describe(it)))
	}
	if res.Copied {
		log.Info("no cases, skeleton copied", zap.String("output", res.Output))
		return res
	}
	log.Info("generated",
		zap.String("schema", res.Schema),
		zap.Int("records", res.Records),
		zap.Int("guards_removed", res.GuardsRemoved),
		zap.String("output", res.Output))
	return res
}

func (r *Runner) render(op string, res *Result) (string, error) {
	skel, err := r.library().Skeleton(op)
	if err != nil {
		return "", fmt.Errorf("failed to load skeleton: %w", err)
	}
	in := r.Paths.Input(op)
	records, warnings, err := readRecords(in, r.DuplicateKeys)
	if err != nil {
		return "", err
	}
	res.Warnings = warnings
	if len(records) == 0 {
		res.Copied = true
		return skel, nil
	}
	res.Records = len(records)

	ovr := r.Paths.Operators[op]
	d, err := r.descriptor(ovr, skel)
	if err != nil {
		return "", paramlit.WithPath(err, r.Paths.Template(op), paramlit.CodeUnsupportedSchema)
	}
	res.Schema = d.ID()

	out, err := transcode.Encode(records, d, transcode.EncodeOpt{
		SharedField:  ovr.SharedField,
		NoShare:      ovr.NoShare,
		ConstantName: ovr.ConstantName,
	})
	if err != nil {
		return "", paramlit.WithPath(err, in, paramlit.CodeInvalidRecord)
	}
	text, diag := skeleton.Patch(skel, out.Array, out.Constant)
	if diag.HasWarnings() {
		if iss, ok := paramlit.AsIssues(paramlit.WithPath(diag.Issues(), r.Paths.Template(op), "")); ok {
			res.Warnings = append(res.Warnings, iss...)
		}
	}
	if ovr.StripRegistryGuard {
		text, res.GuardsRemoved = skeleton.RemoveRegistryGuard(text)
	}
	return text, nil
}

func (r *Runner) descriptor(ovr config.Operator, skel string) (*schema.Descriptor, error) {
	reg := r.registry()
	if ovr.Schema == "" {
		return reg.Detect(skel)
	}
	d, ok := reg.Get(ovr.Schema)
	if !ok {
		return nil, paramlit.Errorf(paramlit.CodeUnsupportedSchema, "unknown schema %s", ovr.Schema)
	}
	return d, nil
}

// readRecords returns no records for a missing file.
func readRecords(path string, onDup paramlit.Severity) ([]paramlit.Record, paramlit.Issues, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rd := jsonl.NewReader(f, jsonl.ReaderOpt{OnDuplicateKey: onDup})
	var records []paramlit.Record
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, paramlit.WithPath(err, path, paramlit.CodeInvalidRecord)
		}
		records = append(records, rec)
	}
	var warnings paramlit.Issues
	if w := rd.Warnings(); len(w) > 0 {
		warnings, _ = paramlit.AsIssues(paramlit.WithPath(w, path, ""))
	}
	return records, warnings, nil
}

// Errors joins the errors of failed results, nil when all succeeded.
func Errors(results []Result) error {
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Op, res.Err))
		}
	}
	return errors.Join(errs...)
}
