package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/internal/config"
	"github.com/utgen/paramlit/schema"
	"github.com/utgen/paramlit/skeleton"
	"github.com/utgen/paramlit/transcode"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const barrierCases = `{"case_name": "barrier_1", "m": 16, "expectTilingData": "1 2 3", "expectWorkspaces": [16777216]}
{"case_name": "barrier_2", "m": 32, "expectTilingData": "1 2 3", "expectWorkspaces": [16777216]}
`

const guardedSkeleton = `#include <gtest/gtest.h>

struct DistributeBarrierTilingTestParam {
    std::string case_name;
};

TEST_P(DistributeBarrierTilingParam, general_case)
{
    if (!IsOpImplRegistryAvailable()) {
        GTEST_SKIP() << "skip";
    }
    run();
}
`

type workspace struct {
	root  string
	paths Paths
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	w := &workspace{root: root, paths: PathsFromConfig(cfg)}
	w.paths.InputDir = filepath.Join(root, cfg.InputDir)
	w.paths.TemplateDir = filepath.Join(root, cfg.TemplateDir)
	w.paths.OutputDir = filepath.Join(root, cfg.OutputDir)
	w.paths.TargetDir = filepath.Join(root, "golden")
	return w
}

func (w *workspace) write(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (w *workspace) read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func barrierSkeleton(t *testing.T) string {
	t.Helper()
	d, _ := schema.Default().Get("DistributeBarrierTilingTestParam")
	s, err := skeleton.Generate(d)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRun_IsolatesFailures(t *testing.T) {
	w := newWorkspace(t)
	skel := barrierSkeleton(t)
	w.write(t, w.paths.Template("distribute_barrier"), skel)
	w.write(t, w.paths.Input("distribute_barrier"), barrierCases)
	w.write(t, w.paths.Template("no_cases"), "TEST_P(A, b) {}\n")
	w.write(t, w.paths.Input("no_cases"), "\n")
	w.write(t, w.paths.Template("broken"), skel)
	w.write(t, w.paths.Input("broken"), `{"case_name": }`)

	core, logs := observer.New(zapcore.InfoLevel)
	r := &Runner{Paths: w.paths, Concurrency: 2, Logger: zap.New(core)}
	ops := []string{"distribute_barrier", "no_cases", "broken", "unknown_op"}
	results, err := r.Run(context.Background(), ops)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for i, res := range results {
		if res.Op != ops[i] {
			t.Fatalf("result %d is for %s", i, res.Op)
		}
	}

	ok := results[0]
	if ok.Err != nil || ok.Records != 2 || ok.Schema != "DistributeBarrierTilingTestParam" {
		t.Fatalf("distribute_barrier: %+v", ok)
	}
	out := w.read(t, ok.Output)
	if !strings.Contains(out, `const std::string COMPILE_INFO = "1 2 3";`) {
		t.Fatalf("shared constant missing:\n%s", out)
	}
	doc, err := transcode.Decode(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(doc.Records) != 2 {
		t.Fatalf("want 2 records back, got %d", len(doc.Records))
	}
	if v, _ := doc.Records[1].Get("m"); !v.Equal(paramlit.Int(32)) {
		t.Fatalf("m = %v", v)
	}

	if !results[1].Copied || results[1].Err != nil {
		t.Fatalf("no_cases: %+v", results[1])
	}
	if got := w.read(t, results[1].Output); got != "TEST_P(A, b) {}\n" {
		t.Fatalf("skeleton not copied verbatim: %q", got)
	}

	iss, isIssues := paramlit.AsIssues(results[2].Err)
	if !isIssues || !iss.HasCode(paramlit.CodeInvalidRecord) || iss[0].Path != w.paths.Input("broken") {
		t.Fatalf("broken: %v", results[2].Err)
	}
	if _, err := os.Stat(results[2].Output); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failed operator must not leave output: %v", err)
	}

	if !errors.Is(results[3].Err, skeleton.ErrNotFound) {
		t.Fatalf("unknown_op: %v", results[3].Err)
	}
	if logs.FilterMessage("generation failed").Len() != 2 {
		t.Fatalf("want 2 failures logged, got %v", logs.All())
	}
	if err := Errors(results); err == nil || !strings.Contains(err.Error(), "broken: ") {
		t.Fatalf("joined errors: %v", err)
	}
}

func TestRun_GeneratedSkeletonFallback(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, w.paths.Input("distribute_barrier"), barrierCases)

	r := &Runner{Paths: w.paths}
	res := r.Generate("distribute_barrier")
	if res.Err != nil {
		t.Fatalf("generate: %v", res.Err)
	}
	out := w.read(t, res.Output)
	if !strings.Contains(out, "INSTANTIATE_TEST_SUITE_P(") || !strings.Contains(out, "barrier_2") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestRun_OperatorOverrides(t *testing.T) {
	w := newWorkspace(t)
	w.paths.Operators = map[string]config.Operator{
		"barrier": {
			Schema:             "DistributeBarrierTilingTestParam",
			NoShare:            true,
			Template:           "custom/guarded.cpp",
			Input:              "barrier_cases.jsonl",
			Output:             "renamed.cpp",
			StripRegistryGuard: true,
		},
	}
	w.write(t, filepath.Join(w.paths.TemplateDir, "custom", "guarded.cpp"), guardedSkeleton)
	w.write(t, filepath.Join(w.paths.InputDir, "barrier_cases.jsonl"), barrierCases)

	res := (&Runner{Paths: w.paths}).Generate("barrier")
	if res.Err != nil {
		t.Fatalf("generate: %v", res.Err)
	}
	if res.Output != filepath.Join(w.paths.OutputDir, "renamed.cpp") || res.GuardsRemoved != 1 {
		t.Fatalf("result: %+v", res)
	}
	out := w.read(t, res.Output)
	if strings.Contains(out, "COMPILE_INFO") || strings.Contains(out, "IsOpImplRegistryAvailable") {
		t.Fatalf("overrides not applied:\n%s", out)
	}
	if !strings.Contains(out, "};\n\nTEST_P(DistributeBarrierTilingParam, general_case)\n{\n    run();\n}\n") {
		t.Fatalf("output:\n%s", out)
	}

	w.paths.Operators["barrier"] = config.Operator{Schema: "Nope", Template: "custom/guarded.cpp", Input: "barrier_cases.jsonl"}
	res = (&Runner{Paths: w.paths}).Generate("barrier")
	iss, ok := paramlit.AsIssues(res.Err)
	if !ok || !iss.HasCode(paramlit.CodeUnsupportedSchema) {
		t.Fatalf("want unsupported_schema, got %v", res.Err)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	w := newWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := (&Runner{Paths: w.paths, Concurrency: 3}).Run(ctx, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	for _, res := range results {
		if !errors.Is(res.Err, context.Canceled) {
			t.Fatalf("%s: %v", res.Op, res.Err)
		}
	}
}

func TestVerify(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, w.paths.Output("same"), "a\n\nb  \n")
	w.write(t, w.paths.Target("same"), "a\nb\n\n")
	w.write(t, w.paths.Output("differs"), "a\nc\n")
	w.write(t, w.paths.Target("differs"), "a\nb\n")
	w.write(t, w.paths.Output("no_target"), "a\n")

	got, err := (&Runner{Paths: w.paths, Concurrency: 2}).Verify(context.Background(), []string{"same", "differs", "no_target"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got[0].Match() {
		t.Fatalf("blank lines and trailing spaces must be ignored: %s", got[0].Diff)
	}
	if got[1].Match() || got[1].Diff != "-2: b\n+2: c\n" {
		t.Fatalf("differs: %+v", got[1])
	}
	if got[2].Err == nil || got[2].Match() {
		t.Fatalf("no_target: %+v", got[2])
	}
}

func TestCompare_LineDiff(t *testing.T) {
	want := "int a;\n\nint b;\nint c;\n"
	got := "int a;  \nint b;\nint x;\nint c;\nint d;\n"
	if diff := Compare(got, want); diff != "+3: int x;\n+5: int d;\n" {
		t.Fatalf("diff:\n%s", diff)
	}
	if diff := Compare("", want); diff != "-1: int a;\n-2: int b;\n-3: int c;\n" {
		t.Fatalf("diff against empty output:\n%s", diff)
	}
	if diff := Compare("x\r\ny\n", "x\ny"); diff != "" {
		t.Fatalf("line endings must not matter: %q", diff)
	}
}

func TestPaths(t *testing.T) {
	w := newWorkspace(t)
	w.paths.Operators = map[string]config.Operator{"configured": {}}
	w.write(t, filepath.Join(w.paths.InputDir, "alpha.jsonl"), "")
	w.write(t, filepath.Join(w.paths.InputDir, "notes.txt"), "")
	w.write(t, filepath.Join(w.paths.TemplateDir, "test_beta_tiling.cpp"), "")
	w.write(t, filepath.Join(w.paths.TemplateDir, "helper.cpp"), "")

	ops, err := w.paths.Discover()
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if diff := cmp.Diff([]string{"alpha", "beta", "configured"}, ops); diff != "" {
		t.Fatalf("operators (-want +got):\n%s", diff)
	}
	if got := w.paths.Output("beta"); got != filepath.Join(w.paths.OutputDir, "test_beta_tiling.cpp") {
		t.Fatalf("output path %s", got)
	}

	abs := filepath.Join(w.root, "elsewhere.cpp")
	w.paths.Operators["beta"] = config.Operator{Template: abs}
	if got := w.paths.Template("beta"); got != abs {
		t.Fatalf("absolute override ignored: %s", got)
	}
	if _, err := w.paths.Library().Skeleton("beta"); !errors.Is(err, skeleton.ErrNotFound) {
		t.Fatalf("missing override file: %v", err)
	}

	empty := Paths{InputDir: filepath.Join(w.root, "none"), TemplateDir: filepath.Join(w.root, "none")}
	if ops, err := empty.Discover(); err != nil || len(ops) != 0 {
		t.Fatalf("missing dirs: %v %v", ops, err)
	}
}
