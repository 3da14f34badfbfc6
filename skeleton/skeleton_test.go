package skeleton

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
	"github.com/utgen/paramlit/schema"
	"github.com/utgen/paramlit/transcode"
)

const literal = "// 用例列表集\nP cases_params[] = {\n    {1},\n};"

const tinySkeleton = `#include <gtest/gtest.h>

namespace {
struct P {
    int64_t a;
};

TEST_P(PParam, general_case)
{
}
} // anonymous namespace
`

func TestPatch_InsertsBeforeAnchor(t *testing.T) {
	out, diag := Patch(tinySkeleton, literal, "const int64_t A = 1;")
	if diag.HasWarnings() {
		t.Fatalf("unexpected warnings: %v", diag.Warnings())
	}
	want := "const int64_t A = 1;\n\n" + literal + "\n\nTEST_P(PParam, general_case)"
	if !strings.Contains(out, want) {
		t.Fatalf("block must precede the anchor with one blank line:\n%s", out)
	}
	if !strings.HasPrefix(out, tinySkeleton[:strings.Index(tinySkeleton, "TEST_P(")]) {
		t.Fatalf("text before the anchor changed:\n%s", out)
	}
}

func TestPatch_TrailingWhitespaceBeforeAnchor(t *testing.T) {
	skel := "namespace {\n\n\n   \nTEST_P(X, y)\n{\n}\n"
	out, _ := Patch(skel, literal, "")
	if !strings.Contains(out, literal+"\n\nTEST_P(X, y)") {
		t.Fatalf("got:\n%s", out)
	}
	// anchor only
	out, _ = Patch("TEST_P(X, y) {}\n", literal, "")
	if out != literal+"\n\nTEST_P(X, y) {}\n" {
		t.Fatalf("got:\n%q", out)
	}
}

func TestPatch_MissingAnchor(t *testing.T) {
	out, diag := Patch("int main() {}", literal, "")
	if !diag.HasWarnings() || !diag.Issues().HasCode(paramlit.CodeMissingAnchor) {
		t.Fatalf("want missing anchor warning, got %v", diag.Issues())
	}
	if out != "int main() {}\n\n"+literal+"\n" {
		t.Fatalf("got:\n%q", out)
	}
	out, _ = Patch("", literal, "")
	if out != literal+"\n" {
		t.Fatalf("empty skeleton: %q", out)
	}
}

func TestPatch_CustomAnchor(t *testing.T) {
	skel := "TEST_F(A, b) {}\nINSTANTIATE_TEST_SUITE_P(x, A, ::testing::ValuesIn(cases_params));\n"
	out, diag := Patch(skel, literal, "", PatchOpt{Anchors: []string{"INSTANTIATE_TEST_SUITE_P("}})
	if diag.HasWarnings() {
		t.Fatalf("unexpected warnings: %v", diag.Warnings())
	}
	if !strings.HasPrefix(out, "TEST_F(A, b) {}\n"+literal+"\n\nINSTANTIATE") {
		t.Fatalf("got:\n%s", out)
	}
}

func TestStrip_UndoesPatch(t *testing.T) {
	cases := []struct{ lit, decl string }{
		{literal, ""},
		{"// 用例列表集\nP cases_params[] = {\n    {COMPILE_INFO},\n};", "const std::string COMPILE_INFO = R\"({\"a\": 1})\";"},
	}
	for _, c := range cases {
		patched, _ := Patch(tinySkeleton, c.lit, c.decl)
		got, err := Strip(patched)
		if err != nil {
			t.Fatalf("strip: %v", err)
		}
		if diff := cmp.Diff(tinySkeleton, got); diff != "" {
			t.Fatalf("strip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestStrip_KeepsUnreferencedConstants(t *testing.T) {
	src := "const int64_t KEEP = 3;\nconst int64_t USED = 4;\n\n// 用例参数列表\nP cases_params[] = {\n    {USED},\n};\n\nTEST_P(A, b) {}\n"
	got, err := Strip(src)
	if err != nil {
		t.Fatalf("strip: %v", err)
	}
	want := "const int64_t KEEP = 3;\nTEST_P(A, b) {}\n"
	if got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestStrip_Errors(t *testing.T) {
	_, err := Strip("TEST_P(A, b) {}\n")
	if iss, ok := paramlit.AsIssues(err); !ok || !iss.HasCode(paramlit.CodeMissingBlock) {
		t.Fatalf("want missing_block, got %v", err)
	}
	_, err = Strip("P cases_params[] = {\n    {\"open},\n};\n")
	if iss, ok := paramlit.AsIssues(err); !ok || !iss.HasCode(paramlit.CodeMalformedLiteral) {
		t.Fatalf("want malformed_literal, got %v", err)
	}
}

func TestRemoveRegistryGuard(t *testing.T) {
	src := "TEST_P(X, general_case)\n{\n    if (!IsOpImplRegistryAvailable()) {\n        GTEST_SKIP() << \"no registry }\";\n    }\n    run();\n}\n"
	got, n := RemoveRegistryGuard(src)
	if n != 1 {
		t.Fatalf("want 1 guard removed, got %d", n)
	}
	if want := "TEST_P(X, general_case)\n{\n    run();\n}\n"; got != want {
		t.Fatalf("got:\n%q", got)
	}
	if same, n := RemoveRegistryGuard(got); n != 0 || same != got {
		t.Fatalf("second pass must be a no-op")
	}
}

func TestGenerate_StructMatchesDescriptor(t *testing.T) {
	for _, d := range schema.Default().All() {
		t.Run(d.ID(), func(t *testing.T) {
			src, err := Generate(d)
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if Anchor(src) < 0 {
				t.Fatalf("generated skeleton has no anchor")
			}
			back, err := schema.FromStruct(src, d.Name)
			if err != nil {
				t.Fatalf("from struct: %v", err)
			}
			want := make([]string, len(d.Fields))
			got := make([]string, len(back.Fields))
			for i, f := range d.Fields {
				want[i] = f.Name + ":" + f.Kind.String()
			}
			for i, f := range back.Fields {
				got[i] = f.Name + ":" + f.Kind.String()
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGenerate_PatchDecode(t *testing.T) {
	d, _ := schema.Default().Get("DistributeBarrierTilingTestParam")
	skel, err := Generate(d)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(skel, "class DistributeBarrierTilingParam : public ::testing::TestWithParam<DistributeBarrierTilingTestParam>") {
		t.Fatalf("fixture:\n%s", skel)
	}
	if !strings.Contains(skel, "std::string name = info.param.case_name;") {
		t.Fatalf("name generator:\n%s", skel)
	}
	r := paramlit.NewRecord(
		paramlit.F("case_name", paramlit.String("barrier_1")),
		paramlit.F("expectTilingData", paramlit.String("1 2 3")),
		paramlit.F("expectWorkspaces", paramlit.Ints(16777216)),
	)
	out, err := transcode.Encode([]paramlit.Record{r, r.Set("case_name", paramlit.String("barrier_2"))}, d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	patched, diag := Patch(skel, out.Array, out.Constant)
	if diag.HasWarnings() {
		t.Fatalf("warnings: %v", diag.Warnings())
	}
	doc, err := transcode.Decode(patched)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Records) != 2 || doc.Binding == nil || doc.Binding.Name != schema.CompileInfo {
		t.Fatalf("doc: %+v", doc)
	}
	stripped, err := Strip(patched)
	if err != nil || stripped != skel {
		t.Fatalf("strip: %v\n%s", err, stripped)
	}
}

func TestGenerate_NoNameField(t *testing.T) {
	d := &schema.Descriptor{Name: "Bare", Fields: []schema.Field{{Name: "n", Kind: codec.Int}}}
	src, err := Render(File{Schema: d, Header: "// header\n", Includes: []string{"<cstdint>"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(src, "// header\n#include <cstdint>\n") {
		t.Fatalf("header:\n%s", src)
	}
	if !strings.Contains(src, `"case_" + std::to_string(info.index)`) {
		t.Fatalf("index based names expected:\n%s", src)
	}
	if !strings.Contains(src, "class BareParam ") {
		t.Fatalf("fixture name:\n%s", src)
	}
}

func TestLibrary(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "test_custom_op_tiling.cpp"), []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	lib := Chain{Dir{Path: dir}, Generated{}}

	s, err := lib.Skeleton("custom_op")
	if err != nil || s != "custom" {
		t.Fatalf("dir lookup: %q %v", s, err)
	}
	s, err = lib.Skeleton("distribute_barrier")
	if err != nil || !strings.Contains(s, "struct DistributeBarrierTilingTestParam {") {
		t.Fatalf("generated lookup: %v", err)
	}
	s, err = lib.Skeleton("moe_distribute_combine_v2")
	if err != nil || !strings.Contains(s, "struct MoeDistributeCombineV2TilingTestParam {") {
		t.Fatalf("generated lookup: %v", err)
	}
	_, err = lib.Skeleton("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	g := Generated{Ops: map[string]string{"agmm_v2": "AllGatherMatmulTilingTestParam/v2"}}
	s, err = g.Skeleton("agmm_v2")
	if err != nil || !strings.Contains(s, "bool expectSuccess;") {
		t.Fatalf("mapped lookup: %v", err)
	}
}
