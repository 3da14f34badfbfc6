package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/codec"
	"github.com/utgen/paramlit/schema"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "")
	t.Setenv("PARAMLIT_CONCURRENCY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesAndRebase(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "")
	t.Setenv("PARAMLIT_CONCURRENCY", "")

	path := writeConfig(t, `
input_dir: cases
target_dir: /abs/golden
concurrency: 2
language: zh
operators:
  all_gather_matmul:
    shared_field: expectTilingData
    strip_registry_guard: true
  distribute_barrier:
    no_share: true
    template: custom/barrier.cpp
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "cases"), cfg.InputDir)
	assert.Equal(t, filepath.Join(dir, "template"), cfg.TemplateDir)
	assert.Equal(t, "/abs/golden", cfg.TargetDir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, paramlit.Error, cfg.DuplicateKeySeverity())

	agmm := cfg.Operator("all_gather_matmul")
	assert.Equal(t, "expectTilingData", agmm.SharedField)
	assert.True(t, agmm.StripRegistryGuard)
	assert.True(t, cfg.Operator("distribute_barrier").NoShare)
	assert.Equal(t, Operator{}, cfg.Operator("unknown"))
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "input_dirs: x\n"},
		{"unknown operator key", "operators:\n  a:\n    sharedfield: x\n"},
		{"multiple documents", "language: en\n---\nlanguage: zh\n"},
		{"bad language", "language: fr\n"},
		{"bad concurrency", "concurrency: 0\n"},
		{"bad duplicate policy", "duplicate_keys: sometimes\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PARAMLIT_LANG", "")
			t.Setenv("PARAMLIT_CONCURRENCY", "")
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "")
	t.Setenv("PARAMLIT_CONCURRENCY", "")

	cfg := Default()
	cfg.InputDir = "/abs/in"
	cfg.Operators = map[string]Operator{"distribute_barrier": {NoShare: true}}
	path := filepath.Join(t.TempDir(), "sub", DefaultFile)
	require.NoError(t, cfg.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/abs/in", back.InputDir)
	assert.True(t, back.Operator("distribute_barrier").NoShare)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "outputs"), back.OutputDir)
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "")
	t.Setenv("PARAMLIT_CONCURRENCY", "")
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "zh")
	t.Setenv("PARAMLIT_CONCURRENCY", "8")

	cfg, err := Load(writeConfig(t, "language: en\nconcurrency: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "zh", cfg.Language)
	assert.Equal(t, 8, cfg.Concurrency)

	t.Setenv("PARAMLIT_CONCURRENCY", "nope")
	cfg = Default()
	cfg.applyEnvOverrides()
	assert.Equal(t, 4, cfg.Concurrency)
}

func TestRegistry_ExtraSchemas(t *testing.T) {
	t.Setenv("PARAMLIT_LANG", "")
	t.Setenv("PARAMLIT_CONCURRENCY", "")

	cfg, err := Load(writeConfig(t, `
schemas:
  - name: CustomTilingTestParam
    name_only: true
    fields:
      - {name: case_name, kind: string}
      - {name: dtype, kind: symbol, ctype: ge::DataType, default: ge::DT_FLOAT16}
      - {name: shape, kind: int_list, default: "{16, 128}"}
    constant: {field: case_name, name: SHARED_NAME}
    layout: {array: custom_params, blank_between: true}
`))
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	d, ok := reg.Get("CustomTilingTestParam")
	require.True(t, ok)
	require.Len(t, d.Fields, 3)
	assert.Equal(t, codec.Symbol, d.Fields[1].Kind)
	assert.True(t, d.Fields[1].Default.Equal(paramlit.Symbol("ge::DT_FLOAT16")))
	assert.True(t, d.Fields[2].Default.Equal(paramlit.Ints(16, 128)))
	assert.Equal(t, "custom_params", d.Layout.Array())
	assert.Equal(t, "SHARED_NAME", d.Constant.Name)

	_, ok = reg.Get("DistributeBarrierTilingTestParam")
	assert.True(t, ok, "built-in layouts stay registered")
}

func TestRegistry_BadSchema(t *testing.T) {
	cfg := Default()
	cfg.Schemas = append(cfg.Schemas, schema.Spec{
		Name:   "BrokenTestParam",
		Fields: []schema.FieldSpec{{Name: "a", Kind: "nope"}},
	})
	_, err := cfg.Registry()
	iss, ok := paramlit.AsIssues(err)
	require.True(t, ok)
	assert.True(t, iss.HasCode(paramlit.CodeInvalidSchema))
}
