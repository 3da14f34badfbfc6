// Package config loads paramlit.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/utgen/paramlit"
	"github.com/utgen/paramlit/schema"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "paramlit.yaml"

// Config holds all paramlit configuration.
type Config struct {
	InputDir    string `yaml:"input_dir"`
	TemplateDir string `yaml:"template_dir"`
	OutputDir   string `yaml:"output_dir"`
	// TargetDir holds the reference sources compared by verify.
	TargetDir string `yaml:"target_dir"`

	// InputPattern and SkeletonPattern name per-operator files; %s is the
	// operator. Outputs use SkeletonPattern too.
	InputPattern    string `yaml:"input_pattern"`
	SkeletonPattern string `yaml:"skeleton_pattern"`

	Concurrency int    `yaml:"concurrency"`
	Language    string `yaml:"language"` // en, zh
	// DuplicateKeys handles keys repeated within an input record: error,
	// warn or ignore.
	DuplicateKeys string `yaml:"duplicate_keys"`

	Operators map[string]Operator `yaml:"operators"`
	// Schemas are extra layouts registered after the built-in ones.
	Schemas []schema.Spec `yaml:"schemas"`
}

// Operator overrides the defaults for one operator.
type Operator struct {
	// Schema forces a descriptor ID instead of resolving by type name.
	Schema       string `yaml:"schema"`
	SharedField  string `yaml:"shared_field"`
	NoShare      bool   `yaml:"no_share"`
	ConstantName string `yaml:"constant_name"`

	Input    string `yaml:"input"`
	Template string `yaml:"template"`
	Output   string `yaml:"output"`

	// StripRegistryGuard removes the IsOpImplRegistryAvailable skip from
	// the patched source.
	StripRegistryGuard bool `yaml:"strip_registry_guard"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		InputDir:        "inputs",
		TemplateDir:     "template",
		OutputDir:       "outputs",
		InputPattern:    "%s.jsonl",
		SkeletonPattern: "test_%s_tiling.cpp",
		Concurrency:     4,
		Language:        "en",
		DuplicateKeys:   "error",
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := decodeKnownFields(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	cfg.rebase(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeKnownFields(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple YAML documents are not supported")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if lang := os.Getenv("PARAMLIT_LANG"); lang != "" {
		c.Language = lang
	}
	if n, err := strconv.Atoi(os.Getenv("PARAMLIT_CONCURRENCY")); err == nil && n > 0 {
		c.Concurrency = n
	}
}

// rebase makes relative directories relative to the config file.
func (c *Config) rebase(dir string) {
	if dir == "" || dir == "." {
		return
	}
	for _, p := range []*string{&c.InputDir, &c.TemplateDir, &c.OutputDir, &c.TargetDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	switch c.Language {
	case "en", "zh":
	default:
		return fmt.Errorf("invalid language: %s (valid: en, zh)", c.Language)
	}
	if _, err := paramlit.ParseSeverity(c.DuplicateKeys); err != nil {
		return fmt.Errorf("duplicate_keys: %w", err)
	}
	if c.InputPattern == "" || c.SkeletonPattern == "" {
		return errors.New("input_pattern and skeleton_pattern must not be empty")
	}
	return nil
}

// DuplicateKeySeverity returns the parsed DuplicateKeys setting.
func (c *Config) DuplicateKeySeverity() paramlit.Severity {
	s, _ := paramlit.ParseSeverity(c.DuplicateKeys)
	return s
}

// Operator returns the overrides for op; the zero value when there are none.
func (c *Config) Operator(op string) Operator { return c.Operators[op] }

// Registry returns the built-in registry extended with the configured
// schemas.
func (c *Config) Registry() (*schema.Registry, error) {
	if len(c.Schemas) == 0 {
		return schema.Default(), nil
	}
	descs, err := schema.Descriptors(c.Schemas)
	if err != nil {
		return nil, err
	}
	return schema.Default().With(descs...)
}
