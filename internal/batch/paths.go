package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/utgen/paramlit/internal/config"
	"github.com/utgen/paramlit/skeleton"
)

// Paths resolves the files an operator reads and writes.
type Paths struct {
	InputDir    string
	TemplateDir string
	OutputDir   string
	TargetDir   string

	InputPattern    string // %s.jsonl when empty
	SkeletonPattern string // skeleton.DefaultPattern when empty

	Operators map[string]config.Operator
}

// PathsFromConfig copies the directory settings of cfg.
func PathsFromConfig(cfg *config.Config) Paths {
	return Paths{
		InputDir:        cfg.InputDir,
		TemplateDir:     cfg.TemplateDir,
		OutputDir:       cfg.OutputDir,
		TargetDir:       cfg.TargetDir,
		InputPattern:    cfg.InputPattern,
		SkeletonPattern: cfg.SkeletonPattern,
		Operators:       cfg.Operators,
	}
}

func (p Paths) inputPattern() string {
	if p.InputPattern != "" {
		return p.InputPattern
	}
	return "%s.jsonl"
}

func (p Paths) skeletonPattern() string {
	if p.SkeletonPattern != "" {
		return p.SkeletonPattern
	}
	return skeleton.DefaultPattern
}

// resolve joins an override onto dir unless it is absolute.
func resolve(dir, override, pattern, op string) string {
	if override != "" {
		if filepath.IsAbs(override) {
			return override
		}
		return filepath.Join(dir, override)
	}
	return filepath.Join(dir, fmt.Sprintf(pattern, op))
}

func (p Paths) Input(op string) string {
	return resolve(p.InputDir, p.Operators[op].Input, p.inputPattern(), op)
}

func (p Paths) Template(op string) string {
	return resolve(p.TemplateDir, p.Operators[op].Template, p.skeletonPattern(), op)
}

func (p Paths) Output(op string) string {
	return resolve(p.OutputDir, p.Operators[op].Output, p.skeletonPattern(), op)
}

// Target is the reference source verify compares Output against.
func (p Paths) Target(op string) string {
	return filepath.Join(p.TargetDir, fmt.Sprintf(p.skeletonPattern(), op))
}

// Library serves the skeleton at Template(op).
func (p Paths) Library() skeleton.Library { return templateFiles{p} }

type templateFiles struct{ p Paths }

func (t templateFiles) Skeleton(op string) (string, error) {
	if t.p.Operators[op].Template == "" {
		return skeleton.Dir{Path: t.p.TemplateDir, Pattern: t.p.skeletonPattern()}.Skeleton(op)
	}
	b, err := os.ReadFile(t.p.Template(op))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", op, skeleton.ErrNotFound)
	}
	return string(b), err
}

// Discover lists the operators that have an input or a template, plus the
// configured ones, sorted.
func (p Paths) Discover() ([]string, error) {
	set := map[string]bool{}
	for op := range p.Operators {
		set[op] = true
	}
	for _, src := range []struct{ dir, pattern string }{
		{p.InputDir, p.inputPattern()},
		{p.TemplateDir, p.skeletonPattern()},
	} {
		entries, err := os.ReadDir(src.dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", src.dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if op, ok := match(src.pattern, e.Name()); ok {
				set[op] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for op := range set {
		out = append(out, op)
	}
	sort.Strings(out)
	return out, nil
}

// match extracts the %s part of name.
func match(pattern, name string) (string, bool) {
	i := strings.Index(pattern, "%s")
	if i < 0 {
		return "", false
	}
	prefix, suffix := pattern[:i], pattern[i+2:]
	if len(name) <= len(prefix)+len(suffix) || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return name[len(prefix) : len(name)-len(suffix)], true
}
