package skeleton

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/utgen/paramlit/schema"
)

// ErrNotFound is returned by a Library that has no skeleton for an operator.
var ErrNotFound = errors.New("skeleton not found")

// Library looks up the skeleton for an operator.
type Library interface {
	Skeleton(op string) (string, error)
}

// DefaultPattern names skeleton files inside a template directory. %s is the
// operator name.
const DefaultPattern = "test_%s_tiling.cpp"

// Dir serves skeletons stored as files in a directory.
type Dir struct {
	Path    string
	Pattern string // DefaultPattern when empty
}

// File returns the path of op's skeleton.
func (d Dir) File(op string) string {
	p := d.Pattern
	if p == "" {
		p = DefaultPattern
	}
	return filepath.Join(d.Path, fmt.Sprintf(p, op))
}

func (d Dir) Skeleton(op string) (string, error) {
	b, err := os.ReadFile(d.File(op))
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Generated renders skeletons from registered descriptors. Ops maps an
// operator name to a descriptor ID; unmapped operators are matched against
// descriptor names case-insensitively with underscores ignored.
type Generated struct {
	Registry *schema.Registry
	Ops      map[string]string
}

func (g Generated) Skeleton(op string) (string, error) {
	d, ok := g.lookup(op)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return Generate(d)
}

func (g Generated) lookup(op string) (*schema.Descriptor, bool) {
	reg := g.Registry
	if reg == nil {
		reg = schema.Default()
	}
	if id, ok := g.Ops[op]; ok {
		return reg.Get(id)
	}
	want := fold(op)
	for _, d := range reg.All() {
		if d.Variant != "" {
			continue
		}
		n := strings.TrimSuffix(d.Name, "TestParam")
		if fold(n) == want || fold(strings.TrimSuffix(n, "Tiling")) == want {
			return d, true
		}
	}
	return nil, false
}

func fold(s string) string { return strings.ToLower(strings.ReplaceAll(s, "_", "")) }

// Chain tries each library in order and returns the first skeleton found.
type Chain []Library

func (c Chain) Skeleton(op string) (string, error) {
	for _, l := range c {
		s, err := l.Skeleton(op)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return s, err
	}
	return "", fmt.Errorf("%s: %w", op, ErrNotFound)
}
