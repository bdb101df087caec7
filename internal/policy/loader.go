package policy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load-time failure kinds. All of them are fatal; the pipeline never
// runs against a partially loaded policy.
var (
	ErrPolicyNotFound = errors.New("policy file not found")
	ErrPolicySyntax   = errors.New("policy YAML syntax error")
	ErrExtendsCycle   = errors.New("policy extends cycle")
)

// Loader resolves policy files, follows extends chains, and caches
// resolved policies by absolute path for the duration of a run.
type Loader struct {
	cache map[string]*Policy
}

func NewLoader() *Loader {
	return &Loader{cache: make(map[string]*Policy)}
}

// Load reads, validates, and resolves the policy at path, following
// extends chains relative to each policy file's directory.
func (l *Loader) Load(path string) (*Policy, error) {
	return l.load(path, map[string]bool{})
}

func (l *Loader) load(path string, visiting map[string]bool) (*Policy, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if visiting[abs] {
		return nil, fmt.Errorf("%w through %s", ErrExtendsCycle, abs)
	}
	if cached, ok := l.cache[abs]; ok {
		return cached, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, path)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if p.Extends != "" {
		parentPath := p.Extends
		if !filepath.IsAbs(parentPath) {
			parentPath = filepath.Join(filepath.Dir(abs), parentPath)
		}
		visiting[abs] = true
		parent, err := l.load(parentPath, visiting)
		if err != nil {
			return nil, fmt.Errorf("resolving extends of %s: %w", path, err)
		}
		delete(visiting, abs)
		p = merge(parent, p)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.cache[abs] = p
	return p, nil
}

// Parse decodes one policy document with strict field checking.
// Unknown top-level fields are rejected. The result is not yet
// validated or merged with its parent.
func Parse(data []byte) (*Policy, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Policy
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicySyntax, err)
	}
	return &p, nil
}
