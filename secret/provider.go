package secret

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves a reference as an environment variable name.
type EnvProvider struct {
	// Lookup defaults to os.LookupEnv.
	Lookup LookupFunc
}

// Name returns "env".
func (p EnvProvider) Name() string { return "env" }

// Resolve returns the variable's value.
func (p EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves a reference as a file path and returns the file
// content without surrounding whitespace.
type FileProvider struct {
	// Root, when set, is joined in front of relative references.
	Root string
}

// Name returns "file".
func (p FileProvider) Name() string { return "file" }

// Resolve reads the file.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	path := ref
	if p.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.Root, path)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrNotFound, ref)
	}
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", ref, err)
	}
	return strings.TrimSpace(string(data)), nil
}

var (
	_ Provider = EnvProvider{}
	_ Provider = FileProvider{}
)
