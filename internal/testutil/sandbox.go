package testutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Sandbox is an isolated temporary directory standing in for a musigd
// process's working directory in tests. cmd/config's LoadConfig resolves
// "config/<env>.yaml" relative to the process cwd, so tests that exercise
// config loading need a throwaway directory tree they can chdir into rather
// than a bare temp file.
type Sandbox struct {
	Root string
}

// NewSandbox creates a sandbox rooted at a fresh temporary directory. label
// is folded into the directory name so a sandbox left behind by a test that
// panicked before calling Cleanup can be traced back to its origin.
func NewSandbox(label string) (*Sandbox, error) {
	dir, err := os.MkdirTemp("", fmt.Sprintf("musigd-sandbox-%s-", label))
	if err != nil {
		return nil, err
	}
	return &Sandbox{Root: dir}, nil
}

// Path returns the absolute path for a file or directory within the sandbox.
func (s *Sandbox) Path(name string) string {
	return filepath.Join(s.Root, name)
}

// MkdirAll creates name, and any needed parents, within the sandbox.
func (s *Sandbox) MkdirAll(name string, perm fs.FileMode) error {
	return os.MkdirAll(s.Path(name), perm)
}

// WriteFile writes data to the named file inside the sandbox using the
// provided permissions.
func (s *Sandbox) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(s.Path(name), data, perm)
}

// ReadFile reads and returns data from the named file inside the sandbox.
func (s *Sandbox) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(s.Path(name))
}

// WriteConfigFile writes yaml into the sandbox's config/<env>.yaml, creating
// the config directory if it doesn't already exist. env="" targets
// config/default.yaml, matching LoadConfig's convention for the base file.
func (s *Sandbox) WriteConfigFile(env, yaml string) error {
	if err := s.MkdirAll("config", 0700); err != nil {
		return err
	}
	name := env
	if name == "" {
		name = "default"
	}
	return s.WriteFile(filepath.Join("config", name+".yaml"), []byte(yaml), 0600)
}

// Cleanup removes all files within the sandbox and deletes the root directory.
func (s *Sandbox) Cleanup() error {
	return os.RemoveAll(s.Root)
}
