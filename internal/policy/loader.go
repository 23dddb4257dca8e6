package policy

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultPoliciesDir is where extra policy files live under the data
// directory when workflow.policiesDir is not set.
const DefaultPoliciesDir = "policies"

//go:embed policies/*.rego
var builtinFS embed.FS

// PolicyFile represents a loaded Rego policy file.
type PolicyFile struct {
	// Path identifies the module to OPA; for files on disk it is the file path.
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// BuiltinPolicies returns the policies compiled into the binary.
func BuiltinPolicies() ([]*PolicyFile, error) {
	entries, err := fs.ReadDir(builtinFS, "policies")
	if err != nil {
		return nil, fmt.Errorf("read builtin policies: %w", err)
	}
	var policies []*PolicyFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".rego") {
			continue
		}
		p := path.Join("policies", e.Name())
		content, err := builtinFS.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read builtin policy %s: %w", p, err)
		}
		policies = append(policies, &PolicyFile{
			Path:    "builtin/" + e.Name(),
			Name:    strings.TrimSuffix(e.Name(), ".rego"),
			Content: string(content),
		})
	}
	return policies, nil
}

// Loader scans and loads .rego policy files from a directory. It uses an
// afero.Fs so tests can run against an in-memory filesystem.
type Loader struct {
	fs      afero.Fs
	baseDir string
}

// NewLoader creates a new policy loader using the provided filesystem.
func NewLoader(fs afero.Fs, baseDir string) *Loader {
	return &Loader{
		fs:      fs,
		baseDir: baseDir,
	}
}

// LoadAll loads all .rego files under the base directory, recursively.
// A missing directory yields no policies.
func (l *Loader) LoadAll() ([]*PolicyFile, error) {
	if l.baseDir == "" {
		return []*PolicyFile{}, nil
	}
	exists, err := afero.DirExists(l.fs, l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("check policies directory: %w", err)
	}
	if !exists {
		return []*PolicyFile{}, nil
	}

	var policies []*PolicyFile

	err = afero.Walk(l.fs, l.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".rego") {
			return nil
		}

		policy, err := l.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load policy %s: %w", path, err)
		}

		policies = append(policies, policy)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("walk policies directory: %w", err)
	}

	return policies, nil
}

// LoadFile reads a single .rego policy file and checks that it compiles.
func (l *Loader) LoadFile(path string) (*PolicyFile, error) {
	file, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if err := ValidatePolicy(path, string(content)); err != nil {
		return nil, err
	}

	return &PolicyFile{
		Path:    path,
		Name:    strings.TrimSuffix(filepath.Base(path), ".rego"),
		Content: string(content),
	}, nil
}
