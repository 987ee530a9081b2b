// Package manifest handles stackc.toml project configuration.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "stackc.toml"

// Manifest represents a stackc.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Compile Compile `toml:"compile"`
	Cache   Cache   `toml:"cache"`
	Log     Log     `toml:"log"`
	Server  Server  `toml:"server"`

	// Dir is the directory containing the stackc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Compile configures what the CLI emits besides running the program.
type Compile struct {
	EmitIR    bool   `toml:"emit-ir"`
	EmitGo    string `toml:"emit-go"`
	GoPackage string `toml:"go-package"`
}

// Cache configures the compiled-program cache and run history.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Server configures the RPC listeners.
type Server struct {
	Addr     string `toml:"addr"`
	GRPCAddr string `toml:"grpc-addr"`
}

// Default returns a manifest with every default applied and Dir unset.
func Default() *Manifest {
	return &Manifest{
		Compile: Compile{GoPackage: "main"},
		Cache:   Cache{Enabled: true, Path: filepath.Join(".stackc", "cache.db")},
		Server:  Server{Addr: ":4567", GRPCAddr: ":4568"},
	}
}

// Load parses a stackc.toml file from the given directory. Fields absent
// from the file keep their defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// An explicit empty string means the default, not "no value".
	if m.Compile.GoPackage == "" {
		m.Compile.GoPackage = "main"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = Default().Cache.Path
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a stackc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes m as stackc.toml into dir. An existing file is not
// overwritten.
func Write(dir string, m *Manifest) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// EmitGoPath returns the absolute path for AOT Go output, or "" when
// emission is off.
func (m *Manifest) EmitGoPath() string {
	if m.Compile.EmitGo == "" || filepath.IsAbs(m.Compile.EmitGo) {
		return m.Compile.EmitGo
	}
	return filepath.Join(m.Dir, m.Compile.EmitGo)
}
