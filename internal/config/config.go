package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFileName = "dialoguecraft.yaml"
	DefaultDSN      = "sqlite://.dialoguecraft/dialoguecraft.db"
	DefaultAddr     = "127.0.0.1:8765"
	DefaultVariant  = 1
	DefaultLanguage = "en"
)

const (
	EnvDSN    = "DIALOGUECRAFT_DSN"
	EnvSource = "DIALOGUECRAFT_SOURCE"
	EnvAddr   = "DIALOGUECRAFT_ADDR"
)

type ProjectConfig struct {
	Project   string          `yaml:"project"`
	Version   int             `yaml:"version"`
	Source    string          `yaml:"source"`
	Language  string          `yaml:"language"`
	Database  DatabaseConfig  `yaml:"database"`
	Traversal TraversalConfig `yaml:"traversal"`
	Export    ExportConfig    `yaml:"export"`
	Serve     ServeConfig     `yaml:"serve"`

	// dir is the directory of the loaded file; relative paths resolve against it.
	dir string
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type TraversalConfig struct {
	// MaxNodes bounds one walk. Zero leaves walks unbounded.
	MaxNodes int `yaml:"max_nodes"`
}

type ExportConfig struct {
	Variant *int `yaml:"variant"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	cfg.dir = abs

	return &cfg, nil
}

func applyEnv(cfg *ProjectConfig) {
	if v, ok := os.LookupEnv(EnvDSN); ok && v != "" {
		cfg.Database.DSN = v
	}
	if v, ok := os.LookupEnv(EnvSource); ok && v != "" {
		cfg.Source = v
	}
	if v, ok := os.LookupEnv(EnvAddr); ok && v != "" {
		cfg.Serve.Addr = v
	}
}

func applyDefaults(cfg *ProjectConfig) {
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		cfg.Database.DSN = DefaultDSN
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = DefaultLanguage
	}
	if strings.TrimSpace(cfg.Serve.Addr) == "" {
		cfg.Serve.Addr = DefaultAddr
	}
	if cfg.Export.Variant == nil {
		v := DefaultVariant
		cfg.Export.Variant = &v
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Source) == "" {
		return fmt.Errorf("source document is required")
	}
	if !strings.HasPrefix(cfg.Database.DSN, "sqlite://") &&
		!strings.HasPrefix(cfg.Database.DSN, "postgres://") &&
		!strings.HasPrefix(cfg.Database.DSN, "postgresql://") {
		return fmt.Errorf("unsupported database dsn %q: expected sqlite:// or postgres://", cfg.Database.DSN)
	}
	if cfg.Traversal.MaxNodes < 0 {
		return fmt.Errorf("traversal max_nodes must not be negative")
	}
	if *cfg.Export.Variant < 0 {
		return fmt.Errorf("export variant must not be negative")
	}
	return nil
}

// SourcePath returns the interchange document path, resolved against the
// directory of the project file.
func (c *ProjectConfig) SourcePath() string {
	return c.resolve(c.Source)
}

// Dir returns the project root.
func (c *ProjectConfig) Dir() string {
	return c.dir
}

// DatabaseDSN returns the configured DSN with a relative sqlite path resolved
// against the project root.
func (c *ProjectConfig) DatabaseDSN() string {
	rest, ok := strings.CutPrefix(c.Database.DSN, "sqlite://")
	if !ok {
		return c.Database.DSN
	}
	path, query, hasQuery := strings.Cut(rest, "?")
	if path == ":memory:" || path == "" {
		return c.Database.DSN
	}
	dsn := "sqlite://" + c.resolve(path)
	if hasQuery {
		dsn += "?" + query
	}
	return dsn
}

func (c *ProjectConfig) ExportVariant() int {
	if c.Export.Variant == nil {
		return DefaultVariant
	}
	return *c.Export.Variant
}

func (c *ProjectConfig) resolve(path string) string {
	if filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Template is written by `dialoguecraft init`.
func Template(project, source string) string {
	return fmt.Sprintf(`project: %s
version: 1
source: %s
language: %s
database:
  dsn: %s
traversal:
  max_nodes: 0
export:
  variant: %d
serve:
  addr: %s
`, project, source, DefaultLanguage, DefaultDSN, DefaultVariant, DefaultAddr)
}
