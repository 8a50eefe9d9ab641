package runtime

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deicod/nunjucks/compiler"
)

// Config describes an environment in YAML
type Config struct {
	SearchPaths   SearchPaths `yaml:"search_paths"`
	BaseURL       string      `yaml:"base_url"`
	DefaultExt    string      `yaml:"default_ext"`
	NeverUpdate   bool        `yaml:"never_update"`
	Autoescape    bool        `yaml:"autoescape"`
	TrimBlocks    bool        `yaml:"trim_blocks"`
	LstripBlocks  bool        `yaml:"lstrip_blocks"`
	MissingImport string      `yaml:"missing_import"`
	HTTPTimeout   Duration    `yaml:"http_timeout"`
}

// SearchPaths accepts a single path or a list of paths
type SearchPaths []string

func (p *SearchPaths) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		path := strings.TrimSpace(value.Value)
		if path == "" {
			*p = nil
			return nil
		}
		*p = SearchPaths{path}
		return nil
	case yaml.SequenceNode:
		var paths []string
		if err := value.Decode(&paths); err != nil {
			return err
		}
		*p = SearchPaths(filteredSearchPaths(paths))
		return nil
	default:
		return fmt.Errorf("search_paths: unsupported entry type: %v", value.Kind)
	}
}

// Duration is a time.Duration written as "5s" or as whole seconds
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got %v", value.Kind)
	}
	var seconds int
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return decodeConfig(fh)
}

// ParseConfig decodes a YAML config document
func ParseConfig(data []byte) (*Config, error) {
	return decodeConfig(bytes.NewReader(data))
}

func decodeConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if _, err := compiler.ParseMissingImportPolicy(cfg.MissingImport); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewEnvironmentFromConfig builds an environment whose loaders are a
// filesystem loader over the search paths, then a web loader for the
// base URL
func NewEnvironmentFromConfig(cfg *Config, logger *slog.Logger) (*Environment, error) {
	env := NewEnvironment().WithLogger(logger)
	if cfg == nil {
		return env, nil
	}

	policy, err := compiler.ParseMissingImportPolicy(cfg.MissingImport)
	if err != nil {
		return nil, err
	}
	env.SetMissingImport(policy)
	env.SetAutoescape(cfg.Autoescape)
	env.SetTrimBlocks(cfg.TrimBlocks)
	env.SetLstripBlocks(cfg.LstripBlocks)

	if len(cfg.SearchPaths) > 0 {
		env.AddLoader(NewFileSystemLoader(cfg.SearchPaths...))
	}
	if cfg.BaseURL != "" {
		web := NewWebLoader(cfg.BaseURL, cfg.NeverUpdate, cfg.DefaultExt)
		if cfg.HTTPTimeout > 0 {
			web.Client.Timeout = time.Duration(cfg.HTTPTimeout)
		}
		env.AddLoader(web)
	}
	env.logger().Debug("environment configured",
		"search_paths", []string(cfg.SearchPaths),
		"base_url", cfg.BaseURL,
		"autoescape", cfg.Autoescape)
	return env, nil
}
