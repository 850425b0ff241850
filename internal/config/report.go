// Package config loads the report configuration file.
//
// Every field is optional. Get* accessors fall back to built-in defaults, so
// a partial file only overrides what it names and CLI flags can override the
// result again.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/registration.report/internal/dataset"
	"github.com/banshee-data/registration.report/internal/methods"
	"github.com/banshee-data/registration.report/internal/results"
)

// DefaultConfigPath is the canonical defaults file, relative to the repo root.
const DefaultConfigPath = "config/report.defaults.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Built-in defaults.
const (
	DefaultDatasetsDir = "./Datasets"
	DefaultFold        = "1"
	DefaultPreprocess  = "nopre"
	DefaultDBPath      = "curves.db"
	DefaultListen      = ":8090"
)

// DefaultFamilies and DefaultDatasets drive batch runs when not configured.
var (
	DefaultFamilies = []string{"SIFT", "aAMD"}
	DefaultDatasets = []string{"Balvan", "Zurich", "Eliceiri"}
)

// ReportConfig is the root of the configuration file.
type ReportConfig struct {
	DatasetsDir *string `json:"datasets_dir,omitempty" yaml:"datasets_dir,omitempty"`
	Dark        *bool   `json:"dark,omitempty" yaml:"dark,omitempty"`
	Fold        *string `json:"fold,omitempty" yaml:"fold,omitempty"`
	Preprocess  *string `json:"preprocess,omitempty" yaml:"preprocess,omitempty"`

	// Batch scope.
	Families []string `json:"families,omitempty" yaml:"families,omitempty"`
	Datasets []string `json:"datasets,omitempty" yaml:"datasets,omitempty"`

	// Method tier overrides, method name to "baseline", "descriptor" or "learned".
	Methods map[string]string `json:"methods,omitempty" yaml:"methods,omitempty"`

	// Persistence and serving.
	DBPath     *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RecordRuns *bool   `json:"record_runs,omitempty" yaml:"record_runs,omitempty"`
	Listen     *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	AssetsHost *string `json:"assets_host,omitempty" yaml:"assets_host,omitempty"`
}

// EmptyReportConfig returns a config with every field unset.
func EmptyReportConfig() *ReportConfig {
	return &ReportConfig{}
}

// LoadReportConfig loads a config from a .json, .yaml or .yml file of at
// most 1MB and validates it.
func LoadReportConfig(path string) (*ReportConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyReportConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks dataset names, preprocess tags, the fold selector and
// method tiers. Failures wrap dataset.ErrInvalidConfig.
func (c *ReportConfig) Validate() error {
	for _, name := range c.Datasets {
		if _, err := dataset.Lookup(name); err != nil {
			return err
		}
	}
	if c.Preprocess != nil {
		if err := dataset.ValidatePreprocess(*c.Preprocess); err != nil {
			return err
		}
	}
	if c.Fold != nil {
		if _, err := results.ParseFold(*c.Fold); err != nil {
			return fmt.Errorf("%w: %v", dataset.ErrInvalidConfig, err)
		}
	}
	for _, f := range c.Families {
		if f == "" {
			return fmt.Errorf("%w: empty plot family", dataset.ErrInvalidConfig)
		}
	}
	for name, tier := range c.Methods {
		if _, err := methods.ParseTier(tier); err != nil {
			return fmt.Errorf("%w: method %q: %v", dataset.ErrInvalidConfig, name, err)
		}
	}
	if c.DatasetsDir != nil && *c.DatasetsDir == "" {
		return fmt.Errorf("%w: datasets_dir must not be empty", dataset.ErrInvalidConfig)
	}
	return nil
}

// GetDatasetsDir returns the directory holding the <name>_patches trees.
func (c *ReportConfig) GetDatasetsDir() string {
	if c.DatasetsDir == nil {
		return DefaultDatasetsDir
	}
	return *c.DatasetsDir
}

// GetDark reports whether artifacts use the dark style. Defaults to true.
func (c *ReportConfig) GetDark() bool {
	if c.Dark == nil {
		return true
	}
	return *c.Dark
}

// GetFold returns the parsed fold selector. An invalid value falls back to
// the default; Validate reports it.
func (c *ReportConfig) GetFold() results.Fold {
	s := DefaultFold
	if c.Fold != nil {
		s = *c.Fold
	}
	f, err := results.ParseFold(s)
	if err != nil {
		return results.Fold{K: 1}
	}
	return f
}

// GetPreprocess returns the preprocessing tag. Defaults to "nopre".
func (c *ReportConfig) GetPreprocess() string {
	if c.Preprocess == nil {
		return DefaultPreprocess
	}
	return *c.Preprocess
}

// GetFamilies returns the plot families for batch runs.
func (c *ReportConfig) GetFamilies() []string {
	if len(c.Families) == 0 {
		return append([]string(nil), DefaultFamilies...)
	}
	return c.Families
}

// GetDatasets returns the datasets for batch runs.
func (c *ReportConfig) GetDatasets() []string {
	if len(c.Datasets) == 0 {
		return append([]string(nil), DefaultDatasets...)
	}
	return c.Datasets
}

// GetDBPath returns the curve database path.
func (c *ReportConfig) GetDBPath() string {
	if c.DBPath == nil {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetRecordRuns reports whether computed curves are persisted. Defaults to false.
func (c *ReportConfig) GetRecordRuns() bool {
	if c.RecordRuns == nil {
		return false
	}
	return *c.RecordRuns
}

// GetListen returns the HTTP listen address.
func (c *ReportConfig) GetListen() string {
	if c.Listen == nil {
		return DefaultListen
	}
	return *c.Listen
}

// GetAssetsHost returns the echarts assets host, empty for the library default.
func (c *ReportConfig) GetAssetsHost() string {
	if c.AssetsHost == nil {
		return ""
	}
	return *c.AssetsHost
}

// Catalog returns the default method catalog with the configured overrides
// applied. Unparsable tiers are skipped; Validate reports them.
func (c *ReportConfig) Catalog() *methods.Catalog {
	cat := methods.NewCatalog()
	for name, tier := range c.Methods {
		t, err := methods.ParseTier(tier)
		if err != nil {
			continue
		}
		cat.Set(methods.Method{Name: name, Tier: t})
	}
	return cat
}
