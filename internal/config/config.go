package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Location is a fixed coordinate fed to periodic ticks when no live location source exists.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Config holds application configuration.
type Config struct {
	// StorageBackend selects where folders, profiles and usage are persisted: "sqlite" or "file".
	StorageBackend string `json:"storage_backend,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// SuggestMinUsage is the launch count at which an app qualifies for folder suggestions.
	SuggestMinUsage int `json:"suggest_min_usage,omitempty"`

	// SuggestMinGroup is the minimum number of apps a category needs before a folder is suggested.
	SuggestMinGroup int `json:"suggest_min_group,omitempty"`

	// AllowDuplicateNames disables the (name, category) uniqueness check for folders
	// and the name uniqueness check for profiles.
	AllowDuplicateNames bool `json:"allow_duplicate_names,omitempty"`

	// TickSchedule is the cron spec the watcher uses to re-evaluate profiles.
	TickSchedule string `json:"tick_schedule,omitempty"`

	// Location is reported with every periodic tick. Nil means ticks carry no location.
	Location *Location `json:"location,omitempty"`

	// CatalogPath points at a JSON list of installed apps. Relative paths are
	// resolved against the base directory.
	CatalogPath string `json:"catalog_path,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool types to disable entirely.
	// Known types: "folder", "profile", "usage", "context", "organize".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorageBackend:  BackendSQLite,
		LogLevel:        "info",
		SuggestMinUsage: 5,
		SuggestMinGroup: 3,
		TickSchedule:    "@every 1m",
		CatalogPath:     "apps.json",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.shelf.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if cfg.CatalogPath != "" && !filepath.IsAbs(cfg.CatalogPath) {
		cfg.CatalogPath = filepath.Join(baseDir, cfg.CatalogPath)
	}
	return cfg, nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.StorageBackend = firstNonEmpty(overlay.StorageBackend, base.StorageBackend)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)
	result.TickSchedule = firstNonEmpty(overlay.TickSchedule, base.TickSchedule)
	result.CatalogPath = firstNonEmpty(overlay.CatalogPath, base.CatalogPath)

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	result.SuggestMinUsage = overlay.SuggestMinUsage
	if result.SuggestMinUsage == 0 {
		result.SuggestMinUsage = base.SuggestMinUsage
	}

	result.SuggestMinGroup = overlay.SuggestMinGroup
	if result.SuggestMinGroup == 0 {
		result.SuggestMinGroup = base.SuggestMinGroup
	}

	result.Location = overlay.Location
	if result.Location == nil {
		result.Location = base.Location
	}

	// Booleans: overlay wins if true, else base
	result.AllowDuplicateNames = base.AllowDuplicateNames || overlay.AllowDuplicateNames

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return strings.TrimSpace(b)
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
