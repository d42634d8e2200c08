// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/commentary/pkg/anchor"
	"github.com/tombee/commentary/pkg/comment"
	commentaryerrors "github.com/tombee/commentary/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// ProjectConfigName is the per-project configuration file, discovered by
// walking upward from the scan root toward the filesystem root.
const ProjectConfigName = ".commentary.yaml"

// Config represents the complete commentary configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `yaml:"version,omitempty"`

	Log    LogConfig    `yaml:"log"`
	Reflow ReflowConfig `yaml:"reflow"`
	Tags   TagsConfig   `yaml:"tags"`
	Scan   ScanConfig   `yaml:"scan"`
	Watch  WatchConfig  `yaml:"watch"`
	Cache  CacheConfig  `yaml:"cache"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: json
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// ReflowConfig configures the comment reflow engine used by fmt.
type ReflowConfig struct {
	// MaxLineLength is the column limit for reflowed comment lines,
	// counting indentation and the comment token. Values below 1 are
	// clamped to 1.
	// Environment: COMMENTARY_MAX_LINE_LENGTH
	// Default: 120
	MaxLineLength int `yaml:"max_line_length"`

	// CompactSummaries collapses a comment consisting of just a short
	// tagged summary onto a single line when it fits the limit.
	// Default: false
	CompactSummaries bool `yaml:"compact_summaries"`

	// PreserveBlankLines keeps blank comment lines as paragraph breaks
	// instead of packing paragraphs together.
	// Default: true
	PreserveBlankLines bool `yaml:"preserve_blank_lines"`
}

// TagsConfig configures the anchor tag keywords the scanner recognizes.
type TagsConfig struct {
	// Keywords enables a subset of the built-in tag names (TODO, HACK,
	// NOTE, BUG, FIXME, UNDONE, REVIEW, ANCHOR). Empty enables all of
	// them.
	Keywords []string `yaml:"keywords,omitempty"`

	// CustomTags adds user-defined tag names, reported under the casing
	// given here.
	CustomTags []string `yaml:"custom_tags,omitempty"`

	// Prefixes lists characters tolerated immediately before a keyword,
	// such as "@" to accept @TODO as TODO.
	Prefixes string `yaml:"prefixes,omitempty"`
}

// ScanConfig configures file enumeration for solution scans.
type ScanConfig struct {
	// Extensions is the allow-list of file extensions to scan, dots
	// included. An explicit empty list scans every file.
	// Default: the extensions with built-in comment styles
	Extensions []string `yaml:"extensions,omitempty"`

	// IgnoreGlobs are doublestar patterns matched against paths relative
	// to the scan root. Absent means the built-in defaults (.git,
	// node_modules, vendor, bin, obj and friends); an explicit empty
	// list disables ignoring.
	IgnoreGlobs []string `yaml:"ignore_globs,omitempty"`

	// MaxFileSize skips files larger than this many bytes. Zero means
	// 1 MiB; negative disables the limit.
	// Environment: COMMENTARY_MAX_FILE_SIZE
	MaxFileSize int64 `yaml:"max_file_size,omitempty"`

	// Workers caps concurrent file scans. Zero means one fewer than the
	// CPU count, minimum one.
	// Environment: COMMENTARY_WORKERS
	Workers int `yaml:"workers,omitempty"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long to wait after the last filesystem event on a
	// path before rescanning it.
	// Environment: COMMENTARY_DEBOUNCE
	// Default: 500ms
	Debounce time.Duration `yaml:"debounce"`

	// MaxEventsPerSecond rate-limits rescan triggers across all paths.
	// Default: 10
	MaxEventsPerSecond float64 `yaml:"max_events_per_second,omitempty"`
}

// UnmarshalYAML accepts either a Go duration string ("500ms") or raw
// nanoseconds for the debounce field.
func (w *WatchConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Debounce           yaml.Node `yaml:"debounce"`
		MaxEventsPerSecond float64   `yaml:"max_events_per_second"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	w.MaxEventsPerSecond = raw.MaxEventsPerSecond
	if raw.Debounce.IsZero() {
		return nil
	}

	var ns int64
	if err := raw.Debounce.Decode(&ns); err == nil {
		w.Debounce = time.Duration(ns)
		return nil
	}
	var text string
	if err := raw.Debounce.Decode(&text); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	d, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}
	w.Debounce = d
	return nil
}

// MarshalYAML writes the debounce as a duration string so generated
// files stay readable.
func (w WatchConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Debounce           string  `yaml:"debounce"`
		MaxEventsPerSecond float64 `yaml:"max_events_per_second,omitempty"`
	}{w.Debounce.String(), w.MaxEventsPerSecond}, nil
}

// CacheConfig configures the on-disk anchor cache.
type CacheConfig struct {
	// Enabled controls whether scans read and write the cache file.
	// Environment: COMMENTARY_CACHE
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path overrides the cache file location. Empty means
	// .commentary.cache.json under the scan root.
	// Environment: COMMENTARY_CACHE_PATH
	Path string `yaml:"path,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Log: LogConfig{
			Level:     "info",
			Format:    "json",
			AddSource: false,
		},
		Reflow: ReflowConfig{
			MaxLineLength:      comment.DefaultMaxLineLength,
			CompactSummaries:   false,
			PreserveBlankLines: true,
		},
		Tags: TagsConfig{
			Keywords:   nil, // All built-ins
			CustomTags: nil,
			Prefixes:   "",
		},
		Scan: ScanConfig{
			Extensions:  comment.DocExtensions(),
			IgnoreGlobs: nil, // Walker defaults
			MaxFileSize: 0,   // Walker default (1 MiB)
			Workers:     0,   // Coordinator default (NumCPU-1)
		},
		Watch: WatchConfig{
			Debounce:           500 * time.Millisecond,
			MaxEventsPerSecond: 10,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from environment variables and optionally from a
// YAML file. Environment variables take precedence over file-based
// configuration. If configPath is empty, only environment variables are used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	// Load from file if path provided
	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &commentaryerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	// Override with environment variables
	cfg.loadFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, &commentaryerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// Resolution records which files contributed to a resolved configuration.
type Resolution struct {
	// SettingsPath is the user settings file, if one was loaded.
	SettingsPath string

	// ProjectPath is the project configuration file, if one was loaded.
	ProjectPath string
}

// Resolve builds the effective configuration for a command run rooted at
// startDir. Precedence, lowest to highest: built-in defaults, the user
// settings file, the project .commentary.yaml discovered upward from
// startDir (or explicitPath when given), environment variables.
func Resolve(startDir, explicitPath string) (*Config, *Resolution, error) {
	cfg := Default()
	res := &Resolution{}

	if settingsPath, err := SettingsPath(); err == nil {
		if _, err := os.Stat(settingsPath); err == nil {
			if err := cfg.loadFromFile(settingsPath); err != nil {
				return nil, nil, &commentaryerrors.ConfigError{
					Key:    "settings",
					Reason: fmt.Sprintf("failed to load from %s", settingsPath),
					Cause:  err,
				}
			}
			res.SettingsPath = settingsPath
		}
	}

	projectPath := explicitPath
	if projectPath == "" {
		if found, ok := FindProjectConfig(startDir); ok {
			projectPath = found
		}
	}
	if projectPath != "" {
		if err := cfg.loadFromFile(projectPath); err != nil {
			return nil, nil, &commentaryerrors.ConfigError{
				Key:    "project_file",
				Reason: fmt.Sprintf("failed to load from %s", projectPath),
				Cause:  err,
			}
		}
		res.ProjectPath = projectPath
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, nil, &commentaryerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, res, nil
}

// FindProjectConfig walks from dir toward the filesystem root looking for
// a .commentary.yaml file and returns the first match.
func FindProjectConfig(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	for {
		candidate := filepath.Join(dir, ProjectConfigName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// WriteProjectConfig writes cfg to path as YAML, creating parent
// directories as needed.
func WriteProjectConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills in zero values with sensible defaults and clamps
// out-of-range values. This allows minimal configs (e.g. just a tags
// section) to work without specifying all fields explicitly.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	// Reflow defaults
	if c.Reflow.MaxLineLength == 0 {
		c.Reflow.MaxLineLength = defaults.Reflow.MaxLineLength
	}
	if c.Reflow.MaxLineLength < 1 {
		c.Reflow.MaxLineLength = 1
	}

	// Scan defaults. A nil extension list means "not configured"; an
	// explicit empty list means "scan everything" and is left alone.
	if c.Scan.Extensions == nil {
		c.Scan.Extensions = defaults.Scan.Extensions
	}
	for i, ext := range c.Scan.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Scan.Extensions[i] = ext
	}
	if c.Scan.Workers < 0 {
		c.Scan.Workers = 0
	}

	// Watch defaults
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = defaults.Watch.Debounce
	}
	if c.Watch.MaxEventsPerSecond <= 0 {
		c.Watch.MaxEventsPerSecond = defaults.Watch.MaxEventsPerSecond
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	// Expand home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	// Log configuration
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}

	// Reflow configuration
	if val := os.Getenv("COMMENTARY_MAX_LINE_LENGTH"); val != "" {
		if length, err := strconv.Atoi(val); err == nil {
			if length < 1 {
				length = 1
			}
			c.Reflow.MaxLineLength = length
		}
	}

	// Scan configuration
	if val := os.Getenv("COMMENTARY_MAX_FILE_SIZE"); val != "" {
		if size, err := strconv.ParseInt(val, 10, 64); err == nil {
			c.Scan.MaxFileSize = size
		}
	}
	if val := os.Getenv("COMMENTARY_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers >= 0 {
			c.Scan.Workers = workers
		}
	}

	// Watch configuration
	if val := os.Getenv("COMMENTARY_DEBOUNCE"); val != "" {
		if debounce, err := time.ParseDuration(val); err == nil && debounce > 0 {
			c.Watch.Debounce = debounce
		}
	}

	// Cache configuration
	if val := os.Getenv("COMMENTARY_CACHE"); val != "" {
		c.Cache.Enabled = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("COMMENTARY_CACHE_PATH"); val != "" {
		c.Cache.Path = val
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// Validate log configuration
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	// Validate reflow configuration
	if c.Reflow.MaxLineLength < 1 {
		errs = append(errs, fmt.Sprintf("reflow.max_line_length must be at least 1, got %d", c.Reflow.MaxLineLength))
	}

	// Validate tag configuration. Keywords select among the built-in
	// names; unknown names belong in custom_tags instead.
	builtins := make(map[string]bool, len(anchor.DefaultTags))
	for _, tag := range anchor.DefaultTags {
		builtins[strings.ToUpper(tag)] = true
	}
	for i, keyword := range c.Tags.Keywords {
		if !builtins[strings.ToUpper(keyword)] {
			errs = append(errs, fmt.Sprintf("tags.keywords[%d] %q is not a built-in tag (known: %v)", i, keyword, anchor.DefaultTags))
		}
	}
	for i, tag := range c.Tags.CustomTags {
		if tag == "" {
			errs = append(errs, fmt.Sprintf("tags.custom_tags[%d] must not be empty", i))
			continue
		}
		if strings.ContainsAny(tag, " \t") {
			errs = append(errs, fmt.Sprintf("tags.custom_tags[%d] %q must not contain whitespace", i, tag))
		}
	}
	if strings.ContainsAny(c.Tags.Prefixes, " \t") {
		errs = append(errs, fmt.Sprintf("tags.prefixes %q must not contain whitespace", c.Tags.Prefixes))
	}

	// Validate watch configuration
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Sprintf("watch.debounce must be positive, got %v", c.Watch.Debounce))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}

// AnchorScanConfig returns the scanner configuration derived from the tags
// section: the enabled built-ins (all of them when keywords is empty) plus
// any custom tags.
func (c *Config) AnchorScanConfig() anchor.ScanConfig {
	keywords := c.Tags.Keywords
	if len(keywords) == 0 {
		keywords = anchor.DefaultTags
	}

	tags := make([]string, 0, len(keywords)+len(c.Tags.CustomTags))
	tags = append(tags, keywords...)
	tags = append(tags, c.Tags.CustomTags...)

	return anchor.ScanConfig{
		Tags:     tags,
		Prefixes: c.Tags.Prefixes,
	}
}

// WalkerOptions returns the file enumeration options from the scan section.
func (c *Config) WalkerOptions() anchor.WalkerOptions {
	return anchor.WalkerOptions{
		Extensions:  c.Scan.Extensions,
		IgnoreGlobs: c.Scan.IgnoreGlobs,
		MaxFileSize: c.Scan.MaxFileSize,
	}
}

// ReflowOptions returns the reflow engine options from the reflow section.
func (c *Config) ReflowOptions() comment.ReflowOptions {
	return comment.ReflowOptions{
		MaxLineLength:      c.Reflow.MaxLineLength,
		CompactSummaries:   c.Reflow.CompactSummaries,
		PreserveBlankLines: c.Reflow.PreserveBlankLines,
	}
}

// CachePath returns the cache file location for a scan rooted at root.
func (c *Config) CachePath(root string) string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return anchor.DefaultCachePath(root)
}
