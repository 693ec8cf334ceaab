// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/rigrun-tools/internal/schedule"
	"github.com/jeranaias/rigrun-tools/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigrun-tools configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Data     DataConfig     `toml:"data" json:"data"`
	Schedule ScheduleConfig `toml:"schedule" json:"schedule"`
	Cache    CacheConfig    `toml:"cache" json:"cache"`
	Calc     CalcConfig     `toml:"calc" json:"calc"`
	Tools    ToolsConfig    `toml:"tools" json:"tools"`
	History  HistoryConfig  `toml:"history" json:"history"`
	Server   ServerConfig   `toml:"server" json:"server"`
	UI       UIConfig       `toml:"ui" json:"ui"`
}

// DataConfig locates the document store.
type DataConfig struct {
	// Dir holds the JSON documents; "~" expands to the home directory
	Dir string `toml:"dir" json:"dir"`
}

// ScheduleConfig controls how zone-less due times and study days are read.
type ScheduleConfig struct {
	// Timezone is an IANA zone name, or "Local" for the system zone
	Timezone string `toml:"timezone" json:"timezone"`
}

// CacheConfig contains result cache configuration.
type CacheConfig struct {
	// MaxEntries bounds the in-memory result cache
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// CalcConfig limits the expression evaluator.
type CalcConfig struct {
	MaxLength int `toml:"max_length" json:"max_length"`
	MaxDepth  int `toml:"max_depth" json:"max_depth"`
}

// ToolsConfig configures the built-in tools.
type ToolsConfig struct {
	// TimeoutSecs bounds network-backed tools without their own timeout
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// Offline blocks every non-loopback request
	Offline   bool            `toml:"offline" json:"offline"`
	UserAgent string          `toml:"user_agent" json:"user_agent"`
	Weather   WeatherConfig   `toml:"weather" json:"weather"`
	Wikipedia WikipediaConfig `toml:"wikipedia" json:"wikipedia"`
}

// WeatherConfig configures get_weather.
type WeatherConfig struct {
	APIKey         string `toml:"api_key" json:"api_key"`
	BaseURL        string `toml:"base_url" json:"base_url"`
	Units          string `toml:"units" json:"units"`
	TTLMinutes     int    `toml:"ttl_minutes" json:"ttl_minutes"`
	RequestsPerMin int    `toml:"requests_per_min" json:"requests_per_min"`
}

// WikipediaConfig configures wiki_summary.
type WikipediaConfig struct {
	BaseURL        string `toml:"base_url" json:"base_url"`
	TTLMinutes     int    `toml:"ttl_minutes" json:"ttl_minutes"`
	RequestsPerMin int    `toml:"requests_per_min" json:"requests_per_min"`
}

// HistoryConfig controls the invocation history database.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path defaults to <data dir>/history.db
	Path string `toml:"path" json:"path"`
	// RetentionDays prunes older entries on startup; 0 keeps everything
	RetentionDays int `toml:"retention_days" json:"retention_days"`
}

// ServerConfig configures the HTTP tool API started by "serve".
type ServerConfig struct {
	Port int `toml:"port" json:"port"`
	// Token enables bearer authentication when set
	Token string `toml:"token" json:"token"`
	// RequestsPerMin is the per-client request budget
	RequestsPerMin int `toml:"requests_per_min" json:"requests_per_min"`
}

// UIConfig contains terminal output configuration.
type UIConfig struct {
	// Theme is "auto", "dark", "light" or "none"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders list output through glamour on terminals
	Markdown bool `toml:"markdown" json:"markdown"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with all defaults applied.
func Default() *Config {
	return &Config{
		Version:  "1",
		Data:     DataConfig{Dir: "~/.rigrun-tools/data"},
		Schedule: ScheduleConfig{Timezone: "Local"},
		Cache:    CacheConfig{MaxEntries: 1024},
		Calc:     CalcConfig{MaxLength: 256, MaxDepth: 32},
		Tools: ToolsConfig{
			TimeoutSecs: 10,
			Weather: WeatherConfig{
				BaseURL:        "https://api.openweathermap.org/data/2.5/weather",
				Units:          "metric",
				TTLMinutes:     10,
				RequestsPerMin: 30,
			},
			Wikipedia: WikipediaConfig{
				BaseURL:        "https://en.wikipedia.org/api/rest_v1",
				TTLMinutes:     60,
				RequestsPerMin: 30,
			},
		},
		History: HistoryConfig{Enabled: true, RetentionDays: 90},
		Server:  ServerConfig{Port: 8797, RequestsPerMin: 120},
		UI:      UIConfig{Theme: "auto", Markdown: true},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigrun-tools configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun-tools"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ExpandHome replaces a leading "~" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadEnvFiles loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func LoadEnvFiles() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", path, err)
		}
	}
}

// Load loads configuration from the default locations. TOML is tried first,
// then JSON, then built-in defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		return LoadFromPath(path)
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file with full validation.
// Files ending in .json are read as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that a partial file or env override left.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Data.Dir == "" {
		c.Data.Dir = d.Data.Dir
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = d.Schedule.Timezone
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = d.Cache.MaxEntries
	}
	if c.Calc.MaxLength == 0 {
		c.Calc.MaxLength = d.Calc.MaxLength
	}
	if c.Calc.MaxDepth == 0 {
		c.Calc.MaxDepth = d.Calc.MaxDepth
	}
	if c.Tools.TimeoutSecs == 0 {
		c.Tools.TimeoutSecs = d.Tools.TimeoutSecs
	}
	w, dw := &c.Tools.Weather, d.Tools.Weather
	if w.BaseURL == "" {
		w.BaseURL = dw.BaseURL
	}
	if w.Units == "" {
		w.Units = dw.Units
	}
	if w.TTLMinutes == 0 {
		w.TTLMinutes = dw.TTLMinutes
	}
	if w.RequestsPerMin == 0 {
		w.RequestsPerMin = dw.RequestsPerMin
	}
	wk, dwk := &c.Tools.Wikipedia, d.Tools.Wikipedia
	if wk.BaseURL == "" {
		wk.BaseURL = dwk.BaseURL
	}
	if wk.TTLMinutes == 0 {
		wk.TTLMinutes = dwk.TTLMinutes
	}
	if wk.RequestsPerMin == 0 {
		wk.RequestsPerMin = dwk.RequestsPerMin
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RequestsPerMin == 0 {
		c.Server.RequestsPerMin = d.Server.RequestsPerMin
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# rigrun-tools configuration file\n")
	b.WriteString("# Generated by rigrun-tools - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path atomically with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Save writes cfg to path, choosing the format by extension.
func Save(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(c.Data.Dir) == "" {
		add("data.dir", "must not be empty")
	}
	if _, err := c.Location(); err != nil {
		add("schedule.timezone", "unknown time zone %q", c.Schedule.Timezone)
	}
	if c.Cache.MaxEntries < 1 || c.Cache.MaxEntries > 1_000_000 {
		add("cache.max_entries", "must be between 1 and 1000000, got %d", c.Cache.MaxEntries)
	}
	if c.Calc.MaxLength < 1 || c.Calc.MaxLength > 65536 {
		add("calc.max_length", "must be between 1 and 65536, got %d", c.Calc.MaxLength)
	}
	if c.Calc.MaxDepth < 1 || c.Calc.MaxDepth > 1024 {
		add("calc.max_depth", "must be between 1 and 1024, got %d", c.Calc.MaxDepth)
	}
	if c.Tools.TimeoutSecs < 1 || c.Tools.TimeoutSecs > 300 {
		add("tools.timeout_secs", "must be between 1 and 300, got %d", c.Tools.TimeoutSecs)
	}

	switch c.Tools.Weather.Units {
	case "metric", "imperial", "standard":
	default:
		add("tools.weather.units", "invalid units '%s', must be one of: metric, imperial, standard", c.Tools.Weather.Units)
	}
	if err := validateHTTPURL(c.Tools.Weather.BaseURL); err != nil {
		add("tools.weather.base_url", "%v", err)
	}
	if err := validateHTTPURL(c.Tools.Wikipedia.BaseURL); err != nil {
		add("tools.wikipedia.base_url", "%v", err)
	}
	if c.Tools.Weather.TTLMinutes < 1 {
		add("tools.weather.ttl_minutes", "must be at least 1")
	}
	if c.Tools.Wikipedia.TTLMinutes < 1 {
		add("tools.wikipedia.ttl_minutes", "must be at least 1")
	}
	if c.Tools.Weather.RequestsPerMin < 1 {
		add("tools.weather.requests_per_min", "must be at least 1")
	}
	if c.Tools.Wikipedia.RequestsPerMin < 1 {
		add("tools.wikipedia.requests_per_min", "must be at least 1")
	}

	if c.History.RetentionDays < 0 {
		add("history.retention_days", "must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestsPerMin < 1 {
		add("server.requests_per_min", "must be at least 1")
	}
	switch c.UI.Theme {
	case "auto", "dark", "light", "none":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light, none", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL has no host")
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Location returns the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	return schedule.LoadZone(c.Schedule.Timezone)
}

// DataDir returns the expanded, absolute data directory.
func (c *Config) DataDir() string {
	dir := ExpandHome(c.Data.Dir)
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// HistoryPath returns the history database path.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return ExpandHome(c.History.Path)
	}
	return filepath.Join(c.DataDir(), "history.db")
}

// ToolTimeout returns the default tool timeout.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tools.TimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGRUN_TOOLS_DATA_DIR: overrides data.dir
//   - RIGRUN_TOOLS_TZ: overrides schedule.timezone
//   - RIGRUN_TOOLS_CACHE_MAX: overrides cache.max_entries
//   - RIGRUN_TOOLS_TIMEOUT: overrides tools.timeout_secs
//   - RIGRUN_TOOLS_OFFLINE: set to "1" or "true" to block remote hosts
//   - RIGRUN_TOOLS_SERVER_TOKEN: overrides server.token
//   - OPENWEATHER_API_KEY: overrides tools.weather.api_key
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("RIGRUN_TOOLS_DATA_DIR"); dir != "" {
		c.Data.Dir = dir
	}
	if tz := os.Getenv("RIGRUN_TOOLS_TZ"); tz != "" {
		c.Schedule.Timezone = tz
	}
	if max := os.Getenv("RIGRUN_TOOLS_CACHE_MAX"); max != "" {
		if n, err := strconv.Atoi(max); err == nil {
			c.Cache.MaxEntries = n
		}
	}
	if secs := os.Getenv("RIGRUN_TOOLS_TIMEOUT"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil {
			c.Tools.TimeoutSecs = n
		}
	}
	if off := os.Getenv("RIGRUN_TOOLS_OFFLINE"); off != "" {
		c.Tools.Offline = off == "1" || strings.ToLower(off) == "true"
	}
	if token := os.Getenv("RIGRUN_TOOLS_SERVER_TOKEN"); token != "" {
		c.Server.Token = token
	}
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		c.Tools.Weather.APIKey = key
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// lookup walks a dot-separated key to its field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// Get retrieves a configuration value using dot notation (e.g. "tools.weather.units").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() || field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field
// equivalent. Matching is case-insensitive, so "api_key" finds APIKey.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.IsValid() && val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.IsValid() && val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"data.dir",
		"schedule.timezone",
		"cache.max_entries",
		"calc.max_length",
		"calc.max_depth",
		"tools.timeout_secs",
		"tools.offline",
		"tools.user_agent",
		"tools.weather.api_key",
		"tools.weather.base_url",
		"tools.weather.units",
		"tools.weather.ttl_minutes",
		"tools.weather.requests_per_min",
		"tools.wikipedia.base_url",
		"tools.wikipedia.ttl_minutes",
		"tools.wikipedia.requests_per_min",
		"history.enabled",
		"history.path",
		"history.retention_days",
		"server.port",
		"server.token",
		"server.requests_per_min",
		"ui.theme",
		"ui.markdown",
	}
}

// Clone creates a copy of the configuration. Config holds no maps or slices,
// so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Tools.Weather.APIKey != "" {
		safe.Tools.Weather.APIKey = "[REDACTED]"
	}
	if safe.Server.Token != "" {
		safe.Server.Token = "[REDACTED]"
	}
	return safe
}

// String returns the redacted config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}
