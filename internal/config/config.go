// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// =============================================================================
// CONFIG STRUCTURE
// =============================================================================

// Config is the top-level configuration.
type Config struct {
	Version string `toml:"version"`

	API  APIConfig  `toml:"api"`
	Chat ChatConfig `toml:"chat"`
	UI   UIConfig   `toml:"ui"`
	Log  LogConfig  `toml:"log"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL is the API root, e.g. http://localhost:3000/api
	BaseURL string `toml:"base_url"`

	// Timeout bounds a single non-streaming request.
	Timeout Duration `toml:"timeout"`

	// RequestsPerSecond throttles outgoing requests; 0 disables it.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// ChatConfig configures the conversation view.
type ChatConfig struct {
	// ThreadID groups messages for server-side history. Generated on
	// first run.
	ThreadID string `toml:"thread_id"`

	RenderMarkdown bool `toml:"render_markdown"`

	// MaxResultLines truncates raw tool results that have no chart.
	MaxResultLines int `toml:"max_result_lines"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme          string   `toml:"theme"` // auto, dark, light
	TooltipDismiss Duration `toml:"tooltip_dismiss"`
	Mouse          bool     `toml:"mouse"`

	// Currency is the ISO 4217 code used for amounts.
	Currency string `toml:"currency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	Pretty     bool   `toml:"pretty"`
}

// Duration is a time.Duration written as a string ("2.2s") in TOML.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration. The thread ID is left empty;
// Load assigns one.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:           "http://localhost:3000/api",
			Timeout:           Duration{30 * time.Second},
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Chat: ChatConfig{
			RenderMarkdown: true,
			MaxResultLines: 20,
		},
		UI: UIConfig{
			Theme:          "auto",
			TooltipDismiss: Duration{2200 * time.Millisecond},
			Mouse:          true,
			Currency:       "USD",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Chat.MaxResultLines == 0 {
		c.Chat.MaxResultLines = d.Chat.MaxResultLines
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.TooltipDismiss.Duration == 0 {
		c.UI.TooltipDismiss = d.UI.TooltipDismiss
	}
	if c.UI.Currency == "" {
		c.UI.Currency = d.UI.Currency
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.File == "" {
		if dir, err := Dir(); err == nil {
			c.Log.File = filepath.Join(dir, "logs", "fintrack.log")
		}
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the fintrack directory, ~/.fintrack unless FINTRACK_HOME is
// set.
func Dir() (string, error) {
	if dir := os.Getenv("FINTRACK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fintrack"), nil
}

// Path returns the config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CredentialsPath returns where the session credentials are stored.
func CredentialsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.toml"), nil
}

// TranscriptsPath returns the SQLite transcript database path.
func TranscriptsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts.db"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file. A missing file yields defaults. The
// first load generates a thread ID and saves it so the chat history
// survives restarts.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the config at path, applies environment overrides and
// validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	_, statErr := os.Stat(path)
	exists := statErr == nil
	if exists {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	generated := false
	if cfg.Chat.ThreadID == "" {
		cfg.Chat.ThreadID = uuid.NewString()
		generated = true
	}
	if generated {
		// Persist before env overrides so they are not written back.
		if err := SaveTo(cfg, path); err != nil && exists {
			return nil, fmt.Errorf("save generated thread id: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default path.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg to path with 0600 permissions, replacing the file
// atomically.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	fmt.Fprintln(tmp, "# fintrack configuration file")
	fmt.Fprintln(tmp, "# Edit with care, or use `fintrack config set <key> <value>`.")
	fmt.Fprintln(tmp, "")

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return os.Rename(tmpName, path)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalid) hold for any validation failure.
func (e ValidateErrors) Is(target error) bool {
	return target == ErrInvalid
}

var (
	validThemes    = map[string]bool{"auto": true, "dark": true, "light": true}
	validLogLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
)

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.API.BaseURL),
		})
	}
	if c.API.Timeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout", Message: "must not be negative"})
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "api.requests_per_second", Message: "must not be negative"})
	}
	if c.API.Burst < 0 {
		errs = append(errs, ValidationError{Field: "api.burst", Message: "must not be negative"})
	}

	if c.Chat.MaxResultLines < 0 {
		errs = append(errs, ValidationError{Field: "chat.max_result_lines", Message: "must not be negative"})
	}

	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}
	if d := c.UI.TooltipDismiss.Duration; d < 100*time.Millisecond || d > time.Minute {
		errs = append(errs, ValidationError{Field: "ui.tooltip_dismiss", Message: "must be between 100ms and 1m"})
	}
	if _, err := currency.ParseISO(c.UI.Currency); err != nil {
		errs = append(errs, ValidationError{
			Field:   "ui.currency",
			Message: fmt.Sprintf("unknown currency code '%s'", c.UI.Currency),
		})
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, ValidationError{Field: "log", Message: "sizes must not be negative"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FINTRACK_API_URL: overrides api.base_url
//   - FINTRACK_LOG_LEVEL: overrides log.level
//   - FINTRACK_THREAD_ID: overrides chat.thread_id
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FINTRACK_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("FINTRACK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FINTRACK_THREAD_ID"); v != "" {
		c.Chat.ThreadID = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Keys lists every settable key in dot notation.
func Keys() []string {
	return []string{
		"api.base_url",
		"api.timeout",
		"api.requests_per_second",
		"api.burst",
		"chat.thread_id",
		"chat.render_markdown",
		"chat.max_result_lines",
		"ui.theme",
		"ui.tooltip_dismiss",
		"ui.mouse",
		"ui.currency",
		"log.level",
		"log.file",
		"log.max_size_mb",
		"log.max_backups",
		"log.pretty",
	}
}

// Get returns the value at a dotted key such as "ui.theme".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	if d, ok := field.Interface().(Duration); ok {
		return d.String(), nil
	}
	return field.Interface(), nil
}

// Set assigns the value at a dotted key. Strings are converted to the
// field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by TOML tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, normalizeKey(part))
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct || field.Type() == reflect.TypeOf(Duration{}) {
			return reflect.Value{}, fmt.Errorf("'%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// normalizeKey accepts kebab-case and any case.
func normalizeKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		if field.Type() == reflect.TypeOf(Duration{}) {
			var d Duration
			if err := d.UnmarshalText([]byte(strVal)); err != nil {
				return fmt.Errorf("invalid duration value: %v", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
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
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				switch strings.ToLower(strVal) {
				case "yes", "on":
					boolVal = true
				case "no", "off":
					boolVal = false
				default:
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return sb.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process configuration, loading it on first access.
// A load failure falls back to defaults.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
