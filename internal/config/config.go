// Package config loads silencecut settings from the TOML config file and
// SILENCECUT_* environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/sethvargo/go-envconfig"

	"github.com/alnah/silencecut/internal/preset"
)

// appName names the config directory.
const appName = "silencecut"

// EnvPrefix prefixes every environment override, e.g. SILENCECUT_GAP.
const EnvPrefix = "SILENCECUT_"

// Config keys, as written in config.toml.
const (
	KeyThreshold = "threshold"
	KeyGap       = "gap"
	KeyPreset    = "preset"
	KeyExtension = "extension"
	KeyDecoder   = "decoder"
	KeyWorkspace = "workspace"
	KeyManifest  = "manifest"
	KeyJobs      = "jobs"
	KeyLogLevel  = "log_level"
	KeyOutputDir = "output_dir"
	KeyKeep      = "keep"
	KeyReencode  = "reencode"
	KeyQuiet     = "quiet"
)

// Keys lists every supported key in display order.
var Keys = []string{
	KeyThreshold, KeyGap, KeyPreset, KeyExtension, KeyDecoder,
	KeyWorkspace, KeyManifest, KeyJobs, KeyLogLevel, KeyOutputDir,
	KeyKeep, KeyReencode, KeyQuiet,
}

// Config holds every tunable of a run.
type Config struct {
	Threshold float64 `toml:"threshold" env:"THRESHOLD, overwrite" validate:"gt=0,lte=1"`
	Gap       float64 `toml:"gap" env:"GAP, overwrite" validate:"gt=0"` // seconds
	Preset    string  `toml:"preset" env:"PRESET, overwrite" validate:"preset"`
	Extension string  `toml:"extension" env:"EXTENSION, overwrite" validate:"required,alphanum"`
	Decoder   string  `toml:"decoder,omitempty" env:"DECODER, overwrite"`
	Workspace string  `toml:"workspace" env:"WORKSPACE, overwrite" validate:"required"`
	Manifest  string  `toml:"manifest" env:"MANIFEST, overwrite" validate:"required"`
	Jobs      int     `toml:"jobs" env:"JOBS, overwrite" validate:"gte=0,lte=256"`
	LogLevel  string  `toml:"log_level" env:"LOG_LEVEL, overwrite" validate:"oneof=trace debug info warn error off"`
	OutputDir string  `toml:"output_dir,omitempty" env:"OUTPUT_DIR, overwrite"`
	Keep      bool    `toml:"keep" env:"KEEP, overwrite"`
	Reencode  bool    `toml:"reencode" env:"REENCODE, overwrite"`
	Quiet     bool    `toml:"quiet" env:"QUIET, overwrite"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Threshold: 0.02,
		Gap:       0.1,
		Preset:    string(preset.Default),
		Extension: "mkv",
		Workspace: "vtemp",
		Manifest:  "segmentlist.txt",
		LogLevel:  "info",
	}
}

// GapDuration returns Gap as a Duration.
func (c Config) GapDuration() time.Duration {
	return time.Duration(math.Round(c.Gap * float64(time.Second)))
}

// PresetValue returns the parsed encoder preset, falling back to the default.
func (c Config) PresetValue() preset.Preset {
	p, err := preset.Parse(c.Preset)
	if err != nil {
		return preset.Default
	}
	return p
}

// Validate checks every field.
func (c Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s=%v fails %q", ErrInvalid, tomlKey(fe.StructField()), fe.Value(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("preset", func(fl validator.FieldLevel) bool {
		return preset.Valid(fl.Field().String())
	})
	return v
}

// normalize canonicalizes values before validation.
func (c *Config) normalize() {
	c.Preset = strings.ToLower(strings.TrimSpace(c.Preset))
	c.Extension = strings.TrimPrefix(strings.TrimSpace(c.Extension), ".")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Workspace = ExpandPath(c.Workspace)
	c.Manifest = ExpandPath(c.Manifest)
	c.OutputDir = ExpandPath(c.OutputDir)
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

type loadConfig struct {
	path     string
	lookuper envconfig.Lookuper
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithFile reads settings from path instead of the default location.
func WithFile(path string) LoadOption {
	return func(c *loadConfig) { c.path = path }
}

// WithLookuper sets the environment source (for testing).
func WithLookuper(l envconfig.Lookuper) LoadOption {
	return func(c *loadConfig) { c.lookuper = l }
}

// Load builds the effective configuration.
// Precedence: defaults, then config file, then SILENCECUT_* variables.
// A missing config file is not an error.
func Load(ctx context.Context, opts ...LoadOption) (Config, error) {
	lc := loadConfig{lookuper: envconfig.OsLookuper()}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.path == "" {
		p, err := Path()
		if err != nil {
			return Config{}, err
		}
		lc.path = p
	}

	cfg := Default()
	if err := decodeFile(lc.path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lc.lookuper),
	}); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %w", ErrInvalid, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(p string, cfg *Config) error {
	f, err := os.Open(p) // #nosec G304 -- config path is constructed from the config dir or a flag
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("%w: parse %s: %w", ErrInvalid, p, err)
	}
	return nil
}

// dir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/silencecut.
func dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// ---------------------------------------------------------------------------
// config set/get/list
// ---------------------------------------------------------------------------

// readFile returns the raw key/value table of the config file.
func readFile(p string) (map[string]any, error) {
	data, err := os.ReadFile(p) // #nosec G304 -- config path is constructed from the config dir
	if err != nil {
		return nil, err
	}
	table := make(map[string]any)
	if err := toml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalid, p, err)
	}
	return table, nil
}

// Save stores a single key in the config file, keeping the other keys.
// The value is converted to the key's type and the resulting file must
// still validate.
func Save(key, value string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}

	p, err := Path()
	if err != nil {
		return err
	}

	table, err := readFile(p)
	if errors.Is(err, os.ErrNotExist) {
		table = make(map[string]any)
	} else if err != nil {
		return err
	}

	typed, err := convert(key, value)
	if err != nil {
		return err
	}
	table[key] = typed

	data, err := toml.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	check := Default()
	if err := toml.Unmarshal(data, &check); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	check.normalize()
	if err := check.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil { // #nosec G301 -- user config dir
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config file: %w", err)
	}
	return nil
}

// convert parses value into the Go type stored for key.
func convert(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case KeyThreshold, KeyGap:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number: %q", ErrInvalid, key, value)
		}
		return f, nil
	case KeyJobs:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer: %q", ErrInvalid, key, value)
		}
		return int64(n), nil
	case KeyKeep, KeyReencode, KeyQuiet:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false: %q", ErrInvalid, key, value)
		}
		return b, nil
	default:
		return value, nil
	}
}

// Get reads a single value from the config file.
// Returns an empty string if the key is not set.
func Get(key string) (string, error) {
	if !ValidKey(key) {
		return "", fmt.Errorf("%w %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys, ", "))
	}
	values, err := List()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// List returns every key set in the config file, formatted as strings.
func List() (map[string]string, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}

	table, err := readFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}

// ValidKey reports whether key is a supported config key.
func ValidKey(key string) bool {
	return slices.Contains(Keys, key)
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// tomlKey maps a struct field name to its config key.
func tomlKey(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// ResolveOutputPath resolves the final output path:
//  1. If output is absolute, use it as-is
//  2. If output is relative and outputDir is set, join them
//  3. Otherwise use output relative to the working directory
//
// All paths are cleaned using filepath.Clean.
func ResolveOutputPath(output, outputDir string) string {
	if filepath.IsAbs(output) {
		return filepath.Clean(output)
	}
	if outputDir != "" {
		return filepath.Clean(filepath.Join(outputDir, output))
	}
	return filepath.Clean(output)
}

// EnsureOutputDir checks that d can hold output files, creating it if missing.
func EnsureOutputDir(d string) error {
	if d == "" {
		return fmt.Errorf("%w: output_dir cannot be empty", ErrInvalid)
	}
	d = ExpandPath(d)

	info, err := os.Stat(d)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access directory: %w", err)
		}
		if err := os.MkdirAll(d, 0o750); err != nil { // #nosec G301 -- user output dir
			return fmt.Errorf("cannot create directory: %w", err)
		}
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, d)
	}

	// Probe writability with a throwaway file.
	f, err := os.CreateTemp(d, ".silencecut-write-test-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// ExpandPath expands a leading ~/ to the user's home directory.
func ExpandPath(p string) string {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, p[2:])
	}
	return p
}
