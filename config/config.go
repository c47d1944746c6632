// Package config loads the engine configuration from an HCL file.
//
// The file sets where assets and scripts live and how the render loop and
// connector behave. Everything is optional:
//
//	assets_dir     = "assets"
//	scripts_dir    = "scripts"
//	config_script  = "config.lua"
//	fps            = 30
//	reload_every   = 5
//	script_timeout = "2s"
//	idle_backoff   = "1s"
//
//	defaults = {
//	  city = "Oslo"
//	}
//
//	display {
//	  backend = "ebiten"
//	  scale   = 12
//	}
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Display backends.
const (
	BackendEbiten   = "ebiten"
	BackendTerminal = "terminal"
	BackendHeadless = "headless"
)

// Default values for omitted attributes.
const (
	DefaultAssetsDir     = "assets"
	DefaultScriptsDir    = "scripts"
	DefaultConfigScript  = "config.lua"
	DefaultFPS           = 30
	DefaultReloadEvery   = 5
	DefaultScriptTimeout = 2 * time.Second
	DefaultArenaLimit    = 1 << 20
	DefaultSnapshotScale = 8
	DefaultIdleBackoff   = time.Second
	DefaultDisplayScale  = 12
)

// ErrInvalid is wrapped by every semantic validation failure.
var ErrInvalid = errors.New("config: invalid value")

// Config is the decoded engine configuration with defaults applied.
type Config struct {
	AssetsDir     string
	ScriptsDir    string
	ConfigScript  string
	FPS           int
	ReloadEvery   int
	ScriptTimeout time.Duration
	ArenaLimit    int
	SnapshotDir   string
	SnapshotScale int
	IdleBackoff   time.Duration
	// Defaults seeds the values visible to scripts as CONFIG.
	Defaults map[string]string
	Display  Display
}

// Display selects and sizes the presentation surface.
type Display struct {
	Backend string
	Scale   int
}

// hclConfig mirrors the file layout for gohcl.
type hclConfig struct {
	AssetsDir     *string     `hcl:"assets_dir,optional"`
	ScriptsDir    *string     `hcl:"scripts_dir,optional"`
	ConfigScript  *string     `hcl:"config_script,optional"`
	FPS           *int        `hcl:"fps,optional"`
	ReloadEvery   *int        `hcl:"reload_every,optional"`
	ScriptTimeout *string     `hcl:"script_timeout,optional"`
	ArenaLimit    *int        `hcl:"arena_limit,optional"`
	SnapshotDir   *string     `hcl:"snapshot_dir,optional"`
	SnapshotScale *int        `hcl:"snapshot_scale,optional"`
	IdleBackoff   *string     `hcl:"idle_backoff,optional"`
	Defaults      cty.Value   `hcl:"defaults,optional"`
	Display       *hclDisplay `hcl:"display,block"`
}

type hclDisplay struct {
	Backend *string `hcl:"backend,optional"`
	Scale   *int    `hcl:"scale,optional"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		AssetsDir:     DefaultAssetsDir,
		ScriptsDir:    DefaultScriptsDir,
		ConfigScript:  DefaultConfigScript,
		FPS:           DefaultFPS,
		ReloadEvery:   DefaultReloadEvery,
		ScriptTimeout: DefaultScriptTimeout,
		ArenaLimit:    DefaultArenaLimit,
		SnapshotScale: DefaultSnapshotScale,
		IdleBackoff:   DefaultIdleBackoff,
		Defaults:      map[string]string{},
		Display:       Display{Backend: BackendEbiten, Scale: DefaultDisplayScale},
	}
}

// Load parses and validates the HCL file at path.
func Load(path string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	return decode(path, file)
}

// Parse parses and validates HCL source; filename labels diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filename, diags)
	}
	return decode(filename, file)
}

func decode(filename string, file *hcl.File) (*Config, error) {
	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config file %s: %w", filename, diags)
	}

	cfg := Default()
	setString(&cfg.AssetsDir, raw.AssetsDir)
	setString(&cfg.ScriptsDir, raw.ScriptsDir)
	setString(&cfg.ConfigScript, raw.ConfigScript)
	setString(&cfg.SnapshotDir, raw.SnapshotDir)
	setInt(&cfg.FPS, raw.FPS)
	setInt(&cfg.ReloadEvery, raw.ReloadEvery)
	setInt(&cfg.ArenaLimit, raw.ArenaLimit)
	setInt(&cfg.SnapshotScale, raw.SnapshotScale)
	if raw.Display != nil {
		setString(&cfg.Display.Backend, raw.Display.Backend)
		setInt(&cfg.Display.Scale, raw.Display.Scale)
	}

	var err error
	if cfg.ScriptTimeout, err = parseDuration("script_timeout", raw.ScriptTimeout, cfg.ScriptTimeout); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if cfg.IdleBackoff, err = parseDuration("idle_backoff", raw.IdleBackoff, cfg.IdleBackoff); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if cfg.Defaults, err = stringMap(raw.Defaults); err != nil {
		return nil, fmt.Errorf("%s: defaults: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks ranges and the display backend.
func (c *Config) Validate() error {
	switch {
	case c.FPS < 1 || c.FPS > 240:
		return fmt.Errorf("%w: fps %d not in 1..240", ErrInvalid, c.FPS)
	case c.ReloadEvery < 1:
		return fmt.Errorf("%w: reload_every must be at least 1", ErrInvalid)
	case c.ScriptTimeout <= 0:
		return fmt.Errorf("%w: script_timeout must be positive", ErrInvalid)
	case c.ArenaLimit < 1:
		return fmt.Errorf("%w: arena_limit must be positive", ErrInvalid)
	case c.SnapshotScale < 1:
		return fmt.Errorf("%w: snapshot_scale must be at least 1", ErrInvalid)
	case c.IdleBackoff < 0:
		return fmt.Errorf("%w: idle_backoff must not be negative", ErrInvalid)
	case c.Display.Scale < 1:
		return fmt.Errorf("%w: display scale must be at least 1", ErrInvalid)
	}
	switch c.Display.Backend {
	case BackendEbiten, BackendTerminal, BackendHeadless:
		return nil
	default:
		return fmt.Errorf("%w: unknown display backend %q", ErrInvalid, c.Display.Backend)
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func parseDuration(name string, v *string, def time.Duration) (time.Duration, error) {
	if v == nil {
		return def, nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	return d, nil
}

// stringMap converts an object or map value into strings, the only type
// scripts see. Numbers and bools use their canonical string form.
func stringMap(v cty.Value) (map[string]string, error) {
	out := map[string]string{}
	if v.IsNull() {
		return out, nil
	}
	if !v.IsKnown() {
		return nil, fmt.Errorf("%w: value is not known", ErrInvalid)
	}
	if ty := v.Type(); !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("%w: want an object, got %s", ErrInvalid, ty.FriendlyName())
	}
	for it := v.ElementIterator(); it.Next(); {
		k, elem := it.Element()
		sv, err := convert.Convert(elem, cty.String)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalid, k.AsString(), err)
		}
		if sv.IsNull() {
			continue
		}
		out[k.AsString()] = sv.AsString()
	}
	return out, nil
}
