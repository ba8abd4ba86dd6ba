// This file maps the CLI context to the launcher config: defaults, then the preset, then
// an optional JSON config file, then flag overrides.

package launcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-chainstate/chainstore"
	"github.com/rony4d/go-chainstate/integration"
)

// Config aggregates everything the commands need.
type Config struct {
	DataDir    string           `json:"datadir"`
	Preset     string           `json:"preset"`
	Store      StoreConfig      `json:"store"`
	Logging    LoggingConfig    `json:"logging"`
	Validation ValidationConfig `json:"validation"`
}

// StoreConfig locates and tunes the chain state database.
type StoreConfig struct {
	InMemory  bool   `json:"inmemory"`
	Path      string `json:"path"`
	Cache     int    `json:"cache"`
	DBCache   int    `json:"dbCache"`
	DBHandles int    `json:"dbHandles"`
	Retain    uint64 `json:"retain"`
}

// LoggingConfig is the input of SetupLogging.
type LoggingConfig struct {
	Verbosity int    `json:"verbosity"`
	Format    string `json:"format"`
	Color     bool   `json:"color"`
	SentryDSN string `json:"sentry"`
}

// ValidationConfig tunes the validate command.
type ValidationConfig struct {
	Workers int `json:"workers"`
}

// ChainStore returns the chainstore configuration.
func (c StoreConfig) ChainStore() chainstore.Config {
	return chainstore.Config{
		Cache:     c.Cache,
		DBCache:   c.DBCache,
		DBHandles: c.DBHandles,
		Retain:    c.Retain,
	}
}

// DBPath returns the location of the leveldb database.
func (c Config) DBPath() string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, c.Store.Path)
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

func defaultConfig() Config {
	d := DefaultConfig()
	cfg := Config{
		DataDir: resolvePath(d.Storage.DataDir),
		Preset:  d.Storage.Preset,
		Store: StoreConfig{
			InMemory: d.Storage.InMemory,
			Path:     d.Storage.DBPath,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
			SentryDSN: d.Logging.SentryDSN,
		},
	}
	applyPreset(&cfg, integration.DefaultPreset())
	return cfg
}

func applyPreset(cfg *Config, preset integration.PresetConfig) {
	cfg.Preset = preset.Name
	cfg.Store.Cache = preset.SnapshotCache
	cfg.Store.DBCache = preset.DBCacheMB
	cfg.Store.DBHandles = preset.DBHandles
	cfg.Store.Retain = preset.Retain
	cfg.Validation.Workers = preset.Workers
}

// MakeAllConfigs merges defaults, the selected preset, the optional config file and the
// CLI overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if isSet(ctx, "preset") {
		preset, err := integration.GetPresetByName(stringFlag(ctx, "preset"))
		if err != nil {
			return Config{}, err
		}
		applyPreset(&cfg, preset)
	}

	if isSet(ctx, "config") {
		file := stringFlag(ctx, "config")
		if err := loadConfigFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if cfg.Validation.Workers <= 0 {
		return Config{}, fmt.Errorf("invalid number of workers %d", cfg.Validation.Workers)
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// Config-file / CLI wiring
// -----------------------------------------------------------------------------

func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	cfg.DataDir = resolvePath(cfg.DataDir)
	return nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if isSet(ctx, "datadir") {
		cfg.DataDir = resolvePath(stringFlag(ctx, "datadir"))
	}

	if isSet(ctx, "inmemory") {
		cfg.Store.InMemory = boolFlag(ctx, "inmemory")
	}
	if isSet(ctx, "cache") {
		cfg.Store.Cache = intFlag(ctx, "cache")
	}
	if isSet(ctx, "db.cache") {
		cfg.Store.DBCache = intFlag(ctx, "db.cache")
	}
	if isSet(ctx, "db.handles") {
		cfg.Store.DBHandles = intFlag(ctx, "db.handles")
	}
	if isSet(ctx, "retain") {
		cfg.Store.Retain = uint64Flag(ctx, "retain")
	}

	if isSet(ctx, "log.format") {
		cfg.Logging.Format = stringFlag(ctx, "log.format")
	}
	if isSet(ctx, "log.verbosity") {
		cfg.Logging.Verbosity = intFlag(ctx, "log.verbosity")
	}
	if isSet(ctx, "log.color") {
		cfg.Logging.Color = boolFlag(ctx, "log.color")
	}
	if isSet(ctx, "log.sentry") {
		cfg.Logging.SentryDSN = stringFlag(ctx, "log.sentry")
	}

	if isSet(ctx, "workers") {
		cfg.Validation.Workers = intFlag(ctx, "workers")
	}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// Flags may be given before the command (global) or after it.

func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

func stringFlag(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	return ctx.GlobalString(name)
}

func intFlag(ctx *cli.Context, name string) int {
	if ctx.IsSet(name) {
		return ctx.Int(name)
	}
	return ctx.GlobalInt(name)
}

func uint64Flag(ctx *cli.Context, name string) uint64 {
	if ctx.IsSet(name) {
		return ctx.Uint64(name)
	}
	return ctx.GlobalUint64(name)
}

func boolFlag(ctx *cli.Context, name string) bool {
	if ctx.IsSet(name) {
		return ctx.Bool(name)
	}
	return ctx.GlobalBool(name)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

// GuessWorkDir returns the working directory, or "." if it is unknown.
func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// GuessHomeDir returns the home directory of the user, or "." if it is unknown.
func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
