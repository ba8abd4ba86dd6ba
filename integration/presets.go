// Package integration provides configuration presets for the chain state tooling.
// Presets bundle resource settings (database cache, file handles, snapshot cache,
// history retention, validation workers) into named profiles so operators can pick a
// trade-off without tweaking every flag.
//
// Usage:
//   cfg := integration.LitePreset()    // for development machines and CI
//   cfg := integration.FullPreset()    // for nodes following a live chain
//   cfg := integration.ArchivePreset() // for keeping every finalized snapshot
//
// Each preset returns a PresetConfig that the launcher merges into its config before
// applying CLI overrides.
package integration

import (
	"fmt"

	"github.com/rony4d/go-chainstate/chainstore"
)

// PresetConfig captures the tunable parameters that vary across preset profiles.
type PresetConfig struct {
	Name          string // human-readable identifier (e.g., "lite", "full")
	DBCacheMB     int    // memory allowance of the leveldb database
	DBHandles     int    // file handles of the leveldb database
	SnapshotCache int    // number of validated snapshots kept in memory
	Retain        uint64 // number of snapshots kept on disk, 0 keeps all of them
	Workers       int    // files validated concurrently by the validate command
}

func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:          "default",
		DBCacheMB:     64,   // plenty for a history of small snapshots
		DBHandles:     64,   // leveldb needs few files for this workload
		SnapshotCache: 128,  // recent snapshots answer most lookups
		Retain:        4096, // bounded history: finality only moves forward
		Workers:       4,
	}
}

// LitePreset returns a lightweight configuration for development, testing and
// low-resource environments.
//
// Trade-offs:
//   - Small caches mean more decoding and re-validation from disk
//   - A short history leaves little to fall back on after corruption
func LitePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "lite"
	cfg.DBCacheMB = 16     // fits constrained environments
	cfg.DBHandles = 16     // stays well below default ulimits
	cfg.SnapshotCache = 16 // only the hottest snapshots stay decoded
	cfg.Retain = 256       // enough for local test networks
	cfg.Workers = 2
	return cfg
}

// FullPreset returns a configuration for nodes following a live chain, where lookups of
// recent snapshots dominate.
func FullPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "full"
	cfg.DBCacheMB = 256      // keeps the recent history in the leveldb block cache
	cfg.DBHandles = 256      // more sstables open at once
	cfg.SnapshotCache = 1024 // recent snapshots never need re-validation
	cfg.Retain = 65536       // roughly a week of finality on a six second chain
	cfg.Workers = 8
	return cfg
}

// ArchivePreset returns a configuration that never prunes the snapshot history, for
// auditing and analytics.
//
// Trade-offs:
//   - Disk usage grows linearly with the number of finalized blocks stored
func ArchivePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "archive"
	cfg.DBCacheMB = 512      // history lookups are spread over the whole database
	cfg.DBHandles = 512      // the database keeps growing
	cfg.SnapshotCache = 4096 // audits revisit many snapshots
	cfg.Retain = 0           // never prune
	cfg.Workers = 8
	return cfg
}

// GetPresetByName looks up a preset by its string identifier. This helper enables CLI
// flags like --preset=full.
//
// Example:
//
//	preset, err := integration.GetPresetByName("lite")
//	if err != nil {
//	    return err
//	}
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "lite":
		return LitePreset(), nil
	case "full":
		return FullPreset(), nil
	case "archive":
		return ArchivePreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: lite, full, archive, default)", name)
	}
}

// ApplyPreset merges a preset configuration into an existing one. Non-zero fields of the
// preset override the target. Retain is always applied since 0 is meaningful.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.DBCacheMB > 0 {
		target.DBCacheMB = preset.DBCacheMB
	}
	if preset.DBHandles > 0 {
		target.DBHandles = preset.DBHandles
	}
	if preset.SnapshotCache > 0 {
		target.SnapshotCache = preset.SnapshotCache
	}
	if preset.Workers > 0 {
		target.Workers = preset.Workers
	}
	target.Retain = preset.Retain
	if preset.Name != "" {
		target.Name = preset.Name
	}
}

// StoreConfig returns the chainstore configuration matching the preset.
func (p PresetConfig) StoreConfig() chainstore.Config {
	return chainstore.Config{
		Cache:     p.SnapshotCache,
		DBCache:   p.DBCacheMB,
		DBHandles: p.DBHandles,
		Retain:    p.Retain,
	}
}
