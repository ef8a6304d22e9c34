package satacc

import (
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// CacheType selects the L3 backing model, grounded on config.rs's
// (implicit) Simple/Ramu split reflected in simulator.rs's CacheType match.
type CacheType string

const (
	CacheSimple CacheType = "simple"
	CacheRamu   CacheType = "ramu"
)

// DramType selects the DRAM oracle's timing preset, grounded on
// config.rs::DramType.
type DramType string

const (
	DramDDR4 DramType = "ddr4"
	DramHBM  DramType = "hbm"
)

// IcntType is carried for config-surface completeness (config.rs::IcntType).
// No Config field has this type and no code reads it; the mesh/ideal choice
// is Config.IdealICNT, and there is no ring interconnect.
type IcntType string

const (
	IcntMesh  IcntType = "mesh"
	IcntRing  IcntType = "ring"
	IcntIdeal IcntType = "ideal"
)

// RunMode mirrors simulator.rs::RunMode: whether the top-level assembly
// leaves a gap between injected rounds or runs them back to back.
type RunMode string

const (
	RunModeNoGapBetweenRounds RunMode = "no_gap"
	RunModeRealRoundGap       RunMode = "real_gap"
)

// CacheGeometry mirrors cache/fast_cache.rs::CacheConfig, renamed from the
// original's "alway_hit" typo to AlwaysHit.
type CacheGeometry struct {
	Sets          uint64 `json:"sets"`
	Associativity uint64 `json:"associativity"`
	BlockSize     uint64 `json:"block_size"`
	Channels      uint64 `json:"channels"`
	AlwaysHit     bool   `json:"always_hit"`
}

// Config is the full simulator geometry, deserialized once at startup.
// Grounded on config.rs::Config; expanded per SPEC_FULL.md §6.1 with
// MaxInFlight (Open Question #1).
type Config struct {
	NWatchers       int           `json:"n_watchers"`
	NClauses        int           `json:"n_clauses"`
	NMemChannels    int           `json:"n_mem_channels"`
	ChannelCapacity int           `json:"channel_capacity"`
	L3CacheType     CacheType     `json:"l3_cache_type"`
	L1Geometry      CacheGeometry `json:"l1_geometry"`
	L3Geometry      CacheGeometry `json:"l3_geometry"`
	L1HitLatency    uint64        `json:"l1_hit_latency"`
	L3HitLatency    uint64        `json:"l3_hit_latency"`
	MissLatency     uint64        `json:"miss_latency"`
	DramPreset      DramType      `json:"dram_preset"`
	InitRunMode     RunMode       `json:"init_run_mode"`
	IdealICNT       bool          `json:"ideal_icnt"`
	LevelSync       bool          `json:"level_sync"`
	PipelinedValues bool          `json:"pipelined_values"`
	ValueMissHitL3  bool          `json:"value_miss_hit_l3"`
	MaxInFlight     int           `json:"max_in_flight"`
}

// DefaultConfig returns a small but internally consistent configuration,
// used by tests, by GetSimulator when no config path is given, and as the
// base LoadConfig decodes a config file onto.
func DefaultConfig() Config {
	return Config{
		NWatchers:       2,
		NClauses:        2,
		NMemChannels:    8,
		ChannelCapacity: 16,
		L3CacheType:     CacheSimple,
		L1Geometry:      CacheGeometry{Sets: 4, Associativity: 2, BlockSize: 64, Channels: 1, AlwaysHit: false},
		L3Geometry:      CacheGeometry{Sets: 16, Associativity: 4, BlockSize: 64, Channels: 8, AlwaysHit: false},
		L1HitLatency:    2,
		L3HitLatency:    10,
		MissLatency:     100,
		DramPreset:      DramHBM,
		InitRunMode:     RunModeNoGapBetweenRounds,
		IdealICNT:       false,
		LevelSync:       false,
		PipelinedValues: true,
		ValueMissHitL3:  false,
		MaxInFlight:     256,
	}
}

func (c Config) Validate() error {
	if c.NWatchers <= 0 {
		return errors.New("n_watchers must be positive")
	}
	if c.NClauses <= 0 {
		return errors.New("n_clauses must be positive")
	}
	if c.NMemChannels <= 0 {
		return errors.New("n_mem_channels must be positive")
	}
	if c.ChannelCapacity <= 0 {
		return errors.New("channel_capacity must be positive")
	}
	if c.MaxInFlight <= 0 {
		return errors.New("max_in_flight must be positive")
	}
	return nil
}

// LoadConfig decodes a JSON config document. The ambient format is JSON via
// json-iterator/go rather than TOML: see DESIGN.md, no TOML library
// appears anywhere in the example pack.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "cannot read config file")
	}
	cfg := DefaultConfig()
	if err := jsoniter.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot deserialize config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}
