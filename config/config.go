// Package config loads a csdemo parse configuration from YAML, the same
// layering the teacher uses for deployment config in cmd/sdb and
// elasticproxy: an optional file provides defaults, and CLI flags (applied
// by the caller, not this package) override individual fields afterward.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// File is the on-disk shape of a csdemo settings file (SPEC_FULL §10).
type File struct {
	WantedPlayerProps []string `json:"wanted_player_props"`
	WantedOtherProps  []string `json:"wanted_other_props"`
	WantedEvents      []string `json:"wanted_events"`
	ParseAllPackets   bool     `json:"parse_all_packets"`
	ParseProjectiles  bool     `json:"parse_projectiles"`
	ParseGrenades     bool     `json:"parse_grenades"`
	ParseChat         bool     `json:"parse_chat"`
	ParseItemDrops    bool     `json:"parse_item_drops"`
	ParseVoice        bool     `json:"parse_voice"`
	CacheDir          string   `json:"cache_dir"`
}

// Load reads and unmarshals a YAML settings file. sigs.k8s.io/yaml decodes
// YAML by first converting it to JSON, so File's struct tags are `json`
// tags, matching the teacher's own sigs.k8s.io/yaml-backed config types.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return f, nil
}

// Merge overlays non-zero fields of override onto f (booleans are OR-ed).
// The CLI uses it to layer its flag-derived settings over a loaded file
// (same order as the teacher's cmd/sdb show_config.go: file first, flags
// win).
func (f File) Merge(override File) File {
	out := f
	if len(override.WantedPlayerProps) > 0 {
		out.WantedPlayerProps = override.WantedPlayerProps
	}
	if len(override.WantedOtherProps) > 0 {
		out.WantedOtherProps = override.WantedOtherProps
	}
	if len(override.WantedEvents) > 0 {
		out.WantedEvents = override.WantedEvents
	}
	if override.CacheDir != "" {
		out.CacheDir = override.CacheDir
	}
	out.ParseAllPackets = out.ParseAllPackets || override.ParseAllPackets
	out.ParseProjectiles = out.ParseProjectiles || override.ParseProjectiles
	out.ParseGrenades = out.ParseGrenades || override.ParseGrenades
	out.ParseChat = out.ParseChat || override.ParseChat
	out.ParseItemDrops = out.ParseItemDrops || override.ParseItemDrops
	out.ParseVoice = out.ParseVoice || override.ParseVoice
	return out
}
