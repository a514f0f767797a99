/*
Package config
File: settings.go
Description:
    Defines the Settings record shared by the damage core, the config store
    and the command table. The struct maps directly onto the YAML config
    file and the JSON status API.

    The core treats Settings as read-only during a tick.
*/

package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// CurrentVersionNumber increases on breaking changes to the file layout.
// Loaded files with an older version are backed up and replaced by defaults.
const CurrentVersionNumber = 3

// StandardGravity is one g in m/s^2.
const StandardGravity = 9.81

// DefaultCushionTypeID is the block type used when an entry omits one.
const DefaultCushionTypeID = "MyObjectBuilder_Cockpit"

var ErrInvalidSettings = errors.New("invalid settings")

// CushionEntry assigns a damage reduction factor to a seat block.
type CushionEntry struct {
	TypeID        string  `yaml:"type_id" json:"type_id"`               // Block type (defaults to cockpit)
	SubtypeID     string  `yaml:"subtype_id" json:"subtype_id"`         // Block subtype, e.g. "LargeBlockCockpit"
	CushionFactor float64 `yaml:"cushion_factor" json:"cushion_factor"` // 0 = no cushioning, must stay below 1
}

// Settings is the process-wide configuration.
type Settings struct {
	VersionNumber int `yaml:"version_number" json:"version_number"`

	CushioningBlocks []CushionEntry `yaml:"cushioning_blocks" json:"cushioning_blocks"`

	SafeMaximum     float64 `yaml:"safe_maximum" json:"safe_maximum"`           // m/s^2 before damage starts
	DamageScaleBase float64 `yaml:"damage_scale_base" json:"damage_scale_base"` // Exponent applied to the excess

	IgnoreJetpack         bool     `yaml:"ignore_jetpack" json:"ignore_jetpack"`
	IgnoreRelativeDampers bool     `yaml:"ignore_relative_dampers" json:"ignore_relative_dampers"`
	IgnoreRespawnShips    bool     `yaml:"ignore_respawn_ships" json:"ignore_respawn_ships"`
	IgnoreCharacter       bool     `yaml:"ignore_character" json:"ignore_character"` // Only damage seated characters
	IgnoredGridNames      []string `yaml:"ignored_grid_names" json:"ignored_grid_names"`

	HideHUDInCreative bool `yaml:"hide_hud_in_creative" json:"hide_hud_in_creative"`

	// TimeScaling is reserved. It is carried through the file but nothing
	// reads it.
	TimeScaling int `yaml:"time_scaling" json:"time_scaling"`
}

// Default returns the settings shipped with the mod.
func Default() Settings {
	return Settings{
		VersionNumber: CurrentVersionNumber,
		CushioningBlocks: []CushionEntry{
			{TypeID: DefaultCushionTypeID, SubtypeID: "PassengerSeatLarge", CushionFactor: 0.2},
			{TypeID: DefaultCushionTypeID, SubtypeID: "PassengerSeatSmall", CushionFactor: 0.15},
			{TypeID: DefaultCushionTypeID, SubtypeID: "LargeBlockCockpit", CushionFactor: 0.5},
			{TypeID: DefaultCushionTypeID, SubtypeID: "SmallBlockCockpit", CushionFactor: 0.5},
			{TypeID: DefaultCushionTypeID, SubtypeID: "CockpitOpen", CushionFactor: 0.2},
			{TypeID: DefaultCushionTypeID, SubtypeID: "DBSmallBlockFighterCockpit", CushionFactor: 0.9},
		},
		SafeMaximum:        StandardGravity * 5,
		DamageScaleBase:    1.1,
		IgnoreJetpack:      true,
		IgnoreRespawnShips: true, // Vanilla drop pods are lethal under parachute otherwise
		HideHUDInCreative:  true,
		IgnoredGridNames:   []string{},
		TimeScaling:        2500,
	}
}

// Clone returns a deep copy so callers can edit without racing a tick.
func (s Settings) Clone() Settings {
	out := s
	out.CushioningBlocks = slices.Clone(s.CushioningBlocks)
	out.IgnoredGridNames = slices.Clone(s.IgnoredGridNames)
	return out
}

// ValidAgainst reports whether s is at least as new as other.
func (s Settings) ValidAgainst(other Settings) bool {
	return s.VersionNumber >= other.VersionNumber
}

// GridNameIgnored reports whether name is on the ignore list.
func (s Settings) GridNameIgnored(name string) bool {
	return slices.Contains(s.IgnoredGridNames, name)
}

// Validate checks the numeric invariants the damage model relies on.
func (s Settings) Validate() error {
	if !finite(s.SafeMaximum) || s.SafeMaximum < 0 {
		return fmt.Errorf("%w: safe_maximum must be finite and >= 0, got %v", ErrInvalidSettings, s.SafeMaximum)
	}
	if !finite(s.DamageScaleBase) || s.DamageScaleBase <= 0 {
		return fmt.Errorf("%w: damage_scale_base must be finite and > 0, got %v", ErrInvalidSettings, s.DamageScaleBase)
	}
	for _, e := range s.CushioningBlocks {
		if e.SubtypeID == "" {
			return fmt.Errorf("%w: cushioning entry with empty subtype", ErrInvalidSettings)
		}
		if !(e.CushionFactor >= 0 && e.CushionFactor < 1) {
			return fmt.Errorf("%w: cushion factor for %s-%s must be in [0,1), got %v",
				ErrInvalidSettings, e.TypeID, e.SubtypeID, e.CushionFactor)
		}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// normalize fills fields that older files leave empty.
func (s *Settings) normalize() {
	for i := range s.CushioningBlocks {
		if s.CushioningBlocks[i].TypeID == "" {
			s.CushioningBlocks[i].TypeID = DefaultCushionTypeID
		}
	}
	if s.IgnoredGridNames == nil {
		s.IgnoredGridNames = []string{}
	}
}
