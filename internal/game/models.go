/*
Package game
File: models.go
Description:
    Defines the data structures shared by the damage pipeline:
    juice definitions and the transient juice items built from inventory
    scans, and the per-player state that survives between ticks.

    No logic is performed here; this file is strictly for type definitions.
*/

package game

import "github.com/everforgeworks/deadly-accel/internal/host"

const (
	// ToxicityCutoff is the buildup at which juice stops mitigating damage.
	ToxicityCutoff = 100.0

	// IFrameMax is the number of evaluations of grace granted after the
	// character was last seen standing on something.
	IFrameMax = 3

	// DefaultCanisterTypeID is the inventory item type that carries juice.
	DefaultCanisterTypeID = "MyObjectBuilder_OxygenContainerObject"
)

// JuiceDefinition is a catalog entry registered by a content mod.
// Read-only once registered.
type JuiceDefinition struct {
	SubtypeID string `json:"subtype_id"` // Item subtype that carries this juice

	// SafePointIncrease belonged to the threshold-gate model. It is kept so
	// registration payloads stay compatible and is otherwise unused.
	SafePointIncrease float64 `json:"safe_point_increase"`

	ConsumptionRate      float64 `json:"consumption_rate"`       // Units consumed per point of damage blocked
	ToxicityPerMitigated float64 `json:"toxicity_per_mitigated"` // Toxicity gained per point of damage blocked
	ToxicityDecay        float64 `json:"toxicity_decay"`         // Toxicity lost per evaluation without juice
	Ranking              int     `json:"ranking"`                // Lower ranks are drained first
}

// JuiceItem pairs a definition with a live inventory stack.
// Rebuilt on every scan and never persisted.
type JuiceItem struct {
	Def       JuiceDefinition
	Item      host.InventoryItem
	Inventory host.Inventory
}

// PlayerData is the per-player state kept between evaluations.
type PlayerData struct {
	IFrames          int     `yaml:"iframes" json:"iframes"`
	ToxicityBuildup  float64 `yaml:"toxicity_buildup" json:"toxicity_buildup"`     // 0..ToxicityCutoff
	LowestToxicDecay float64 `yaml:"lowest_toxic_decay" json:"lowest_toxic_decay"` // Slowest decay among juice used this cycle

	// Cached per character body; refreshed when the player respawns.
	jetpack     host.Jetpack
	characterID int64
}
