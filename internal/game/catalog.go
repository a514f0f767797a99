/*
Package game
File: catalog.go
Description:
    JuiceTracker is the registry of juice definitions, keyed by item
    subtype. Definitions arrive from other mods through the registration
    hook; the first registration for a subtype wins.

    AllJuiceInInv scans a single inventory for stacks of a registered
    juice. Results are unsorted; ranking is applied by the damage model.
*/

package game

import (
	"errors"
	"fmt"
	"math"

	"github.com/everforgeworks/deadly-accel/internal/host"
)

var (
	ErrDuplicateJuice    = errors.New("juice definition already registered")
	ErrInvalidDefinition = errors.New("invalid juice definition")
)

// JuiceTracker holds the registered juice definitions.
type JuiceTracker struct {
	// TypeID is the inventory item type scanned for juice.
	TypeID string

	defs  map[string]JuiceDefinition
	order []string

	items []host.InventoryItem // Reused scan buffer
}

// NewJuiceTracker creates an empty catalog scanning DefaultCanisterTypeID.
func NewJuiceTracker() *JuiceTracker {
	return &JuiceTracker{
		TypeID: DefaultCanisterTypeID,
		defs:   make(map[string]JuiceDefinition),
	}
}

func validFloat(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

// ValidateDefinition checks the fields the damage model divides or
// accumulates with.
func ValidateDefinition(def JuiceDefinition) error {
	if def.SubtypeID == "" {
		return fmt.Errorf("%w: empty subtype", ErrInvalidDefinition)
	}
	if !validFloat(def.ConsumptionRate) || !validFloat(def.ToxicityPerMitigated) || !validFloat(def.ToxicityDecay) {
		return fmt.Errorf("%w: %s has a negative or non-finite rate", ErrInvalidDefinition, def.SubtypeID)
	}
	return nil
}

// AddJuiceDefinition registers def. Duplicates are rejected and leave the
// existing entry untouched.
func (t *JuiceTracker) AddJuiceDefinition(def JuiceDefinition) error {
	if err := ValidateDefinition(def); err != nil {
		return err
	}
	if _, exists := t.defs[def.SubtypeID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJuice, def.SubtypeID)
	}
	t.defs[def.SubtypeID] = def
	t.order = append(t.order, def.SubtypeID)
	return nil
}

// Lookup returns the definition for a subtype.
func (t *JuiceTracker) Lookup(subtypeID string) (JuiceDefinition, bool) {
	def, ok := t.defs[subtypeID]
	return def, ok
}

// Definitions returns every definition in registration order.
func (t *JuiceTracker) Definitions() []JuiceDefinition {
	out := make([]JuiceDefinition, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.defs[key])
	}
	return out
}

func (t *JuiceTracker) Len() int { return len(t.defs) }

// AllJuiceInInv appends every juice stack held by inv to dst.
// A nil inventory yields dst unchanged.
func (t *JuiceTracker) AllJuiceInInv(dst []JuiceItem, inv host.Inventory) []JuiceItem {
	if inv == nil {
		return dst
	}
	t.items = inv.Items(t.items[:0])
	for _, item := range t.items {
		if item.TypeID != t.TypeID {
			continue
		}
		def, ok := t.defs[item.SubtypeID]
		if !ok {
			continue
		}
		dst = append(dst, JuiceItem{Def: def, Item: item, Inventory: inv})
	}
	return dst
}
