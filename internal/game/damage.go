/*
Package game
File: damage.go
Description:
    The damage model. Given an acceleration reading it computes:
    1. Raw damage: (accel - SafeMaximum) ^ DamageScaleBase past the safe point.
    2. Cushioned damage: raw * (1 - seat cushion factor).
    3. Juice mitigation: ranked draw-down of juice stacks, each point of
       damage blocked costing ConsumptionRate units and adding toxicity.
    4. Toxicity decay when no juice was used.

    The only side effects are on the PlayerData passed in and the juice
    removed from inventories.
*/

package game

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/everforgeworks/deadly-accel/internal/config"
)

// RawDamage is the polynomial penalty for acceleration past the safe point.
func RawDamage(accel float64, s *config.Settings) float64 {
	if accel <= s.SafeMaximum {
		return 0
	}
	return math.Pow(accel-s.SafeMaximum, s.DamageScaleBase)
}

// AccelDamage applies the seat's cushion factor to RawDamage.
func AccelDamage(accel, cushionFactor float64, s *config.Settings) float64 {
	return RawDamage(accel, s) * (1 - cushionFactor)
}

// Mitigation is the result of ApplyJuice.
type Mitigation struct {
	Damage    float64 // Damage left to apply
	Blocked   float64 // Damage absorbed by juice
	UnitsUsed float64 // Juice units removed from inventories
	Remaining float64 // Juice units left across all candidates
}

// Applied reports whether any juice was consumed.
func (m Mitigation) Applied() bool { return m.UnitsUsed > 0 }

// ApplyJuice draws down candidates in ranking order until dmg is covered
// or the candidates run out. candidates is sorted in place. Once the
// player's toxicity reaches ToxicityCutoff the damage passes through.
func ApplyJuice(dmg float64, data *PlayerData, candidates []JuiceItem) (Mitigation, error) {
	res := Mitigation{Damage: dmg}
	for _, c := range candidates {
		res.Remaining += c.Item.Amount
	}
	if data.ToxicityBuildup >= ToxicityCutoff || dmg <= 0 {
		return res, nil
	}

	slices.SortStableFunc(candidates, func(a, b JuiceItem) int {
		return cmp.Compare(a.Def.Ranking, b.Def.Ranking)
	})

	for i := range candidates {
		if res.Damage <= 0 {
			break
		}
		item := &candidates[i]
		rate := item.Def.ConsumptionRate
		if rate <= 0 || item.Item.Amount <= 0 {
			// Blocks nothing; move on rather than spin on it.
			continue
		}

		needed := res.Damage * rate
		used := math.Min(item.Item.Amount, needed)
		if err := item.Inventory.RemoveItems(item.Item.ItemID, used); err != nil {
			return res, fmt.Errorf("remove %v of %s: %w", used, item.Def.SubtypeID, err)
		}

		blocked := used / rate
		if used >= needed {
			blocked = res.Damage
		}
		res.Damage = math.Max(0, res.Damage-blocked)
		res.Blocked += blocked
		res.UnitsUsed += used
		res.Remaining -= used
		item.Item.Amount -= used

		ApplyToxicBuildup(blocked, item.Def, data)
	}
	return res, nil
}

// ApplyToxicBuildup adds the toxicity for blocked damage and tracks the
// slowest decay among the juice types used this cycle.
func ApplyToxicBuildup(blocked float64, def JuiceDefinition, data *PlayerData) {
	data.ToxicityBuildup = math.Min(data.ToxicityBuildup+def.ToxicityPerMitigated*blocked, ToxicityCutoff)
	if data.LowestToxicDecay > 0 {
		data.LowestToxicDecay = math.Min(def.ToxicityDecay, data.LowestToxicDecay)
	} else {
		data.LowestToxicDecay = def.ToxicityDecay
	}
}

// ApplyToxicityDecay drains toxicity at the cycle's decay rate. Reaching
// zero ends the cycle so the next one picks a fresh minimum.
func ApplyToxicityDecay(data *PlayerData) {
	data.ToxicityBuildup = math.Max(data.ToxicityBuildup-data.LowestToxicDecay, 0)
	if data.ToxicityBuildup == 0 {
		data.LowestToxicDecay = 0
	}
}
