package game

import (
	"math"
	"testing"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
	"github.com/everforgeworks/deadly-accel/internal/host/memhost"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestRawDamageBelowSafePointIsZero(t *testing.T) {
	s := config.Default()
	for _, accel := range []float64{0, 9.81, s.SafeMaximum} {
		if got := RawDamage(accel, &s); got != 0 {
			t.Fatalf("RawDamage(%v) = %v, want 0", accel, got)
		}
	}
}

func TestAccelDamageDefaults(t *testing.T) {
	s := config.Default()

	got := AccelDamage(60, 0, &s)
	if math.Abs(got-13.9109) > 1e-3 {
		t.Fatalf("AccelDamage(60, 0) = %v, want ~13.911", got)
	}

	cushioned := AccelDamage(60, 0.7, &s)
	if !near(cushioned, got*0.3) {
		t.Fatalf("AccelDamage(60, 0.7) = %v, want %v", cushioned, got*0.3)
	}
}

func TestAccelDamageMonotonic(t *testing.T) {
	s := config.Default()
	prev := 0.0
	for accel := 0.0; accel < 400; accel += 2.5 {
		d := AccelDamage(accel, 0, &s)
		if d < prev {
			t.Fatalf("damage fell from %v to %v at accel %v", prev, d, accel)
		}
		prev = d
	}
}

func TestAccelDamageCushionProportional(t *testing.T) {
	s := config.Settings{SafeMaximum: 10, DamageScaleBase: 1}
	for _, factor := range []float64{0, 0.25, 0.5, 0.9} {
		got := AccelDamage(25, factor, &s)
		want := 15 * (1 - factor)
		if !near(got, want) {
			t.Fatalf("AccelDamage(25, %v) = %v, want %v", factor, got, want)
		}
	}
}

type stack struct {
	def    JuiceDefinition
	amount float64
}

func juiceFixture(t *testing.T, stacks ...stack) (*memhost.Inventory, []JuiceItem) {
	t.Helper()
	inv := &memhost.Inventory{}
	var items []JuiceItem
	for _, st := range stacks {
		id := inv.Add(DefaultCanisterTypeID, st.def.SubtypeID, st.amount)
		items = append(items, JuiceItem{
			Def:       st.def,
			Item:      host.InventoryItem{TypeID: DefaultCanisterTypeID, SubtypeID: st.def.SubtypeID, Amount: st.amount, ItemID: id},
			Inventory: inv,
		})
	}
	return inv, items
}

func TestApplyJuicePartialDrawDown(t *testing.T) {
	def := JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 2, ToxicityPerMitigated: 4, ToxicityDecay: 1}
	inv, items := juiceFixture(t, stack{def, 1})
	var data PlayerData

	res, err := ApplyJuice(10, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if !near(res.UnitsUsed, 1) {
		t.Fatalf("UnitsUsed = %v, want 1", res.UnitsUsed)
	}
	if !near(res.Blocked, 0.5) {
		t.Fatalf("Blocked = %v, want 0.5", res.Blocked)
	}
	if !near(res.Damage, 9.5) {
		t.Fatalf("Damage = %v, want 9.5", res.Damage)
	}
	if !near(data.ToxicityBuildup, 2) {
		t.Fatalf("ToxicityBuildup = %v, want 2", data.ToxicityBuildup)
	}
	if data.LowestToxicDecay != 1 {
		t.Fatalf("LowestToxicDecay = %v, want 1", data.LowestToxicDecay)
	}
	if got := inv.Amount(items[0].Item.ItemID); got != 0 {
		t.Fatalf("stack left with %v, want exhausted", got)
	}
	if res.Remaining > 1e-9 {
		t.Fatalf("Remaining = %v, want 0", res.Remaining)
	}
}

func TestApplyJuiceFullyCovers(t *testing.T) {
	def := JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 0.5, ToxicityPerMitigated: 1, ToxicityDecay: 2}
	inv, items := juiceFixture(t, stack{def, 10})
	var data PlayerData

	res, err := ApplyJuice(6, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if res.Damage != 0 {
		t.Fatalf("Damage = %v, want exactly 0", res.Damage)
	}
	if !near(res.UnitsUsed, 3) {
		t.Fatalf("UnitsUsed = %v, want 3", res.UnitsUsed)
	}
	if !near(inv.Amount(items[0].Item.ItemID), 7) {
		t.Fatalf("stack left with %v, want 7", inv.Amount(items[0].Item.ItemID))
	}
	if !near(res.Remaining, 7) {
		t.Fatalf("Remaining = %v, want 7", res.Remaining)
	}
}

func TestApplyJuiceRankingOrder(t *testing.T) {
	cheap := JuiceDefinition{SubtypeID: "Cheap", ConsumptionRate: 1, ToxicityPerMitigated: 1, ToxicityDecay: 3, Ranking: 0}
	premium := JuiceDefinition{SubtypeID: "Premium", ConsumptionRate: 1, ToxicityPerMitigated: 1, ToxicityDecay: 1, Ranking: 5}
	// Premium listed first; ranking must still drain Cheap first.
	inv, items := juiceFixture(t, stack{premium, 10}, stack{cheap, 2})
	premiumID, cheapID := items[0].Item.ItemID, items[1].Item.ItemID
	var data PlayerData

	res, err := ApplyJuice(5, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if res.Damage != 0 {
		t.Fatalf("Damage = %v, want 0", res.Damage)
	}
	if got := inv.Amount(cheapID); got != 0 {
		t.Fatalf("cheap stack = %v, want exhausted", got)
	}
	if got := inv.Amount(premiumID); !near(got, 7) {
		t.Fatalf("premium stack = %v, want 7", got)
	}
	if data.LowestToxicDecay != 1 {
		t.Fatalf("LowestToxicDecay = %v, want the slower decay 1", data.LowestToxicDecay)
	}
	if !near(data.ToxicityBuildup, 5) {
		t.Fatalf("ToxicityBuildup = %v, want 5", data.ToxicityBuildup)
	}
}

func TestApplyJuiceBypassedAtCutoff(t *testing.T) {
	def := JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 1, ToxicityPerMitigated: 1}
	inv, items := juiceFixture(t, stack{def, 10})
	data := PlayerData{ToxicityBuildup: ToxicityCutoff}

	res, err := ApplyJuice(4, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if res.Damage != 4 || res.Applied() {
		t.Fatalf("got damage %v applied %v, want 4 unmitigated", res.Damage, res.Applied())
	}
	if got := inv.Amount(items[0].Item.ItemID); got != 10 {
		t.Fatalf("stack = %v, want untouched", got)
	}
	if !near(res.Remaining, 10) {
		t.Fatalf("Remaining = %v, want 10", res.Remaining)
	}
}

func TestApplyJuiceSkipsZeroRate(t *testing.T) {
	broken := JuiceDefinition{SubtypeID: "Inert", ConsumptionRate: 0}
	good := JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 1, Ranking: 1}
	_, items := juiceFixture(t, stack{broken, 5}, stack{good, 5})
	var data PlayerData

	res, err := ApplyJuice(3, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if res.Damage != 0 || !near(res.UnitsUsed, 3) {
		t.Fatalf("got damage %v units %v, want 0 and 3", res.Damage, res.UnitsUsed)
	}
}

func TestApplyJuiceNoDamageUsesNothing(t *testing.T) {
	def := JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 1}
	_, items := juiceFixture(t, stack{def, 2})
	var data PlayerData

	res, err := ApplyJuice(0, &data, items)
	if err != nil {
		t.Fatalf("ApplyJuice: %v", err)
	}
	if res.Applied() {
		t.Fatalf("juice used for zero damage")
	}
}

func TestToxicityCapAndDecay(t *testing.T) {
	var data PlayerData
	def := JuiceDefinition{ToxicityPerMitigated: 30, ToxicityDecay: 4}
	ApplyToxicBuildup(10, def, &data)
	if data.ToxicityBuildup != ToxicityCutoff {
		t.Fatalf("ToxicityBuildup = %v, want capped at %v", data.ToxicityBuildup, ToxicityCutoff)
	}

	ApplyToxicBuildup(1, JuiceDefinition{ToxicityDecay: 10}, &data)
	if data.LowestToxicDecay != 4 {
		t.Fatalf("LowestToxicDecay = %v, want 4", data.LowestToxicDecay)
	}

	steps := 0
	for data.ToxicityBuildup > 0 {
		ApplyToxicityDecay(&data)
		steps++
		if steps > 100 {
			t.Fatalf("toxicity never drained")
		}
	}
	if steps != 25 {
		t.Fatalf("drained in %d steps, want 25", steps)
	}
	if data.LowestToxicDecay != 0 {
		t.Fatalf("LowestToxicDecay = %v, want reset to 0", data.LowestToxicDecay)
	}
}

func TestToxicityDecayNeverNegative(t *testing.T) {
	data := PlayerData{ToxicityBuildup: 1, LowestToxicDecay: 5}
	ApplyToxicityDecay(&data)
	if data.ToxicityBuildup != 0 {
		t.Fatalf("ToxicityBuildup = %v, want 0", data.ToxicityBuildup)
	}
}
