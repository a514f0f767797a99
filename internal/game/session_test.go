package game

import (
	"errors"
	"testing"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
	"github.com/everforgeworks/deadly-accel/internal/host/memhost"
)

// extraHost adds hand-built players to a memhost world.
type extraHost struct {
	*memhost.World
	extra []host.Player
}

func (h *extraHost) Players(dst []host.Player) []host.Player {
	return append(h.World.Players(dst), h.extra...)
}

// brokenPlayer panics when its character is read.
type brokenPlayer struct{ id int64 }

func (p brokenPlayer) IdentityID() int64         { return p.id }
func (p brokenPlayer) DisplayName() string       { return "broken" }
func (p brokenPlayer) IsBot() bool               { return false }
func (p brokenPlayer) Character() host.Character { panic("adapter fault") }

type recorder struct {
	signals []Signal
}

func (r *recorder) Publish(s Signal) { r.signals = append(r.signals, s) }

func (r *recorder) forPlayer(id int64) []Signal {
	var out []Signal
	for _, s := range r.signals {
		if s.PlayerID == id {
			out = append(out, s)
		}
	}
	return out
}

func newTestSession(t *testing.T, h host.Host) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSession(h, config.Default(), WithSignalSink(rec))
	if err := s.AddJuiceDefinition(JuiceDefinition{SubtypeID: "Blue", ConsumptionRate: 2, ToxicityPerMitigated: 4, ToxicityDecay: 1}); err != nil {
		t.Fatalf("AddJuiceDefinition: %v", err)
	}
	return s, rec
}

func runTicks(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestSessionSweepsEveryTenTicks(t *testing.T) {
	f := newShip(t)
	s, rec := newTestSession(t, f.world)

	runTicks(s, TicksPerSweep-1)
	if len(rec.signals) != 0 {
		t.Fatalf("got %d signals before the first sweep", len(rec.signals))
	}
	s.Tick()
	if len(rec.signals) != 1 {
		t.Fatalf("got %d signals after the first sweep, want 1", len(rec.signals))
	}
	runTicks(s, 3*TicksPerSweep)
	if len(rec.signals) != 4 {
		t.Fatalf("got %d signals after four sweeps, want 4", len(rec.signals))
	}
	if got := rec.signals[3].Tick; got != 4*TicksPerSweep {
		t.Fatalf("last signal tick = %d, want %d", got, 4*TicksPerSweep)
	}
}

func TestSessionAppliesDamage(t *testing.T) {
	f := newShip(t)
	f.grid.Linear = host.Vec3{X: 70}
	s, rec := newTestSession(t, f.world)

	runTicks(s, TicksPerSweep)
	want := AccelDamage(70, 0.5, &f.s)
	if !near(f.char.DamageTaken, want) {
		t.Fatalf("DamageTaken = %v, want %v", f.char.DamageTaken, want)
	}
	if f.char.LastDamage != DamageType {
		t.Fatalf("damage type = %q, want %q", f.char.LastDamage, DamageType)
	}
	sig := rec.signals[0]
	if !sig.Damaged || sig.Name != "Pilot" || sig.State != "evaluable" {
		t.Fatalf("unexpected signal %+v", sig)
	}
}

func TestSessionSignalsPercentages(t *testing.T) {
	f := newShip(t)
	f.seat.Inv.Add(DefaultCanisterTypeID, "Blue", 0.5)
	f.grid.Linear = host.Vec3{X: 52.05} // 3 m/s^2 past the safe point
	s, rec := newTestSession(t, f.world)
	s.SetSettings(func() config.Settings {
		st := config.Default()
		st.DamageScaleBase = 1
		return st
	}())

	runTicks(s, TicksPerSweep)
	sig := rec.signals[0]
	// 3 * 0.5 cushion = 1.5 damage; 0.5 units block 0.25 of it.
	if !near(sig.Damage, 1.25) {
		t.Fatalf("Damage = %v, want 1.25", sig.Damage)
	}
	if !near(sig.ToxicityPercent, 1) {
		t.Fatalf("ToxicityPercent = %v, want 1", sig.ToxicityPercent)
	}
	if sig.JuicePercent != 0 {
		t.Fatalf("JuicePercent = %v, want 0", sig.JuicePercent)
	}
}

func TestSessionInflictsDamageWhenJuiceRefused(t *testing.T) {
	f := newShip(t)
	f.seat.Inv.Add(DefaultCanisterTypeID, "Blue", 1)
	f.seat.Inv.Add(DefaultCanisterTypeID, "Red", 50)
	f.seat.Inv.Refuse = refuseSubtype("Red")
	f.grid.Linear = host.Vec3{X: 70}
	s, rec := newTestSession(t, f.world)
	if err := s.AddJuiceDefinition(JuiceDefinition{SubtypeID: "Red", ConsumptionRate: 1, ToxicityDecay: 1, Ranking: 1}); err != nil {
		t.Fatalf("AddJuiceDefinition: %v", err)
	}

	runTicks(s, TicksPerSweep)
	want := AccelDamage(70, 0.5, &f.s) - 0.5
	if !near(f.char.DamageTaken, want) {
		t.Fatalf("DamageTaken = %v, want %v", f.char.DamageTaken, want)
	}
	if len(rec.signals) != 1 || !rec.signals[0].Damaged {
		t.Fatalf("signals = %+v", rec.signals)
	}
}

func TestSessionSkipsBots(t *testing.T) {
	f := newShip(t)
	f.player.Bot = true
	s, rec := newTestSession(t, f.world)
	runTicks(s, TicksPerSweep)
	if len(rec.signals) != 0 {
		t.Fatalf("bot produced %d signals", len(rec.signals))
	}
}

func TestSessionIsolatesFaultyPlayer(t *testing.T) {
	f := newShip(t)
	f.grid.Linear = host.Vec3{X: 70}
	h := &extraHost{World: f.world, extra: []host.Player{brokenPlayer{id: 0}}}
	s, rec := newTestSession(t, h)

	runTicks(s, TicksPerSweep)
	if got := rec.forPlayer(1); len(got) != 1 {
		t.Fatalf("healthy player got %d signals, want 1", len(got))
	}
	if got := rec.forPlayer(0); len(got) != 0 {
		t.Fatalf("faulty player got %d signals, want 0", len(got))
	}
	if f.char.DamageTaken <= 0 {
		t.Fatalf("healthy player skipped")
	}
}

func TestSessionDisconnectPersists(t *testing.T) {
	f := newShip(t)
	f.seat.Inv.Add(DefaultCanisterTypeID, "Blue", 100)
	f.grid.Linear = host.Vec3{X: 70}
	s, _ := newTestSession(t, f.world)

	runTicks(s, TicksPerSweep)
	tox := s.ToxicityFor(1)
	if tox <= 0 {
		t.Fatalf("ToxicityFor = %v, want buildup", tox)
	}

	f.world.RemovePlayer(1)
	s.PlayerDisconnected(1)
	if got := s.ToxicityFor(1); got != 0 {
		t.Fatalf("ToxicityFor after disconnect = %v, want 0", got)
	}
	blob, ok := f.char.Store.Get(StorageKey)
	if !ok {
		t.Fatalf("nothing persisted on disconnect")
	}
	d, err := DecodePlayerData(blob)
	if err != nil {
		t.Fatalf("DecodePlayerData: %v", err)
	}
	if !near(d.ToxicityBuildup, tox) {
		t.Fatalf("persisted toxicity = %v, want %v", d.ToxicityBuildup, tox)
	}
}

func TestSessionPlayersSnapshot(t *testing.T) {
	f := newShip(t)
	s, _ := newTestSession(t, f.world)
	runTicks(s, TicksPerSweep)

	players := s.Players()
	if len(players) != 1 || players[0].ID != 1 || players[0].Name != "Pilot" {
		t.Fatalf("Players = %+v", players)
	}
}

func TestSessionUpdateSettings(t *testing.T) {
	f := newShip(t)
	s, _ := newTestSession(t, f.world)

	boom := errors.New("boom")
	if _, err := s.UpdateSettings(func(st *config.Settings) error {
		st.SafeMaximum = 1
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if s.Settings().SafeMaximum != config.Default().SafeMaximum {
		t.Fatalf("failed update leaked into settings")
	}

	// Dropping the cushion for the pilot's seat takes effect next sweep.
	got, err := s.UpdateSettings(func(st *config.Settings) error {
		st.CushioningBlocks = nil
		return nil
	})
	if err != nil || len(got.CushioningBlocks) != 0 {
		t.Fatalf("UpdateSettings = %+v, %v", got, err)
	}
	f.grid.Linear = host.Vec3{X: 70}
	runTicks(s, TicksPerSweep)
	want := AccelDamage(70, 0, &f.s)
	if !near(f.char.DamageTaken, want) {
		t.Fatalf("DamageTaken = %v, want uncushioned %v", f.char.DamageTaken, want)
	}
}

func TestSessionClosePersistsEveryone(t *testing.T) {
	f := newShip(t)
	s, _ := newTestSession(t, f.world)
	runTicks(s, TicksPerSweep)
	s.Close()
	if _, ok := f.char.Store.Get(StorageKey); !ok {
		t.Fatalf("Close did not persist the player")
	}
}
