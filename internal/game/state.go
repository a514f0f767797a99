/*
Package game
File: state.go
Description:
    PlayerManager owns the per-player state and runs one evaluation per
    player per sweep. Each evaluation lands the player in one state:

    - Unregistered: no character yet (joining, respawning). Nothing happens.
    - Dead: toxicity decays, no damage.
    - Exempt: jetpack-only acceleration, ignored grid, self-propelled
      movement, unseated with IgnoreCharacter, or I-frame grace.
      Toxicity decays, no damage.
    - Evaluable: the acceleration is classified and run through the
      damage model.

    Players are keyed by their stable identity id. Data is loaded lazily
    from the character's storage on first sight and written back on
    disconnect or world save.
*/

package game

import (
	"fmt"
	"math"
	"slices"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
	"github.com/everforgeworks/deadly-accel/internal/logging"
)

// PlayerState is the outcome class of one evaluation.
type PlayerState int

const (
	StateUnregistered PlayerState = iota
	StateDead
	StateExempt
	StateEvaluable
)

func (s PlayerState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateDead:
		return "dead"
	case StateExempt:
		return "exempt"
	case StateEvaluable:
		return "evaluable"
	default:
		return "unknown"
	}
}

// Exemption reasons reported in Outcome.Reason.
const (
	ReasonJetpack     = "jetpack"
	ReasonIgnoredGrid = "ignored_grid"
	ReasonOwnPower    = "own_power"
	ReasonUnseated    = "unseated"
	ReasonIFrames     = "iframes"
)

// Outcome is the result of one evaluation.
type Outcome struct {
	State     PlayerState
	Reason    string  // Set for StateExempt
	Accel     float64 // Reading used, m/s^2
	Damage    float64 // Damage to inflict after mitigation
	Blocked   float64 // Damage absorbed by juice
	Toxicity  float64 // Buildup after the evaluation
	JuiceLeft float64 // Juice units left in the seat, 0 when unseated
}

// PlayerManager tracks every known player.
type PlayerManager struct {
	Juice    *JuiceTracker
	cushions *CushionCache
	probe    *RayProbe
	log      logging.Channels

	players map[int64]*PlayerData
	juice   []JuiceItem // Reused candidate buffer
}

// NewPlayerManager wires the manager to its collaborators.
func NewPlayerManager(caster host.RayCaster, juice *JuiceTracker, cushions *CushionCache, log logging.Channels) *PlayerManager {
	if juice == nil {
		juice = NewJuiceTracker()
	}
	return &PlayerManager{
		Juice:    juice,
		cushions: cushions,
		probe:    NewRayProbe(caster),
		log:      log,
		players:  make(map[int64]*PlayerData),
	}
}

// SetCushions swaps the cushioning table after a settings reload.
func (m *PlayerManager) SetCushions(c *CushionCache) {
	m.cushions = c
}

// register returns the player's data, creating or loading it on first sight.
func (m *PlayerManager) register(p host.Player) *PlayerData {
	id := p.IdentityID()
	if d, ok := m.players[id]; ok {
		return d
	}
	d, found, err := loadPlayerData(p.Character())
	if err != nil {
		m.log.Game.Warn("PLAYER: discarding unreadable stored data", "player", id, "err", err)
	} else if found {
		m.log.Game.Debug("PLAYER: loaded stored data", "player", p.DisplayName())
	}
	m.players[id] = &d
	return &d
}

// Deregister persists the player's data and stops tracking them.
func (m *PlayerManager) Deregister(p host.Player) error {
	if p == nil {
		return nil
	}
	err := m.Save(p)
	delete(m.players, p.IdentityID())
	return err
}

// Forget drops a player without persisting. Used when the player object is
// already gone.
func (m *PlayerManager) Forget(id int64) {
	delete(m.players, id)
}

// Save writes the player's data into their character storage.
func (m *PlayerManager) Save(p host.Player) error {
	if p == nil {
		return nil
	}
	ch := p.Character()
	d, ok := m.players[p.IdentityID()]
	if ch == nil || !ok {
		return nil
	}
	if err := storePlayerData(ch, *d); err != nil {
		return fmt.Errorf("save player %d: %w", p.IdentityID(), err)
	}
	m.log.Game.Debug("PLAYER: saved stored data", "player", p.DisplayName())
	return nil
}

// DataFor returns a copy of the player's data.
func (m *PlayerManager) DataFor(id int64) (PlayerData, bool) {
	d, ok := m.players[id]
	if !ok {
		return PlayerData{}, false
	}
	return *d, true
}

// ToxicityFor returns the player's buildup, 0 for unknown players.
func (m *PlayerManager) ToxicityFor(id int64) float64 {
	if d, ok := m.players[id]; ok {
		return d.ToxicityBuildup
	}
	return 0
}

// Tracked returns the ids of every tracked player, sorted.
func (m *PlayerManager) Tracked() []int64 {
	ids := make([]int64, 0, len(m.players))
	for id := range m.players {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *PlayerManager) idle(d *PlayerData, state PlayerState, reason string) Outcome {
	ApplyToxicityDecay(d)
	return Outcome{State: state, Reason: reason, Toxicity: d.ToxicityBuildup}
}

// Update runs one evaluation for p. The returned damage is not applied;
// that is the caller's job.
func (m *PlayerManager) Update(p host.Player, s *config.Settings) (Outcome, error) {
	if p == nil {
		return Outcome{State: StateUnregistered}, nil
	}
	ch := p.Character()
	if ch == nil {
		// Player references lose their character while joining
		return Outcome{State: StateUnregistered}, nil
	}

	data := m.register(p)
	if data.jetpack == nil || data.characterID != ch.EntityID() {
		data.jetpack = ch.Jetpack()
		data.characterID = ch.EntityID()
	}

	if ch.IsDead() {
		return m.idle(data, StateDead, ""), nil
	}
	if JetpackExempt(data.jetpack, ch.RelativeDampeningEntity(), s) {
		return m.idle(data, StateExempt, ReasonJetpack), nil
	}

	seat := ch.Parent()
	var ref host.Entity
	if seat != nil {
		grid := seat.Grid()
		if GridIgnored(grid, s) {
			m.log.Game.Debug("PLAYER: ignored grid", "player", p.IdentityID(), "grid", grid.CustomName())
			return m.idle(data, StateExempt, ReasonIgnoredGrid), nil
		}
		ref = seat
		if grid != nil {
			ref = grid
		}
	} else {
		if s.IgnoreCharacter {
			return m.idle(data, StateExempt, ReasonUnseated), nil
		}
		standing := m.probe.GridStandingOn(ch)
		switch {
		case standing != nil:
			data.IFrames = IFrameMax
			if g, ok := standing.(host.Grid); ok && GridIgnored(g, s) {
				return m.idle(data, StateExempt, ReasonIgnoredGrid), nil
			}
			ref = standing
		case data.IFrames > 0:
			data.IFrames--
			return m.idle(data, StateExempt, ReasonIFrames), nil
		case MovingUnderOwnPower(ch.MovementState()):
			return m.idle(data, StateExempt, ReasonOwnPower), nil
		default:
			ref = ch
		}
	}

	accel, err := EntityAccel(ref, ch.Position())
	if err != nil {
		m.log.Game.Warn("PLAYER: no physics on reference body, reading zero", "player", p.IdentityID(), "err", err)
		accel = 0
	}
	return m.evaluate(seat, data, accel, s)
}

// evaluate runs the damage model for an evaluable player.
func (m *PlayerManager) evaluate(seat host.Block, data *PlayerData, accel float64, s *config.Settings) (Outcome, error) {
	out := Outcome{State: StateEvaluable, Accel: accel}
	dmg := AccelDamage(accel, m.cushions.Factor(seat), s)

	mit := Mitigation{Damage: dmg}
	if seat != nil {
		m.juice = m.Juice.AllJuiceInInv(m.juice[:0], seat.Inventory())
		var err error
		mit, err = ApplyJuice(dmg, data, m.juice)
		clear(m.juice) // drop inventory references until the next scan
		if err != nil {
			// Juice drawn before the failure is spent; the rest still lands.
			return m.fill(out, mit, data), err
		}
	}
	if !mit.Applied() {
		ApplyToxicityDecay(data)
	}
	return m.fill(out, mit, data), nil
}

func (m *PlayerManager) fill(out Outcome, mit Mitigation, data *PlayerData) Outcome {
	out.Damage = mit.Damage
	out.Blocked = mit.Blocked
	out.JuiceLeft = math.Max(mit.Remaining, 0)
	out.Toxicity = data.ToxicityBuildup
	return out
}
