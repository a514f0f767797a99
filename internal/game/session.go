/*
Package game
File: session.go
Description:
    Session is the per-tick driver. The host calls Tick once per simulation
    step (~60 Hz); every TicksPerSweep ticks the session evaluates every
    cached player, inflicts the resulting damage and publishes one Signal
    per player for HUD clients.

    A fault in one player's evaluation (error or panic from a host adapter)
    is logged with the player's identity and only that player is skipped
    for the sweep.

    Session methods are safe to call from other goroutines (status API,
    registration hook); the tick itself is the only writer of player state.
*/

package game

import (
	"slices"
	"sync"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
	"github.com/everforgeworks/deadly-accel/internal/logging"
)

const (
	// TicksPerSweep throttles the expensive player sweep.
	TicksPerSweep = 10

	// DamageType is the damage source name reported to the host.
	DamageType = "F = ma"
)

// Signal is the per-player output of a sweep.
type Signal struct {
	Tick            uint64  `json:"tick"`
	PlayerID        int64   `json:"player_id"`
	Name            string  `json:"name"`
	State           string  `json:"state"`
	Reason          string  `json:"reason,omitempty"`
	Damaged         bool    `json:"damaged"`
	Damage          float64 `json:"damage"`
	Accel           float64 `json:"accel"`
	ToxicityPercent float64 `json:"toxicity_percent"`
	JuicePercent    float64 `json:"juice_percent"`
}

// SignalSink receives signals. Publish is called with the session lock
// held and must not block.
type SignalSink interface {
	Publish(Signal)
}

// SignalSinkFunc adapts a function to SignalSink.
type SignalSinkFunc func(Signal)

func (f SignalSinkFunc) Publish(s Signal) {
	if f != nil {
		f(s)
	}
}

// PlayerSnapshot is a read-only view of a tracked player.
type PlayerSnapshot struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Toxicity float64 `json:"toxicity"`
	IFrames  int     `json:"iframes"`
}

// Option configures a Session.
type Option func(*Session)

// WithSignalSink routes sweep signals to sink.
func WithSignalSink(sink SignalSink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithLogger sets the log channels.
func WithLogger(log logging.Channels) Option {
	return func(s *Session) { s.log = log }
}

// WithJuiceTracker shares an existing catalog.
func WithJuiceTracker(t *JuiceTracker) Option {
	return func(s *Session) { s.juice = t }
}

// Session is constructed on world load and closed on unload.
type Session struct {
	mu sync.RWMutex

	host     host.Host
	settings config.Settings
	juice    *JuiceTracker
	players  *PlayerManager
	sink     SignalSink
	log      logging.Channels

	tick         uint64
	cache        map[int64]host.Player
	order        []int64
	playerBuf    []host.Player
	needsRefresh bool
}

// NewSession builds the session and compiles the cushioning table.
// An invalid cushioning entry is logged and skipped.
func NewSession(h host.Host, settings config.Settings, opts ...Option) *Session {
	s := &Session{
		host:         h,
		settings:     settings.Clone(),
		log:          logging.Discard(),
		cache:        make(map[int64]host.Player),
		needsRefresh: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.juice == nil {
		s.juice = NewJuiceTracker()
	}
	s.players = NewPlayerManager(h, s.juice, s.buildCushions(s.settings), s.log)
	return s
}

func (s *Session) buildCushions(st config.Settings) *CushionCache {
	c, err := NewCushionCache(st.CushioningBlocks)
	if err != nil {
		s.log.Game.Error("SESSION: cushioning table has invalid entries", "err", err)
	}
	return c
}

// Tick advances the session by one simulation step.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if s.needsRefresh || len(s.cache) == 0 {
		s.refreshPlayers()
		s.needsRefresh = false
	}
	if s.tick%TicksPerSweep == 0 {
		s.sweep()
	}
}

// refreshPlayers rebuilds the player cache from the host.
func (s *Session) refreshPlayers() {
	if s.host == nil {
		return
	}
	s.playerBuf = s.host.Players(s.playerBuf[:0])
	for _, p := range s.playerBuf {
		if p == nil {
			continue
		}
		s.cache[p.IdentityID()] = p
	}
	clear(s.playerBuf)

	s.order = s.order[:0]
	for id := range s.cache {
		s.order = append(s.order, id)
	}
	slices.Sort(s.order)
}

func (s *Session) sweep() {
	stale := false
	for _, id := range s.order {
		p := s.cache[id]
		if p == nil {
			s.log.Game.Debug("SESSION: found nil player, cache out of date?", "player", id)
			stale = true
			continue
		}
		if p.IsBot() {
			continue
		}
		s.updatePlayer(id, p)
	}
	if stale {
		s.refreshPlayers()
	}
}

// updatePlayer isolates one player's evaluation from the rest of the sweep.
func (s *Session) updatePlayer(id int64, p host.Player) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Game.Error("SESSION: failed to update player", "player", id, "panic", r)
		}
	}()

	out, err := s.players.Update(p, &s.settings)
	if err != nil {
		s.log.Game.Error("SESSION: failed to update player", "player", id, "err", err)
	}
	if out.State == StateUnregistered {
		return
	}
	if out.Damage > 0 {
		p.Character().DoDamage(out.Damage, DamageType)
	}
	if s.sink != nil {
		s.sink.Publish(Signal{
			Tick:            s.tick,
			PlayerID:        id,
			Name:            p.DisplayName(),
			State:           out.State.String(),
			Reason:          out.Reason,
			Damaged:         out.Damage > 0,
			Damage:          out.Damage,
			Accel:           out.Accel,
			ToxicityPercent: toxicityPercent(out.Toxicity),
			JuicePercent:    juicePercent(out.JuiceLeft),
		})
	}
}

// PlayerConnected schedules a cache refresh for the next tick.
func (s *Session) PlayerConnected(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needsRefresh = true
	s.log.Game.Info("SESSION: player connected", "player", id)
}

// PlayerDisconnected persists and drops the player.
func (s *Session) PlayerDisconnected(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.cache[id]
	delete(s.cache, id)
	s.order = slices.DeleteFunc(s.order, func(e int64) bool { return e == id })
	if ok && p != nil {
		if err := s.players.Deregister(p); err != nil {
			s.log.Game.Error("SESSION: failed to persist player", "player", id, "err", err)
		}
	} else {
		s.players.Forget(id)
	}
	s.log.Game.Info("SESSION: player disconnected", "player", id)
}

// SaveData persists every tracked player. Called on world save.
func (s *Session) SaveData() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.saveAll()
}

func (s *Session) saveAll() {
	for _, id := range s.order {
		if p := s.cache[id]; p != nil {
			if err := s.players.Save(p); err != nil {
				s.log.Game.Error("SESSION: failed to persist player", "player", id, "err", err)
			}
		}
	}
}

// Close persists all players and releases the host. The session must not
// be ticked afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveAll()
	s.cache = make(map[int64]host.Player)
	s.order = nil
	s.host = nil
}

// Settings returns a copy of the active settings.
func (s *Session) Settings() config.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// SetSettings replaces the active settings and recompiles cushioning.
func (s *Session) SetSettings(st config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = st.Clone()
	s.players.SetCushions(s.buildCushions(s.settings))
}

// UpdateSettings applies fn to a copy of the settings and installs the
// result when fn succeeds.
func (s *Session) UpdateSettings(fn func(*config.Settings) error) (config.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	edited := s.settings.Clone()
	if err := fn(&edited); err != nil {
		return s.settings.Clone(), err
	}
	s.settings = edited
	s.players.SetCushions(s.buildCushions(s.settings))
	return s.settings.Clone(), nil
}

// AddJuiceDefinition registers a juice definition between ticks.
func (s *Session) AddJuiceDefinition(def JuiceDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.juice.AddJuiceDefinition(def)
}

// JuiceDefinitions lists the registered juice.
func (s *Session) JuiceDefinitions() []JuiceDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.juice.Definitions()
}

// LookupJuice returns the definition registered for subtypeID.
func (s *Session) LookupJuice(subtypeID string) (JuiceDefinition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.juice.Lookup(subtypeID)
}

// Catalog counts registered juice types and compiled cushion entries.
func (s *Session) Catalog() (juice, cushions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.juice.Len(), s.players.cushions.Len()
}

// Players returns a snapshot of every tracked player.
func (s *Session) Players() []PlayerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.players.Tracked()
	out := make([]PlayerSnapshot, 0, len(ids))
	for _, id := range ids {
		d, _ := s.players.DataFor(id)
		snap := PlayerSnapshot{ID: id, Toxicity: d.ToxicityBuildup, IFrames: d.IFrames}
		if p := s.cache[id]; p != nil {
			snap.Name = p.DisplayName()
		}
		out = append(out, snap)
	}
	return out
}

// ToxicityFor returns a player's buildup.
func (s *Session) ToxicityFor(id int64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players.ToxicityFor(id)
}

// CurrentTick returns the number of ticks run.
func (s *Session) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

func toxicityPercent(t float64) float64 {
	return clampPercent(t / ToxicityCutoff * 100)
}

// juicePercent treats one juice unit as a full canister.
func juicePercent(units float64) float64 {
	return clampPercent(units * 100)
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
