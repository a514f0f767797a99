/*
Package memhost
File: world.go
Description:
    In-memory implementation of the host contracts. It stands in for the
    game engine in tests and in the companion process's scripted replays.

    Geometry is deliberately small: ray casts only intersect axis-aligned
    boxes registered with AddSurface. Physics state is whatever the caller
    (or a Scenario) writes into a Body.
*/

package memhost

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/everforgeworks/deadly-accel/internal/host"
)

// Body is the shared rigid-body state.
type Body struct {
	ID        int64
	Pos       host.Vec3
	Linear    host.Vec3 // Linear acceleration
	Angular   host.Vec3 // Angular acceleration
	CoM       host.Vec3 // Centre of mass, world space
	NoPhysics bool
}

func (b *Body) EntityID() int64                { return b.ID }
func (b *Body) Position() host.Vec3            { return b.Pos }
func (b *Body) LinearAcceleration() host.Vec3  { return b.Linear }
func (b *Body) AngularAcceleration() host.Vec3 { return b.Angular }
func (b *Body) CenterOfMassWorld() host.Vec3   { return b.CoM }

func (b *Body) Physics() host.Physics {
	if b.NoPhysics {
		return nil
	}
	return b
}

// Grid is a ship or station.
type Grid struct {
	Body
	Name    string
	Respawn bool
}

func (g *Grid) CustomName() string         { return g.Name }
func (g *Grid) IsRespawnGrid() bool        { return g.Respawn }
func (g *Grid) TopMostParent() host.Entity { return g }

// Seat is a cockpit or passenger seat.
type Seat struct {
	Body
	typeID    string
	subtypeID string
	grid      *Grid
	Inv       *Inventory
}

func (s *Seat) TypeID() string    { return s.typeID }
func (s *Seat) SubtypeID() string { return s.subtypeID }

func (s *Seat) Grid() host.Grid {
	if s.grid == nil {
		return nil
	}
	return s.grid
}

func (s *Seat) Inventory() host.Inventory {
	if s.Inv == nil {
		return nil
	}
	return s.Inv
}

func (s *Seat) TopMostParent() host.Entity {
	if s.grid != nil {
		return s.grid
	}
	return s
}

// Jetpack is a character thruster.
type Jetpack struct {
	On     bool
	Thrust host.Vec3
}

func (j *Jetpack) Running() bool          { return j.On }
func (j *Jetpack) FinalThrust() host.Vec3 { return j.Thrust }

// Storage is a character's mod storage.
type Storage struct {
	mu     sync.Mutex
	values map[string]string
}

func (s *Storage) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Storage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
}

// Character is a player's body.
type Character struct {
	Body
	Dead     bool
	Movement host.MovementState
	Pack     *Jetpack
	DampedTo host.Entity
	UpDir    host.Vec3
	FwdDir   host.Vec3
	Store    *Storage

	seat *Seat

	DamageTaken float64
	DamageHits  int
	LastDamage  string
}

// Sit places the character in seat; nil stands it up.
func (c *Character) Sit(seat *Seat) {
	c.seat = seat
	if seat != nil {
		c.Movement = host.MovementSitting
	} else {
		c.Movement = host.MovementStanding
	}
}

func (c *Character) IsDead() bool                         { return c.Dead }
func (c *Character) MovementState() host.MovementState    { return c.Movement }
func (c *Character) Up() host.Vec3                        { return c.UpDir }
func (c *Character) Forward() host.Vec3                   { return c.FwdDir }
func (c *Character) TopMostParent() host.Entity           { return c }
func (c *Character) RelativeDampeningEntity() host.Entity { return c.DampedTo }

// Position follows the seat while seated.
func (c *Character) Position() host.Vec3 {
	if c.seat != nil {
		return c.seat.Pos
	}
	return c.Pos
}

func (c *Character) Parent() host.Block {
	if c.seat == nil {
		return nil
	}
	return c.seat
}

func (c *Character) Jetpack() host.Jetpack {
	if c.Pack == nil {
		return nil
	}
	return c.Pack
}

func (c *Character) Storage() host.Storage {
	if c.Store == nil {
		return nil
	}
	return c.Store
}

func (c *Character) DoDamage(amount float64, damageType string) {
	c.DamageTaken += amount
	c.DamageHits++
	c.LastDamage = damageType
}

// Player is a connected session.
type Player struct {
	ID   int64
	Name string
	Bot  bool
	Char *Character
}

func (p *Player) IdentityID() int64   { return p.ID }
func (p *Player) DisplayName() string { return p.Name }
func (p *Player) IsBot() bool         { return p.Bot }

func (p *Player) Character() host.Character {
	if p.Char == nil {
		return nil
	}
	return p.Char
}

var ErrInsufficientItems = errors.New("not enough items")

// Inventory is a seat's item storage.
type Inventory struct {
	items  []host.InventoryItem
	nextID uint32

	// Refuse, when set, can veto a removal the way a locked container does.
	Refuse func(item host.InventoryItem) error
}

// Add puts a new stack in the inventory and returns its item id.
func (inv *Inventory) Add(typeID, subtypeID string, amount float64) uint32 {
	inv.nextID++
	inv.items = append(inv.items, host.InventoryItem{
		TypeID:    typeID,
		SubtypeID: subtypeID,
		Amount:    amount,
		ItemID:    inv.nextID,
	})
	return inv.nextID
}

// Amount returns the quantity of a stack, 0 when it is gone.
func (inv *Inventory) Amount(itemID uint32) float64 {
	for _, it := range inv.items {
		if it.ItemID == itemID {
			return it.Amount
		}
	}
	return 0
}

func (inv *Inventory) Items(dst []host.InventoryItem) []host.InventoryItem {
	return append(dst, inv.items...)
}

const amountEpsilon = 1e-9

func (inv *Inventory) RemoveItems(itemID uint32, amount float64) error {
	for i := range inv.items {
		if inv.items[i].ItemID != itemID {
			continue
		}
		if inv.Refuse != nil {
			if err := inv.Refuse(inv.items[i]); err != nil {
				return err
			}
		}
		if amount > inv.items[i].Amount+amountEpsilon {
			return fmt.Errorf("%w: item %d has %v, want %v", ErrInsufficientItems, itemID, inv.items[i].Amount, amount)
		}
		inv.items[i].Amount -= amount
		if inv.items[i].Amount <= amountEpsilon {
			inv.items = slices.Delete(inv.items, i, i+1)
		}
		return nil
	}
	return fmt.Errorf("%w: item %d not found", ErrInsufficientItems, itemID)
}

// Surface is a ray-castable box owned by an entity.
type Surface struct {
	Owner    host.Entity
	Min, Max host.Vec3
	Layer    int
}

// World is the in-memory engine.
type World struct {
	nextID   int64
	players  []*Player
	surfaces []Surface
}

func New() *World {
	return &World{}
}

func (w *World) allocID() int64 {
	w.nextID++
	return w.nextID
}

func defaultBody(id int64, pos host.Vec3) Body {
	return Body{ID: id, Pos: pos, CoM: pos}
}

// NewGrid creates a grid centred at pos.
func (w *World) NewGrid(name string, pos host.Vec3) *Grid {
	return &Grid{Body: defaultBody(w.allocID(), pos), Name: name}
}

// NewSeat creates a seat on g at pos. g may be nil.
func (w *World) NewSeat(g *Grid, typeID, subtypeID string, pos host.Vec3) *Seat {
	return &Seat{
		Body:      defaultBody(w.allocID(), pos),
		typeID:    typeID,
		subtypeID: subtypeID,
		grid:      g,
		Inv:       &Inventory{},
	}
}

// NewCharacter creates an upright character facing +X at pos.
func (w *World) NewCharacter(pos host.Vec3) *Character {
	return &Character{
		Body:   defaultBody(w.allocID(), pos),
		UpDir:  host.Vec3{Y: 1},
		FwdDir: host.Vec3{X: 1},
		Store:  &Storage{},
	}
}

// AddPlayer connects a player controlling ch.
func (w *World) AddPlayer(id int64, name string, ch *Character) *Player {
	p := &Player{ID: id, Name: name, Char: ch}
	w.players = append(w.players, p)
	return p
}

// RemovePlayer disconnects a player.
func (w *World) RemovePlayer(id int64) {
	w.players = slices.DeleteFunc(w.players, func(p *Player) bool { return p.ID == id })
}

// Player looks up a connected player.
func (w *World) Player(id int64) *Player {
	for _, p := range w.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (w *World) Players(dst []host.Player) []host.Player {
	for _, p := range w.players {
		dst = append(dst, p)
	}
	return dst
}

// AddSurface registers a box for ray casts.
func (w *World) AddSurface(owner host.Entity, min, max host.Vec3, layer int) {
	w.surfaces = append(w.surfaces, Surface{Owner: owner, Min: min, Max: max, Layer: layer})
}

// CastRay returns hits on layer ordered by distance from from.
func (w *World) CastRay(from, to host.Vec3, layer int, dst []host.Hit) []host.Hit {
	start := len(dst)
	dir := to.Sub(from)
	for _, s := range w.surfaces {
		if s.Layer != layer {
			continue
		}
		if t, ok := segmentBox(from, dir, s.Min, s.Max); ok {
			dst = append(dst, host.Hit{Position: from.Add(dir.Scale(t)), Entity: s.Owner})
		}
	}
	added := dst[start:]
	slices.SortFunc(added, func(a, b host.Hit) int {
		da, db := host.DistanceSquared(a.Position, from), host.DistanceSquared(b.Position, from)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
	return dst
}

// segmentBox intersects from + t*dir, t in [0,1], with an AABB using the
// slab method. It returns the entry parameter.
func segmentBox(from, dir, min, max host.Vec3) (float64, bool) {
	tmin, tmax := 0.0, 1.0
	axes := [3][4]float64{
		{from.X, dir.X, min.X, max.X},
		{from.Y, dir.Y, min.Y, max.Y},
		{from.Z, dir.Z, min.Z, max.Z},
	}
	for _, a := range axes {
		o, d, lo, hi := a[0], a[1], a[2], a[3]
		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}
