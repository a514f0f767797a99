/*
Package host
File: host.go
Description:
    Contracts for everything the damage core consumes from the game engine.
    The engine owns physics, ray casting, inventories, player sessions and
    per-character storage; this package only describes them.

    Implementations must return untyped nil (not a nil pointer wrapped in an
    interface) for absent optional values such as a character's seat or
    jetpack.
*/

package host

// Physics is the rigid-body state of an entity.
type Physics interface {
	LinearAcceleration() Vec3
	AngularAcceleration() Vec3
	// CenterOfMassWorld is the centre of mass in world space. Bodies without
	// a rigid body report their geometric centre.
	CenterOfMassWorld() Vec3
}

// Entity is anything placed in the world.
type Entity interface {
	EntityID() int64
	Position() Vec3
	// Physics returns nil when the entity has no physics body.
	Physics() Physics
	// TopMostParent returns the root of the entity hierarchy (the entity
	// itself when it has no parent).
	TopMostParent() Entity
}

// Grid is a ship or station.
type Grid interface {
	Entity
	CustomName() string
	IsRespawnGrid() bool
}

// Block is a seat, cockpit or any other block a character can occupy.
type Block interface {
	Entity
	TypeID() string
	SubtypeID() string
	// Grid returns nil for blocks detached from a grid.
	Grid() Grid
	// Inventory returns nil for blocks without storage.
	Inventory() Inventory
}

// MovementState mirrors the engine's character movement enumeration.
type MovementState int

const (
	MovementStanding MovementState = iota
	MovementCrouching
	MovementWalking
	MovementRunning
	MovementSprinting
	MovementJumping
	MovementFalling
	MovementFlying
	MovementSitting
	MovementLadder
	MovementLadderUp
	MovementLadderDown
	MovementLadderOut
	MovementDied
)

var movementNames = [...]string{
	MovementStanding:   "standing",
	MovementCrouching:  "crouching",
	MovementWalking:    "walking",
	MovementRunning:    "running",
	MovementSprinting:  "sprinting",
	MovementJumping:    "jumping",
	MovementFalling:    "falling",
	MovementFlying:     "flying",
	MovementSitting:    "sitting",
	MovementLadder:     "ladder",
	MovementLadderUp:   "ladder_up",
	MovementLadderDown: "ladder_down",
	MovementLadderOut:  "ladder_out",
	MovementDied:       "died",
}

func (m MovementState) String() string {
	if m < 0 || int(m) >= len(movementNames) {
		return "unknown"
	}
	return movementNames[m]
}

// ParseMovementState is the inverse of String.
func ParseMovementState(s string) (MovementState, bool) {
	for i, name := range movementNames {
		if name == s {
			return MovementState(i), true
		}
	}
	return 0, false
}

// Jetpack is the character's thruster component.
type Jetpack interface {
	Running() bool
	FinalThrust() Vec3
}

// Storage is the per-character persistent key/value blob.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Character is a player's body in the world.
type Character interface {
	Entity
	IsDead() bool
	// Parent returns the block the character is seated in, or nil.
	Parent() Block
	MovementState() MovementState
	// Jetpack returns nil when the character has none.
	Jetpack() Jetpack
	// RelativeDampeningEntity is the entity the jetpack dampers are locked
	// to, or nil.
	RelativeDampeningEntity() Entity
	Up() Vec3
	Forward() Vec3
	Storage() Storage
	DoDamage(amount float64, damageType string)
}

// Player is a connected session.
type Player interface {
	IdentityID() int64
	DisplayName() string
	IsBot() bool
	// Character is nil while the player is joining or respawning.
	Character() Character
}

// InventoryItem is one stack held in an inventory.
type InventoryItem struct {
	TypeID    string
	SubtypeID string
	Amount    float64
	ItemID    uint32
}

// Inventory is a block's item storage.
type Inventory interface {
	// Items appends the current contents to dst and returns it.
	Items(dst []InventoryItem) []InventoryItem
	RemoveItems(itemID uint32, amount float64) error
}

// Hit is a single ray intersection.
type Hit struct {
	Position Vec3
	Entity   Entity
}

// RayCaster is the engine's physics query capability.
type RayCaster interface {
	// CastRay appends every hit between from and to on the given collision
	// layer to dst and returns it.
	CastRay(from, to Vec3, layer int, dst []Hit) []Hit
}

// Host is the engine as seen by the session orchestrator.
type Host interface {
	RayCaster
	// Players appends all connected players to dst and returns it.
	Players(dst []Player) []Player
}
