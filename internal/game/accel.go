/*
Package game
File: accel.go
Description:
    Acceleration classification helpers.

    The reading for a body includes the tangential term from angular
    acceleration about its centre of mass, sampled at the occupant's
    position: a spinning grid accelerates its pilot even when its linear
    acceleration is zero.
*/

package game

import (
	"errors"
	"fmt"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/host"
)

var ErrNoPhysics = errors.New("entity has no physics")

// EntityAccel returns |linear + angular × (sample - CoM)| for e.
func EntityAccel(e host.Entity, sample host.Vec3) (float64, error) {
	if e == nil {
		return 0, fmt.Errorf("%w: nil entity", ErrNoPhysics)
	}
	phys := e.Physics()
	if phys == nil {
		return 0, fmt.Errorf("%w: entity %d", ErrNoPhysics, e.EntityID())
	}
	lever := sample.Sub(phys.CenterOfMassWorld())
	return phys.LinearAcceleration().Add(phys.AngularAcceleration().Cross(lever)).Length(), nil
}

// MovingUnderOwnPower reports locomotion the character drives itself.
// The engine reports accelerations in the hundreds for plain walking, so
// these states are never evaluated against the character's own body.
func MovingUnderOwnPower(state host.MovementState) bool {
	switch state {
	case host.MovementStanding, host.MovementCrouching,
		host.MovementWalking, host.MovementRunning, host.MovementSprinting,
		host.MovementJumping, host.MovementFalling,
		host.MovementLadder, host.MovementLadderUp, host.MovementLadderDown, host.MovementLadderOut:
		return true
	default:
		return false
	}
}

// jetpackThrusting reports a running jetpack producing thrust.
func jetpackThrusting(jp host.Jetpack) bool {
	return jp != nil && jp.Running() && jp.FinalThrust().LengthSquared() > 0
}

// JetpackExempt reports whether the jetpack is the sole source of the
// current acceleration and the settings ignore it. Dampers locked to
// another entity count as an outside source unless IgnoreRelativeDampers.
func JetpackExempt(jp host.Jetpack, dampedTo host.Entity, s *config.Settings) bool {
	if !s.IgnoreJetpack || !jetpackThrusting(jp) {
		return false
	}
	return s.IgnoreRelativeDampers || dampedTo == nil
}

// GridIgnored applies the respawn-ship and grid-name policies.
func GridIgnored(g host.Grid, s *config.Settings) bool {
	if g == nil {
		return false
	}
	if s.IgnoreRespawnShips && g.IsRespawnGrid() {
		return true
	}
	return s.GridNameIgnored(g.CustomName())
}
