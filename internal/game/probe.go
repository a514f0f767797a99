/*
Package game
File: probe.go
Description:
    RayProbe finds what a character is standing on. It casts three vertical
    rays (centre, forward, back) from half a metre above the feet to the
    ground search distance below, and returns the root entity of the first
    hit that is not the character itself.

    Ray and hit buffers are owned by the probe and reused every call.
*/

package game

import "github.com/everforgeworks/deadly-accel/internal/host"

const (
	// ProbeFilterLayer is the collision layer that excludes characters.
	ProbeFilterLayer = 18

	groundSearch = 2.0
	probeLift    = 0.5
	probeSpread  = 0.2
)

type probeRay struct {
	from, to host.Vec3
}

// RayProbe wraps the host's ray caster.
type RayProbe struct {
	caster host.RayCaster
	rays   [3]probeRay
	hits   []host.Hit
}

func NewRayProbe(caster host.RayCaster) *RayProbe {
	return &RayProbe{caster: caster, hits: make([]host.Hit, 0, 8)}
}

// GridStandingOn returns the root of the entity under ch, or nil when the
// character is not in contact with anything.
func (p *RayProbe) GridStandingOn(ch host.Character) host.Entity {
	if p == nil || p.caster == nil || ch == nil {
		return nil
	}

	up := ch.Position().Add(ch.Up().Scale(probeLift))
	down := up.Add(ch.Up().Scale(-groundSearch))
	forward := ch.Forward().Scale(probeSpread)

	p.rays[0] = probeRay{up, down}
	p.rays[1] = probeRay{up.Add(forward), down.Add(forward)}
	p.rays[2] = probeRay{up.Sub(forward), down.Sub(forward)}

	p.hits = p.hits[:0]
	for _, r := range p.rays {
		p.hits = p.caster.CastRay(r.from, r.to, ProbeFilterLayer, p.hits)
	}

	self := ch.EntityID()
	for _, h := range p.hits {
		if h.Entity == nil || h.Entity.EntityID() == self {
			continue
		}
		if host.DistanceSquared(h.Position, up) >= groundSearch*groundSearch {
			return nil
		}
		return h.Entity.TopMostParent()
	}
	return nil
}
