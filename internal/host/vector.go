/*
Package host
File: vector.go
Description:
    Minimal double-precision 3D vector used by the host physics contracts.
    The host reports world positions and accelerations in metres and m/s^2.
*/

package host

import "math"

// Vec3 is a world-space vector.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vec3) Scale(s float64) Vec3 {
	return Vec3{a.X * s, a.Y * s, a.Z * s}
}

func (a Vec3) Neg() Vec3 {
	return Vec3{-a.X, -a.Y, -a.Z}
}

func (a Vec3) Dot(b Vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Cross returns a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) LengthSquared() float64 {
	return a.Dot(a)
}

func (a Vec3) Length() float64 {
	return math.Sqrt(a.LengthSquared())
}

// DistanceSquared avoids the square root for range checks.
func DistanceSquared(a, b Vec3) float64 {
	return a.Sub(b).LengthSquared()
}
