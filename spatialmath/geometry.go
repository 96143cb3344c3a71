package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// GeometryType defines what geometry creator representations are known.
type GeometryType string

// The set of allowed representations for geometry.
const (
	UnknownType = GeometryType("")
	BoxType     = GeometryType("box")
	SphereType  = GeometryType("sphere")
	CapsuleType = GeometryType("capsule")
	PointType   = GeometryType("point")
)

// Geometry is an entry point with which to access all types of collision geometries.
type Geometry interface {
	Pose() Pose
	Transform(Pose) Geometry
	Label() string
	SetLabel(string)
	String() string
	Type() GeometryType

	// SignedDistance returns the distance from pt to the surface, negative when pt is inside.
	SignedDistance(pt r3.Vector) float64
	// AABB returns the axis aligned bounds of the geometry in the frame it is expressed in.
	AABB() (r3.Vector, r3.Vector)
	// DistanceFrom returns the minimum separation to another geometry, negative when penetrating.
	DistanceFrom(Geometry) (float64, error)
	// ClosestPoints returns the separation together with the nearest point on each geometry.
	ClosestPoints(Geometry) (float64, r3.Vector, r3.Vector, error)

	core() convexCore
}

// newBadGeometryDimensionsError returns an error indicating that the dimensions of the geometry are invalid.
func newBadGeometryDimensionsError(g Geometry) error {
	return fmt.Errorf("invalid dimension(s) for Geometry type %T", g)
}

// newBadCapsuleLengthError returns an error indicating that the length of a capsule does not fit its end caps.
func newBadCapsuleLengthError(length, radius float64) error {
	return fmt.Errorf("capsule given length %.3f which must be at least twice its radius %.3f", length, radius)
}

// newCollisionTypeUnsupportedError is used when the type of geometry is not supported by distance checks.
func newCollisionTypeUnsupportedError(g1, g2 Geometry) error {
	return errors.Errorf("distance between %T and %T is not supported", g1, g2)
}

// GeometriesAABB returns the union of the bounds of every geometry given.
func GeometriesAABB(geometries []Geometry) (r3.Vector, r3.Vector, error) {
	if len(geometries) == 0 {
		return r3.Vector{}, r3.Vector{}, errors.New("no geometries to bound")
	}
	lo, hi := geometries[0].AABB()
	for _, g := range geometries[1:] {
		gLo, gHi := g.AABB()
		lo = r3.Vector{X: min(lo.X, gLo.X), Y: min(lo.Y, gLo.Y), Z: min(lo.Z, gLo.Z)}
		hi = r3.Vector{X: max(hi.X, gHi.X), Y: max(hi.Y, gHi.Y), Z: max(hi.Z, gHi.Z)}
	}
	return lo, hi, nil
}

// closestPoints is shared by every geometry: both shapes are reduced to a convex core inflated by a radius.
func closestPoints(a, b Geometry) (float64, r3.Vector, r3.Vector, error) {
	if a == nil || b == nil {
		return 0, r3.Vector{}, r3.Vector{}, newCollisionTypeUnsupportedError(a, b)
	}
	d, pa, pb := coreDistance(a.core(), b.core())
	return d, pa, pb, nil
}
