package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/utils"
)

// capsule is a collision geometry that represents a capsule, it has a pose and a radius that fully define it.
//
// ....___________________
// .../                   \
// .x|  |-------O-------|  |x
// ...\___________________/
//
// Length is the distance between the x's, or internal segment length + 2*radius.
type capsule struct {
	// pose is the center of the capsule, its local Z axis runs along the capsule
	pose   Pose
	radius float64
	length float64 // total length of the capsule, tip to tip
	label  string

	// generated at creation time
	segA r3.Vector
	segB r3.Vector
}

// NewCapsule instantiates a new capsule Geometry.
func NewCapsule(pose Pose, radius, length float64, label string) (Geometry, error) {
	if radius <= 0 || length <= 0 {
		return nil, newBadGeometryDimensionsError(&capsule{})
	}
	if length < radius*2 {
		return nil, newBadCapsuleLengthError(length, radius)
	}
	if length == radius*2 {
		return NewSphere(pose, radius, label)
	}
	return newCapsuleWithSegPoints(pose, radius, length, label), nil
}

func newCapsuleWithSegPoints(pose Pose, radius, length float64, label string) *capsule {
	return &capsule{
		pose:   pose,
		radius: radius,
		length: length,
		label:  label,
		segA:   TransformPoint(pose, r3.Vector{Z: -length/2 + radius}),
		segB:   TransformPoint(pose, r3.Vector{Z: length/2 - radius}),
	}
}

// String returns a human readable string that represents the capsule.
func (c *capsule) String() string {
	return fmt.Sprintf("Type: Capsule, Radius: %.3f, Length: %.3f", c.radius, c.length)
}

// Label returns the label of this capsule.
func (c *capsule) Label() string {
	return c.label
}

// SetLabel sets the label of this capsule.
func (c *capsule) SetLabel(label string) {
	c.label = label
}

// Pose returns the pose of the capsule.
func (c *capsule) Pose() Pose {
	return c.pose
}

// Type returns the geometry type.
func (c *capsule) Type() GeometryType {
	return CapsuleType
}

// AlmostEqual compares the capsule with another geometry and checks if they are equivalent.
func (c *capsule) AlmostEqual(g Geometry) bool {
	other, ok := g.(*capsule)
	if !ok {
		return false
	}
	return PoseAlmostEqualEps(c.pose, other.pose, 1e-6) &&
		utils.Float64AlmostEqual(c.radius, other.radius, 1e-8) &&
		utils.Float64AlmostEqual(c.length, other.length, 1e-8)
}

// Transform premultiplies the capsule pose with a transform, allowing the capsule to be moved in space.
func (c *capsule) Transform(toPremultiply Pose) Geometry {
	return newCapsuleWithSegPoints(Compose(toPremultiply, c.pose), c.radius, c.length, c.label)
}

// SignedDistance is the distance from pt to the capsule surface, negative inside.
func (c *capsule) SignedDistance(pt r3.Vector) float64 {
	return ClosestPointSegmentPoint(c.segA, c.segB, pt).Sub(pt).Norm() - c.radius
}

// AABB returns the bounds of the capsule.
func (c *capsule) AABB() (r3.Vector, r3.Vector) {
	r := r3.Vector{X: c.radius, Y: c.radius, Z: c.radius}
	lo := r3.Vector{X: min(c.segA.X, c.segB.X), Y: min(c.segA.Y, c.segB.Y), Z: min(c.segA.Z, c.segB.Z)}
	hi := r3.Vector{X: max(c.segA.X, c.segB.X), Y: max(c.segA.Y, c.segB.Y), Z: max(c.segA.Z, c.segB.Z)}
	return lo.Sub(r), hi.Add(r)
}

// DistanceFrom returns the distance from the capsule to the given geometry.
func (c *capsule) DistanceFrom(g Geometry) (float64, error) {
	switch other := g.(type) {
	case *capsule:
		return capsuleVsCapsuleDistance(c, other), nil
	case *sphere:
		return capsuleVsSphereDistance(c, other), nil
	default:
		d, _, _, err := closestPoints(c, g)
		return d, err
	}
}

// ClosestPoints returns the distance and the nearest point on each geometry.
func (c *capsule) ClosestPoints(g Geometry) (float64, r3.Vector, r3.Vector, error) {
	return closestPoints(c, g)
}

func (c *capsule) core() convexCore {
	dir := c.segB.Sub(c.segA)
	return convexCore{
		vertices: []r3.Vector{c.segA, c.segB},
		radius:   c.radius,
		edgeDirs: []r3.Vector{dir.Normalize()},
	}
}

func capsuleVsSphereDistance(c *capsule, s *sphere) float64 {
	return c.SignedDistance(s.pose.Point()) - s.radius
}

func capsuleVsCapsuleDistance(c, other *capsule) float64 {
	p1, p2 := SegmentDistanceToSegment(c.segA, c.segB, other.segA, other.segB)
	return p1.Sub(p2).Norm() - c.radius - other.radius
}

// ClosestPointSegmentPoint takes a line segment defined by two points and a third point, and returns the point on
// the segment closest to the third point.
func ClosestPointSegmentPoint(segA, segB, query r3.Vector) r3.Vector {
	ab := segB.Sub(segA)
	denom := ab.Norm2()
	if denom == 0 {
		return segA
	}
	t := utils.Clamp(query.Sub(segA).Dot(ab)/denom, 0, 1)
	return segA.Add(ab.Mul(t))
}

// SegmentDistanceToSegment returns the closest pair of points on segments [ap1,ap2] and [bp1,bp2].
// Follows Ericson, "Real-Time Collision Detection", 5.1.9.
func SegmentDistanceToSegment(ap1, ap2, bp1, bp2 r3.Vector) (r3.Vector, r3.Vector) {
	const eps = 1e-12
	d1 := ap2.Sub(ap1)
	d2 := bp2.Sub(bp1)
	r := ap1.Sub(bp1)
	a := d1.Norm2()
	e := d2.Norm2()
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= eps && e <= eps:
		return ap1, bp1
	case a <= eps:
		t = utils.Clamp(f/e, 0, 1)
	default:
		c := d1.Dot(r)
		if e <= eps {
			s = utils.Clamp(-c/a, 0, 1)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom != 0 {
				s = utils.Clamp((b*f-c*e)/denom, 0, 1)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = utils.Clamp(-c/a, 0, 1)
			} else if t > 1 {
				t = 1
				s = utils.Clamp((b-c)/a, 0, 1)
			}
		}
	}
	return ap1.Add(d1.Mul(s)), bp1.Add(d2.Mul(t))
}
