package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/utils"
)

// sphere is a collision geometry that represents a sphere, it has a pose and a radius that fully define it.
type sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new sphere Geometry.
func NewSphere(pose Pose, radius float64, label string) (Geometry, error) {
	if radius <= 0 {
		return nil, newBadGeometryDimensionsError(&sphere{})
	}
	return &sphere{pose: pose, radius: radius, label: label}, nil
}

// Pose returns the pose of the sphere.
func (s *sphere) Pose() Pose {
	return s.pose
}

// Radius returns the radius of the sphere.
func (s *sphere) Radius() float64 {
	return s.radius
}

// Label returns the label of the sphere.
func (s *sphere) Label() string {
	return s.label
}

// SetLabel sets the label of the sphere.
func (s *sphere) SetLabel(label string) {
	s.label = label
}

// String returns a human readable string that represents the sphere.
func (s *sphere) String() string {
	return fmt.Sprintf("Type: Sphere, Radius: %.3f", s.radius)
}

// Type returns the geometry type.
func (s *sphere) Type() GeometryType {
	return SphereType
}

// AlmostEqual compares the sphere with another geometry and checks if they are equivalent.
func (s *sphere) AlmostEqual(g Geometry) bool {
	other, ok := g.(*sphere)
	if !ok {
		return false
	}
	return PoseAlmostEqual(s.pose, other.pose) && utils.Float64AlmostEqual(s.radius, other.radius, 1e-8)
}

// Transform premultiplies the sphere pose with a transform, allowing the sphere to be moved in space.
func (s *sphere) Transform(toPremultiply Pose) Geometry {
	return &sphere{pose: Compose(toPremultiply, s.pose), radius: s.radius, label: s.label}
}

// SignedDistance is the distance from pt to the sphere surface, negative inside.
func (s *sphere) SignedDistance(pt r3.Vector) float64 {
	return pt.Sub(s.pose.Point()).Norm() - s.radius
}

// AABB returns the bounds of the sphere.
func (s *sphere) AABB() (r3.Vector, r3.Vector) {
	c := s.pose.Point()
	r := r3.Vector{X: s.radius, Y: s.radius, Z: s.radius}
	return c.Sub(r), c.Add(r)
}

// DistanceFrom returns the distance from the sphere to the given geometry.
func (s *sphere) DistanceFrom(g Geometry) (float64, error) {
	if other, ok := g.(*sphere); ok {
		return sphereVsSphereDistance(s, other), nil
	}
	d, _, _, err := closestPoints(s, g)
	return d, err
}

// ClosestPoints returns the distance and the nearest point on each geometry.
func (s *sphere) ClosestPoints(g Geometry) (float64, r3.Vector, r3.Vector, error) {
	return closestPoints(s, g)
}

func (s *sphere) core() convexCore {
	return convexCore{vertices: []r3.Vector{s.pose.Point()}, radius: s.radius}
}

// sphereVsSphereDistance takes two spheres as arguments and returns a floating point number.  If this number is nonpositive it represents
// the penetration depth for the two spheres, which are in collision.  If the returned float is positive it represents the
// separation distance for the two spheres, which are not in collision.
func sphereVsSphereDistance(a, b *sphere) float64 {
	return a.pose.Point().Sub(b.pose.Point()).Norm() - (a.radius + b.radius)
}
