package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// point is a collision geometry that represents a single point in 3D space that occupies no geometry.
type point struct {
	position r3.Vector
	label    string
}

// NewPoint instantiates a new point Geometry.
func NewPoint(pt r3.Vector, label string) Geometry {
	return &point{position: pt, label: label}
}

// Pose returns the pose of the point.
func (pt *point) Pose() Pose {
	return NewPoseFromPoint(pt.position)
}

// Label returns the label of the point.
func (pt *point) Label() string {
	return pt.label
}

// SetLabel sets the label of the point.
func (pt *point) SetLabel(label string) {
	pt.label = label
}

// String returns a human readable string that represents the point.
func (pt *point) String() string {
	return fmt.Sprintf("Type: Point, Position X: %.3f, Y: %.3f, Z: %.3f", pt.position.X, pt.position.Y, pt.position.Z)
}

// Type returns the geometry type.
func (pt *point) Type() GeometryType {
	return PointType
}

// Transform premultiplies the point pose with a transform, allowing the point to be moved in space.
func (pt *point) Transform(toPremultiply Pose) Geometry {
	return &point{position: TransformPoint(toPremultiply, pt.position), label: pt.label}
}

// SignedDistance is the distance between the two points.
func (pt *point) SignedDistance(q r3.Vector) float64 {
	return pt.position.Sub(q).Norm()
}

// AABB returns a degenerate box at the point.
func (pt *point) AABB() (r3.Vector, r3.Vector) {
	return pt.position, pt.position
}

// DistanceFrom returns the distance from the point to the given geometry.
func (pt *point) DistanceFrom(g Geometry) (float64, error) {
	if g == nil {
		return 0, newCollisionTypeUnsupportedError(pt, g)
	}
	return g.SignedDistance(pt.position), nil
}

// ClosestPoints returns the distance and the nearest point on each geometry.
func (pt *point) ClosestPoints(g Geometry) (float64, r3.Vector, r3.Vector, error) {
	return closestPoints(pt, g)
}

func (pt *point) core() convexCore {
	return convexCore{vertices: []r3.Vector{pt.position}}
}
