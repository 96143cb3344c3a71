package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/utils"
)

// box is a collision geometry that represents a 3D rectangular prism, it has a pose and half size that fully define it.
type box struct {
	pose     Pose
	halfSize [3]float64
	label    string

	// generated at creation time
	rotMatrix *RotationMatrix
}

// NewBox instantiates a new box Geometry. dims are the full edge lengths along the local axes.
func NewBox(pose Pose, dims r3.Vector, label string) (Geometry, error) {
	if dims.X <= 0 || dims.Y <= 0 || dims.Z <= 0 {
		return nil, newBadGeometryDimensionsError(&box{})
	}
	return newBox(pose, [3]float64{dims.X / 2, dims.Y / 2, dims.Z / 2}, label), nil
}

func newBox(pose Pose, halfSize [3]float64, label string) *box {
	return &box{pose: pose, halfSize: halfSize, label: label, rotMatrix: pose.Orientation().RotationMatrix()}
}

// String returns a human readable string that represents the box.
func (b *box) String() string {
	return fmt.Sprintf("Type: Box, Dims: X:%.3f Y:%.3f Z:%.3f", 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

// Label returns the label of the box.
func (b *box) Label() string {
	return b.label
}

// SetLabel sets the label of the box.
func (b *box) SetLabel(label string) {
	b.label = label
}

// Pose returns the pose of the box.
func (b *box) Pose() Pose {
	return b.pose
}

// Type returns the geometry type.
func (b *box) Type() GeometryType {
	return BoxType
}

// Dims returns the full edge lengths of the box.
func (b *box) Dims() r3.Vector {
	return r3.Vector{X: 2 * b.halfSize[0], Y: 2 * b.halfSize[1], Z: 2 * b.halfSize[2]}
}

// AlmostEqual compares the box with another geometry and checks if they are equivalent.
func (b *box) AlmostEqual(g Geometry) bool {
	other, ok := g.(*box)
	if !ok {
		return false
	}
	for i := range b.halfSize {
		if !utils.Float64AlmostEqual(b.halfSize[i], other.halfSize[i], 1e-8) {
			return false
		}
	}
	return PoseAlmostEqual(b.pose, other.pose)
}

// Transform premultiplies the box pose with a transform, allowing the box to be moved in space.
func (b *box) Transform(toPremultiply Pose) Geometry {
	return newBox(Compose(toPremultiply, b.pose), b.halfSize, b.label)
}

// SignedDistance is the distance from pt to the box surface, negative inside.
func (b *box) SignedDistance(pt r3.Vector) float64 {
	local := b.rotMatrix.Transpose().Mul(pt.Sub(b.pose.Point()))
	q := r3.Vector{
		X: math.Abs(local.X) - b.halfSize[0],
		Y: math.Abs(local.Y) - b.halfSize[1],
		Z: math.Abs(local.Z) - b.halfSize[2],
	}
	outside := r3.Vector{X: math.Max(q.X, 0), Y: math.Max(q.Y, 0), Z: math.Max(q.Z, 0)}.Norm()
	inside := math.Min(math.Max(q.X, math.Max(q.Y, q.Z)), 0)
	return outside + inside
}

// AABB returns the bounds of the box.
func (b *box) AABB() (r3.Vector, r3.Vector) {
	var extent [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			extent[i] += math.Abs(b.rotMatrix.At(i, j)) * b.halfSize[j]
		}
	}
	e := r3.Vector{X: extent[0], Y: extent[1], Z: extent[2]}
	c := b.pose.Point()
	return c.Sub(e), c.Add(e)
}

// DistanceFrom returns the distance from the box to the given geometry.
func (b *box) DistanceFrom(g Geometry) (float64, error) {
	if s, ok := g.(*sphere); ok {
		return b.SignedDistance(s.pose.Point()) - s.radius, nil
	}
	d, _, _, err := closestPoints(b, g)
	return d, err
}

// ClosestPoints returns the distance and the nearest point on each geometry.
func (b *box) ClosestPoints(g Geometry) (float64, r3.Vector, r3.Vector, error) {
	return closestPoints(b, g)
}

// vertices returns the eight corners of the box in the frame it is expressed in.
func (b *box) vertices() []r3.Vector {
	verts := make([]r3.Vector, 0, 8)
	c := b.pose.Point()
	for _, i := range []float64{-1, 1} {
		for _, j := range []float64{-1, 1} {
			for _, k := range []float64{-1, 1} {
				local := r3.Vector{X: i * b.halfSize[0], Y: j * b.halfSize[1], Z: k * b.halfSize[2]}
				verts = append(verts, c.Add(b.rotMatrix.Mul(local)))
			}
		}
	}
	return verts
}

func (b *box) core() convexCore {
	axes := []r3.Vector{b.rotMatrix.Col(0), b.rotMatrix.Col(1), b.rotMatrix.Col(2)}
	return convexCore{vertices: b.vertices(), faceAxes: axes, edgeDirs: axes}
}
