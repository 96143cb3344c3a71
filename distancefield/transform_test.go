package distancefield

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/spatialmath"
)

func TestIdentityTransform(t *testing.T) {
	tf := NewIdentityTransform(2)
	test.That(t, tf.VoxelSize(), test.ShouldEqual, 2.)

	world := tf.IndexToWorld(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, spatialmath.R3VectorAlmostEqual(world, r3.Vector{X: 2, Y: 4, Z: 6}, 1e-9), test.ShouldBeTrue)
	idx := tf.WorldToIndex(world)
	test.That(t, spatialmath.R3VectorAlmostEqual(idx, r3.Vector{X: 1, Y: 2, Z: 3}, 1e-9), test.ShouldBeTrue)

	test.That(t, tf.WorldToIndexNodeCentered(r3.Vector{X: 2.9, Y: 4.1, Z: -3.1}), test.ShouldResemble, Coord{I: 1, J: 2, K: -2})
}

func TestPoseTransform(t *testing.T) {
	pose := spatialmath.NewPose(r3.Vector{X: 10}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})

	tf := NewTransform(RowMajorAffine(pose), 1)
	for _, idx := range []r3.Vector{{}, {X: 1}, {X: 3, Y: -2, Z: 5}} {
		expected := spatialmath.TransformPoint(pose, idx)
		world := tf.IndexToWorld(idx)
		test.That(t, spatialmath.R3VectorAlmostEqual(world, expected, 1e-9), test.ShouldBeTrue)
		test.That(t, spatialmath.R3VectorAlmostEqual(tf.WorldToIndex(world), idx, 1e-9), test.ShouldBeTrue)
	}

	// the column vector matrix transposed is the row vector one
	transposed := NewTransform(spatialmath.PoseToMat4(pose).Transpose(), 1)
	test.That(t, transposed.Matrix().ApproxEqual(tf.Matrix()), test.ShouldBeTrue)
}

func TestApplyIJT(t *testing.T) {
	pose := spatialmath.NewPose(r3.Vector{X: 10, Y: -4}, &spatialmath.R4AA{Theta: math.Pi / 2, RZ: 1})
	tf := NewTransform(RowMajorAffine(pose), 2)

	g := tf.ApplyIJT(r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(g, r3.Vector{Y: 0.5}, 1e-9), test.ShouldBeTrue)

	// translation never affects a gradient
	g = NewTransform(RowMajorAffine(spatialmath.NewPoseFromPoint(r3.Vector{X: 5})), 1).ApplyIJT(r3.Vector{Z: 3})
	test.That(t, spatialmath.R3VectorAlmostEqual(g, r3.Vector{Z: 3}, 1e-9), test.ShouldBeTrue)
}
