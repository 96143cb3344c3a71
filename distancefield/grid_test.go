package distancefield

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/spatialmath"
)

func sphereGridOptions() GridOptions {
	return GridOptions{Metadata: Metadata{VoxelSize: 1, Background: 100, ExteriorBand: 3, InteriorBand: 1}}
}

func newSphereGrid(t *testing.T) *Grid {
	t.Helper()
	s, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), 10, "ball")
	test.That(t, err, test.ShouldBeNil)
	g, err := BuildGrid(context.Background(), "ball", []spatialmath.Geometry{s}, nil, sphereGridOptions())
	test.That(t, err, test.ShouldBeNil)
	return g
}

func TestBuildGrid(t *testing.T) {
	g := newSphereGrid(t)
	test.That(t, g.Name(), test.ShouldEqual, "ball")
	test.That(t, g.Metadata(), test.ShouldResemble, sphereGridOptions().Metadata)

	lo, hi := g.Bounds()
	test.That(t, lo, test.ShouldResemble, Coord{I: -14, J: -14, K: -14})
	test.That(t, hi, test.ShouldResemble, Coord{I: 14, J: 14, K: 14})

	// inside the interior band and outside the exterior band the background is stored
	test.That(t, g.Value(Coord{}), test.ShouldEqual, float32(-100))
	test.That(t, g.Value(Coord{I: 9}), test.ShouldAlmostEqual, -1, 1e-6)
	test.That(t, g.Value(Coord{I: 11}), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, g.Value(Coord{I: 13}), test.ShouldAlmostEqual, 3, 1e-6)
	test.That(t, g.Value(Coord{I: 14}), test.ShouldEqual, float32(100))
	test.That(t, g.Value(Coord{I: 1000}), test.ShouldEqual, float32(100))
	test.That(t, g.isBackground(g.Value(Coord{J: -14})), test.ShouldBeTrue)

	test.That(t, g.Sample(r3.Vector{X: 11.2, Y: 0.3}), test.ShouldAlmostEqual, 1, 1e-6)

	grad := g.Gradient(Coord{I: 11})
	test.That(t, spatialmath.R3VectorAlmostEqual(grad, r3.Vector{X: 1}, 1e-5), test.ShouldBeTrue)
}

func TestBuildGridPlacement(t *testing.T) {
	b, err := spatialmath.NewBox(spatialmath.NewZeroPose(), r3.Vector{X: 10, Y: 10, Z: 10}, "")
	test.That(t, err, test.ShouldBeNil)
	placement := spatialmath.NewPoseFromPoint(r3.Vector{X: 50})
	g, err := BuildGrid(context.Background(), "box", []spatialmath.Geometry{b}, placement, sphereGridOptions())
	test.That(t, err, test.ShouldBeNil)

	test.That(t, g.Sample(r3.Vector{X: 50}), test.ShouldEqual, -100.)
	test.That(t, g.Sample(r3.Vector{X: 57}), test.ShouldAlmostEqual, 2, 1e-6)
	test.That(t, g.Sample(r3.Vector{}), test.ShouldEqual, 100.)
}

func TestBuildGridErrors(t *testing.T) {
	_, err := BuildGrid(context.Background(), "empty", nil, nil, sphereGridOptions())
	test.That(t, err, test.ShouldNotBeNil)

	s, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), 10, "")
	test.That(t, err, test.ShouldBeNil)
	opts := sphereGridOptions()
	opts.VoxelSize = 0
	_, err = BuildGrid(context.Background(), "ball", []spatialmath.Geometry{s}, nil, opts)
	test.That(t, err, test.ShouldNotBeNil)

	opts = sphereGridOptions()
	opts.MaxVoxels = 1000
	_, err = BuildGrid(context.Background(), "ball", []spatialmath.Geometry{s}, nil, opts)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "exceeds the limit of 1000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BuildGrid(ctx, "ball", []spatialmath.Geometry{s}, nil, sphereGridOptions())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGridCopies(t *testing.T) {
	g := newSphereGrid(t)

	copied := g.DeepCopy()
	copied.values[copied.offset(Coord{I: 11})] = 42
	test.That(t, g.Value(Coord{I: 11}), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, copied.Value(Coord{I: 11}), test.ShouldEqual, float32(42))

	placed := g.WithTransform(NewTransform(RowMajorAffine(spatialmath.NewPoseFromPoint(r3.Vector{X: 100})), 1))
	test.That(t, placed.Sample(r3.Vector{X: 111}), test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, g.Sample(r3.Vector{X: 111}), test.ShouldEqual, 100.)
	test.That(t, g.Transform().Matrix(), test.ShouldResemble, NewIdentityTransform(1).Matrix())

	test.That(t, g.MemUsage(), test.ShouldBeGreaterThan, uint64(29*29*29*4))

	visited := 0
	g.ForEachNode(func(Coord, float32) bool {
		visited++
		return visited < 10
	})
	test.That(t, visited, test.ShouldEqual, 10)
}
