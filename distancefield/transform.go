package distancefield

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/spatialmath"
)

// Transform maps grid index space to world space. It uses the row vector convention, world = [i j k 1] * M, where M
// already includes the voxel scale.
type Transform struct {
	m      mgl64.Mat4
	inv    mgl64.Mat4
	ijt    mgl64.Mat3
	voxels float64
}

// NewTransform builds a transform from a row vector affine matrix, pre-scaled by the voxel size so that index
// coordinates are scaled before m is applied.
func NewTransform(m mgl64.Mat4, voxelSize float64) *Transform {
	scaled := mgl64.Scale3D(voxelSize, voxelSize, voxelSize).Mul4(m)
	return &Transform{
		m:      scaled,
		inv:    scaled.Inv(),
		ijt:    scaled.Mat3().Inv(),
		voxels: voxelSize,
	}
}

// NewIdentityTransform is the transform of a grid whose index space is aligned with its own frame.
func NewIdentityTransform(voxelSize float64) *Transform {
	return NewTransform(mgl64.Ident4(), voxelSize)
}

// RowMajorAffine returns the row vector convention matrix of a pose.
func RowMajorAffine(p spatialmath.Pose) mgl64.Mat4 {
	return spatialmath.PoseToMat4(p).Transpose()
}

// VoxelSize returns the scale applied to index coordinates.
func (t *Transform) VoxelSize() float64 {
	return t.voxels
}

// Matrix returns the scaled row vector matrix.
func (t *Transform) Matrix() mgl64.Mat4 {
	return t.m
}

// IndexToWorld maps a possibly fractional index position to world space.
func (t *Transform) IndexToWorld(idx r3.Vector) r3.Vector {
	return rowMul(t.m, idx)
}

// WorldToIndex maps a world point to fractional index coordinates.
func (t *Transform) WorldToIndex(p r3.Vector) r3.Vector {
	return rowMul(t.inv, p)
}

// WorldToIndexNodeCentered returns the grid node nearest to a world point.
func (t *Transform) WorldToIndexNodeCentered(p r3.Vector) Coord {
	idx := t.WorldToIndex(p)
	return Coord{I: int64(math.Round(idx.X)), J: int64(math.Round(idx.Y)), K: int64(math.Round(idx.Z))}
}

// ApplyIJT maps an index space gradient to world space using the inverse transpose of the transform's Jacobian.
func (t *Transform) ApplyIJT(g r3.Vector) r3.Vector {
	v := t.ijt.Mul3x1(mgl64.Vec3{g.X, g.Y, g.Z})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func rowMul(m mgl64.Mat4, p r3.Vector) r3.Vector {
	v := m.Transpose().Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
