// Package spatialmath defines spatial mathematical operations.
// Poses are rigid transforms backed by unit dual quaternions; geometries are convex collision
// shapes that can report signed distance to a point and exact distance to one another.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// dualQuaternion defines functions to perform rigid transformations in 3D.
// If you find yourself importing gonum.org/v1/gonum/num/dualquat in some other package, you should probably be
// using these instead.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a pointer to a new dualQuaternion object whose Quaternion is an identity Quaternion.
// Since the real part of a dual quaternion should be a unit quaternion, not all zeroes, this should be used
// instead of &dualQuaternion{}.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{Real: quat.Number{Real: 1}}}
}

// newDualQuaternionFromPose takes any pose, checks if it is already a DQ and returns that if so, otherwise creates a
// new one.
func newDualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q
	}
	q := &dualQuaternion{dualquat.Number{Real: Normalize(p.Orientation().Quaternion())}}
	q.setTranslation(p.Point())
	return q
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(point)
	}
	q := &dualQuaternion{dualquat.Number{Real: Normalize(o.Quaternion())}}
	q.setTranslation(point)
	return q
}

// NewPoseFromOrientation returns a pose with no translation and the given orientation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.setTranslation(point)
	return q
}

// Point multiplies the dual quaternion by its own conjugate to give a dq where the real is the identity quat,
// and the dual is representative of real world translation.
func (q *dualQuaternion) Point() r3.Vector {
	t := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: t.Imag, Y: t.Jmag, Z: t.Kmag}
}

// Orientation returns the rotation quaternion as an Orientation.
func (q *dualQuaternion) Orientation() Orientation {
	o := Quaternion(q.Real)
	return &o
}

func (q *dualQuaternion) String() string {
	pt := q.Point()
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f Q:%v}", pt.X, pt.Y, pt.Z, q.Real)
}

// setTranslation correctly sets the translation quaternion against the rotation.
func (q *dualQuaternion) setTranslation(pt r3.Vector) {
	q.Dual = quat.Scale(0.5, quat.Mul(quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}, q.Real))
}

// Transformation multiplies the dual quat contained in this dualQuaternion by another dual quat.
func (q *dualQuaternion) transformation(by dualquat.Number) dualquat.Number {
	// Ensure we are multiplying by a unit dual quaternion
	if vecLen := quat.Abs(by.Real); vecLen != 1 && vecLen != 0 {
		by.Real = quat.Scale(1/vecLen, by.Real)
		by.Dual = quat.Scale(1/vecLen, by.Dual)
	}
	return dualquat.Mul(q.Number, by)
}

// Compose takes two dual quaternions and multiplies them together, returning the pose that results from
// applying b in the frame of a.
func Compose(a, b Pose) Pose {
	result := &dualQuaternion{newDualQuaternionFromPose(a).transformation(newDualQuaternionFromPose(b).Number)}

	// Normalization
	if vecLen := 1 / quat.Abs(result.Real); vecLen != 1 {
		result.Real = quat.Scale(vecLen, result.Real)
		result.Dual = quat.Scale(vecLen, result.Dual)
	}
	return result
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p)
// will give the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	return &dualQuaternion{dualquat.ConjQuat(newDualQuaternionFromPose(p).Number)}
}

// PoseBetween returns the difference between two dualQuaternions, that is, the dq which if multiplied by one will give the
// other. Example: if PoseBetween(a, b) = c, then Compose(a, c) = b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// TransformPoint applies the pose to a point expressed in the pose's child frame.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	dq := newDualQuaternionFromPose(p)
	return RotateVector(dq.Real, pt).Add(dq.Point())
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same within the
// translation tolerance eps. Orientation always uses a fixed tolerance.
func PoseAlmostEqualEps(a, b Pose, eps float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), eps) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincident will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
// This uses the same epsilon as the default value for the Viam IK solver.
func PoseAlmostCoincident(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-8)
}

// PoseToMat4 returns the homogeneous matrix of the pose in the column-vector convention: a point x maps to
// M * [x 1]^T and the translation lives in the last column.
func PoseToMat4(p Pose) mgl64.Mat4 {
	rm := p.Orientation().RotationMatrix()
	pt := p.Point()
	// mgl64 matrices are column major
	return mgl64.Mat4{
		rm.At(0, 0), rm.At(1, 0), rm.At(2, 0), 0,
		rm.At(0, 1), rm.At(1, 1), rm.At(2, 1), 0,
		rm.At(0, 2), rm.At(1, 2), rm.At(2, 2), 0,
		pt.X, pt.Y, pt.Z, 1,
	}
}

// Mat4ToPose is the inverse of PoseToMat4.
func Mat4ToPose(m mgl64.Mat4) Pose {
	rm := NewRotationMatrix([9]float64{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
		m.At(2, 0), m.At(2, 1), m.At(2, 2),
	})
	return NewPose(r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}, rm)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
