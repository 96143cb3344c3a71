package referenceframe

import (
	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/spatialmath"
)

// Transform returns the pose of the joint's child link relative to its parent for the given joint input. Revolute and
// continuous inputs are radians, prismatic inputs are millimeters.
func (j *Joint) Transform(input float64) spatialmath.Pose {
	switch j.Type {
	case RevoluteJoint, ContinuousJoint:
		motion := spatialmath.NewPoseFromOrientation(&spatialmath.R4AA{Theta: input, RX: j.Axis.X, RY: j.Axis.Y, RZ: j.Axis.Z})
		return spatialmath.Compose(j.Origin, motion)
	case PrismaticJoint:
		return spatialmath.Compose(j.Origin, spatialmath.NewPoseFromPoint(j.Axis.Mul(input)))
	default:
		return j.Origin
	}
}

// LinkTransforms computes the pose of every link relative to the root link for the given joint inputs, keyed by
// joint name. Joints missing from inputs are held at zero.
func (m *Model) LinkTransforms(inputs map[string]float64) (map[string]spatialmath.Pose, error) {
	for name := range inputs {
		if _, ok := m.joints[name]; !ok {
			return nil, NewJointNotFoundError(name)
		}
	}
	root := m.RootLink()
	if root == "" {
		return nil, ErrNoRootLink
	}

	transforms := make(map[string]spatialmath.Pose, len(m.links))
	transforms[root] = spatialmath.NewZeroPose()
	worklist := []string{root}
	for len(worklist) > 0 {
		parent := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, jName := range m.links[parent].childJoints {
			j := m.joints[jName]
			if _, seen := transforms[j.Child]; seen {
				return nil, errors.Errorf("link %q is reachable more than once", j.Child)
			}
			transforms[j.Child] = spatialmath.Compose(transforms[parent], j.Transform(inputs[jName]))
			worklist = append(worklist, j.Child)
		}
	}
	return transforms, nil
}

// GeometriesInFrame returns every geometry of the given link transformed by the link's pose.
func (m *Model) GeometriesInFrame(link string, linkPose spatialmath.Pose) ([]spatialmath.Geometry, error) {
	l, err := m.Link(link)
	if err != nil {
		return nil, err
	}
	geometries := make([]spatialmath.Geometry, 0, len(l.Geometries))
	for _, g := range l.Geometries {
		geometries = append(geometries, g.Transform(linkPose))
	}
	return geometries, nil
}

// ZeroInputs returns a zero input for every movable joint of the model.
func (m *Model) ZeroInputs() map[string]float64 {
	inputs := map[string]float64{}
	for _, name := range m.jointOrder {
		if m.joints[name].Type != FixedJoint {
			inputs[name] = 0
		}
	}
	return inputs
}
