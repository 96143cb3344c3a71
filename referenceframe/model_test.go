package referenceframe

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/spatialmath"
)

const testURDF = `<?xml version="1.0"?>
<robot name="two_link">
  <link name="world"/>
  <link name="base">
    <collision>
      <origin xyz="0 0 0.05" rpy="0 0 0"/>
      <geometry><box size="0.4 0.4 0.1"/></geometry>
    </collision>
  </link>
  <link name="pedestal">
    <collision>
      <geometry><sphere radius="0.05"/></geometry>
    </collision>
  </link>
  <link name="upper_arm">
    <collision>
      <origin xyz="0 0 0.25"/>
      <geometry><capsule radius="0.05" length="0.4"/></geometry>
    </collision>
  </link>
  <link name="forearm">
    <collision>
      <origin xyz="0.2 0 0"/>
      <geometry><box size="0.4 0.08 0.08"/></geometry>
    </collision>
  </link>
  <link name="tool">
    <collision>
      <geometry><sphere radius="0.03"/></geometry>
    </collision>
  </link>
  <link name="tool_frame"/>
  <joint name="world_joint" type="fixed">
    <parent link="world"/>
    <child link="base"/>
  </joint>
  <joint name="pedestal_joint" type="fixed">
    <parent link="base"/>
    <child link="pedestal"/>
    <origin xyz="0.3 0 0" rpy="0 0 0"/>
  </joint>
  <joint name="shoulder" type="revolute">
    <parent link="base"/>
    <child link="upper_arm"/>
    <origin xyz="0 0 0.1" rpy="0 0 0"/>
    <axis xyz="0 0 1"/>
    <limit lower="-3.14" upper="3.14"/>
  </joint>
  <joint name="elbow" type="revolute">
    <parent link="upper_arm"/>
    <child link="forearm"/>
    <origin xyz="0 0 0.5" rpy="0 0 0"/>
    <axis xyz="0 1 0"/>
    <limit lower="-2" upper="2"/>
  </joint>
  <joint name="tool_joint" type="fixed">
    <parent link="forearm"/>
    <child link="tool"/>
    <origin xyz="0.45 0 0"/>
  </joint>
  <joint name="tool_frame_joint" type="fixed">
    <parent link="tool"/>
    <child link="tool_frame"/>
  </joint>
</robot>`

const testSRDF = `<?xml version="1.0"?>
<robot name="two_link">
  <group name="shoulder_only">
    <joint name="shoulder"/>
  </group>
  <group name="arm">
    <chain base_link="base" tip_link="forearm"/>
  </group>
  <group name="everything">
    <group name="arm"/>
    <link name="tool"/>
  </group>
  <disable_collisions link1="base" link2="upper_arm" reason="Adjacent"/>
  <disable_collisions link1="base" link2="pedestal" reason="Adjacent"/>
</robot>`

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := ParseURDF([]byte(testURDF))
	test.That(t, err, test.ShouldBeNil)
	srdf, err := ParseSRDF([]byte(testSRDF))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.ApplySRDF(srdf), test.ShouldBeNil)
	return m
}

func TestParseURDF(t *testing.T) {
	m := newTestModel(t)
	test.That(t, m.Name(), test.ShouldEqual, "two_link")
	test.That(t, m.RootLink(), test.ShouldEqual, "world")
	test.That(t, m.Links(), test.ShouldResemble, []string{"world", "base", "pedestal", "upper_arm", "forearm", "tool", "tool_frame"})
	test.That(t, m.LinksWithCollisionGeometry(), test.ShouldResemble, []string{"base", "pedestal", "upper_arm", "forearm", "tool"})

	base, err := m.Link("base")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, base.Geometries, test.ShouldHaveLength, 1)
	test.That(t, base.Geometries[0].Label(), test.ShouldEqual, "base")
	test.That(t, base.Geometries[0].Type(), test.ShouldEqual, spatialmath.BoxType)
	// meters are converted to millimeters
	test.That(t, base.Geometries[0].Pose().Point().Z, test.ShouldAlmostEqual, 50.)

	upper, err := m.Link("upper_arm")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, upper.Geometries[0].Type(), test.ShouldEqual, spatialmath.CapsuleType)
	lo, hi := upper.Geometries[0].AABB()
	test.That(t, lo.Z, test.ShouldAlmostEqual, 0.)
	test.That(t, hi.Z, test.ShouldAlmostEqual, 500.)

	shoulder, err := m.Joint("shoulder")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, shoulder.Type, test.ShouldEqual, RevoluteJoint)
	test.That(t, shoulder.Max, test.ShouldAlmostEqual, 3.14)

	_, err = m.Link("missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseURDFErrors(t *testing.T) {
	_, err := ParseURDF([]byte("<robot"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseURDF([]byte(`<robot name="r"><link name="a"/><link name="b"/></robot>`))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"b"`)

	_, err = ParseURDF([]byte(`<robot name="r"><link name="a"/>
		<joint name="j" type="floating"><parent link="a"/><child link="a"/></joint></robot>`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseURDF([]byte(`<robot name="r"><link name="a"><collision><geometry><mesh filename="a.stl"/></geometry></collision></link></robot>`))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseURDFFile(filepath.Join(t.TempDir(), "missing.urdf"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.urdf")
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	urdfPath := filepath.Join(dir, "robot.urdf")
	srdfPath := filepath.Join(dir, "robot.srdf")
	test.That(t, os.WriteFile(urdfPath, []byte(testURDF), 0o600), test.ShouldBeNil)
	test.That(t, os.WriteFile(srdfPath, []byte(testSRDF), 0o600), test.ShouldBeNil)

	m, err := ParseURDFFile(urdfPath)
	test.That(t, err, test.ShouldBeNil)
	srdf, err := ParseSRDFFile(srdfPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.ApplySRDF(srdf), test.ShouldBeNil)
	test.That(t, m.Groups(), test.ShouldResemble, []string{"shoulder_only", "arm", "everything"})
}

func TestGroups(t *testing.T) {
	m := newTestModel(t)

	arm, err := m.Group("arm")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arm.Links, test.ShouldResemble, []string{"upper_arm", "forearm"})

	everything, err := m.Group("everything")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, everything.Links, test.ShouldResemble, []string{"tool", "upper_arm", "forearm"})

	updated, err := m.UpdatedLinksWithGeometry("shoulder_only")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, updated, test.ShouldResemble, []string{"upper_arm", "forearm", "tool"})

	_, err = m.UpdatedLinksWithGeometry("legs")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "legs")

	test.That(t, m.DisabledCollisions(), test.ShouldHaveLength, 2)
	test.That(t, m.DisabledCollisions()[0].Reason, test.ShouldEqual, "Adjacent")
}

func TestApplySRDFErrors(t *testing.T) {
	m, err := ParseURDF([]byte(testURDF))
	test.That(t, err, test.ShouldBeNil)
	srdf, err := ParseSRDF([]byte(`<robot name="two_link">
		<group name="bad_chain"><chain base_link="forearm" tip_link="base"/></group>
		<group name="loop"><group name="loop"/></group>
		<group name="ok"><link name="tool"/></group>
		<disable_collisions link1="base" link2="nope" reason="Never"/>
	</robot>`))
	test.That(t, err, test.ShouldBeNil)
	err = m.ApplySRDF(srdf)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bad_chain")
	test.That(t, err.Error(), test.ShouldContainSubstring, "includes itself")
	test.That(t, err.Error(), test.ShouldContainSubstring, "nope")

	// valid entries are still applied
	_, err = m.Group("ok")
	test.That(t, err, test.ShouldBeNil)
}

func TestFixedChildren(t *testing.T) {
	m := newTestModel(t)
	children := m.FixedChildren("base")
	test.That(t, children, test.ShouldHaveLength, 1)
	test.That(t, children[0].Link, test.ShouldEqual, "pedestal")
	test.That(t, children[0].Transform.Point().X, test.ShouldAlmostEqual, 300.)

	test.That(t, m.FixedChildren("upper_arm"), test.ShouldBeEmpty)
	test.That(t, m.FixedChildren("missing"), test.ShouldBeNil)
}

func TestLinkTransforms(t *testing.T) {
	m := newTestModel(t)

	zero, err := m.LinkTransforms(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zero, test.ShouldHaveLength, 7)
	test.That(t, spatialmath.R3VectorAlmostEqual(zero["tool"].Point(), r3.Vector{X: 450, Z: 600}, 1e-9), test.ShouldBeTrue)

	moved, err := m.LinkTransforms(map[string]float64{"shoulder": math.Pi / 2, "elbow": math.Pi / 2})
	test.That(t, err, test.ShouldBeNil)
	// the elbow pitches the forearm straight down onto the shoulder axis
	test.That(t, spatialmath.R3VectorAlmostEqual(moved["tool"].Point(), r3.Vector{Z: 150}, 1e-6), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(moved["pedestal"].Point(), r3.Vector{X: 300}, 1e-9), test.ShouldBeTrue)

	_, err = m.LinkTransforms(map[string]float64{"wrist": 1})
	test.That(t, err, test.ShouldNotBeNil)

	geoms, err := m.GeometriesInFrame("tool", moved["tool"])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(geoms[0].Pose().Point(), r3.Vector{Z: 150}, 1e-6), test.ShouldBeTrue)
}

func TestBuildModel(t *testing.T) {
	m := NewModel("manual")
	s, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), 1, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.AddLink("root", s), test.ShouldBeNil)
	test.That(t, s.Label(), test.ShouldEqual, "root")
	test.That(t, m.AddLink("root"), test.ShouldNotBeNil)
	test.That(t, m.AddLink("slider"), test.ShouldBeNil)
	test.That(t, m.AddJoint(Joint{Name: "rail", Type: PrismaticJoint, Parent: "root", Child: "slider", Axis: r3.Vector{Y: 2}}), test.ShouldBeNil)
	test.That(t, m.AddJoint(Joint{Name: "rail2", Type: FixedJoint, Parent: "root", Child: "slider"}), test.ShouldNotBeNil)
	test.That(t, m.AddJoint(Joint{Name: "x", Type: FixedJoint, Parent: "nope", Child: "slider"}), test.ShouldNotBeNil)
	test.That(t, m.Validate(), test.ShouldBeNil)

	rail, err := m.Joint("rail")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rail.Axis, test.ShouldResemble, r3.Vector{Y: 1})
	test.That(t, m.ZeroInputs(), test.ShouldResemble, map[string]float64{"rail": 0})

	tf, err := m.LinkTransforms(map[string]float64{"rail": 5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.R3VectorAlmostEqual(tf["slider"].Point(), r3.Vector{Y: 5}, 1e-9), test.ShouldBeTrue)

	test.That(t, m.AddGroup("g", []string{"slider", "slider"}), test.ShouldBeNil)
	g, err := m.Group("g")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Links, test.ShouldResemble, []string{"slider"})
	test.That(t, m.AddGroup("g", nil), test.ShouldNotBeNil)
	test.That(t, m.DisableCollision("root", "ghost", ""), test.ShouldNotBeNil)
}
