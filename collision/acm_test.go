package collision

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/referenceframe"
	"go.viam.com/collisiondistance/spatialmath"
)

func TestAllowedCollisionMatrixSymmetry(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	acm.SetEntry("a", "b", true)
	acm.SetEntry("c", "a", false)
	acm.SetConditionalEntry("b", "c", func(string, string) bool { return true })

	names := []string{"a", "b", "c", "d"}
	for _, n1 := range names {
		for _, n2 := range names {
			test.That(t, acm.IsAllowed(n1, n2), test.ShouldEqual, acm.IsAllowed(n2, n1))
		}
	}

	test.That(t, acm.IsAllowed("b", "a"), test.ShouldBeTrue)
	test.That(t, acm.IsAllowed("a", "c"), test.ShouldBeFalse)
	// conditional entries must still be checked
	test.That(t, acm.IsAllowed("c", "b"), test.ShouldBeFalse)
	// no entry means the pair must be checked
	test.That(t, acm.IsAllowed("a", "d"), test.ShouldBeFalse)

	entry, ok := acm.GetEntry("c", "b")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, entry, test.ShouldEqual, Conditional)
	test.That(t, entry.String(), test.ShouldEqual, "conditional")
	fn, ok := acm.Decider("b", "c")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fn("b", "c"), test.ShouldBeTrue)
	_, ok = acm.Decider("a", "b")
	test.That(t, ok, test.ShouldBeFalse)

	acm.RemoveEntry("b", "a")
	test.That(t, acm.IsAllowed("a", "b"), test.ShouldBeFalse)
	_, ok = acm.GetEntry("a", "b")
	test.That(t, ok, test.ShouldBeFalse)

	var none *AllowedCollisionMatrix
	test.That(t, none.IsAllowed("a", "b"), test.ShouldBeFalse)
}

func TestAllowedCollisionMatrixSetEntries(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	acm.SetEntries([]string{"a", "b"}, []string{"b", "c"}, true)
	// a-b, a-c, b-c; b-b is skipped
	test.That(t, acm.Size(), test.ShouldEqual, 3)
	test.That(t, acm.IsAllowed("c", "a"), test.ShouldBeTrue)
	_, ok := acm.GetEntry("b", "b")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestAllowedCollisionMatrixDefaults(t *testing.T) {
	acm := NewAllowedCollisionMatrix()
	acm.SetDefaultEntry("table", true)
	test.That(t, acm.IsAllowed("arm", "table"), test.ShouldBeTrue)
	test.That(t, acm.IsAllowed("table", "hand"), test.ShouldBeTrue)

	// a pair entry overrides the defaults
	acm.SetEntry("hand", "table", false)
	test.That(t, acm.IsAllowed("table", "hand"), test.ShouldBeFalse)

	// the stricter default wins
	acm.SetDefaultEntry("arm", false)
	test.That(t, acm.IsAllowed("arm", "table"), test.ShouldBeFalse)
	allowed, ok := acm.GetAllowedCollision("arm", "table")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, allowed, test.ShouldEqual, Never)

	acm.RemoveDefaultEntry("table")
	acm.RemoveDefaultEntry("arm")
	_, ok = acm.GetAllowedCollision("arm", "table")
	test.That(t, ok, test.ShouldBeFalse)
	// defaults are not pair entries
	test.That(t, acm.Size(), test.ShouldEqual, 1)
}

func TestAllowedCollisionMatrixFromModel(t *testing.T) {
	m := referenceframe.NewModel("test")
	for _, name := range []string{"base", "arm", "hand"} {
		s, err := spatialmath.NewSphere(spatialmath.NewZeroPose(), 1, "")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.AddLink(name, s), test.ShouldBeNil)
	}
	test.That(t, m.AddLink("frame_only"), test.ShouldBeNil)
	test.That(t, m.AddJoint(referenceframe.Joint{Name: "j1", Type: referenceframe.RevoluteJoint, Parent: "base", Child: "arm", Axis: r3.Vector{Z: 1}}), test.ShouldBeNil)
	test.That(t, m.AddJoint(referenceframe.Joint{Name: "j2", Type: referenceframe.RevoluteJoint, Parent: "arm", Child: "hand", Axis: r3.Vector{Z: 1}}), test.ShouldBeNil)
	test.That(t, m.AddJoint(referenceframe.Joint{Name: "j3", Type: referenceframe.FixedJoint, Parent: "hand", Child: "frame_only"}), test.ShouldBeNil)
	test.That(t, m.DisableCollision("arm", "base", "Adjacent"), test.ShouldBeNil)

	acm := NewAllowedCollisionMatrixFromModel(m)
	test.That(t, acm.Size(), test.ShouldEqual, 3)
	test.That(t, acm.IsAllowed("base", "arm"), test.ShouldBeTrue)
	test.That(t, acm.IsAllowed("hand", "base"), test.ShouldBeFalse)
	entry, ok := acm.GetEntry("hand", "arm")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, entry, test.ShouldEqual, Never)
	_, ok = acm.GetEntry("hand", "frame_only")
	test.That(t, ok, test.ShouldBeFalse)
}
