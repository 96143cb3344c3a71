package pointcloud

import (
	"bytes"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()

	p0 := r3.Vector{}
	test.That(t, pc.Set(p0, 5), test.ShouldBeNil)
	v, got := pc.At(0, 0, 0)
	test.That(t, got, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 5.)

	_, got = pc.At(1, 0, 1)
	test.That(t, got, test.ShouldBeFalse)

	p1 := r3.Vector{X: 1, Z: 1}
	test.That(t, pc.Set(p1, 17), test.ShouldBeNil)
	p2 := r3.Vector{X: -1, Y: -2, Z: 1}
	test.That(t, pc.Set(p2, 81), test.ShouldBeNil)
	// setting an existing point replaces its value
	test.That(t, pc.Set(p1, 18), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	v, _ = pc.At(1, 0, 1)
	test.That(t, v, test.ShouldEqual, 18.)

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -1.)
	test.That(t, meta.MaxX, test.ShouldEqual, 1.)
	test.That(t, meta.MinY, test.ShouldEqual, -2.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 1.)

	count := 0
	pc.Iterate(0, 0, func(p r3.Vector, value float64) bool {
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 3)

	count = 0
	pc.Iterate(2, 1, func(p r3.Vector, value float64) bool {
		test.That(t, p, test.ShouldResemble, p2)
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 1)

	err := pc.Set(r3.Vector{X: minPreciseFloat64 - 1}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "x component")
	err = pc.Set(r3.Vector{Z: maxPreciseFloat64 + 1}, 0)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "z component")
}

func TestToPCD(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(r3.Vector{X: 1000, Y: -500}, 250), test.ShouldBeNil)
	test.That(t, pc.Set(r3.Vector{Z: 2000}, -10), test.ShouldBeNil)

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDAscii), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 12)
	test.That(t, lines[1], test.ShouldEqual, "FIELDS x y z distance")
	test.That(t, lines[8], test.ShouldEqual, "POINTS 2")
	test.That(t, lines[9], test.ShouldEqual, "DATA ascii")
	test.That(t, lines[10], test.ShouldEqual, "1.000000 -0.500000 0.000000 0.250000")
	test.That(t, lines[11], test.ShouldEqual, "0.000000 0.000000 2.000000 -0.010000")

	buf.Reset()
	test.That(t, ToPCD(pc, &buf, PCDBinary), test.ShouldBeNil)
	header := "DATA binary\n"
	idx := strings.Index(buf.String(), header)
	test.That(t, idx, test.ShouldBeGreaterThan, 0)
	test.That(t, buf.Len()-idx-len(header), test.ShouldEqual, 2*16)

	test.That(t, ToPCD(pc, &buf, PCDType(7)), test.ShouldNotBeNil)
}
