package collision

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.viam.com/test"

	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/spatialmath"
)

func sphereObject(t *testing.T, body Body, center r3.Vector, radius float64) *Object {
	t.Helper()
	s, err := spatialmath.NewSphere(spatialmath.NewPoseFromPoint(center), radius, body.ID())
	test.That(t, err, test.ShouldBeNil)
	return NewObject(body, s)
}

// countingDistance wraps ExactDistance and records every bound it was called with.
type countingDistance struct {
	bounds []float64
}

func (c *countingDistance) measure(a, b spatialmath.Geometry, bound float64) (float64, r3.Vector, r3.Vector, error) {
	c.bounds = append(c.bounds, bound)
	return ExactDistance(a, b, bound)
}

func newTestData(t *testing.T, req *DistanceRequest) (*DistanceData, *countingDistance) {
	t.Helper()
	dd := NewDistanceData(req, NewDistanceResult(), logging.NewTestLogger(t))
	counter := &countingDistance{}
	dd.Distance = counter.measure
	return dd, counter
}

func TestSeparatedSpheres(t *testing.T) {
	req := NewDistanceRequest()
	req.DistanceThreshold = 10
	dd, counter := newTestData(t, req)

	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 5}, 1)
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)

	test.That(t, counter.bounds, test.ShouldResemble, []float64{10})
	res := dd.Result
	test.That(t, res.Collision, test.ShouldBeFalse)
	test.That(t, res.Done(), test.ShouldBeFalse)
	test.That(t, res.MinimumDistance.MinDistance, test.ShouldAlmostEqual, 3.)
	test.That(t, res.MinimumDistance.LinkNames, test.ShouldResemble, [2]string{"a", "b"})
	test.That(t, spatialmath.R3VectorAlmostEqual(res.MinimumDistance.NearestPoints[0], r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(res.MinimumDistance.NearestPoints[1], r3.Vector{X: 4}, 1e-9), test.ShouldBeTrue)
	test.That(t, res.Distances, test.ShouldHaveLength, 2)
	test.That(t, res.Distances["a"].MinDistance, test.ShouldAlmostEqual, 3.)
	test.That(t, res.Distances["b"].MinDistance, test.ShouldAlmostEqual, 3.)
}

func TestOverlappingSpheresGlobal(t *testing.T) {
	req := NewDistanceRequest()
	req.Global = true
	dd, counter := newTestData(t, req)

	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 1.5}, 1)
	test.That(t, dd.Callback(a, b), test.ShouldBeTrue)
	// the global bound starts unbounded
	test.That(t, counter.bounds, test.ShouldResemble, []float64{math.MaxFloat64})

	res := dd.Result
	test.That(t, res.MinimumDistance.MinDistance, test.ShouldBeLessThanOrEqualTo, 0.)
	test.That(t, res.Collision, test.ShouldBeTrue)
	test.That(t, res.Done(), test.ShouldBeTrue)
	// global requests write no per-link entries
	test.That(t, res.Distances, test.ShouldBeEmpty)

	// the done token stops every later pair before it is measured
	c := sphereObject(t, Link{Name: "c"}, r3.Vector{X: 10}, 1)
	test.That(t, dd.Callback(a, c), test.ShouldBeTrue)
	test.That(t, counter.bounds, test.ShouldHaveLength, 1)
}

func TestOverlappingSpheresPerLink(t *testing.T) {
	dd, _ := newTestData(t, NewDistanceRequest())
	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 1.5}, 1)
	c := sphereObject(t, Link{Name: "c"}, r3.Vector{Y: 1}, 1)

	// per-link requests never stop early
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)
	test.That(t, dd.Result.Collision, test.ShouldBeTrue)
	test.That(t, dd.Result.Done(), test.ShouldBeFalse)
	test.That(t, dd.Callback(a, c), test.ShouldBeFalse)
	test.That(t, dd.Result.Distances["a"].MinDistance, test.ShouldAlmostEqual, -1.)
	test.That(t, dd.Result.Distances["a"].LinkNames, test.ShouldResemble, [2]string{"a", "c"})
	test.That(t, dd.Result.Distances["b"].MinDistance, test.ShouldAlmostEqual, -0.5)
}

func TestAllowedPairIsNeverMeasured(t *testing.T) {
	req := NewDistanceRequest()
	req.ACM = NewAllowedCollisionMatrix()
	req.ACM.SetEntry("b", "a", true)
	dd, counter := newTestData(t, req)
	reg := prometheus.NewRegistry()
	dd.Metrics = NewMetrics(reg)

	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{}, 1)
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)
	test.That(t, dd.Callback(b, a), test.ShouldBeFalse)
	test.That(t, counter.bounds, test.ShouldBeEmpty)
	test.That(t, dd.Result.Collision, test.ShouldBeFalse)
	test.That(t, dd.Result.Distances, test.ShouldBeEmpty)
	test.That(t, testutil.ToFloat64(dd.Metrics.pairs.WithLabelValues(outcomeACM)), test.ShouldEqual, 2.)

	// a Never entry is checked like a missing one
	req.ACM.SetEntry("a", "b", false)
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)
	test.That(t, counter.bounds, test.ShouldHaveLength, 1)
	test.That(t, dd.Result.Collision, test.ShouldBeTrue)
	test.That(t, testutil.ToFloat64(dd.Metrics.collisions), test.ShouldEqual, 1.)
}

func TestSameObjectIsNeverMeasured(t *testing.T) {
	dd, counter := newTestData(t, NewDistanceRequest())
	for _, body := range []Body{
		Link{Name: "a"},
		AttachedBody{Name: "part", Link: "a"},
		WorldObject{Name: "table"},
	} {
		o1 := sphereObject(t, body, r3.Vector{}, 1)
		o2 := sphereObject(t, body, r3.Vector{X: 0.5}, 1)
		test.That(t, dd.Callback(o1, o2), test.ShouldBeFalse)
	}
	test.That(t, counter.bounds, test.ShouldBeEmpty)

	// same name, different kind of body
	link := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	obstacle := sphereObject(t, WorldObject{Name: "a"}, r3.Vector{X: 5}, 1)
	dd.Callback(link, obstacle)
	test.That(t, counter.bounds, test.ShouldHaveLength, 1)
}

func TestActiveComponents(t *testing.T) {
	req := NewDistanceRequest()
	req.ActiveComponentsOnly = map[string]bool{"hand": true}
	dd, counter := newTestData(t, req)

	hand := sphereObject(t, Link{Name: "hand"}, r3.Vector{}, 1)
	grasped := sphereObject(t, AttachedBody{Name: "part", Link: "hand"}, r3.Vector{Z: 5}, 1)
	base := sphereObject(t, Link{Name: "base"}, r3.Vector{X: 4}, 1)
	table := sphereObject(t, WorldObject{Name: "table"}, r3.Vector{X: 10}, 1)

	// neither side active
	test.That(t, dd.Callback(base, table), test.ShouldBeFalse)
	test.That(t, counter.bounds, test.ShouldBeEmpty)

	// only the active side gets an entry, the global minimum still sees the pair
	dd.Callback(base, hand)
	test.That(t, dd.Result.Distances, test.ShouldHaveLength, 1)
	test.That(t, dd.Result.Distances["hand"].MinDistance, test.ShouldAlmostEqual, 2.)
	test.That(t, dd.Result.MinimumDistance.MinDistance, test.ShouldAlmostEqual, 2.)

	// attached bodies are active through their link and bounded by their own record
	dd.Callback(grasped, table)
	test.That(t, dd.Result.Distances["part"].MinDistance, test.ShouldAlmostEqual, math.Sqrt(125)-2)
	_, ok := dd.Result.Distances["table"]
	test.That(t, ok, test.ShouldBeFalse)

	// the single active record bounds the next measurement of that side
	dd.Callback(hand, table)
	test.That(t, counter.bounds[len(counter.bounds)-1], test.ShouldAlmostEqual, 2.)
	test.That(t, dd.Result.Distances["hand"].MinDistance, test.ShouldAlmostEqual, 2.)
}

func TestTouchLinks(t *testing.T) {
	dd, counter := newTestData(t, NewDistanceRequest())
	part := AttachedBody{Name: "part", Link: "hand", TouchLinks: []string{"finger"}}
	grasped := sphereObject(t, part, r3.Vector{}, 1)
	finger := sphereObject(t, Link{Name: "finger"}, r3.Vector{X: 0.5}, 1)
	forearm := sphereObject(t, Link{Name: "forearm"}, r3.Vector{X: 0.5}, 1)
	cup := sphereObject(t, WorldObject{Name: "finger"}, r3.Vector{X: 0.5}, 1)

	test.That(t, dd.Callback(finger, grasped), test.ShouldBeFalse)
	test.That(t, dd.Callback(grasped, finger), test.ShouldBeFalse)
	test.That(t, counter.bounds, test.ShouldBeEmpty)

	dd.Callback(grasped, forearm)
	// touch links only apply to robot links
	dd.Callback(cup, grasped)
	test.That(t, counter.bounds, test.ShouldHaveLength, 2)
	test.That(t, dd.Result.Collision, test.ShouldBeTrue)
}

func TestThresholdEarlyExit(t *testing.T) {
	req := NewDistanceRequest()
	req.DistanceThreshold = 2
	dd, counter := newTestData(t, req)
	reg := prometheus.NewRegistry()
	dd.Metrics = NewMetrics(reg)

	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 5}, 1)
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)
	test.That(t, counter.bounds, test.ShouldHaveLength, 1)
	test.That(t, dd.Result.Distances, test.ShouldBeEmpty)
	test.That(t, dd.Result.MinimumDistance.MinDistance, test.ShouldEqual, math.MaxFloat64)
	test.That(t, testutil.ToFloat64(dd.Metrics.pairs.WithLabelValues(outcomeEarlyExit)), test.ShouldEqual, 1.)

	// a measurement exactly at the bound is not an improvement either
	dd.Distance = func(_, _ spatialmath.Geometry, bound float64) (float64, r3.Vector, r3.Vector, error) {
		return bound, r3.Vector{}, r3.Vector{}, nil
	}
	dd.Callback(a, b)
	test.That(t, dd.Result.Distances, test.ShouldBeEmpty)
}

func TestMonotonicRefinement(t *testing.T) {
	dd, counter := newTestData(t, NewDistanceRequest())
	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)

	distances := []float64{6, 3, 8, 4, 2.5, 9}
	previous := math.MaxFloat64
	for i, d := range distances {
		other := sphereObject(t, Link{Name: string(rune('b' + i))}, r3.Vector{X: d + 2}, 1)
		dd.Callback(a, other)
		current := dd.Result.Distances["a"].MinDistance
		test.That(t, current, test.ShouldBeLessThanOrEqualTo, previous)
		previous = current
	}
	test.That(t, previous, test.ShouldAlmostEqual, 2.5)
	// new bodies have no record so the request threshold bounds every measurement
	for _, bound := range counter.bounds {
		test.That(t, bound, test.ShouldEqual, math.MaxFloat64)
	}

	// once both sides have records the larger one is the bound
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 8}, 1)
	dd.Callback(a, b)
	test.That(t, counter.bounds[len(counter.bounds)-1], test.ShouldAlmostEqual, 6.)
	test.That(t, dd.Result.Distances["b"].MinDistance, test.ShouldAlmostEqual, 6.)
	test.That(t, dd.Result.Distances["a"].MinDistance, test.ShouldAlmostEqual, 2.5)
}

func TestDistanceErrorIsNotFatal(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	dd := NewDistanceData(NewDistanceRequest(), NewDistanceResult(), logger)
	dd.Distance = func(_, _ spatialmath.Geometry, _ float64) (float64, r3.Vector, r3.Vector, error) {
		return 0, r3.Vector{}, r3.Vector{}, errors.New("unsupported")
	}
	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 5}, 1)
	test.That(t, dd.Callback(a, b), test.ShouldBeFalse)
	test.That(t, dd.Result.Distances, test.ShouldBeEmpty)
	test.That(t, logs.FilterMessage("failed to compute distance").Len(), test.ShouldEqual, 1)
}

func TestVerboseLogging(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	req := NewDistanceRequest()
	req.ACM = NewAllowedCollisionMatrix()
	req.ACM.SetEntry("a", "c", true)
	dd := NewDistanceData(req, NewDistanceResult(), logger)

	a := sphereObject(t, Link{Name: "a"}, r3.Vector{}, 1)
	b := sphereObject(t, Link{Name: "b"}, r3.Vector{X: 5}, 1)
	c := sphereObject(t, Link{Name: "c"}, r3.Vector{X: 5}, 1)
	dd.Callback(a, b)
	dd.Callback(a, c)
	test.That(t, logs.Len(), test.ShouldEqual, 0)

	req.Verbose = true
	dd.Callback(a, b)
	dd.Callback(a, c)
	test.That(t, logs.FilterMessageSnippet("checking distance").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("always allowed").Len(), test.ShouldEqual, 1)
}

func TestResultClear(t *testing.T) {
	res := NewDistanceResult()
	res.Distances["a"] = DistanceResultEntry{MinDistance: 1}
	res.Collision = true
	res.Stop()
	res.Clear()
	test.That(t, res.Done(), test.ShouldBeFalse)
	test.That(t, res.Collision, test.ShouldBeFalse)
	test.That(t, res.Distances, test.ShouldBeEmpty)
	test.That(t, res.MinimumDistance.MinDistance, test.ShouldEqual, math.MaxFloat64)

	entry := NewDistanceResultEntry()
	test.That(t, entry.Update(DistanceResultEntry{MinDistance: 2}), test.ShouldBeTrue)
	test.That(t, entry.Update(DistanceResultEntry{MinDistance: 2}), test.ShouldBeFalse)
	test.That(t, entry.Update(DistanceResultEntry{MinDistance: 3}), test.ShouldBeFalse)
	test.That(t, entry.MinDistance, test.ShouldEqual, 2.)
}
