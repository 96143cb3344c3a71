package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/spatialmath"
)

// DistanceFunc measures the separation between two geometries and the nearest point on each. Implementations may
// stop refining once the distance is known to be at least bound.
type DistanceFunc func(a, b spatialmath.Geometry, bound float64) (float64, r3.Vector, r3.Vector, error)

// ExactDistance is the default DistanceFunc, it always returns the exact signed distance.
func ExactDistance(a, b spatialmath.Geometry, _ float64) (float64, r3.Vector, r3.Vector, error) {
	return a.ClosestPoints(b)
}

// DistanceData is the state shared by every callback invocation of one query.
type DistanceData struct {
	Request *DistanceRequest
	Result  *DistanceResult
	// Distance defaults to ExactDistance.
	Distance DistanceFunc
	Metrics  *Metrics

	logger logging.Logger
}

// NewDistanceData prepares a query.
func NewDistanceData(req *DistanceRequest, res *DistanceResult, logger logging.Logger) *DistanceData {
	return &DistanceData{Request: req, Result: res, Distance: ExactDistance, logger: logger}
}

// Callback handles one candidate pair from the broad phase: it decides whether the pair must be measured, measures
// it and folds the measurement into the result. It returns true when the search should stop.
func (dd *DistanceData) Callback(o1, o2 *Object) bool {
	req := dd.Request
	res := dd.Result
	if res.Done() {
		return true
	}

	if o1.SameObject(o2) {
		dd.Metrics.observe(outcomeSameObject)
		return false
	}
	id1, id2 := o1.Body.ID(), o2.Body.ID()

	active1, active2 := true, true
	if req.ActiveComponentsOnly != nil {
		active1 = req.isActive(o1.Body.OwningLink())
		active2 = req.isActive(o2.Body.OwningLink())
		if !active1 && !active2 {
			dd.Metrics.observe(outcomeInactive)
			return false
		}
	}

	if req.ACM.IsAllowed(id1, id2) {
		dd.debugf("collision between %q and %q is always allowed, no distance is computed", id1, id2)
		dd.Metrics.observe(outcomeACM)
		return false
	}

	if touchAllowed(o1, o2) {
		dd.debugf("%q and %q are allowed to touch, no distance is computed", id1, id2)
		dd.Metrics.observe(outcomeTouchLink)
		return false
	}

	dd.debugf("checking distance between %q and %q", id1, id2)

	threshold := req.DistanceThreshold
	rec1, found1 := res.Distances[id1]
	rec2, found2 := res.Distances[id2]
	switch {
	case req.Global:
		threshold = res.MinimumDistance.MinDistance
	case active1 && active2:
		if found1 && found2 {
			threshold = math.Max(rec1.MinDistance, rec2.MinDistance)
		}
	case active1:
		if found1 {
			threshold = rec1.MinDistance
		}
	case active2:
		if found2 {
			threshold = rec2.MinDistance
		}
	}

	distance := dd.Distance
	if distance == nil {
		distance = ExactDistance
	}
	d, p1, p2, err := distance(o1.Geometry, o2.Geometry, threshold)
	if err != nil {
		dd.log().Errorw("failed to compute distance", "body1", id1, "body2", id2, "error", err)
		dd.Metrics.observe(outcomeError)
		return res.Done()
	}
	if d >= threshold {
		dd.Metrics.observe(outcomeEarlyExit)
		return res.Done()
	}
	dd.Metrics.observe(outcomeMeasured)

	entry := DistanceResultEntry{
		MinDistance:   d,
		NearestPoints: [2]r3.Vector{p1, p2},
		LinkNames:     [2]string{id1, id2},
	}
	res.MinimumDistance.Update(entry)

	if d <= 0 {
		res.Collision = true
		dd.Metrics.observeContact()
	}

	if req.Global {
		if d <= 0 {
			res.Stop()
		}
		return res.Done()
	}

	if active1 {
		dd.updateLink(id1, entry)
	}
	if active2 {
		dd.updateLink(id2, entry)
	}
	return res.Done()
}

func (dd *DistanceData) updateLink(id string, entry DistanceResultEntry) {
	current, ok := dd.Result.Distances[id]
	if !ok {
		dd.Result.Distances[id] = entry
		return
	}
	if current.Update(entry) {
		dd.Result.Distances[id] = current
	}
}

func (dd *DistanceData) debugf(template string, args ...interface{}) {
	if dd.Request.Verbose {
		dd.log().Debugf(template, args...)
	}
}

func (dd *DistanceData) log() logging.Logger {
	if dd.logger == nil {
		return logging.Global()
	}
	return dd.logger
}
