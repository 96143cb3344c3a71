package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"

	"go.viam.com/collisiondistance/referenceframe"
)

// DistanceRequest describes one distance query. It is read only while the query runs.
type DistanceRequest struct {
	// GroupName restricts per-link results to the links moved by this group once EnableGroup is called.
	GroupName string
	// ActiveComponentsOnly is the set of links results are restricted to, nil for no restriction.
	ActiveComponentsOnly map[string]bool
	// Global only tracks the overall minimum and stops at the first contact.
	Global bool
	// Gradient requests avoidance gradients where the engine supports them.
	Gradient bool
	// DistanceThreshold is the bound above which exact distances are not needed.
	DistanceThreshold float64
	// Verbose logs every decision made for a pair.
	Verbose bool
	// ACM is the allowed collision policy, nil checks every pair.
	ACM *AllowedCollisionMatrix
}

// NewDistanceRequest returns a per-link request with no distance threshold.
func NewDistanceRequest() *DistanceRequest {
	return &DistanceRequest{DistanceThreshold: math.MaxFloat64}
}

// EnableGroup restricts the request to the links updated by GroupName. An unknown group is an error.
func (req *DistanceRequest) EnableGroup(model *referenceframe.Model) error {
	links, err := model.UpdatedLinksWithGeometry(req.GroupName)
	if err != nil {
		return err
	}
	req.ActiveComponentsOnly = lo.SliceToMap(links, func(l string) (string, bool) { return l, true })
	return nil
}

// isActive reports whether the link is one whose results are recorded.
func (req *DistanceRequest) isActive(link string) bool {
	if req.ActiveComponentsOnly == nil {
		return true
	}
	return link != "" && req.ActiveComponentsOnly[link]
}

// DistanceResultEntry is the closest approach found so far between two bodies.
type DistanceResultEntry struct {
	MinDistance float64
	// NearestPoints are the closest points on each body, in the query frame, ordered like LinkNames.
	NearestPoints [2]r3.Vector
	LinkNames     [2]string
	HasGradient   bool
	Gradient      r3.Vector
}

// NewDistanceResultEntry returns an entry that any measurement improves on.
func NewDistanceResultEntry() DistanceResultEntry {
	return DistanceResultEntry{MinDistance: math.MaxFloat64}
}

// Update replaces the entry with other when other is strictly closer, and reports whether it did.
func (e *DistanceResultEntry) Update(other DistanceResultEntry) bool {
	if other.MinDistance < e.MinDistance {
		*e = other
		return true
	}
	return false
}

// DistanceResult is the aggregate written by one query. It must not be shared between concurrent queries.
type DistanceResult struct {
	MinimumDistance DistanceResultEntry
	// Distances holds the best entry per body, only written for per-link requests.
	Distances map[string]DistanceResultEntry
	Collision bool

	done bool
}

// NewDistanceResult returns an empty result.
func NewDistanceResult() *DistanceResult {
	return &DistanceResult{
		MinimumDistance: NewDistanceResultEntry(),
		Distances:       map[string]DistanceResultEntry{},
	}
}

// Done reports whether the query has finished early. Pair iteration must stop once it is set.
func (res *DistanceResult) Done() bool {
	return res.done
}

// Stop ends the query; later pairs are not evaluated.
func (res *DistanceResult) Stop() {
	res.done = true
}

// Clear resets the result so it can be reused for a new query.
func (res *DistanceResult) Clear() {
	res.MinimumDistance = NewDistanceResultEntry()
	res.Distances = map[string]DistanceResultEntry{}
	res.Collision = false
	res.done = false
}
