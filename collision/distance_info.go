package collision

import (
	"github.com/golang/geo/r3"

	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/spatialmath"
)

// DistanceInfo is a per-link view of a result entry, oriented so the queried link comes first.
type DistanceInfo struct {
	NearestObstacle string
	LinkPoint       r3.Vector
	ObstaclePoint   r3.Vector
	// AvoidanceVector is the unit vector from the obstacle point to the link point.
	AvoidanceVector r3.Vector
	Distance        float64
}

// GetDistanceInfo derives a DistanceInfo for every entry of a per-link result. It returns false when any entry
// does not name its own key; those entries are logged and skipped while the rest are still converted. A nil logger
// logs to the global logger.
func GetDistanceInfo(distances map[string]DistanceResultEntry, logger logging.Logger) (map[string]DistanceInfo, bool) {
	return GetDistanceInfoInFrame(distances, spatialmath.NewZeroPose(), logger)
}

// GetDistanceInfoInFrame is GetDistanceInfo with both points expressed through tf first.
func GetDistanceInfoInFrame(
	distances map[string]DistanceResultEntry,
	tf spatialmath.Pose,
	logger logging.Logger,
) (map[string]DistanceInfo, bool) {
	if logger == nil {
		logger = logging.Global()
	}
	infos := make(map[string]DistanceInfo, len(distances))
	status := true
	for key, entry := range distances {
		var self, other int
		switch key {
		case entry.LinkNames[0]:
			self, other = 0, 1
		case entry.LinkNames[1]:
			self, other = 1, 0
		default:
			logger.Warnw("distance result entry does not name its key", "key", key, "names", entry.LinkNames)
			status = false
			continue
		}
		info := DistanceInfo{
			NearestObstacle: entry.LinkNames[other],
			LinkPoint:       spatialmath.TransformPoint(tf, entry.NearestPoints[self]),
			ObstaclePoint:   spatialmath.TransformPoint(tf, entry.NearestPoints[other]),
			Distance:        entry.MinDistance,
		}
		if v := info.LinkPoint.Sub(info.ObstaclePoint); v.Norm2() > 0 {
			info.AvoidanceVector = v.Normalize()
		}
		infos[key] = info
	}
	return infos, status
}
