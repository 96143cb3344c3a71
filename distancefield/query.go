package distancefield

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/collision"
	"go.viam.com/collisiondistance/spatialmath"
)

// sdfData is a grid placed for one query.
type sdfData struct {
	grid      *Grid
	transform *Transform
}

// LinkSpheres is the sphere approximation of one active link.
type LinkSpheres struct {
	Link    string
	Spheres []Sphere
}

// DistanceSelf computes, for every active link with spheres, the smallest distance between its spheres and the
// grids of the links in its query plan, and writes one entry per link into res. transforms holds the world pose of
// every active and dynamic link. The overall minimum is the smallest entry; res is left with its empty minimum when
// no entry was written.
//
// A request naming a group must name one that exists. When EnableGroup has restricted the request, only active
// links in that set are checked.
func (r *CollisionRobot) DistanceSelf(
	req *collision.DistanceRequest,
	res *collision.DistanceResult,
	transforms map[string]spatialmath.Pose,
) error {
	start := time.Now()
	if req.GroupName != "" {
		if _, err := r.model.Group(req.GroupName); err != nil {
			return errors.Wrap(err, "self distance query")
		}
	}

	data, spheres, err := r.placeGrids(transforms)
	if err != nil {
		return err
	}

	order := []string{}
	for i, plan := range r.plans {
		if plan.empty {
			continue
		}
		if req.ActiveComponentsOnly != nil && !req.ActiveComponentsOnly[plan.link] {
			continue
		}
		entry := r.distanceSelfHelper(plan, spheres[i], data, req.Gradient)
		res.Distances[plan.link] = entry
		order = append(order, plan.link)
		if entry.MinDistance <= 0 {
			res.Collision = true
		}
	}

	for _, link := range order {
		res.MinimumDistance.Update(res.Distances[link])
	}
	r.metrics.observeQuery(time.Since(start).Seconds())
	return nil
}

// placeGrids places every grid for one query and returns the active spheres in world coordinates. Cached spheres
// are copied, never transformed in place.
func (r *CollisionRobot) placeGrids(transforms map[string]spatialmath.Pose) ([3][]sdfData, [][]Sphere, error) {
	var data [3][]sdfData
	spheres := make([][]Sphere, len(r.roles.Active))

	for i, link := range r.roles.Active {
		pose, ok := transforms[link]
		if !ok {
			return data, nil, newMissingTransformError(link)
		}
		tf := spatialmath.PoseToMat4(pose)
		world := make([]Sphere, len(r.spheres[i]))
		for j, s := range r.spheres[i] {
			c := tf.Mul4x1(mgl64.Vec4{s.Center.X, s.Center.Y, s.Center.Z, 1})
			world[j] = Sphere{Center: r3.Vector{X: c[0], Y: c[1], Z: c[2]}, Radius: s.Radius}
		}
		spheres[i] = world
		// spheres are moved with the column vector matrix; grid transforms take the row vector one
		tf = tf.Transpose()
		data[Active] = append(data[Active], sdfData{grid: r.active[i], transform: NewTransform(tf, r.active[i].VoxelSize())})
	}

	for i, link := range r.roles.Dynamic {
		pose, ok := transforms[link]
		if !ok {
			return data, nil, newMissingTransformError(link)
		}
		g := r.dynamic[i]
		data[Dynamic] = append(data[Dynamic], sdfData{grid: g, transform: NewTransform(RowMajorAffine(pose), g.VoxelSize())})
	}

	for _, g := range r.static {
		data[Static] = append(data[Static], sdfData{grid: g, transform: g.Transform()})
	}
	return data, spheres, nil
}

// distanceSelfHelper finds the nearest link to one active link. Grid values at the background carry no
// information and are skipped. The gradient, when requested, is the normalized sum of each child's world space
// grid gradient at its closest node, weighted by how far that child is inside the background distance.
func (r *CollisionRobot) distanceSelfHelper(
	plan queryPlan,
	spheres []Sphere,
	data [3][]sdfData,
	wantGradient bool,
) collision.DistanceResultEntry {
	background := r.meta.Background
	entry := collision.DistanceResultEntry{MinDistance: background}
	entry.LinkNames[0] = plan.link

	var gradient r3.Vector
	totalWeight := 0.
	for _, child := range plan.children {
		sdf := data[child.role][child.index]
		childMin := background
		var childMinIJK Coord
		found := false
		for _, s := range spheres {
			ijk := sdf.transform.WorldToIndexNodeCentered(s.Center)
			value := sdf.grid.Value(ijk)
			if sdf.grid.isBackground(value) {
				continue
			}
			if d := float64(value) - s.Radius; d < childMin {
				childMin = d
				childMinIJK = ijk
				found = true
			}
		}
		if !found {
			continue
		}
		if childMin < entry.MinDistance {
			entry.MinDistance = childMin
			entry.LinkNames[1] = child.link
		}
		if !wantGradient {
			continue
		}
		g := sdf.grid.Gradient(childMinIJK)
		// gradients come back as zero in flat regions
		if g == (r3.Vector{}) {
			continue
		}
		weight := background - childMin
		totalWeight += weight
		gradient = gradient.Add(sdf.transform.ApplyIJT(g).Normalize().Mul(weight))
		entry.HasGradient = true
	}

	if entry.HasGradient && totalWeight != 0 {
		entry.Gradient = gradient.Mul(1 / totalWeight).Normalize()
	}
	return entry
}

// SpheresInWorld returns the sphere approximation of every active link at the given link poses.
func (r *CollisionRobot) SpheresInWorld(transforms map[string]spatialmath.Pose) ([]LinkSpheres, error) {
	out := make([]LinkSpheres, 0, len(r.roles.Active))
	for i, link := range r.roles.Active {
		pose, ok := transforms[link]
		if !ok {
			return nil, newMissingTransformError(link)
		}
		world := make([]Sphere, 0, len(r.spheres[i]))
		for _, s := range r.spheres[i] {
			world = append(world, Sphere{Center: spatialmath.TransformPoint(pose, s.Center), Radius: s.Radius})
		}
		out = append(out, LinkSpheres{Link: link, Spheres: world})
	}
	return out, nil
}
