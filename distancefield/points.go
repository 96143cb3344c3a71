package distancefield

import (
	"github.com/samber/lo"

	"go.viam.com/collisiondistance/pointcloud"
	"go.viam.com/collisiondistance/spatialmath"
)

// VoxelGridToPointClouds exports the informative nodes of every grid, placed at the given link poses, as two
// clouds: nodes on or inside a surface and nodes outside it. Each point carries its grid value. Links named in
// exclude are skipped.
func (r *CollisionRobot) VoxelGridToPointClouds(
	transforms map[string]spatialmath.Pose,
	exclude []string,
) (pointcloud.PointCloud, pointcloud.PointCloud, error) {
	inside := pointcloud.New()
	outside := pointcloud.New()

	for _, role := range []Role{Active, Dynamic} {
		for i, link := range r.roles.Of(role) {
			if lo.Contains(exclude, link) {
				continue
			}
			pose, ok := transforms[link]
			if !ok {
				return nil, nil, newMissingTransformError(link)
			}
			g := r.grids(role)[i]
			placed := g.WithTransform(NewTransform(RowMajorAffine(pose), g.VoxelSize()))
			if err := toInsideOutsidePointClouds(placed, inside, outside); err != nil {
				return nil, nil, err
			}
		}
	}
	for i, link := range r.roles.Static {
		if lo.Contains(exclude, link) {
			continue
		}
		if err := toInsideOutsidePointClouds(r.static[i], inside, outside); err != nil {
			return nil, nil, err
		}
	}
	return inside, outside, nil
}

func toInsideOutsidePointClouds(g *Grid, inside, outside pointcloud.PointCloud) error {
	background := float32(g.Background())
	var err error
	g.ForEachNode(func(c Coord, value float32) bool {
		if g.isBackground(value) || value == -background {
			return true
		}
		cloud := outside
		if value <= 0 {
			cloud = inside
		}
		err = cloud.Set(g.Transform().IndexToWorld(c.Vector()), float64(value))
		return err == nil
	})
	return err
}
