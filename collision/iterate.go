package collision

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/referenceframe"
	"go.viam.com/collisiondistance/spatialmath"
)

// Attachment is an attached body together with its geometries, expressed in the frame of the link it is attached to.
type Attachment struct {
	Body       AttachedBody
	Geometries []spatialmath.Geometry
}

// RobotObjects builds a shape handle for every geometry of every link and attachment, placed by the given link
// transforms. Links are visited in model order.
func RobotObjects(
	model *referenceframe.Model,
	transforms map[string]spatialmath.Pose,
	attachments []Attachment,
) ([]*Object, error) {
	objects := []*Object{}
	for _, name := range model.LinksWithCollisionGeometry() {
		tf, ok := transforms[name]
		if !ok {
			return nil, errors.Errorf("no transform for link %q", name)
		}
		geometries, err := model.GeometriesInFrame(name, tf)
		if err != nil {
			return nil, err
		}
		for _, g := range geometries {
			objects = append(objects, NewObject(Link{Name: name}, g))
		}
	}
	for _, a := range attachments {
		tf, ok := transforms[a.Body.Link]
		if !ok {
			return nil, errors.Wrapf(referenceframe.NewLinkNotFoundError(a.Body.Link), "attached body %q", a.Body.Name)
		}
		for _, g := range a.Geometries {
			objects = append(objects, NewObject(a.Body, g.Transform(tf)))
		}
	}
	return objects, nil
}

// WorldObjects builds shape handles for an obstacle made of the given geometries.
func WorldObjects(name string, geometries ...spatialmath.Geometry) []*Object {
	objects := make([]*Object, 0, len(geometries))
	for _, g := range geometries {
		objects = append(objects, NewObject(WorldObject{Name: name}, g))
	}
	return objects
}

// DistanceSelf feeds every unordered pair of objects to the callback. Iteration stops when the result is done or
// ctx is canceled, checked between pairs.
func DistanceSelf(ctx context.Context, objects []*Object, dd *DistanceData) error {
	for i := range objects {
		for j := i + 1; j < len(objects); j++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if dd.Callback(objects[i], objects[j]) {
				return nil
			}
		}
	}
	return nil
}

// DistanceOther feeds every pair of one robot object and one world object to the callback.
func DistanceOther(ctx context.Context, robot, world []*Object, dd *DistanceData) error {
	for _, r := range robot {
		for _, w := range world {
			if err := ctx.Err(); err != nil {
				return err
			}
			if dd.Callback(r, w) {
				return nil
			}
		}
	}
	return nil
}
