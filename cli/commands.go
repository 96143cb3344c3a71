package cli

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/collisiondistance/collision"
	"go.viam.com/collisiondistance/pointcloud"
	"go.viam.com/collisiondistance/referenceframe"
	"go.viam.com/collisiondistance/spatialmath"
)

func formatVector(v r3.Vector) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// linkTransforms reads the joint flag and runs forward kinematics.
func linkTransforms(c *cli.Context, model *referenceframe.Model) (map[string]spatialmath.Pose, error) {
	inputs, err := parseJoints(c.StringSlice(flagJoint))
	if err != nil {
		return nil, err
	}
	return model.LinkTransforms(inputs)
}

func newRequest(c *cli.Context, model *referenceframe.Model) (*collision.DistanceRequest, error) {
	req := collision.NewDistanceRequest()
	if group := c.String(flagGroup); group != "" {
		req.GroupName = group
		if err := req.EnableGroup(model); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// BuildAction builds every grid and writes them to an archive.
func BuildAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	model, err := loadModel(c)
	if err != nil {
		return err
	}
	r, err := loadRobot(c, model, logger, reg)
	if err != nil {
		return err
	}
	out := c.Path(flagOut)
	if err := r.WriteToFile(out); err != nil {
		return err
	}
	printf(c.App.Writer, "%s", r.Roles().String())
	printf(c.App.Writer, "Wrote %s of distance fields to %s", units.BytesSize(float64(r.MemUsage())), out)
	return nil
}

// QueryAction prints the approximate self distance of every active link.
func QueryAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	model, err := loadModel(c)
	if err != nil {
		return err
	}
	r, err := loadRobot(c, model, logger, reg)
	if err != nil {
		return err
	}
	transforms, err := linkTransforms(c, model)
	if err != nil {
		return err
	}
	req, err := newRequest(c, model)
	if err != nil {
		return err
	}
	req.Gradient = c.Bool(flagGradient)

	res := collision.NewDistanceResult()
	if err := r.DistanceSelf(req, res, transforms); err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Link", "Nearest", "Distance", "Gradient"})
	for _, link := range r.Roles().Active {
		entry, ok := res.Distances[link]
		if !ok {
			continue
		}
		nearest, gradient := "-", "-"
		if entry.LinkNames[1] != "" {
			nearest = entry.LinkNames[1]
		}
		if entry.HasGradient {
			gradient = formatVector(entry.Gradient)
		}
		t.AppendRow(table.Row{link, nearest, fmt.Sprintf("%.3f", entry.MinDistance), gradient})
	}
	printf(c.App.Writer, "%s", t.Render())

	if len(res.Distances) == 0 {
		printf(c.App.Writer, "No active link was checked")
		return nil
	}
	minimum := res.MinimumDistance
	printf(c.App.Writer, "Minimum distance %.3f between %s and %s", minimum.MinDistance, minimum.LinkNames[0], minimum.LinkNames[1])
	if res.Collision {
		printf(c.App.Writer, "Robot is in self collision")
	}
	return nil
}

// ExactAction prints the exact self distance of every link, measured pairwise between link geometries.
func ExactAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	model, err := loadModel(c)
	if err != nil {
		return err
	}
	transforms, err := linkTransforms(c, model)
	if err != nil {
		return err
	}
	objects, err := collision.RobotObjects(model, transforms, nil)
	if err != nil {
		return err
	}
	req, err := newRequest(c, model)
	if err != nil {
		return err
	}
	req.ACM = collision.NewAllowedCollisionMatrixFromModel(model)
	req.Verbose = c.Bool(generalFlagDebug)

	res := collision.NewDistanceResult()
	dd := collision.NewDistanceData(req, res, logger)
	dd.Metrics = collision.NewMetrics(reg)
	if err := collision.DistanceSelf(c.Context, objects, dd); err != nil {
		return err
	}
	infos, _ := collision.GetDistanceInfo(res.Distances, logger)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Link", "Nearest", "Distance", "Avoidance"})
	for _, link := range model.LinksWithCollisionGeometry() {
		info, ok := infos[link]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{link, info.NearestObstacle, fmt.Sprintf("%.3f", info.Distance), formatVector(info.AvoidanceVector)})
	}
	printf(c.App.Writer, "%s", t.Render())
	if res.Collision {
		printf(c.App.Writer, "Robot is in self collision")
	}
	return nil
}

// SpheresAction prints the world space sphere approximation of every active link.
func SpheresAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	model, err := loadModel(c)
	if err != nil {
		return err
	}
	r, err := loadRobot(c, model, logger, reg)
	if err != nil {
		return err
	}
	transforms, err := linkTransforms(c, model)
	if err != nil {
		return err
	}
	sets, err := r.SpheresInWorld(transforms)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Link", "#", "Center", "Radius"})
	for _, set := range sets {
		if len(set.Spheres) == 0 {
			t.AppendRow(table.Row{set.Link, "-", "-", "-"})
			continue
		}
		for i, s := range set.Spheres {
			t.AppendRow(table.Row{set.Link, i + 1, formatVector(s.Center), fmt.Sprintf("%.3f", s.Radius)})
		}
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// PointsAction writes the informative nodes of every grid to two PCD files.
func PointsAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	model, err := loadModel(c)
	if err != nil {
		return err
	}
	r, err := loadRobot(c, model, logger, reg)
	if err != nil {
		return err
	}
	transforms, err := linkTransforms(c, model)
	if err != nil {
		return err
	}
	inside, outside, err := r.VoxelGridToPointClouds(transforms, c.StringSlice(flagExclude))
	if err != nil {
		return err
	}

	pcdType := pointcloud.PCDAscii
	if c.Bool(flagBinary) {
		pcdType = pointcloud.PCDBinary
	}
	prefix := c.String(flagOut)
	for name, cloud := range map[string]pointcloud.PointCloud{"inside": inside, "outside": outside} {
		path := fmt.Sprintf("%s_%s.pcd", prefix, name)
		if err := writePCD(path, cloud, pcdType); err != nil {
			return err
		}
		printf(c.App.Writer, "Wrote %d points to %s", cloud.Size(), path)
	}
	return nil
}

func writePCD(path string, cloud pointcloud.PointCloud, pcdType pointcloud.PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return errors.Wrapf(pointcloud.ToPCD(cloud, f, pcdType), "failed to write %q", path)
}

// BenchAction times self distance queries at random joint inputs within the joint limits.
func BenchAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	reg, stop := serveMetrics(c, logger)
	defer stop()

	iterations := c.Int(flagIterations)
	if iterations <= 0 {
		return errors.Errorf("--%s must be positive, got %d", flagIterations, iterations)
	}
	model, err := loadModel(c)
	if err != nil {
		return err
	}
	r, err := loadRobot(c, model, logger, reg)
	if err != nil {
		return err
	}

	//nolint:gosec
	rng := rand.New(rand.NewSource(c.Int64(flagSeed)))
	req := collision.NewDistanceRequest()
	res := collision.NewDistanceResult()
	micros := make([]float64, 0, iterations)
	collisions := 0
	for i := 0; i < iterations; i++ {
		if err := c.Context.Err(); err != nil {
			return err
		}
		transforms, err := model.LinkTransforms(randomInputs(model, rng))
		if err != nil {
			return err
		}
		res.Clear()
		start := time.Now()
		if err := r.DistanceSelf(req, res, transforms); err != nil {
			return err
		}
		micros = append(micros, time.Since(start).Seconds()*1e6)
		if res.Collision {
			collisions++
		}
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Statistic", "Microseconds"})
	mean, err := stats.Mean(micros)
	if err != nil {
		return err
	}
	t.AppendRow(table.Row{"mean", fmt.Sprintf("%.1f", mean)})
	for _, p := range []float64{50, 90, 99} {
		v, err := stats.Percentile(micros, p)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{fmt.Sprintf("p%.0f", p), fmt.Sprintf("%.1f", v)})
	}
	maximum, err := stats.Max(micros)
	if err != nil {
		return err
	}
	t.AppendRow(table.Row{"max", fmt.Sprintf("%.1f", maximum)})
	printf(c.App.Writer, "%s", t.Render())
	printf(c.App.Writer, "%d of %d configurations in self collision", collisions, iterations)
	return nil
}

// randomInputs samples every movable joint uniformly within its limits. Unbounded revolute joints sample a full turn.
func randomInputs(model *referenceframe.Model, rng *rand.Rand) map[string]float64 {
	inputs := map[string]float64{}
	for _, name := range model.Joints() {
		j, err := model.Joint(name)
		if err != nil || j.Type == referenceframe.FixedJoint {
			continue
		}
		lo, hi := j.Min, j.Max
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
			if j.Type == referenceframe.PrismaticJoint {
				continue
			}
			lo, hi = -math.Pi, math.Pi
		}
		inputs[name] = lo + rng.Float64()*(hi-lo)
	}
	return inputs
}
