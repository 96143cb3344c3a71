// Package distancefield computes approximate self distances of a robot from signed distance grids. Links are split
// into static, active and dynamic roles; active links are approximated by spheres which are tested against the grids
// of every other link.
package distancefield

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/collisiondistance/collision"
	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/referenceframe"
	"go.viam.com/collisiondistance/spatialmath"
	"go.viam.com/collisiondistance/utils"
)

// planEntry is one link an active link is checked against.
type planEntry struct {
	link  string
	role  Role
	index int
}

// queryPlan lists, for one active link, every link it is not always allowed to collide with.
type queryPlan struct {
	link     string
	children []planEntry
	// empty links have no spheres and are never the checking side
	empty bool
}

// CollisionRobot holds the distance grids of every collision bearing link of a model. Once constructed it is read
// only; queries may run concurrently, but rebuilding or replacing the collision matrix must not overlap a query.
type CollisionRobot struct {
	model  *referenceframe.Model
	meta   Metadata
	roles  Roles
	logger logging.Logger

	static  []*Grid
	active  []*Grid
	dynamic []*Grid
	spheres [][]Sphere

	acm     *collision.AllowedCollisionMatrix
	plans   []queryPlan
	metrics *Metrics
}

// NewCollisionRobot classifies the model's links and builds every grid. Grids are built concurrently. Active links
// are fit with spheres; while a fit yields one sphere or fewer the link's grid is rebuilt at half the voxel size, up
// to cfg.SphereAttempts times, after which the link is left without spheres.
func NewCollisionRobot(
	ctx context.Context,
	model *referenceframe.Model,
	cfg Config,
	logger logging.Logger,
	opts ...Option,
) (*CollisionRobot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid distance field config")
	}
	r := newCollisionRobot(model, cfg.metadata(), logger, opts...)

	type job struct {
		role  Role
		index int
	}
	jobs := []job{}
	for _, role := range []Role{Static, Active, Dynamic} {
		for i := range r.roles.Of(role) {
			jobs = append(jobs, job{role: role, index: i})
		}
	}
	r.static = make([]*Grid, len(r.roles.Static))
	r.active = make([]*Grid, len(r.roles.Active))
	r.dynamic = make([]*Grid, len(r.roles.Dynamic))
	r.spheres = make([][]Sphere, len(r.roles.Active))

	err := utils.RunParallel(ctx, len(jobs), func(ctx context.Context, idx int) error {
		j := jobs[idx]
		switch j.role {
		case Static:
			return r.buildStatic(ctx, cfg, j.index)
		case Active:
			return r.buildActive(ctx, cfg, j.index)
		default:
			return r.buildDynamic(ctx, cfg, j.index)
		}
	})
	if err != nil {
		return nil, err
	}
	r.createQueryPlans()
	return r, nil
}

func newCollisionRobot(model *referenceframe.Model, meta Metadata, logger logging.Logger, opts ...Option) *CollisionRobot {
	var o options
	for _, opt := range opts {
		opt.apply(&o)
	}
	if logger == nil {
		logger = logging.Global()
	}
	r := &CollisionRobot{
		model:   model,
		meta:    meta,
		roles:   ClassifyLinks(model),
		logger:  logger,
		acm:     o.acm,
		metrics: o.metrics,
	}
	if r.acm == nil {
		r.acm = collision.NewAllowedCollisionMatrixFromModel(model)
	}
	return r
}

func (r *CollisionRobot) linkGrid(ctx context.Context, link string, placement spatialmath.Pose, opts GridOptions) (*Grid, error) {
	l, err := r.model.Link(link)
	if err != nil {
		return nil, err
	}
	return BuildGrid(ctx, link, l.Geometries, placement, opts)
}

// buildStatic places a static link by its fixed pose relative to the root, so its grid is sampled without a
// per query transform.
func (r *CollisionRobot) buildStatic(ctx context.Context, cfg Config, i int) error {
	link := r.roles.Static[i]
	g, err := r.linkGrid(ctx, link, r.roles.staticPoses[link], cfg.gridOptions())
	if err != nil {
		return err
	}
	r.static[i] = g
	r.metrics.observeGrid(Static)
	return nil
}

func (r *CollisionRobot) buildDynamic(ctx context.Context, cfg Config, i int) error {
	g, err := r.linkGrid(ctx, r.roles.Dynamic[i], nil, cfg.gridOptions())
	if err != nil {
		return err
	}
	r.dynamic[i] = g
	r.metrics.observeGrid(Dynamic)
	return nil
}

func (r *CollisionRobot) buildActive(ctx context.Context, cfg Config, i int) error {
	link := r.roles.Active[i]
	opts := cfg.gridOptions()
	var (
		g       *Grid
		spheres []Sphere
	)
	for attempt := 0; attempt < cfg.SphereAttempts; attempt++ {
		next, err := r.linkGrid(ctx, link, nil, opts)
		if err != nil {
			var tooMany *TooManyVoxelsError
			if g != nil && errors.As(err, &tooMany) {
				// the finer grid does not fit, so the previous attempt is the last one
				r.logger.Debugw("sphere fit stopped at the voxel limit",
					"link", link, "attempt", attempt+1, "voxels", tooMany.Count, "limit", tooMany.Limit)
				break
			}
			return errors.Wrapf(err, "fitting spheres to link %q, attempt %d", link, attempt+1)
		}
		g = next
		spheres = FillWithSpheres(g, cfg.sphereOptions())
		r.metrics.observeFitAttempt()
		if len(spheres) > 1 {
			break
		}
		// bands keep their width in world units as the voxels shrink
		opts.VoxelSize *= 0.5
		scale := cfg.VoxelSize / opts.VoxelSize
		opts.ExteriorBand = cfg.ExteriorBand * scale
		opts.InteriorBand = cfg.InteriorBand * scale
	}
	if len(spheres) <= 1 {
		r.logger.Warnw("unable to generate spheres for link", "link", link, "attempts", cfg.SphereAttempts)
		r.metrics.observeFitFailure()
		spheres = nil
	}
	r.active[i] = g
	r.spheres[i] = spheres
	r.metrics.observeGrid(Active)
	return nil
}

// createQueryPlans lists, for each active link with spheres, the active, dynamic and static links it must be
// checked against.
func (r *CollisionRobot) createQueryPlans() {
	r.plans = make([]queryPlan, 0, len(r.roles.Active))
	for j, self := range r.roles.Active {
		plan := queryPlan{link: self}
		if len(r.spheres[j]) == 0 {
			plan.empty = true
			r.plans = append(r.plans, plan)
			continue
		}
		for _, role := range []Role{Active, Dynamic, Static} {
			for i, other := range r.roles.Of(role) {
				if role == Active && i == j {
					continue
				}
				if r.acm.IsAllowed(other, self) {
					continue
				}
				plan.children = append(plan.children, planEntry{link: other, role: role, index: i})
			}
		}
		r.plans = append(r.plans, plan)
	}
}

// SetAllowedCollisionMatrix replaces the collision matrix and recomputes the query plans. It must not be called
// while a query is running.
func (r *CollisionRobot) SetAllowedCollisionMatrix(acm *collision.AllowedCollisionMatrix) {
	r.acm = acm
	r.createQueryPlans()
}

// AllowedCollisionMatrix returns the matrix used to build the query plans.
func (r *CollisionRobot) AllowedCollisionMatrix() *collision.AllowedCollisionMatrix {
	return r.acm
}

// Roles returns the link classification.
func (r *CollisionRobot) Roles() Roles {
	return r.roles
}

// Metadata returns the nominal grid parameters.
func (r *CollisionRobot) Metadata() Metadata {
	return r.meta
}

// Grid returns the grid of a collision bearing link.
func (r *CollisionRobot) Grid(link string) (*Grid, Role, error) {
	role, ok := r.roles.RoleOf(link)
	if !ok {
		return nil, 0, errors.Wrap(referenceframe.NewLinkNotFoundError(link), "no distance grid")
	}
	return r.grids(role)[lo.IndexOf(r.roles.Of(role), link)], role, nil
}

// Spheres returns the sphere approximation of an active link, in the link's frame.
func (r *CollisionRobot) Spheres(link string) []Sphere {
	i := lo.IndexOf(r.roles.Active, link)
	if i < 0 {
		return nil
	}
	return append([]Sphere(nil), r.spheres[i]...)
}

// MemUsage returns the approximate number of bytes held by every grid.
func (r *CollisionRobot) MemUsage() uint64 {
	var total uint64
	for _, grids := range [][]*Grid{r.static, r.dynamic, r.active} {
		for _, g := range grids {
			total += g.MemUsage()
		}
	}
	return total
}

func (r *CollisionRobot) grids(role Role) []*Grid {
	switch role {
	case Static:
		return r.static
	case Active:
		return r.active
	default:
		return r.dynamic
	}
}
