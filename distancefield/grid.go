package distancefield

import (
	"context"
	"math"
	"unsafe"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/spatialmath"
	"go.viam.com/collisiondistance/utils"
)

// Coord is a node of a grid, in index space.
type Coord struct {
	I, J, K int64
}

// Add returns the coordinate offset by other.
func (c Coord) Add(other Coord) Coord {
	return Coord{I: c.I + other.I, J: c.J + other.J, K: c.K + other.K}
}

// Vector returns the coordinate as a fractional index position.
func (c Coord) Vector() r3.Vector {
	return r3.Vector{X: float64(c.I), Y: float64(c.J), Z: float64(c.K)}
}

// Metadata holds the scalars needed to rebuild or reload a grid. Bands are measured in voxels.
type Metadata struct {
	VoxelSize    float64
	Background   float64
	ExteriorBand float64
	InteriorBand float64
}

// GridOptions control BuildGrid.
type GridOptions struct {
	Metadata
	// MaxVoxels bounds the number of nodes one grid may have, zero for no limit.
	MaxVoxels int64
}

// Grid is a dense signed distance grid. Nodes sit at integer index coordinates; values farther outside than the
// exterior band hold the background value and values deeper than the interior band hold its negation. A grid is
// read only once built and may be shared between queries.
type Grid struct {
	name string
	meta Metadata

	origin Coord
	dims   [3]int64
	values []float32

	transform *Transform
}

// BuildGrid samples the union of the geometries, placed in the grid frame by placement, on a grid with the given
// voxel size. Geometry poses are in the frame of the body they belong to.
func BuildGrid(
	ctx context.Context,
	name string,
	geometries []spatialmath.Geometry,
	placement spatialmath.Pose,
	opts GridOptions,
) (*Grid, error) {
	if len(geometries) == 0 {
		return nil, errors.Errorf("grid %q has no geometries", name)
	}
	if opts.VoxelSize <= 0 {
		return nil, errors.Errorf("grid %q has invalid voxel size %v", name, opts.VoxelSize)
	}
	if placement == nil {
		placement = spatialmath.NewZeroPose()
	}
	placed := make([]spatialmath.Geometry, 0, len(geometries))
	for _, g := range geometries {
		placed = append(placed, g.Transform(placement))
	}
	lo, hi, err := spatialmath.GeometriesAABB(placed)
	if err != nil {
		return nil, errors.Wrapf(err, "grid %q", name)
	}

	v := opts.VoxelSize
	// one extra node so the gradient stencil stays inside the band
	pad := (opts.ExteriorBand + 1) * v
	origin := Coord{
		I: int64(math.Floor((lo.X - pad) / v)),
		J: int64(math.Floor((lo.Y - pad) / v)),
		K: int64(math.Floor((lo.Z - pad) / v)),
	}
	upper := Coord{
		I: int64(math.Ceil((hi.X + pad) / v)),
		J: int64(math.Ceil((hi.Y + pad) / v)),
		K: int64(math.Ceil((hi.Z + pad) / v)),
	}
	dims := [3]int64{upper.I - origin.I + 1, upper.J - origin.J + 1, upper.K - origin.K + 1}
	count := dims[0] * dims[1] * dims[2]
	if opts.MaxVoxels > 0 && count > opts.MaxVoxels {
		return nil, newTooManyVoxelsError(name, count, opts.MaxVoxels)
	}

	g := &Grid{
		name:      name,
		meta:      opts.Metadata,
		origin:    origin,
		dims:      dims,
		values:    make([]float32, count),
		transform: NewIdentityTransform(v),
	}
	exterior := opts.ExteriorBand * v
	interior := -opts.InteriorBand * v
	background := float32(opts.Background)

	// every i plane is filled independently
	err = utils.RunParallel(ctx, int(dims[0]), func(ctx context.Context, di int) error {
		for dj := int64(0); dj < dims[1]; dj++ {
			for dk := int64(0); dk < dims[2]; dk++ {
				c := Coord{I: origin.I + int64(di), J: origin.J + dj, K: origin.K + dk}
				p := c.Vector().Mul(v)
				d := math.MaxFloat64
				for _, geom := range placed {
					d = math.Min(d, geom.SignedDistance(p))
				}
				value := float32(d)
				switch {
				case d > exterior:
					value = background
				case d < interior:
					value = -background
				}
				g.values[g.offset(c)] = value
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, errors.Wrapf(err, "building grid %q", name)
	}
	return g, nil
}

func (g *Grid) offset(c Coord) int64 {
	return ((c.I-g.origin.I)*g.dims[1]+(c.J-g.origin.J))*g.dims[2] + (c.K - g.origin.K)
}

func (g *Grid) contains(c Coord) bool {
	return c.I >= g.origin.I && c.I < g.origin.I+g.dims[0] &&
		c.J >= g.origin.J && c.J < g.origin.J+g.dims[1] &&
		c.K >= g.origin.K && c.K < g.origin.K+g.dims[2]
}

// Name returns the name of the body the grid was built for.
func (g *Grid) Name() string {
	return g.name
}

// Metadata returns the scalars the grid was built with.
func (g *Grid) Metadata() Metadata {
	return g.meta
}

// VoxelSize returns the distance between neighboring nodes.
func (g *Grid) VoxelSize() float64 {
	return g.meta.VoxelSize
}

// Background returns the value stored outside the exterior band.
func (g *Grid) Background() float64 {
	return g.meta.Background
}

// Transform returns the grid's index to world transform.
func (g *Grid) Transform() *Transform {
	return g.transform
}

// Bounds returns the lowest and highest node of the grid.
func (g *Grid) Bounds() (Coord, Coord) {
	return g.origin, Coord{I: g.origin.I + g.dims[0] - 1, J: g.origin.J + g.dims[1] - 1, K: g.origin.K + g.dims[2] - 1}
}

// Value returns the value at a node. Nodes outside the grid hold the background value.
func (g *Grid) Value(c Coord) float32 {
	if !g.contains(c) {
		return float32(g.meta.Background)
	}
	return g.values[g.offset(c)]
}

// Sample returns the value at the node nearest to a world point.
func (g *Grid) Sample(p r3.Vector) float64 {
	return float64(g.Value(g.transform.WorldToIndexNodeCentered(p)))
}

// Gradient returns the second order central difference of the grid values at a node, in index space.
func (g *Grid) Gradient(c Coord) r3.Vector {
	diff := func(step Coord) float64 {
		back := Coord{I: c.I - step.I, J: c.J - step.J, K: c.K - step.K}
		return 0.5 * float64(g.Value(c.Add(step))-g.Value(back))
	}
	return r3.Vector{
		X: diff(Coord{I: 1}),
		Y: diff(Coord{J: 1}),
		Z: diff(Coord{K: 1}),
	}
}

// WithTransform returns a grid sharing this grid's values but placed by t.
func (g *Grid) WithTransform(t *Transform) *Grid {
	copied := *g
	copied.transform = t
	return &copied
}

// DeepCopy returns a grid with its own copy of the values.
func (g *Grid) DeepCopy() *Grid {
	copied := *g
	copied.values = append([]float32(nil), g.values...)
	return &copied
}

// MemUsage returns the approximate number of bytes held by the grid.
func (g *Grid) MemUsage() uint64 {
	return uint64(unsafe.Sizeof(*g)) + uint64(len(g.values))*uint64(unsafe.Sizeof(float32(0)))
}

// ForEachNode calls fn for every node in index order until fn returns false.
func (g *Grid) ForEachNode(fn func(c Coord, value float32) bool) {
	for di := int64(0); di < g.dims[0]; di++ {
		for dj := int64(0); dj < g.dims[1]; dj++ {
			for dk := int64(0); dk < g.dims[2]; dk++ {
				c := Coord{I: g.origin.I + di, J: g.origin.J + dj, K: g.origin.K + dk}
				if !fn(c, g.values[g.offset(c)]) {
					return
				}
			}
		}
	}
}

// isBackground reports whether a value carries no distance information.
func (g *Grid) isBackground(value float32) bool {
	return utils.Float32AlmostEqual(value, float32(g.meta.Background), 1e-5)
}
