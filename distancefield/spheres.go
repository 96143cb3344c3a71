package distancefield

import (
	"math"

	"github.com/golang/geo/r3"
)

// Sphere is one sphere of an approximation, in world units.
type Sphere struct {
	Center r3.Vector
	Radius float64
}

// MaxSphereCount is the largest sphere set a link may have.
const MaxSphereCount = 1 << 16

// SphereOptions control FillWithSpheres.
type SphereOptions struct {
	// Count is the largest number of spheres returned.
	Count int
	// Overlap allows spheres to overlap; only the center of a new sphere has to be outside the others.
	Overlap bool
	// MinRadius and MaxRadius bound sphere radii, in voxels.
	MinRadius float64
	MaxRadius float64
	// IsoValue is the value at which the surface lies.
	IsoValue float64
	// Samples is the largest number of interior nodes considered as sphere centers.
	Samples int
}

// DefaultSphereOptions returns the options used for active links.
func DefaultSphereOptions() SphereOptions {
	return SphereOptions{
		Count:     20,
		Overlap:   true,
		MinRadius: 1,
		MaxRadius: math.MaxFloat64,
		Samples:   100000,
	}
}

// FillWithSpheres approximates the interior of a grid with spheres, largest first. Candidate centers are interior
// nodes and a candidate's radius is its distance to the nearest surface crossing found between neighboring nodes.
// The result is expressed through the grid's transform.
func FillWithSpheres(g *Grid, opts SphereOptions) []Sphere {
	iso := float32(opts.IsoValue)
	interior := []Coord{}
	surface := newSurfaceIndex(4 * g.VoxelSize())
	neighbors := []Coord{{I: 1}, {I: -1}, {J: 1}, {J: -1}, {K: 1}, {K: -1}}
	g.ForEachNode(func(c Coord, value float32) bool {
		if value >= iso {
			return true
		}
		interior = append(interior, c)
		for _, step := range neighbors {
			n := c.Add(step)
			nv := g.Value(n)
			if nv < iso {
				continue
			}
			t := float64((iso - value) / (nv - value))
			idx := c.Vector().Add(step.Vector().Mul(t))
			surface.add(g.transform.IndexToWorld(idx))
		}
		return true
	})
	if len(interior) == 0 || surface.size == 0 {
		return nil
	}

	stride := 1
	if opts.Samples > 0 && len(interior) > opts.Samples {
		stride = (len(interior) + opts.Samples - 1) / opts.Samples
	}
	minRadius := opts.MinRadius * g.VoxelSize()
	maxRadius := opts.MaxRadius * g.VoxelSize()
	if opts.MaxRadius <= 0 || math.IsInf(maxRadius, 1) {
		maxRadius = math.MaxFloat64
	}
	centers := []r3.Vector{}
	radii := []float64{}
	for i := 0; i < len(interior); i += stride {
		p := g.transform.IndexToWorld(interior[i].Vector())
		centers = append(centers, p)
		radii = append(radii, math.Min(surface.nearest(p), maxRadius))
	}

	spheres := []Sphere{}
	for len(spheres) < opts.Count {
		best := -1
		for i, r := range radii {
			if r >= 0 && (best < 0 || r > radii[best]) {
				best = i
			}
		}
		if best < 0 || radii[best] < minRadius {
			break
		}
		sphere := Sphere{Center: centers[best], Radius: radii[best]}
		spheres = append(spheres, sphere)
		radii[best] = -1
		for i, r := range radii {
			if r < 0 {
				continue
			}
			dist := centers[i].Sub(sphere.Center).Norm()
			switch {
			case dist < sphere.Radius:
				radii[i] = -1
			case !opts.Overlap:
				radii[i] = math.Min(r, dist-sphere.Radius)
			}
		}
	}
	return spheres
}

// surfaceIndex buckets surface points for nearest point searches.
type surfaceIndex struct {
	cell    float64
	buckets map[Coord][]r3.Vector
	lo, hi  Coord
	size    int
}

func newSurfaceIndex(cell float64) *surfaceIndex {
	return &surfaceIndex{cell: cell, buckets: map[Coord][]r3.Vector{}}
}

func (s *surfaceIndex) key(p r3.Vector) Coord {
	return Coord{
		I: int64(math.Floor(p.X / s.cell)),
		J: int64(math.Floor(p.Y / s.cell)),
		K: int64(math.Floor(p.Z / s.cell)),
	}
}

func (s *surfaceIndex) add(p r3.Vector) {
	k := s.key(p)
	if s.size == 0 {
		s.lo, s.hi = k, k
	} else {
		s.lo = Coord{I: min(s.lo.I, k.I), J: min(s.lo.J, k.J), K: min(s.lo.K, k.K)}
		s.hi = Coord{I: max(s.hi.I, k.I), J: max(s.hi.J, k.J), K: max(s.hi.K, k.K)}
	}
	s.buckets[k] = append(s.buckets[k], p)
	s.size++
}

// nearest returns the distance from p to the closest surface point, searching shells of buckets outward from p's
// bucket until no unsearched bucket can hold a closer point.
func (s *surfaceIndex) nearest(p r3.Vector) float64 {
	center := s.key(p)
	span := max(s.hi.I-s.lo.I, s.hi.J-s.lo.J, s.hi.K-s.lo.K) +
		max(abs(center.I-s.lo.I), abs(center.J-s.lo.J), abs(center.K-s.lo.K)) + 1
	best := math.MaxFloat64
	for ring := int64(0); ring <= span; ring++ {
		for i := -ring; i <= ring; i++ {
			for j := -ring; j <= ring; j++ {
				for k := -ring; k <= ring; k++ {
					if max(abs(i), abs(j), abs(k)) != ring {
						continue
					}
					for _, q := range s.buckets[center.Add(Coord{I: i, J: j, K: k})] {
						best = math.Min(best, q.Sub(p).Norm())
					}
				}
			}
		}
		// every bucket beyond this ring is at least ring cells away
		if best <= float64(ring)*s.cell {
			break
		}
	}
	return best
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
