package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// convexCore is the convex hull of a handful of vertices inflated by a radius. Spheres and points are a single
// vertex, capsules a segment, boxes their eight corners. Distances between geometries are computed between cores
// and then reduced by both radii.
type convexCore struct {
	vertices []r3.Vector
	radius   float64
	// faceAxes are the face normals of a polytope core, used as separating axis candidates.
	faceAxes []r3.Vector
	// edgeDirs are the edge directions of the core, crossed pairwise for separating axis candidates.
	edgeDirs []r3.Vector
}

func (c convexCore) support(d r3.Vector) r3.Vector {
	best := c.vertices[0]
	bestDot := best.Dot(d)
	for _, v := range c.vertices[1:] {
		if dot := v.Dot(d); dot > bestDot {
			best, bestDot = v, dot
		}
	}
	return best
}

func (c convexCore) project(axis r3.Vector) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range c.vertices {
		dot := v.Dot(axis)
		lo = math.Min(lo, dot)
		hi = math.Max(hi, dot)
	}
	return lo, hi
}

// coreDistance returns the signed distance between two inflated cores and the nearest point on each.
func coreDistance(a, b convexCore) (float64, r3.Vector, r3.Vector) {
	dist, pa, pb, overlap := gjkDistance(a, b)
	if !overlap {
		n := pb.Sub(pa).Mul(1 / dist)
		return dist - a.radius - b.radius, pa.Add(n.Mul(a.radius)), pb.Sub(n.Mul(b.radius))
	}
	depth, axis := satPenetration(a, b)
	pa = a.support(axis).Add(axis.Mul(a.radius))
	pb = b.support(axis.Mul(-1)).Sub(axis.Mul(b.radius))
	return -(depth + a.radius + b.radius), pa, pb
}

type supportPoint struct {
	a, b, w r3.Vector
}

// gjkDistance computes the exact Euclidean distance between the hulls of two cores
// using the GJK (Gilbert-Johnson-Keerthi) algorithm, tracking the support points on each hull so that
// the witness points can be recovered from the barycentric weights of the final simplex.
func gjkDistance(a, b convexCore) (float64, r3.Vector, r3.Vector, bool) {
	const maxIter = 64
	const eps = 1e-10

	start := supportPoint{a: a.vertices[0], b: b.vertices[0]}
	start.w = start.a.Sub(start.b)
	simplex := []supportPoint{start}
	lambdas := []float64{1}
	v := start.w

	for iter := 0; iter < maxIter; iter++ {
		vv := v.Norm2()
		if vv < 1e-20 {
			return 0, r3.Vector{}, r3.Vector{}, true
		}

		next := supportPoint{a: a.support(v.Mul(-1)), b: b.support(v)}
		next.w = next.a.Sub(next.b)
		if vv-v.Dot(next.w) <= eps*vv {
			break
		}
		duplicate := false
		for _, s := range simplex {
			if R3VectorAlmostEqual(s.w, next.w, 1e-12) {
				duplicate = true
				break
			}
		}
		if duplicate {
			break
		}

		simplex = append(simplex, next)
		var inside bool
		v, simplex, lambdas, inside = closestOnSimplex(simplex)
		if inside {
			return 0, r3.Vector{}, r3.Vector{}, true
		}
	}

	var pa, pb r3.Vector
	for i, s := range simplex {
		pa = pa.Add(s.a.Mul(lambdas[i]))
		pb = pb.Add(s.b.Mul(lambdas[i]))
	}
	dist := v.Norm()
	if dist < 1e-10 {
		return 0, pa, pb, true
	}
	return dist, pa, pb, false
}

// closestOnSimplex returns the point of the simplex closest to the origin, the reduced simplex supporting it and
// the barycentric weight of every kept vertex. The final return is true when the origin is enclosed.
func closestOnSimplex(s []supportPoint) (r3.Vector, []supportPoint, []float64, bool) {
	switch len(s) {
	case 1:
		return s[0].w, s, []float64{1}, false
	case 2:
		idx, l := closestOnSegment(s[0].w, s[1].w)
		return weighted(s, idx, l)
	case 3:
		idx, l := closestOnTriangle(s[0].w, s[1].w, s[2].w)
		return weighted(s, idx, l)
	default:
		pts := []r3.Vector{s[0].w, s[1].w, s[2].w, s[3].w}
		if originInTetrahedron(pts) {
			return r3.Vector{}, s, []float64{0.25, 0.25, 0.25, 0.25}, true
		}
		faces := [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
		bestDist := math.Inf(1)
		var bestV r3.Vector
		var bestS []supportPoint
		var bestL []float64
		for _, f := range faces {
			face := []supportPoint{s[f[0]], s[f[1]], s[f[2]]}
			v, reduced, l, _ := closestOnSimplex(face)
			if d := v.Norm2(); d < bestDist {
				bestDist, bestV, bestS, bestL = d, v, reduced, l
			}
		}
		return bestV, bestS, bestL, false
	}
}

func weighted(s []supportPoint, idx []int, l []float64) (r3.Vector, []supportPoint, []float64, bool) {
	reduced := make([]supportPoint, 0, len(idx))
	var v r3.Vector
	for i, k := range idx {
		reduced = append(reduced, s[k])
		v = v.Add(s[k].w.Mul(l[i]))
	}
	return v, reduced, l, false
}

// closestOnSegment returns which endpoints of segment [a,b] support the point closest to the origin, and their weights.
func closestOnSegment(a, b r3.Vector) ([]int, []float64) {
	ab := b.Sub(a)
	denom := ab.Norm2()
	if denom < 1e-30 {
		return []int{0}, []float64{1}
	}
	t := a.Mul(-1).Dot(ab) / denom
	if t <= 0 {
		return []int{0}, []float64{1}
	}
	if t >= 1 {
		return []int{1}, []float64{1}
	}
	return []int{0, 1}, []float64{1 - t, t}
}

// closestOnTriangle returns the vertices of triangle [a,b,c] supporting the point closest to the origin, with their
// barycentric weights. Uses Ericson's Voronoi region method from "Real-Time Collision Detection".
func closestOnTriangle(a, b, c r3.Vector) ([]int, []float64) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)

	d1 := ab.Dot(ao)
	d2 := ac.Dot(ao)
	if d1 <= 0 && d2 <= 0 {
		return []int{0}, []float64{1}
	}

	bo := b.Mul(-1)
	d3 := ab.Dot(bo)
	d4 := ac.Dot(bo)
	if d3 >= 0 && d4 <= d3 {
		return []int{1}, []float64{1}
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return []int{0, 1}, []float64{1 - v, v}
	}

	co := c.Mul(-1)
	d5 := ab.Dot(co)
	d6 := ac.Dot(co)
	if d6 >= 0 && d5 <= d6 {
		return []int{2}, []float64{1}
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return []int{0, 2}, []float64{1 - w, w}
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return []int{1, 2}, []float64{1 - w, w}
	}

	denom := va + vb + vc
	if math.Abs(denom) < 1e-30 {
		// degenerate triangle, fall back to its longest edge
		idx, l := closestOnSegment(a, b)
		return idx, l
	}
	v := vb / denom
	w := vc / denom
	return []int{0, 1, 2}, []float64{1 - v - w, v, w}
}

// originInTetrahedron checks whether the origin is inside the tetrahedron
// defined by the four given points, by verifying the origin is on the interior
// side of every face.
func originInTetrahedron(pts []r3.Vector) bool {
	type face struct{ v0, v1, v2, opp int }
	faces := [4]face{
		{0, 1, 2, 3},
		{0, 1, 3, 2},
		{0, 2, 3, 1},
		{1, 2, 3, 0},
	}
	for _, f := range faces {
		p0, p1, p2 := pts[f.v0], pts[f.v1], pts[f.v2]
		normal := p1.Sub(p0).Cross(p2.Sub(p0))
		dOrigin := normal.Dot(p0.Mul(-1))
		dOpp := normal.Dot(pts[f.opp].Sub(p0))
		if math.Abs(dOpp) < 1e-18 {
			// flat tetrahedron
			return false
		}
		if dOrigin*dOpp < 0 {
			return false
		}
	}
	return true
}

// satPenetration finds the separating axis candidate with the least overlap between two intersecting cores.
// The returned axis is unit length and points from a towards b.
func satPenetration(a, b convexCore) (float64, r3.Vector) {
	candidates := make([]r3.Vector, 0, len(a.faceAxes)+len(b.faceAxes)+len(a.edgeDirs)*len(b.edgeDirs)+1)
	candidates = append(candidates, a.faceAxes...)
	candidates = append(candidates, b.faceAxes...)
	for _, ea := range a.edgeDirs {
		for _, eb := range b.edgeDirs {
			if cross := ea.Cross(eb); cross.Norm2() > 1e-12 {
				candidates = append(candidates, cross.Normalize())
			}
		}
	}
	// the line through both core centroids covers point and segment cores that have no face axes
	if delta := centroid(b).Sub(centroid(a)); delta.Norm2() > 1e-12 {
		candidates = append(candidates, delta.Normalize())
	}

	bestDepth := math.Inf(1)
	bestAxis := r3.Vector{X: 1}
	for _, axis := range candidates {
		loA, hiA := a.project(axis)
		loB, hiB := b.project(axis)
		forward := hiA - loB  // overlap when b lies along +axis
		backward := hiB - loA // overlap when b lies along -axis
		if forward < 0 || backward < 0 {
			// a separating axis, the cores only touch
			return 0, axis
		}
		if forward <= backward && forward < bestDepth {
			bestDepth, bestAxis = forward, axis
		} else if backward < forward && backward < bestDepth {
			bestDepth, bestAxis = backward, axis.Mul(-1)
		}
	}
	if math.IsInf(bestDepth, 1) {
		return 0, bestAxis
	}
	return bestDepth, bestAxis
}

func centroid(c convexCore) r3.Vector {
	var sum r3.Vector
	for _, v := range c.vertices {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(c.vertices)))
}
