// Package pointcloud defines the point cloud used to export distance field voxels and provides an
// implementation for one.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Points beyond this range lose precision when written as float32.
const (
	maxPreciseFloat64 = float64(1 << 24)
	minPreciseFloat64 = -maxPreciseFloat64
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns bounds that any point extends.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge extends the bounds to include p.
func (meta *MetaData) Merge(p r3.Vector) {
	meta.MinX = math.Min(meta.MinX, p.X)
	meta.MaxX = math.Max(meta.MaxX, p.X)
	meta.MinY = math.Min(meta.MinY, p.Y)
	meta.MaxY = math.Max(meta.MaxY, p.Y)
	meta.MinZ = math.Min(meta.MinZ, p.Z)
	meta.MaxZ = math.Max(meta.MaxZ, p.Z)
}

// PointCloud is a general purpose container of points, each carrying a scalar value such as a signed distance.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Set places the given point in the cloud, replacing the value of a point already there.
	Set(p r3.Vector, value float64) error

	// At returns the value stored at the given position and whether the point exists.
	At(x, y, z float64) (float64, bool)

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up he work. 0 means don't divide
	// myBatch is used iff numBatches > 0 and is which batch you want
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, value float64) bool)
}

type pointAndValue struct {
	p     r3.Vector
	value float64
}

// basicPointCloud is the basic implementation of the PointCloud interface backed by
// a slice of points and an index keyed by position.
type basicPointCloud struct {
	points []pointAndValue
	index  map[r3.Vector]int
	meta   MetaData
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{
		points: make([]pointAndValue, 0, size),
		index:  make(map[r3.Vector]int, size),
		meta:   NewMetaData(),
	}
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) At(x, y, z float64) (float64, bool) {
	i, ok := cloud.index[r3.Vector{X: x, Y: y, Z: z}]
	if !ok {
		return 0, false
	}
	return cloud.points[i].value, true
}

// Set validates that the point can be precisely stored before setting it in the cloud.
func (cloud *basicPointCloud) Set(p r3.Vector, value float64) error {
	if err := checkPrecise("x", p.X); err != nil {
		return err
	}
	if err := checkPrecise("y", p.Y); err != nil {
		return err
	}
	if err := checkPrecise("z", p.Z); err != nil {
		return err
	}
	if i, ok := cloud.index[p]; ok {
		cloud.points[i].value = value
		return nil
	}
	cloud.index[p] = len(cloud.points)
	cloud.points = append(cloud.points, pointAndValue{p: p, value: value})
	cloud.meta.Merge(p)
	return nil
}

func (cloud *basicPointCloud) Iterate(numBatches, myBatch int, fn func(p r3.Vector, value float64) bool) {
	start, end := 0, len(cloud.points)
	if numBatches > 0 {
		batchSize := (len(cloud.points) + numBatches - 1) / numBatches
		start = myBatch * batchSize
		end = start + batchSize
		if end > len(cloud.points) {
			end = len(cloud.points)
		}
	}
	for i := start; i < end; i++ {
		if !fn(cloud.points[i].p, cloud.points[i].value) {
			return
		}
	}
}

func checkPrecise(axis string, v float64) error {
	if math.IsNaN(v) || v < minPreciseFloat64 || v > maxPreciseFloat64 {
		return errors.Errorf("%s component (%v) is out of range [%v,%v]", axis, v, minPreciseFloat64, maxPreciseFloat64)
	}
	return nil
}
