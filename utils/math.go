// Package utils contains small numeric and concurrency helpers shared by the distance packages.
package utils

import (
	"math"
	"strconv"
	"strings"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// MetersToMM converts meters to millimeters.
func MetersToMM(m float64) float64 {
	return m * 1000
}

// MMToMeters converts millimeters to meters.
func MMToMeters(mm float64) float64 {
	return mm / 1000
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// Float32AlmostEqual is Float64AlmostEqual for float32 values, used for grid sentinels.
func Float32AlmostEqual(a, b, epsilon float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < epsilon
}

// Clamp returns value limited to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Square returns n*n. math.Pow(x, 2) is slow, this is faster.
func Square(n float64) float64 {
	return n * n
}

// SpaceDelimitedStringToFloatSlice splits up space-delimited fields in a string and converts them to floats.
// Unparseable fields become NaN.
func SpaceDelimitedStringToFloatSlice(s string) []float64 {
	var converted []float64
	for _, value := range strings.Fields(s) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			f = math.NaN()
		}
		converted = append(converted, f)
	}
	return converted
}
