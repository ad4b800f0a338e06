// Package geo provides the small amount of spherical geometry the pipeline needs.
package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// EarthRadiusKm is the mean earth radius used for all distance computations.
const EarthRadiusKm = 6371.0

const (
	minRadiusKm     = 0.2
	maxRadiusKm     = 25.0
	kmPerDegreeLat  = 111.0
	minCosLatitude  = 0.2
	coordinateRound = 1e6
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is an axis aligned box in south, west, north, east order.
type BBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Valid reports whether the point lies in the WGS84 range.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{Lat: (b.South + b.North) / 2, Lon: (b.West + b.East) / 2}
}

// Bounds converts the box to a go-geom bounds in lon/lat order.
func (b BBox) Bounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(b.West, b.South, b.East, b.North)
}

// Contains reports whether p lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return b.Bounds().OverlapsPoint(geom.XY, geom.Coord{p.Lon, p.Lat})
}

// Valid reports whether the box is well formed.
func (b BBox) Valid() bool {
	return b.South <= b.North && b.West <= b.East &&
		Point{Lat: b.South, Lon: b.West}.Valid() && Point{Lat: b.North, Lon: b.East}.Valid()
}

// HaversineKm returns the great circle distance between a and b.
func HaversineKm(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ClampRadiusKm keeps a search radius within the supported range.
func ClampRadiusKm(radiusKm, maxKm float64) float64 {
	if maxKm <= 0 {
		maxKm = maxRadiusKm
	}
	return math.Max(minRadiusKm, math.Min(radiusKm, maxKm))
}

// BBoxAround returns the box enclosing a circle of radiusKm around center.
// The radius is clamped to [0.2, 25] km and the result to valid coordinates.
func BBoxAround(center Point, radiusKm float64) BBox {
	r := ClampRadiusKm(radiusKm, maxRadiusKm)
	dLat := r / kmPerDegreeLat
	dLon := r / (kmPerDegreeLat * math.Max(minCosLatitude, math.Abs(math.Cos(toRadians(center.Lat)))))

	return BBox{
		South: round6(math.Max(-90, center.Lat-dLat)),
		West:  round6(math.Max(-180, center.Lon-dLon)),
		North: round6(math.Min(90, center.Lat+dLat)),
		East:  round6(math.Min(180, center.Lon+dLon)),
	}
}

// RoundTo rounds v to the given number of decimals.
func RoundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func round6(v float64) float64 {
	return math.Round(v*coordinateRound) / coordinateRound
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
