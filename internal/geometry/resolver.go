// Package geometry canonicalizes a record's display position out of the
// heterogeneous geometry encodings seen in field data: GeoJSON points,
// GeoJSON polygons (reduced to their planar centroid), legacy bare lat/lng
// fields, or nothing at all. Resolution is total; malformed values fall
// through to the next rule and the chain always ends on a finite pair.
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geowatch/internal/model"
)

// DefaultCenter is the fixed fallback position: central Casablanca.
var DefaultCenter = model.GeoPoint{Lat: 33.589886, Lng: -7.603869}

// DescribeUnspecified is the marker string returned for missing or
// unhandled geometries.
const DescribeUnspecified = "unspecified geometry"

// degenerateArea is the signed-area threshold below which a ring is
// treated as collinear and the centroid degrades to the vertex mean.
const degenerateArea = 1e-12

// ResolvePosition extracts the display position of a record.
//
// GeoJSON stores coordinates as [lng, lat]; the returned pair is lat/lng.
// That axis swap is load-bearing: every consumer downstream expects
// latitude first.
func ResolvePosition(rec model.GeoRecord) model.GeoPoint {
	if rec.Geometry != nil {
		switch g := rec.Geometry.Geometry().(type) {
		case orb.Point:
			if finite(g.Lat()) && finite(g.Lon()) {
				return model.GeoPoint{Lat: g.Lat(), Lng: g.Lon()}
			}
		case orb.Polygon:
			if len(g) > 0 {
				if c, ok := Centroid(g[0]); ok {
					return c
				}
			}
		}
	}
	if rec.Latitude != nil && rec.Longitude != nil &&
		finite(*rec.Latitude) && finite(*rec.Longitude) {
		return model.GeoPoint{Lat: *rec.Latitude, Lng: *rec.Longitude}
	}
	return DefaultCenter
}

// Centroid computes the planar signed-area (shoelace) centroid of a ring
// given in GeoJSON vertex order (x = lng, y = lat). A closing vertex that
// duplicates the first is dropped before computing. Rings with fewer than
// three distinct vertices have no centroid. Degenerate rings whose signed
// area vanishes fall back to the unweighted arithmetic mean of vertices.
func Centroid(ring orb.Ring) (model.GeoPoint, bool) {
	pts := []orb.Point(ring)
	if n := len(pts); n >= 2 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	if distinctCount(pts) < 3 {
		return model.GeoPoint{}, false
	}

	var area, cx, cy float64
	n := len(pts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := pts[i][0]*pts[j][1] - pts[j][0]*pts[i][1]
		area += cross
		cx += (pts[i][0] + pts[j][0]) * cross
		cy += (pts[i][1] + pts[j][1]) * cross
	}
	area /= 2

	if math.Abs(area) < degenerateArea {
		var sx, sy float64
		for _, p := range pts {
			sx += p[0]
			sy += p[1]
		}
		return model.GeoPoint{Lat: sy / float64(n), Lng: sx / float64(n)}, true
	}
	return model.GeoPoint{Lat: cy / (6 * area), Lng: cx / (6 * area)}, true
}

// Describe renders a human-readable geometry summary for detail displays.
// Pure formatting, no side effects.
func Describe(g *geojson.Geometry) string {
	if g == nil {
		return DescribeUnspecified
	}
	switch geo := g.Geometry().(type) {
	case orb.Point:
		return fmt.Sprintf("Point (%.5f, %.5f)", geo.Lat(), geo.Lon())
	case orb.Polygon:
		if len(geo) == 0 {
			return DescribeUnspecified
		}
		count := vertexCount(geo[0])
		if c, ok := Centroid(geo[0]); ok {
			return fmt.Sprintf("Polygon, %d vertices, centroid (%.5f, %.5f)", count, c.Lat, c.Lng)
		}
		return fmt.Sprintf("Polygon, %d vertices", count)
	default:
		return DescribeUnspecified
	}
}

// vertexCount counts ring vertices without double-counting the repeated
// closing vertex.
func vertexCount(ring orb.Ring) int {
	n := len(ring)
	if n >= 2 && ring[0] == ring[n-1] {
		return n - 1
	}
	return n
}

func distinctCount(pts []orb.Point) int {
	seen := make(map[orb.Point]struct{}, len(pts))
	for _, p := range pts {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
