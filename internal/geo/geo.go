// Package geo builds geometries from drawn routes. Coordinates are flat
// field-local units, not geodetic.
package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/coachcore/playvault/pkg/core"
)

// RouteLineString converts a route's points into a geom.LineString.
// A drawable route needs at least 2 points.
func RouteLineString(r core.Route) (geom.LineString, error) {
	if len(r.Points) < 2 {
		return geom.LineString{}, fmt.Errorf("route %s has %d points, need at least 2", r.ID, len(r.Points))
	}

	flat := make([]float64, 0, len(r.Points)*2)
	for _, pt := range r.Points {
		flat = append(flat, pt.X, pt.Y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq)
}

// RouteLength returns the drawn length of a route in field units, or 0 for
// routes too short to form a line.
func RouteLength(r core.Route) float64 {
	ls, err := RouteLineString(r)
	if err != nil {
		return 0
	}
	return ls.Length()
}

// TotalRouteLength sums the drawn length of every route in a play. Reported
// alongside save stats to spot degenerate or runaway diagrams.
func TotalRouteLength(play *core.Play) float64 {
	var total float64
	for _, r := range play.Routes {
		total += RouteLength(r)
	}
	return total
}
