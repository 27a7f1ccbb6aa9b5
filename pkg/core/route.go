// pkg/core/route.go
package core

// RouteType classifies the motion a route represents.
type RouteType string

const (
	RouteRun    RouteType = "run"
	RoutePass   RouteType = "pass"
	RouteBlock  RouteType = "block"
	RouteCustom RouteType = "custom"
)

// Valid reports whether t is one of the known route types.
func (t RouteType) Valid() bool {
	switch t {
	case RouteRun, RoutePass, RouteBlock, RouteCustom:
		return true
	}
	return false
}

// RoutePoint is one sampled point along a drawn route. Timestamp is the
// capture time in Unix milliseconds, preserved through storage and the
// compact encoding.
type RoutePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// Route is a drawn path attached to a player, with its render style.
type Route struct {
	ID          string       `json:"id"`
	PlayerID    string       `json:"playerId"`
	Points      []RoutePoint `json:"points"`
	Type        RouteType    `json:"type"`
	Color       string       `json:"color"`
	StrokeWidth float64      `json:"strokeWidth"`
	Dash        []float64    `json:"dash"`
	Tension     float64      `json:"tension"`
	Arrow       bool         `json:"arrow"`
}
