// Package codec maps plays to a compact storage/transport form: verbose
// keys become short ones, coordinates round half-up to the nearest integer,
// booleans collapse to 0/1, and dates become Unix milliseconds. The
// coordinate rounding is the only intentional precision loss; everything
// else round-trips exactly, including point order, point count, and
// per-point timestamps.
package codec

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/coachcore/playvault/pkg/core"
)

// CompactPlayer is the short-key form of core.Player.
type CompactPlayer struct {
	ID  string `json:"id"`
	Pos string `json:"pos"`
	Num int    `json:"num"`
	T   string `json:"t"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
	K   int    `json:"k"`
}

// CompactRoute is the short-key form of core.Route. Pts entries are
// [x, y, timestampMillis] triples.
type CompactRoute struct {
	ID  string    `json:"id"`
	PID string    `json:"pid"`
	Pts [][]int64 `json:"pts"`
	T   string    `json:"t"`
	C   string    `json:"c"`
	SW  float64   `json:"sw"`
	D   []float64 `json:"d"`
	TN  float64   `json:"tn"`
	A   int       `json:"a"`
}

// CompactPlay is the compact form of a full play.
type CompactPlay struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Formation   string          `json:"formation"`
	FieldType   string          `json:"fieldType"`
	Players     []CompactPlayer `json:"players"`
	Routes      []CompactRoute  `json:"routes"`
	Notes       string          `json:"notes"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	CoachID     string          `json:"coachId"`
	TeamID      string          `json:"teamId"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
	Version     int             `json:"version"`
	IsPublic    int             `json:"isPublic"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
}

// Round rounds half-up to the nearest integer: .5 always rounds toward
// positive infinity, so Round(2.5) == 3 and Round(-2.5) == -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// Encode produces the compact form of a play. Pure: the input is never
// mutated and the same input always yields the same output.
func Encode(play *core.Play) CompactPlay {
	compact := CompactPlay{
		ID:          play.ID,
		Name:        play.Name,
		Description: play.Description,
		Formation:   play.Formation,
		FieldType:   string(play.FieldType),
		Players:     make([]CompactPlayer, len(play.Players)),
		Routes:      make([]CompactRoute, len(play.Routes)),
		Notes:       play.Notes,
		Category:    play.Category,
		Tags:        append([]string(nil), play.Tags...),
		CoachID:     play.CoachID,
		TeamID:      play.TeamID,
		CreatedAt:   play.CreatedAt.UTC().UnixMilli(),
		UpdatedAt:   play.UpdatedAt.UTC().UnixMilli(),
		Version:     play.Version,
		IsPublic:    boolToInt(play.IsPublic),
		Thumbnail:   play.Thumbnail,
	}

	for i, p := range play.Players {
		compact.Players[i] = CompactPlayer{
			ID:  p.ID,
			Pos: p.Position,
			Num: p.Number,
			T:   string(p.Team),
			X:   Round(p.X),
			Y:   Round(p.Y),
			K:   boolToInt(p.IsKey),
		}
	}

	for i, r := range play.Routes {
		pts := make([][]int64, len(r.Points))
		for j, pt := range r.Points {
			pts[j] = []int64{int64(Round(pt.X)), int64(Round(pt.Y)), pt.Timestamp}
		}
		compact.Routes[i] = CompactRoute{
			ID:  r.ID,
			PID: r.PlayerID,
			Pts: pts,
			T:   string(r.Type),
			C:   r.Color,
			SW:  r.StrokeWidth,
			D:   append([]float64(nil), r.Dash...),
			TN:  r.Tension,
			A:   boolToInt(r.Arrow),
		}
	}

	return compact
}

// Decode is the exact inverse of Encode for every non-coordinate field.
// Malformed input fails only the one record.
func Decode(compact CompactPlay) (*core.Play, error) {
	ft := core.FieldType(compact.FieldType)
	if core.MaxPlayers(ft) == 0 {
		return nil, fmt.Errorf("compact play %s: unknown field type %q", compact.ID, compact.FieldType)
	}

	play := &core.Play{
		ID:          compact.ID,
		Name:        compact.Name,
		Description: compact.Description,
		Formation:   compact.Formation,
		FieldType:   ft,
		Players:     make([]core.Player, len(compact.Players)),
		Routes:      make([]core.Route, len(compact.Routes)),
		Notes:       compact.Notes,
		Category:    compact.Category,
		Tags:        append([]string(nil), compact.Tags...),
		CoachID:     compact.CoachID,
		TeamID:      compact.TeamID,
		CreatedAt:   unixMilliUTC(compact.CreatedAt),
		UpdatedAt:   unixMilliUTC(compact.UpdatedAt),
		Version:     compact.Version,
		IsPublic:    compact.IsPublic == 1,
		Thumbnail:   compact.Thumbnail,
	}

	for i, p := range compact.Players {
		team := core.Team(p.T)
		if team != core.TeamOffense && team != core.TeamDefense {
			return nil, fmt.Errorf("compact play %s: player %s has unknown team %q", compact.ID, p.ID, p.T)
		}
		play.Players[i] = core.Player{
			ID:       p.ID,
			Position: p.Pos,
			Number:   p.Num,
			Team:     team,
			X:        float64(p.X),
			Y:        float64(p.Y),
			IsKey:    p.K == 1,
		}
	}

	for i, r := range compact.Routes {
		rt := core.RouteType(r.T)
		if !rt.Valid() {
			return nil, fmt.Errorf("compact play %s: route %s has unknown type %q", compact.ID, r.ID, r.T)
		}
		if r.SW < 0 {
			return nil, fmt.Errorf("compact play %s: route %s has negative stroke width", compact.ID, r.ID)
		}
		points := make([]core.RoutePoint, len(r.Pts))
		for j, pt := range r.Pts {
			if len(pt) != 3 {
				return nil, fmt.Errorf("compact play %s: route %s point %d has %d values, want 3", compact.ID, r.ID, j, len(pt))
			}
			points[j] = core.RoutePoint{
				X:         float64(pt[0]),
				Y:         float64(pt[1]),
				Timestamp: pt[2],
			}
		}
		play.Routes[i] = core.Route{
			ID:          r.ID,
			PlayerID:    r.PID,
			Points:      points,
			Type:        rt,
			Color:       r.C,
			StrokeWidth: r.SW,
			Dash:        append([]float64(nil), r.D...),
			Tension:     r.TN,
			Arrow:       r.A == 1,
		}
	}

	return play, nil
}

// DecodeJSON parses a serialized compact play and decodes it. A record that
// does not parse fails alone; callers iterating a batch skip and report it.
func DecodeJSON(data []byte) (*core.Play, error) {
	var compact CompactPlay
	if err := json.Unmarshal(data, &compact); err != nil {
		return nil, fmt.Errorf("malformed compact play: %w", err)
	}
	return Decode(compact)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func unixMilliUTC(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
