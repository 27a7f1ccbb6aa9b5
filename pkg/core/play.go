// pkg/core/play.go
package core

import (
	"errors"
	"fmt"
	"time"
)

// FieldType is the field layout a play is drawn for.
type FieldType string

const (
	Field11v11 FieldType = "11v11"
	Field7v7   FieldType = "7v7"
	Field5v5   FieldType = "5v5"
)

// Team is the side a player belongs to within a play.
type Team string

const (
	TeamOffense Team = "offense"
	TeamDefense Team = "defense"
)

// MaxPlayers returns the maximum number of players a field type supports,
// or 0 for an unknown field type.
func MaxPlayers(ft FieldType) int {
	switch ft {
	case Field11v11:
		return 22
	case Field7v7:
		return 14
	case Field5v5:
		return 10
	default:
		return 0
	}
}

// Player is a positioned player marker on the diagram.
type Player struct {
	ID       string  `json:"id"`
	Position string  `json:"position"`
	Number   int     `json:"number"`
	Team     Team    `json:"team"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	IsKey    bool    `json:"isKey,omitempty"`
}

// Play is a single play diagram. The same logical play keeps the same ID
// across the local and remote stores.
type Play struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Formation   string    `json:"formation"`
	FieldType   FieldType `json:"fieldType"`
	Players     []Player  `json:"players"`
	Routes      []Route   `json:"routes"`
	Notes       string    `json:"notes"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	CoachID     string    `json:"coachId"`
	TeamID      string    `json:"teamId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int       `json:"version"`
	IsPublic    bool      `json:"isPublic"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// Clone returns a deep copy of the play. Handing a clone to the sync queue
// keeps later caller mutations from altering an already queued payload.
func (p *Play) Clone() *Play {
	if p == nil {
		return nil
	}
	out := *p
	out.Players = append([]Player(nil), p.Players...)
	out.Tags = append([]string(nil), p.Tags...)
	out.Routes = make([]Route, len(p.Routes))
	for i, r := range p.Routes {
		out.Routes[i] = r
		out.Routes[i].Points = append([]RoutePoint(nil), r.Points...)
		out.Routes[i].Dash = append([]float64(nil), r.Dash...)
	}
	return &out
}

// Validate reports contract violations: unknown enums, player counts above
// the field type's roster limit, and routes referencing unknown player IDs.
// These are documented contracts, not write-time gates; callers decide
// whether to reject.
func (p *Play) Validate() error {
	var problems []error

	if max := MaxPlayers(p.FieldType); max == 0 {
		problems = append(problems, fmt.Errorf("unknown field type %q", p.FieldType))
	} else if len(p.Players) > max {
		problems = append(problems, fmt.Errorf("%d players exceeds %s limit of %d", len(p.Players), p.FieldType, max))
	}

	playerIDs := make(map[string]struct{}, len(p.Players))
	for _, pl := range p.Players {
		playerIDs[pl.ID] = struct{}{}
		if pl.Team != TeamOffense && pl.Team != TeamDefense {
			problems = append(problems, fmt.Errorf("player %s has unknown team %q", pl.ID, pl.Team))
		}
	}

	for _, r := range p.Routes {
		if _, ok := playerIDs[r.PlayerID]; !ok {
			problems = append(problems, fmt.Errorf("route %s references unknown player %q", r.ID, r.PlayerID))
		}
		if !r.Type.Valid() {
			problems = append(problems, fmt.Errorf("route %s has unknown type %q", r.ID, r.Type))
		}
	}

	return errors.Join(problems...)
}
