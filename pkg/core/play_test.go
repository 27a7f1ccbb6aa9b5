package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPlay() *Play {
	return &Play{
		ID:        "p1",
		Name:      "Slant Right",
		FieldType: Field7v7,
		Players: []Player{
			{ID: "pl1", Position: "QB", Number: 12, Team: TeamOffense, X: 50, Y: 20},
			{ID: "pl2", Position: "WR", Number: 80, Team: TeamOffense, X: 80, Y: 10},
		},
		Routes: []Route{
			{ID: "r1", PlayerID: "pl2", Type: RoutePass, Points: []RoutePoint{{X: 80, Y: 10}, {X: 60, Y: 30}}},
		},
		CoachID: "coach-1",
		TeamID:  "team-1",
	}
}

func TestMaxPlayers(t *testing.T) {
	assert.Equal(t, 22, MaxPlayers(Field11v11))
	assert.Equal(t, 14, MaxPlayers(Field7v7))
	assert.Equal(t, 10, MaxPlayers(Field5v5))
	assert.Equal(t, 0, MaxPlayers(FieldType("9v9")))
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validPlay().Validate())
}

func TestValidate_UnknownFieldType(t *testing.T) {
	p := validPlay()
	p.FieldType = "3v3"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field type")
}

func TestValidate_TooManyPlayers(t *testing.T) {
	p := validPlay()
	p.FieldType = Field5v5
	for i := 0; i < 11; i++ {
		p.Players = append(p.Players, Player{ID: "extra", Team: TeamDefense})
	}
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 5v5 limit")
}

func TestValidate_DanglingRoute(t *testing.T) {
	p := validPlay()
	p.Routes[0].PlayerID = "nobody"
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown player "nobody"`)
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	p := validPlay()
	p.Players[0].Team = "referee"
	p.Routes[0].Type = "wander"
	err := p.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown team"))
	assert.True(t, strings.Contains(err.Error(), "unknown type"))
}

func TestClone_IsDeep(t *testing.T) {
	p := validPlay()
	p.Tags = []string{"red-zone"}

	clone := p.Clone()
	clone.Players[0].X = 99
	clone.Routes[0].Points[0].X = 99
	clone.Tags[0] = "tampered"

	assert.Equal(t, float64(50), p.Players[0].X)
	assert.Equal(t, float64(80), p.Routes[0].Points[0].X)
	assert.Equal(t, "red-zone", p.Tags[0])

	var nilPlay *Play
	assert.Nil(t, nilPlay.Clone())
}

func TestRouteTypeValid(t *testing.T) {
	for _, rt := range []RouteType{RouteRun, RoutePass, RouteBlock, RouteCustom} {
		assert.True(t, rt.Valid(), string(rt))
	}
	assert.False(t, RouteType("zigzag").Valid())
}
