package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseArgs_Defaults(t *testing.T) {
	cli := parseArgs(nil)
	assert.Equal(t, "run", cli.Command)
	assert.Equal(t, ".", cli.ConfigDir)
	assert.Equal(t, "-", cli.File)
}

func TestParseArgs_SubcommandAndFlags(t *testing.T) {
	cli := parseArgs([]string{"list", "-config", "/etc/playvault", "-coach=c1", "-team", "t1", "-limit", "25"})
	assert.Equal(t, "list", cli.Command)
	assert.Equal(t, "/etc/playvault", cli.ConfigDir)
	assert.Equal(t, "c1", cli.Filter.CoachID)
	assert.Equal(t, "t1", cli.Filter.TeamID)
	assert.Equal(t, 25, cli.Filter.Limit)
}

func TestParseArgs_ExportFile(t *testing.T) {
	cli := parseArgs([]string{"export", "-file", "plays.json", "-category=red-zone"})
	assert.Equal(t, "export", cli.Command)
	assert.Equal(t, "plays.json", cli.File)
	assert.Equal(t, "red-zone", cli.Filter.Category)
}

func TestParseArgs_IgnoresUnknownFlags(t *testing.T) {
	cli := parseArgs([]string{"sync", "-verbose", "-limit", "abc"})
	assert.Equal(t, "sync", cli.Command)
	assert.Equal(t, 0, cli.Filter.Limit)
}
