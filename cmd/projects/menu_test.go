package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saltyorg/projects/internal/config"
	"github.com/saltyorg/projects/internal/database"
	"github.com/saltyorg/projects/internal/service"
)

func newTestService(t *testing.T) *service.ProjectService {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "menu.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.CreateSchema(ctx))

	return service.New(database.NewProjectDAO(db))
}

func runScript(t *testing.T, svc *service.ProjectService, lines ...string) string {
	t.Helper()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, newMenu(svc, in, &out).run(context.Background()))
	return out.String()
}

func TestMenu_AddListSelect(t *testing.T) {
	svc := newTestService(t)

	out := runScript(t, svc,
		"1", "Bench", "1.5", "", "3", "sturdy",
		"2",
		"3", "1",
		"",
	)

	assert.Contains(t, out, "You are not working with a project.")
	assert.Contains(t, out, "You added this project:")
	assert.Contains(t, out, "estimatedHours=1.50")
	assert.Contains(t, out, "actualHours=-")
	assert.Contains(t, out, "   1: Bench")
	assert.Contains(t, out, "You are working with project: 1: Bench")
	assert.True(t, strings.HasSuffix(out, "Exiting the menu...\n"))
}

func TestMenu_InvalidInputKeepsLooping(t *testing.T) {
	svc := newTestService(t)

	out := runScript(t, svc,
		"abc",
		"9",
		"3", "42",
		"1", "", "", "", "", "",
	)

	assert.Contains(t, out, "abc is not a valid number")
	assert.Contains(t, out, "9 is not valid. Try again.")
	assert.Contains(t, out, "No projects yet.")
	assert.Contains(t, out, "project with ID=42 does not exist")
	assert.Contains(t, out, "project name is required")
	assert.Contains(t, out, "Exiting the menu...")
	assert.NotContains(t, out, "You are working with project")
}

func TestMenu_FailedSelectKeepsCurrentProject(t *testing.T) {
	svc := newTestService(t)

	out := runScript(t, svc,
		"1", "Bench", "", "", "", "",
		"3", "1",
		"3", "42",
		"",
	)

	failed := strings.Index(out, "project with ID=42 does not exist")
	require.GreaterOrEqual(t, failed, 0)
	assert.Contains(t, out[failed:], "You are working with project: 1: Bench")
	assert.NotContains(t, out[failed:], "You are not working with a project.")
}

func TestMenu_EndOfInputQuits(t *testing.T) {
	svc := newTestService(t)

	var out bytes.Buffer
	require.NoError(t, newMenu(svc, strings.NewReader("1\nHalf"), &out).run(context.Background()))
	assert.Contains(t, out.String(), "Exiting the menu...")
}

func TestPrintProject_Children(t *testing.T) {
	var out bytes.Buffer
	n := 4
	printProject(&out, &database.Project{
		ProjectID:   3,
		ProjectName: "Shelf",
		Materials:   []database.Material{{MaterialName: "Brackets", NumRequired: &n}},
		Steps:       []database.Step{{StepOrder: 1, StepText: "Measure"}},
		Categories:  []database.Category{{CategoryName: "Indoor"}},
	})

	s := out.String()
	assert.Contains(t, s, "ID=3")
	assert.Contains(t, s, "Brackets (required: 4, cost: -)")
	assert.Contains(t, s, "1. Measure")
	assert.Contains(t, s, "Indoor")
}
