package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvrp-router/internal/instance"
	"cvrp-router/internal/models"
	"cvrp-router/internal/routing"
	"cvrp-router/internal/testutil"
)

func writeInstance(t *testing.T, name string, inst *models.Instance) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, instance.Write(f, inst, instance.FormatFromPath(path)))
	return path
}

func TestRunSample(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &options{}, &out))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Objective: 8080\nRoute for vehicle 0:\n"), text)
	assert.Contains(t, text, "Total Distance of all routes: 8080m\n")
	assert.Contains(t, text, "Total Load of all routes: 60\n")
}

func TestRunSampleImprovedJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &options{improve: true, asJSON: true}, &out))

	var rep models.SolutionReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 7760.0, rep.Objective)
	assert.Equal(t, "path_cheapest_arc", rep.Strategy)
}

func TestRunInstanceFiles(t *testing.T) {
	five := writeInstance(t, "five.yaml", testutil.FivePointInstance())
	line := writeInstance(t, "line.json", testutil.LineInstance(4, 1, 1, 5))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &options{files: []string{five, line}}, &out))

	text := out.String()
	assert.Contains(t, text, "== five-point ==\nObjective: 18\n")
	assert.Contains(t, text, "== line ==\n")
}

func TestRunInfeasible(t *testing.T) {
	path := writeInstance(t, "tight.yaml", testutil.LineInstance(4, 2, 2, 3))

	var out bytes.Buffer
	err := run(context.Background(), &options{files: []string{path}}, &out)

	var infeasible *routing.ErrConstructionInfeasible
	require.True(t, errors.As(err, &infeasible), "got %v", err)
	assert.Equal(t, []int{3}, infeasible.Unrouted)
	assert.Empty(t, out.String())
}

func TestRunUnknownStrategy(t *testing.T) {
	err := run(context.Background(), &options{strategy: "savings"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-instance", "a.yaml", "-strategy", "path_cheapest_arc", "-improve", "-json", "b.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml", "b.json"}, opts.files)
	assert.Equal(t, "path_cheapest_arc", opts.strategy)
	assert.True(t, opts.improve)
	assert.True(t, opts.asJSON)

	_, err = parseFlags([]string{"-bogus"})
	assert.Error(t, err)
}
