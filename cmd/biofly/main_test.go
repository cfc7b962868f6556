package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialdrones/crazyflie-scripts/internal/pose"
	"github.com/socialdrones/crazyflie-scripts/internal/remap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := runCommand(context.Background(), args, &out)
	return out.String(), err
}

func TestRunCommand_Usage(t *testing.T) {
	out, err := run(t)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Usage: biofly")

	out, err = run(t, "frobnicate")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, out, "Unknown command: frobnicate")

	_, err = run(t, "help")
	assert.NoError(t, err)
}

func TestRemapCommand(t *testing.T) {
	out, err := run(t, "remap", "-value", "500", "-src-min", "0", "-src-max", "1024", "-dst-min", "0.5", "-dst-max", "1.2")
	require.NoError(t, err)
	assert.Equal(t, "0.841796875\n", out)

	_, err = run(t, "remap", "-value", "1", "-src-min", "3", "-src-max", "3")
	assert.ErrorIs(t, err, remap.ErrInvalidInterval)

	_, err = run(t, "remap", "-bogus")
	assert.ErrorIs(t, err, errUsage)
}

func TestQuatCommand(t *testing.T) {
	const quarterTurnZ = "0,-1,0,1,0,0,0,0,1"
	want := "(x=0.000000, y=0.000000, z=0.707107, w=0.707107)\n"

	out, err := run(t, "quat", "-m", quarterTurnZ)
	require.NoError(t, err)
	assert.Equal(t, want, out)

	out, err = run(t, "quat", "-m", quarterTurnZ, "-shepperd", "-validate")
	require.NoError(t, err)
	assert.Equal(t, want, out)

	_, err = run(t, "quat", "-m", "2,0,0,0,2,0,0,0,2", "-validate")
	assert.ErrorIs(t, err, pose.ErrNotOrthonormal)

	_, err = run(t, "quat", "-m", "1,0,0")
	assert.ErrorContains(t, err, "needs 9 values")

	_, err = run(t, "quat")
	assert.ErrorIs(t, err, errUsage)
}

func TestParseMatrix(t *testing.T) {
	m, err := parseMatrix("1 2 3, 4 5 6, 7 8 9")
	require.NoError(t, err)
	assert.Equal(t, pose.RotationMatrix{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, m)

	_, err = parseMatrix("1,2,3,4,5,6,7,8,x")
	assert.ErrorContains(t, err, "element 8")
}

func TestRunCommand_RequiresDev(t *testing.T) {
	_, err := run(t, "run", "-demo", "flowcheck")
	assert.ErrorIs(t, err, errNoHardware)
}

func TestRunCommand_UnknownDemo(t *testing.T) {
	_, err := run(t, "run", "-demo", "backflip", "-dev", "-instant")
	assert.ErrorContains(t, err, "unknown demo")
}

func TestRunCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"running_time": "soon"}`), 0644))

	_, err := run(t, "run", "-dev", "-config", path)
	assert.ErrorContains(t, err, "invalid running_time")
}

func TestRunCommand_SimulatedDemos(t *testing.T) {
	for _, name := range []string{"flowcheck", "sensorcheck", "avoidance", "mocap"} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, "run", "-demo", name, "-dev", "-instant")
			assert.NoError(t, err)
		})
	}
}

func TestRecordListAndPlot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "demo.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"running_time": "3s"}`), 0644))
	dbPath := filepath.Join(dir, "sessions.db")
	plotDir := filepath.Join(dir, "plots")

	out, err := run(t, "run", "-demo", "respiration", "-dev", "-instant",
		"-config", cfgPath, "-db", dbPath, "-plot", plotDir)
	require.NoError(t, err)

	var sessionID string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if id, ok := strings.CutPrefix(line, "session "); ok {
			sessionID = id
		}
	}
	require.NotEmpty(t, sessionID, "output: %s", out)
	assert.Contains(t, out, "plot "+filepath.Join(plotDir, "session_"+sessionID+".png"))

	out, err = run(t, "sessions", "-db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, sessionID)
	assert.Contains(t, out, "respiration")

	replotDir := filepath.Join(dir, "replot")
	out, err = run(t, "plot", "-db", dbPath, "-session", sessionID, "-out", replotDir)
	require.NoError(t, err)
	_, err = os.Stat(strings.TrimSpace(out))
	assert.NoError(t, err)

	_, err = run(t, "plot", "-db", dbPath)
	assert.ErrorIs(t, err, errUsage)
}

func TestSessionsCommand_Empty(t *testing.T) {
	out, err := run(t, "sessions", "-db", filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	assert.Equal(t, "no sessions recorded\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "biofly "))
}
