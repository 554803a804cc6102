package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
)

func testRun() Run {
	cfg := config.DefaultConfig()
	cfg.Bodies = 2
	cfg.Seed = 42
	return Run{
		Config:  cfg,
		Backend: "pool",
		Result: &dynamo.Result{
			Steps:   2,
			SimTime: 7200,
			Elapsed: 3 * time.Millisecond,
			FPS:     666.5,
			Metrics: map[string]float64{
				"energy_drift": 1.5e-6,
				"max_speed":    math.Inf(1),
			},
		},
		Bodies: []bodies.Body{
			{Mass: 2e24, Radius: 1e6, Pos: r3.Vec{X: 1, Y: 2, Z: 3}, Vel: r3.Vec{X: -1}},
			{Mass: 1.25e8, Radius: 0.5, Pos: r3.Vec{X: 1.0e8 / 3}, Vel: r3.Vec{Z: 0.1}},
		},
		Steps: []StepRecord{
			{Step: 1, Time: 3600, Energy: -4.2e10, Drift: 0, Millis: 1.25},
			{Step: 2, Time: 7200, Energy: -4.2e10, Drift: 1.5e-6, Millis: 1.5},
		},
	}
}

func TestSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	run := testRun()

	runID, err := st.Save(run)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, meta.ID)
	assert.Equal(t, "pool", meta.Backend)
	assert.Equal(t, run.Config, meta.Config)
	assert.Equal(t, 2, meta.Steps)
	assert.InDelta(t, 3.0, meta.ElapsedMS, 1e-9)
	assert.Equal(t, 1.5e-6, meta.Metrics["energy_drift"])
	assert.NotContains(t, meta.Metrics, "max_speed", "non-finite metrics are dropped")

	bs, err := st.LoadBodies(runID)
	require.NoError(t, err)
	assert.Equal(t, run.Bodies, bs, "bodies must round trip exactly")

	steps, err := st.LoadSteps(runID)
	require.NoError(t, err)
	assert.Equal(t, run.Steps, steps)
}

func TestSaveSameSecond(t *testing.T) {
	st := New(t.TempDir())

	first, err := st.Save(testRun())
	require.NoError(t, err)
	second, err := st.Save(testRun())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSaveRejectsIncompleteRun(t *testing.T) {
	_, err := New(t.TempDir()).Save(Run{})
	assert.Error(t, err)
}

func TestListEmpty(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListSkipsForeignDirectories(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	_, err := st.Save(testRun())
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "scratch"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLoadMissing(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadBodies("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = st.LoadSteps("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestLoadBodiesMalformed(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	runID, err := st.Save(testRun())
	require.NoError(t, err)

	data := "id,mass,radius,x,y,z,vx,vy,vz\n0,abc,1,0,0,0,0,0,0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, runID, bodiesFile), []byte(data), 0644))

	_, err = st.LoadBodies(runID)
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(testRun())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.Export(runID, &buf))

	var doc struct {
		Metadata RunMetadata
		Bodies   []bodies.Body
		Steps    []StepRecord
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, runID, doc.Metadata.ID)
	assert.Len(t, doc.Bodies, 2)
	assert.Len(t, doc.Steps, 2)
}
