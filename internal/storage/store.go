package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/gravsim/internal/bodies"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	bodiesFile   = "bodies.csv"
	stepsFile    = "steps.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

var (
	bodiesHeader = []string{"id", "mass", "radius", "x", "y", "z", "vx", "vy", "vz"}
	stepsHeader  = []string{"step", "time", "energy", "drift", "step_ms"}
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Backend   string             `json:"backend"`
	Config    *config.Config     `json:"config"`
	Steps     int                `json:"steps"`
	SimTime   float64            `json:"sim_time"`
	ElapsedMS float64            `json:"elapsed_ms"`
	FPS       float64            `json:"fps"`
	Gflops    float64            `json:"gflops"`
	Metrics   map[string]float64 `json:"metrics"`
}

// StepRecord is one row of steps.csv. Energy and Drift are zero when the
// run did not track energy.
type StepRecord struct {
	Step   int
	Time   float64
	Energy float64
	Drift  float64
	Millis float64
}

// Run is everything Save persists for one finished simulation.
type Run struct {
	Config  *config.Config
	Backend string
	Result  *dynamo.Result
	Bodies  []bodies.Body
	Steps   []StepRecord
}

// Save writes run into a fresh directory and returns its id.
func (s *Store) Save(run Run) (string, error) {
	if run.Config == nil || run.Result == nil {
		return "", errors.New("storage: run needs a config and a result")
	}
	now := time.Now()
	runID, runDir, err := s.allocate(run.Config.Scheme, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Timestamp: now,
		Backend:   run.Backend,
		Config:    run.Config,
		Steps:     run.Result.Steps,
		SimTime:   run.Result.SimTime,
		ElapsedMS: float64(run.Result.Elapsed) / float64(time.Millisecond),
		FPS:       run.Result.FPS,
		Gflops:    run.Result.Gflops,
		Metrics:   finite(run.Result.Metrics),
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, bodiesFile), bodiesHeader, len(run.Bodies), func(i int) []string {
		b := run.Bodies[i]
		return []string{
			strconv.Itoa(i), formatFloat(b.Mass), formatFloat(b.Radius),
			formatFloat(b.Pos.X), formatFloat(b.Pos.Y), formatFloat(b.Pos.Z),
			formatFloat(b.Vel.X), formatFloat(b.Vel.Y), formatFloat(b.Vel.Z),
		}
	}); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, stepsFile), stepsHeader, len(run.Steps), func(i int) []string {
		r := run.Steps[i]
		return []string{
			strconv.Itoa(r.Step), formatFloat(r.Time), formatFloat(r.Energy),
			formatFloat(r.Drift), formatFloat(r.Millis),
		}
	}); err != nil {
		return "", err
	}

	return runID, nil
}

// allocate creates <base>/<scheme>_<unix>, adding a counter suffix when
// several runs finish within the same second.
func (s *Store) allocate(scheme string, now time.Time) (string, string, error) {
	if err := s.Init(); err != nil {
		return "", "", err
	}
	base := fmt.Sprintf("%s_%d", scheme, now.Unix())
	for i := 0; ; i++ {
		runID := base
		if i > 0 {
			runID = fmt.Sprintf("%s_%d", base, i)
		}
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
	}
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.path(runID, metadataFile))
	if err != nil {
		return nil, notFound(runID, err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadBodies(runID string) ([]bodies.Body, error) {
	records, err := s.readCSV(runID, bodiesFile, len(bodiesHeader))
	if err != nil {
		return nil, err
	}

	out := make([]bodies.Body, 0, len(records))
	for line, rec := range records {
		v, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", bodiesFile, line+2, err)
		}
		out = append(out, bodies.Body{
			Mass:   v[0],
			Radius: v[1],
			Pos:    r3.Vec{X: v[2], Y: v[3], Z: v[4]},
			Vel:    r3.Vec{X: v[5], Y: v[6], Z: v[7]},
		})
	}
	return out, nil
}

func (s *Store) LoadSteps(runID string) ([]StepRecord, error) {
	records, err := s.readCSV(runID, stepsFile, len(stepsHeader))
	if err != nil {
		return nil, err
	}

	out := make([]StepRecord, 0, len(records))
	for line, rec := range records {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", stepsFile, line+2, err)
		}
		v, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", stepsFile, line+2, err)
		}
		out = append(out, StepRecord{Step: step, Time: v[0], Energy: v[1], Drift: v[2], Millis: v[3]})
	}
	return out, nil
}

// Export writes the metadata, final bodies and step records of a run as
// one indented JSON document.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	bs, err := s.LoadBodies(runID)
	if err != nil {
		return err
	}
	steps, err := s.LoadSteps(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Metadata *RunMetadata  `json:"metadata"`
		Bodies   []bodies.Body `json:"bodies"`
		Steps    []StepRecord  `json:"steps"`
	}{meta, bs, steps})
}

func (s *Store) path(runID, name string) string {
	return filepath.Join(s.baseDir, runID, name)
}

// readCSV returns the data rows of a run file, header excluded.
func (s *Store) readCSV(runID, name string, fields int) ([][]string, error) {
	file, err := os.Open(s.path(runID, name))
	if err != nil {
		return nil, notFound(runID, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = fields
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", name, err)
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

func notFound(runID string, err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return err
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < rows; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// finite drops NaN and Inf entries, which encoding/json rejects.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}
