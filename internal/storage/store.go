package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/sim"
)

var ErrNoDetector = errors.New("storage: detector not found in run")

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
	ID         string             `json:"id"`
	Scene      string             `json:"scene"`
	Timestamp  time.Time          `json:"timestamp"`
	Backend    string             `json:"backend"`
	Shape      [3]int             `json:"shape"`
	Spacing    [3]float64         `json:"spacing"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Time       float64            `json:"time"`
	ElapsedSec float64            `json:"elapsed_sec"`
	Metrics    map[string]float64 `json:"metrics"`
	Detectors  []DetectorMetadata `json:"detectors"`
}

type DetectorMetadata struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Mode    string `json:"mode"`
	Cells   int    `json:"cells"`
	Samples int    `json:"samples"`
	File    string `json:"file"`
}

// Trace is a detector time series as stored on disk. Each column is the
// cell-averaged value of one field component.
type Trace struct {
	Columns []string
	Times   []float64
	Values  [][]float64
}

// Column returns the series named col, or nil.
func (t *Trace) Column(col string) []float64 {
	for i, c := range t.Columns {
		if c == col {
			out := make([]float64, len(t.Values))
			for s, row := range t.Values {
				out[s] = row[i]
			}
			return out
		}
	}
	return nil
}

// Save writes the scene, a metadata file and one CSV per detector into a
// fresh run directory and returns the run ID.
func (s *Store) Save(scene *config.Scene, g *fdtd.Grid, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", fileSafe(scene.Name), uuid.New().String()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, "scene.yaml"), scene); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scene:     scene.Name,
		Timestamp: time.Now(),
		Backend:   g.Backend().Name(),
		Shape:     g.Shape(),
		Spacing:   g.Spacing(),
		Dt:        g.TimeStep(),
		Steps:     g.TimeStepsPassed(),
		Time:      g.Time(),
		Metrics:   map[string]float64{},
	}
	if result != nil {
		meta.Metrics = result.Metrics
		meta.ElapsedSec = result.Elapsed.Seconds()
	}

	for i, d := range g.Detectors() {
		file := fmt.Sprintf("detector_%02d_%s.csv", i, fileSafe(d.Name()))
		if err := writeDetector(filepath.Join(runDir, file), d, g.TimeStep()); err != nil {
			return "", fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		meta.Detectors = append(meta.Detectors, DetectorMetadata{
			Name:    d.Name(),
			Kind:    d.Kind().String(),
			Mode:    d.Mode().String(),
			Cells:   len(d.Cells()),
			Samples: d.Len(),
			File:    file,
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, "metadata.json"), append(data, '\n'), 0644); err != nil {
		return "", err
	}
	return runID, nil
}

// fileSafe maps a name onto a single path element: anything outside
// [A-Za-z0-9_-] becomes '_', so separators and dot segments cannot survive.
func fileSafe(name string) string {
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}

func writeDetector(path string, d *fdtd.Detector, dt float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	header := []string{"step", "time"}
	var cols [][]float64
	for _, field := range []byte{'E', 'H'} {
		for c := fdtd.X; c <= fdtd.Z; c++ {
			series := d.Component(field, c)
			if series == nil {
				continue
			}
			header = append(header, string(field)+c.String())
			cols = append(cols, series)
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for s := 0; s < d.Len(); s++ {
		row := []string{
			strconv.Itoa(s + 1),
			strconv.FormatFloat(float64(s+1)*dt, 'g', -1, 64),
		}
		for _, col := range cols {
			row = append(row, strconv.FormatFloat(col[s], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadScene returns the scene a run was started from.
func (s *Store) LoadScene(runID string) (*config.Scene, error) {
	return config.Load(filepath.Join(s.baseDir, runID, "scene.yaml"))
}

func (s *Store) LoadTrace(runID, detector string) (*Trace, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	file := ""
	for _, d := range meta.Detectors {
		if d.Name == detector {
			file = d.File
			break
		}
	}
	if file == "" {
		return nil, fmt.Errorf("%w: %q in %s", ErrNoDetector, detector, runID)
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, file))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty trace file", file)
	}

	trace := &Trace{Columns: records[0][2:]}
	for _, record := range records[1:] {
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		row := make([]float64, len(record)-2)
		for j, field := range record[2:] {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		trace.Times = append(trace.Times, t)
		trace.Values = append(trace.Values, row)
	}
	return trace, nil
}
