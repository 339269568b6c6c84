package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/fdtdsim/internal/analysis"
	"github.com/san-kum/fdtdsim/internal/backend"
	"github.com/san-kum/fdtdsim/internal/config"
	"github.com/san-kum/fdtdsim/internal/experiment"
	"github.com/san-kum/fdtdsim/internal/fdtd"
)

func runDefault(t *testing.T, steps int) *experiment.Experiment {
	t.Helper()
	scene := config.DefaultScene()
	scene.Detectors[0].Mode = ""
	scene.Run.Steps = steps
	exp, err := experiment.NewOn(scene, backend.NewCPUBackend(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	return exp
}

func TestCollectAndJSON(t *testing.T) {
	exp := runDefault(t, 40)
	data := Collect("vacuum_1550", exp.Grid(), nil)

	if data.Steps != 40 || len(data.Detectors) != 1 {
		t.Fatalf("steps %d detectors %d", data.Steps, len(data.Detectors))
	}
	d := data.Detectors[0]
	if len(d.Components) != 6 || len(d.Times) != 40 {
		t.Errorf("got %d components over %d times", len(d.Components), len(d.Times))
	}
	sensor, _ := exp.Grid().Detector("sensor")
	if diff := cmp.Diff(sensor.Component('E', fdtd.Z), d.Components["Ez"]); diff != "" {
		t.Errorf("Ez mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, data); err != nil {
		t.Fatal(err)
	}
	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(data, decoded); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestExportJSONFile(t *testing.T) {
	exp := runDefault(t, 5)
	path := filepath.Join(t.TempDir(), "run.json")
	if err := ExportJSON(path, Collect("x", exp.Grid(), nil)); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"scene": "x"`) {
		t.Errorf("unexpected output:\n%s", raw)
	}
}

func TestPlots(t *testing.T) {
	exp := runDefault(t, 60)
	data := Collect("vacuum_1550", exp.Grid(), nil)
	dir := t.TempDir()

	png := filepath.Join(dir, "sensor.png")
	if err := PlotDetector(png, data.Detectors[0]); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Error("png output lacks the PNG signature")
	}

	svg := filepath.Join(dir, "profile.svg")
	ez := exp.Grid().E().Component(fdtd.Z)
	if err := PlotProfile(svg, "Ez", ez, exp.Grid().Spacing()[0]); err != nil {
		t.Fatal(err)
	}
	raw, err = os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte("<svg")) {
		t.Error("svg output lacks an svg element")
	}

	spec := analysis.PowerSpectrum(exp.Grid().Backend(), data.Detectors[0].Components["Ez"], exp.Grid().TimeStep())
	if err := PlotSpectrum(filepath.Join(dir, "spectrum.png"), "spectrum", spec); err != nil {
		t.Fatal(err)
	}
}

func TestPlotSeriesErrors(t *testing.T) {
	dir := t.TempDir()
	if err := PlotSeries(filepath.Join(dir, "a.png"), "", "", "", nil, nil); err == nil {
		t.Error("expected error for empty series")
	}
	err := PlotSeries(filepath.Join(dir, "b.png"), "", "", "", []float64{1, 2}, map[string][]float64{"y": {1}})
	if err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestPlotGridProfile(t *testing.T) {
	exp := runDefault(t, 30)
	g := exp.Grid()

	line := CentreLine(g.E(), fdtd.Z)
	shape := g.Shape()
	if len(line) != shape[0] {
		t.Fatalf("centre line has %d samples, want %d", len(line), shape[0])
	}
	e := g.E()
	for x := range line {
		if want := e.At(x, shape[1]/2, shape[2]/2, fdtd.Z); line[x] != want {
			t.Fatalf("sample %d = %v, want %v", x, line[x], want)
		}
	}

	path := filepath.Join(t.TempDir(), "profile.png")
	if err := PlotGridProfile(path, g, fdtd.Z); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Error("profile output lacks the PNG signature")
	}
}
