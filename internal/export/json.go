package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fdtdsim/internal/fdtd"
	"github.com/san-kum/fdtdsim/internal/sim"
)

type ExportData struct {
	Scene     string             `json:"scene"`
	Backend   string             `json:"backend"`
	Shape     [3]int             `json:"shape"`
	Spacing   [3]float64         `json:"spacing"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Time      float64            `json:"time"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Detectors []DetectorData     `json:"detectors"`
}

// DetectorData holds cell-averaged components keyed "Ex" through "Hz" in SI units.
type DetectorData struct {
	Name       string               `json:"name"`
	Kind       string               `json:"kind"`
	Mode       string               `json:"mode"`
	Cells      [][3]int             `json:"cells"`
	Times      []float64            `json:"times"`
	Components map[string][]float64 `json:"components"`
}

// Collect gathers everything a grid has recorded so far.
func Collect(scene string, g *fdtd.Grid, result *sim.Result) ExportData {
	data := ExportData{
		Scene:     scene,
		Backend:   g.Backend().Name(),
		Shape:     g.Shape(),
		Spacing:   g.Spacing(),
		Dt:        g.TimeStep(),
		Steps:     g.TimeStepsPassed(),
		Time:      g.Time(),
		Detectors: make([]DetectorData, 0, len(g.Detectors())),
	}
	if result != nil {
		data.Metrics = result.Metrics
	}
	for _, d := range g.Detectors() {
		dd := DetectorData{
			Name:       d.Name(),
			Kind:       d.Kind().String(),
			Mode:       d.Mode().String(),
			Cells:      d.Cells(),
			Times:      make([]float64, d.Len()),
			Components: make(map[string][]float64),
		}
		for s := range dd.Times {
			dd.Times[s] = float64(s+1) * g.TimeStep()
		}
		for _, field := range []byte{'E', 'H'} {
			for c := fdtd.X; c <= fdtd.Z; c++ {
				if series := d.Component(field, c); series != nil {
					dd.Components[string(field)+c.String()] = series
				}
			}
		}
		data.Detectors = append(data.Detectors, dd)
	}
	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, data)
}

func ExportJSONStdout(data ExportData) error {
	return WriteJSON(os.Stdout, data)
}
