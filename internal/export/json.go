package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/control"
	"github.com/san-kum/ackersim/internal/models"
	"github.com/san-kum/ackersim/internal/sim"
)

type ExportData struct {
	Mode       string             `json:"mode"`
	Vehicle    models.Geometry    `json:"vehicle"`
	Velocity   control.Gains      `json:"velocity_gains"`
	Heading    control.Gains      `json:"heading_gains"`
	Dt         float64            `json:"dt"`
	Target     Target             `json:"target"`
	Phase      string             `json:"phase"`
	Iterations int                `json:"iterations"`
	Final      sim.Pose           `json:"final"`
	Samples    []sim.Sample       `json:"samples"`
	Metrics    map[string]float64 `json:"metrics"`
}

type Target struct {
	Heading       float64 `json:"heading"`
	Velocity      float64 `json:"velocity"`
	MaxIterations int     `json:"max_iterations"`
	Threshold     float64 `json:"threshold"`
}

func NewExportData(cfg *config.Config, phase string, iterations int, final sim.Pose, samples []sim.Sample, metrics map[string]float64) ExportData {
	if samples == nil {
		samples = []sim.Sample{}
	}
	return ExportData{
		Mode:     cfg.Mode,
		Vehicle:  cfg.Vehicle,
		Velocity: cfg.Velocity,
		Heading:  cfg.Heading,
		Dt:       cfg.Dt,
		Target: Target{
			Heading:       cfg.Session.TargetHeading,
			Velocity:      cfg.Session.TargetVelocity,
			MaxIterations: cfg.Session.MaxIterations,
			Threshold:     cfg.Session.Threshold,
		},
		Phase:      phase,
		Iterations: iterations,
		Final:      final,
		Samples:    samples,
		Metrics:    metrics,
	}
}

// FromResult packages a finished session.
func FromResult(cfg *config.Config, res *sim.Result) ExportData {
	return NewExportData(cfg, res.Phase.String(), res.Iterations, res.Final, res.Samples, res.Metrics)
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
