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
	"time"

	"github.com/san-kum/ackersim/internal/config"
	"github.com/san-kum/ackersim/internal/models"
	"github.com/san-kum/ackersim/internal/sim"
)

var ErrNoRuns = errors.New("storage: no saved runs")

var traceHeader = []string{
	"iteration", "time",
	"x", "y", "theta", "velocity",
	"vel_err", "head_err", "vel_out", "head_out",
	"left_speed", "right_speed",
}

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
	Mode       string             `json:"mode"`
	Timestamp  time.Time          `json:"timestamp"`
	Phase      string             `json:"phase"`
	Iterations int                `json:"iterations"`
	Final      sim.Pose           `json:"final"`
	Metrics    map[string]float64 `json:"metrics"`
	Config     *config.Config     `json:"config"`
}

// Save writes metadata.json and trace.csv under a new run directory.
func (s *Store) Save(cfg *config.Config, result *sim.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	now := time.Now()
	runID, runDir, err := s.newRunDir(cfg.Mode, now)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Mode:       cfg.Mode,
		Timestamp:  now,
		Phase:      result.Phase.String(),
		Iterations: result.Iterations,
		Final:      result.Final,
		Metrics:    result.Metrics,
		Config:     cfg,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if err := writeTrace(filepath.Join(runDir, "trace.csv"), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

func (s *Store) newRunDir(mode string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%d", mode, now.UnixNano())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
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

func writeTrace(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := WriteTrace(w, samples); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// WriteTrace writes the header and one row per sample. The caller flushes.
func WriteTrace(w *csv.Writer, samples []sim.Sample) error {
	if err := w.Write(traceHeader); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{strconv.Itoa(s.Iteration)}
		for _, val := range []float64{
			s.Time,
			s.State.X, s.State.Y, s.State.Theta, s.State.Velocity,
			s.VelocityError, s.HeadingError, s.VelocityOutput, s.HeadingOutput,
			s.State.LeftSpeed, s.State.RightSpeed,
		} {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// List returns every readable run, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", ErrNoRuns
	}
	return runs[len(runs)-1].ID, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrace reads trace.csv back into samples. Only the columns the trace
// stores are populated in each sample's state.
func (s *Store) LoadTrace(runID string) ([]sim.Sample, error) {
	csvPath := filepath.Join(s.baseDir, runID, "trace.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != len(traceHeader) {
			continue
		}

		iter, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		vals := make([]float64, len(record)-1)
		ok := true
		for j, field := range record[1:] {
			vals[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		samples = append(samples, sim.Sample{
			Iteration:      iter,
			Time:           vals[0],
			VelocityError:  vals[5],
			HeadingError:   vals[6],
			VelocityOutput: vals[7],
			HeadingOutput:  vals[8],
			State: models.State{
				X:          vals[1],
				Y:          vals[2],
				Theta:      vals[3],
				Velocity:   vals[4],
				LeftSpeed:  vals[9],
				RightSpeed: vals[10],
			},
		})
	}

	return samples, nil
}
