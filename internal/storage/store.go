package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
)

var (
	ErrRunNotFound = errors.New("storage: run not found")
	ErrCorruptRun  = errors.New("storage: corrupt run")
)

var frameHeader = []string{"frame", "time", "px", "py", "item", "icon", "x", "y", "z", "rx", "ry", "rz"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Run describes how a stored result was produced.
type Run struct {
	Preset  string
	Gesture string
	Seed    int64
	FPS     float64
	Cluster cluster.Config
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Preset      string             `json:"preset"`
	Gesture     string             `json:"gesture"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	FPS         float64            `json:"fps"`
	Frames      int                `json:"frames"`
	Items       int                `json:"items"`
	Integration string             `json:"integration"`
	Rotation    string             `json:"rotation"`
	Params      map[string]float64 `json:"params"`
	Metrics     map[string]float64 `json:"metrics"`
}

func (s *Store) Save(run Run, result *sim.Result) (string, error) {
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	items := 0
	if len(result.Frames) > 0 {
		items = len(result.Frames[0])
	}
	meta := RunMetadata{
		ID:          runID,
		Preset:      run.Preset,
		Gesture:     run.Gesture,
		Timestamp:   time.Now(),
		Seed:        run.Seed,
		FPS:         run.FPS,
		Frames:      result.StepsTaken,
		Items:       items,
		Integration: string(run.Cluster.Integration),
		Rotation:    string(run.Cluster.RotationMode),
		Params:      run.Cluster.Params(),
		Metrics:     result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, "frames.csv"), result); err != nil {
		return "", err
	}

	return runID, nil
}

func writeFrames(path string, result *sim.Result) error {
	csvFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(frameHeader); err != nil {
		return err
	}

	row := make([]string, len(frameHeader))
	for i, frame := range result.Frames {
		var ptr mgl64.Vec2
		if i < len(result.Pointers) {
			ptr = result.Pointers[i]
		}
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}

		for j, tr := range frame {
			row[0] = strconv.Itoa(i)
			row[1] = formatFloat(t)
			row[2] = formatFloat(ptr[0])
			row[3] = formatFloat(ptr[1])
			row[4] = strconv.Itoa(j)
			row[5] = strconv.Itoa(tr.Icon)
			for k := 0; k < 3; k++ {
				row[6+k] = formatFloat(tr.Position[k])
				row[9+k] = formatFloat(tr.Rotation[k])
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns every readable run, newest first.
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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadResult rebuilds the recorded frames, pointer path and times of a run.
func (s *Store) LoadResult(runID string) (*sim.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "frames.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(frameHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	result := &sim.Result{
		Metrics:    meta.Metrics,
		StepsTaken: meta.Frames,
	}
	if len(records) < 2 {
		return result, nil
	}

	for n, record := range records[1:] {
		vals := make([]float64, len(record))
		for k, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("frames.csv line %d: %w", n+2, err)
			}
			vals[k] = v
		}

		frame, ok := index(vals[0], meta.Frames)
		if !ok {
			return nil, fmt.Errorf("%w: frames.csv line %d: frame %v outside 0..%d", ErrCorruptRun, n+2, vals[0], meta.Frames)
		}
		item, ok := index(vals[4], meta.Items-1)
		if !ok {
			return nil, fmt.Errorf("%w: frames.csv line %d: item %v outside 0..%d", ErrCorruptRun, n+2, vals[4], meta.Items-1)
		}
		for len(result.Frames) <= frame {
			result.Frames = append(result.Frames, nil)
			result.Times = append(result.Times, vals[1])
			result.Pointers = append(result.Pointers, mgl64.Vec2{vals[2], vals[3]})
		}
		for len(result.Frames[frame]) <= item {
			result.Frames[frame] = append(result.Frames[frame], cluster.Transform{})
		}

		rot := mgl64.Vec3{vals[9], vals[10], vals[11]}
		result.Frames[frame][item] = cluster.Transform{
			Position:    mgl64.Vec3{vals[6], vals[7], vals[8]},
			Rotation:    rot,
			Orientation: mgl64.AnglesToQuat(rot[0], rot[1], rot[2], mgl64.XYZ),
			Icon:        int(vals[5]),
		}
	}

	return result, nil
}

// index converts a stored row index, rejecting fractions and values
// outside [0, limit].
func index(v float64, limit int) (int, bool) {
	if v != math.Trunc(v) || v < 0 || v > float64(limit) {
		return 0, false
	}
	return int(v), true
}

func (s *Store) Delete(runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}

func checkID(runID string) error {
	if _, err := uuid.Parse(runID); err != nil {
		return fmt.Errorf("%w: %q is not a run id", ErrRunNotFound, runID)
	}
	return nil
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
