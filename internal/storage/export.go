package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/magnetsim/internal/cluster"
	"github.com/san-kum/magnetsim/internal/sim"
)

// ExportFrame mirrors the wire shape the feed server streams, so exported
// runs can be replayed by the same client.
type ExportFrame struct {
	Time    float64           `json:"t"`
	Pointer [2]float64        `json:"pointer"`
	Items   []ExportTransform `json:"items"`
}

type ExportTransform struct {
	Position    [3]float64 `json:"p"`
	Orientation [4]float64 `json:"q"`
	Icon        int        `json:"icon"`
}

type ExportData struct {
	Meta    RunMetadata        `json:"meta"`
	Frames  []ExportFrame      `json:"frames"`
	Metrics map[string]float64 `json:"metrics"`
}

// NewExportTransform flattens a transform. Orientation is x, y, z, w.
func NewExportTransform(tr cluster.Transform) ExportTransform {
	q := tr.Orientation
	return ExportTransform{
		Position:    [3]float64(tr.Position),
		Orientation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		Icon:        tr.Icon,
	}
}

func newExportData(meta RunMetadata, result *sim.Result) ExportData {
	data := ExportData{
		Meta:    meta,
		Frames:  make([]ExportFrame, len(result.Frames)),
		Metrics: result.Metrics,
	}
	for i, frame := range result.Frames {
		ef := ExportFrame{Items: make([]ExportTransform, len(frame))}
		if i < len(result.Times) {
			ef.Time = result.Times[i]
		}
		if i < len(result.Pointers) {
			ef.Pointer = [2]float64(result.Pointers[i])
		}
		for j, tr := range frame {
			ef.Items[j] = NewExportTransform(tr)
		}
		data.Frames[i] = ef
	}
	return data
}

func WriteJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(meta, result))
}

func ExportJSON(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, meta, result)
}

// WriteTrackCSV writes one row per frame with every item's position, the
// wide layout spreadsheets and plotting tools expect.
func WriteTrackCSV(w io.Writer, result *sim.Result) error {
	cw := csv.NewWriter(w)
	if len(result.Frames) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time"}
	for i := range result.Frames[0] {
		n := strconv.Itoa(i)
		header = append(header, "x"+n, "y"+n, "z"+n)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, frame := range result.Frames {
		t := 0.0
		if i < len(result.Times) {
			t = result.Times[i]
		}
		row := []string{strconv.FormatFloat(t, 'f', 6, 64)}
		for _, tr := range frame {
			for _, v := range tr.Position {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
