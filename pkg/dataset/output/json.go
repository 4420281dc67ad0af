package output

import (
	"encoding/json"

	"github.com/ukaji3/dataset-go/pkg/dataset/models"
)

// EntrySummary describes one dataset entry without its cell data.
type EntrySummary struct {
	Key     string           `json:"key"`
	Kind    models.EntryKind `json:"kind"`
	Path    string           `json:"path"`
	Sheet   string           `json:"sheet,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Rows    int              `json:"rows,omitempty"`
}

// Summarize lists the entries of a dataset in order.
func Summarize(ds *models.Dataset) []EntrySummary {
	out := make([]EntrySummary, 0, ds.Len())
	for key, e := range ds.All() {
		s := EntrySummary{Key: key, Kind: e.Kind, Path: e.Path}
		if e.Kind == models.KindMetadata && e.Metadata != nil {
			s.Sheet = e.Metadata.Sheet
			s.Columns = e.Metadata.Columns
			s.Rows = e.Metadata.NumRows()
		}
		out = append(out, s)
	}
	return out
}

// ToJSON serializes the dataset summary.
func ToJSON(ds *models.Dataset, pretty bool) ([]byte, error) {
	summary := Summarize(ds)
	if pretty {
		return json.MarshalIndent(summary, "", "  ")
	}
	return json.Marshal(summary)
}
