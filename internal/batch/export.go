package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/sentrix/idxr-engine/internal/coreerr"
	"github.com/sentrix/idxr-engine/pkg/models"
)

// ExportFormat is one of the §4.12 export targets. "workbook" is
// accepted as an alias for csv: no spreadsheet-writing library appears
// anywhere in the retrieval pack (DESIGN.md), and a CSV is readable by
// every workbook tool, so it is the honest thin serializer rather than
// a fabricated xlsx dependency.
type ExportFormat string

const (
	ExportCSV      ExportFormat = "csv"
	ExportJSON     ExportFormat = "json"
	ExportWorkbook ExportFormat = "workbook"
)

// Export renders a job's full (unpaged) outcome stream in the
// requested format — a thin table-transform over the stored rows, per
// §4.12.
func (m *Manager) Export(ctx context.Context, jobID string, format ExportFormat) ([]byte, error) {
	if _, err := m.find(jobID); err != nil {
		return nil, err
	}
	rows, err := m.sink.Read(ctx, jobID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.DependencyUnavailable, "reading job output sink", err)
	}

	switch format {
	case ExportJSON:
		return json.Marshal(rows)
	case ExportCSV, ExportWorkbook:
		return exportCSV(rows)
	default:
		return nil, coreerr.New(coreerr.InvalidInput, fmt.Sprintf("unrecognized export format %q", format))
	}
}

func exportCSV(rows []models.RecordOutcome) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"record_id", "identity_id", "confidence", "match_type", "status", "error"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		conf := ""
		if r.Confidence != nil {
			conf = strconv.FormatFloat(*r.Confidence, 'f', 4, 64)
		}
		if err := w.Write([]string{r.RecordID, r.IdentityID, conf, r.MatchType, r.Status, r.Error}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
