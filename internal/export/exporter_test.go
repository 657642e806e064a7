package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/loglens/loglens/internal/models"
)

func sampleView() []*models.LogEntry {
	return []*models.LogEntry{
		{
			ID:        1,
			Timestamp: "2023-06-15T10:00:00.000Z",
			Level:     "ERROR",
			Message:   "connection refused",
			Raw:       "2023-06-15 10:00:00 ERROR connection refused",
			Fields:    map[string][]string{"host": {"db1", "db2"}},
		},
		{
			ID:      2,
			Level:   "INFO",
			Message: "ok",
			Raw:     "INFO ok",
		},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	result, err := NewExporter().Export(&buf, sampleView(), Options{
		Format:         FormatCSV,
		IncludeHeaders: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.RowCount != 2 || !strings.HasSuffix(result.FileName, ".csv") {
		t.Errorf("result: %+v", result)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][5] != "host" {
		t.Errorf("header: %v", rows[0])
	}
	// Multi-valued fields flatten with commas, absent fields are blank.
	if rows[1][5] != "db1,db2" || rows[2][5] != "" {
		t.Errorf("host column: %q, %q", rows[1][5], rows[2][5])
	}
}

func TestExportCSVSelectedFields(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewExporter().Export(&buf, sampleView(), Options{
		Format:         FormatCSV,
		Fields:         []string{"level", "message"},
		IncludeHeaders: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows[0]) != 2 || rows[1][0] != "ERROR" || rows[1][1] != "connection refused" {
		t.Errorf("rows: %v", rows)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewExporter().Export(&buf, sampleView(), Options{Format: FormatJSON}); err != nil {
		t.Fatal(err)
	}
	var payload struct {
		Logs  []models.LogEntry `json:"logs"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Count != 2 || payload.Logs[0].Message != "connection refused" {
		t.Errorf("payload: %+v", payload)
	}
}

func TestExportLimit(t *testing.T) {
	var buf bytes.Buffer
	result, err := NewExporter().Export(&buf, sampleView(), Options{Format: FormatJSON, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.RowCount != 1 {
		t.Errorf("row count = %d", result.RowCount)
	}
}

func TestExportExcel(t *testing.T) {
	var buf bytes.Buffer
	result, err := NewExporter().Export(&buf, sampleView(), Options{Format: FormatExcel})
	if err != nil {
		t.Fatal(err)
	}
	if result.RowCount != 2 || buf.Len() == 0 {
		t.Errorf("result: %+v, bytes: %d", result, buf.Len())
	}
}

func TestExportUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewExporter().Export(&buf, sampleView(), Options{Format: "pdf"}); err == nil {
		t.Error("expected error for unsupported format")
	}
}
