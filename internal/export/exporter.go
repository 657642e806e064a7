package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/loglens/loglens/internal/models"
)

// Format is a supported export format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "xlsx"
)

// Options defines export parameters. Fields selects and orders the exported
// columns; empty means every reserved attribute plus every extracted field
// seen in the view.
type Options struct {
	Format         Format   `json:"format"`
	Fields         []string `json:"fields,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	IncludeHeaders bool     `json:"include_headers"`
}

// Result describes a completed export.
type Result struct {
	Format   Format        `json:"format"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"duration"`
	FileName string        `json:"file_name"`
}

// Exporter writes the current view out in various formats.
type Exporter struct{}

// NewExporter creates a new exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the view to writer in the requested format.
func (e *Exporter) Export(writer io.Writer, view []*models.LogEntry, options Options) (*Result, error) {
	result := &Result{Format: options.Format}
	start := time.Now()

	if options.Limit > 0 && options.Limit < len(view) {
		view = view[:options.Limit]
	}
	result.RowCount = len(view)

	columns := options.Fields
	if len(columns) == 0 {
		columns = defaultColumns(view)
	}

	stamp := time.Now().Format("20060102_150405")
	var err error
	switch options.Format {
	case FormatCSV:
		err = e.exportCSV(writer, view, columns, options.IncludeHeaders)
		result.FileName = fmt.Sprintf("logs_%s.csv", stamp)
	case FormatJSON:
		err = e.exportJSON(writer, view)
		result.FileName = fmt.Sprintf("logs_%s.json", stamp)
	case FormatExcel:
		err = e.exportExcel(writer, view, columns)
		result.FileName = fmt.Sprintf("logs_%s.xlsx", stamp)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", options.Format)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// defaultColumns is the reserved attributes followed by every extracted
// field name present in the view, sorted.
func defaultColumns(view []*models.LogEntry) []string {
	columns := []string{models.FieldID, models.FieldTimestamp, models.FieldLevel, models.FieldMessage, models.FieldRaw}
	seen := map[string]struct{}{}
	for _, entry := range view {
		for name := range entry.Fields {
			seen[name] = struct{}{}
		}
	}
	extracted := make([]string, 0, len(seen))
	for name := range seen {
		extracted = append(extracted, name)
	}
	sort.Strings(extracted)
	return append(columns, extracted...)
}

// cellValue flattens one column of one entry to a string. Multi-valued
// extracted fields join with commas.
func cellValue(entry *models.LogEntry, column string) string {
	if v, ok := entry.Attribute(column); ok {
		return v
	}
	if values, ok := entry.Fields[column]; ok {
		return strings.Join(values, ",")
	}
	return ""
}

func (e *Exporter) exportCSV(writer io.Writer, view []*models.LogEntry, columns []string, headers bool) error {
	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	if headers {
		if err := csvWriter.Write(columns); err != nil {
			return err
		}
	}
	row := make([]string, len(columns))
	for _, entry := range view {
		for i, column := range columns {
			row[i] = cellValue(entry, column)
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}
	return csvWriter.Error()
}

func (e *Exporter) exportJSON(writer io.Writer, view []*models.LogEntry) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"logs":     view,
		"count":    len(view),
		"exported": time.Now(),
	})
}

func (e *Exporter) exportExcel(writer io.Writer, view []*models.LogEntry, columns []string) error {
	file := excelize.NewFile()
	sheet := "Logs"

	index, err := file.NewSheet(sheet)
	if err != nil {
		return err
	}
	file.SetActiveSheet(index)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return err
	}

	for col, column := range columns {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		cell := name + "1"
		file.SetCellValue(sheet, cell, column)
		file.SetCellStyle(sheet, cell, cell, headerStyle)
		file.SetColWidth(sheet, name, name, 20)
	}

	for row, entry := range view {
		for col, column := range columns {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return err
			}
			file.SetCellValue(sheet, fmt.Sprintf("%s%d", name, row+2), cellValue(entry, column))
		}
	}

	if len(view) > 0 {
		lastCol, err := excelize.ColumnNumberToName(len(columns))
		if err != nil {
			return err
		}
		file.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(view)+1), nil)
	}

	return file.Write(writer)
}
