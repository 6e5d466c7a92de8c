package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat defines the export file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
	FormatJSON ExportFormat = "json"
)

// ParseFormat maps a format name or file extension to an ExportFormat.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatCSV, FormatXLSX, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ExportOptions defines export configuration.
type ExportOptions struct {
	Format       ExportFormat
	FilePath     string
	IncludeEmpty bool // Include rows with empty values
	MaxRows      int  // 0 = unlimited
	Delimiter    rune // For CSV, default is comma
}

// DefaultExportOptions returns default export options.
func DefaultExportOptions() *ExportOptions {
	return &ExportOptions{
		Format:       FormatCSV,
		IncludeEmpty: true,
		MaxRows:      0,
		Delimiter:    ',',
	}
}

// Exporter handles exporting reports to various formats.
type Exporter struct {
	options *ExportOptions
}

// NewExporter creates a new exporter.
func NewExporter(options *ExportOptions) *Exporter {
	if options == nil {
		options = DefaultExportOptions()
	}
	return &Exporter{options: options}
}

// Export exports a report to the configured file.
func (e *Exporter) Export(report *Report) error {
	switch e.options.Format {
	case FormatCSV:
		return e.writeFile(func(w io.Writer) error { return e.WriteCSV(w, report) })
	case FormatXLSX:
		return e.exportXLSX(report)
	case FormatJSON:
		return e.writeFile(func(w io.Writer) error { return e.WriteJSON(w, report) })
	default:
		return fmt.Errorf("unsupported export format: %s", e.options.Format)
	}
}

func (e *Exporter) writeFile(write func(io.Writer) error) error {
	file, err := os.Create(e.options.FilePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// rows applies IncludeEmpty and MaxRows.
func (e *Exporter) rows(report *Report) []*ReportRow {
	out := make([]*ReportRow, 0, len(report.Rows))
	for _, row := range report.Rows {
		if e.options.MaxRows > 0 && len(out) >= e.options.MaxRows {
			break
		}
		if !e.options.IncludeEmpty && isEmptyRow(row, report.Definition.Columns) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func isEmptyRow(row *ReportRow, columns []string) bool {
	for _, col := range columns {
		if formatValue(row.Values[col]) != "" {
			return false
		}
	}
	return true
}

// WriteCSV writes the report as CSV, prefixed with a UTF-8 BOM for Excel.
func (e *Exporter) WriteCSV(w io.Writer, report *Report) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	if e.options.Delimiter != 0 {
		writer.Comma = e.options.Delimiter
	}

	if err := writer.Write(report.Definition.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range e.rows(report) {
		values := make([]string, len(report.Definition.Columns))
		for i, col := range report.Definition.Columns {
			values[i] = formatValue(row.Values[col])
		}
		if err := writer.Write(values); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// exportXLSX exports report to Excel format.
func (e *Exporter) exportXLSX(report *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := e.addReportSheet(f, report); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")
	e.addMetadataSheet(f, report)

	if err := f.SaveAs(e.options.FilePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (e *Exporter) addReportSheet(f *excelize.File, report *Report) error {
	sheetName := sanitizeSheetName(report.Definition.Name)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1565C0"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	evenRowStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F5F5F5"}},
	})

	columns := report.Definition.Columns
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(col) + 5)
		if width < 15 {
			width = 15
		}
		if col == ColURL {
			width = 50
		}
		f.SetColWidth(sheetName, colName, colName, width)
	}

	rows := e.rows(report)
	for rowIdx, row := range rows {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, rowIdx+2)
			if val, ok := row.Values[col]; ok {
				f.SetCellValue(sheetName, cell, cellValue(val))
			}
			if rowIdx%2 == 1 {
				f.SetCellStyle(sheetName, cell, cell, evenRowStyle)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	f.AutoFilter(sheetName, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	return nil
}

// addMetadataSheet adds a metadata sheet to the Excel file.
func (e *Exporter) addMetadataSheet(f *excelize.File, report *Report) {
	sheetName := "Metadata"
	f.NewSheet(sheetName)

	metadata := [][]string{
		{"Report Name", report.Definition.Name},
		{"Description", report.Definition.Description},
		{"Category", report.Definition.Category},
		{"Total Rows", fmt.Sprintf("%d", report.TotalCount)},
		{"Generated", report.Generated},
		{"Tool", "scrapekit"},
	}

	for i, row := range metadata {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+1), row[1])
	}

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 50)
}

// WriteJSON writes the report as an indented JSON document.
func (e *Exporter) WriteJSON(w io.Writer, report *Report) error {
	rows := e.rows(report)
	data := &JSONReport{
		Metadata: JSONMetadata{
			ReportType:  string(report.Definition.Type),
			Name:        report.Definition.Name,
			Description: report.Definition.Description,
			Category:    report.Definition.Category,
			TotalCount:  report.TotalCount,
			Generated:   report.Generated,
			Columns:     report.Definition.Columns,
		},
		Rows: make([]map[string]interface{}, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, row.Values)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// JSONReport represents the JSON export structure.
type JSONReport struct {
	Metadata JSONMetadata             `json:"metadata"`
	Rows     []map[string]interface{} `json:"rows"`
}

// JSONMetadata represents report metadata.
type JSONMetadata struct {
	ReportType  string   `json:"report_type"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	TotalCount  int      `json:"total_count"`
	Generated   string   `json:"generated"`
	Columns     []string `json:"columns"`
}

// formatValue converts a value to string for export.
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// cellValue keeps numbers numeric and formats times like the other writers.
func cellValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return v
}

// sanitizeSheetName ensures sheet name is valid for Excel.
func sanitizeSheetName(name string) string {
	invalid := []string{"\\", "/", "?", "*", "[", "]", ":"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	// Max 31 characters
	if len(result) > 31 {
		result = result[:31]
	}

	return result
}

// BulkExporter exports every non-empty report.
type BulkExporter struct {
	generator *Generator
	outputDir string
}

// NewBulkExporter creates a new bulk exporter.
func NewBulkExporter(generator *Generator, outputDir string) *BulkExporter {
	return &BulkExporter{
		generator: generator,
		outputDir: outputDir,
	}
}

// ExportAll writes one file per non-empty report and returns the paths
// written.
func (b *BulkExporter) ExportAll(format ExportFormat) ([]string, error) {
	if format == FormatXLSX {
		path := filepath.Join(b.outputDir, "scrapekit_"+time.Now().Format("20060102_150405")+".xlsx")
		if err := b.ExportAllToXLSX(path); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	if err := os.MkdirAll(b.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	var written []string
	for _, def := range AllReports() {
		report, err := b.generator.Generate(def.Type)
		if err != nil {
			return written, err
		}
		if report.TotalCount == 0 {
			continue
		}

		filename := fmt.Sprintf("%s_%s.%s", sanitizeFilename(def.Name), timestamp, format)
		filePath := filepath.Join(b.outputDir, filename)

		exporter := NewExporter(&ExportOptions{Format: format, FilePath: filePath, IncludeEmpty: true})
		if err := exporter.Export(report); err != nil {
			return written, fmt.Errorf("failed to export %s: %w", def.Type, err)
		}
		written = append(written, filePath)
	}

	return written, nil
}

// ExportAllToXLSX writes every non-empty report to one workbook, one sheet
// per report.
func (b *BulkExporter) ExportAllToXLSX(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	exporter := NewExporter(&ExportOptions{Format: FormatXLSX, IncludeEmpty: true})
	summary := b.addSummarySheet(f)
	f.DeleteSheet("Sheet1")

	row := 2
	for _, def := range AllReports() {
		report, err := b.generator.Generate(def.Type)
		if err != nil {
			return err
		}

		f.SetCellValue(summary, fmt.Sprintf("A%d", row), def.Name)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), def.Category)
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), def.Description)
		f.SetCellValue(summary, fmt.Sprintf("D%d", row), report.TotalCount)

		if report.TotalCount > 0 {
			if err := exporter.addReportSheet(f, report); err != nil {
				return err
			}
			link := fmt.Sprintf("'%s'!A1", sanitizeSheetName(def.Name))
			f.SetCellHyperLink(summary, fmt.Sprintf("A%d", row), link, "Location")
		}
		row++
	}

	if idx, err := f.GetSheetIndex(summary); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// addSummarySheet adds the summary sheet header and returns its name.
func (b *BulkExporter) addSummarySheet(f *excelize.File) string {
	sheetName := "Summary"
	f.NewSheet(sheetName)

	headers := []string{"Report", "Category", "Description", "Rows"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", "B", 15)
	f.SetColWidth(sheetName, "C", "C", 50)
	f.SetColWidth(sheetName, "D", "D", 10)
	return sheetName
}

// sanitizeFilename ensures filename is valid.
func sanitizeFilename(name string) string {
	invalid := []string{"\\", "/", ":", "*", "?", "\"", "<", ">", "|", " "}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.ToLower(result)
}
