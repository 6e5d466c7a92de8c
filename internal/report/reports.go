// Package report builds tabular reports over the response archive and exports
// them.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spider-crawler/scrapekit/internal/storage"
)

// ReportType defines the type of report.
type ReportType string

const (
	ReportArchive    ReportType = "archive"
	ReportEncodings  ReportType = "encodings"
	ReportInferred   ReportType = "inferred_encodings"
	ReportErrors     ReportType = "http_errors"
	ReportRedirected ReportType = "redirected"
	ReportTruncated  ReportType = "truncated"
	ReportBinary     ReportType = "binary"
)

// Column names shared by the record based reports.
const (
	ColID             = "ID"
	ColURL            = "URL"
	ColStatus         = "Status Code"
	ColKind           = "Kind"
	ColContentType    = "Content Type"
	ColEncoding       = "Encoding"
	ColEncodingSource = "Encoding Source"
	ColBodySize       = "Body Size"
	ColFlags          = "Flags"
	ColFetchedAt      = "Fetched At"
	ColResponses      = "Responses"
	ColTotalBytes     = "Total Bytes"
)

var recordColumns = []string{
	ColID, ColURL, ColStatus, ColKind, ColContentType,
	ColEncoding, ColEncodingSource, ColBodySize, ColFlags, ColFetchedAt,
}

// ReportDefinition defines a report type.
type ReportDefinition struct {
	Type        ReportType
	Name        string
	Description string
	Category    string
	Columns     []string
}

// AllReports returns all available report definitions.
func AllReports() []*ReportDefinition {
	return []*ReportDefinition{
		{ReportArchive, "Archive", "Every archived response", "Archive", recordColumns},
		{ReportEncodings, "Encodings", "Responses grouped by resolved encoding and the step that resolved it", "Encoding", []string{ColEncoding, ColEncodingSource, ColResponses, ColTotalBytes}},
		{ReportInferred, "Inferred Encodings", "Text responses whose encoding was guessed from the body", "Encoding", recordColumns},
		{ReportErrors, "HTTP Errors", "Responses with a 4xx or 5xx status", "Response Codes", recordColumns},
		{ReportRedirected, "Redirected", "Responses reached through at least one redirect", "Response Codes", recordColumns},
		{ReportTruncated, "Truncated", "Responses cut at the size limit", "Archive", recordColumns},
		{ReportBinary, "Binary", "Responses kept as raw bytes", "Archive", recordColumns},
	}
}

// ReportRow is one row of a report keyed by column name.
type ReportRow struct {
	Values map[string]interface{}
}

// Report represents a generated report.
type Report struct {
	Definition *ReportDefinition
	Rows       []*ReportRow
	TotalCount int
	Generated  string // Timestamp
}

// Generator generates reports from the archive.
type Generator struct {
	db *storage.Database
}

// NewGenerator creates a new report generator.
func NewGenerator(db *storage.Database) *Generator {
	return &Generator{db: db}
}

// Generate generates a report of the specified type.
func (g *Generator) Generate(reportType ReportType) (*Report, error) {
	def := Definition(reportType)
	if def == nil {
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}

	report := &Report{
		Definition: def,
		Rows:       make([]*ReportRow, 0),
		Generated:  time.Now().Format(time.RFC3339),
	}

	var err error
	switch reportType {
	case ReportEncodings:
		err = g.generateEncodings(report)
	case ReportArchive:
		err = g.generateRecords(report, func(*storage.Record) bool { return true })
	case ReportInferred:
		err = g.generateRecords(report, func(r *storage.Record) bool { return r.EncodingSrc == "inferred" })
	case ReportErrors:
		err = g.generateRecords(report, func(r *storage.Record) bool { return r.StatusCode >= 400 })
	case ReportRedirected:
		err = g.generateRecords(report, hasFlag("redirected"))
	case ReportTruncated:
		err = g.generateRecords(report, hasFlag("truncated"))
	case ReportBinary:
		err = g.generateRecords(report, func(r *storage.Record) bool { return r.Kind == storage.KindRaw })
	default:
		err = fmt.Errorf("report generator not implemented: %s", reportType)
	}

	if err != nil {
		return nil, err
	}

	report.TotalCount = len(report.Rows)
	return report, nil
}

// Definition returns the definition registered for reportType, or nil.
func Definition(reportType ReportType) *ReportDefinition {
	for _, def := range AllReports() {
		if def.Type == reportType {
			return def
		}
	}
	return nil
}

func hasFlag(flag string) func(*storage.Record) bool {
	return func(r *storage.Record) bool {
		for _, f := range r.Flags {
			if f == flag {
				return true
			}
		}
		return false
	}
}

func (g *Generator) generateRecords(report *Report, keep func(*storage.Record) bool) error {
	records, err := g.db.List(storage.ListOptions{})
	if err != nil {
		return err
	}
	for _, rec := range records {
		if keep(rec) {
			report.Rows = append(report.Rows, RecordRow(rec))
		}
	}
	return nil
}

func (g *Generator) generateEncodings(report *Report) error {
	stats, err := g.db.EncodingStats()
	if err != nil {
		return err
	}
	for _, s := range stats {
		report.Rows = append(report.Rows, &ReportRow{Values: map[string]interface{}{
			ColEncoding:       s.Encoding,
			ColEncodingSource: s.Source,
			ColResponses:      s.Responses,
			ColTotalBytes:     s.TotalBytes,
		}})
	}
	return nil
}

// RecordRow converts an archive record into a report row.
func RecordRow(rec *storage.Record) *ReportRow {
	return &ReportRow{Values: map[string]interface{}{
		ColID:             rec.ID,
		ColURL:            rec.URL,
		ColStatus:         rec.StatusCode,
		ColKind:           rec.Kind,
		ColContentType:    rec.ContentType,
		ColEncoding:       rec.Encoding,
		ColEncodingSource: rec.EncodingSrc,
		ColBodySize:       rec.BodySize,
		ColFlags:          strings.Join(rec.Flags, ","),
		ColFetchedAt:      rec.FetchedAt,
	}}
}

// SortReport sorts report rows by a column.
func (r *Report) SortReport(column string, ascending bool) {
	sort.SliceStable(r.Rows, func(i, j int) bool {
		vi := r.Rows[i].Values[column]
		vj := r.Rows[j].Values[column]

		// Compare based on type
		switch v := vi.(type) {
		case int:
			vji, _ := vj.(int)
			if ascending {
				return v < vji
			}
			return v > vji
		case int64:
			vji, _ := vj.(int64)
			if ascending {
				return v < vji
			}
			return v > vji
		case string:
			vjs, _ := vj.(string)
			if ascending {
				return v < vjs
			}
			return v > vjs
		}

		return false
	})
}

// FilterReport filters report rows.
func (r *Report) FilterReport(column string, value interface{}) *Report {
	filtered := &Report{
		Definition: r.Definition,
		Rows:       make([]*ReportRow, 0),
		Generated:  r.Generated,
	}

	for _, row := range r.Rows {
		if row.Values[column] == value {
			filtered.Rows = append(filtered.Rows, row)
		}
	}

	filtered.TotalCount = len(filtered.Rows)
	return filtered
}
