package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/spider-crawler/scrapekit/internal/headers"
	"github.com/spider-crawler/scrapekit/internal/response"
	"github.com/spider-crawler/scrapekit/internal/storage"
	tu "github.com/spider-crawler/scrapekit/internal/testutil"
)

func seededGenerator(t *testing.T) *Generator {
	t.Helper()
	nop := zerolog.Nop()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "archive.db"), nil, &nop)
	tu.MustNotFail(t, err)
	t.Cleanup(func() { db.Close() })

	page, err := response.NewHTML("http://example.com/",
		response.WithHeaders(headers.New("Content-Type", "text/html; charset=utf-8")),
		response.WithBody([]byte("<p>hello</p>")),
		response.WithFlags("redirected"))
	tu.MustNotFail(t, err)
	guessed, err := response.NewText("http://example.com/notes.txt",
		response.WithStatus(404),
		response.WithBody([]byte("missing")))
	tu.MustNotFail(t, err)
	image, err := response.New("http://example.com/logo.png",
		response.WithHeaders(headers.New("Content-Type", "image/png")),
		response.WithBody([]byte{0x89, 'P', 'N', 'G'}),
		response.WithFlags("truncated"))
	tu.MustNotFail(t, err)

	for _, m := range []response.Message{page, guessed, image} {
		_, err := db.Save(m)
		tu.MustNotFail(t, err)
	}
	return NewGenerator(db)
}

func TestGenerate(t *testing.T) {
	g := seededGenerator(t)

	tests := []struct {
		typ  ReportType
		urls []string
	}{
		{ReportArchive, []string{"http://example.com/", "http://example.com/notes.txt", "http://example.com/logo.png"}},
		{ReportInferred, []string{"http://example.com/notes.txt"}},
		{ReportErrors, []string{"http://example.com/notes.txt"}},
		{ReportRedirected, []string{"http://example.com/"}},
		{ReportTruncated, []string{"http://example.com/logo.png"}},
		{ReportBinary, []string{"http://example.com/logo.png"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			r, err := g.Generate(tt.typ)
			tu.MustNotFail(t, err)
			tu.Assert(t, r.TotalCount).Equals(len(tt.urls))

			var urls []string
			for _, row := range r.Rows {
				urls = append(urls, row.Values[ColURL].(string))
			}
			tu.Assert(t, urls).Equals(tt.urls)
		})
	}
}

func TestGenerateEncodings(t *testing.T) {
	g := seededGenerator(t)

	r, err := g.Generate(ReportEncodings)
	tu.MustNotFail(t, err)
	tu.Assert(t, r.TotalCount).Equals(3)

	byEncoding := map[string]interface{}{}
	for _, row := range r.Rows {
		byEncoding[row.Values[ColEncoding].(string)] = row.Values[ColEncodingSource]
	}
	tu.Assert(t, byEncoding).Equals(map[string]interface{}{
		"utf-8":        "header",
		"windows-1252": "inferred",
		"binary":       "",
	})
}

func TestGenerateUnknown(t *testing.T) {
	g := seededGenerator(t)
	_, err := g.Generate("nope")
	tu.AssertError(t, err).ContainsMessage("unknown report type")
}

func TestSortAndFilter(t *testing.T) {
	g := seededGenerator(t)
	r, err := g.Generate(ReportArchive)
	tu.MustNotFail(t, err)

	r.SortReport(ColBodySize, true)
	tu.Assert(t, r.Rows[0].Values[ColBodySize]).Equals(int64(4))
	tu.Assert(t, r.Rows[2].Values[ColBodySize]).Equals(int64(12))

	f := r.FilterReport(ColKind, storage.KindRaw)
	tu.Assert(t, f.TotalCount).Equals(1)
	tu.Assert(t, f.Rows[0].Values[ColURL]).Equals("http://example.com/logo.png")
}

func TestWriteCSV(t *testing.T) {
	g := seededGenerator(t)
	r, err := g.Generate(ReportArchive)
	tu.MustNotFail(t, err)

	var buf bytes.Buffer
	tu.MustNotFail(t, NewExporter(&ExportOptions{Format: FormatCSV, MaxRows: 2, IncludeEmpty: true}).WriteCSV(&buf, r))

	out := buf.Bytes()
	tu.Assert(t, out[:3]).Equals([]byte{0xEF, 0xBB, 0xBF})

	records, err := csv.NewReader(bytes.NewReader(out[3:])).ReadAll()
	tu.MustNotFail(t, err)
	tu.Assert(t, records).HasLength(3)
	tu.Assert(t, records[0]).Equals(recordColumns)
	tu.Assert(t, records[1][1]).Equals("http://example.com/")
	tu.Assert(t, records[1][2]).Equals("200")
	tu.Assert(t, records[1][5]).Equals("utf-8")
	tu.Assert(t, records[1][8]).Equals("redirected")
	tu.Assert(t, records[2][2]).Equals("404")
}

func TestWriteCSVDelimiter(t *testing.T) {
	r := &Report{
		Definition: &ReportDefinition{Type: "x", Name: "X", Columns: []string{"A", "B"}},
		Rows: []*ReportRow{
			{Values: map[string]interface{}{"A": "1", "B": true}},
			{Values: map[string]interface{}{}},
		},
	}

	var buf bytes.Buffer
	tu.MustNotFail(t, NewExporter(&ExportOptions{Delimiter: ';'}).WriteCSV(&buf, r))
	tu.Assert(t, strings.TrimPrefix(buf.String(), "\ufeff")).Equals("A;B\n1;Yes\n")
}

func TestWriteJSON(t *testing.T) {
	g := seededGenerator(t)
	r, err := g.Generate(ReportErrors)
	tu.MustNotFail(t, err)

	var buf bytes.Buffer
	tu.MustNotFail(t, NewExporter(nil).WriteJSON(&buf, r))

	var decoded JSONReport
	tu.MustNotFail(t, json.Unmarshal(buf.Bytes(), &decoded))
	tu.Assert(t, decoded.Metadata.ReportType).Equals("http_errors")
	tu.Assert(t, decoded.Metadata.TotalCount).Equals(1)
	tu.Assert(t, decoded.Rows).HasLength(1)
	tu.Assert(t, decoded.Rows[0][ColURL]).Equals("http://example.com/notes.txt")
	tu.Assert(t, decoded.Rows[0][ColStatus]).Equals(float64(404))
}

func TestExportXLSX(t *testing.T) {
	g := seededGenerator(t)
	r, err := g.Generate(ReportArchive)
	tu.MustNotFail(t, err)

	path := filepath.Join(t.TempDir(), "archive.xlsx")
	tu.MustNotFail(t, NewExporter(&ExportOptions{Format: FormatXLSX, FilePath: path, IncludeEmpty: true}).Export(r))

	f, err := excelize.OpenFile(path)
	tu.MustNotFail(t, err)
	defer f.Close()

	tu.Assert(t, f.GetSheetList()).Equals([]string{"Archive", "Metadata"})

	rows, err := f.GetRows("Archive")
	tu.MustNotFail(t, err)
	tu.Assert(t, rows).HasLength(4)
	tu.Assert(t, rows[0]).Equals(recordColumns)
	tu.Assert(t, rows[3][1]).Equals("http://example.com/logo.png")
	tu.Assert(t, rows[3][3]).Equals("raw")
}

func TestBulkExport(t *testing.T) {
	g := seededGenerator(t)
	dir := t.TempDir()

	paths, err := NewBulkExporter(g, dir).ExportAll(FormatJSON)
	tu.MustNotFail(t, err)
	tu.Assert(t, paths).HasLength(len(AllReports()))

	path := filepath.Join(dir, "all.xlsx")
	tu.MustNotFail(t, NewBulkExporter(g, dir).ExportAllToXLSX(path))

	f, err := excelize.OpenFile(path)
	tu.MustNotFail(t, err)
	defer f.Close()

	summary, err := f.GetRows("Summary")
	tu.MustNotFail(t, err)
	tu.Assert(t, summary).HasLength(len(AllReports()) + 1)
	tu.Assert(t, summary[1][0]).Equals("Archive")
	tu.Assert(t, summary[1][3]).Equals("3")
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	tu.MustNotFail(t, err)
	tu.Assert(t, f).Equals(FormatXLSX)

	_, err = ParseFormat("pdf")
	tu.MustFail(t, err)
}
