package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
)

// ReadCSV reads a header row followed by data rows. Blank lines are skipped
// and short rows are padded with empty cells.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apierr.Validation("No data found in CSV file")
	}
	if err != nil {
		return nil, apierr.Validation(fmt.Sprintf("CSV parsing errors: %v", err))
	}
	for i := range header {
		header[i] = normalizeHeader(header[i])
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apierr.Validation(fmt.Sprintf("CSV parsing errors: %v", err))
		}
		if blankRecord(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteExportCSV writes results with every field double-quoted.
func WriteExportCSV(w io.Writer, results []catalog.SearchResult) error {
	if err := writeQuotedLine(w, Columns); err != nil {
		return err
	}
	for _, r := range results {
		line := []string{r.Name, r.GBID, r.GBIDTemplate, r.Properties, r.AlternateNames, r.SpecialNotes}
		if err := writeQuotedLine(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ExportFilename is the date-stamped attachment name for an export.
func ExportFilename(now time.Time) string {
	return "gbid-export-" + now.Format("2006-01-02") + ".csv"
}

func writeQuotedLine(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\n")
	return err
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func normalizeHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}
