package ingest

import (
	"fmt"

	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
	"github.com/yungbote/gbid-catalog/internal/platform/apierr"
)

// Spreadsheet column names, in export order.
const (
	ColName           = "Name"
	ColGBID           = "GBID"
	ColGBIDTemplate   = "GBID Template"
	ColProperties     = "Properties"
	ColAlternateNames = "Alternate Names"
	ColSpecialNotes   = "Special Notes"
)

var Columns = []string{ColName, ColGBID, ColGBIDTemplate, ColProperties, ColAlternateNames, ColSpecialNotes}

// Row maps a column name to its cell value.
type Row map[string]string

type TableItem struct {
	// Row is the 1-based data row number.
	Row   int
	Input catalog.Input
}

type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

func (s SkippedRow) Message() string {
	return fmt.Sprintf("Skipping row %d: %s", s.Row, s.Reason)
}

type TableParseResult struct {
	// Total is the number of data rows seen, valid or not.
	Total   int
	Items   []TableItem
	Skipped []SkippedRow
}

// ParseRows validates the table header and turns each usable row into a
// catalog.Input. Rows without a Name, or without both GBID and GBID Template,
// are skipped with a reason.
func ParseRows(rows []Row) (TableParseResult, error) {
	if len(rows) == 0 {
		return TableParseResult{}, apierr.Validation("No data found in CSV file")
	}
	if _, ok := rows[0][ColName]; !ok {
		return TableParseResult{}, apierr.Validation("Missing required columns: " + ColName)
	}

	res := TableParseResult{Total: len(rows)}
	for i, row := range rows {
		in := catalog.Input{
			Name:           row[ColName],
			GBID:           row[ColGBID],
			GBIDTemplate:   row[ColGBIDTemplate],
			Properties:     row[ColProperties],
			AlternateNames: row[ColAlternateNames],
			SpecialNotes:   row[ColSpecialNotes],
		}.Normalized()

		if in.Name == "" || (in.GBID == "" && in.GBIDTemplate == "") {
			res.Skipped = append(res.Skipped, SkippedRow{Row: i + 1, Reason: "missing Name or GBID/GBID Template"})
			continue
		}
		res.Items = append(res.Items, TableItem{Row: i + 1, Input: in})
	}
	return res, nil
}
