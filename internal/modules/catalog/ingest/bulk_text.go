package ingest

import (
	"regexp"
	"strings"

	"github.com/yungbote/gbid-catalog/internal/modules/catalog"
)

var bulkHeaderRe = regexp.MustCompile(`^[A-Z].*:$`)

// Reasons reported for dropped bulk lines.
const (
	SkipNoItemHeader = "no_item_header"
	SkipNoColon      = "missing_colon"
	SkipEmptyField   = "empty_size_or_id"
)

type Configuration struct {
	Size string `json:"size"`
	ID   string `json:"id"`
}

type BulkItem struct {
	Name           string          `json:"name"`
	Configurations []Configuration `json:"configurations"`
}

type SkippedLine struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

type BulkParseResult struct {
	Items   []BulkItem    `json:"items"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// BulkShared holds the fields applied to every upload of a bulk run.
type BulkShared struct {
	Properties     string `json:"properties"`
	AlternateNames string `json:"alternateNames"`
	SpecialNotes   string `json:"specialNotes"`
}

// ParseBulkText parses blocks of the form
//
//	RIGID COUPLINGS:
//	1/2": 88254013
//	3/4": 88254014
//
// A trimmed line starting with an uppercase letter and ending in ':' opens an
// item; following "size: id" lines (split on the first colon) attach to it.
// Blank lines are ignored. Any other line is dropped and listed in Skipped.
func ParseBulkText(text string) BulkParseResult {
	var res BulkParseResult
	current := -1

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if bulkHeaderRe.MatchString(line) {
			res.Items = append(res.Items, BulkItem{
				Name:           strings.TrimSpace(strings.TrimSuffix(line, ":")),
				Configurations: []Configuration{},
			})
			current = len(res.Items) - 1
			continue
		}

		skip := func(reason string) {
			res.Skipped = append(res.Skipped, SkippedLine{Line: i + 1, Text: line, Reason: reason})
		}
		size, id, ok := strings.Cut(line, ":")
		if !ok {
			skip(SkipNoColon)
			continue
		}
		if current < 0 {
			skip(SkipNoItemHeader)
			continue
		}
		size, id = strings.TrimSpace(size), strings.TrimSpace(id)
		if size == "" || id == "" {
			skip(SkipEmptyField)
			continue
		}
		res.Items[current].Configurations = append(res.Items[current].Configurations, Configuration{Size: size, ID: id})
	}
	return res
}

// Inputs expands every (item, configuration) pair into one upload in input
// order. The size leads the properties, followed by the shared properties.
func (r BulkParseResult) Inputs(shared BulkShared) []catalog.Input {
	sharedProps := strings.TrimSpace(shared.Properties)
	var out []catalog.Input
	for _, item := range r.Items {
		for _, cfg := range item.Configurations {
			props := cfg.Size
			if sharedProps != "" {
				props = cfg.Size + "; " + sharedProps
			}
			out = append(out, catalog.Input{
				Name:           item.Name,
				GBID:           cfg.ID,
				Properties:     props,
				AlternateNames: strings.TrimSpace(shared.AlternateNames),
				SpecialNotes:   strings.TrimSpace(shared.SpecialNotes),
			})
		}
	}
	return out
}
