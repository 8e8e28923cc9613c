package catalog

import (
	"fmt"
	"strings"
)

// Metadata keys stored next to every vector. Search rebuilds a Record from
// these alone.
const (
	MetaName           = "name"
	MetaGBID           = "gbid"
	MetaGBIDTemplate   = "gbidTemplate"
	MetaProperties     = "properties"
	MetaAlternateNames = "alternate_names"
	MetaSpecialNotes   = "special_notes"
)

// Input is the editable field set of a record, as submitted by an operator
// or produced by an import parser.
type Input struct {
	Name           string `json:"name"`
	GBID           string `json:"gbid"`
	GBIDTemplate   string `json:"gbidTemplate"`
	Properties     string `json:"properties"`
	AlternateNames string `json:"alternateNames"`
	SpecialNotes   string `json:"specialNotes"`
}

// Normalized returns a copy with every field trimmed.
func (in Input) Normalized() Input {
	return Input{
		Name:           strings.TrimSpace(in.Name),
		GBID:           strings.TrimSpace(in.GBID),
		GBIDTemplate:   strings.TrimSpace(in.GBIDTemplate),
		Properties:     strings.TrimSpace(in.Properties),
		AlternateNames: strings.TrimSpace(in.AlternateNames),
		SpecialNotes:   strings.TrimSpace(in.SpecialNotes),
	}
}

// ID is the effective store key for the input.
func (in Input) ID() string {
	return ResolveID(in.GBID, in.GBIDTemplate, in.Name)
}

// Label is the "name (id)" form used in operator-facing messages.
func (in Input) Label() string {
	return fmt.Sprintf("%s (%s)", strings.TrimSpace(in.Name), in.ID())
}

// Record is a stored catalog entry as reconstructed from vector metadata.
type Record struct {
	Name           string `json:"name"`
	GBID           string `json:"gbid"`
	GBIDTemplate   string `json:"gbidTemplate"`
	Properties     string `json:"properties"`
	AlternateNames string `json:"alternate_names"`
	SpecialNotes   string `json:"special_notes"`
}

type SearchResult struct {
	ID string `json:"id"`
	Record
	Score float64 `json:"score"`
}

// EmbeddingText builds the text embedded for a record. Field order is fixed
// and optional lines are only emitted when non-empty.
func EmbeddingText(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nGBID: %s\n", in.Name, in.GBID)
	if in.Properties != "" {
		fmt.Fprintf(&b, "Properties: %s\n", in.Properties)
	}
	if in.AlternateNames != "" {
		fmt.Fprintf(&b, "Alternate names: %s\n", in.AlternateNames)
	}
	if in.SpecialNotes != "" {
		fmt.Fprintf(&b, "Special notes: %s\n", in.SpecialNotes)
	}
	return b.String()
}

// Metadata mirrors every field of in. Absent values are stored as "" so the
// key set is identical for all records.
func Metadata(in Input) map[string]any {
	return map[string]any{
		MetaName:           in.Name,
		MetaGBID:           in.GBID,
		MetaGBIDTemplate:   in.GBIDTemplate,
		MetaProperties:     in.Properties,
		MetaAlternateNames: in.AlternateNames,
		MetaSpecialNotes:   in.SpecialNotes,
	}
}

// RecordFromMetadata is the inverse of Metadata. Missing or non-string
// values become "".
func RecordFromMetadata(meta map[string]any) Record {
	return Record{
		Name:           metaString(meta, MetaName),
		GBID:           metaString(meta, MetaGBID),
		GBIDTemplate:   metaString(meta, MetaGBIDTemplate),
		Properties:     metaString(meta, MetaProperties),
		AlternateNames: metaString(meta, MetaAlternateNames),
		SpecialNotes:   metaString(meta, MetaSpecialNotes),
	}
}

// Input converts a stored record back into an editable field set.
func (r Record) Input() Input {
	return Input{
		Name:           r.Name,
		GBID:           r.GBID,
		GBIDTemplate:   r.GBIDTemplate,
		Properties:     r.Properties,
		AlternateNames: r.AlternateNames,
		SpecialNotes:   r.SpecialNotes,
	}
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	switch v := meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
