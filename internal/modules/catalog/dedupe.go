package catalog

import "strings"

// Dedupe drops repeated records from a result list. Records are keyed by
// gbid, else template, else name; the first occurrence wins and order is kept.
// Results with no key at all are kept as-is.
func Dedupe(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}
	seen := make(map[string]struct{}, len(results))
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		key := dedupeKey(r.Record)
		if key == "" {
			out = append(out, r)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func dedupeKey(r Record) string {
	for _, v := range []string{r.GBID, r.GBIDTemplate, r.Name} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
