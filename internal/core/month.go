package core

import "sort"

// DefaultFallbackMonth is used when no record yields a usable date and the
// caller supplied no explicit month. Configurable via MONTH_FALLBACK; the
// value here matches the last month of seeded legacy data.
const DefaultFallbackMonth = "2025-06"

// ResolveMonth determines the single target reporting month.
//
// An explicit month always wins, even when no record matches it.
// Otherwise the lexicographically maximal YYYY-MM prefix across all
// records is chosen (lexicographic order on YYYY-MM equals chronological
// order). Records without a usable date are skipped. When nothing
// usable remains the fallback is returned; an empty fallback selects
// DefaultFallbackMonth.
func ResolveMonth(records []RawRecord, explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	return LatestMonth(records, fallback)
}

// LatestMonth returns the most recent month present in records, or the
// fallback when none is found.
func LatestMonth(records []RawRecord, fallback string) string {
	latest := ""
	for _, rec := range records {
		month, ok := RecordMonth(rec)
		if !ok {
			continue
		}
		if month > latest {
			latest = month
		}
	}
	if latest == "" {
		if fallback == "" {
			return DefaultFallbackMonth
		}
		return fallback
	}
	return latest
}

// AvailableMonths returns every distinct month present in records, newest
// first.
func AvailableMonths(records []RawRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if month, ok := RecordMonth(rec); ok {
			seen[month] = struct{}{}
		}
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}
