// Package core implements the monthly consumption-record aggregation
// pipeline: alias-tolerant field resolution, line-item normalization and
// the per-month income/expense reduction. Everything here is pure; the
// document store owns the records and this package never mutates them.
package core

import "strings"

// Summarize reduces all records matching the target YYYY-MM month into a
// MonthlySummary. Records whose date does not start with the month
// contribute nothing; malformed records and line items are skipped, never
// fatal. Income items add to TotalIncome; expense items add to
// TotalExpense and to ByCategory, so the ByCategory values always sum to
// TotalExpense.
func Summarize(records []RawRecord, month string) MonthlySummary {
	summary := MonthlySummary{
		Month:      month,
		ByCategory: make(map[string]int64),
	}

	for _, rec := range records {
		date, ok := RecordDate(rec)
		if !ok || !strings.HasPrefix(date, month) {
			continue
		}
		for _, raw := range RecordItems(rec) {
			item, ok := NormalizeItem(raw)
			if !ok {
				continue
			}
			switch item.Kind {
			case Income:
				summary.TotalIncome += item.Amount
			case Expense:
				summary.TotalExpense += item.Amount
				summary.ByCategory[item.Category] += item.Amount
			}
			summary.ProcessedCount++
		}
	}

	return summary
}

// SummarizeLatest resolves the target month (explicit parameter wins,
// then newest record month, then fallback) and summarizes it in one call.
func SummarizeLatest(records []RawRecord, explicit, fallback string) MonthlySummary {
	month := ResolveMonth(records, explicit, fallback)
	return Summarize(records, month)
}
