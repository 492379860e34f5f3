package core

import (
	"math"
	"strconv"
	"strings"
)

// Legacy documents used several field names interchangeably for the same
// semantic field. Each table is an ordered candidate list resolved via
// first-match lookup; order matters because old and new names can coexist
// on the same document.
var (
	dateAliases     = []string{"날짜", "날", "date"}
	itemsAliases    = []string{"소비목록", "consumption_list", "items"}
	kindAliases     = []string{"분류", "type", "종류"}
	categoryAliases = []string{"항목", "category", "카테고리"}
	amountAliases   = []string{"금액", "amount", "가격"}
	noteAliases     = []string{"상세내역", "description"}
)

func lookupField(m map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := m[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func lookupString(m map[string]any, aliases []string) string {
	if v, ok := lookupField(m, aliases); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RecordDate resolves the date string of a raw record through the alias
// table. The second return is false when the record carries no usable
// string date.
func RecordDate(rec RawRecord) (string, bool) {
	if rec == nil {
		return "", false
	}
	s := lookupString(rec, dateAliases)
	if s == "" {
		return "", false
	}
	return s, true
}

// RecordMonth returns the YYYY-MM prefix of the record's date, if any.
func RecordMonth(rec RawRecord) (string, bool) {
	date, ok := RecordDate(rec)
	if !ok || len(date) < 7 {
		return "", false
	}
	return date[:7], true
}

// RecordItems resolves the raw line-item list of a record. Malformed
// records yield nil rather than an error; individual entries may still be
// anything and must go through NormalizeItem.
func RecordItems(rec RawRecord) []any {
	if rec == nil {
		return nil
	}
	v, ok := lookupField(rec, itemsAliases)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	return items
}

// NormalizeItem converts one raw line-item entry into a validated
// LineItem. The second return is false when the entry must be dropped:
// not a map, unparseable amount, or amount <= 0.
func NormalizeItem(raw any) (LineItem, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return LineItem{}, false
	}

	amount, ok := CoerceAmount(lookupFieldOrNil(m, amountAliases))
	if !ok || amount <= 0 {
		return LineItem{}, false
	}

	kind := Expense
	if lookupString(m, kindAliases) == IncomeLabel {
		kind = Income
	}

	category := strings.TrimSpace(lookupString(m, categoryAliases))
	if category == "" {
		category = OtherCategory
	}

	return LineItem{
		Kind:     kind,
		Category: category,
		Amount:   amount,
		Note:     lookupString(m, noteAliases),
	}, true
}

func lookupFieldOrNil(m map[string]any, aliases []string) any {
	v, _ := lookupField(m, aliases)
	return v
}

// CoerceAmount turns a loosely-typed amount value into whole won.
// Strings like "3,000원" have every rune outside digits, decimal point
// and minus sign stripped before parsing. Unparseable values return
// ok=false so the caller drops the item instead of zeroing it.
func CoerceAmount(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return roundWon(n)
	case float32:
		return roundWon(float64(n))
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, n)
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return roundWon(f)
	default:
		return 0, false
	}
}

func roundWon(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f)), true
}
