package core

// Kind classifies a line item as money coming in or going out.
type Kind string

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// IncomeLabel is the classification value that marks a line item as income.
// Every other value, including an empty or unknown one, is treated as an
// expense. Downstream totals depend on this default, do not change it.
const IncomeLabel = "수입"

// OtherCategory is the placeholder used when an item carries no category.
const OtherCategory = "기타"

// RawRecord is one calendar day's activity exactly as stored in the user
// profile. Documents arrive untyped from the store; all normalization
// happens in this package.
type RawRecord = map[string]any

// LineItem is one validated transaction within a day's record.
type LineItem struct {
	Kind     Kind
	Category string
	Amount   int64 // whole won, always > 0 after normalization
	Note     string
}

// MonthlySummary is the derived income/expense report for one month.
// It is a pure function of the input records and is never persisted.
type MonthlySummary struct {
	Month          string
	TotalIncome    int64
	TotalExpense   int64
	ByCategory     map[string]int64 // expense-only
	ProcessedCount int
}

// Balance returns income minus expense for the month.
func (s MonthlySummary) Balance() int64 {
	return s.TotalIncome - s.TotalExpense
}
