package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sobi/internal/core"
)

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	return f.response, f.err
}

func sampleSummary() core.MonthlySummary {
	return core.MonthlySummary{
		Month:        "2025-06",
		TotalIncome:  2000000,
		TotalExpense: 450000,
		ByCategory: map[string]int64{
			"식비": 300000,
			"카페": 150000,
		},
		ProcessedCount: 12,
	}
}

func TestAdviseAcceptsValidResponse(t *testing.T) {
	llm := &fakeCompleter{response: `{
		"budgets": {"식비": 280000, "카페": 100000},
		"saving_goal": 500000,
		"tips": ["배달 대신 요리하기"]
	}`}
	a := New(llm, DefaultConfig())

	advice := a.Advise(context.Background(), sampleSummary())
	assert.Equal(t, int64(280000), advice.Budgets["식비"])
	assert.Equal(t, int64(500000), advice.SavingGoal)
	assert.Equal(t, []string{"배달 대신 요리하기"}, advice.Tips)
	assert.Equal(t, 1, llm.calls)
}

func TestAdviseStripsCodeFence(t *testing.T) {
	llm := &fakeCompleter{response: "```json\n{\"budgets\": {\"식비\": 1000}, \"saving_goal\": 2000, \"tips\": []}\n```"}
	a := New(llm, DefaultConfig())

	advice := a.Advise(context.Background(), sampleSummary())
	assert.Equal(t, int64(1000), advice.Budgets["식비"])
}

func TestAdviseFallsBack(t *testing.T) {
	tests := []struct {
		name string
		llm  *fakeCompleter
	}{
		{"call error", &fakeCompleter{err: errors.New("upstream unavailable")}},
		{"malformed json", &fakeCompleter{response: "식비를 줄이세요!"}},
		{"missing keys", &fakeCompleter{response: `{"budgets": {"식비": 1000}}`}},
		{"non-positive budget", &fakeCompleter{response: `{"budgets": {"식비": 0}, "saving_goal": 1, "tips": []}`}},
		{"budget over ceiling", &fakeCompleter{response: `{"budgets": {"식비": 1900000}, "saving_goal": 1, "tips": []}`}},
		{"budget not numeric", &fakeCompleter{response: `{"budgets": {"식비": "많이"}, "saving_goal": 1, "tips": []}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(tt.llm, DefaultConfig())
			summary := sampleSummary()

			advice := a.Advise(context.Background(), summary)
			// Fallback shape: scaled budgets, floor-or-fraction goal.
			require.NotEmpty(t, advice.Budgets)
			assert.Equal(t, int64(330000), advice.Budgets["식비"])
			assert.Equal(t, int64(400000), advice.SavingGoal)
			assert.NotEmpty(t, advice.Tips)
		})
	}
}

func TestAdviseWithoutCompleter(t *testing.T) {
	a := New(nil, DefaultConfig())
	advice := a.Advise(context.Background(), sampleSummary())
	assert.Equal(t, int64(330000), advice.Budgets["식비"])
}
