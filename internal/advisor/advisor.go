// Package advisor turns a monthly summary into budget coaching: category
// budgets, a savings goal and a short list of tips. The primary path asks
// an external completion service for strict JSON; every failure on that
// path routes to a deterministic rule-based fallback, so Advise always
// produces a usable answer.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"sobi/internal/core"
)

// Completer is the narrow contract to the LLM collaborator.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config holds the advisor tunables. All of them have working defaults;
// see DefaultConfig.
type Config struct {
	// BudgetCeiling caps the LLM budget row sum as a fraction of income.
	BudgetCeiling float64
	// SurplusFactor scales current category spend into a fallback budget.
	SurplusFactor float64
	// SavingFloor is the minimum savings goal in won.
	SavingFloor int64
	// SavingFraction of income used for the fallback savings goal.
	SavingFraction float64
}

// DefaultConfig returns the tunables the service ships with.
func DefaultConfig() Config {
	return Config{
		BudgetCeiling:  0.85,
		SurplusFactor:  1.1,
		SavingFloor:    100000,
		SavingFraction: 0.2,
	}
}

// Advice is the response shape shared by the LLM and fallback paths.
type Advice struct {
	Budgets    map[string]int64 `json:"budgets"`
	SavingGoal int64            `json:"saving_goal"`
	Tips       []string         `json:"tips"`
}

// Advisor proposes budgets for a user's month.
type Advisor struct {
	llm Completer // nil disables the primary path
	cfg Config
}

// New builds an Advisor. Passing a nil Completer is valid and leaves only
// the deterministic fallback path.
func New(llm Completer, cfg Config) *Advisor {
	if cfg.BudgetCeiling <= 0 {
		cfg = DefaultConfig()
	}
	return &Advisor{llm: llm, cfg: cfg}
}

const systemPrompt = "너는 소비 코치야. 반드시 설명 없이 JSON 형식만 출력해야 해."

// Advise returns budget advice for the summarized month. It never fails:
// LLM errors and invalid responses are logged and replaced by Fallback.
func (a *Advisor) Advise(ctx context.Context, summary core.MonthlySummary) Advice {
	if a.llm == nil || len(summary.ByCategory) == 0 {
		return a.Fallback(summary)
	}

	raw, err := a.llm.Complete(ctx, systemPrompt, buildPrompt(summary))
	if err != nil {
		slog.WarnContext(ctx, "Completion call failed, using fallback advice",
			"month", summary.Month, "error", err)
		return a.Fallback(summary)
	}

	advice, err := a.parseAndValidate(raw, summary.TotalIncome)
	if err != nil {
		slog.WarnContext(ctx, "Completion response rejected, using fallback advice",
			"month", summary.Month, "error", err)
		return a.Fallback(summary)
	}
	return advice
}

// buildPrompt renders the month as the natural-language coaching request.
func buildPrompt(s core.MonthlySummary) string {
	categories := make([]string, 0, len(s.ByCategory))
	for cat := range s.ByCategory {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var b strings.Builder
	fmt.Fprintf(&b, "아래는 사용자의 월별 소비 내역입니다.\n\n")
	fmt.Fprintf(&b, "- 월: %s\n", s.Month)
	fmt.Fprintf(&b, "- 총 수입: %d원\n", s.TotalIncome)
	fmt.Fprintf(&b, "- 총 지출: %d원\n\n", s.TotalExpense)
	b.WriteString("[카테고리별 지출]\n")
	for _, cat := range categories {
		fmt.Fprintf(&b, "%s: %d원\n", cat, s.ByCategory[cat])
	}
	b.WriteString(`
이 정보를 바탕으로 아래 JSON 구조로 예산안을 추천해 주세요. 설명 없이 아래 구조만 그대로 출력하세요:

{
  "budgets": {"식비": 300000, "쇼핑": 100000, "기타": 50000},
  "saving_goal": 400000,
  "tips": ["불필요한 구독 정리", "배달 대신 요리하기", "소비 기록 습관 들이기"]
}
`)
	return b.String()
}

// parseAndValidate enforces the strict response contract: the three keys
// must be present, every budget must be a positive number, and the budget
// row sum must not exceed the configured fraction of income.
func (a *Advisor) parseAndValidate(raw string, totalIncome int64) (Advice, error) {
	cleaned := stripCodeFence(raw)

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &keys); err != nil {
		return Advice{}, fmt.Errorf("parse completion response: %w", err)
	}
	for _, required := range []string{"budgets", "saving_goal", "tips"} {
		if _, ok := keys[required]; !ok {
			return Advice{}, fmt.Errorf("completion response missing %q", required)
		}
	}

	var parsed struct {
		Budgets    map[string]float64 `json:"budgets"`
		SavingGoal float64            `json:"saving_goal"`
		Tips       []string           `json:"tips"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Advice{}, fmt.Errorf("decode completion response: %w", err)
	}

	budgets := make(map[string]int64, len(parsed.Budgets))
	var sum int64
	for cat, v := range parsed.Budgets {
		if v <= 0 {
			return Advice{}, fmt.Errorf("budget for %q is not positive", cat)
		}
		won := int64(v)
		budgets[cat] = won
		sum += won
	}
	ceiling := int64(float64(totalIncome) * a.cfg.BudgetCeiling)
	if sum > ceiling {
		return Advice{}, fmt.Errorf("budget sum %d exceeds ceiling %d", sum, ceiling)
	}

	return Advice{
		Budgets:    budgets,
		SavingGoal: int64(parsed.SavingGoal),
		Tips:       parsed.Tips,
	}, nil
}

// stripCodeFence removes a surrounding ```json / ``` fence if the model
// wrapped its output in one.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
