package advisor

import (
	"math"

	"sobi/internal/core"
)

// tipRule fires when a category's spend reaches minShare of income for
// the month. With zero income any presence of the category counts. Rules
// are evaluated in order so the output is deterministic; the historical
// probabilistic tone variation was dropped on purpose.
type tipRule struct {
	category string
	minShare float64
	tip      string
}

var tipRules = []tipRule{
	{"스트레스 쇼핑", 0.05, "스트레스 쇼핑을 줄이기 위해 대체 활동을 찾아보세요"},
	{"카페", 0.03, "카페 대신 집에서 커피를 만들어 드셔보세요"},
	{"패션", 0.05, "의류 구매 전 30일 대기 규칙을 적용해보세요"},
}

var defaultTips = []string{
	"불필요한 지출을 줄여보세요",
	"목표 저축액을 설정하세요",
}

const baseTip = "소비 패턴을 정기적으로 확인하세요"

const maxTips = 3

// Fallback computes rule-based advice without any network access. Each
// category budget is the current spend scaled by the surplus factor; the
// savings goal is the larger of the floor and the configured income
// fraction. Budgets never sum to zero when expenses are present.
func (a *Advisor) Fallback(s core.MonthlySummary) Advice {
	budgets := make(map[string]int64, len(s.ByCategory))
	for cat, amount := range s.ByCategory {
		budgets[cat] = int64(math.Round(float64(amount) * a.cfg.SurplusFactor))
	}
	if len(budgets) == 0 {
		budgets[core.OtherCategory] = a.cfg.SavingFloor
	}

	goal := a.cfg.SavingFloor
	if s.TotalIncome > 0 {
		if fromIncome := int64(float64(s.TotalIncome) * a.cfg.SavingFraction); fromIncome > goal {
			goal = fromIncome
		}
	}

	tips := []string{baseTip}
	for _, rule := range tipRules {
		spent, ok := s.ByCategory[rule.category]
		if !ok {
			continue
		}
		if s.TotalIncome > 0 && float64(spent) < float64(s.TotalIncome)*rule.minShare {
			continue
		}
		tips = append(tips, rule.tip)
	}
	if len(tips) == 1 {
		tips = append(tips, defaultTips...)
	}
	if len(tips) > maxTips {
		tips = tips[:maxTips]
	}

	return Advice{Budgets: budgets, SavingGoal: goal, Tips: tips}
}
