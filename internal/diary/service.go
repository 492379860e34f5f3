package diary

import (
	"math"
	"sort"

	"sobi/internal/core"
	"sobi/internal/store"
)

// Entry is the journal view returned by the API: either derived on the
// fly from a day's consumption record, or loaded from an authored entry.
type Entry struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Text            string `json:"text"`
	Emotion         string `json:"emotion"`
	ConsumptionType string `json:"consumptionType"`
	Amount          int64  `json:"amount"`
	Satisfaction    int    `json:"satisfaction"`
	Advice          string `json:"advice"`
	Emoji           string `json:"emoji"`
	Score           int    `json:"score"`
	AudioURL        string `json:"audio_url,omitempty"`
}

// emotionMarkerAliases resolves the explicit emotion marker legacy
// records sometimes carry on a line item.
var emotionMarkerAliases = []string{"감정개입", "emotion"}

func emotionMarker(raw any) string {
	m, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range emotionMarkerAliases {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}

// DeriveFromRecords folds each day's consumption record into at most one
// journal entry: the day's dominant expense drives classification, the
// day's total expense is reported as the amount. Days without expenses
// yield nothing; malformed records are skipped.
func DeriveFromRecords(records []core.RawRecord) []Entry {
	var entries []Entry
	for _, rec := range records {
		date, ok := core.RecordDate(rec)
		if !ok {
			continue
		}

		var (
			dayTotal   int64
			mainItem   core.LineItem
			mainMarker string
			found      bool
		)
		for _, raw := range core.RecordItems(rec) {
			item, ok := core.NormalizeItem(raw)
			if !ok || item.Kind != core.Expense {
				continue
			}
			dayTotal += item.Amount
			if !found || item.Amount > mainItem.Amount {
				mainItem = item
				mainMarker = emotionMarker(raw)
				found = true
			}
		}
		if !found {
			continue
		}

		emotion := MapEmotion(mainMarker, mainItem.Note)
		ctype := ClassifyConsumption(mainItem.Category, mainItem.Note)
		entries = append(entries, Entry{
			ID:              date,
			Date:            date,
			Text:            mainItem.Note,
			Emotion:         emotion,
			ConsumptionType: ctype,
			Amount:          dayTotal,
			Satisfaction:    Satisfaction(mainItem.Note),
			Advice:          Advice(emotion, ctype, mainItem.Amount),
			Emoji:           Emoji(ctype),
			Score:           Score(ctype),
		})
	}
	return entries
}

// FromStored converts an authored diary document into the API view.
func FromStored(e store.DiaryEntry) Entry {
	return Entry{
		ID:              e.ID,
		Date:            e.Date,
		Text:            e.Text,
		Emotion:         e.Emotion,
		ConsumptionType: e.ConsumptionType,
		Amount:          e.Amount,
		Satisfaction:    e.Satisfaction,
		Advice:          e.Advice,
		Emoji:           Emoji(e.ConsumptionType),
		Score:           Score(e.ConsumptionType),
		AudioURL:        e.AudioURL,
	}
}

// Merge combines derived and stored entries, newest first.
func Merge(derived []Entry, stored []store.DiaryEntry) []Entry {
	merged := make([]Entry, 0, len(derived)+len(stored))
	merged = append(merged, derived...)
	for _, e := range stored {
		merged = append(merged, FromStored(e))
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date > merged[j].Date })
	return merged
}

// Analytics summarizes the emotional-spending shape of a profile.
type Analytics struct {
	TotalSpent           int64            `json:"totalSpent"`
	StressShoppingAmount int64            `json:"stressShoppingAmount"`
	StressShoppingRatio  float64          `json:"stressShoppingRatio"`
	ConsumptionByType    map[string]int64 `json:"consumptionByType"`
	AvgSatisfaction      float64          `json:"avgSatisfaction"`
}

// stressShoppingCategory is the record category tracked separately in the
// analytics report.
const stressShoppingCategory = "스트레스 쇼핑"

// Analyze computes spend totals per category plus the stress-shopping
// share and the mean satisfaction over derived entries.
func Analyze(records []core.RawRecord) Analytics {
	report := Analytics{ConsumptionByType: make(map[string]int64)}

	for _, rec := range records {
		for _, raw := range core.RecordItems(rec) {
			item, ok := core.NormalizeItem(raw)
			if !ok || item.Kind != core.Expense {
				continue
			}
			report.TotalSpent += item.Amount
			report.ConsumptionByType[item.Category] += item.Amount
			if item.Category == stressShoppingCategory {
				report.StressShoppingAmount += item.Amount
			}
		}
	}
	if report.TotalSpent > 0 {
		ratio := float64(report.StressShoppingAmount) / float64(report.TotalSpent) * 100
		report.StressShoppingRatio = math.Round(ratio*10) / 10
	}

	entries := DeriveFromRecords(records)
	if len(entries) > 0 {
		var sum int
		for _, e := range entries {
			sum += e.Satisfaction
		}
		report.AvgSatisfaction = math.Round(float64(sum)/float64(len(entries))*10) / 10
	}

	return report
}
