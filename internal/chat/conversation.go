package chat

import (
	"math"
	"sort"
	"strings"
	"time"

	"sobi/internal/store"
)

// Transcript roles as the chatbot records them.
const (
	roleUser   = "user"
	roleModel  = "gpt"
	roleSystem = "system"
)

const (
	notAnswered  = "미입력"
	notCompleted = "미완료"
	noData       = "데이터 없음"

	effectImproved = "좋아짐"

	adviceExcerptRunes = 100
	analyticsWindow    = 30 * 24 * time.Hour
)

// Summary condenses a guided chatbot session: what was bought, the
// emotion behind it, whether talking helped, and the coach's advice.
type Summary struct {
	Date      string `json:"date"`
	Spending  string `json:"spending"`
	Emotion   string `json:"emotion"`
	Effect    string `json:"effect"`
	Advice    string `json:"advice"`
	SessionID string `json:"session_id,omitempty"`
}

// Summarize extracts the session summary from a transcript. The first
// three user turns are the spending, emotion and effect answers; the
// first model turn is the advice, excerpted to 100 runes. A session
// whose spending answer never arrived is not summarizable (ok false).
func Summarize(conv store.Conversation) (Summary, bool) {
	var spending, emotion, effect, advice string
	for _, turn := range conv.History {
		switch turn.Role {
		case roleUser:
			switch {
			case spending == "":
				spending = turn.Content
			case emotion == "":
				emotion = turn.Content
			case effect == "":
				effect = turn.Content
			}
		case roleModel:
			if advice == "" {
				advice = turn.Content
			}
		}
	}
	if spending == "" {
		return Summary{}, false
	}
	return Summary{
		Date:      conv.Date,
		Spending:  spending,
		Emotion:   orDefault(emotion, notAnswered),
		Effect:    orDefault(effect, notAnswered),
		Advice:    orDefault(excerpt(advice, adviceExcerptRunes), notCompleted),
		SessionID: conv.ID,
	}, true
}

// Dialogue renders the full transcript for replay, one speaker per
// line. System turns are dropped.
func Dialogue(conv store.Conversation) string {
	var lines []string
	for _, turn := range conv.History {
		switch turn.Role {
		case roleUser:
			lines = append(lines, "나: "+turn.Content)
		case roleModel:
			lines = append(lines, "Chatbot: "+turn.Content)
		}
	}
	return strings.Join(lines, "\n")
}

// SessionAnalytics aggregates conversation patterns over the analytics
// window.
type SessionAnalytics struct {
	TotalSessions       int            `json:"totalSessions"`
	MostCommonEmotion   string         `json:"mostCommonEmotion"`
	EmotionDistribution map[string]int `json:"emotionDistribution"`
	EffectDistribution  map[string]int `json:"effectDistribution"`
	ImprovementRate     float64        `json:"improvementRate"`
}

// AnalyzeSessions summarizes the last 30 days of sessions: how often
// each emotion and effect was answered, the dominant emotion, and the
// share of sessions whose effect answer reports improvement.
func AnalyzeSessions(convs []store.Conversation, now time.Time) SessionAnalytics {
	since := now.Add(-analyticsWindow).Format("2006-01-02")

	a := SessionAnalytics{
		MostCommonEmotion:   noData,
		EmotionDistribution: make(map[string]int),
		EffectDistribution:  make(map[string]int),
	}
	for _, conv := range convs {
		if conv.Date < since {
			continue
		}
		a.TotalSessions++

		var answers []string
		for _, turn := range conv.History {
			if turn.Role == roleUser {
				answers = append(answers, turn.Content)
			}
		}
		if len(answers) >= 2 {
			a.EmotionDistribution[answers[1]]++
		}
		if len(answers) >= 3 {
			a.EffectDistribution[answers[2]]++
		}
	}

	if best := mostCommon(a.EmotionDistribution); best != "" {
		a.MostCommonEmotion = best
	}
	if a.TotalSessions > 0 {
		rate := float64(a.EffectDistribution[effectImproved]) / float64(a.TotalSessions) * 100
		a.ImprovementRate = math.Round(rate*10) / 10
	}
	return a
}

// mostCommon picks the highest-count key; ties break on the smaller key
// so the result is stable across map iteration orders.
func mostCommon(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best, bestCount := "", 0
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func excerpt(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
