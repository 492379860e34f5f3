package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sobi/internal/store"
)

func session(id, date string, turns ...store.ConversationTurn) store.Conversation {
	return store.Conversation{ID: id, UserID: "hana", Date: date, History: turns}
}

func turn(role, content string) store.ConversationTurn {
	return store.ConversationTurn{Role: role, Content: content}
}

func TestSummarize(t *testing.T) {
	conv := session("s1", "2025-06-10",
		turn(roleSystem, "감정 소비 코치"),
		turn(roleUser, "떡볶이에 2만원 썼어"),
		turn(roleUser, "스트레스"),
		turn(roleUser, "좋아짐"),
		turn(roleModel, "매운 음식 대신 산책도 좋아요."),
	)

	sum, ok := Summarize(conv)
	require.True(t, ok)
	assert.Equal(t, "2025-06-10", sum.Date)
	assert.Equal(t, "떡볶이에 2만원 썼어", sum.Spending)
	assert.Equal(t, "스트레스", sum.Emotion)
	assert.Equal(t, "좋아짐", sum.Effect)
	assert.Equal(t, "매운 음식 대신 산책도 좋아요.", sum.Advice)
	assert.Equal(t, "s1", sum.SessionID)
}

func TestSummarizeFillsMissingAnswers(t *testing.T) {
	sum, ok := Summarize(session("s2", "2025-06-11", turn(roleUser, "옷 샀어")))
	require.True(t, ok)
	assert.Equal(t, notAnswered, sum.Emotion)
	assert.Equal(t, notAnswered, sum.Effect)
	assert.Equal(t, notCompleted, sum.Advice)
}

func TestSummarizeSkipsEmptySession(t *testing.T) {
	_, ok := Summarize(session("s3", "2025-06-12", turn(roleModel, "안녕하세요")))
	assert.False(t, ok)
}

func TestSummarizeExcerptsLongAdvice(t *testing.T) {
	long := strings.Repeat("가", 150)
	sum, ok := Summarize(session("s4", "2025-06-13",
		turn(roleUser, "야식"),
		turn(roleModel, long),
	))
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("가", 100)+"...", sum.Advice)
}

func TestDialogue(t *testing.T) {
	conv := session("s5", "2025-06-14",
		turn(roleSystem, "숨김"),
		turn(roleUser, "치킨 시켰어"),
		turn(roleModel, "가끔은 괜찮아요."),
	)
	assert.Equal(t, "나: 치킨 시켰어\nChatbot: 가끔은 괜찮아요.", Dialogue(conv))
}

func TestAnalyzeSessions(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)
	convs := []store.Conversation{
		session("a", "2025-06-10",
			turn(roleUser, "떡볶이"), turn(roleUser, "스트레스"), turn(roleUser, "좋아짐")),
		session("b", "2025-06-12",
			turn(roleUser, "게임 결제"), turn(roleUser, "스트레스"), turn(roleUser, "그대로")),
		session("c", "2020-01-01", // outside the 30-day window
			turn(roleUser, "옷"), turn(roleUser, "우울"), turn(roleUser, "좋아짐")),
	}

	a := AnalyzeSessions(convs, now)
	assert.Equal(t, 2, a.TotalSessions)
	assert.Equal(t, "스트레스", a.MostCommonEmotion)
	assert.Equal(t, map[string]int{"스트레스": 2}, a.EmotionDistribution)
	assert.Equal(t, map[string]int{"좋아짐": 1, "그대로": 1}, a.EffectDistribution)
	assert.Equal(t, 50.0, a.ImprovementRate)
}

func TestAnalyzeSessionsEmpty(t *testing.T) {
	a := AnalyzeSessions(nil, time.Now())
	assert.Zero(t, a.TotalSessions)
	assert.Equal(t, noData, a.MostCommonEmotion)
	assert.Zero(t, a.ImprovementRate)
}
