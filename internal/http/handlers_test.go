package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sobi/internal/advisor"
	"sobi/internal/chat"
	"sobi/internal/core"
	"sobi/internal/log"
	"sobi/internal/speech"
	"sobi/internal/store/memory"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakePublisher struct {
	entryIDs []string
	texts    []string
}

func (f *fakePublisher) PublishSpeechJob(_ context.Context, entryID, _, text string) error {
	f.entryIDs = append(f.entryIDs, entryID)
	f.texts = append(f.texts, text)
	return nil
}

type fakeDetector struct {
	text string
	err  error
}

func (f *fakeDetector) DetectText(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type fakeTTS struct{}

func (fakeTTS) Synthesize(context.Context, string) ([]byte, error) {
	return []byte("mp3"), nil
}

type speechStoreStub struct{}

func (speechStoreStub) Upload(_ context.Context, key string, _ []byte) (string, error) {
	return "https://bucket/" + key, nil
}

func (speechStoreStub) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed/" + key, nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func seedRecords() []core.RawRecord {
	return []core.RawRecord{
		{
			"날짜": "2025-06-01",
			"소비목록": []any{
				map[string]any{"분류": "수입", "금액": 2000000},
				map[string]any{"분류": "지출", "항목": "식비", "금액": 300000, "상세내역": "외식"},
			},
		},
		{
			"날짜": "2025-05-20",
			"소비목록": []any{
				map[string]any{"분류": "지출", "항목": "카페", "금액": 6000},
			},
		},
	}
}

type serverFixture struct {
	server    *Server
	store     *memory.Store
	completer *fakeCompleter
	publisher *fakePublisher
}

func newTestServer(t *testing.T, mutate func(*Deps)) *serverFixture {
	t.Helper()

	st := memory.New()
	st.AddUser("hana", seedRecords())

	completer := &fakeCompleter{err: io.EOF} // advisor falls back by default
	publisher := &fakePublisher{}
	logger := testLogger()

	deps := Deps{
		Users:         st,
		Diaries:       st,
		Conversations: st,
		Advisor:       advisor.New(completer, advisor.DefaultConfig()),
		Chat:          chat.NewService(completer, logger.Logger),
		Jobs:          publisher,
		Logger:        logger,
		FallbackMonth: core.DefaultFallbackMonth,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &serverFixture{
		server:    NewServer(":0", deps),
		store:     st,
		completer: completer,
		publisher: publisher,
	}
}

func (f *serverFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestSummaryEndpoint(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/summary/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "hana", resp.UserID)
	assert.Equal(t, "2025-06", resp.Month, "latest month wins without explicit month")
	assert.Equal(t, int64(2000000), resp.TotalIncome)
	assert.Equal(t, int64(300000), resp.TotalExpense)
	assert.Equal(t, int64(1700000), resp.Balance)
	assert.Equal(t, 2, resp.ProcessedItems)
}

func TestSummaryEndpointExplicitMonth(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/summary/hana?month=2025-05", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp summaryResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "2025-05", resp.Month)
	assert.Equal(t, int64(6000), resp.TotalExpense)
	assert.Zero(t, resp.TotalIncome)
}

func TestSummaryEndpointUnknownUser(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/summary/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMonthsEndpoint(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/summary/hana/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AvailableMonths []string `json:"available_months"`
		LatestMonth     string   `json:"latest_month"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, []string{"2025-06", "2025-05"}, resp.AvailableMonths)
	assert.Equal(t, "2025-06", resp.LatestMonth)
}

func TestMonthsEndpointNoDatedRecords(t *testing.T) {
	f := newTestServer(t, nil)
	f.store.AddUser("newbie", nil)

	rec := f.do(t, http.MethodGet, "/summary/newbie/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AvailableMonths []string `json:"available_months"`
		LatestMonth     *string  `json:"latest_month"`
	}
	decodeBody(t, rec, &resp)
	assert.Empty(t, resp.AvailableMonths)
	assert.Nil(t, resp.LatestMonth, "no data means no latest month, not the fallback")
}

func TestActualsEndpoint(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/actuals/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserID  string           `json:"user_id"`
		Actuals map[string]int64 `json:"actuals"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, map[string]int64{"식비": 300000}, resp.Actuals)
}

func TestCoachEndpointFallsBackAndCaches(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/coach/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var advice advisor.Advice
	decodeBody(t, rec, &advice)
	assert.Equal(t, int64(330000), advice.Budgets["식비"], "fallback budget is spend times surplus factor")
	assert.Equal(t, int64(400000), advice.SavingGoal)
	assert.NotEmpty(t, advice.Tips)

	firstCalls := f.completer.calls
	rec = f.do(t, http.MethodGet, "/coach/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, firstCalls, f.completer.calls, "second request served from cache")
}

func TestChatEndpoint(t *testing.T) {
	f := newTestServer(t, func(d *Deps) {
		completer := &fakeCompleter{reply: "괜찮아요, 잘하고 있어요."}
		d.Chat = chat.NewService(completer, testLogger().Logger)
	})

	rec := f.do(t, http.MethodPost, "/chat", map[string]string{"user_id": "hana", "message": "너무 힘들어"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reply string `json:"reply"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "괜찮아요, 잘하고 있어요.", resp.Reply)
}

func TestChatEndpointRequiresMessage(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/chat", map[string]string{"user_id": "hana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiaryListMergesDerivedAndStored(t *testing.T) {
	f := newTestServer(t, nil)

	created := f.do(t, http.MethodPost, "/diary/entries/hana", map[string]any{
		"date":   "2025-06-20",
		"text":   "스트레스 받아서 지쳐서 샀다",
		"amount": 120000,
	})
	require.Equal(t, http.StatusCreated, created.Code)

	rec := f.do(t, http.MethodGet, "/diary/entries/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Entries []map[string]any `json:"entries"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Entries, 3, "two derived days plus the authored entry")
	assert.Equal(t, "2025-06-20", resp.Entries[0]["date"], "newest first")
}

func TestDiaryCreatePublishesSpeechJob(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/diary/entries/hana", map[string]any{
		"date": "2025-06-21",
		"text": "충동적으로 질렀다",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, f.publisher.entryIDs, 1)
	assert.NotEmpty(t, f.publisher.texts[0], "job carries the advice text")

	var entry map[string]any
	decodeBody(t, rec, &entry)
	assert.Equal(t, f.publisher.entryIDs[0], entry["id"])
}

func TestDiaryCreateValidation(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/diary/entries/hana", map[string]any{"text": "본문만"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.publisher.entryIDs)
}

func TestDiaryAnalyticsEndpoint(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/diary/analytics/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TotalSpent int64 `json:"totalSpent"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(306000), resp.TotalSpent)
}

func sessionBody(date string, turns ...[2]string) map[string]any {
	history := make([]map[string]string, 0, len(turns))
	for _, tr := range turns {
		history = append(history, map[string]string{"role": tr[0], "content": tr[1]})
	}
	return map[string]any{"date": date, "history": history}
}

func TestConversationLogAndList(t *testing.T) {
	f := newTestServer(t, nil)

	created := f.do(t, http.MethodPost, "/conversations/hana", sessionBody("2025-06-15",
		[2]string{"user", "떡볶이에 2만원 썼어"},
		[2]string{"user", "스트레스"},
		[2]string{"user", "좋아짐"},
		[2]string{"gpt", "매운 음식 대신 산책도 좋아요."},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var ids struct {
		ID string `json:"id"`
	}
	decodeBody(t, created, &ids)
	require.NotEmpty(t, ids.ID)

	rec := f.do(t, http.MethodGet, "/conversations/hana", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conversations []chat.Summary `json:"conversations"`
		Total         int            `json:"total"`
	}
	decodeBody(t, rec, &resp)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "떡볶이에 2만원 썼어", resp.Conversations[0].Spending)
	assert.Equal(t, "스트레스", resp.Conversations[0].Emotion)
	assert.Equal(t, ids.ID, resp.Conversations[0].SessionID)
}

func TestConversationLatest(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodGet, "/conversations/hana/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty struct {
		Conversation *struct{} `json:"conversation"`
	}
	decodeBody(t, rec, &empty)
	assert.Nil(t, empty.Conversation, "no sessions yet")

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/conversations/hana", sessionBody("2025-06-15",
		[2]string{"user", "치킨 시켰어"},
		[2]string{"gpt", "가끔은 괜찮아요."},
	)).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/conversations/hana", sessionBody("2025-06-16",
		[2]string{"user", "오늘은 참았어"},
		[2]string{"gpt", "정말 잘했어요."},
	)).Code)

	rec = f.do(t, http.MethodGet, "/conversations/hana/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conversation struct {
			Date     string `json:"date"`
			Dialogue string `json:"dialogue"`
		} `json:"conversation"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "2025-06-16", resp.Conversation.Date, "most recent session wins")
	assert.Equal(t, "나: 오늘은 참았어\nChatbot: 정말 잘했어요.", resp.Conversation.Dialogue)
}

func TestConversationAnalyticsEndpoint(t *testing.T) {
	f := newTestServer(t, nil)

	today := time.Now().Format("2006-01-02")
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/conversations/hana", sessionBody(today,
		[2]string{"user", "떡볶이"},
		[2]string{"user", "스트레스"},
		[2]string{"user", "좋아짐"},
	)).Code)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/conversations/hana", sessionBody(today,
		[2]string{"user", "게임 결제"},
		[2]string{"user", "스트레스"},
		[2]string{"user", "그대로"},
	)).Code)

	rec := f.do(t, http.MethodGet, "/conversations/hana/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chat.SessionAnalytics
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.TotalSessions)
	assert.Equal(t, "스트레스", resp.MostCommonEmotion)
	assert.Equal(t, 50.0, resp.ImprovementRate)
}

func TestConversationCreateValidation(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/conversations/hana", map[string]any{"date": "2025-06-15"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiptEndpointUnconfigured(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/receipt", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReceiptEndpoint(t *testing.T) {
	f := newTestServer(t, func(d *Deps) {
		d.OCR = &fakeDetector{text: "김밥천국\n2025-06-01\n참치김밥 3,500\n합계 3,500원"}
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="receipt.jpg"`},
		"Content-Type":        {"image/jpeg"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/receipt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Store       string `json:"store"`
		TotalAmount int64  `json:"totalAmount"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, "김밥천국", resp.Store)
	assert.Equal(t, int64(3500), resp.TotalAmount)
}

func TestSpeechEndpointUnconfigured(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/speech", map[string]string{"user_id": "hana", "message": "읽어줘"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodGet, "/speech/replay?filename=x.mp3", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSpeechEndpoint(t *testing.T) {
	f := newTestServer(t, func(d *Deps) {
		d.Speech = speech.NewService(fakeTTS{}, speechStoreStub{}, testLogger().Logger)
	})

	rec := f.do(t, http.MethodPost, "/speech", map[string]string{"user_id": "hana", "message": "오늘 하루 수고했어"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		URL   string `json:"url"`
		S3Key string `json:"s3_key"`
	}
	decodeBody(t, rec, &resp)
	assert.True(t, strings.HasPrefix(resp.S3Key, "tts_audio/hana_"))
	assert.Contains(t, resp.URL, resp.S3Key)
}

func TestSpeechReplayRejectsTraversal(t *testing.T) {
	f := newTestServer(t, func(d *Deps) {
		d.Speech = speech.NewService(fakeTTS{}, speechStoreStub{}, testLogger().Logger)
	})

	rec := f.do(t, http.MethodGet, "/speech/replay?filename=../x.mp3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/readyz", nil).Code)
}
