package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sobi/internal/cache"
	"sobi/internal/chat"
	"sobi/internal/core"
	"sobi/internal/diary"
	"sobi/internal/log"
	"sobi/internal/receipt"
	"sobi/internal/store"
)

const maxReceiptUpload = 10 << 20 // 10MB

// loadRecords resolves a user's raw consumption records, writing the
// error response itself when the lookup fails.
func (s *Server) loadRecords(w http.ResponseWriter, r *http.Request, userID string) ([]core.RawRecord, bool) {
	user, err := s.users.FindUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
		} else {
			s.logger.ErrorContext(r.Context(), "User lookup failed",
				log.FieldUserID, userID, log.FieldError, err)
			respondError(w, http.StatusInternalServerError, "failed to load user profile")
		}
		return nil, false
	}
	return user.Profile.Records, true
}

type summaryResponse struct {
	UserID         string `json:"user_id"`
	Month          string `json:"month"`
	TotalIncome    int64  `json:"total_income"`
	TotalExpense   int64  `json:"total_expense"`
	Balance        int64  `json:"balance"`
	ProcessedItems int    `json:"processed_items"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	month := core.ResolveMonth(records, r.URL.Query().Get("month"), s.fallbackMonth)
	summary := core.Summarize(records, month)

	respondJSON(w, http.StatusOK, summaryResponse{
		UserID:         userID,
		Month:          summary.Month,
		TotalIncome:    summary.TotalIncome,
		TotalExpense:   summary.TotalExpense,
		Balance:        summary.Balance(),
		ProcessedItems: summary.ProcessedCount,
	})
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	// No dated records means no latest month. The fallback month is a
	// reporting default elsewhere, not data this user actually has.
	months := core.AvailableMonths(records)
	var latest any
	if len(months) > 0 {
		latest = months[0]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":          userID,
		"available_months": months,
		"latest_month":     latest,
	})
}

func (s *Server) handleActuals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	summary := core.SummarizeLatest(records, "", s.fallbackMonth)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"actuals": summary.ByCategory,
	})
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	summary := core.SummarizeLatest(records, "", s.fallbackMonth)

	// Advice is memoized per user and month; the aggregation above is
	// recomputed on every request.
	cacheKey := cache.Key(userID, summary.Month)
	advice, hit := s.adviceCache.Get(cacheKey)
	if !hit {
		advice = s.advisor.Advise(r.Context(), summary)
		s.adviceCache.Set(cacheKey, advice)
	}

	respondJSON(w, http.StatusOK, advice)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := s.chat.Reply(r.Context(), req.Message)
	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleDiaryList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	stored, err := s.diaries.ListEntries(r.Context(), userID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Diary listing failed",
			log.FieldUserID, userID, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "failed to load diary entries")
		return
	}

	entries := diary.Merge(diary.DeriveFromRecords(records), stored)
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"entries": entries,
	})
}

type diaryCreateRequest struct {
	Date   string `json:"date"`
	Text   string `json:"text"`
	Amount int64  `json:"amount"`
}

func (s *Server) handleDiaryCreate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if _, ok := s.loadRecords(w, r, userID); !ok {
		return
	}

	var req diaryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Date == "" || strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "date and text are required")
		return
	}

	ctype := diary.ClassifyConsumption("", req.Text)
	emotion := diary.MapEmotion("", req.Text)
	entry := store.DiaryEntry{
		UserID:          userID,
		Date:            req.Date,
		Text:            req.Text,
		Emotion:         emotion,
		ConsumptionType: ctype,
		Amount:          req.Amount,
		Satisfaction:    diary.Satisfaction(req.Text),
		Advice:          diary.Advice(emotion, ctype, req.Amount),
		CreatedAt:       time.Now(),
	}

	id, err := s.diaries.InsertEntry(r.Context(), entry)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Diary insert failed",
			log.FieldUserID, userID, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "failed to save diary entry")
		return
	}
	entry.ID = id

	// The entry is readable immediately; audio arrives later when the
	// worker finishes synthesis.
	if s.jobs != nil {
		if err := s.jobs.PublishSpeechJob(r.Context(), id, userID, entry.Advice); err != nil {
			s.logger.WarnContext(r.Context(), "Speech job publish failed",
				log.FieldEntryID, id, log.FieldError, err)
		}
	}

	respondJSON(w, http.StatusCreated, diary.FromStored(entry))
}

func (s *Server) handleDiaryAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	records, ok := s.loadRecords(w, r, userID)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, diary.Analyze(records))
}

const defaultConversationLimit = 10

// loadConversations lists a user's chatbot sessions, writing the error
// response itself on store failure. Conversations exist independently
// of consumption profiles, so there is no user lookup here.
func (s *Server) loadConversations(w http.ResponseWriter, r *http.Request, userID string, limit int) ([]store.Conversation, bool) {
	convs, err := s.conversations.ListConversations(r.Context(), userID, limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Conversation listing failed",
			log.FieldUserID, userID, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "failed to load conversations")
		return nil, false
	}
	return convs, true
}

type conversationCreateRequest struct {
	Date    string                   `json:"date"`
	History []store.ConversationTurn `json:"history"`
}

func (s *Server) handleConversationCreate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	var req conversationCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.History) == 0 {
		respondError(w, http.StatusBadRequest, "history is required")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}

	id, err := s.conversations.InsertConversation(r.Context(), store.Conversation{
		UserID:  userID,
		Date:    req.Date,
		History: req.History,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Conversation insert failed",
			log.FieldUserID, userID, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "failed to save conversation")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	limit := defaultConversationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	convs, ok := s.loadConversations(w, r, userID, limit)
	if !ok {
		return
	}

	summaries := make([]chat.Summary, 0, len(convs))
	for _, conv := range convs {
		if sum, ok := chat.Summarize(conv); ok {
			summaries = append(summaries, sum)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"conversations": summaries,
		"total":         len(summaries),
	})
}

func (s *Server) handleConversationLatest(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	convs, ok := s.loadConversations(w, r, userID, 1)
	if !ok {
		return
	}
	if len(convs) == 0 {
		respondJSON(w, http.StatusOK, map[string]any{"conversation": nil})
		return
	}

	conv := convs[0]
	respondJSON(w, http.StatusOK, map[string]any{
		"conversation": map[string]string{
			"date":       conv.Date,
			"dialogue":   chat.Dialogue(conv),
			"session_id": conv.ID,
		},
	})
}

func (s *Server) handleConversationAnalytics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	convs, ok := s.loadConversations(w, r, userID, 0)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, chat.AnalyzeSessions(convs, time.Now()))
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if s.ocr == nil {
		respondError(w, http.StatusServiceUnavailable, "receipt recognition is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptUpload)
	if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		respondError(w, http.StatusBadRequest, "only image uploads are accepted")
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	text, err := s.ocr.DetectText(r.Context(), image)
	if err != nil {
		if errors.Is(err, receipt.ErrNoText) {
			respondError(w, http.StatusUnprocessableEntity, "no text recognized in image")
			return
		}
		s.logger.ErrorContext(r.Context(), "Receipt OCR failed", log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "receipt recognition failed")
		return
	}

	respondJSON(w, http.StatusOK, receipt.Parse(text, time.Now()))
}

type speechRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		respondError(w, http.StatusServiceUnavailable, "speech synthesis is not configured")
		return
	}

	var req speechRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	url, key, err := s.speech.Speak(r.Context(), req.UserID, req.Message)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Speech synthesis failed",
			log.FieldUserID, req.UserID, log.FieldError, err)
		respondError(w, http.StatusInternalServerError, "speech synthesis failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"url":    url,
		"s3_key": key,
	})
}

func (s *Server) handleSpeechReplay(w http.ResponseWriter, r *http.Request) {
	if s.speech == nil {
		respondError(w, http.StatusServiceUnavailable, "speech synthesis is not configured")
		return
	}

	filename := r.URL.Query().Get("filename")
	url, err := s.speech.ReplayURL(r.Context(), filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
