// Package http exposes the service over a chi router: consumption
// summaries, the budget coach, the emotion diary, chatbot conversation
// history, receipt OCR, chat and speech synthesis.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sobi/internal/advisor"
	"sobi/internal/cache"
	"sobi/internal/chat"
	"sobi/internal/log"
	"sobi/internal/receipt"
	"sobi/internal/speech"
	"sobi/internal/store"
)

// SpeechJobPublisher enqueues asynchronous synthesis jobs.
type SpeechJobPublisher interface {
	PublishSpeechJob(ctx context.Context, entryID, userID, text string) error
}

// Deps carries the collaborators the server needs. Speech, OCR and Jobs
// may be nil when the corresponding integration is not configured; the
// affected routes answer 503.
type Deps struct {
	Users         store.UserReader
	Diaries       store.DiaryStore
	Conversations store.ConversationStore
	Advisor       *advisor.Advisor
	Chat          *chat.Service
	Speech        *speech.Service
	OCR           receipt.TextDetector
	Jobs          SpeechJobPublisher
	Logger        *log.Logger

	FallbackMonth string
}

const llmRouteLimit = 60 // requests per IP per minute on paid routes

// Advice memoization bounds. Keys rotate with the resolved month, so a
// few minutes of reuse only ever serves advice for current data.
const (
	adviceCacheSize = 100
	adviceCacheTTL  = 5 * time.Minute
	cacheSweepEvery = 10 * time.Minute
)

type Server struct {
	http.Server

	users         store.UserReader
	diaries       store.DiaryStore
	conversations store.ConversationStore
	advisor       *advisor.Advisor
	chat          *chat.Service
	speech        *speech.Service
	ocr           receipt.TextDetector
	jobs          SpeechJobPublisher
	logger        *log.Logger

	fallbackMonth string

	limiter     *rateLimiter
	adviceCache *cache.TTLCache[advisor.Advice]
	janitor     *cache.Janitor
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	s := &Server{
		users:         deps.Users,
		diaries:       deps.Diaries,
		conversations: deps.Conversations,
		advisor:       deps.Advisor,
		chat:          deps.Chat,
		speech:        deps.Speech,
		ocr:           deps.OCR,
		jobs:          deps.Jobs,
		logger:        deps.Logger.WithComponent(log.ComponentHTTP),
		fallbackMonth: deps.FallbackMonth,
		limiter:       newRateLimiter(llmRouteLimit),
		adviceCache:   cache.New[advisor.Advice](adviceCacheSize, adviceCacheTTL),
		janitor:       cache.NewJanitor(cacheSweepEvery),
	}
	s.janitor.Track(s.adviceCache)
	s.janitor.Start()

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	router.Use(log.Middleware(deps.Logger))
	router.Use(s.requestLogging)

	router.Get("/healthz", s.handleHealth)
	router.Get("/readyz", s.handleReady)

	router.Route("/summary", func(r chi.Router) {
		r.Get("/{user_id}", s.handleSummary)
		r.Get("/{user_id}/months", s.handleMonths)
	})
	router.Get("/actuals/{user_id}", s.handleActuals)
	router.Get("/coach/{user_id}", s.withRateLimit(s.handleCoach))
	router.Post("/chat", s.withRateLimit(s.handleChat))

	router.Route("/diary", func(r chi.Router) {
		r.Get("/entries/{user_id}", s.handleDiaryList)
		r.Post("/entries/{user_id}", s.handleDiaryCreate)
		r.Get("/analytics/{user_id}", s.handleDiaryAnalytics)
	})

	router.Route("/conversations", func(r chi.Router) {
		r.Post("/{user_id}", s.handleConversationCreate)
		r.Get("/{user_id}", s.handleConversationList)
		r.Get("/{user_id}/latest", s.handleConversationLatest)
		r.Get("/{user_id}/analytics", s.handleConversationAnalytics)
	})

	router.Post("/receipt", s.handleReceipt)
	router.Post("/speech", s.withRateLimit(s.handleSpeech))
	router.Get("/speech/replay", s.handleSpeechReplay)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// requestLogging logs start and completion of every request with the
// status code captured from the response.
func (s *Server) requestLogging(next http.Handler) http.Handler {
	structured := log.NewStructuredLogger(s.logger)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		structured.LogHTTPStart(r.Context(), r, r.RemoteAddr)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		structured.LogHTTPEnd(r.Context(), r, ww.Status(), time.Since(start).Milliseconds(), r.RemoteAddr)
	})
}

// Shutdown stops background cleanup and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	s.janitor.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
