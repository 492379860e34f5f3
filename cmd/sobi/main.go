package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sobi/internal/advisor"
	"sobi/internal/amqp"
	"sobi/internal/chat"
	"sobi/internal/config"
	apphttp "sobi/internal/http"
	applog "sobi/internal/log"
	"sobi/internal/openai"
	"sobi/internal/receipt"
	"sobi/internal/speech"
	"sobi/internal/store"
	"sobi/internal/store/memory"
	mongostore "sobi/internal/store/mongo"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		users         store.UserReader
		diaries       store.DiaryStore
		conversations store.ConversationStore
	)
	switch cfg.DataBackend {
	case "mongo":
		db, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoTimeout)
		if err != nil {
			logger.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			_ = db.Close(closeCtx)
		}()
		users, diaries, conversations = db, db, db
		logger.Info("Initialized mongo backend", "database", cfg.MongoDB)
	default:
		mem := memory.New()
		users, diaries, conversations = mem, mem, mem
		logger.Info("Initialized memory backend")
	}

	var completer advisor.Completer
	var chatLLM chat.Completer
	if cfg.OpenAIAPIKey != "" {
		llm := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		completer, chatLLM = llm, llm
		logger.Info("LLM enabled", "model", cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, coach and chat run on fallbacks only")
	}

	var speechSvc *speech.Service
	if cfg.ElevenLabsAPIKey != "" {
		audioStore, err := speech.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			logger.Error("Failed to initialize audio storage", "error", err)
			os.Exit(1)
		}
		tts := speech.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice)
		speechSvc = speech.NewService(tts, audioStore, logger.Logger)
		logger.Info("Speech synthesis enabled", "bucket", cfg.S3Bucket)
	} else {
		logger.Info("Speech synthesis disabled - no ELEVENLABS_API_KEY provided")
	}

	var ocr receipt.TextDetector
	if detector, err := receipt.NewVisionDetector(ctx, cfg.GoogleCredentialsJSON); err != nil {
		logger.Warn("Receipt OCR disabled", "error", err)
	} else {
		ocr = detector
		logger.Info("Receipt OCR enabled")
	}

	var jobs apphttp.SpeechJobPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		jobs = client
		logger.Info("Speech job queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Speech job queue disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Users:         users,
		Diaries:       diaries,
		Conversations: conversations,
		Advisor:       advisor.New(completer, advisor.DefaultConfig()),
		Chat:          chat.NewService(chatLLM, logger.Logger),
		Speech:        speechSvc,
		OCR:           ocr,
		Jobs:          jobs,
		Logger:        logger,
		FallbackMonth: cfg.FallbackMonth,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting sobi server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
