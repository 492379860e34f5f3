package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"sobi/internal/amqp"
	"sobi/internal/config"
	applog "sobi/internal/log"
	"sobi/internal/speech"
	"sobi/internal/store"
	"sobi/internal/store/memory"
	mongostore "sobi/internal/store/mongo"
	"sobi/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentWorker})
	applog.SetDefault(logger)

	logger.Info("Starting sobi-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.ElevenLabsAPIKey == "" {
		logger.Error("ELEVENLABS_API_KEY is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var diaries store.DiaryStore
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
		diaries = db
	default:
		diaries = memory.New()
		logger.Warn("Using memory backend, audio URLs will not survive restarts")
	}

	audioStore, err := speech.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		logger.Error("Failed to initialize audio storage", "error", err)
		os.Exit(1)
	}
	tts := speech.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoice)
	speechSvc := speech.NewService(tts, audioStore, logger.Logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	speechWorker := worker.NewSpeechWorker(speechSvc, diaries)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeSpeechJobs(gctx, func(msg *amqp.SpeechJobMessage) error {
			return speechWorker.HandleSpeechJob(gctx, msg)
		})
	})

	logger.Info("Worker consuming speech jobs", "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
