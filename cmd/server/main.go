// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"provider-verify/internal/common/aws"
	"provider-verify/internal/common/config"
	"provider-verify/internal/common/database"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/common/observability"
	"provider-verify/internal/common/shopify"
	"provider-verify/internal/notify"
	"provider-verify/internal/server"
	"provider-verify/internal/storage"
	"provider-verify/internal/verification"
	"provider-verify/internal/verification/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting provider verification service", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	tracing := observability.NewTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
	defer tracing.Shutdown()

	ctx := context.Background()

	// --- External customer store ---
	store := shopify.NewClient(cfg.Shopify, log)

	// --- Redis: per-applicant locks and single-use token markers ---
	redisClient, err := database.NewRedis(cfg.Redis)
	if err != nil {
		zapLog.Fatal("redis init failed", zap.Error(err))
	}
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx); err != nil {
		// Degraded but serviceable: locking and replay protection fall back
		// to their stateless paths.
		log.Warn("redis unreachable at startup", map[string]interface{}{"error": err.Error()})
	}
	cancel()

	// --- Document store ---
	files, err := storage.NewLocalStore(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes, log)
	if err != nil {
		zapLog.Fatal("upload dir init failed", zap.Error(err))
	}

	// --- Outbound messaging ---
	var mailer *notify.SESMailer
	var notifier *notify.SNSNotifier
	awsCfg := cfg.Integrations.AWS
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sesClient, err := aws.NewSESClient(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		snsClient, err := aws.NewSNSClient(ctx, awsCfg.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		mailer = notify.NewSESMailer(sesClient, awsCfg.SES.FromEmail, awsCfg.SES.Enabled, log)
		notifier = notify.NewSNSNotifier(snsClient, awsCfg.SNS.TopicARN, awsCfg.SNS.Enabled, log)
	} else {
		mailer = notify.NewSESMailer(nil, awsCfg.SES.FromEmail, false, log)
		notifier = notify.NewSNSNotifier(nil, awsCfg.SNS.TopicARN, false, log)
	}

	// --- Workflow service ---
	service := verification.NewService(verification.Dependencies{
		Store:    store,
		Files:    files,
		Mailer:   mailer,
		Notifier: notifier,
		Locks:    database.NewApplicantLocker(redisClient),
		Consumed: database.NewTokenConsumptionStore(redisClient),
		Tokens:   token.NewCodec(cfg.Verification.Secret, cfg.Verification.TokenTTL()),
		Tracing:  tracing,
		Obs:      obs,
		Logger:   log,
	}, verification.Config{
		FrontendURL: cfg.Verification.FrontendURL,
	})

	srv := server.New(cfg, service, files, redisClient, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	case sig := <-stop:
		log.Info("shutting down", map[string]interface{}{"signal": sig.String()})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
