package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/biz/repo"
	"github.com/keywatch/keywatch/internal/biz/usecase"
	"github.com/keywatch/keywatch/internal/conf"
	"github.com/keywatch/keywatch/internal/data"
	"github.com/keywatch/keywatch/internal/infra/lark"
	"github.com/keywatch/keywatch/internal/infra/mail"
	"github.com/keywatch/keywatch/internal/matching"
	"github.com/keywatch/keywatch/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Matching engine: built-in defaults overlaid with the optional
	// YAML language-data file.
	matchCfg, err := conf.LoadMatchingConfig(cfg.MatchingConfigPath)
	if err != nil {
		log.Fatalf("Failed to load matching config: %v", err)
	}
	engine, err := matching.NewEngine(matchCfg)
	if err != nil {
		log.Fatalf("Invalid matching config: %v", err)
	}

	// Repository layer
	repos, err := data.NewRepositories(cfg.Storage.DBPath, logger)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()
	logger.Info("storage opened", zap.String("db", cfg.Storage.DBPath))

	ctx := context.Background()

	// Usecase layer
	keywordUC, err := usecase.NewKeywordUsecase(ctx, repos.Keyword, engine, logger)
	if err != nil {
		log.Fatalf("Failed to load keyword index: %v", err)
	}
	detectUC := usecase.NewDetectUsecase(keywordUC, engine)

	// Transports: chat is required, email optional.
	larkClient := lark.NewClient(cfg.Lark.AppID, cfg.Lark.AppSecret, logger)
	senders := []repo.ChannelSender{larkClient}
	if cfg.SMTP.Enabled() {
		senders = append(senders, mail.NewClient(cfg.SMTP.Host, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Pass, logger))
		logger.Info("email channel enabled", zap.String("relay", cfg.SMTP.Host))
	}

	// Service layer
	disp := service.NewDispatcher(senders, repos.Recipient, cfg.Dispatch.Retries, cfg.Dispatch.Backoff, logger)
	escalator := service.NewEscalator(repos.Reminder, disp, cfg.Escalation.Schedule, logger)
	monitor := service.NewMonitor(detectUC, keywordUC, escalator, disp, repos.Recipient, cfg.AckPhrase, logger)

	larkClient.OnEvent(monitor.HandleEvent)

	// Re-arm timers for reminders that survived a restart.
	if err := escalator.Recover(ctx); err != nil {
		log.Fatalf("Failed to recover reminders: %v", err)
	}

	// Hot reload of the language-data file.
	var watcher *service.ConfigWatcher
	if cfg.MatchingConfigPath != "" {
		watcher = service.NewConfigWatcher(cfg.MatchingConfigPath, engine, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
			watcher = nil
		}
	}

	// Connect the chat event stream.
	go func() {
		if err := larkClient.Start(ctx); err != nil {
			logger.Fatal("lark connection failed", zap.Error(err))
		}
	}()

	logger.Info("keywatchd started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	larkClient.Stop()
	if watcher != nil {
		watcher.Stop()
	}
	escalator.Stop()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
