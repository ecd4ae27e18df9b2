package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/raine/pup-ancestry-bot/config"
	"github.com/raine/pup-ancestry-bot/internal/bot"
	"github.com/raine/pup-ancestry-bot/internal/llm"
	"github.com/raine/pup-ancestry-bot/internal/storage"
)

const logFileName = "pup-ancestry-bot.log"

// cacheMaxAge is how long cached analyses are kept.
const cacheMaxAge = 30 * 24 * time.Hour

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Try to load existing config file
	config.LoadEnvFile()

	// Check if required config is missing
	if missing := config.CheckRequired(); len(missing) > 0 {
		if isInteractiveTerminal() {
			if !runSetupWizard() {
				waitOnWindows()
				os.Exit(1)
			}
		} else {
			// Non-interactive (systemd, k8s, etc.) - fail with clear error
			fatalWithWait("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// Skip file logging under systemd (journald handles it, and ProtectSystem=strict
	// makes the working directory read-only).
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatalWithWait("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatalWithWait("invalid configuration: %v", err)
	}

	tg, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		fatalWithWait("failed to initialize telegram bot: %v", err)
	}
	tg.Debug = false
	log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

	// Register bot commands for Telegram's command menu
	bot.RegisterCommands(tg)

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	geminiAnalyzer, err := llm.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		fatalWithWait("failed to initialize gemini vision analyzer: %v", err)
	}

	var analyzer llm.Analyzer = geminiAnalyzer
	if cfg.CacheDBPath != "" {
		store, err := storage.NewSQLiteStore(cfg.CacheDBPath)
		if err != nil {
			fatalWithWait("failed to initialize analysis cache: %v", err)
		}
		defer store.Close()

		if pruned, err := store.PruneAnalyses(cacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("failed to prune analysis cache")
		} else if pruned > 0 {
			log.Info().Int64("pruned", pruned).Msg("pruned stale cached analyses")
		}

		analyzer = llm.NewCachedAnalyzer(geminiAnalyzer, store)
		log.Info().Str("dbPath", cfg.CacheDBPath).Msg("analysis caching enabled")
	}

	if gemini := llm.GetGeminiAnalyzer(analyzer); gemini != nil {
		log.Info().Str("model", gemini.Model()).Msg("gemini vision analyzer initialized")
	}

	client := llm.NewClient(analyzer, cfg.AnalysisTimeout)
	b := bot.NewBot(tg, client, cfg.MaxImages)

	g, ctx := errgroup.WithContext(ctx)

	// Run bot update loop
	g.Go(func() error {
		return runBot(ctx, tg, b)
	})

	err = g.Wait()
	b.Shutdown()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runBot(ctx context.Context, tg *tgbotapi.BotAPI, b *bot.Bot) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := tg.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping bot update loop")
			tg.StopReceivingUpdates()
			log.Info().Msg("waiting for active handlers to finish")
			wg.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Warn().Msg("updates channel closed")
				wg.Wait()
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}
