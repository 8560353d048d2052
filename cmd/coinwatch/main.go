// Coinwatch - new listing & rapid move alerts for Telegram
//
// Polls the CoinGecko markets listing on a fixed interval and relays:
// 1. Coins seen for the first time (above a market-cap floor)
// 2. Coins whose short-window price change exceeds a threshold
//
// The operator can /mute and /unmute delivery from the chat at any time.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/web3guy0/coinwatch/internal/bot"
	"github.com/web3guy0/coinwatch/internal/coingecko"
	"github.com/web3guy0/coinwatch/internal/config"
	"github.com/web3guy0/coinwatch/internal/database"
	"github.com/web3guy0/coinwatch/internal/dedup"
	"github.com/web3guy0/coinwatch/internal/mute"
	"github.com/web3guy0/coinwatch/internal/notifier"
	"github.com/web3guy0/coinwatch/internal/watcher"
)

const version = "1.0.0"

func main() {
	envFile := pflag.String("env-file", ".env", "path to a .env file")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(*envFile); err != nil {
		log.Warn().Str("file", *envFile).Msg("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug || *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Dur("interval", cfg.PollInterval).
		Str("floor", cfg.MarketCapFloor.String()).
		Str("move_threshold", cfg.RapidMoveThreshold.String()).
		Str("move_window", string(cfg.RapidMoveWindow)).
		Bool("floor_gates_moves", cfg.FloorGatesRapidMove).
		Msg("👀 Coinwatch starting...")

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ====== SHARED STATE ======

	muteCtl := mute.NewController()
	seen := dedup.NewStore()

	// ====== ALERT JOURNAL ======

	var db *database.Database
	if cfg.DatabasePath != "" {
		db, err = database.New(cfg.DatabasePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()
	} else {
		log.Warn().Msg("DATABASE_PATH empty, alert journal disabled")
	}

	// ====== TELEGRAM ======

	telegramBot, err := bot.NewTelegramBot(cfg.TelegramToken, cfg.TelegramChatID, muteCtl)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	// ====== DETECTION PIPELINE ======

	gecko := coingecko.NewClient(
		coingecko.WithBaseURL(cfg.CoinGeckoAPIURL),
		coingecko.WithAPIKey(cfg.CoinGeckoAPIKey),
		coingecko.WithTimeout(cfg.EffectiveFetchTimeout()),
		coingecko.WithRequest(coingecko.Request{
			VsCurrency: cfg.VsCurrency,
			Order:      cfg.MarketOrder,
			PerPage:    cfg.PerPage,
			Page:       cfg.Page,
		}),
	)

	classifier := watcher.NewClassifier(watcher.Rules{
		MarketCapFloor:      cfg.MarketCapFloor,
		RapidMoveThreshold:  cfg.RapidMoveThreshold,
		RapidMoveWindow:     cfg.RapidMoveWindow,
		FloorGatesRapidMove: cfg.FloorGatesRapidMove,
	}, seen)

	notifyOpts := []notifier.Option{
		notifier.WithRenderer(notifier.NewRenderer(cfg.SourceLabel, cfg.VsCurrency)),
	}
	if db != nil {
		notifyOpts = append(notifyOpts, notifier.WithJournal(db))
	}
	alerts := notifier.New(telegramBot, cfg.TelegramChatID, muteCtl, notifyOpts...)

	w := watcher.New(gecko, classifier, alerts, seen, watcher.Options{
		Interval:           cfg.PollInterval,
		FirstDelay:         cfg.FirstPollDelay,
		FetchTimeout:       cfg.EffectiveFetchTimeout(),
		BaselineFirstCycle: cfg.BaselineFirstCycle,
	})

	telegramBot.SetStatusProvider(w)
	if db != nil {
		telegramBot.SetAlertHistory(db)
	}

	// ====== START ======

	telegramBot.NotifyStartup(ctx, cfg.PollInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return telegramBot.Run(gctx) })
	g.Go(func() error { return w.Run(gctx) })

	log.Info().Msg("✅ All systems online - use /help in Telegram for commands")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Stopped with error")
	}

	log.Info().Msg("👋 Goodbye!")
}
