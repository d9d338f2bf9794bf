// Package main is the entry point for the loyalty ledger service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"loyalty-ledger/internal/award"
	"loyalty-ledger/internal/bot"
	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/leaderboard"
	"loyalty-ledger/internal/notify"
	"loyalty-ledger/internal/pkg/auth"
	"loyalty-ledger/internal/pkg/db"
	"loyalty-ledger/internal/pkg/metrics"
	"loyalty-ledger/internal/ranking"
	"loyalty-ledger/internal/repository"
	"loyalty-ledger/internal/server"
	"loyalty-ledger/internal/service"
)

// stores groups the storage backends the services depend on.
type stores struct {
	accounts service.AccountStore
	ledger   service.LedgerStore
	ping     func(ctx context.Context) error
	close    func()
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	log.Info().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer st.close()

	levels := ranking.DefaultTable()
	if cfg.Ranking.LevelsFile != "" {
		if levels, err = ranking.LoadFile(cfg.Ranking.LevelsFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load level table")
		}
	}

	roster := leaderboard.DefaultRoster()
	if cfg.Leaderboard.RosterFile != "" {
		if roster, err = leaderboard.LoadRosterFile(cfg.Leaderboard.RosterFile); err != nil {
			log.Fatal().Err(err).Msg("Failed to load leaderboard roster")
		}
	}
	board, err := leaderboard.NewBoard(leaderboard.DefaultSlots(), roster, cfg.Leaderboard.Cut, cfg.Leaderboard.SlotCount)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build leaderboard")
	}

	rules, err := award.NewRegistry(award.DefaultRules(cfg.Awards)...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register award rules")
	}
	loc, err := cfg.Awards.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load awards timezone")
	}

	log.Info().
		Int("levels", levels.Len()).
		Int("roster", roster.Len()).
		Int("rules", rules.Count()).
		Msg("Award rules registered")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.NewLedger(reg)

	hub := notify.NewHub(cfg.Server.AllowedOrigins...)
	go hub.Run(ctx)

	notifiers := notify.Multi{hub}
	var tb *tele.Bot
	if cfg.Notify.TelegramToken != "" {
		if tb, err = notify.NewBot(cfg.Notify.TelegramToken, cfg.Bot.Enabled); err != nil {
			log.Fatal().Err(err).Msg("Failed to create telegram bot")
		}
		if cfg.Notify.TelegramChatID != 0 {
			notifiers = append(notifiers, notify.NewTelegram(tb, cfg.Notify.TelegramChatID))
		}
	}

	accountService := service.NewAccountService(st.accounts)
	ledgerService := service.NewLedgerService(st.ledger, cfg.Ledger, ledgerMetrics)
	rankingService := service.NewRankingService(st.accounts, levels, board)
	awardService := service.NewAwardService(ledgerService, st.accounts, rules, levels, notifiers, ledgerMetrics, loc)

	var commandBot *bot.Bot
	if cfg.Bot.Enabled {
		commandBot, err = bot.New(&bot.Dependencies{
			Config:   cfg,
			Bot:      tb,
			Accounts: accountService,
			Awards:   awardService,
			Ranking:  rankingService,
			Ledger:   ledgerService,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
	}

	srv := server.New(&server.Dependencies{
		Config:   cfg,
		Tokens:   auth.NewService(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Accounts: accountService,
		Ledger:   ledgerService,
		Awards:   awardService,
		Ranking:  rankingService,
		Hub:      hub,
		Gatherer: reg,
		Metrics:  metrics.NewHTTP(reg),
		Ping:     st.ping,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	if commandBot != nil {
		go func() {
			log.Info().Msg("Bot is starting...")
			commandBot.Start()
		}()
	}

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	if commandBot != nil {
		commandBot.Stop()
		log.Info().Msg("Bot stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()
	log.Info().Msg("Service stopped gracefully")
}

// setupLogger applies the configured level and output format.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// openStores connects the configured storage driver. The postgres driver
// runs migrations before returning.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage, balances are lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{accounts: mem, ledger: mem, close: func() {}}, nil
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		accounts: repository.NewAccountRepository(pool.Pool),
		ledger:   repository.NewLedgerRepository(pool.Pool),
		ping:     pool.HealthCheck,
		close:    pool.Close,
	}, nil
}
