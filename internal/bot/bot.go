// Package bot provides the optional Telegram command surface: members can
// check their points and claim the daily bonus, admins can grant and
// correct balances.
package bot

import (
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot      *tele.Bot
	cfg      *config.Config
	accounts *service.AccountService
	awards   *service.AwardService
	ranking  *service.RankingService
	ledger   *service.LedgerService
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Bot      *tele.Bot
	Accounts *service.AccountService
	Awards   *service.AwardService
	Ranking  *service.RankingService
	Ledger   *service.LedgerService
}

// New creates a new Bot instance with the given dependencies. The telebot
// instance is shared with the award notifier, see notify.NewBot.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Bot == nil {
		return nil, errors.New("telegram bot instance is required")
	}

	b := &Bot{
		bot:      deps.Bot,
		cfg:      deps.Config,
		accounts: deps.Accounts,
		awards:   deps.Awards,
		ranking:  deps.Ranking,
		ledger:   deps.Ledger,
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.HandleStart)
	b.bot.Handle("/me", b.HandleMe)
	b.bot.Handle("/daily", b.HandleDaily)
	b.bot.Handle("/top", b.HandleTop)
	b.bot.Handle("/levels", b.HandleLevels)
	b.bot.Handle("/history", b.HandleHistory)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/grant", b.HandleGrant)
	adminGroup.Handle("/correct", b.HandleCorrect)
	adminGroup.Handle("/coinfix", b.HandleCoinFix)
	adminGroup.Handle("/verify", b.HandleVerify)
	adminGroup.Handle("/audit", b.HandleAudit)
}

// Start starts polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting telegram bot")
	b.bot.Start()
}

// Stop stops polling.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping telegram bot")
	b.bot.Stop()
}
