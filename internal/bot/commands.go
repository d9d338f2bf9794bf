package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/auth"
	"loyalty-ledger/internal/service"
)

const (
	commandTimeout = 10 * time.Second
	defaultTop     = 10
	maxTop         = 50
	historyLimit   = 10
	auditShown     = 10
)

// SubjectPrefix namespaces Telegram user ids among external subjects.
const SubjectPrefix = "telegram:"

// Subject returns the external subject for a Telegram user.
func Subject(userID int64) string {
	return SubjectPrefix + strconv.FormatInt(userID, 10)
}

func displayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// resolve maps the sender to its account, creating it on first contact.
func (b *Bot) resolve(ctx context.Context, u *tele.User) (*model.Account, error) {
	return b.accounts.Resolve(ctx, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: Subject(u.ID)},
		Name:             displayName(u),
	})
}

// HandleStart handles the /start command.
func (b *Bot) HandleStart(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}

	p := b.ranking.ProgressFor(acct)
	return c.Reply(fmt.Sprintf(
		"👋 Welcome, %s!\n\n"+
			"🆔 Account: #%d\n"+
			"💰 Loyalty points: %d | Coin: %d\n"+
			"🏅 Level: %s\n\n"+
			"Commands:\n"+
			"/me - your standing\n"+
			"/daily - daily login bonus\n"+
			"/top - top members\n"+
			"/levels - level table\n"+
			"/history - recent entries",
		acct.DisplayName, acct.ID, acct.LoyaltyPoints, acct.Coin, p.Current.Name,
	))
}

// HandleMe handles the /me command.
func (b *Bot) HandleMe(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}
	st, err := b.ranking.Standing(ctx, acct.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(formatStanding(st))
}

func formatStanding(st *service.Standing) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("👤 %s (#%d)\n", st.Account.DisplayName, st.Account.ID))
	sb.WriteString(fmt.Sprintf("💰 Loyalty points: %d | Coin: %d\n", st.Account.LoyaltyPoints, st.Account.Coin))
	sb.WriteString(fmt.Sprintf("🏅 Level: %s (%s)", st.Progress.Current.Name, st.Progress.Current.Category))
	if st.Progress.Next != nil {
		sb.WriteString(fmt.Sprintf("\n⏭ %d points to %s (%d%%)", st.Progress.PointsToNext, st.Progress.Next.Name, st.Progress.Percent))
	} else {
		sb.WriteString("\n👑 Top level reached")
	}
	if st.Position > 0 {
		sb.WriteString(fmt.Sprintf("\n📊 Leaderboard position: %d", st.Position))
	}
	return sb.String()
}

// HandleDaily handles the /daily command.
func (b *Bot) HandleDaily(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}

	out, err := b.awards.DailyLogin(ctx, acct.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if out.Duplicate {
		return c.Reply(fmt.Sprintf("✅ Already claimed today.\n💰 Loyalty points: %d", out.LoyaltyPoints))
	}
	return c.Reply(formatOutcome("🎉 Daily login", out))
}

// HandleTop handles the /top command.
// Format: /top [count]
func (b *Bot) HandleTop(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	limit := defaultTop
	if args := c.Args(); len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxTop {
			return c.Reply(fmt.Sprintf("❌ Usage: /top [1-%d]", maxTop))
		}
		limit = n
	}

	accounts, err := b.ranking.TopAccounts(ctx, limit)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(accounts) == 0 {
		return c.Reply("📊 Nobody has points yet")
	}

	var sb strings.Builder
	sb.WriteString("🏆 Top members\n")
	for i, a := range accounts {
		level := b.ranking.ProgressFor(a).Current.Name
		sb.WriteString(fmt.Sprintf("\n%d. %s - %d (%s)", i+1, a.DisplayName, a.LoyaltyPoints, level))
	}
	return c.Reply(sb.String())
}

// HandleLevels handles the /levels command.
func (b *Bot) HandleLevels(c tele.Context) error {
	var sb strings.Builder
	sb.WriteString("🏅 Levels")
	category := ""
	for _, l := range b.ranking.Levels() {
		if l.Category != category {
			category = l.Category
			sb.WriteString(fmt.Sprintf("\n\n%s", category))
		}
		sb.WriteString(fmt.Sprintf("\n%d. %s - %d+", l.Rank, l.Name, l.MinPoints))
	}
	return c.Reply(sb.String())
}

// HandleHistory handles the /history command.
func (b *Bot) HandleHistory(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	acct, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}
	entries, err := b.ledger.History(ctx, acct.ID, historyLimit)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(entries) == 0 {
		return c.Reply("📜 No ledger entries yet")
	}

	var sb strings.Builder
	sb.WriteString("📜 Recent entries\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("\n%s %+d %s", e.CreatedAt.Format("2006-01-02 15:04"), e.CoinDelta, e.Kind))
	}
	return c.Reply(sb.String())
}

// HandleGrant handles the /grant command.
// Format: /grant <account_id> <amount> [key]
func (b *Bot) HandleGrant(c tele.Context) error {
	return b.adminAward(c, "/grant", func(ctx context.Context, actor, target, amount int64, key string) (*service.Outcome, error) {
		if amount <= 0 {
			return nil, fmt.Errorf("%w: amount must be positive", model.ErrInvalidArgument)
		}
		return b.awards.AdminGrant(ctx, actor, target, amount, key)
	})
}

// HandleCorrect handles the /correct command. The amount is signed.
// Format: /correct <account_id> <amount> [key]
func (b *Bot) HandleCorrect(c tele.Context) error {
	return b.adminAward(c, "/correct", b.awards.AdminCorrection)
}

// HandleCoinFix handles the /coinfix command. Only coin moves.
// Format: /coinfix <account_id> <amount> [key]
func (b *Bot) HandleCoinFix(c tele.Context) error {
	return b.adminAward(c, "/coinfix", b.awards.AdminCoinCorrection)
}

type adminAwardFunc func(ctx context.Context, actorID, accountID, amount int64, key string) (*service.Outcome, error)

func (b *Bot) adminAward(c tele.Context, command string, apply adminAwardFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	targetID, amount, key, err := parseAdminArgs(c.Args(), command)
	if err != nil {
		return c.Reply(err.Error())
	}

	actor, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}

	out, err := apply(ctx, actor.ID, targetID, amount, key)
	if err != nil {
		return c.Reply(errorText(err))
	}

	log.Info().
		Int64("admin_id", sender.ID).
		Int64("actor_account_id", actor.ID).
		Int64("target_id", targetID).
		Int64("amount", amount).
		Str("operation", strings.TrimPrefix(command, "/")).
		Bool("duplicate", out.Duplicate).
		Msg("Admin operation executed")

	if out.Duplicate {
		return c.Reply(fmt.Sprintf("ℹ️ Key %q was already applied to #%d, nothing changed", key, targetID))
	}
	return c.Reply(formatOutcome(fmt.Sprintf("✅ Account #%d", targetID), out))
}

// HandleVerify handles the /verify command, the beauty consultant bonus.
// Format: /verify <account_id>
func (b *Bot) HandleVerify(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 1 {
		return c.Reply("❌ Usage: /verify <account_id>")
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID <= 0 {
		return c.Reply("❌ Account ID must be a positive number")
	}

	actor, err := b.resolve(ctx, sender)
	if err != nil {
		return c.Reply(errorText(err))
	}
	out, err := b.awards.BeautyConsultantVerified(ctx, &actor.ID, targetID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if out.Duplicate {
		return c.Reply(fmt.Sprintf("ℹ️ Account #%d is already verified", targetID))
	}
	return c.Reply(formatOutcome(fmt.Sprintf("✅ Account #%d verified", targetID), out))
}

// HandleAudit handles the /audit command.
func (b *Bot) HandleAudit(c tele.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	found, err := b.ledger.Audit(ctx)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(found) == 0 {
		return c.Reply("✅ All balances match the ledger")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⚠️ %d account(s) out of sync\n", len(found)))
	for i, d := range found {
		if i == auditShown {
			sb.WriteString(fmt.Sprintf("\n... and %d more", len(found)-auditShown))
			break
		}
		sb.WriteString(fmt.Sprintf("\n#%d points %d/%d coin %d/%d",
			d.AccountID, d.LoyaltyPoints, d.LedgerLoyalty, d.Coin, d.LedgerCoin))
	}
	return c.Reply(sb.String())
}

// parseAdminArgs parses <account_id> <amount> [key].
func parseAdminArgs(args []string, command string) (int64, int64, string, error) {
	if len(args) < 2 {
		return 0, 0, "", fmt.Errorf("❌ Usage: %s <account_id> <amount> [key]\nExample: %s 42 100", command, command)
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || targetID <= 0 {
		return 0, 0, "", errors.New("❌ Account ID must be a positive number")
	}

	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount == 0 {
		return 0, 0, "", errors.New("❌ Amount must be a non-zero integer")
	}

	var key string
	if len(args) > 2 {
		key = args[2]
	}
	return targetID, amount, key, nil
}

func formatOutcome(title string, out *service.Outcome) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: %+d\n", title, out.Delta))
	sb.WriteString(fmt.Sprintf("💰 Loyalty points: %d | Coin: %d", out.LoyaltyPoints, out.Coin))
	if out.Level != "" {
		sb.WriteString(fmt.Sprintf("\n🏅 Level: %s", out.Level))
	}
	if out.Promoted {
		sb.WriteString("\n⬆️ Promoted!")
	}
	return sb.String()
}

// errorText turns a service error into a chat reply.
func errorText(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		return "❌ " + err.Error()
	case errors.Is(err, model.ErrAccountNotFound):
		return "❌ Account not found"
	case errors.Is(err, model.ErrConcurrencyConflict):
		return "⏳ Too many concurrent updates, please retry"
	default:
		log.Error().Err(err).Msg("Bot command failed")
		return "❌ Internal error, please try again later"
	}
}
