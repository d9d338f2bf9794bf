// Package notify delivers award events to Telegram and websocket clients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"loyalty-ledger/internal/model"
)

// Sender is the part of *tele.Bot the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// NewBot creates a telebot instance. With poll unset the bot is offline:
// it can send but never polls for updates.
func NewBot(token string, poll bool) (*tele.Bot, error) {
	if token == "" {
		return nil, errors.New("telegram token is required")
	}

	pref := tele.Settings{
		Token:   token,
		Offline: !poll,
	}
	if poll {
		pref.Poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return b, nil
}

// Telegram posts award announcements to one chat.
type Telegram struct {
	sender Sender
	chat   *tele.Chat
	kinds  map[model.EntryKind]bool
}

// NewTelegram creates a notifier posting to chatID. When kinds is empty
// every award is announced; otherwise only the listed kinds and promotions.
func NewTelegram(sender Sender, chatID int64, kinds ...model.EntryKind) *Telegram {
	t := &Telegram{
		sender: sender,
		chat:   &tele.Chat{ID: chatID},
		kinds:  make(map[model.EntryKind]bool, len(kinds)),
	}
	for _, k := range kinds {
		t.kinds[k] = true
	}
	return t
}

// NotifyAward sends the announcement for evt.
func (t *Telegram) NotifyAward(ctx context.Context, evt model.AwardEvent) error {
	if len(t.kinds) > 0 && !t.kinds[evt.Kind] && !evt.Promoted() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.sender.Send(t.chat, FormatAward(evt)); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// FormatAward renders the chat message for an award.
func FormatAward(evt model.AwardEvent) string {
	name := evt.DisplayName
	if name == "" {
		name = fmt.Sprintf("Account #%d", evt.AccountID)
	}

	var sb strings.Builder
	if evt.Delta >= 0 {
		sb.WriteString(fmt.Sprintf("🎉 %s received +%d points (%s)\n", name, evt.Delta, kindLabel(evt.Kind)))
	} else {
		sb.WriteString(fmt.Sprintf("📝 %s was adjusted by %d points (%s)\n", name, evt.Delta, kindLabel(evt.Kind)))
	}
	sb.WriteString(fmt.Sprintf("💰 Loyalty points: %d | Coin: %d", evt.LoyaltyPoints, evt.Coin))
	if evt.Level != "" {
		sb.WriteString(fmt.Sprintf("\n🏅 Level: %s", evt.Level))
	}
	if evt.Promoted() {
		sb.WriteString(fmt.Sprintf("\n⬆️ Promoted from %s!", evt.PreviousLevel))
	}
	return sb.String()
}

func kindLabel(kind model.EntryKind) string {
	switch kind {
	case model.KindProfileCompletion:
		return "profile completed"
	case model.KindBCVerification:
		return "beauty consultant verified"
	case model.KindDailyLogin:
		return "daily login"
	case model.KindTaskApproval:
		return "task approved"
	case model.KindAdminGrant:
		return "admin grant"
	case model.KindAdminCorrection, model.KindAdminCoinCorrection:
		return "correction"
	default:
		return string(kind)
	}
}
