package bot

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"loyalty-ledger/internal/config"
)

func drawIDs(t *rapid.T, label string, sign int64) []int64 {
	n := rapid.IntRange(1, 10).Draw(t, "n"+label)
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = sign * rapid.Int64Range(1, 1000000000).Draw(t, label)
	}
	return ids
}

// A user is a bot admin if and only if their id is listed.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := drawIDs(t, "adminID", 1)
		cfg := &config.Config{Bot: config.BotConfig{Admins: adminIDs}}

		known := rapid.SampledFrom(adminIDs).Draw(t, "known")
		if !cfg.IsBotAdmin(known) {
			t.Fatalf("listed admin %d not recognized, admins=%v", known, adminIDs)
		}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		if cfg.IsBotAdmin(userID) != slices.Contains(adminIDs, userID) {
			t.Fatalf("admin check mismatch: userID=%d, admins=%v", userID, adminIDs)
		}
	})
}

// A group chat passes if and only if it is whitelisted, and an empty
// whitelist lets every chat through.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs := drawIDs(t, "chatID", -1)
		cfg := &config.Config{Bot: config.BotConfig{Chats: chatIDs}}

		known := rapid.SampledFrom(chatIDs).Draw(t, "known")
		if !cfg.IsChatAllowed(known) {
			t.Fatalf("whitelisted chat %d rejected, chats=%v", known, chatIDs)
		}

		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "testChatID")
		if cfg.IsChatAllowed(chatID) != slices.Contains(chatIDs, chatID) {
			t.Fatalf("whitelist mismatch: chatID=%d, chats=%v", chatID, chatIDs)
		}

		open := &config.Config{}
		if !open.IsChatAllowed(chatID) {
			t.Fatalf("empty whitelist rejected chat %d", chatID)
		}
	})
}

func TestPrivateUserCacheProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		AllowPrivateUser(userID)
		if !IsPrivateUserAllowed(userID) {
			t.Fatalf("user %d should be allowed after being cached", userID)
		}
	})
}

func passThrough(called *bool) tele.HandlerFunc {
	return func(tele.Context) error {
		*called = true
		return nil
	}
}

func TestWhitelistMiddleware(t *testing.T) {
	cfg := &config.Config{Bot: config.BotConfig{Chats: []int64{-100}, Admins: []int64{7}}}
	mw := WhitelistMiddleware(cfg)

	tests := []struct {
		name   string
		ctx    *fakeContext
		passed bool
	}{
		{
			name:   "whitelisted group",
			ctx:    &fakeContext{sender: &tele.User{ID: 2000000001}, chat: &tele.Chat{ID: -100, Type: tele.ChatGroup}},
			passed: true,
		},
		{
			name: "foreign group",
			ctx:  &fakeContext{sender: &tele.User{ID: 2000000002}, chat: &tele.Chat{ID: -200, Type: tele.ChatGroup}},
		},
		{
			name: "unknown private user",
			ctx:  &fakeContext{sender: &tele.User{ID: 2000000003}, chat: &tele.Chat{ID: 2000000003, Type: tele.ChatPrivate}},
		},
		{
			name:   "admin in private",
			ctx:    &fakeContext{sender: &tele.User{ID: 7}, chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate}},
			passed: true,
		},
		{
			name: "no sender",
			ctx:  &fakeContext{chat: &tele.Chat{ID: -100, Type: tele.ChatGroup}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			require.NoError(t, mw(passThrough(&called))(tt.ctx))
			assert.Equal(t, tt.passed, called)
		})
	}

	// Seen in a whitelisted group, the user may now talk in private.
	assert.True(t, IsPrivateUserAllowed(2000000001))
	var called bool
	private := &fakeContext{sender: &tele.User{ID: 2000000001}, chat: &tele.Chat{ID: 2000000001, Type: tele.ChatPrivate}}
	require.NoError(t, mw(passThrough(&called))(private))
	assert.True(t, called)
}

func TestAdminMiddleware(t *testing.T) {
	mw := AdminMiddleware(&config.Config{Bot: config.BotConfig{Admins: []int64{7}}})

	var called bool
	c := newContext(8, "intruder")
	require.NoError(t, mw(passThrough(&called))(c))
	assert.False(t, called)
	assert.Equal(t, "❌ Permission denied: admin only", c.last())

	c = newContext(7, "admin")
	require.NoError(t, mw(passThrough(&called))(c))
	assert.True(t, called)
	assert.Empty(t, c.replies)
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := RecoveryMiddleware()
	c := newContext(1, "ayu")

	err := mw(func(tele.Context) error { panic("boom") })(c)
	require.NoError(t, err)
	assert.Contains(t, c.last(), "Internal error")

	want := errors.New("handler failed")
	assert.ErrorIs(t, mw(func(tele.Context) error { return want })(c), want)
}
