package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"loyalty-ledger/internal/model"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	to   []string
	err  error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.to = append(f.to, to.Recipient())
	f.sent = append(f.sent, what.(string))
	return &tele.Message{}, nil
}

func sampleEvent() model.AwardEvent {
	return model.AwardEvent{
		AccountID:     7,
		DisplayName:   "Ayu",
		Kind:          model.KindTaskApproval,
		Reason:        "task_approval:sub-1",
		Delta:         30,
		LoyaltyPoints: 1510,
		Coin:          1510,
		Level:         "Laza",
		PreviousLevel: "Jahannam",
		At:            time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
	}
}

func TestTelegram_NotifyAward(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, -100123)

	require.NoError(t, n.NotifyAward(context.Background(), sampleEvent()))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "-100123", sender.to[0])
	assert.Contains(t, sender.sent[0], "Ayu received +30 points (task approved)")
	assert.Contains(t, sender.sent[0], "Loyalty points: 1510 | Coin: 1510")
	assert.Contains(t, sender.sent[0], "Promoted from Jahannam")
}

func TestTelegram_KindFilter(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender, 1, model.KindBCVerification)

	evt := sampleEvent()
	evt.Level = evt.PreviousLevel
	require.NoError(t, n.NotifyAward(context.Background(), evt))
	assert.Empty(t, sender.sent)

	// Promotions are always announced.
	require.NoError(t, n.NotifyAward(context.Background(), sampleEvent()))
	assert.Len(t, sender.sent, 1)
}

func TestTelegram_Errors(t *testing.T) {
	sender := &fakeSender{err: errors.New("network down")}
	n := NewTelegram(sender, 1)
	assert.Error(t, n.NotifyAward(context.Background(), sampleEvent()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewTelegram(&fakeSender{}, 1).NotifyAward(ctx, sampleEvent()), context.Canceled)

	_, err := NewBot("", false)
	assert.Error(t, err)
}

func TestFormatAward(t *testing.T) {
	evt := sampleEvent()
	evt.DisplayName = ""
	evt.Kind = model.KindAdminCorrection
	evt.Delta = -10
	evt.Level = ""

	msg := FormatAward(evt)
	assert.True(t, strings.HasPrefix(msg, "📝 Account #7 was adjusted by -10 points (correction)"))
	assert.NotContains(t, msg, "Level")
	assert.NotContains(t, msg, "Promoted")
}

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) NotifyAward(context.Context, model.AwardEvent) error {
	c.calls++
	return c.err
}

func TestMulti(t *testing.T) {
	failing := &countingNotifier{err: errors.New("boom")}
	ok := &countingNotifier{}

	err := Multi{failing, nil, ok}.NotifyAward(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, ok.calls)

	assert.NoError(t, Multi{ok}.NotifyAward(context.Background(), sampleEvent()))
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.NotifyAward(context.Background(), sampleEvent()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type string           `json:"type"`
		Data model.AwardEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, EventLeaderboardChanged, got.Type)
	assert.Equal(t, int64(7), got.Data.AccountID)
	assert.Equal(t, int64(1510), got.Data.LoyaltyPoints)
}

func TestHub_RejectsForeignOrigins(t *testing.T) {
	hub := NewHub("https://app.example.com")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example.com"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://app.example.com"}})
	require.NoError(t, err)
	conn.Close()

	// Same host as the server.
	conn, _, err = websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {srv.URL}})
	require.NoError(t, err)
	conn.Close()
}

func TestHub_ClosedHub(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	// Once the buffer is full only the closed hub can answer.
	var err error
	for i := 0; i <= sendBuffer && err == nil; i++ {
		err = hub.Broadcast(context.Background(), "noop", i)
	}
	assert.ErrorIs(t, err, ErrHubClosed)
}
