package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/position"
	"tradebot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegram_SendTextRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chat", body["chat_id"])
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "chat")
	tg.BaseURL = srv.URL
	tg.Backoff = time.Millisecond
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTelegram_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "chat")
	tg.BaseURL = srv.URL
	tg.Backoff = time.Millisecond
	err := tg.SendText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
}

func TestTelegram_RequiresCredentials(t *testing.T) {
	assert.Error(t, NewTelegram("", "chat").SendText(context.Background(), "x"))
	assert.Error(t, NewTelegram("token", "").SendText(context.Background(), "x"))
}

func TestOrderPlacedMessage(t *testing.T) {
	order := types.Order{Symbol: "BTC/USDT", Side: types.SideSell, Amount: 0.5, Type: types.OrderMarket, ReduceOnly: true}
	res := exchange.OrderResult{ID: "abc", DryRun: true, Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	text := OrderPlaced(order, res, "drawdown").RenderMarkdown()

	assert.Contains(t, text, "sell BTC/USDT (dry run)")
	assert.Contains(t, text, "- ID: abc")
	assert.Contains(t, text, "- Price: market")
	assert.Contains(t, text, "- Reduce only")
	assert.Contains(t, text, "- Reason: drawdown")
	assert.Contains(t, text, "Time: 2024-03-01 12:00:00 UTC")
}

func TestPositionClosedMessage(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := position.New("ETH/USDT", position.Long, 2, 100, 100, t0)
	p.UpdatePrice(110)
	text := PositionClosed(*p, "signal", t0.Add(90*time.Minute)).RenderMarkdown()

	assert.Contains(t, text, "closed long ETH/USDT")
	assert.Contains(t, text, "- Profit: 10.00%")
	assert.Contains(t, text, "- Held: 1h30m0s")
	assert.Contains(t, text, "signal")
}

func TestRenderMarkdown_SkipsEmptySections(t *testing.T) {
	msg := StructuredMessage{Title: "t", Sections: []MessageSection{{Title: "empty", Lines: []string{" "}}}}
	assert.Equal(t, "t", msg.RenderMarkdown())
}

func TestRenderMarkdown_TruncatesOnRuneBoundary(t *testing.T) {
	msg := StructuredMessage{Title: strings.Repeat("é", maxMessageLen)}
	text := msg.RenderMarkdown()
	assert.True(t, strings.HasSuffix(text, "..."))
	assert.True(t, utf8.ValidString(text))
	assert.LessOrEqual(t, len(text), maxMessageLen+3)
}
