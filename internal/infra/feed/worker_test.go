package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"etf_basket/internal/event"
	"etf_basket/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedServer(t *testing.T, subscribed chan<- subscribeRequest, frames ...string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req subscribeRequest
		json.Unmarshal(msg, &req)
		subscribed <- req

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection until the client leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWorker_StreamsTicks(t *testing.T) {
	subscribed := make(chan subscribeRequest, 1)
	srv := newFeedServer(t, subscribed,
		`pong`,
		`{"channel":"status","data":[]}`,
		`{"channel":"ticker","ts":1700000000000,"data":[`+
			`{"symbol":"600000.SSE","last":"10.5","limit_up":"11.55","limit_down":"9.45","volume":"1200"},`+
			`{"symbol":"000001.SZSE","last":"12","limit_up":"13.2","limit_down":"10.8","volume":"0"}]}`,
	)

	inbox := make(chan event.Event, 8)
	metrics := &infra.Metrics{}
	w := NewWorker(wsURL(srv), []string{"600000.SSE", "000001.SZSE"}, inbox, metrics, nil)
	require.NoError(t, w.Connect(context.Background()))
	defer w.Disconnect()

	select {
	case req := <-subscribed:
		assert.Equal(t, "subscribe", req.Op)
		assert.Equal(t, []string{"600000.SSE", "000001.SZSE"}, req.Symbols)
	case <-time.After(5 * time.Second):
		t.Fatal("no subscribe request")
	}

	var ticks []*event.TickEvent
	for len(ticks) < 2 {
		select {
		case ev := <-inbox:
			te, ok := ev.(*event.TickEvent)
			require.True(t, ok)
			ticks = append(ticks, te)
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d ticks, want 2", len(ticks))
		}
	}

	first := ticks[0].Tick
	assert.Equal(t, "600000.SSE", first.Symbol)
	assert.Equal(t, "10.5", first.LastPrice.String())
	assert.Equal(t, "11.55", first.LimitUp.String())
	assert.Equal(t, "9.45", first.LimitDown.String())
	assert.Equal(t, int64(1700000000000), first.Time.UnixMilli())
	assert.Equal(t, "000001.SZSE", ticks[1].Tick.Symbol)

	assert.True(t, w.IsConnected())
	assert.Equal(t, int32(1), metrics.Snapshot().ActiveConnections)
}

func TestWorker_DropsWhenInboxFull(t *testing.T) {
	subscribed := make(chan subscribeRequest, 1)
	srv := newFeedServer(t, subscribed,
		`{"channel":"ticker","ts":1,"data":[{"symbol":"A","last":"1"},{"symbol":"B","last":"2"}]}`,
	)

	inbox := make(chan event.Event, 1)
	w := NewWorker(wsURL(srv), []string{"A", "B"}, inbox, nil, nil)
	require.NoError(t, w.Connect(context.Background()))

	require.Eventually(t, func() bool { return len(inbox) == 1 }, 5*time.Second, 10*time.Millisecond)

	w.Disconnect()
	assert.False(t, w.IsConnected())
	require.Len(t, inbox, 1)
	ev := <-inbox
	assert.Equal(t, "A", ev.(*event.TickEvent).Tick.Symbol)
}

func TestWorker_DisconnectWhileRetrying(t *testing.T) {
	w := NewWorker("ws://127.0.0.1:1/unreachable", nil, make(chan event.Event, 1), nil, nil)
	require.NoError(t, w.Connect(context.Background()))

	done := make(chan struct{})
	go func() {
		w.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Disconnect did not return")
	}
	assert.False(t, w.IsConnected())
}

func TestWorker_StopsOnRejectedHandshake(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	w := NewWorker(wsURL(srv), []string{"A"}, make(chan event.Event, 1), nil, nil)
	require.NoError(t, w.Connect(context.Background()))
	defer w.Disconnect()

	exited := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(exited)
	}()

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("connection loop kept retrying after 401")
	}
	assert.Equal(t, int32(1), attempts.Load())
	assert.False(t, w.IsConnected())
}
