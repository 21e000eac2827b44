// Package feed streams market condition ticks from a websocket gateway
// into the Sequencer inbox.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"
	"etf_basket/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	pingInterval = 20 * time.Second
	readTimeout  = 60 * time.Second
	maxRetries   = 10
)

var errNoConn = errors.New("no conn")

type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

type tickData struct {
	Symbol    string          `json:"symbol"`
	Last      decimal.Decimal `json:"last"`
	LimitUp   decimal.Decimal `json:"limit_up"`
	LimitDown decimal.Decimal `json:"limit_down"`
	Volume    decimal.Decimal `json:"volume"`
}

type tickerResponse struct {
	Channel string     `json:"channel"`
	Ts      int64      `json:"ts"` // milliseconds
	Data    []tickData `json:"data"`
}

// Worker subscribes to ticks for a fixed symbol set and reconnects with
// backoff until Disconnect is called.
type Worker struct {
	url     string
	symbols []string
	inbox   chan<- event.Event
	metrics *infra.Metrics
	log     *slog.Logger

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker factory. metrics may be nil.
func NewWorker(url string, symbols []string, inbox chan<- event.Event, metrics *infra.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		url:     url,
		symbols: symbols,
		inbox:   inbox,
		metrics: metrics,
		log:     logger.With(slog.String("feed", url)),
	}
}

var _ domain.ExchangeWorker = (*Worker)(nil)

func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := w.connect(ctx)
		if err != nil {
			if !domain.ShouldReconnect(err) {
				w.log.Error("Feed rejected, not reconnecting", slog.Any("error", err))
				return
			}
			w.log.Warn("Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(infra.CalculateBackoff(retryCount)):
			}
			continue
		}

		retryCount = 0
		connCtx, stopPing := context.WithCancel(ctx)
		w.wg.Add(1)
		go w.pingLoop(connCtx)
		w.readLoop(ctx, conn)
		stopPing()
	}
}

func (w *Worker) connect(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		if resp != nil {
			return nil, domain.NewHandshakeError(resp.StatusCode, err)
		}
		return nil, domain.NewFeedError("dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return nil, domain.NewFeedError("subscribe", err)
	}

	if w.metrics != nil {
		w.metrics.IncrementConnections()
	}
	w.log.Info("Feed connected", slog.Int("symbols", len(w.symbols)))
	return conn, nil
}

func (w *Worker) subscribe() error {
	b, err := json.Marshal(subscribeRequest{Op: "subscribe", Symbols: w.symbols})
	if err != nil {
		return err
	}
	return w.threadSafeWrite(websocket.TextMessage, b)
}

func (w *Worker) pingLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.threadSafeWrite(websocket.TextMessage, []byte("ping"))
		}
	}
}

func (w *Worker) threadSafeWrite(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.conn == nil {
		return errNoConn
	}
	return w.conn.WriteMessage(msgType, data)
}

func (w *Worker) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		if w.metrics != nil {
			w.metrics.DecrementConnections()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("Feed read failed", slog.Any("error", err))
			}
			w.closeConnection()
			return
		}
		if string(msg) == "pong" {
			continue
		}
		w.handleMessage(msg)
	}
}

func (w *Worker) handleMessage(msg []byte) {
	var resp tickerResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		w.log.Debug("Feed message ignored", slog.Any("error", err))
		return
	}
	if resp.Channel != "ticker" || len(resp.Data) == 0 {
		return
	}

	ts := time.UnixMilli(resp.Ts)
	for _, data := range resp.Data {
		if data.Symbol == "" {
			continue
		}

		ev := event.AcquireTickEvent()
		ev.Ts = ts
		ev.Tick = domain.Tick{
			Symbol:    data.Symbol,
			LastPrice: data.Last,
			LimitUp:   data.LimitUp,
			LimitDown: data.LimitDown,
			Volume:    data.Volume,
			Time:      ts,
		}

		select {
		case w.inbox <- ev:
		default:
			event.ReleaseTickEvent(ev) // Release if dropped
		}
	}
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
	w.connected = false
}

func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
