// Package webhook is the HTTP surface of the engine. Brokers post fills,
// operators post signed commands and read state, orders, fills and metrics.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

type fillRequest struct {
	TradeID   string           `json:"trade_id"`
	OrderID   string           `json:"order_id"`
	Symbol    string           `json:"symbol"`
	Direction domain.Direction `json:"direction"`
	Offset    domain.Offset    `json:"offset"`
	Price     decimal.Decimal  `json:"price"`
	Volume    decimal.Decimal  `json:"volume"`
	Time      int64            `json:"time"` // milliseconds, 0 means now
}

func (r fillRequest) trade() (domain.Trade, error) {
	if r.Symbol == "" {
		return domain.Trade{}, errors.New("symbol required")
	}
	if r.Direction.Sign() == 0 {
		return domain.Trade{}, fmt.Errorf("unknown direction %q", r.Direction)
	}
	if !r.Volume.IsPositive() {
		return domain.Trade{}, fmt.Errorf("volume must be positive, got %s", r.Volume)
	}

	t := domain.Trade{
		TradeID:   r.TradeID,
		OrderID:   r.OrderID,
		Symbol:    r.Symbol,
		Direction: r.Direction,
		Offset:    r.Offset,
		Price:     r.Price,
		Volume:    r.Volume,
		Time:      time.Now(),
	}
	if t.TradeID == "" {
		t.TradeID = uuid.NewString()
	}
	if t.Offset == "" {
		t.Offset = domain.OffsetNone
	}
	if r.Time > 0 {
		t.Time = time.UnixMilli(r.Time)
	}
	return t, nil
}

// FillHandler accepts signed fill reports over HTTP.
type FillHandler struct {
	inbox  chan<- event.Event
	signer *Signer // nil disables verification
	log    *slog.Logger
}

// NewFillHandler creates a handler sending fills to inbox.
func NewFillHandler(inbox chan<- event.Event, signer *Signer, logger *slog.Logger) *FillHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FillHandler{inbox: inbox, signer: signer, log: logger}
}

func (h *FillHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, ok := readSigned(w, r, h.signer, h.log)
	if !ok {
		return
	}

	var req fillRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	trade, err := req.trade()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev := event.AcquireTradeEvent()
	ev.Ts = trade.Time
	ev.Trade = trade

	// Fills are never dropped; the caller retries on timeout.
	select {
	case h.inbox <- ev:
	case <-r.Context().Done():
		event.ReleaseTradeEvent(ev)
		http.Error(w, "inbox busy", http.StatusServiceUnavailable)
		return
	}

	h.log.Info("Fill received",
		slog.String("trade_id", trade.TradeID),
		slog.String("symbol", trade.Symbol),
		slog.String("direction", string(trade.Direction)),
		slog.String("volume", trade.Volume.String()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"trade_id": trade.TradeID})
}

// readSigned reads the request body and checks its signature. It writes the
// error response itself and returns false when the request must not be served.
func readSigned(w http.ResponseWriter, r *http.Request, signer *Signer, log *slog.Logger) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return nil, false
	}
	if signer == nil {
		return body, true
	}

	err = signer.Verify(r.Method, r.URL.Path, string(body),
		r.Header.Get(HeaderTimestamp), r.Header.Get(HeaderSign))
	if err != nil {
		log.Warn("Rejected unsigned request",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
			slog.String("remote", r.RemoteAddr))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}
