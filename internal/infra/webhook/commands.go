package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"

	"github.com/shopspring/decimal"
)

const commandTimeout = 10 * time.Second

var errInvalidCommand = errors.New("invalid command")

// Commander drives the strategy through the Sequencer inbox.
type Commander interface {
	SetBasketTarget(ctx context.Context, target decimal.Decimal) ([]string, error)
	SetAggregateTarget(ctx context.Context, target, limitPrice, maxClip decimal.Decimal) error
	Purchase(ctx context.Context, volume decimal.Decimal) (string, error)
	Redemption(ctx context.Context, volume decimal.Decimal) (string, error)
	Lifecycle(ctx context.Context, action event.LifecycleAction) error
}

// ComponentClassifier updates the tradability of a basket component.
type ComponentClassifier interface {
	SetComponentClass(basketSymbol, symbol string, class domain.TradabilityClass) error
}

type targetRequest struct {
	Target decimal.Decimal `json:"target"`
}

type aggregateRequest struct {
	Target     decimal.Decimal `json:"target"`
	LimitPrice decimal.Decimal `json:"limit_price"`
	MaxClip    decimal.Decimal `json:"max_clip"`
}

type volumeRequest struct {
	Volume decimal.Decimal `json:"volume"`
}

type lifecycleRequest struct {
	Action string `json:"action"`
}

type componentClassRequest struct {
	Basket string                  `json:"basket"`
	Symbol string                  `json:"symbol"`
	Class  domain.TradabilityClass `json:"class"`
}

type commandResponse struct {
	OrderIDs []string `json:"order_ids,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// commandFunc runs one decoded command and returns the orders it sent.
type commandFunc func(ctx context.Context, body []byte) ([]string, error)

func command(name string, signer *Signer, log *slog.Logger, run commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, ok := readSigned(w, r, signer, log)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
		defer cancel()

		ids, err := run(ctx, body)
		resp := commandResponse{OrderIDs: ids}
		code := http.StatusOK
		if err != nil {
			resp.Error = err.Error()
			code = commandStatus(err)
			log.Warn("Command failed",
				slog.String("command", name),
				slog.Int("status", code),
				slog.Int("orders", len(ids)),
				slog.Any("error", err))
		} else {
			log.Info("Command applied", slog.String("command", name), slog.Int("orders", len(ids)))
		}

		writeJSON(w, code, resp)
	}
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownContract):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotTrading), errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrDispatchRejected):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidCommand, err)
	}
	return nil
}

func positive(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", errInvalidCommand, field, v)
	}
	return nil
}

func basketTarget(c Commander) commandFunc {
	return func(ctx context.Context, body []byte) ([]string, error) {
		var req targetRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		return c.SetBasketTarget(ctx, req.Target)
	}
}

func aggregateTarget(c Commander) commandFunc {
	return func(ctx context.Context, body []byte) ([]string, error) {
		var req aggregateRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		if err := positive("limit_price", req.LimitPrice); err != nil {
			return nil, err
		}
		if err := positive("max_clip", req.MaxClip); err != nil {
			return nil, err
		}
		return nil, c.SetAggregateTarget(ctx, req.Target, req.LimitPrice, req.MaxClip)
	}
}

func creation(send func(context.Context, decimal.Decimal) (string, error)) commandFunc {
	return func(ctx context.Context, body []byte) ([]string, error) {
		var req volumeRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		if err := positive("volume", req.Volume); err != nil {
			return nil, err
		}
		id, err := send(ctx, req.Volume)
		if err != nil {
			return nil, err
		}
		return []string{id}, nil
	}
}

func lifecycle(c Commander) commandFunc {
	return func(ctx context.Context, body []byte) ([]string, error) {
		var req lifecycleRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		action := event.LifecycleAction(strings.ToUpper(req.Action))
		switch action {
		case event.ActionInit, event.ActionStart, event.ActionStop:
		default:
			return nil, fmt.Errorf("%w: unknown action %q", errInvalidCommand, req.Action)
		}
		return nil, c.Lifecycle(ctx, action)
	}
}

func componentClass(cc ComponentClassifier) commandFunc {
	return func(_ context.Context, body []byte) ([]string, error) {
		var req componentClassRequest
		if err := decode(body, &req); err != nil {
			return nil, err
		}
		if req.Basket == "" || req.Symbol == "" {
			return nil, fmt.Errorf("%w: basket and symbol required", errInvalidCommand)
		}
		return nil, cc.SetComponentClass(req.Basket, req.Symbol, req.Class)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
