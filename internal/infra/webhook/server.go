package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"etf_basket/internal/domain"
	"etf_basket/internal/infra"
)

// Journal lists what a strategy has persisted.
type Journal interface {
	ListOrders(ctx context.Context, strategyName string) ([]domain.OrderRecord, error)
	ListTrades(ctx context.Context, strategyName string) ([]domain.TradeRecord, error)
}

// Routes collects the handlers served by NewServer. A nil field leaves its
// routes unregistered.
type Routes struct {
	Fills      http.Handler
	Commands   Commander
	Components ComponentClassifier
	Journal    Journal
	Strategy   string // strategy name for Journal queries
	State      func() any
	Metrics    func() infra.MetricsSnapshot
	Signer     *Signer // nil disables verification of commands
	Logger     *slog.Logger
}

// NewServer builds the HTTP server.
//
//	POST /fills                fill callback
//	POST /target               {"target"}
//	POST /aggregate            {"target","limit_price","max_clip"}
//	POST /purchase             {"volume"}
//	POST /redemption           {"volume"}
//	POST /lifecycle            {"action": INIT|START|STOP}
//	POST /component_class      {"basket","symbol","class"}
//	GET  /state /orders /trades /metrics
func NewServer(addr string, routes Routes) *http.Server {
	log := routes.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	if routes.Fills != nil {
		mux.Handle("/fills", routes.Fills)
	}
	if c := routes.Commands; c != nil {
		mux.Handle("/target", command("target", routes.Signer, log, basketTarget(c)))
		mux.Handle("/aggregate", command("aggregate", routes.Signer, log, aggregateTarget(c)))
		mux.Handle("/purchase", command("purchase", routes.Signer, log, creation(c.Purchase)))
		mux.Handle("/redemption", command("redemption", routes.Signer, log, creation(c.Redemption)))
		mux.Handle("/lifecycle", command("lifecycle", routes.Signer, log, lifecycle(c)))
	}
	if routes.Components != nil {
		mux.Handle("/component_class", command("component_class", routes.Signer, log, componentClass(routes.Components)))
	}
	if routes.State != nil {
		mux.Handle("/state", query(func(context.Context) (any, error) {
			return routes.State(), nil
		}))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", query(func(context.Context) (any, error) {
			return routes.Metrics(), nil
		}))
	}
	if j := routes.Journal; j != nil {
		mux.Handle("/orders", query(func(ctx context.Context) (any, error) {
			return j.ListOrders(ctx, routes.Strategy)
		}))
		mux.Handle("/trades", query(func(ctx context.Context) (any, error) {
			return j.ListTrades(ctx, routes.Strategy)
		}))
	}

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func query(read func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		v, err := read(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, commandResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
