package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"etf_basket/internal/domain"
	"etf_basket/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postFill(h http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/fills", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFillHandler_Accepts(t *testing.T) {
	inbox := make(chan event.Event, 1)
	signer := NewSigner("secret", 0)
	h := NewFillHandler(inbox, signer, nil)

	body := `{"trade_id":"t-1","order_id":"o-1","symbol":"600000.SSE","direction":"SHORT","offset":"CLOSE","price":"10.5","volume":"300","time":1700000000000}`
	rec := postFill(h, body, signer.GenerateHeaders(http.MethodPost, "/fills", body))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, inbox, 1)

	ev := (<-inbox).(*event.TradeEvent)
	assert.Equal(t, "t-1", ev.Trade.TradeID)
	assert.Equal(t, domain.DirectionShort, ev.Trade.Direction)
	assert.Equal(t, "-300", ev.Trade.SignedVolume().String())
	assert.Equal(t, int64(1700000000000), ev.Trade.Time.UnixMilli())
}

func TestFillHandler_Defaults(t *testing.T) {
	inbox := make(chan event.Event, 1)
	h := NewFillHandler(inbox, nil, nil)

	rec := postFill(h, `{"symbol":"A","direction":"LONG","price":"1","volume":"5"}`, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	ev := (<-inbox).(*event.TradeEvent)
	assert.NotEmpty(t, ev.Trade.TradeID)
	assert.Equal(t, domain.OffsetNone, ev.Trade.Offset)
	assert.False(t, ev.Trade.Time.IsZero())
}

func TestFillHandler_Rejects(t *testing.T) {
	signer := NewSigner("secret", 0)

	tests := []struct {
		name   string
		method string
		body   string
		signed bool
		code   int
	}{
		{"get", http.MethodGet, "", true, http.StatusMethodNotAllowed},
		{"unsigned", http.MethodPost, `{"symbol":"A","direction":"LONG","volume":"1"}`, false, http.StatusUnauthorized},
		{"bad json", http.MethodPost, `{`, true, http.StatusBadRequest},
		{"no symbol", http.MethodPost, `{"direction":"LONG","volume":"1"}`, true, http.StatusBadRequest},
		{"bad direction", http.MethodPost, `{"symbol":"A","direction":"UP","volume":"1"}`, true, http.StatusBadRequest},
		{"zero volume", http.MethodPost, `{"symbol":"A","direction":"LONG","volume":"0"}`, true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inbox := make(chan event.Event, 1)
			h := NewFillHandler(inbox, signer, nil)

			req := httptest.NewRequest(tt.method, "/fills", strings.NewReader(tt.body))
			if tt.signed {
				for k, v := range signer.GenerateHeaders(tt.method, "/fills", tt.body) {
					req.Header.Set(k, v)
				}
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, inbox)
		})
	}
}
