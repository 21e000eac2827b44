package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"
)

const (
	HeaderSign      = "ACCESS-SIGN"
	HeaderTimestamp = "ACCESS-TIMESTAMP"
)

var (
	ErrBadSignature = errors.New("webhook: bad signature")
	ErrStale        = errors.New("webhook: stale timestamp")
)

// Signer signs and verifies broker callbacks.
// Payload: timestamp(ms) + method + path + body, HMAC-SHA256, base64.
type Signer struct {
	secret string
	window time.Duration
	now    func() time.Time
}

// NewSigner creates a Signer accepting timestamps within window of now.
func NewSigner(secret string, window time.Duration) *Signer {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &Signer{secret: secret, window: window, now: time.Now}
}

// GenerateHeaders returns the headers a broker attaches to a callback.
func (s *Signer) GenerateHeaders(method, path, body string) map[string]string {
	timestamp := strconv.FormatInt(s.now().UnixMilli(), 10)
	return map[string]string{
		HeaderSign:      computeHmacSha256(timestamp+method+path+body, s.secret),
		HeaderTimestamp: timestamp,
		"Content-Type":  "application/json",
	}
}

// Verify checks the signature and freshness of a callback.
func (s *Signer) Verify(method, path, body, timestamp, sign string) error {
	ms, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	age := s.now().Sub(time.UnixMilli(ms))
	if age > s.window || age < -s.window {
		return ErrStale
	}

	expected := computeHmacSha256(timestamp+method+path+body, s.secret)
	if !hmac.Equal([]byte(expected), []byte(sign)) {
		return ErrBadSignature
	}
	return nil
}

func computeHmacSha256(message string, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
