package webhook

import (
	"testing"
	"time"
)

func TestComputeHmacSha256(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	// Hex: f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8
	expected := "97yD9DBThCSxMpjmqm+xQ+9NWaFJRhdZl0edvC0aPNg="
	result := computeHmacSha256("The quick brown fox jumps over the lazy dog", "key")

	if result != expected {
		t.Errorf("HMAC Mismatch. Expected %s, got %s", expected, result)
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	signer := NewSigner("secret", 0)
	body := `{"symbol":"600000.SSE"}`

	headers := signer.GenerateHeaders("POST", "/fills", body)
	if len(headers[HeaderTimestamp]) != 13 { // Milliseconds
		t.Errorf("Expected timestamp len 13, got %s", headers[HeaderTimestamp])
	}

	if err := signer.Verify("POST", "/fills", body, headers[HeaderTimestamp], headers[HeaderSign]); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestSigner_Rejects(t *testing.T) {
	fixed := time.UnixMilli(1600000000000)
	signer := NewSigner("secret", 30*time.Second)
	signer.now = func() time.Time { return fixed }

	headers := signer.GenerateHeaders("POST", "/fills", "{}")
	ts, sign := headers[HeaderTimestamp], headers[HeaderSign]

	tests := []struct {
		name    string
		body    string
		ts      string
		sign    string
		advance time.Duration
		want    error
	}{
		{"tampered body", `{"x":1}`, ts, sign, 0, ErrBadSignature},
		{"wrong secret", "{}", ts, computeHmacSha256(ts+"POST/fills{}", "other"), 0, ErrBadSignature},
		{"garbage timestamp", "{}", "abc", sign, 0, ErrBadSignature},
		{"stale", "{}", ts, sign, time.Minute, ErrStale},
		{"within window", "{}", ts, sign, 10 * time.Second, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer.now = func() time.Time { return fixed.Add(tt.advance) }
			if err := signer.Verify("POST", "/fills", tt.body, tt.ts, tt.sign); err != tt.want {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}
}
