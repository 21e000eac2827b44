package infra

import "time"

const (
	backoffBase = 1 * time.Second
	backoffMax  = 60 * time.Second
)

// CalculateBackoff returns the reconnect delay for a retry count:
// exponential from one second, capped at one minute.
func CalculateBackoff(retry int) time.Duration {
	if retry <= 0 {
		return backoffBase
	}
	if retry > 6 {
		return backoffMax
	}
	d := backoffBase << uint(retry)
	if d > backoffMax {
		return backoffMax
	}
	return d
}
