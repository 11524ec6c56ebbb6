package model

import "time"

// AccessToken is a short-lived bearer token obtained from the token endpoint.
// The value is opaque and never crosses the process boundary except as an
// Authorization header on outbound calls.
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be used at the given instant,
// applying the margin as a safety buffer against clock skew and in-flight
// request latency.
func (t AccessToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-margin))
}
