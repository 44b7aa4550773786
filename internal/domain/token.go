package domain

import (
	"time"
)

// TokenRecord is one complete credential generation: the bearer token, the
// refresh token that produced it, and the absolute instant it stops being
// usable. Records are replaced wholesale on refresh, never mutated.
type TokenRecord struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Usable reports whether the record is still valid at instant now, with at
// least margin of headroom before expiry.
func (t *TokenRecord) Usable(now time.Time, margin time.Duration) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt.After(now.Add(margin))
}
