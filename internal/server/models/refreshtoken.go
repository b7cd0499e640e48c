package models

import "time"

// RefreshToken is a persisted, opaque refresh credential owned by one account.
// Revoked only ever goes from false to true.
type RefreshToken struct {
	ID        int64
	Token     string
	UserID    int64
	ExpireAt  time.Time
	Revoked   bool
	CreatedAt time.Time
}

// Live reports whether the token may still be exchanged at time now.
// A token expiring exactly at now is still live.
func (t *RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && !now.After(t.ExpireAt)
}
