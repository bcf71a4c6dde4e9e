package auth

import "time"

// Token is a server-issued auth token. Tokens are replaced, never mutated:
// refresh and re-authentication produce a new value.
type Token struct {
	UserID    string
	Roles     []string
	ExpiresAt time.Time
	Signature []byte
}

// Valid reports whether the token can still authenticate requests.
// A token is valid iff now is strictly before its expiry.
func (t *Token) Valid() bool {
	return t != nil && time.Now().Before(t.ExpiresAt)
}

// Expired is the negation of Valid for readability at call sites.
func (t *Token) Expired() bool { return !t.Valid() }

// ExpiresWithin reports whether the token will expire within d, used to
// decide on proactive refresh.
func (t *Token) ExpiresWithin(d time.Duration) bool {
	if t == nil {
		return true
	}
	return time.Now().Add(d).After(t.ExpiresAt)
}

// HasRole reports whether the token carries the given role.
func (t *Token) HasRole(role string) bool {
	if t == nil {
		return false
	}
	for _, r := range t.Roles {
		if r == role {
			return true
		}
	}
	return false
}
