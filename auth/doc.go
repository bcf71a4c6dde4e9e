// Package auth owns the credentials and the current auth token. The manager
// obtains, validates, refreshes and invalidates tokens over connections
// borrowed by the caller. Token expiry is recovered transparently: callers
// asking for a valid token never observe an expired one, and concurrent
// expiry detection collapses into a single re-authentication request.
//
// Credentials and tokens are never logged.
package auth
