// Package conn implements the connection layer of the client: single
// sequence-matched connections, a bounded connection pool with idle and
// lifetime eviction, and a manager that tracks per-node health and spreads
// new connections across healthy nodes.
//
// Ownership is strict: the Manager owns the Pool and all health state, the
// Pool owns idle connections, and an acquired PooledConnection is owned by
// exactly one caller until released.
package conn
