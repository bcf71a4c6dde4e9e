// Package config holds the client configuration: cluster endpoints, pool
// sizing, retry behavior, compression and protocol limits. A zero value is
// not usable; start from DefaultConfig and override what differs.
package config
