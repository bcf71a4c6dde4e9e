// Package dberr defines the structured error type used across the Quanta
// client SDK.
//
// Every failure surfaced to a caller is a *dberr.Error carrying an error
// Kind plus the contextual fields for that kind (host, node id, timeout,
// SQL text, ...). Callers branch on the kind via errors.As / dberr.KindOf
// instead of string matching.
//
// The package also classifies which kinds are transient: the retry executor
// consults Retryable to decide whether an operation may be attempted again.
package dberr
