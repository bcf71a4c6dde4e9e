// Package retry drives operations through bounded retries with exponential
// backoff. Only transient failures (connection timeouts, lost connections,
// network errors, operation timeouts) are retried; everything else
// propagates immediately. On exhaustion the last error is returned
// unchanged so callers can still branch on its kind.
package retry
