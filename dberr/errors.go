package dberr

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Error Kind Definition
// --------------------------------------------------------------------------

// Kind identifies the category of a client error.
type Kind uint8

const (
	KindUnknown Kind = iota

	// Connection errors

	KindConnectionTimeout // initial connection establishment timed out
	KindConnectionRefused
	KindConnectionLost

	// Authentication errors

	KindAuthenticationFailed
	KindTokenExpired
	KindInvalidCredentials

	// Query errors

	KindSyntaxError
	KindTableNotFound
	KindColumnNotFound
	KindConstraintViolation

	// Transaction errors

	KindTransactionAborted
	KindDeadlockDetected

	// Protocol errors

	KindSerialization
	KindChecksumMismatch
	KindMessageTooLarge
	KindProtocolVersionMismatch
	KindProtocol

	// Network / operation errors

	KindNetwork
	KindTimeout // an in-flight operation timed out

	// Internal errors

	KindInternal
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindConnectionTimeout:
		return "connection_timeout"
	case KindConnectionRefused:
		return "connection_refused"
	case KindConnectionLost:
		return "connection_lost"
	case KindAuthenticationFailed:
		return "authentication_failed"
	case KindTokenExpired:
		return "token_expired"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindSyntaxError:
		return "syntax_error"
	case KindTableNotFound:
		return "table_not_found"
	case KindColumnNotFound:
		return "column_not_found"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindTransactionAborted:
		return "transaction_aborted"
	case KindDeadlockDetected:
		return "deadlock_detected"
	case KindSerialization:
		return "serialization_error"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindMessageTooLarge:
		return "message_too_large"
	case KindProtocolVersionMismatch:
		return "protocol_version_mismatch"
	case KindProtocol:
		return "protocol_error"
	case KindNetwork:
		return "network_error"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Error Structure
// --------------------------------------------------------------------------

// Error is the structured error type of the SDK. Only the fields relevant
// for the Kind are populated; Error() formats them per kind.
type Error struct {
	Kind Kind

	// Connection / network context
	Host      string
	NodeID    uint64
	TimeoutMs uint64
	Operation string

	// Protocol context
	Expected uint32 // checksum expected by the sender
	Actual   uint32 // checksum carried by the frame
	Size     int
	MaxSize  int
	ClientVersion uint8
	ServerVersion uint8

	// Query context
	SQL        string
	Position   int
	Table      string
	Column     string
	Constraint string

	// Transaction context
	TransactionID uint64

	// Free-form context and wrapped cause
	Component string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnectionTimeout:
		return fmt.Sprintf("connection timeout to %s after %dms", e.Host, e.TimeoutMs)
	case KindConnectionRefused:
		return fmt.Sprintf("connection refused by %s", e.Host)
	case KindConnectionLost:
		return fmt.Sprintf("connection lost to node %d", e.NodeID)
	case KindAuthenticationFailed:
		return fmt.Sprintf("authentication failed: %s", e.Reason)
	case KindTokenExpired:
		return fmt.Sprintf("token expired (%s)", e.Reason)
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindSyntaxError:
		return fmt.Sprintf("syntax error in SQL at position %d: %s (sql: %s)", e.Position, e.Reason, e.SQL)
	case KindTableNotFound:
		return fmt.Sprintf("table not found: %s", e.Table)
	case KindColumnNotFound:
		return fmt.Sprintf("column not found: %s", e.Column)
	case KindConstraintViolation:
		return fmt.Sprintf("constraint violation: %s - %s", e.Constraint, e.Reason)
	case KindTransactionAborted:
		return fmt.Sprintf("transaction %d aborted: %s", e.TransactionID, e.Reason)
	case KindDeadlockDetected:
		return fmt.Sprintf("deadlock detected in transaction %d", e.TransactionID)
	case KindSerialization:
		return fmt.Sprintf("serialization error: %s", e.Reason)
	case KindChecksumMismatch:
		return fmt.Sprintf("checksum mismatch: expected %#x, got %#x", e.Expected, e.Actual)
	case KindMessageTooLarge:
		return fmt.Sprintf("message too large: %d bytes (max: %d bytes)", e.Size, e.MaxSize)
	case KindProtocolVersionMismatch:
		return fmt.Sprintf("protocol version mismatch: client v%d, server v%d", e.ClientVersion, e.ServerVersion)
	case KindProtocol:
		return fmt.Sprintf("protocol error: %s", e.Reason)
	case KindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("network error: %s: %v", e.Reason, e.Err)
		}
		return fmt.Sprintf("network error: %s", e.Reason)
	case KindTimeout:
		return fmt.Sprintf("operation %q timed out after %dms", e.Operation, e.TimeoutMs)
	case KindInternal:
		return fmt.Sprintf("internal error in %s: %s", e.Component, e.Reason)
	default:
		return fmt.Sprintf("unknown error: %s", e.Reason)
	}
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the error is transient. Only connection
// timeouts, lost connections, generic network errors and operation timeouts
// may succeed on retry; everything else propagates immediately.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindConnectionTimeout, KindConnectionLost, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Constructors
// --------------------------------------------------------------------------

// ConnectionTimeout reports a failed connection attempt to host.
func ConnectionTimeout(host string, timeoutMs uint64) *Error {
	return &Error{Kind: KindConnectionTimeout, Host: host, TimeoutMs: timeoutMs}
}

// ConnectionRefused reports an actively refused connection attempt.
func ConnectionRefused(host string) *Error {
	return &Error{Kind: KindConnectionRefused, Host: host}
}

// ConnectionLost reports a dropped connection to a node.
func ConnectionLost(nodeID uint64, cause error) *Error {
	return &Error{Kind: KindConnectionLost, NodeID: nodeID, Err: cause}
}

// AuthenticationFailed reports a rejected authentication attempt.
func AuthenticationFailed(reason string) *Error {
	return &Error{Kind: KindAuthenticationFailed, Reason: reason}
}

// TokenExpired reports an expired auth token.
func TokenExpired(reason string) *Error {
	return &Error{Kind: KindTokenExpired, Reason: reason}
}

// InvalidCredentials reports unusable credentials.
func InvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials}
}

// Syntax reports a SQL syntax error at a position.
func Syntax(sql string, position int, reason string) *Error {
	return &Error{Kind: KindSyntaxError, SQL: sql, Position: position, Reason: reason}
}

// TableNotFound reports a query against a missing table.
func TableNotFound(table string) *Error {
	return &Error{Kind: KindTableNotFound, Table: table}
}

// ColumnNotFound reports a query against a missing column.
func ColumnNotFound(column string) *Error {
	return &Error{Kind: KindColumnNotFound, Column: column}
}

// ConstraintViolation reports a statement rejected by a constraint.
func ConstraintViolation(constraint, reason string) *Error {
	return &Error{Kind: KindConstraintViolation, Constraint: constraint, Reason: reason}
}

// DeadlockDetected reports a transaction killed by the deadlock detector.
func DeadlockDetected(txID uint64) *Error {
	return &Error{Kind: KindDeadlockDetected, TransactionID: txID}
}

// VersionMismatch reports incompatible protocol versions at handshake.
func VersionMismatch(clientVersion, serverVersion uint8) *Error {
	return &Error{Kind: KindProtocolVersionMismatch, ClientVersion: clientVersion, ServerVersion: serverVersion}
}

// Serialization reports a failed message (de)serialization.
func Serialization(reason string, cause error) *Error {
	return &Error{Kind: KindSerialization, Reason: reason, Err: cause}
}

// ChecksumMismatch reports frame corruption detected via CRC32.
func ChecksumMismatch(expected, actual uint32) *Error {
	return &Error{Kind: KindChecksumMismatch, Expected: expected, Actual: actual}
}

// MessageTooLarge reports an encoded message exceeding the size limit.
func MessageTooLarge(size, maxSize int) *Error {
	return &Error{Kind: KindMessageTooLarge, Size: size, MaxSize: maxSize}
}

// Protocol reports a violated protocol invariant (e.g. sequence mismatch).
func Protocol(reason string) *Error {
	return &Error{Kind: KindProtocol, Reason: reason}
}

// Network reports a generic transport failure.
func Network(reason string, cause error) *Error {
	return &Error{Kind: KindNetwork, Reason: reason, Err: cause}
}

// Timeout reports an in-flight operation exceeding its deadline.
func Timeout(operation string, timeoutMs uint64) *Error {
	return &Error{Kind: KindTimeout, Operation: operation, TimeoutMs: timeoutMs}
}

// Internal reports a bug or invariant violation inside the SDK.
func Internal(component, reason string) *Error {
	return &Error{Kind: KindInternal, Component: component, Reason: reason}
}

// TransactionAborted reports a server-side transaction abort.
func TransactionAborted(txID uint64, reason string) *Error {
	return &Error{Kind: KindTransactionAborted, TransactionID: txID, Reason: reason}
}

// --------------------------------------------------------------------------
// Inspection Helpers
// --------------------------------------------------------------------------

// KindOf extracts the Kind from any error, KindUnknown if it is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is classified as transient. Unknown error
// types are not retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}
