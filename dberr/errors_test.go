package dberr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "connection timeout",
			err:      ConnectionTimeout("db1.example.com:7000", 5000),
			expected: "connection timeout to db1.example.com:7000 after 5000ms",
		},
		{
			name:     "connection refused",
			err:      ConnectionRefused("db1.example.com:7000"),
			expected: "connection refused by db1.example.com:7000",
		},
		{
			name:     "connection lost",
			err:      ConnectionLost(3, nil),
			expected: "connection lost to node 3",
		},
		{
			name:     "authentication failed",
			err:      AuthenticationFailed("bad password"),
			expected: "authentication failed: bad password",
		},
		{
			name:     "invalid credentials",
			err:      InvalidCredentials(),
			expected: "invalid credentials",
		},
		{
			name:     "table not found",
			err:      TableNotFound("users"),
			expected: "table not found: users",
		},
		{
			name:     "message too large",
			err:      MessageTooLarge(2097152, 1048576),
			expected: "message too large: 2097152 bytes (max: 1048576 bytes)",
		},
		{
			name:     "version mismatch",
			err:      VersionMismatch(1, 2),
			expected: "protocol version mismatch: client v1, server v2",
		},
		{
			name:     "operation timeout",
			err:      Timeout("query", 5000),
			expected: `operation "query" timed out after 5000ms`,
		},
		{
			name:     "transaction aborted",
			err:      TransactionAborted(17, "write conflict"),
			expected: "transaction 17 aborted: write conflict",
		},
		{
			name:     "internal",
			err:      Internal("pool", "no free slot after release"),
			expected: "internal error in pool: no free slot after release",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	retryable := []*Error{
		ConnectionTimeout("host:7000", 5000),
		ConnectionLost(1, nil),
		Network("write failed", errors.New("broken pipe")),
		Timeout("query", 5000),
	}
	for _, err := range retryable {
		if !err.Retryable() {
			t.Errorf("Expected %v to be retryable", err)
		}
	}

	permanent := []*Error{
		ConnectionRefused("host:7000"),
		AuthenticationFailed("nope"),
		TokenExpired("lifetime exceeded"),
		InvalidCredentials(),
		Syntax("SELEC 1", 0, "unexpected token"),
		ChecksumMismatch(1, 2),
		MessageTooLarge(10, 5),
		Protocol("sequence mismatch"),
		Internal("codec", "nil serializer"),
		TransactionAborted(1, "conflict"),
		DeadlockDetected(1),
	}
	for _, err := range permanent {
		if err.Retryable() {
			t.Errorf("Expected %v to not be retryable", err)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(ChecksumMismatch(1, 2)); got != KindChecksumMismatch {
		t.Errorf("KindOf = %v, want %v", got, KindChecksumMismatch)
	}
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}

	// Wrapped errors must still be classified
	wrapped := fmt.Errorf("request failed: %w", ConnectionLost(2, nil))
	if got := KindOf(wrapped); got != KindConnectionLost {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindConnectionLost)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Network("read failed", nil)) {
		t.Error("Expected network error to be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("Unknown error types must not be retryable")
	}

	wrapped := fmt.Errorf("attempt failed: %w", Timeout("exec", 100))
	if !IsRetryable(wrapped) {
		t.Error("Expected wrapped timeout to be retryable")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := Network("read failed", cause)

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the wrapped cause")
	}
}
