package client

import (
	"context"
	"sync"

	"github.com/quantadb/quanta-go/conn"
	"github.com/quantadb/quanta-go/dberr"
)

// Transaction pins one pooled connection for the lifetime of a server-side
// transaction. Commit and Rollback consume the guard; Close is an
// idempotent safety net that rolls back if the caller forgot.
type Transaction struct {
	c    *Client
	pc   *conn.PooledConnection
	txID uint64

	mu   sync.Mutex
	done bool
}

// BeginTransaction opens a transaction on a dedicated connection.
func (d *DataClient) BeginTransaction(ctx context.Context) (*Transaction, error) {
	ctx, cancel := d.c.operationContext(ctx)
	defer cancel()

	pc, err := d.c.mgr.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := d.c.exchange(ctx, pc, dataRequest{Op: opTxBegin})
	if err != nil {
		d.c.mgr.Release(pc)
		return nil, err
	}

	return &Transaction{c: d.c, pc: pc, txID: resp.TxID}, nil
}

// ID returns the server-assigned transaction identifier.
func (t *Transaction) ID() uint64 { return t.txID }

// guard rejects use after Commit, Rollback or Close.
func (t *Transaction) guard() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return dberr.TransactionAborted(t.txID, "transaction already closed")
	}
	return nil
}

// Execute runs a statement inside the transaction.
func (t *Transaction) Execute(ctx context.Context, sql string, params ...any) (*ExecuteResult, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := t.c.operationContext(ctx)
	defer cancel()
	resp, err := t.c.exchange(ctx, t.pc, dataRequest{
		Op: opExecute, TxID: t.txID, SQL: sql, Params: values,
	})
	if err != nil {
		return nil, err
	}
	return execResult(resp), nil
}

// Query runs a query inside the transaction.
func (t *Transaction) Query(ctx context.Context, sql string, params ...any) (*QueryResult, error) {
	if err := t.guard(); err != nil {
		return nil, err
	}
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := t.c.operationContext(ctx)
	defer cancel()
	resp, err := t.c.exchange(ctx, t.pc, dataRequest{
		Op: opQuery, TxID: t.txID, SQL: sql, Params: values,
	})
	if err != nil {
		return nil, err
	}
	return newQueryResult(resp.Columns, resp.Rows), nil
}

// Commit makes the transaction's effects durable and releases its
// connection. The guard is consumed even when the server rejects the
// commit.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, opTxCommit)
}

// Rollback discards the transaction's effects and releases its connection.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, opTxAbort)
}

func (t *Transaction) finish(ctx context.Context, op string) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return dberr.TransactionAborted(t.txID, "transaction already closed")
	}
	t.done = true
	t.mu.Unlock()

	defer t.c.mgr.Release(t.pc)

	ctx, cancel := t.c.operationContext(ctx)
	defer cancel()
	_, err := t.c.exchange(ctx, t.pc, dataRequest{Op: op, TxID: t.txID})
	return err
}

// Close rolls the transaction back if it is still open. Safe to defer
// unconditionally; after Commit or Rollback it does nothing. A rollback
// happening here means the caller forgot to finish the transaction, which
// is logged as a warning.
func (t *Transaction) Close() {
	t.mu.Lock()
	open := !t.done
	t.mu.Unlock()
	if !open {
		return
	}

	logger.Warnw("transaction closed without commit or rollback, rolling back",
		"tx", t.txID)
	if err := t.Rollback(context.Background()); err != nil {
		logger.Warnw("best-effort rollback failed", "tx", t.txID, "err", err)
	}
}
