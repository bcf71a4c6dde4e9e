package client

import "context"

// DataClient maps SQL operations onto the request primitive. All methods
// are safe for concurrent use; every call may run on a different pooled
// connection.
type DataClient struct {
	c *Client
}

// Execute runs a statement that returns no rows.
func (d *DataClient) Execute(ctx context.Context, sql string) (*ExecuteResult, error) {
	return d.ExecuteWithParams(ctx, sql)
}

// ExecuteWithParams runs a parameterized statement.
func (d *DataClient) ExecuteWithParams(ctx context.Context, sql string, params ...any) (*ExecuteResult, error) {
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}
	resp, err := d.c.do(ctx, dataRequest{Op: opExecute, SQL: sql, Params: values})
	if err != nil {
		return nil, err
	}
	return execResult(resp), nil
}

// Query runs a statement and returns its rows.
func (d *DataClient) Query(ctx context.Context, sql string) (*QueryResult, error) {
	return d.QueryWithParams(ctx, sql)
}

// QueryWithParams runs a parameterized query.
func (d *DataClient) QueryWithParams(ctx context.Context, sql string, params ...any) (*QueryResult, error) {
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}
	resp, err := d.c.do(ctx, dataRequest{Op: opQuery, SQL: sql, Params: values})
	if err != nil {
		return nil, err
	}
	return newQueryResult(resp.Columns, resp.Rows), nil
}

// Run executes a built query, dispatching on whether it returns rows.
func (d *DataClient) Run(ctx context.Context, qb *QueryBuilder) (*QueryResult, *ExecuteResult, error) {
	sql, params, err := qb.Build()
	if err != nil {
		return nil, nil, err
	}
	if qb.returnsRows() {
		result, err := d.QueryWithParams(ctx, sql, valuesToAny(params)...)
		return result, nil, err
	}
	result, err := d.ExecuteWithParams(ctx, sql, valuesToAny(params)...)
	return nil, result, err
}

// --------------------------------------------------------------------------
// Prepared Statements
// --------------------------------------------------------------------------

// PreparedStatement is a server-side compiled statement bound to this
// client session.
type PreparedStatement struct {
	d   *DataClient
	id  uint64
	sql string
}

// Prepare compiles a statement on the server for repeated execution.
func (d *DataClient) Prepare(ctx context.Context, sql string) (*PreparedStatement, error) {
	resp, err := d.c.do(ctx, dataRequest{Op: opPrepare, SQL: sql})
	if err != nil {
		return nil, err
	}
	return &PreparedStatement{d: d, id: resp.PreparedID, sql: sql}, nil
}

// SQL returns the statement text the handle was prepared from.
func (s *PreparedStatement) SQL() string { return s.sql }

// Execute runs the prepared statement with the given parameters.
func (s *PreparedStatement) Execute(ctx context.Context, params ...any) (*ExecuteResult, error) {
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}
	resp, err := s.d.c.do(ctx, dataRequest{Op: opExecute, PreparedID: s.id, Params: values})
	if err != nil {
		return nil, err
	}
	return execResult(resp), nil
}

// Query runs the prepared statement and returns its rows.
func (s *PreparedStatement) Query(ctx context.Context, params ...any) (*QueryResult, error) {
	values, err := toValues(params)
	if err != nil {
		return nil, err
	}
	resp, err := s.d.c.do(ctx, dataRequest{Op: opQuery, PreparedID: s.id, Params: values})
	if err != nil {
		return nil, err
	}
	return newQueryResult(resp.Columns, resp.Rows), nil
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

// Batch queues statements locally and flushes them in one request.
type Batch struct {
	d     *DataClient
	stmts []batchStatement
}

// NewBatch starts an empty batch.
func (d *DataClient) NewBatch() *Batch {
	return &Batch{d: d}
}

// Add queues one statement. Parameter conversion errors surface here, not
// at flush time.
func (b *Batch) Add(sql string, params ...any) error {
	values, err := toValues(params)
	if err != nil {
		return err
	}
	b.stmts = append(b.stmts, batchStatement{SQL: sql, Params: values})
	return nil
}

// Len returns the number of queued statements.
func (b *Batch) Len() int { return len(b.stmts) }

// Flush sends all queued statements in one request and clears the batch.
func (b *Batch) Flush(ctx context.Context) (*ExecuteResult, error) {
	if len(b.stmts) == 0 {
		return &ExecuteResult{}, nil
	}
	stmts := b.stmts
	b.stmts = nil

	resp, err := b.d.c.do(ctx, dataRequest{Op: opBatch, Statements: stmts})
	if err != nil {
		return nil, err
	}
	return execResult(resp), nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func toValues(params []any) ([]Value, error) {
	if len(params) == 0 {
		return nil, nil
	}
	values := make([]Value, len(params))
	for i, p := range params {
		v, err := NewValue(p)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func valuesToAny(values []Value) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func execResult(resp *dataResponse) *ExecuteResult {
	if resp.Exec != nil {
		return resp.Exec
	}
	return &ExecuteResult{}
}
