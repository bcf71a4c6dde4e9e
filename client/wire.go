package client

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/quantadb/quanta-go/dberr"
	"github.com/quantadb/quanta-go/protocol"
)

// Operation names on the wire.
const (
	opExecute  = "execute"
	opQuery    = "query"
	opPrepare  = "prepare"
	opBatch    = "batch"
	opTxBegin  = "tx_begin"
	opTxCommit = "tx_commit"
	opTxAbort  = "tx_rollback"

	opAdminListNodes  = "admin_list_nodes"
	opAdminAddNode    = "admin_add_node"
	opAdminRemoveNode = "admin_remove_node"
	opAdminStatus     = "admin_status"
	opAdminCreateUser = "admin_create_user"
	opAdminDropUser   = "admin_drop_user"
	opAdminGrantRole  = "admin_grant_role"
)

// batchStatement is one queued statement of a batch request.
type batchStatement struct {
	SQL    string  `cbor:"sql"`
	Params []Value `cbor:"params,omitempty"`
}

// dataRequest is the CBOR body of every data and admin operation.
type dataRequest struct {
	Op         string           `cbor:"op"`
	Signature  []byte           `cbor:"sig,omitempty"`
	SQL        string           `cbor:"sql,omitempty"`
	Params     []Value          `cbor:"params,omitempty"`
	Statements []batchStatement `cbor:"stmts,omitempty"`
	PreparedID uint64           `cbor:"prep,omitempty"`
	TxID       uint64           `cbor:"tx,omitempty"`

	// Admin operation arguments
	Host string `cbor:"host,omitempty"`
	Node uint64 `cbor:"node,omitempty"`
	User string `cbor:"usr,omitempty"`
	Pass string `cbor:"pwd,omitempty"`
	Role string `cbor:"role,omitempty"`
}

// wireError is the structured error body a server attaches to a failed
// operation.
type wireError struct {
	Code       string `cbor:"code"`
	Reason     string `cbor:"reason,omitempty"`
	SQL        string `cbor:"sql,omitempty"`
	Position   int    `cbor:"pos,omitempty"`
	Table      string `cbor:"table,omitempty"`
	Column     string `cbor:"col,omitempty"`
	Constraint string `cbor:"constraint,omitempty"`
	TxID       uint64 `cbor:"tx,omitempty"`
}

// dataResponse is the CBOR body of a server answer. Exactly one of Error,
// Exec, Query or the op-specific fields is set.
type dataResponse struct {
	OK    bool       `cbor:"ok"`
	Error *wireError `cbor:"err,omitempty"`

	Exec    *ExecuteResult `cbor:"exec,omitempty"`
	Columns []string       `cbor:"cols,omitempty"`
	Rows    [][]Value      `cbor:"rows,omitempty"`

	PreparedID uint64        `cbor:"prep,omitempty"`
	TxID       uint64        `cbor:"tx,omitempty"`
	Nodes      []NodeInfo    `cbor:"nodes,omitempty"`
	Status     *ClusterState `cbor:"status,omitempty"`
}

// NodeInfo describes one cluster member as reported by the server.
type NodeInfo struct {
	ID      uint64 `cbor:"id"`
	Host    string `cbor:"host"`
	Role    string `cbor:"role,omitempty"`
	Healthy bool   `cbor:"healthy"`
}

// ClusterState is the server-side cluster status summary.
type ClusterState struct {
	Leader       uint64 `cbor:"leader"`
	Term         uint64 `cbor:"term"`
	NodeCount    int    `cbor:"nodes"`
	HealthyCount int    `cbor:"healthy"`
}

// decodeWireError converts a server error body into the client taxonomy.
// Unknown codes degrade to a generic protocol error rather than being
// dropped.
func decodeWireError(we *wireError) error {
	switch we.Code {
	case "syntax":
		return dberr.Syntax(we.SQL, we.Position, we.Reason)
	case "table_not_found":
		return dberr.TableNotFound(we.Table)
	case "column_not_found":
		return dberr.ColumnNotFound(we.Column)
	case "constraint_violation":
		return dberr.ConstraintViolation(we.Constraint, we.Reason)
	case "transaction_aborted":
		return dberr.TransactionAborted(we.TxID, we.Reason)
	case "deadlock":
		return dberr.DeadlockDetected(we.TxID)
	case "authentication_failed":
		return dberr.AuthenticationFailed(we.Reason)
	case "token_expired":
		return dberr.TokenExpired(we.Reason)
	case "internal":
		return dberr.Internal("server", we.Reason)
	default:
		return dberr.Protocol("server error " + we.Code + ": " + we.Reason)
	}
}

// decodeResponse unpacks a Data/Error message into a dataResponse or the
// structured error it carries.
func decodeResponse(msg *protocol.Message) (*dataResponse, error) {
	if msg.Type == protocol.MsgTError {
		var we wireError
		if err := cbor.Unmarshal(msg.Payload, &we); err != nil {
			return nil, dberr.Protocol("undecodable server error: " + string(msg.Payload))
		}
		return nil, decodeWireError(&we)
	}
	if msg.Type != protocol.MsgTData && msg.Type != protocol.MsgTAck {
		return nil, dberr.Protocol("unexpected response type " + msg.Type.String())
	}

	var resp dataResponse
	if err := cbor.Unmarshal(msg.Payload, &resp); err != nil {
		return nil, dberr.Serialization("failed to decode response", err)
	}
	if !resp.OK {
		if resp.Error != nil {
			return nil, decodeWireError(resp.Error)
		}
		return nil, dberr.Protocol("server rejected request without error detail")
	}
	return &resp, nil
}
