// Package client is the high-level entry point of the SDK. A Client owns
// the connection manager, the auth manager and the retry policy; DataClient
// and AdminClient map typed operations onto the request/response primitive;
// Transaction pins one connection for the lifetime of a server-side
// transaction.
//
// Typical use:
//
//	cfg := config.DefaultConfig()
//	cfg.Hosts = []string{"db1:7000", "db2:7000"}
//	c, err := client.Connect(cfg, auth.NewPasswordCredentials("alice", "secret"))
//	if err != nil { ... }
//	defer c.Disconnect()
//
//	result, err := c.Data().Query(ctx, "SELECT id, name FROM users")
package client
