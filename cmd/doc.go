// Package cmd implements the command-line interface for the quanta database
// client. It provides a hierarchical command structure for running SQL
// statements against a cluster and for administrative operations.
//
// The package is organized into several subpackages:
//
//   - sql: Commands for running SQL statements (exec, query, perf)
//   - admin: Commands for cluster administration (status, nodes, users)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See quanta -help for a list of all commands.
package cmd
