package cmd

import (
	"fmt"
	"os"

	"github.com/quantadb/quanta-go/cmd/admin"
	"github.com/quantadb/quanta-go/cmd/sql"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.2"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "quanta",
		Short: "client for the quanta distributed database",
		Long: fmt.Sprintf(`quanta (v%s)

A command line client for the quanta distributed SQL database.
It connects to one or more cluster nodes, authenticates, and
runs SQL statements or administrative operations over the
binary wire protocol.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the quanta client",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quanta v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(sql.SQLCommands)
	RootCmd.AddCommand(admin.AdminCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
