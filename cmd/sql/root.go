package sql

import (
	"github.com/quantadb/quanta-go/client"
	"github.com/quantadb/quanta-go/cmd/util"
	"github.com/spf13/cobra"
)

var (
	dbClient *client.Client

	// SQLCommands represents the SQL command group
	SQLCommands = &cobra.Command{
		Use:                "sql",
		Short:              "Run SQL statements against the cluster",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the SQL command
	util.SetupClientFlags(SQLCommands)

	// Add subcommands
	SQLCommands.AddCommand(execCmd)
	SQLCommands.AddCommand(queryCmd)
	SQLCommands.AddCommand(perfTestCmd)
}

// setupClient connects and authenticates against the cluster
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	dbClient, err = client.Connect(util.GetClientConfig(), util.GetCredentials())
	return err
}

func teardownClient(_ *cobra.Command, _ []string) error {
	if dbClient != nil {
		dbClient.Disconnect()
	}
	return nil
}
