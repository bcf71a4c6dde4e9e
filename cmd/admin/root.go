package admin

import (
	"github.com/quantadb/quanta-go/client"
	"github.com/quantadb/quanta-go/cmd/util"
	"github.com/spf13/cobra"
)

var (
	dbClient *client.Client

	// AdminCommands represents the admin command group
	AdminCommands = &cobra.Command{
		Use:                "admin",
		Short:              "Perform cluster administration operations",
		PersistentPreRunE:  setupClient,
		PersistentPostRunE: teardownClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the admin command
	util.SetupClientFlags(AdminCommands)

	// Add subcommands
	AdminCommands.AddCommand(statusCmd)
	AdminCommands.AddCommand(nodesCmd)
	AdminCommands.AddCommand(addNodeCmd)
	AdminCommands.AddCommand(removeNodeCmd)
	AdminCommands.AddCommand(createUserCmd)
	AdminCommands.AddCommand(dropUserCmd)
	AdminCommands.AddCommand(grantRoleCmd)
	AdminCommands.AddCommand(healthCmd)
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
