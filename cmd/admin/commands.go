package admin

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Prints the cluster status summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := dbClient.Admin().Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("leader=%d term=%d nodes=%d healthy=%d\n",
				state.Leader, state.Term, state.NodeCount, state.HealthyCount)
			return nil
		},
	}
	nodesCmd = &cobra.Command{
		Use:   "nodes",
		Short: "Lists the cluster nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := dbClient.Admin().ListNodes(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range nodes {
				fmt.Printf("id=%d host=%s role=%s healthy=%v\n", n.ID, n.Host, n.Role, n.Healthy)
			}
			return nil
		},
	}
	addNodeCmd = &cobra.Command{
		Use:   "add-node [host:port]",
		Short: "Adds a node to the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dbClient.Admin().AddNode(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("node added")
			return nil
		},
	}
	removeNodeCmd = &cobra.Command{
		Use:   "remove-node [id]",
		Short: "Removes a node from the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nodeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("node id must be a number: %w", err)
			}
			if err := dbClient.Admin().RemoveNode(cmd.Context(), nodeID); err != nil {
				return err
			}
			fmt.Println("node removed")
			return nil
		},
	}
	createUserCmd = &cobra.Command{
		Use:   "create-user [username] [password]",
		Short: "Creates a database user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dbClient.Admin().CreateUser(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("user created")
			return nil
		},
	}
	dropUserCmd = &cobra.Command{
		Use:   "drop-user [username]",
		Short: "Removes a database user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dbClient.Admin().DropUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("user dropped")
			return nil
		},
	}
	grantRoleCmd = &cobra.Command{
		Use:   "grant-role [username] [role]",
		Short: "Grants a role to a database user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := dbClient.Admin().GrantRole(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("role granted")
			return nil
		},
	}
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Probes every configured node and prints the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, info := range dbClient.HealthCheck(cmd.Context()) {
				fmt.Printf("host=%s healthy=%v failures=%d\n",
					info.Host, info.Healthy, info.ConsecutiveFailures)
			}
			return nil
		},
	}
)
