package sql

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/quantadb/quanta-go/client"
	"github.com/spf13/cobra"
)

var (
	execCmd = &cobra.Command{
		Use:   "exec [statement] [params...]",
		Short: "Runs a statement that does not return rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				params = append(params, p)
			}
			result, err := dbClient.Data().ExecuteWithParams(cmd.Context(), args[0], params...)
			if err != nil {
				return err
			}
			fmt.Printf("ok, %d row(s) affected\n", result.RowsAffected)
			if result.LastInsertID != 0 {
				fmt.Printf("last insert id: %d\n", result.LastInsertID)
			}
			return nil
		},
	}
	queryCmd = &cobra.Command{
		Use:   "query [statement] [params...]",
		Short: "Runs a statement and prints the result rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make([]any, 0, len(args)-1)
			for _, p := range args[1:] {
				params = append(params, p)
			}
			result, err := dbClient.Data().QueryWithParams(cmd.Context(), args[0], params...)
			if err != nil {
				return err
			}
			printResultSet(cmd.OutOrStdout(), result)
			return nil
		},
	}
)

// printResultSet writes a query result as an aligned table
func printResultSet(out io.Writer, result *client.QueryResult) {
	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))

	for _, row := range result.Rows {
		cells := make([]string, 0, len(row.Values()))
		for _, v := range row.Values() {
			cells = append(cells, v.String())
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()

	fmt.Fprintf(w, "(%d row(s))\n", result.RowCount())
	w.Flush()
}
