package commands

import (
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists recent completed imports",
	Long:  `The runs command lists the imports recorded in the database, newest first. It needs DATABASE_URL.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := env.service.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), runs)
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

func init() {
	AddCommand(runsCmd)
	runsCmd.Flags().Bool("json", false, "Print the runs as JSON")
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs")
}
