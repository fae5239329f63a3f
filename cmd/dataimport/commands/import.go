package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

var importCmd = &cobra.Command{
	Use:   "import <definition> <file>",
	Short: "Validates a file and saves its valid rows",
	Long: `The import command validates the file like validate does and then saves each
valid row. With DATABASE_URL set rows go to the import_rows table and the run is
recorded in import_runs; otherwise every saved row is only logged.

With --strict nothing is saved when any row is invalid. A failing save stops
the import; rows saved before the failure are kept.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		strict, _ := cmd.Flags().GetBool("strict")

		if !env.service.HasDatabase() {
			slog.Info("no database configured, saved rows are only logged")
		}

		rep, err := env.service.Import(cmd.Context(), args[0], reader.FromPath(args[1]),
			application.ImportOptions{Strict: strict})
		if rep != nil {
			if asJSON {
				if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
					return err
				}
			} else {
				printReport(cmd.OutOrStdout(), rep)
			}
		}
		if err != nil {
			return userError(err)
		}
		if strict && !rep.Valid {
			errColor.Fprintln(cmd.ErrOrStderr(), "Nothing was saved.")
		}
		return nil
	},
}

func init() {
	AddCommand(importCmd)
	importCmd.Flags().Bool("json", false, "Print the report as JSON")
	importCmd.Flags().Bool("strict", false, "Save nothing when any row is invalid")
}
