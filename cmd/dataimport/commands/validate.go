package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataimport/internal/reader"
)

var validateCmd = &cobra.Command{
	Use:   "validate <definition> <file>",
	Short: "Checks every row of a file against a definition",
	Long: `The validate command reads the file with the reader selected by its extension
(or by the definition), runs the definition's required-field checks and field
rules on every row and prints the errors per line and field. Nothing is saved.

Exits with status 1 when any row is invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		rep, err := env.service.Validate(cmd.Context(), args[0], reader.FromPath(args[1]))
		if err != nil {
			return userError(err)
		}

		if asJSON {
			if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
		} else {
			printReport(cmd.OutOrStdout(), rep)
		}
		if !rep.Valid {
			return fmt.Errorf("%d of %d rows have errors", rep.InvalidRows(), rep.Rows)
		}
		return nil
	},
}

func init() {
	AddCommand(validateCmd)
	validateCmd.Flags().Bool("json", false, "Print the report as JSON")
}
