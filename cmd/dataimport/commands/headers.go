package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataimport/internal/application"
	"github.com/JonMunkholm/dataimport/internal/reader"
)

var headersCmd = &cobra.Command{
	Use:   "headers <definition> <file>",
	Short: "Shows how the columns of a file line up with a definition",
	Long: `The headers command reads the normalized header line and the first rows of the
file without validating them. It lists the declared fields the file lacks and
the columns the definition ignores.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		rows, _ := cmd.Flags().GetInt("rows")

		p, err := env.service.Preview(cmd.Context(), args[0], reader.FromPath(args[1]), rows)
		if err != nil {
			return userError(err)
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		printPreview(cmd.OutOrStdout(), p)
		return nil
	},
}

func init() {
	AddCommand(headersCmd)
	headersCmd.Flags().Bool("json", false, "Print the preview as JSON")
	headersCmd.Flags().Int("rows", application.DefaultPreviewRows, "Number of sample rows")
}
