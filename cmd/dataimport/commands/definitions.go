package commands

import (
	"github.com/spf13/cobra"
)

var definitionsCmd = &cobra.Command{
	Use:     "definitions",
	Aliases: []string{"defs"},
	Short:   "Lists the registered importer definitions",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		defs := env.service.Definitions()
		if asJSON {
			return printJSON(cmd.OutOrStdout(), defs)
		}
		printDefinitions(cmd.OutOrStdout(), defs)
		return nil
	},
}

func init() {
	AddCommand(definitionsCmd)
	definitionsCmd.Flags().Bool("json", false, "Print the definitions as JSON")
}
