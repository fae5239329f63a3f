package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset [definition]",
	Short: "Deletes saved rows and run records",
	Long: `The reset command deletes the rows and run records saved by earlier imports of
one definition. Pass --all instead of a definition to clear every import.
This is a destructive operation.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		var name string
		switch {
		case len(args) == 1 && all:
			return errors.New("pass a definition or --all, not both")
		case len(args) == 1:
			name = args[0]
		case !all:
			return errors.New("pass a definition or --all")
		}

		res, err := env.service.Reset(cmd.Context(), name)
		if err != nil {
			return err
		}
		okColor.Fprintf(cmd.OutOrStdout(), "Deleted %d rows and %d runs.\n", res.Rows, res.Runs)
		return nil
	},
}

func init() {
	AddCommand(resetCmd)
	resetCmd.Flags().Bool("all", false, "Clear the imports of every definition")
}
