package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the external ledger validator over the full tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := app.logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, err := app.store(log)
			if err != nil {
				return err
			}
			ok, lines, err := store.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				for _, line := range lines {
					fmt.Fprintln(cmd.ErrOrStderr(), line)
				}
				return fmt.Errorf("ledger validation failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger is valid.")
			return nil
		},
	}
}
