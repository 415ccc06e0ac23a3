package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/yearend"
)

func newVerifyCommand(app *appContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the year-end verification checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, app, year)
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "calendar year to verify")
	return cmd
}

func runVerify(cmd *cobra.Command, app *appContext, year int) error {
	log, err := app.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := app.config()
	if err != nil {
		return err
	}
	store, err := app.store(log)
	if err != nil {
		return err
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}

	checks := yearend.Verify(snap.Entries, cfg.FiscalYearEnd(year))
	out := cmd.OutOrStdout()
	for _, c := range checks {
		status := "ok"
		if !c.Passed {
			status = string(c.Severity)
		}
		fmt.Fprintf(out, "  [%-7s] %-18s %s\n", status, c.Name, c.Message)
	}

	if yearend.BlocksPackage(checks) {
		return fmt.Errorf("verification failed: fix the errors above before generating the accountant package")
	}
	fmt.Fprintln(out, "Verification passed.")
	return nil
}
