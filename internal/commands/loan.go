package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/loan"
)

func newLoanCommand(app *appContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Show the shareholder-loan position and statutory deadlines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoan(cmd, app, year)
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "fiscal year to inspect")
	return cmd
}

func runLoan(cmd *cobra.Command, app *appContext, year int) error {
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

	fiscalYearEnd := cfg.FiscalYearEnd(year)
	state := loan.ComputeState(snap.Entries, fiscalYearEnd)
	out := cmd.OutOrStdout()
	today := time.Now().UTC()

	fmt.Fprintf(out, "Shareholder loan, fiscal year ending %s\n", fiscalYearEnd.Format("2006-01-02"))
	fmt.Fprintf(out, "  Net balance: %s\n", state.NetBalance)

	if len(state.OpenAdvances) == 0 {
		fmt.Fprintln(out, "  No open advances.")
	}
	for _, adv := range state.OpenAdvances {
		dates := loan.ComputeAlertDates(adv.Date, fiscalYearEnd)
		fmt.Fprintf(out, "  Advance %s: %s outstanding of %s, inclusion %s",
			adv.Date.Format("2006-01-02"), adv.Remaining, adv.Initial,
			dates.InclusionDate.Format("2006-01-02"))
		if urgency := dates.ActiveUrgency(today); urgency != loan.UrgencyNone {
			fmt.Fprintf(out, " [%s]", urgency)
		}
		fmt.Fprintln(out)
	}

	patterns := loan.DetectCircularity(state.Movements, loan.DefaultWindowDays, decimal.Zero)
	for _, p := range patterns {
		fmt.Fprintf(out,
			"  WARNING: repayment %s of %s followed by advance %s of %s after %d days; may be treated as a continuing loan\n",
			p.Repayment.Date.Format("2006-01-02"), p.Repayment.Amount.Abs(),
			p.Advance.Date.Format("2006-01-02"), p.Advance.Amount, p.GapDays)
	}
	return nil
}
