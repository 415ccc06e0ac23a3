package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/payroll"
)

func newPayrollCommand(app *appContext) *cobra.Command {
	var (
		brutStr   string
		offsetStr string
		dateStr   string
		period    int
		write     bool
	)

	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Compute a pay period and optionally write the journal entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPayroll(cmd, app, brutStr, offsetStr, dateStr, period, write)
		},
	}

	cmd.Flags().StringVar(&brutStr, "brut", "", "gross pay for the period (required)")
	_ = cmd.MarkFlagRequired("brut")
	cmd.Flags().IntVar(&period, "period", 1, "pay period number within the year")
	cmd.Flags().StringVar(&dateStr, "date", "", "pay date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&offsetStr, "offset", "", "part of net pay applied against the shareholder loan")
	cmd.Flags().BoolVar(&write, "write", false, "append the journal entry to the ledger")

	return cmd
}

func runPayroll(cmd *cobra.Command, app *appContext, brutStr, offsetStr, dateStr string, period int, write bool) error {
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

	brut, err := money.FromString(brutStr, money.DefaultCurrency)
	if err != nil {
		return fmt.Errorf("invalid gross pay: %w", err)
	}
	offset := money.Zero(money.DefaultCurrency)
	if offsetStr != "" {
		if offset, err = money.FromString(offsetStr, money.DefaultCurrency); err != nil {
			return fmt.Errorf("invalid offset: %w", err)
		}
	}
	payDate := time.Now().UTC().Truncate(24 * time.Hour)
	if dateStr != "" {
		if payDate, err = time.Parse("2006-01-02", dateStr); err != nil {
			return fmt.Errorf("invalid pay date: %w", err)
		}
	}

	engine := payroll.NewEngine(log)
	result, err := engine.ComputePay(snap.Entries, brut, period, payDate.Year(), cfg.Payroll.PeriodsPerYear)
	if err != nil {
		return err
	}

	printPayroll(cmd, result)

	if !write {
		return nil
	}
	tx, err := payroll.BuildJournal(payroll.JournalParams{
		Date:         payDate,
		Payee:        cfg.Business.Name,
		Result:       result,
		BankAccount:  cfg.Bank.Account,
		SalaryOffset: offset,
	})
	if err != nil {
		return err
	}
	year, month := payDate.Year(), int(payDate.Month())
	if _, err := store.WriteEntriesToMonthlyFile(year, month, "\n"+ledger.RenderTransaction(tx)); err != nil {
		return err
	}
	if err := store.EnsureInclude(fmt.Sprintf("%04d/%02d.beancount", year, month)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote payroll entry for period %d to %04d/%02d.beancount.\n",
		period, year, month)
	return nil
}

func printPayroll(cmd *cobra.Command, r *payroll.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Period %d\n", r.Period)
	fmt.Fprintf(out, "  Brut                %12s\n", r.Brut)
	fmt.Fprintln(out, "  Employee deductions:")
	fmt.Fprintf(out, "    RRQ base          %12s\n", r.QPPBase)
	fmt.Fprintf(out, "    RRQ suppl. 1      %12s\n", r.QPPSupp1)
	fmt.Fprintf(out, "    RRQ suppl. 2      %12s\n", r.QPPSupp2)
	fmt.Fprintf(out, "    RQAP              %12s\n", r.QPAP)
	fmt.Fprintf(out, "    AE                %12s\n", r.EI)
	fmt.Fprintf(out, "    Impôt fédéral     %12s\n", r.FederalTax)
	fmt.Fprintf(out, "    Impôt Québec      %12s\n", r.QuebecTax)
	fmt.Fprintf(out, "  Total deductions    %12s\n", r.TotalDeductions)
	fmt.Fprintf(out, "  Net                 %12s\n", r.Net)
	fmt.Fprintln(out, "  Employer contributions:")
	fmt.Fprintf(out, "    RRQ               %12s\n", sumMoney(r.EmployerQPPBase, r.EmployerQPPSupp1, r.EmployerQPPSupp2))
	fmt.Fprintf(out, "    RQAP              %12s\n", r.EmployerQPAP)
	fmt.Fprintf(out, "    AE                %12s\n", r.EmployerEI)
	fmt.Fprintf(out, "    FSS               %12s\n", r.FSS)
	fmt.Fprintf(out, "    CNESST            %12s\n", r.CNESST)
	fmt.Fprintf(out, "    CNT               %12s\n", r.CNT)
	fmt.Fprintf(out, "  Total employer      %12s\n", r.TotalEmployer)
}

func sumMoney(values ...money.Money) money.Money {
	total := money.Zero(values[0].Currency)
	for _, v := range values {
		s, err := total.Add(v)
		if err != nil {
			return total
		}
		total = s
	}
	return total
}
