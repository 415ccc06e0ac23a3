package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/feedback"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/pending"
	"github.com/grandlivre-dev/grandlivre/internal/rules"
)

func newPendingCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Review transactions staged by the categorisation pipeline",
	}
	cmd.AddCommand(
		newPendingListCommand(app),
		newPendingApproveCommand(app),
		newPendingRejectCommand(app),
		newPendingCorrectCommand(app),
	)
	return cmd
}

func (a *appContext) queue() (*pending.Queue, error) {
	log, err := a.logger()
	if err != nil {
		return nil, err
	}
	store, err := a.store(log)
	if err != nil {
		return nil, err
	}
	pendingPath, err := a.path(pendingFileName)
	if err != nil {
		return nil, err
	}
	return pending.NewQueue(pendingPath, store, log), nil
}

func newPendingListCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := app.queue()
			if err != nil {
				return err
			}
			txs, err := queue.Read()
			if err != nil {
				return err
			}
			if len(txs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending transactions.")
				return nil
			}
			for i, tx := range txs {
				printPending(cmd, i+1, tx)
			}
			return nil
		},
	}
}

func printPending(cmd *cobra.Command, n int, tx *model.Transaction) {
	account, _ := tx.Meta.Get(pending.MetaProposed)
	confidence, _ := tx.Meta.Get(pending.MetaConfidence)
	source, _ := tx.Meta.Get(pending.MetaAISource)

	fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s  %-30s -> %s (%s, conf %s)\n",
		n, tx.Date.Format("2006-01-02"), tx.Payee, account, source, confidence)
	if _, ok := tx.Meta.Get(pending.MetaCapex); ok {
		cca, _ := tx.Meta.Get(pending.MetaCCASuggested)
		fmt.Fprintf(cmd.OutOrStdout(), "     CAPEX candidate, suggested CCA class %s\n", cca)
	}
	if s, ok := tx.Meta.Get(pending.MetaMLSuggestion); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "     ml:  %s\n", s)
	}
	if s, ok := tx.Meta.Get(pending.MetaLLMSuggestion); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "     llm: %s\n", s)
	}
}

func newPendingApproveCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <n>...",
		Short: "Promote staged transactions into the ledger",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := parseIndices(args)
			if err != nil {
				return err
			}
			queue, err := app.queue()
			if err != nil {
				return err
			}
			n, err := queue.Approve(cmd.Context(), indices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Approved %d transactions.\n", n)
			return nil
		},
	}
}

func newPendingRejectCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject <n>...",
		Short: "Discard staged transactions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indices, err := parseIndices(args)
			if err != nil {
				return err
			}
			queue, err := app.queue()
			if err != nil {
				return err
			}
			n, err := queue.Reject(indices)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %d transactions.\n", n)
			return nil
		},
	}
}

func newPendingCorrectCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "correct <n> <account>",
		Short: "Reassign a staged transaction and record the correction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil || index < 1 {
				return fmt.Errorf("invalid pending number %q", args[0])
			}
			account := args[1]
			if !model.IsValidAccountName(account) {
				return fmt.Errorf("invalid account name %q", account)
			}

			queue, err := app.queue()
			if err != nil {
				return err
			}
			tx, previous, err := queue.Reassign(index-1, account)
			if err != nil {
				return err
			}

			log, err := app.logger()
			if err != nil {
				return err
			}
			historyPath, err := app.path(historyFileName)
			if err != nil {
				return err
			}
			recorder := feedback.NewRecorder(historyPath, log)
			rule, err := recorder.RecordCorrection(tx.Payee, account, previous, "")
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Reassigned %q from %s to %s.\n", tx.Payee, previous, account)
			if rule != nil {
				rulesPath, err := app.path(rulesFileName)
				if err != nil {
					return err
				}
				added, err := rules.AppendRule(rulesPath, *rule)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s for future %q transactions.\n",
						rule.Name, tx.Payee)
				}
			}
			return nil
		},
	}
}

func parseIndices(args []string) ([]int, error) {
	var indices []int
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid pending number %q", a)
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}
