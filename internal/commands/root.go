// Package commands wires the CLI surface: project initialisation, statement
// intake, the review queue, payroll, the shareholder loan and year-end
// verification.
package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/buildinfo"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/logging"
)

// Well-known files under the ledger root.
const (
	rulesFileName   = "regles.yaml"
	pendingFileName = "pending.beancount"
	historyFileName = "corrections.json"
	auditLogRelPath = "logs/llm-audit.jsonl"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	app := &appContext{}

	rootCmd := &cobra.Command{
		Use:     "grandlivre",
		Short:   "Automated bookkeeping for a Québec incorporated consultancy",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&app.dir, "dir", "d", ".", "ledger root directory")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newInitCommand(app),
		newImportCommand(app),
		newPendingCommand(app),
		newPayrollCommand(app),
		newLoanCommand(app),
		newVerifyCommand(app),
		newValidateCommand(app),
	)
	return rootCmd
}

// appContext carries the flags shared by every subcommand and builds the
// components they need.
type appContext struct {
	dir     string
	verbose bool
}

func (a *appContext) root() (string, error) {
	abs, err := filepath.Abs(a.dir)
	if err != nil {
		return "", fmt.Errorf("resolving ledger root: %w", err)
	}
	return abs, nil
}

func (a *appContext) logger() (*zap.Logger, error) {
	return logging.New(a.verbose)
}

func (a *appContext) config() (*config.Config, error) {
	root, err := a.root()
	if err != nil {
		return nil, err
	}
	return config.Load(filepath.Join(root, config.FileName))
}

func (a *appContext) store(log *zap.Logger) (*ledger.Store, error) {
	root, err := a.root()
	if err != nil {
		return nil, err
	}
	return ledger.NewStore(root, log), nil
}

func (a *appContext) path(name string) (string, error) {
	root, err := a.root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}
