package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/grandlivre-dev/grandlivre/internal/accounts"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/ledger"
)

func newInitCommand(app *appContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialise a new ledger with the default Québec chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := app.root()
			if err != nil {
				return err
			}
			return runInit(cmd, root, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runInit(cmd *cobra.Command, root, name string) error {
	mainPath := filepath.Join(root, ledger.MainFileName)
	if _, err := os.Stat(mainPath); err == nil {
		return fmt.Errorf("ledger already initialised: %s exists", mainPath)
	}

	for _, d := range []string{"import", filepath.Join("import", "processed"), "logs"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	if err := config.Save(filepath.Join(root, config.FileName), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	var b strings.Builder
	b.WriteString(ledger.Header())
	b.WriteString("\n")
	for _, open := range accounts.DefaultChart(defaultOpenDate()) {
		b.WriteString(ledger.RenderDirective(open))
	}
	if err := os.WriteFile(mainPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing main ledger: %w", err)
	}

	if err := os.WriteFile(filepath.Join(root, rulesFileName), []byte("rules: []\n"), 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}

	gitignore := "logs/\nimport/\n.env\n"
	if err := os.WriteFile(filepath.Join(root, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialised ledger for %s at %s\n", name, root)
	return nil
}

// defaultOpenDate opens every account on January 1 of the current year.
func defaultOpenDate() time.Time {
	now := time.Now()
	return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}
