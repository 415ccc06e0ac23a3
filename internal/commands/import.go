package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/accounts"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/intake"
	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/llm"
	"github.com/grandlivre-dev/grandlivre/internal/ml"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/pending"
	"github.com/grandlivre-dev/grandlivre/internal/pipeline"
	"github.com/grandlivre-dev/grandlivre/internal/rules"
)

func newImportCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import bank statements and categorise new transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, app)
		},
	}
}

func runImport(cmd *cobra.Command, app *appContext) error {
	log, err := app.logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg, err := app.config()
	if err != nil {
		return err
	}
	root, err := app.root()
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

	files, err := intake.Scan(root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No statement files to import.")
		return nil
	}

	pendingPath, err := app.path(pendingFileName)
	if err != nil {
		return err
	}
	queue := pending.NewQueue(pendingPath, store, log)
	staged, err := queue.Read()
	if err != nil {
		return err
	}

	known := intake.KnownKeys(snap.Entries)
	for _, tx := range staged {
		if id, ok := tx.Meta.Get(intake.MetaImportID); ok {
			known[id] = true
		}
	}

	pipe, err := buildPipeline(app, cfg, snap, log)
	if err != nil {
		return err
	}

	registry := intake.DefaultRegistry()
	var direct, queued, duplicates int
	var items []pending.Item

	for _, f := range files {
		parser := registry.ForFile(f.Name, cfg.Bank.CSVFormat)
		if parser == nil {
			log.Warn("no parser for statement file", zap.String("file", f.Name))
			continue
		}
		txns, err := parseStatement(parser, f.Path)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", f.Name, err)
		}
		fresh, dup := intake.FilterNew(txns, known)
		duplicates += dup

		for _, btx := range fresh {
			known[intake.Key(btx)] = true
			tx := intake.Build(btx, cfg.Bank.Account)

			result := pipe.Categorise(cmd.Context(), btx.Description, "", txExpense(tx))
			switch pipe.RoutingDestination(result) {
			case pipeline.RouteDirect:
				if err := writeDirect(store, tx, result.Account); err != nil {
					return err
				}
				direct++
			default:
				items = append(items, pending.Item{Tx: tx, Result: result})
			}
		}

		if err := intake.MarkProcessed(root, f.Name); err != nil {
			return err
		}
	}

	if len(items) > 0 {
		n, err := queue.Write(items)
		if err != nil {
			return err
		}
		queued = n
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"Imported %d transactions: %d categorised directly, %d staged for review, %d duplicates skipped.\n",
		direct+queued, direct, queued, duplicates)
	return nil
}

func buildPipeline(app *appContext, cfg *config.Config, snap *ledger.Snapshot, log *zap.Logger) (*pipeline.Pipeline, error) {
	svc := accounts.NewService(snap.Opens())

	rulesPath, err := app.path(rulesFileName)
	if err != nil {
		return nil, err
	}
	ruleList, err := rules.LoadFile(rulesPath)
	if err != nil {
		return nil, err
	}
	engine := rules.NewEngine(ruleList, svc, log)

	predictor := ml.NewPredictor()
	predictor.Train(trainingSamples(snap.Transactions()))

	var classifier pipeline.Classifier
	if key := cfg.APIKey(); key != "" {
		auditPath, err := app.path(auditLogRelPath)
		if err != nil {
			return nil, err
		}
		classifier = llm.NewClassifier(llm.Config{
			Endpoint:     cfg.LLM.Endpoint,
			APIKey:       key,
			Model:        cfg.LLM.Model,
			AuditLogPath: auditPath,
		}, svc, log)
	} else {
		log.Warn("no API key in environment, LLM tier disabled",
			zap.String("variable", config.EnvAPIKey))
	}

	contexts := pipeline.NewSnapshotContext(snap.Transactions())
	pipe := pipeline.New(engine, predictor, classifier, contexts, log)
	pipe.SetThresholds(cfg.Thresholds.Direct, cfg.Thresholds.Review)
	return pipe, nil
}

func parseStatement(parser intake.Parser, path string) ([]intake.BankTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parser.Parse(f)
}

// trainingSamples extracts labelled history for the supervised tier.
func trainingSamples(txs []*model.Transaction) []ml.Sample {
	var samples []ml.Sample
	for _, tx := range txs {
		if tx.HasTag(model.TagPending) || tx.HasTag(model.TagPayroll) {
			continue
		}
		account := categorisedExpense(tx)
		if account == "" {
			continue
		}
		samples = append(samples, ml.Sample{
			Payee:     tx.Payee,
			Narration: tx.Narration,
			Account:   account,
		})
	}
	return samples
}

func categorisedExpense(tx *model.Transaction) string {
	for _, p := range tx.Postings {
		if p.Account == model.AccountUnclassified {
			return ""
		}
	}
	for _, p := range tx.Postings {
		if strings.HasPrefix(p.Account, model.RootExpenses+":") {
			return p.Account
		}
	}
	return ""
}

// txExpense returns the amount awaiting categorisation.
func txExpense(tx *model.Transaction) money.Money {
	for _, p := range tx.Postings {
		if p.Account == model.AccountUnclassified {
			return p.Units
		}
	}
	return money.Zero(money.DefaultCurrency)
}

func writeDirect(store *ledger.Store, tx *model.Transaction, account string) error {
	clean := tx.Clone()
	for i := range clean.Postings {
		if clean.Postings[i].Account == model.AccountUnclassified {
			clean.Postings[i].Account = account
		}
	}
	year, month := clean.Date.Year(), int(clean.Date.Month())
	if _, err := store.WriteEntriesToMonthlyFile(year, month, "\n"+ledger.RenderTransaction(clean)); err != nil {
		return err
	}
	return store.EnsureInclude(fmt.Sprintf("%04d/%02d.beancount", year, month))
}
