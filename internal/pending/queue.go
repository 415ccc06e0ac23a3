// Package pending implements the stage-and-promote review queue. Proposed
// transactions wait in an isolated file; approval materialises them into
// monthly ledger files behind a validator gate with full rollback.
package pending

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/pipeline"
)

// Metadata keys attached to staged transactions.
const (
	MetaAISource      = "ai_source"
	MetaConfidence    = "confidence"
	MetaProposed      = "proposed_account"
	MetaCapex         = "capex"
	MetaCCASuggested  = "cca_class_suggested"
	MetaMLSuggestion  = "ml_suggestion"
	MetaLLMSuggestion = "llm_suggestion"
)

// Item pairs a parsed bank transaction with its pipeline proposal.
type Item struct {
	Tx     *model.Transaction
	Result pipeline.Result
}

// Queue stages transactions in pendingPath and promotes them into the
// ledger store on approval.
type Queue struct {
	pendingPath string
	store       *ledger.Store
	log         *zap.Logger
}

// NewQueue creates a Queue over the given pending file and ledger store.
func NewQueue(pendingPath string, store *ledger.Store, log *zap.Logger) *Queue {
	return &Queue{pendingPath: pendingPath, store: store, log: log}
}

// Path returns the pending file path.
func (q *Queue) Path() string { return q.pendingPath }

// Write stages items: each transaction gets the pending tag, the "!" flag,
// its Unclassified posting replaced by the proposed account, and the AI
// metadata keys. Returns the number staged.
func (q *Queue) Write(items []Item) (int, error) {
	existing, err := q.readFileOrHeader()
	if err != nil {
		return 0, err
	}

	var b strings.Builder
	b.WriteString(existing)
	for _, item := range items {
		tx := stage(item)
		b.WriteString("\n")
		b.WriteString(ledger.RenderTransaction(tx))
	}

	if err := renameio.WriteFile(q.pendingPath, []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("writing pending file: %w", err)
	}
	q.log.Info("staged pending transactions", zap.Int("count", len(items)))
	return len(items), nil
}

func stage(item Item) *model.Transaction {
	tx := item.Tx.Clone()
	tx.Flag = model.FlagPending
	tx.Tags.Add(model.TagPending)

	r := item.Result
	tx.Meta.Set(MetaAISource, string(r.Source))
	tx.Meta.Set(MetaConfidence, strconv.FormatFloat(r.Confidence, 'f', 2, 64))
	tx.Meta.Set(MetaProposed, r.Account)
	if r.IsCapex {
		tx.Meta.Set(MetaCapex, "true")
		if r.CCAClass != 0 {
			tx.Meta.Set(MetaCCASuggested, strconv.Itoa(r.CCAClass))
		}
	}
	if r.MLSuggestion != nil {
		tx.Meta.Set(MetaMLSuggestion, formatSuggestion(*r.MLSuggestion))
	}
	if r.LLMSuggestion != nil {
		tx.Meta.Set(MetaLLMSuggestion, formatSuggestion(*r.LLMSuggestion))
	}

	for i := range tx.Postings {
		if tx.Postings[i].Account == model.AccountUnclassified {
			tx.Postings[i].Account = r.Account
		}
	}
	return tx
}

func formatSuggestion(s pipeline.Suggestion) string {
	return fmt.Sprintf("%s (%.2f)", s.Account, s.Confidence)
}

// Read returns the staged transactions in file order.
func (q *Queue) Read() ([]*model.Transaction, error) {
	data, err := os.ReadFile(q.pendingPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading pending file: %w", err)
	}
	entries, _, _, errs := ledger.Parse(string(data), q.pendingPath)
	if len(errs) > 0 {
		var merr *multierror.Error
		for _, e := range errs {
			merr = multierror.Append(merr, e)
		}
		return nil, fmt.Errorf("parsing pending file: %w", merr.ErrorOrNil())
	}

	var txs []*model.Transaction
	for _, e := range entries {
		if tx, ok := e.(*model.Transaction); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// Approve promotes the transactions at the given indices into their monthly
// files, in input order, then re-validates the ledger. On validation failure
// every touched file is restored to its snapshot, files created by the batch
// are deleted, and the returned count is 0 with the validator errors.
func (q *Queue) Approve(ctx context.Context, indices []int) (int, error) {
	txs, err := q.Read()
	if err != nil {
		return 0, err
	}
	approved, remaining, err := partition(txs, indices)
	if err != nil {
		return 0, err
	}
	if len(approved) == 0 {
		return 0, nil
	}

	// Snapshot everything this batch can touch before mutating anything.
	snap := newSnapshot()
	if err := snap.capture(q.pendingPath); err != nil {
		return 0, err
	}
	if err := snap.capture(q.store.MainPath()); err != nil {
		return 0, err
	}
	for _, tx := range approved {
		if err := snap.capture(q.store.MonthlyPath(tx.Date.Year(), int(tx.Date.Month()))); err != nil {
			return 0, err
		}
	}

	if err := q.promote(approved, remaining); err != nil {
		if rerr := snap.restore(); rerr != nil {
			return 0, fmt.Errorf("promoting batch: %w (rollback also failed: %v)", err, rerr)
		}
		return 0, err
	}

	ok, lines, err := q.store.Validate(ctx)
	if err != nil || !ok {
		if rerr := snap.restore(); rerr != nil {
			q.log.Error("rollback failed", zap.Error(rerr))
		}
		if err != nil {
			return 0, fmt.Errorf("validating after approval: %w", err)
		}
		var merr *multierror.Error
		for _, line := range lines {
			merr = multierror.Append(merr, errors.New(line))
		}
		return 0, fmt.Errorf("ledger validation rejected batch: %w", merr.ErrorOrNil())
	}

	q.log.Info("approved pending transactions", zap.Int("count", len(approved)))
	return len(approved), nil
}

func (q *Queue) promote(approved, remaining []*model.Transaction) error {
	for _, tx := range approved {
		clean := tx.Clone()
		clean.Tags.Remove(model.TagPending)
		clean.Flag = model.FlagCleared

		year, month := clean.Date.Year(), int(clean.Date.Month())
		if _, err := q.store.WriteEntriesToMonthlyFile(year, month, "\n"+ledger.RenderTransaction(clean)); err != nil {
			return err
		}
		rel := fmt.Sprintf("%04d/%02d.beancount", year, month)
		if err := q.store.EnsureInclude(rel); err != nil {
			return err
		}
	}
	return q.rewrite(remaining)
}

// Reassign changes the proposed account of the staged transaction at index
// and rewrites the pending file. It returns the updated transaction and the
// account it was previously assigned to.
func (q *Queue) Reassign(index int, account string) (*model.Transaction, string, error) {
	txs, err := q.Read()
	if err != nil {
		return nil, "", err
	}
	if index < 0 || index >= len(txs) {
		return nil, "", fmt.Errorf("pending index %d out of range (have %d)", index, len(txs))
	}

	tx := txs[index]
	previous, _ := tx.Meta.Get(MetaProposed)
	for i := range tx.Postings {
		if tx.Postings[i].Account == previous {
			tx.Postings[i].Account = account
		}
	}
	tx.Meta.Set(MetaProposed, account)

	if err := q.rewrite(txs); err != nil {
		return nil, "", err
	}
	q.log.Info("reassigned pending transaction",
		zap.Int("index", index), zap.String("account", account))
	return tx, previous, nil
}

// Reject removes the transactions at the given indices from the pending
// file. Monthly files are never touched.
func (q *Queue) Reject(indices []int) (int, error) {
	txs, err := q.Read()
	if err != nil {
		return 0, err
	}
	rejected, remaining, err := partition(txs, indices)
	if err != nil {
		return 0, err
	}
	if len(rejected) == 0 {
		return 0, nil
	}
	if err := q.rewrite(remaining); err != nil {
		return 0, err
	}
	q.log.Info("rejected pending transactions", zap.Int("count", len(rejected)))
	return len(rejected), nil
}

func (q *Queue) rewrite(txs []*model.Transaction) error {
	var b strings.Builder
	b.WriteString(ledger.Header())
	for _, tx := range txs {
		b.WriteString("\n")
		b.WriteString(ledger.RenderTransaction(tx))
	}
	if err := renameio.WriteFile(q.pendingPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("rewriting pending file: %w", err)
	}
	return nil
}

func (q *Queue) readFileOrHeader() (string, error) {
	data, err := os.ReadFile(q.pendingPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ledger.Header(), nil
		}
		return "", fmt.Errorf("reading pending file: %w", err)
	}
	return string(data), nil
}

// partition splits txs into (selected, remaining) by index, preserving input
// order of the selection. A repeated index selects its transaction once.
func partition(txs []*model.Transaction, indices []int) ([]*model.Transaction, []*model.Transaction, error) {
	for _, i := range indices {
		if i < 0 || i >= len(txs) {
			return nil, nil, fmt.Errorf("pending index %d out of range (have %d)", i, len(txs))
		}
	}

	selected := make(map[int]bool, len(indices))
	var chosen []*model.Transaction
	for _, i := range indices {
		if selected[i] {
			continue
		}
		selected[i] = true
		chosen = append(chosen, txs[i])
	}
	var remaining []*model.Transaction
	for i, tx := range txs {
		if !selected[i] {
			remaining = append(remaining, tx)
		}
	}
	return chosen, remaining, nil
}

// snapshot captures file contents for rollback. A nil entry records that the
// file did not exist.
type snapshot struct {
	files map[string][]byte
}

func newSnapshot() *snapshot {
	return &snapshot{files: make(map[string][]byte)}
}

func (s *snapshot) capture(path string) error {
	if _, done := s.files[path]; done {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.files[path] = nil
			return nil
		}
		return fmt.Errorf("snapshotting %s: %w", path, err)
	}
	s.files[path] = data
	return nil
}

func (s *snapshot) restore() error {
	var merr *multierror.Error
	for path, data := range s.files {
		if data == nil {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				merr = multierror.Append(merr, fmt.Errorf("removing %s: %w", path, err))
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			merr = multierror.Append(merr, err)
			continue
		}
		if err := renameio.WriteFile(path, data, 0o644); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("restoring %s: %w", path, err))
		}
	}
	return merr.ErrorOrNil()
}
