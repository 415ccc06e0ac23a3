// Package ledger reads and writes the beancount ledger tree: the main file,
// its monthly includes, and the invariants the engine enforces before any
// mutation becomes visible.
package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// MainFileName is the root ledger file containing Open directives and one
// include per monthly file.
const MainFileName = "main.beancount"

// Snapshot is an in-memory view of the full ledger, rebuilt by re-parsing
// after every mutation.
type Snapshot struct {
	Entries []model.Directive
	Errors  []error
	Options Options
}

// Transactions returns the snapshot's transactions in file order.
func (s *Snapshot) Transactions() []*model.Transaction {
	var out []*model.Transaction
	for _, e := range s.Entries {
		if tx, ok := e.(*model.Transaction); ok {
			out = append(out, tx)
		}
	}
	return out
}

// Opens returns the snapshot's Open directives in file order.
func (s *Snapshot) Opens() []*model.Open {
	var out []*model.Open
	for _, e := range s.Entries {
		if o, ok := e.(*model.Open); ok {
			out = append(out, o)
		}
	}
	return out
}

// Store owns the ledger directory. It serialises mutations behind a mutex;
// readers re-parse and see either the old or the new tree, never a partial
// write.
type Store struct {
	root    string
	log     *zap.Logger
	mu      sync.Mutex
	checker []string
	timeout time.Duration
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	return &Store{
		root:    dir,
		log:     log,
		checker: []string{"bean-check"},
		timeout: 30 * time.Second,
	}
}

// Root returns the ledger root directory.
func (s *Store) Root() string { return s.root }

// MainPath returns the path of the main ledger file.
func (s *Store) MainPath() string { return filepath.Join(s.root, MainFileName) }

// MonthlyPath returns <root>/<year>/<mm>.beancount.
func (s *Store) MonthlyPath(year, month int) string {
	return filepath.Join(s.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d.beancount", month))
}

// Load parses the main file and every include, then checks the per-currency
// balance invariant on each transaction and the one-Open-per-account
// invariant. Violations go to Snapshot.Errors; they never reach callers as
// silent entries.
func (s *Store) Load() (*Snapshot, error) {
	text, err := os.ReadFile(s.MainPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, s.MainPath())
		}
		return nil, fmt.Errorf("reading main ledger: %w", err)
	}

	snap := &Snapshot{Options: make(Options)}
	visited := map[string]bool{filepath.Clean(s.MainPath()): true}
	s.parseInto(snap, string(text), s.MainPath(), visited)

	s.checkBalances(snap)
	s.checkOpens(snap)
	return snap, nil
}

func (s *Store) parseInto(snap *Snapshot, text, path string, visited map[string]bool) {
	entries, includes, opts, errs := Parse(text, path)
	snap.Entries = append(snap.Entries, entries...)
	snap.Errors = append(snap.Errors, errs...)
	for k, v := range opts {
		snap.Options[k] = v
	}

	for _, inc := range includes {
		incPath := filepath.Join(filepath.Dir(path), filepath.FromSlash(inc))
		clean := filepath.Clean(incPath)
		if visited[clean] {
			snap.Errors = append(snap.Errors, &ParseError{
				File: path,
				Msg:  fmt.Sprintf("include cycle: %s already loaded", incPath),
			})
			continue
		}
		visited[clean] = true
		data, err := os.ReadFile(incPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				snap.Errors = append(snap.Errors, fmt.Errorf("%w: %s", ErrFileNotFound, incPath))
			} else {
				snap.Errors = append(snap.Errors, fmt.Errorf("reading include %s: %w", incPath, err))
			}
			continue
		}
		s.parseInto(snap, string(data), incPath, visited)
	}
}

func (s *Store) checkBalances(snap *Snapshot) {
	for _, tx := range snap.Transactions() {
		for currency, residual := range tx.ResidualByCurrency() {
			if !residual.IsZero() {
				snap.Errors = append(snap.Errors, &BalanceError{
					Currency: currency,
					Residual: residual.StringFixed(2),
				})
			}
		}
	}
}

func (s *Store) checkOpens(snap *Snapshot) {
	seen := make(map[string]bool)
	for _, o := range snap.Opens() {
		if seen[o.Account] {
			snap.Errors = append(snap.Errors, &DuplicateOpenError{Account: o.Account})
		}
		seen[o.Account] = true
	}
}

// WriteEntriesToMonthlyFile appends rendered entry text to the month's file,
// creating it with the fixed header when absent. The write goes through a
// temporary sibling and a rename; a partial file is never visible.
func (s *Store) WriteEntriesToMonthlyFile(year, month int, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeMonthlyLocked(year, month, text)
}

func (s *Store) writeMonthlyLocked(year, month int, text string) (string, error) {
	path := s.MonthlyPath(year, month)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating monthly dir: %w", err)
	}

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("reading monthly file: %w", err)
	}
	if len(existing) == 0 {
		existing = []byte(Header())
	}

	content := append(existing, []byte(text)...)
	if err := atomicWrite(path, content); err != nil {
		return "", fmt.Errorf("writing monthly file: %w", err)
	}
	s.log.Debug("wrote monthly file", zap.String("path", path), zap.Int("bytes", len(text)))
	return path, nil
}

// EnsureInclude adds an include directive for relative to the main file.
// Idempotent: an already-present include leaves the file untouched.
func (s *Store) EnsureInclude(relative string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureIncludeLocked(relative)
}

func (s *Store) ensureIncludeLocked(relative string) error {
	mainPath := s.MainPath()
	data, err := os.ReadFile(mainPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, mainPath)
		}
		return fmt.Errorf("reading main ledger: %w", err)
	}

	_, includes, _, _ := Parse(string(data), mainPath)
	for _, inc := range includes {
		if inc == relative {
			return nil
		}
	}

	text := string(data)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		text += "\n"
	}
	text += fmt.Sprintf("include %q\n", relative)
	if err := atomicWrite(mainPath, []byte(text)); err != nil {
		return fmt.Errorf("appending include: %w", err)
	}
	s.log.Debug("added include", zap.String("relative", relative))
	return nil
}

// atomicWrite replaces path via a temporary sibling file and rename. The
// temporary file is cleaned up on every non-rename exit path.
func atomicWrite(path string, data []byte) error {
	return renameio.WriteFile(path, data, 0o644)
}
