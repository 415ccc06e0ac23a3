// Package accounts provides in-memory lookup over the chart of accounts
// declared by the ledger's Open directives.
package accounts

import (
	"sort"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// Service provides lookups over the chart of accounts.
type Service struct {
	opens  []*model.Open
	byName map[string]*model.Open
}

// NewService creates a Service from the ledger's Open directives. Later
// duplicates are ignored; the ledger store reports them as errors.
func NewService(opens []*model.Open) *Service {
	byName := make(map[string]*model.Open, len(opens))
	kept := make([]*model.Open, 0, len(opens))
	for _, o := range opens {
		if _, ok := byName[o.Account]; ok {
			continue
		}
		byName[o.Account] = o
		kept = append(kept, o)
	}
	return &Service{opens: kept, byName: byName}
}

// All returns every declared account name, sorted.
func (s *Service) All() []string {
	names := make([]string, 0, len(s.opens))
	for _, o := range s.opens {
		names = append(names, o.Account)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether an account is declared.
func (s *Service) Exists(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// GIFI returns the Canadian tax-schedule code attached to an account's Open
// directive, if any. Used only at export.
func (s *Service) GIFI(name string) (string, bool) {
	o, ok := s.byName[name]
	if !ok {
		return "", false
	}
	return o.Meta.Get("gifi")
}

// ByRoot returns declared accounts under a top-level class, sorted.
func (s *Service) ByRoot(root string) []string {
	var out []string
	for _, o := range s.opens {
		if model.AccountRoot(o.Account) == root {
			out = append(out, o.Account)
		}
	}
	sort.Strings(out)
	return out
}

// Expenses returns the declared expense accounts, the candidate set offered
// to the classifiers.
func (s *Service) Expenses() []string {
	return s.ByRoot(model.RootExpenses)
}
