// Package model defines the double-entry ledger data model: directives,
// transactions, postings and ordered metadata.
package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Transaction flags.
const (
	FlagCleared = "*"
	FlagPending = "!"
)

// TagPending marks a transaction staged in the review queue.
const TagPending = "pending"

// TagPayroll marks payroll journal transactions; year-to-date accumulators
// are derived from them.
const TagPayroll = "paie"

// Directive is one dated entry in the ledger.
type Directive interface {
	// Directive returns the directive keyword, e.g. "transaction" or "open".
	Directive() string
	// When returns the directive date.
	When() time.Time
}

// Posting is one leg of a transaction.
type Posting struct {
	Account string
	Units   money.Money
	Cost    *money.Money
	Price   *money.Money
	Flag    string
	Meta    *Meta
}

// Transaction is a dated set of postings that must balance per currency.
type Transaction struct {
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      StringSet
	Links     StringSet
	Postings  []Posting
	Meta      *Meta
}

// Directive implements Directive.
func (t *Transaction) Directive() string { return "transaction" }

// When implements Directive.
func (t *Transaction) When() time.Time { return t.Date }

// HasTag reports whether the transaction carries tag.
func (t *Transaction) HasTag(tag string) bool { return t.Tags.Has(tag) }

// ResidualByCurrency sums posting units per currency. A balanced transaction
// yields only zero residuals.
func (t *Transaction) ResidualByCurrency() map[string]decimal.Decimal {
	residual := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		cur := p.Units.Currency
		residual[cur] = residual[cur].Add(p.Units.Amount)
	}
	return residual
}

// Balances reports whether every currency's postings sum to zero.
func (t *Transaction) Balances() bool {
	for _, r := range t.ResidualByCurrency() {
		if !r.IsZero() {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	c.Tags = t.Tags.Clone()
	c.Links = t.Links.Clone()
	c.Meta = t.Meta.Clone()
	c.Postings = make([]Posting, len(t.Postings))
	for i, p := range t.Postings {
		cp := p
		cp.Meta = p.Meta.Clone()
		if p.Cost != nil {
			cost := *p.Cost
			cp.Cost = &cost
		}
		if p.Price != nil {
			price := *p.Price
			cp.Price = &price
		}
		c.Postings[i] = cp
	}
	return &c
}

// Open declares an account. Exactly one Open per account is allowed; the
// "gifi" meta key maps the account to its Canadian tax-schedule code.
type Open struct {
	Date       time.Time
	Account    string
	Currencies []string
	Meta       *Meta
}

// Directive implements Directive.
func (o *Open) Directive() string { return "open" }

// When implements Directive.
func (o *Open) When() time.Time { return o.Date }

// Balance asserts an account balance on a date.
type Balance struct {
	Date    time.Time
	Account string
	Amount  money.Money
}

// Directive implements Directive.
func (b *Balance) Directive() string { return "balance" }

// When implements Directive.
func (b *Balance) When() time.Time { return b.Date }

// Document attaches a file to an account.
type Document struct {
	Date    time.Time
	Account string
	Path    string
}

// Directive implements Directive.
func (d *Document) Directive() string { return "document" }

// When implements Directive.
func (d *Document) When() time.Time { return d.Date }

// StringSet is an unordered set of strings (transaction tags and links).
type StringSet map[string]struct{}

// NewStringSet builds a set from values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts a value.
func (s StringSet) Add(v string) { s[v] = struct{}{} }

// Has reports membership.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Remove deletes a value if present.
func (s StringSet) Remove(v string) { delete(s, v) }

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the set.
func (s StringSet) Clone() StringSet {
	c := make(StringSet, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}
