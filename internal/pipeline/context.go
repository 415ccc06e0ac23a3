package pipeline

import (
	"strings"

	"github.com/grandlivre-dev/grandlivre/internal/llm"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

const contextLimit = 5

// SnapshotContext derives LLM prompt context from categorised ledger
// transactions.
type SnapshotContext struct {
	txs []*model.Transaction
}

// NewSnapshotContext builds a context provider over the given transactions.
// Unclassified and pending transactions contribute nothing.
func NewSnapshotContext(txs []*model.Transaction) *SnapshotContext {
	var usable []*model.Transaction
	for _, tx := range txs {
		if tx.HasTag(model.TagPending) {
			continue
		}
		if account := expenseAccount(tx); account != "" {
			usable = append(usable, tx)
		}
	}
	return &SnapshotContext{txs: usable}
}

// VendorHistory returns per-account counts of past transactions with the
// same payee.
func (c *SnapshotContext) VendorHistory(payee string) []llm.VendorHistoryItem {
	needle := strings.ToUpper(strings.TrimSpace(payee))
	if needle == "" {
		return nil
	}
	counts := make(map[string]int)
	var order []string
	for _, tx := range c.txs {
		if strings.ToUpper(strings.TrimSpace(tx.Payee)) != needle {
			continue
		}
		account := expenseAccount(tx)
		if counts[account] == 0 {
			order = append(order, account)
		}
		counts[account]++
	}
	var items []llm.VendorHistoryItem
	for _, account := range order {
		items = append(items, llm.VendorHistoryItem{Account: account, Count: counts[account]})
		if len(items) == contextLimit {
			break
		}
	}
	return items
}

// SimilarTransactions returns past transactions sharing a word with the
// payee or narration, most recent first.
func (c *SnapshotContext) SimilarTransactions(payee, narration string) []llm.SimilarTransaction {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToUpper(payee + " " + narration)) {
		if len(w) >= 4 {
			words[w] = true
		}
	}
	if len(words) == 0 {
		return nil
	}

	var similar []llm.SimilarTransaction
	for i := len(c.txs) - 1; i >= 0 && len(similar) < contextLimit; i-- {
		tx := c.txs[i]
		haystack := strings.ToUpper(tx.Payee + " " + tx.Narration)
		for w := range words {
			if strings.Contains(haystack, w) {
				similar = append(similar, llm.SimilarTransaction{
					Payee:     tx.Payee,
					Narration: tx.Narration,
					Amount:    txAmount(tx),
					Account:   expenseAccount(tx),
				})
				break
			}
		}
	}
	return similar
}

// expenseAccount returns the transaction's expense-side account, empty for
// uncategorised or non-expense transactions.
func expenseAccount(tx *model.Transaction) string {
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

func txAmount(tx *model.Transaction) money.Money {
	for _, p := range tx.Postings {
		if strings.HasPrefix(p.Account, model.RootExpenses+":") {
			return p.Units
		}
	}
	return money.Zero(money.DefaultCurrency)
}
