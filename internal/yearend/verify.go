// Package yearend runs the pre-package verification checks over a ledger
// snapshot. Every check always runs; severity decides whether the accountant
// package can be generated.
package yearend

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Severity grades a check outcome.
type Severity string

// Severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Check is one verification outcome.
type Check struct {
	Name     string
	Passed   bool
	Message  string
	Severity Severity
}

// Sales-tax accounts reconciled by the TPS/TVQ check.
const (
	accountTPSReceivable = "Assets:TPS-Receivable"
	accountTVQReceivable = "Assets:TVQ-Receivable"
	accountTPSPayable    = "Liabilities:TPS-Payable"
	accountTVQPayable    = "Liabilities:TVQ-Payable"
)

const assetEquipmentPrefix = "Assets:Equipment"

// Verify runs all checks over the fiscal year ending fiscalYearEnd. A
// failing check never stops the later ones.
func Verify(entries []model.Directive, fiscalYearEnd time.Time) []Check {
	txs := fiscalTransactions(entries, fiscalYearEnd)
	balances := accountBalances(txs)

	checks := []Check{
		checkBalancedBooks(balances),
		checkLoanBalance(balances),
		checkImmobilisedAssets(balances),
		checkSalesTax(balances),
		checkUnclassified(txs),
		checkPendingFlags(txs),
	}
	return checks
}

// BlocksPackage reports whether any error-severity check failed.
func BlocksPackage(checks []Check) bool {
	for _, c := range checks {
		if !c.Passed && c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// fiscalTransactions keeps transactions dated inside the fiscal year, the
// twelve months up to and including fiscalYearEnd.
func fiscalTransactions(entries []model.Directive, fiscalYearEnd time.Time) []*model.Transaction {
	start := fiscalYearEnd.AddDate(-1, 0, 0)
	var txs []*model.Transaction
	for _, e := range entries {
		tx, ok := e.(*model.Transaction)
		if !ok || !tx.Date.After(start) || tx.Date.After(fiscalYearEnd) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

func accountBalances(txs []*model.Transaction) map[string]decimal.Decimal {
	balances := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		for _, p := range tx.Postings {
			balances[p.Account] = balances[p.Account].Add(p.Units.Amount)
		}
	}
	return balances
}

func checkBalancedBooks(balances map[string]decimal.Decimal) Check {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b)
	}
	if total.IsZero() {
		return Check{
			Name: "livres-equilibres", Passed: true,
			Message: "all account balances sum to zero", Severity: SeverityInfo,
		}
	}
	return Check{
		Name: "livres-equilibres", Passed: false,
		Message:  fmt.Sprintf("account balances sum to %s, expected zero", total.StringFixed(2)),
		Severity: SeverityError,
	}
}

func checkLoanBalance(balances map[string]decimal.Decimal) Check {
	balance := balances[model.AccountShareholderLoan]
	if balance.IsZero() {
		return Check{
			Name: "pret-actionnaire", Passed: true,
			Message: "shareholder loan fully settled at year-end", Severity: SeverityInfo,
		}
	}
	return Check{
		Name: "pret-actionnaire", Passed: false,
		Message: fmt.Sprintf("shareholder loan carries %s at year-end",
			money.New(balance.Neg(), money.DefaultCurrency).Quantize()),
		Severity: SeverityWarning,
	}
}

func checkImmobilisedAssets(balances map[string]decimal.Decimal) Check {
	total := decimal.Zero
	for account, b := range balances {
		if strings.HasPrefix(account, assetEquipmentPrefix) {
			total = total.Add(b)
		}
	}
	if total.IsNegative() {
		return Check{
			Name: "immobilisations", Passed: false,
			Message:  fmt.Sprintf("immobilised assets are negative: %s", total.StringFixed(2)),
			Severity: SeverityWarning,
		}
	}
	return Check{
		Name: "immobilisations", Passed: true,
		Message:  fmt.Sprintf("immobilised assets total %s", total.StringFixed(2)),
		Severity: SeverityInfo,
	}
}

// checkSalesTax reconciles collected minus paid against the net payable for
// both TPS and TVQ. Informational only; the accountant settles the return.
func checkSalesTax(balances map[string]decimal.Decimal) Check {
	netTPS := balances[accountTPSPayable].Neg().Sub(balances[accountTPSReceivable])
	netTVQ := balances[accountTVQPayable].Neg().Sub(balances[accountTVQReceivable])
	return Check{
		Name: "taxes-ventes", Passed: true,
		Message: fmt.Sprintf("net TPS %s, net TVQ %s",
			netTPS.StringFixed(2), netTVQ.StringFixed(2)),
		Severity: SeverityInfo,
	}
}

func checkUnclassified(txs []*model.Transaction) Check {
	count := 0
	for _, tx := range txs {
		for _, p := range tx.Postings {
			if p.Account == model.AccountUnclassified {
				count++
				break
			}
		}
	}
	if count == 0 {
		return Check{
			Name: "non-classes", Passed: true,
			Message: "no unclassified transactions", Severity: SeverityInfo,
		}
	}
	return Check{
		Name: "non-classes", Passed: false,
		Message:  fmt.Sprintf("%d transactions remain unclassified", count),
		Severity: SeverityWarning,
	}
}

func checkPendingFlags(txs []*model.Transaction) Check {
	count := 0
	for _, tx := range txs {
		if tx.Flag == model.FlagPending {
			count++
		}
	}
	if count == 0 {
		return Check{
			Name: "en-attente", Passed: true,
			Message: "no pending-flagged transactions", Severity: SeverityInfo,
		}
	}
	return Check{
		Name: "en-attente", Passed: false,
		Message:  fmt.Sprintf("%d transactions still carry the review flag", count),
		Severity: SeverityWarning,
	}
}
