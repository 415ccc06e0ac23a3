package model

import "strings"

// The five top-level account classes. Account names are colon-delimited
// paths rooted at one of these; ledger file headers alias them to their
// French display names.
const (
	RootAssets      = "Assets"
	RootLiabilities = "Liabilities"
	RootEquity      = "Equity"
	RootIncome      = "Income"
	RootExpenses    = "Expenses"
)

// AccountUnclassified receives every posting the pipeline could not place.
const AccountUnclassified = "Expenses:Unclassified"

// AccountShareholderLoan tracks advances to and repayments from the
// shareholder.
const AccountShareholderLoan = "Liabilities:Shareholder-Loan"

// RootClasses lists the valid top-level classes in declaration order.
var RootClasses = []string{RootAssets, RootLiabilities, RootEquity, RootIncome, RootExpenses}

// FrenchAlias maps each root class to its rendered French name.
var FrenchAlias = map[string]string{
	RootAssets:      "Actifs",
	RootLiabilities: "Passifs",
	RootEquity:      "Capitaux-Propres",
	RootIncome:      "Revenus",
	RootExpenses:    "Depenses",
}

// AccountRoot returns the top-level class of an account path.
func AccountRoot(account string) string {
	if i := strings.IndexByte(account, ':'); i >= 0 {
		return account[:i]
	}
	return account
}

// IsValidAccountName reports whether the path is rooted at a known class and
// every segment is non-empty.
func IsValidAccountName(account string) bool {
	segments := strings.Split(account, ":")
	if len(segments) < 2 {
		return false
	}
	valid := false
	for _, root := range RootClasses {
		if segments[0] == root {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}
	for _, s := range segments {
		if s == "" {
			return false
		}
	}
	return true
}
