package yearend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

func cad(s string) money.Money {
	return money.MustFromString(s, "CAD")
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func tx(txDate time.Time, flag, payee string, postings ...model.Posting) *model.Transaction {
	return &model.Transaction{
		Date:     txDate,
		Flag:     flag,
		Payee:    payee,
		Tags:     model.NewStringSet(),
		Meta:     model.NewMeta(),
		Postings: postings,
	}
}

func p(account, amount string) model.Posting {
	return model.Posting{Account: account, Units: cad(amount), Meta: model.NewMeta()}
}

func fye() time.Time { return date(2026, 12, 31) }

func checkByName(t *testing.T, checks []Check, name string) Check {
	t.Helper()
	for _, c := range checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q", name)
	return Check{}
}

func TestVerify_CleanLedgerPasses(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 3, 1), model.FlagCleared, "Client",
			p("Assets:Bank:Checking", "1000.00"),
			p("Income:Consulting", "-1000.00")),
	}

	checks := Verify(entries, fye())
	require.Len(t, checks, 6)
	for _, c := range checks {
		assert.True(t, c.Passed, "check %s failed: %s", c.Name, c.Message)
	}
	assert.False(t, BlocksPackage(checks))
}

func TestVerify_ImbalanceBlocksPackage(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 3, 1), model.FlagCleared, "Client",
			p("Assets:Bank:Checking", "1000.00"),
			p("Income:Consulting", "-999.00")),
	}

	checks := Verify(entries, fye())
	c := checkByName(t, checks, "livres-equilibres")
	assert.False(t, c.Passed)
	assert.Equal(t, SeverityError, c.Severity)
	assert.True(t, BlocksPackage(checks))
}

func TestVerify_OutstandingLoanWarns(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 5, 1), model.FlagCleared, "Avance",
			p("Assets:Bank:Checking", "4000.00"),
			p(model.AccountShareholderLoan, "-4000.00")),
	}

	checks := Verify(entries, fye())
	c := checkByName(t, checks, "pret-actionnaire")
	assert.False(t, c.Passed)
	assert.Equal(t, SeverityWarning, c.Severity)
	assert.Contains(t, c.Message, "4000.00")

	// A warning never blocks the package on its own.
	assert.False(t, BlocksPackage(checks))
}

func TestVerify_NegativeEquipmentWarns(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 5, 1), model.FlagCleared, "Disposition",
			p("Assets:Equipment:Informatique", "-250.00"),
			p("Assets:Bank:Checking", "250.00")),
	}

	checks := Verify(entries, fye())
	c := checkByName(t, checks, "immobilisations")
	assert.False(t, c.Passed)
	assert.Equal(t, SeverityWarning, c.Severity)
}

func TestVerify_SalesTaxIsInformational(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 5, 1), model.FlagCleared, "Facture",
			p("Assets:Bank:Checking", "1149.75"),
			p("Income:Consulting", "-1000.00"),
			p("Liabilities:TPS-Payable", "-50.00"),
			p("Liabilities:TVQ-Payable", "-99.75")),
	}

	checks := Verify(entries, fye())
	c := checkByName(t, checks, "taxes-ventes")
	assert.True(t, c.Passed)
	assert.Equal(t, SeverityInfo, c.Severity)
	assert.Contains(t, c.Message, "50.00")
	assert.Contains(t, c.Message, "99.75")
}

func TestVerify_UnclassifiedAndPendingCounted(t *testing.T) {
	entries := []model.Directive{
		tx(date(2026, 5, 1), model.FlagCleared, "Mystere",
			p("Assets:Bank:Checking", "-20.00"),
			p(model.AccountUnclassified, "20.00")),
		tx(date(2026, 5, 2), model.FlagPending, "En revision",
			p("Assets:Bank:Checking", "-30.00"),
			p("Expenses:Meals", "30.00")),
	}

	checks := Verify(entries, fye())

	c := checkByName(t, checks, "non-classes")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Message, "1 transactions")

	c = checkByName(t, checks, "en-attente")
	assert.False(t, c.Passed)
	assert.Equal(t, SeverityWarning, c.Severity)
}

func TestVerify_OtherYearsExcluded(t *testing.T) {
	entries := []model.Directive{
		tx(date(2025, 5, 1), model.FlagPending, "Vieux",
			p("Assets:Bank:Checking", "-30.00"),
			p(model.AccountUnclassified, "30.00")),
	}

	checks := Verify(entries, fye())
	assert.True(t, checkByName(t, checks, "non-classes").Passed)
	assert.True(t, checkByName(t, checks, "en-attente").Passed)
}

func TestVerify_NonCalendarFiscalYear(t *testing.T) {
	// Year-end March 31: June 2025 falls inside the fiscal year ending
	// 2026-03-31, June 2026 outside it.
	entries := []model.Directive{
		tx(date(2025, 6, 1), model.FlagCleared, "Dedans",
			p("Assets:Bank:Checking", "-20.00"),
			p(model.AccountUnclassified, "20.00")),
		tx(date(2026, 6, 1), model.FlagCleared, "Dehors",
			p("Assets:Bank:Checking", "-30.00"),
			p(model.AccountUnclassified, "30.00")),
	}

	checks := Verify(entries, date(2026, 3, 31))
	c := checkByName(t, checks, "non-classes")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Message, "1 transactions")
}
