package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func cad(s string) money.Money {
	return money.MustFromString(s, "CAD")
}

func sampleTx() *Transaction {
	return &Transaction{
		Date:      date(2026, 3, 14),
		Flag:      FlagCleared,
		Payee:     "Hydro-Québec",
		Narration: "Électricité mars",
		Tags:      NewStringSet(),
		Meta:      NewMeta(),
		Postings: []Posting{
			{Account: "Expenses:Office:Rent", Units: cad("142.17"), Meta: NewMeta()},
			{Account: "Assets:Bank:Checking", Units: cad("-142.17"), Meta: NewMeta()},
		},
	}
}

func TestTransaction_Balances(t *testing.T) {
	tx := sampleTx()
	assert.True(t, tx.Balances())

	tx.Postings[0].Units = cad("142.18")
	assert.False(t, tx.Balances())
	residual := tx.ResidualByCurrency()
	assert.Equal(t, "0.01", residual["CAD"].StringFixed(2))
}

func TestTransaction_Clone_Independent(t *testing.T) {
	tx := sampleTx()
	tx.Tags.Add("pending")
	tx.Meta.Set("confidence", "0.92")

	c := tx.Clone()
	c.Tags.Remove("pending")
	c.Meta.Set("confidence", "0.10")
	c.Postings[0].Account = "Expenses:Unclassified"

	assert.True(t, tx.HasTag("pending"))
	v, _ := tx.Meta.Get("confidence")
	assert.Equal(t, "0.92", v)
	assert.Equal(t, "Expenses:Office:Rent", tx.Postings[0].Account)
}

func TestMeta_PreservesInsertionOrder(t *testing.T) {
	m := NewMeta()
	m.Set("b", "2")
	m.Set("a", "1")
	m.Set("c", "3")
	m.Set("a", "9")

	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "9", v)
}

func TestIsValidAccountName(t *testing.T) {
	assert.True(t, IsValidAccountName("Expenses:Office:Supplies"))
	assert.True(t, IsValidAccountName("Liabilities:Shareholder-Loan"))
	assert.False(t, IsValidAccountName("expenses:office"))
	assert.False(t, IsValidAccountName("Expenses"))
	assert.False(t, IsValidAccountName("Wages:Salaires"))
}

func TestAccountRoot(t *testing.T) {
	assert.Equal(t, RootExpenses, AccountRoot("Expenses:Meals"))
	assert.Equal(t, RootLiabilities, AccountRoot(AccountShareholderLoan))
}
