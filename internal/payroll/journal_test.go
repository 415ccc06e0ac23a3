package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

func computeResult(t *testing.T) *Result {
	t.Helper()
	e := NewEngine(zaptest.NewLogger(t))
	r, err := e.ComputePay(nil, cad("5000.00"), 1, 2026, 26)
	require.NoError(t, err)
	return r
}

func TestBuildJournal_Balances(t *testing.T) {
	r := computeResult(t)

	tx, err := BuildJournal(JournalParams{
		Date:   date(2026, 1, 9),
		Result: r,
	})
	require.NoError(t, err)

	assert.True(t, tx.Balances(), "residuals: %v", tx.ResidualByCurrency())
	assert.True(t, tx.HasTag(model.TagPayroll))
	assert.Equal(t, model.FlagCleared, tx.Flag)

	typ, _ := tx.Meta.Get("type")
	assert.Equal(t, "paie", typ)
	period, _ := tx.Meta.Get(MetaPeriod)
	assert.Equal(t, "1", period)

	// Bank outflow equals net pay when nothing is offset.
	bank := postingFor(t, tx, AccountBankDefault)
	assert.True(t, bank.Units.Cmp(r.Net.Neg()) == 0)
}

func TestBuildJournal_ComponentsRebuildYTD(t *testing.T) {
	r := computeResult(t)
	tx, err := BuildJournal(JournalParams{Date: date(2026, 1, 9), Result: r})
	require.NoError(t, err)

	ytd := DeriveYTD([]model.Directive{tx}, 2026)
	assert.True(t, ytd.Brut.Cmp(r.Brut) == 0)
	assert.True(t, ytd.QPPBase.Cmp(r.QPPBase) == 0)
	assert.True(t, ytd.QPPSupp1.Cmp(r.QPPSupp1) == 0)
	assert.True(t, ytd.QPPSupp2.Cmp(r.QPPSupp2) == 0)
	assert.True(t, ytd.QPAP.Cmp(r.QPAP) == 0)
	assert.True(t, ytd.QPAPEmployer.Cmp(r.EmployerQPAP) == 0)
	assert.True(t, ytd.EI.Cmp(r.EI) == 0)
}

func TestBuildJournal_SalaryOffsetRepaysLoan(t *testing.T) {
	r := computeResult(t)
	offset := cad("1000.00")

	tx, err := BuildJournal(JournalParams{
		Date:         date(2026, 1, 9),
		Result:       r,
		SalaryOffset: offset,
	})
	require.NoError(t, err)
	assert.True(t, tx.Balances())

	loan := postingFor(t, tx, model.AccountShareholderLoan)
	assert.True(t, loan.Units.Cmp(offset.Neg()) == 0)

	wantBank, err := r.Net.Sub(offset)
	require.NoError(t, err)
	bank := postingFor(t, tx, AccountBankDefault)
	assert.True(t, bank.Units.Cmp(wantBank.Neg()) == 0)

	meta, _ := tx.Meta.Get(MetaOffset)
	assert.Equal(t, "1000.00 CAD", meta)
}

func TestBuildJournal_OffsetExceedingNetRejected(t *testing.T) {
	r := computeResult(t)

	over, err := r.Net.Add(cad("0.01"))
	require.NoError(t, err)
	_, err = BuildJournal(JournalParams{Date: date(2026, 1, 9), Result: r, SalaryOffset: over})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)

	_, err = BuildJournal(JournalParams{Date: date(2026, 1, 9), Result: r, SalaryOffset: cad("-5.00")})
	require.ErrorAs(t, err, &derr)
}

func TestBuildJournal_CustomBankAccount(t *testing.T) {
	r := computeResult(t)
	tx, err := BuildJournal(JournalParams{
		Date:        date(2026, 1, 9),
		Result:      r,
		BankAccount: "Assets:Bank:Operating",
	})
	require.NoError(t, err)
	assert.NotNil(t, postingFor(t, tx, "Assets:Bank:Operating"))
}

func postingFor(t *testing.T, tx *model.Transaction, account string) *model.Posting {
	t.Helper()
	var found *model.Posting
	for i := range tx.Postings {
		if tx.Postings[i].Account == account {
			require.Nil(t, found, "multiple postings on %s", account)
			found = &tx.Postings[i]
		}
	}
	require.NotNil(t, found, "no posting on %s", account)
	return found
}
