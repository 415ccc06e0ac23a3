package payroll

import (
	"fmt"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Ledger accounts touched by a payroll entry.
const (
	AccountSalaryExpense = "Expenses:Salaires"
	AccountBankDefault   = "Assets:Bank:Checking"

	AccountLiabRRQ        = "Liabilities:Payroll:RRQ"
	AccountLiabRQAP       = "Liabilities:Payroll:RQAP"
	AccountLiabEI         = "Liabilities:Payroll:EI"
	AccountLiabFederalTax = "Liabilities:Payroll:FederalTax"
	AccountLiabQuebecTax  = "Liabilities:Payroll:QuebecTax"
	AccountLiabFSS        = "Liabilities:Payroll:FSS"
	AccountLiabCNESST     = "Liabilities:Payroll:CNESST"
	AccountLiabCNT        = "Liabilities:Payroll:CNT"

	AccountEmployerRRQ    = "Expenses:ChargesSociales:RRQ"
	AccountEmployerRQAP   = "Expenses:ChargesSociales:RQAP"
	AccountEmployerEI     = "Expenses:ChargesSociales:EI"
	AccountEmployerFSS    = "Expenses:ChargesSociales:FSS"
	AccountEmployerCNESST = "Expenses:ChargesSociales:CNESST"
	AccountEmployerCNT    = "Expenses:ChargesSociales:CNT"
)

// Transaction metadata keys.
const (
	MetaPeriod = "periode"
	MetaBrut   = "brut"
	MetaOffset = "remboursement_pret"
)

// JournalParams configures BuildJournal. BankAccount defaults to the
// corporate chequing account. SalaryOffset diverts part of the net pay to
// repay the shareholder loan instead of leaving the company.
type JournalParams struct {
	Date         time.Time
	Payee        string
	Result       *Result
	BankAccount  string
	SalaryOffset money.Money
}

// BuildJournal renders a pay-period result as a single balanced transaction
// tagged for payroll. Employee deductions carry component metadata so future
// periods can rebuild year-to-date totals from the ledger alone.
func BuildJournal(p JournalParams) (*model.Transaction, error) {
	r := p.Result
	if r == nil {
		return nil, &DomainError{Msg: "payroll result is required"}
	}
	bank := p.BankAccount
	if bank == "" {
		bank = AccountBankDefault
	}
	offset := p.SalaryOffset
	if offset.Currency == "" {
		offset = money.Zero(r.Net.Currency)
	}
	if offset.IsNegative() {
		return nil, &DomainError{Msg: "salary offset must be non-negative"}
	}
	if offset.Cmp(r.Net) > 0 {
		return nil, &DomainError{
			Msg: fmt.Sprintf("salary offset %s exceeds net pay %s", offset, r.Net),
		}
	}
	bankAmount, err := r.Net.Sub(offset)
	if err != nil {
		return nil, err
	}

	payee := p.Payee
	if payee == "" {
		payee = "Paie"
	}
	tx := &model.Transaction{
		Date:      p.Date,
		Flag:      model.FlagCleared,
		Payee:     payee,
		Narration: fmt.Sprintf("Salaire période %d", r.Period),
		Tags:      model.NewStringSet(model.TagPayroll),
		Meta:      model.NewMeta(),
	}
	tx.Meta.Set("type", "paie")
	tx.Meta.Set(MetaPeriod, fmt.Sprintf("%d", r.Period))
	tx.Meta.Set(MetaBrut, r.Brut.String())
	if !offset.IsZero() {
		tx.Meta.Set(MetaOffset, offset.String())
	}

	post := func(account string, amount money.Money, component string) {
		posting := model.Posting{Account: account, Units: amount, Meta: model.NewMeta()}
		if component != "" {
			posting.Meta.Set(MetaComponent, component)
		}
		tx.Postings = append(tx.Postings, posting)
	}

	// Gross salary expense.
	post(AccountSalaryExpense, r.Brut, "")

	// Employee deductions become source withholdings.
	post(AccountLiabRRQ, r.QPPBase.Neg(), ComponentQPPBase)
	post(AccountLiabRRQ, r.QPPSupp1.Neg(), ComponentQPPSupp1)
	post(AccountLiabRRQ, r.QPPSupp2.Neg(), ComponentQPPSupp2)
	post(AccountLiabRQAP, r.QPAP.Neg(), ComponentQPAP)
	post(AccountLiabEI, r.EI.Neg(), ComponentEI)
	post(AccountLiabFederalTax, r.FederalTax.Neg(), ComponentFederalTax)
	post(AccountLiabQuebecTax, r.QuebecTax.Neg(), ComponentQuebecTax)

	// Net pay leaves the bank, less any loan repayment kept in the company.
	post(bank, bankAmount.Neg(), "")
	if !offset.IsZero() {
		post(model.AccountShareholderLoan, offset.Neg(), "")
	}

	// Employer contributions, expense and matching liability.
	employerRRQ := sum(r.EmployerQPPBase, r.EmployerQPPSupp1, r.EmployerQPPSupp2)
	post(AccountEmployerRRQ, employerRRQ, "")
	post(AccountLiabRRQ, employerRRQ.Neg(), ComponentQPPEmployer)
	post(AccountEmployerRQAP, r.EmployerQPAP, "")
	post(AccountLiabRQAP, r.EmployerQPAP.Neg(), ComponentQPAPEmployer)
	post(AccountEmployerEI, r.EmployerEI, "")
	post(AccountLiabEI, r.EmployerEI.Neg(), ComponentEIEmployer)
	post(AccountEmployerFSS, r.FSS, "")
	post(AccountLiabFSS, r.FSS.Neg(), "")
	post(AccountEmployerCNESST, r.CNESST, "")
	post(AccountLiabCNESST, r.CNESST.Neg(), "")
	post(AccountEmployerCNT, r.CNT, "")
	post(AccountLiabCNT, r.CNT.Neg(), "")

	if !tx.Balances() {
		return nil, fmt.Errorf("payroll entry does not balance: %v", tx.ResidualByCurrency())
	}
	return tx, nil
}
