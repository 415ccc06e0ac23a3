package payroll

import (
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Metadata key identifying the statutory component of a payroll posting.
// Year-to-date accumulators are rebuilt by summing these postings; the
// ledger is the single source of truth, never a side file.
const MetaComponent = "composante"

// Component values.
const (
	ComponentQPPBase      = "rrq_base"
	ComponentQPPSupp1     = "rrq_supp1"
	ComponentQPPSupp2     = "rrq_supp2"
	ComponentQPAP         = "rqap"
	ComponentEI           = "ae"
	ComponentFederalTax   = "impot_federal"
	ComponentQuebecTax    = "impot_quebec"
	ComponentQPAPEmployer = "rqap_employeur"
	ComponentEIEmployer   = "ae_employeur"
	ComponentQPPEmployer  = "rrq_employeur"
)

// YTD holds the year-to-date statutory accumulators for one employee.
type YTD struct {
	Brut         money.Money
	QPPBase      money.Money
	QPPSupp1     money.Money
	QPPSupp2     money.Money
	QPAP         money.Money
	QPAPEmployer money.Money
	EI           money.Money
}

// NewYTD returns zeroed accumulators.
func NewYTD() YTD {
	zero := money.Zero(money.DefaultCurrency)
	return YTD{
		Brut: zero, QPPBase: zero, QPPSupp1: zero, QPPSupp2: zero,
		QPAP: zero, QPAPEmployer: zero, EI: zero,
	}
}

// DeriveYTD sums postings of prior payroll transactions in the calendar
// year. Liability credits are stored negative; accumulators take absolute
// values.
func DeriveYTD(entries []model.Directive, year int) YTD {
	ytd := NewYTD()
	for _, e := range entries {
		tx, ok := e.(*model.Transaction)
		if !ok || !tx.HasTag(model.TagPayroll) || tx.Date.Year() != year {
			continue
		}
		for _, p := range tx.Postings {
			if p.Account == AccountSalaryExpense {
				ytd.Brut = add(ytd.Brut, p.Units.Abs())
				continue
			}
			component, ok := p.Meta.Get(MetaComponent)
			if !ok {
				continue
			}
			amount := p.Units.Abs()
			switch component {
			case ComponentQPPBase:
				ytd.QPPBase = add(ytd.QPPBase, amount)
			case ComponentQPPSupp1:
				ytd.QPPSupp1 = add(ytd.QPPSupp1, amount)
			case ComponentQPPSupp2:
				ytd.QPPSupp2 = add(ytd.QPPSupp2, amount)
			case ComponentQPAP:
				ytd.QPAP = add(ytd.QPAP, amount)
			case ComponentQPAPEmployer:
				ytd.QPAPEmployer = add(ytd.QPAPEmployer, amount)
			case ComponentEI:
				ytd.EI = add(ytd.EI, amount)
			}
		}
	}
	return ytd
}

func add(a, b money.Money) money.Money {
	sum, err := a.Add(b)
	if err != nil {
		// Payroll postings are single-currency by construction.
		panic(err)
	}
	return sum
}
