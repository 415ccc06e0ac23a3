// Package payroll computes Québec and federal statutory deductions and
// employer contributions per pay period, with year-to-date caps derived
// from the ledger, and generates the balanced payroll journal entry.
package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/rates"
)

// DefaultPeriodsPerYear is the bi-weekly pay schedule.
const DefaultPeriodsPerYear = 26

// Result is the frozen outcome of one pay-period computation. Every field
// is exact decimal money.
type Result struct {
	Period int
	Brut   money.Money

	// Employee deductions.
	QPPBase    money.Money
	QPPSupp1   money.Money
	QPPSupp2   money.Money
	QPAP       money.Money
	EI         money.Money
	FederalTax money.Money
	QuebecTax  money.Money

	TotalDeductions money.Money
	Net             money.Money

	// Employer contributions.
	EmployerQPPBase  money.Money
	EmployerQPPSupp1 money.Money
	EmployerQPPSupp2 money.Money
	EmployerQPAP     money.Money
	EmployerEI       money.Money
	FSS              money.Money
	CNESST           money.Money
	CNT              money.Money

	TotalEmployer money.Money
}

// Engine computes pay periods against a fiscal-year rate table.
type Engine struct {
	log *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(log *zap.Logger) *Engine {
	return &Engine{log: log}
}

// ComputePay computes one pay period. entries is the current ledger
// snapshot; year-to-date accumulators come from its payroll transactions.
// An unknown rate-table year fails loudly.
func (e *Engine) ComputePay(entries []model.Directive, brut money.Money, periodNumber, year, periodsPerYear int) (*Result, error) {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	if brut.IsNegative() {
		return nil, &DomainError{Msg: fmt.Sprintf("gross pay must be non-negative, got %s", brut)}
	}
	brut = brut.Quantize()
	table, err := rates.ForYear(year)
	if err != nil {
		return nil, err
	}

	ytd := DeriveYTD(entries, year)
	periods := decimal.NewFromInt(int64(periodsPerYear))
	cur := brut.Currency

	quant := func(d decimal.Decimal) money.Money {
		return money.New(d, cur).Quantize()
	}

	// Employee QPP base: rate on earnings up to the period proration of
	// (MGA - exemption), bounded by the annual cap.
	periodMGABase := table.MGA.Sub(table.QPPExemption).Div(periods)
	basePensionable := decimal.Min(brut.Amount, periodMGABase)
	if basePensionable.IsNegative() {
		basePensionable = decimal.Zero
	}
	qppBase := capAt(quant(basePensionable.Mul(table.QPPBaseRate)), ytd.QPPBase, table.QPPMaxBase, cur)
	qppSupp1 := capAt(quant(basePensionable.Mul(table.QPPSupp1Rate)), ytd.QPPSupp1, table.QPPMaxSupp1, cur)

	// Supplementary 2 applies to the slice of earnings between the period
	// prorations of MGA and MGAP.
	periodMGA := table.MGA.Div(periods)
	periodBand := table.MGAP.Sub(table.MGA).Div(periods)
	aboveMGA := decimal.Max(decimal.Zero, brut.Amount.Sub(periodMGA))
	supp2Base := decimal.Min(aboveMGA, periodBand)
	qppSupp2 := capAt(quant(supp2Base.Mul(table.QPPSupp2Rate)), ytd.QPPSupp2, table.QPPMaxSupp2, cur)

	// QPAP and EI premiums apply only up to the period proration of the
	// maximum insurable earnings.
	qpapInsurable := decimal.Min(brut.Amount, table.QPAPMaxInsurable.Div(periods))
	qpap := capAt(quant(qpapInsurable.Mul(table.QPAPEmployeeRate)), ytd.QPAP, table.QPAPMaxEmployee, cur)
	eiInsurable := decimal.Min(brut.Amount, table.EIMaxInsurable.Div(periods))
	ei := capAt(quant(eiInsurable.Mul(table.EIEmployeeRate)), ytd.EI, table.EIMaxEmployee, cur)

	federalTax := quant(e.federalTax(table, brut.Amount, periods, qppBase, ei, qpap))
	quebecTax := quant(e.quebecTax(table, brut.Amount, periods, qppBase, qppSupp1, qppSupp2, qpap))

	total := sum(qppBase, qppSupp1, qppSupp2, qpap, ei, federalTax, quebecTax)
	net, err := brut.Sub(total)
	if err != nil {
		return nil, err
	}

	// Employer side: QPP mirrors the employee exactly; QPAP has its own
	// higher rate and cap; EI is a fixed multiple of the employee premium.
	employerQPAP := capAt(quant(qpapInsurable.Mul(table.QPAPEmployerRate)), ytd.QPAPEmployer, table.QPAPMaxEmployer, cur)
	employerEI := ei.MulRat(table.EIEmployerMultiplier)
	fss := quant(brut.Amount.Mul(table.FSSRate))
	cnesst := quant(brut.Amount.Mul(table.CNESSTRate))
	cnt := quant(brut.Amount.Mul(table.CNTRate))
	totalEmployer := sum(qppBase, qppSupp1, qppSupp2, employerQPAP, employerEI, fss, cnesst, cnt)

	return &Result{
		Period: periodNumber,
		Brut:   brut.Quantize(),

		QPPBase:    qppBase,
		QPPSupp1:   qppSupp1,
		QPPSupp2:   qppSupp2,
		QPAP:       qpap,
		EI:         ei,
		FederalTax: federalTax,
		QuebecTax:  quebecTax,

		TotalDeductions: total,
		Net:             net.Quantize(),

		EmployerQPPBase:  qppBase,
		EmployerQPPSupp1: qppSupp1,
		EmployerQPPSupp2: qppSupp2,
		EmployerQPAP:     employerQPAP,
		EmployerEI:       employerEI,
		FSS:              fss,
		CNESST:           cnesst,
		CNT:              cnt,

		TotalEmployer: totalEmployer,
	}, nil
}

// federalTax annualises the period, applies the bracket formula with base
// credits, then the Québec abatement, and divides back to the period.
func (e *Engine) federalTax(t *rates.Table, brut decimal.Decimal, periods decimal.Decimal,
	qppBase, ei, qpap money.Money) decimal.Decimal {

	annual := brut.Mul(periods)
	br := rates.BracketFor(t.FederalBrackets, annual)

	k1 := t.FederalCreditRate.Mul(t.FederalPersonalAmount)

	annualQPPBase := decimal.Min(qppBase.Amount.Mul(periods), t.QPPMaxBase)
	annualEI := decimal.Min(ei.Amount.Mul(periods), t.EIMaxEmployee)
	annualQPAP := decimal.Min(qpap.Amount.Mul(periods), t.QPAPMaxEmployee)
	k2q := t.FederalCreditRate.Mul(
		annualQPPBase.Mul(t.QPPBaseCreditFactor).Add(annualEI).Add(annualQPAP))

	k4 := t.FederalCreditRate.Mul(decimal.Min(t.CanadaEmploymentAmount, annual))

	t3 := br.Rate.Mul(annual).Sub(br.K).Sub(k1).Sub(k2q).Sub(k4)
	if t3.IsNegative() {
		t3 = decimal.Zero
	}
	t1 := t3.Mul(decimal.NewFromInt(1).Sub(t.QuebecAbatement))
	return t1.Div(periods)
}

// quebecTax follows the same shape with Québec brackets and credits; the
// credit base uses the total QPP and QPAP and there is no abatement.
// Additional deductions such as the worker deduction may apply here; they
// are not implemented.
func (e *Engine) quebecTax(t *rates.Table, brut decimal.Decimal, periods decimal.Decimal,
	qppBase, qppSupp1, qppSupp2, qpap money.Money) decimal.Decimal {

	annual := brut.Mul(periods)
	br := rates.BracketFor(t.QuebecBrackets, annual)

	k1 := t.QuebecCreditRate.Mul(t.QuebecPersonalAmount)

	totalQPPCap := t.QPPMaxBase.Add(t.QPPMaxSupp1).Add(t.QPPMaxSupp2)
	annualQPP := decimal.Min(
		qppBase.Amount.Add(qppSupp1.Amount).Add(qppSupp2.Amount).Mul(periods), totalQPPCap)
	annualQPAP := decimal.Min(qpap.Amount.Mul(periods), t.QPAPMaxEmployee)
	k2 := t.QuebecCreditRate.Mul(annualQPP.Add(annualQPAP))

	a := br.Rate.Mul(annual).Sub(br.K).Sub(k1).Sub(k2)
	if a.IsNegative() {
		a = decimal.Zero
	}
	return a.Div(periods)
}

// capAt bounds a computed contribution so the year-to-date total never
// exceeds the annual cap.
func capAt(computed money.Money, ytd money.Money, annualCap decimal.Decimal, currency string) money.Money {
	room := annualCap.Sub(ytd.Amount)
	if room.IsNegative() {
		room = decimal.Zero
	}
	if computed.Amount.GreaterThan(room) {
		return money.New(room, currency).Quantize()
	}
	return computed
}

func sum(values ...money.Money) money.Money {
	total := money.Zero(values[0].Currency)
	for _, v := range values {
		total = add(total, v)
	}
	return total
}
