// Package rates holds the per-year frozen table of statutory payroll rates,
// thresholds and tax brackets for Québec and federal computations. The table
// is read-only after initialisation and fails loudly for unknown years.
package rates

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bracket is one income-tax bracket: tax = Rate*annual - K for annual income
// at or above Threshold (and below the next bracket's threshold).
type Bracket struct {
	Threshold decimal.Decimal
	Rate      decimal.Decimal
	K         decimal.Decimal
}

// Table is the statutory rate table for one fiscal year. All values are
// exact decimals.
type Table struct {
	Year int

	// Québec Pension Plan (RRQ).
	QPPBaseRate   decimal.Decimal // base rate, employee and employer
	QPPSupp1Rate  decimal.Decimal // first additional rate, MGA tier
	QPPSupp2Rate  decimal.Decimal // second additional rate, MGA..MGAP tier
	MGA           decimal.Decimal // maximum pensionable earnings
	MGAP          decimal.Decimal // supplementary maximum pensionable earnings
	QPPExemption  decimal.Decimal // basic annual exemption
	QPPMaxBase    decimal.Decimal // YTD cap, base contribution
	QPPMaxSupp1   decimal.Decimal // YTD cap, first additional
	QPPMaxSupp2   decimal.Decimal // YTD cap, second additional

	// Québec Parental Insurance Plan (RQAP).
	QPAPEmployeeRate decimal.Decimal
	QPAPEmployerRate decimal.Decimal
	QPAPMaxInsurable decimal.Decimal
	QPAPMaxEmployee  decimal.Decimal
	QPAPMaxEmployer  decimal.Decimal

	// Employment insurance, Québec rate.
	EIEmployeeRate       decimal.Decimal
	EIEmployerMultiplier decimal.Decimal
	EIMaxInsurable       decimal.Decimal
	EIMaxEmployee        decimal.Decimal

	// Employer-only levies.
	FSSRate    decimal.Decimal // health services fund, services sector
	CNESSTRate decimal.Decimal // workplace safety, IT consultancy unit
	CNTRate    decimal.Decimal // labour standards

	// Income tax.
	FederalBrackets        []Bracket
	QuebecBrackets         []Bracket
	FederalPersonalAmount  decimal.Decimal
	QuebecPersonalAmount   decimal.Decimal
	CanadaEmploymentAmount decimal.Decimal
	FederalCreditRate      decimal.Decimal
	QuebecCreditRate       decimal.Decimal
	QuebecAbatement        decimal.Decimal
	QPPBaseCreditFactor    decimal.Decimal // base share of the total QPP rate
}

// UnknownYearError is returned for a year absent from the table.
type UnknownYearError struct {
	Year int
}

func (e *UnknownYearError) Error() string {
	return fmt.Sprintf("no statutory rate table for year %d", e.Year)
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad rate literal %q: %v", s, err))
	}
	return v
}

func b(threshold, rate, k string) Bracket {
	return Bracket{Threshold: d(threshold), Rate: d(rate), K: d(k)}
}

var tables = map[int]*Table{
	2025: {
		Year: 2025,

		QPPBaseRate:  d("0.054"),
		QPPSupp1Rate: d("0.01"),
		QPPSupp2Rate: d("0.04"),
		MGA:          d("71300"),
		MGAP:         d("81200"),
		QPPExemption: d("3500"),
		QPPMaxBase:   d("3661.20"),
		QPPMaxSupp1:  d("678.00"),
		QPPMaxSupp2:  d("396.00"),

		QPAPEmployeeRate: d("0.00494"),
		QPAPEmployerRate: d("0.00692"),
		QPAPMaxInsurable: d("98000"),
		QPAPMaxEmployee:  d("484.12"),
		QPAPMaxEmployer:  d("678.16"),

		EIEmployeeRate:       d("0.0131"),
		EIEmployerMultiplier: d("1.4"),
		EIMaxInsurable:       d("65700"),
		EIMaxEmployee:        d("860.67"),

		FSSRate:    d("0.0165"),
		CNESSTRate: d("0.0046"),
		CNTRate:    d("0.0006"),

		FederalBrackets: []Bracket{
			b("0", "0.14", "0"),
			b("57375", "0.205", "3729.38"),
			b("114750", "0.26", "10040.63"),
			b("177882", "0.29", "15377.09"),
			b("253414", "0.33", "25513.65"),
		},
		QuebecBrackets: []Bracket{
			b("0", "0.14", "0"),
			b("53255", "0.19", "2662.75"),
			b("106495", "0.24", "7987.50"),
			b("129590", "0.2575", "10255.33"),
		},
		FederalPersonalAmount:  d("16129"),
		QuebecPersonalAmount:   d("18571"),
		CanadaEmploymentAmount: d("1471"),
		FederalCreditRate:      d("0.14"),
		QuebecCreditRate:       d("0.14"),
		QuebecAbatement:        d("0.165"),
		QPPBaseCreditFactor:    d("0.053").Div(d("0.063")),
	},
	2026: {
		Year: 2026,

		QPPBaseRate:  d("0.054"),
		QPPSupp1Rate: d("0.01"),
		QPPSupp2Rate: d("0.04"),
		MGA:          d("74600"),
		MGAP:         d("85000"),
		QPPExemption: d("3500"),
		QPPMaxBase:   d("3839.40"),
		QPPMaxSupp1:  d("711.00"),
		QPPMaxSupp2:  d("416.00"),

		QPAPEmployeeRate: d("0.00494"),
		QPAPEmployerRate: d("0.00692"),
		QPAPMaxInsurable: d("101000"),
		QPAPMaxEmployee:  d("498.94"),
		QPAPMaxEmployer:  d("698.92"),

		EIEmployeeRate:       d("0.0131"),
		EIEmployerMultiplier: d("1.4"),
		EIMaxInsurable:       d("68500"),
		EIMaxEmployee:        d("897.35"),

		FSSRate:    d("0.0165"),
		CNESSTRate: d("0.0046"),
		CNTRate:    d("0.0006"),

		FederalBrackets: []Bracket{
			b("0", "0.14", "0"),
			b("58523", "0.205", "3804.00"),
			b("117045", "0.26", "10241.47"),
			b("181440", "0.29", "15684.67"),
			b("258482", "0.33", "26023.95"),
		},
		QuebecBrackets: []Bracket{
			b("0", "0.14", "0"),
			b("54320", "0.19", "2716.00"),
			b("108625", "0.24", "8147.25"),
			b("132180", "0.2575", "10460.40"),
		},
		FederalPersonalAmount:  d("16452"),
		QuebecPersonalAmount:   d("18943"),
		CanadaEmploymentAmount: d("1500"),
		FederalCreditRate:      d("0.14"),
		QuebecCreditRate:       d("0.14"),
		QuebecAbatement:        d("0.165"),
		QPPBaseCreditFactor:    d("0.053").Div(d("0.063")),
	},
}

// ForYear returns the frozen table for a fiscal year.
func ForYear(year int) (*Table, error) {
	t, ok := tables[year]
	if !ok {
		return nil, &UnknownYearError{Year: year}
	}
	return t, nil
}

// BracketFor locates the bracket for an annualised income.
func BracketFor(brackets []Bracket, annual decimal.Decimal) Bracket {
	selected := brackets[0]
	for _, br := range brackets {
		if annual.GreaterThanOrEqual(br.Threshold) {
			selected = br
		}
	}
	return selected
}
