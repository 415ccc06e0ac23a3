// Package loan reconstructs the shareholder-loan position from the ledger:
// net balance, open advances under first-in-first-out repayment allocation,
// statutory inclusion deadlines, and repay-then-reborrow patterns.
package loan

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Circularity detection defaults.
const (
	DefaultWindowDays = 30
	defaultTolerance  = "0.20"
)

// Movement is one posting against the shareholder-loan account. Positive
// amounts are advances to the shareholder, negative amounts repayments.
type Movement struct {
	Date      time.Time
	Amount    money.Money
	Payee     string
	Narration string
}

// Advance is an outstanding draw, tracked oldest first.
type Advance struct {
	Date      time.Time
	Initial   money.Money
	Remaining money.Money
}

// State is the reconstructed loan position at a point in time.
type State struct {
	NetBalance   money.Money
	Movements    []Movement
	OpenAdvances []Advance
}

// AlertDates are the statutory anchors for one advance. The inclusion date
// falls at the end of the fiscal year following the one the advance was made
// in; unrepaid balances become shareholder income on that date.
type AlertDates struct {
	InclusionDate time.Time
	Alert30D      time.Time
	Alert9Mo      time.Time
	Alert11Mo     time.Time
}

// Urgency grades how close an advance is to its inclusion date.
type Urgency string

// Urgency levels, most severe first.
const (
	UrgencyPast Urgency = "past"
	Urgency30D  Urgency = "30d"
	Urgency9Mo  Urgency = "9mo"
	Urgency11Mo Urgency = "11mo"
	UrgencyNone Urgency = "none"
)

// Pattern is a repayment followed shortly by an advance of similar size,
// which the tax authority may treat as a single continuing loan. Patterns
// are surfaced to the operator and never auto-resolved.
type Pattern struct {
	Repayment Movement
	Advance   Movement
	GapDays   int
	Ratio     decimal.Decimal
}

// ComputeState collects shareholder-loan postings from transactions in the
// fiscal year ending fiscalYearEnd, sorted by date, and replays them through
// first-in-first-out repayment allocation.
func ComputeState(entries []model.Directive, fiscalYearEnd time.Time) State {
	movements := collectMovements(entries, fiscalYearEnd.Year())

	balance := money.Zero(money.DefaultCurrency)
	var open []Advance
	for _, m := range movements {
		balance = mustAdd(balance, m.Amount)
		if m.Amount.IsNegative() {
			open = repay(open, m.Amount.Abs())
			continue
		}
		if m.Amount.IsZero() {
			continue
		}
		open = append(open, Advance{Date: m.Date, Initial: m.Amount, Remaining: m.Amount})
	}
	return State{NetBalance: balance, Movements: movements, OpenAdvances: open}
}

func collectMovements(entries []model.Directive, year int) []Movement {
	var movements []Movement
	for _, e := range entries {
		tx, ok := e.(*model.Transaction)
		if !ok || tx.Date.Year() != year {
			continue
		}
		for _, p := range tx.Postings {
			if p.Account != model.AccountShareholderLoan {
				continue
			}
			// The liability account is credit-normal: a credit (negative
			// units) grows what the shareholder owes. Movements carry the
			// shareholder's perspective, so the sign flips.
			movements = append(movements, Movement{
				Date:      tx.Date,
				Amount:    p.Units.Neg(),
				Payee:     tx.Payee,
				Narration: tx.Narration,
			})
		}
	}
	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.Before(movements[j].Date)
	})
	return movements
}

// repay consumes oldest advances first and drops the ones fully repaid.
func repay(open []Advance, amount money.Money) []Advance {
	for i := range open {
		if amount.IsZero() {
			break
		}
		take := money.Min(open[i].Remaining, amount)
		open[i].Remaining = mustSub(open[i].Remaining, take)
		amount = mustSub(amount, take)
	}
	kept := open[:0]
	for _, a := range open {
		if !a.Remaining.IsZero() {
			kept = append(kept, a)
		}
	}
	return kept
}

// ComputeAlertDates derives the inclusion deadline for an advance made in
// the fiscal year containing advanceDate. The deadline is the end of the
// following fiscal year, whatever the advance's calendar date.
func ComputeAlertDates(advanceDate, fiscalYearEnd time.Time) AlertDates {
	fyEnd := fiscalYearEndFor(advanceDate, fiscalYearEnd)
	inclusion := fyEnd.AddDate(1, 0, 0)
	return AlertDates{
		InclusionDate: inclusion,
		Alert30D:      inclusion.AddDate(0, 0, -30),
		Alert9Mo:      inclusion.AddDate(0, -9, 0),
		Alert11Mo:     inclusion.AddDate(0, -11, 0),
	}
}

// fiscalYearEndFor shifts the reference fiscal year end so it is the first
// one on or after the advance date.
func fiscalYearEndFor(advanceDate, fiscalYearEnd time.Time) time.Time {
	end := time.Date(advanceDate.Year(), fiscalYearEnd.Month(), fiscalYearEnd.Day(),
		0, 0, 0, 0, advanceDate.Location())
	if end.Before(advanceDate) {
		end = end.AddDate(1, 0, 0)
	}
	return end
}

// ActiveUrgency grades an advance against today.
func (d AlertDates) ActiveUrgency(today time.Time) Urgency {
	switch {
	case today.After(d.InclusionDate):
		return UrgencyPast
	case !today.Before(d.Alert30D):
		return Urgency30D
	case !today.Before(d.Alert9Mo):
		return Urgency9Mo
	case !today.Before(d.Alert11Mo):
		return Urgency11Mo
	default:
		return UrgencyNone
	}
}

// DetectCircularity pairs every repayment with later advances inside the
// window whose size is within tolerance of the repayment. A zero windowDays
// or tolerance falls back to the defaults.
func DetectCircularity(movements []Movement, windowDays int, tolerance decimal.Decimal) []Pattern {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if tolerance.IsZero() {
		tolerance = decimal.RequireFromString(defaultTolerance)
	}

	var patterns []Pattern
	for i, r := range movements {
		if !r.Amount.IsNegative() {
			continue
		}
		repaid := r.Amount.Abs()
		for _, a := range movements[i+1:] {
			if !a.Date.After(r.Date) || a.Amount.IsNegative() || a.Amount.IsZero() {
				continue
			}
			gap := int(a.Date.Sub(r.Date).Hours() / 24)
			if gap > windowDays {
				break
			}
			diff := a.Amount.Amount.Sub(repaid.Amount).Abs()
			ratio := diff.Div(repaid.Amount)
			if ratio.LessThanOrEqual(tolerance) {
				patterns = append(patterns, Pattern{
					Repayment: r,
					Advance:   a,
					GapDays:   gap,
					Ratio:     ratio,
				})
			}
		}
	}
	return patterns
}

func mustAdd(a, b money.Money) money.Money {
	sum, err := a.Add(b)
	if err != nil {
		panic(err)
	}
	return sum
}

func mustSub(a, b money.Money) money.Money {
	diff, err := a.Sub(b)
	if err != nil {
		panic(err)
	}
	return diff
}
