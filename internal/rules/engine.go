package rules

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// AccountChecker tests whether an account exists in the chart of accounts.
type AccountChecker interface {
	Exists(name string) bool
}

// Result is the outcome of running the rule tier.
type Result struct {
	Matched    bool
	Account    string
	Confidence float64
	RuleName   string
}

type compiledRule struct {
	rule        Rule
	payeeRe     *regexp.Regexp
	narrationRe *regexp.Regexp
	amountMin   *decimal.Decimal
	amountMax   *decimal.Decimal
}

// Engine holds the compiled, ordered ruleset.
type Engine struct {
	rules    []compiledRule
	accounts AccountChecker
	log      *zap.Logger
}

// NewEngine compiles rules in declaration order. Rules with invalid regexes
// or amounts are logged and skipped so a partial ruleset stays usable.
func NewEngine(ruleList []Rule, accounts AccountChecker, log *zap.Logger) *Engine {
	e := &Engine{accounts: accounts, log: log}
	for _, r := range ruleList {
		cr, err := compile(r)
		if err != nil {
			log.Warn("skipping rule", zap.String("rule", r.Name), zap.Error(err))
			continue
		}
		e.rules = append(e.rules, cr)
	}
	return e
}

func compile(r Rule) (compiledRule, error) {
	cr := compiledRule{rule: r}
	var err error
	if r.Condition.Payee != "" {
		// Case-insensitivity is mandatory for every rule pattern.
		cr.payeeRe, err = regexp.Compile("(?i)" + r.Condition.Payee)
		if err != nil {
			return compiledRule{}, err
		}
	}
	if r.Condition.Narration != "" {
		cr.narrationRe, err = regexp.Compile("(?i)" + r.Condition.Narration)
		if err != nil {
			return compiledRule{}, err
		}
	}
	if r.Condition.AmountMin != "" {
		v, err := decimal.NewFromString(r.Condition.AmountMin)
		if err != nil {
			return compiledRule{}, err
		}
		cr.amountMin = &v
	}
	if r.Condition.AmountMax != "" {
		v, err := decimal.NewFromString(r.Condition.AmountMax)
		if err != nil {
			return compiledRule{}, err
		}
		cr.amountMax = &v
	}
	return cr, nil
}

// Len reports the number of usable rules.
func (e *Engine) Len() int { return len(e.rules) }

// Categorise runs the rules in order and returns on the first match. A
// matched rule whose target account is not declared downgrades to
// Unclassified without falling through to later rules.
func (e *Engine) Categorise(payee, narration string, amount money.Money) Result {
	haystack := strings.ToUpper(payee + " " + narration)
	abs := amount.Abs().Amount

	for _, cr := range e.rules {
		if cr.payeeRe != nil && !cr.payeeRe.MatchString(haystack) {
			continue
		}
		if cr.narrationRe != nil && !cr.narrationRe.MatchString(narration) {
			continue
		}
		if cr.amountMin != nil && abs.LessThan(*cr.amountMin) {
			continue
		}
		if cr.amountMax != nil && abs.GreaterThan(*cr.amountMax) {
			continue
		}

		if !e.accounts.Exists(cr.rule.TargetAccount) {
			e.log.Warn("rule targets unknown account",
				zap.String("rule", cr.rule.Name),
				zap.String("account", cr.rule.TargetAccount))
			return Result{Account: model.AccountUnclassified, RuleName: cr.rule.Name}
		}

		confidence := cr.rule.Confidence
		if confidence == 0 {
			confidence = DefaultConfidence
		}
		return Result{
			Matched:    true,
			Account:    cr.rule.TargetAccount,
			Confidence: confidence,
			RuleName:   cr.rule.Name,
		}
	}

	return Result{Account: model.AccountUnclassified}
}
