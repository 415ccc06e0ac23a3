package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grandlivre-dev/grandlivre/internal/llm"
	"github.com/grandlivre-dev/grandlivre/internal/ml"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/rules"
)

type chartStub map[string]bool

func (c chartStub) Exists(name string) bool { return c[name] }

var testChart = chartStub{
	"Expenses:Office:Telecom": true,
	"Expenses:Meals":          true,
	"Expenses:Entertainment":  true,
}

type predictorStub struct {
	pred *ml.Prediction
}

func (p *predictorStub) Trained() bool { return p.pred != nil }

func (p *predictorStub) Predict(payee, narration string, amount money.Money) *ml.Prediction {
	return p.pred
}

type classifierStub struct {
	result llm.Result
}

func (c *classifierStub) Classify(ctx context.Context, payee, narration string, amount money.Money,
	history []llm.VendorHistoryItem, similar []llm.SimilarTransaction) llm.Result {
	return c.result
}

func cad(s string) money.Money {
	return money.MustFromString(s, "CAD")
}

func newEngine(t *testing.T, ruleList []rules.Rule) *rules.Engine {
	t.Helper()
	return rules.NewEngine(ruleList, testChart, zaptest.NewLogger(t))
}

func TestCategorise_RuleShortCircuits(t *testing.T) {
	engine := newEngine(t, []rules.Rule{
		{Name: "telecom", Condition: rules.Condition{Payee: "videotron"}, TargetAccount: "Expenses:Office:Telecom", Confidence: 0.95},
	})
	// Tiers two and three would disagree; the rule must win without
	// consulting them.
	p := New(engine,
		&predictorStub{pred: &ml.Prediction{Account: "Expenses:Meals", Confidence: 0.99}},
		&classifierStub{result: llm.Result{Account: "Expenses:Entertainment", Confidence: 0.99}},
		nil, zaptest.NewLogger(t))

	r := p.Categorise(context.Background(), "VIDEOTRON LTEE", "", cad("-90.00"))
	assert.Equal(t, SourceRule, r.Source)
	assert.Equal(t, "Expenses:Office:Telecom", r.Account)
	assert.Equal(t, 1.0, r.Confidence)
	assert.Equal(t, "telecom", r.RuleName)
	assert.Equal(t, RouteDirect, p.RoutingDestination(r))
}

func TestCategorise_AgreementKeepsHigherConfidence(t *testing.T) {
	p := New(newEngine(t, nil),
		&predictorStub{pred: &ml.Prediction{Account: "Expenses:Meals", Confidence: 0.88}},
		&classifierStub{result: llm.Result{Account: "Expenses:Meals", Confidence: 0.92}},
		nil, zaptest.NewLogger(t))

	r := p.Categorise(context.Background(), "TIM HORTONS", "", cad("-6.25"))
	assert.Equal(t, "Expenses:Meals", r.Account)
	assert.Equal(t, 0.92, r.Confidence)
	assert.Equal(t, SourceLLM, r.Source)
	assert.False(t, r.MandatoryReview)
	assert.Nil(t, r.MLSuggestion)
	assert.Nil(t, r.LLMSuggestion)
	assert.Equal(t, RoutePending, p.RoutingDestination(r))
}

func TestCategorise_DisagreementForcesReview(t *testing.T) {
	p := New(newEngine(t, nil),
		&predictorStub{pred: &ml.Prediction{Account: "Expenses:Meals", Confidence: 0.85}},
		&classifierStub{result: llm.Result{Account: "Expenses:Entertainment", Confidence: 0.80}},
		nil, zaptest.NewLogger(t))

	r := p.Categorise(context.Background(), "LA RONDE", "", cad("-45.00"))
	assert.Equal(t, "Expenses:Meals", r.Account)
	assert.Equal(t, 0.85, r.Confidence)
	assert.Equal(t, SourceML, r.Source)
	assert.True(t, r.MandatoryReview)
	require.NotNil(t, r.MLSuggestion)
	require.NotNil(t, r.LLMSuggestion)
	assert.Equal(t, "Expenses:Meals", r.MLSuggestion.Account)
	assert.Equal(t, "Expenses:Entertainment", r.LLMSuggestion.Account)
	assert.Equal(t, RouteReview, p.RoutingDestination(r))
}

func TestCategorise_NoTiersAvailable(t *testing.T) {
	p := New(newEngine(t, nil), nil, nil, nil, zaptest.NewLogger(t))

	r := p.Categorise(context.Background(), "MYSTERY", "", cad("-10.00"))
	assert.Equal(t, model.AccountUnclassified, r.Account)
	assert.Equal(t, SourceUnclassified, r.Source)
	assert.True(t, r.MandatoryReview)
	assert.Equal(t, RouteReview, p.RoutingDestination(r))
}

func TestRoutingDestination_CapexForcesPending(t *testing.T) {
	p := New(newEngine(t, nil), nil, nil, nil, zaptest.NewLogger(t))

	r := Result{Source: SourceRule, Confidence: 1.0, IsCapex: true}
	assert.Equal(t, RoutePending, p.RoutingDestination(r))

	r = Result{Source: SourceLLM, Confidence: 0.97, IsCapex: true}
	assert.Equal(t, RoutePending, p.RoutingDestination(r))

	r = Result{Source: SourceLLM, Confidence: 0.97}
	assert.Equal(t, RouteDirect, p.RoutingDestination(r))
}

func TestSetThresholds_OverridesRouting(t *testing.T) {
	p := New(newEngine(t, nil), nil, nil, nil, zaptest.NewLogger(t))
	p.SetThresholds(0.90, 0.50)

	r := Result{Source: SourceLLM, Confidence: 0.92}
	assert.Equal(t, RouteDirect, p.RoutingDestination(r))

	// Zero values keep the previous cutoffs.
	p.SetThresholds(0, 0)
	assert.Equal(t, RouteDirect, p.RoutingDestination(r))
}

func TestCategorise_LowConfidenceMandatoryReview(t *testing.T) {
	p := New(newEngine(t, nil), nil,
		&classifierStub{result: llm.Result{Account: "Expenses:Meals", Confidence: 0.55}},
		nil, zaptest.NewLogger(t))

	r := p.Categorise(context.Background(), "DEPANNEUR", "", cad("-8.00"))
	assert.True(t, r.MandatoryReview)
}
