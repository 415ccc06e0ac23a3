// Package pipeline orchestrates the three-tier categorisation cascade:
// deterministic rules, then the supervised model and the LLM in parallel,
// resolving agreement or disagreement into a single routed proposal.
package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grandlivre-dev/grandlivre/internal/capex"
	"github.com/grandlivre-dev/grandlivre/internal/llm"
	"github.com/grandlivre-dev/grandlivre/internal/ml"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/rules"
)

// Source identifies which tier produced the proposal.
type Source string

// Proposal sources.
const (
	SourceRule         Source = "rule"
	SourceML           Source = "ml"
	SourceLLM          Source = "llm"
	SourceUnclassified Source = "unclassified"
)

// Routing decides where a categorised transaction goes.
type Routing string

// Routing destinations.
const (
	RouteDirect  Routing = "direct"
	RoutePending Routing = "pending"
	RouteReview  Routing = "review"
)

// Default confidence thresholds for routing.
const (
	DirectThreshold = 0.95
	ReviewThreshold = 0.80
)

// Suggestion is one tier's proposal, kept when the tiers disagree.
type Suggestion struct {
	Account    string
	Confidence float64
}

// Result is the pipeline's proposal for one transaction.
type Result struct {
	Account         string
	Confidence      float64
	Source          Source
	RuleName        string
	IsCapex         bool
	CCAClass        int
	CapexReason     string
	MandatoryReview bool
	MLSuggestion    *Suggestion
	LLMSuggestion   *Suggestion
}

// Predictor is the supervised tier.
type Predictor interface {
	Trained() bool
	Predict(payee, narration string, amount money.Money) *ml.Prediction
}

// Classifier is the LLM tier.
type Classifier interface {
	Classify(ctx context.Context, payee, narration string, amount money.Money,
		history []llm.VendorHistoryItem, similar []llm.SimilarTransaction) llm.Result
}

// ContextProvider supplies vendor history and similar transactions for the
// LLM prompt. Optional.
type ContextProvider interface {
	VendorHistory(payee string) []llm.VendorHistoryItem
	SimilarTransactions(payee, narration string) []llm.SimilarTransaction
}

// Pipeline runs the cascade. The predictor and classifier are optional;
// with neither, unmatched transactions stay unclassified.
type Pipeline struct {
	rules      *rules.Engine
	predictor  Predictor
	classifier Classifier
	detector   *capex.Detector
	contexts   ContextProvider
	direct     float64
	review     float64
	log        *zap.Logger
}

// New creates a Pipeline with the default thresholds. predictor, classifier
// and contexts may be nil.
func New(engine *rules.Engine, predictor Predictor, classifier Classifier,
	contexts ContextProvider, log *zap.Logger) *Pipeline {
	return &Pipeline{
		rules:      engine,
		predictor:  predictor,
		classifier: classifier,
		detector:   capex.NewDetector(),
		contexts:   contexts,
		direct:     DirectThreshold,
		review:     ReviewThreshold,
		log:        log,
	}
}

// SetThresholds overrides the routing confidence cutoffs. Zero values keep
// the defaults.
func (p *Pipeline) SetThresholds(direct, review float64) {
	if direct > 0 {
		p.direct = direct
	}
	if review > 0 {
		p.review = review
	}
}

// Categorise runs the cascade for one transaction.
func (p *Pipeline) Categorise(ctx context.Context, payee, narration string, amount money.Money) Result {
	detection := p.detector.Check(amount, payee, narration)

	// Tier 1: rules short-circuit at full confidence.
	if rr := p.rules.Categorise(payee, narration, amount); rr.Matched {
		return Result{
			Account:     rr.Account,
			Confidence:  1.0,
			Source:      SourceRule,
			RuleName:    rr.RuleName,
			IsCapex:     detection.IsCapex,
			CCAClass:    detection.CCAClass,
			CapexReason: detection.Reason,
		}
	}

	// Tier 2 and 3 run independently.
	var mlPred *ml.Prediction
	var llmRes *llm.Result

	g, gctx := errgroup.WithContext(ctx)
	if p.predictor != nil && p.predictor.Trained() {
		g.Go(func() error {
			mlPred = p.predictor.Predict(payee, narration, amount)
			return nil
		})
	}
	if p.classifier != nil {
		g.Go(func() error {
			var history []llm.VendorHistoryItem
			var similar []llm.SimilarTransaction
			if p.contexts != nil {
				history = p.contexts.VendorHistory(payee)
				similar = p.contexts.SimilarTransactions(payee, narration)
			}
			r := p.classifier.Classify(gctx, payee, narration, amount, history, similar)
			llmRes = &r
			return nil
		})
	}
	_ = g.Wait()

	result := p.resolve(mlPred, llmRes)
	result.IsCapex = detection.IsCapex
	result.CCAClass = detection.CCAClass
	result.CapexReason = detection.Reason

	if result.Confidence < p.review {
		result.MandatoryReview = true
	}
	return result
}

func (p *Pipeline) resolve(mlPred *ml.Prediction, llmRes *llm.Result) Result {
	switch {
	case mlPred != nil && llmRes != nil:
		if mlPred.Account == llmRes.Account {
			// Agreement: keep the higher confidence and its source.
			if llmRes.Confidence >= mlPred.Confidence {
				return Result{Account: llmRes.Account, Confidence: llmRes.Confidence, Source: SourceLLM}
			}
			return Result{Account: mlPred.Account, Confidence: mlPred.Confidence, Source: SourceML}
		}
		// Disagreement: higher-confidence proposal wins, both recorded.
		r := Result{
			MandatoryReview: true,
			MLSuggestion:    &Suggestion{Account: mlPred.Account, Confidence: mlPred.Confidence},
			LLMSuggestion:   &Suggestion{Account: llmRes.Account, Confidence: llmRes.Confidence},
		}
		if mlPred.Confidence >= llmRes.Confidence {
			r.Account, r.Confidence, r.Source = mlPred.Account, mlPred.Confidence, SourceML
		} else {
			r.Account, r.Confidence, r.Source = llmRes.Account, llmRes.Confidence, SourceLLM
		}
		return r
	case mlPred != nil:
		return Result{Account: mlPred.Account, Confidence: mlPred.Confidence, Source: SourceML}
	case llmRes != nil:
		return Result{Account: llmRes.Account, Confidence: llmRes.Confidence, Source: SourceLLM}
	default:
		return Result{
			Account:         model.AccountUnclassified,
			Confidence:      0,
			Source:          SourceUnclassified,
			MandatoryReview: true,
		}
	}
}

// RoutingDestination maps a result to its destination. Rule-sourced results
// go direct unless CAPEX; mandatory review always wins.
func (p *Pipeline) RoutingDestination(r Result) Routing {
	if r.MandatoryReview {
		return RouteReview
	}
	if r.Source == SourceRule {
		if r.IsCapex {
			return RoutePending
		}
		return RouteDirect
	}
	if r.Confidence > p.direct && !r.IsCapex {
		return RouteDirect
	}
	return RoutePending
}
