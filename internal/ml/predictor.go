// Package ml implements the supervised middle tier of the categorisation
// cascade: a bag-of-words linear classifier over word uni- and bi-grams with
// calibrated per-class probabilities.
package ml

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Training gates: below either minimum the model stays untrained and
// Predict returns nothing.
const (
	MinSamples = 20
	MinClasses = 2
)

const (
	epochs       = 60
	learningRate = 0.1
	l2           = 1e-4
)

// Sample is one labelled historical transaction.
type Sample struct {
	Payee     string
	Narration string
	Account   string
}

// Prediction is the class of maximum calibrated probability.
type Prediction struct {
	Account    string
	Confidence float64
}

// Predictor is a pure in-memory model; it holds no state besides the
// trained weights.
type Predictor struct {
	vocab   map[string]int
	classes []string
	weights [][]float64
	bias    []float64
	trained bool
}

// NewPredictor returns an untrained predictor.
func NewPredictor() *Predictor {
	return &Predictor{vocab: make(map[string]int)}
}

// Trained reports whether the model has been fitted.
func (p *Predictor) Trained() bool { return p.trained }

// Train fits the model on labelled samples. It reports whether training took
// place; with fewer than MinSamples samples or MinClasses distinct accounts
// the model is left untrained.
func (p *Predictor) Train(samples []Sample) bool {
	classSet := make(map[string]bool)
	for _, s := range samples {
		classSet[s.Account] = true
	}
	if len(samples) < MinSamples || len(classSet) < MinClasses {
		return false
	}

	p.classes = make([]string, 0, len(classSet))
	for c := range classSet {
		p.classes = append(p.classes, c)
	}
	sort.Strings(p.classes)
	classIndex := make(map[string]int, len(p.classes))
	for i, c := range p.classes {
		classIndex[c] = i
	}

	p.vocab = make(map[string]int)
	features := make([][]int, len(samples))
	labels := make([]int, len(samples))
	for i, s := range samples {
		for _, tok := range Tokenize(s.Payee, s.Narration) {
			idx, ok := p.vocab[tok]
			if !ok {
				idx = len(p.vocab)
				p.vocab[tok] = idx
			}
			features[i] = append(features[i], idx)
		}
		labels[i] = classIndex[s.Account]
	}

	nClasses := len(p.classes)
	nFeatures := len(p.vocab)
	p.weights = make([][]float64, nClasses)
	for c := range p.weights {
		p.weights[c] = make([]float64, nFeatures)
	}
	p.bias = make([]float64, nClasses)

	// Multinomial logistic regression by SGD. The softmax output doubles as
	// the calibrated per-class probability.
	for epoch := 0; epoch < epochs; epoch++ {
		lr := learningRate / (1 + 0.05*float64(epoch))
		for i, feats := range features {
			probs := p.softmax(feats)
			for c := 0; c < nClasses; c++ {
				grad := probs[c]
				if c == labels[i] {
					grad -= 1
				}
				p.bias[c] -= lr * grad
				for _, f := range feats {
					p.weights[c][f] -= lr * (grad + l2*p.weights[c][f])
				}
			}
		}
	}

	p.trained = true
	return true
}

// Predict returns the most probable account with its probability, or nil if
// the model is untrained. The amount is part of the interface for future
// feature use and is not consumed.
func (p *Predictor) Predict(payee, narration string, _ money.Money) *Prediction {
	if !p.trained {
		return nil
	}
	var feats []int
	for _, tok := range Tokenize(payee, narration) {
		if idx, ok := p.vocab[tok]; ok {
			feats = append(feats, idx)
		}
	}
	probs := p.softmax(feats)

	best := 0
	for c := range probs {
		if probs[c] > probs[best] {
			best = c
		}
	}
	return &Prediction{Account: p.classes[best], Confidence: probs[best]}
}

func (p *Predictor) softmax(feats []int) []float64 {
	scores := make([]float64, len(p.classes))
	for c := range scores {
		s := p.bias[c]
		for _, f := range feats {
			s += p.weights[c][f]
		}
		scores[c] = s
	}

	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for c, s := range scores {
		scores[c] = math.Exp(s - max)
		sum += scores[c]
	}
	for c := range scores {
		scores[c] /= sum
	}
	return scores
}

// Tokenize lowercases "narration + payee" and emits word uni-grams plus
// adjacent bi-grams.
func Tokenize(payee, narration string) []string {
	text := strings.ToLower(narration + " " + payee)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, 2*len(words))
	tokens = append(tokens, words...)
	for i := 0; i+1 < len(words); i++ {
		tokens = append(tokens, words[i]+"_"+words[i+1])
	}
	return tokens
}
