package ml

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

func cad(s string) money.Money {
	return money.MustFromString(s, "CAD")
}

func trainingSet() []Sample {
	var samples []Sample
	for i := 0; i < 15; i++ {
		samples = append(samples, Sample{
			Payee:     fmt.Sprintf("TIM HORTONS #%d", i),
			Narration: "cafe et dejeuner",
			Account:   "Expenses:Meals",
		})
		samples = append(samples, Sample{
			Payee:     fmt.Sprintf("VIDEOTRON %d", i),
			Narration: "facture internet",
			Account:   "Expenses:Office:Telecom",
		})
	}
	return samples
}

func TestTrain_BelowMinimumsStaysUntrained(t *testing.T) {
	p := NewPredictor()
	assert.False(t, p.Train(trainingSet()[:10]))
	assert.False(t, p.Trained())
	assert.Nil(t, p.Predict("TIM HORTONS", "cafe", cad("-4.50")))

	// Enough samples but a single class.
	var oneClass []Sample
	for i := 0; i < 25; i++ {
		oneClass = append(oneClass, Sample{Payee: "TIM HORTONS", Account: "Expenses:Meals"})
	}
	p = NewPredictor()
	assert.False(t, p.Train(oneClass))
}

func TestPredict_SeparatesClasses(t *testing.T) {
	p := NewPredictor()
	require.True(t, p.Train(trainingSet()))
	require.True(t, p.Trained())

	pred := p.Predict("TIM HORTONS #99", "cafe", cad("-6.25"))
	require.NotNil(t, pred)
	assert.Equal(t, "Expenses:Meals", pred.Account)
	assert.Greater(t, pred.Confidence, 0.5)

	pred = p.Predict("VIDEOTRON LTEE", "facture internet", cad("-90.00"))
	require.NotNil(t, pred)
	assert.Equal(t, "Expenses:Office:Telecom", pred.Account)
}

func TestTokenize_UnigramsAndBigrams(t *testing.T) {
	tokens := Tokenize("GITHUB INC", "abonnement mensuel")
	assert.Contains(t, tokens, "github")
	assert.Contains(t, tokens, "abonnement")
	assert.Contains(t, tokens, "abonnement_mensuel")
}
