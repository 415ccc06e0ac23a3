package feedback

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corrections.json")
	return NewRecorder(path, zaptest.NewLogger(t))
}

func TestRecordCorrection_SecondCorrectionSynthesisesRule(t *testing.T) {
	r := newTestRecorder(t)

	rule, err := r.RecordCorrection("Tim Hortons", "Expenses:Meals", "Expenses:Entertainment", "")
	require.NoError(t, err)
	assert.Nil(t, rule)

	rule, err = r.RecordCorrection("tim hortons", "Expenses:Meals", "Expenses:Entertainment", "")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "auto-tim-hortons", rule.Name)
	assert.Equal(t, "Expenses:Meals", rule.TargetAccount)
	assert.Equal(t, AutoRuleConfidence, rule.Confidence)
	assert.NotEmpty(t, rule.Condition.Payee)

	// A third correction does not synthesise a second rule.
	rule, err = r.RecordCorrection("TIM HORTONS", "Expenses:Meals", "", "")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestRecordCorrection_CountsPerAccount(t *testing.T) {
	r := newTestRecorder(t)

	_, err := r.RecordCorrection("Amazon", "Expenses:Software", "", "")
	require.NoError(t, err)
	_, err = r.RecordCorrection("AMAZON", "Expenses:Office:Supplies", "", "")
	require.NoError(t, err)

	// Different target accounts never reach the threshold together.
	counts, err := r.AccountCounts("amazon")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"Expenses:Software":        1,
		"Expenses:Office:Supplies": 1,
	}, counts)
}

func TestRecordCorrection_PersistsAcrossRecorders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrections.json")
	log := zaptest.NewLogger(t)

	first := NewRecorder(path, log)
	_, err := first.RecordCorrection("GitHub", "Expenses:Software", "Expenses:Unclassified", "abonnement")
	require.NoError(t, err)

	second := NewRecorder(path, log)
	rule, err := second.RecordCorrection("GitHub", "Expenses:Software", "", "")
	require.NoError(t, err)
	require.NotNil(t, rule)

	history, err := LoadHistory(path)
	require.NoError(t, err)
	vh := history[NormalizeVendor("github")]
	require.NotNil(t, vh)
	assert.Equal(t, 2, vh.Accounts["Expenses:Software"])
	require.Len(t, vh.Notes, 1)
	assert.Equal(t, "abonnement", vh.Notes[0].Note)
}

func TestLoadHistory_MissingFileIsEmpty(t *testing.T) {
	h, err := LoadHistory(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "tim-hortons", Slug("  Tim Hortons  "))
	assert.Equal(t, "cafe-depot-204", Slug("CAFE DEPOT #204"))
}

func TestAccountCounts_UnknownVendor(t *testing.T) {
	r := newTestRecorder(t)
	counts, err := r.AccountCounts("nobody")
	require.NoError(t, err)
	assert.Nil(t, counts)
}
