// Package feedback records user corrections to proposed categorisations and
// synthesises a deterministic rule once a vendor has been corrected to the
// same account twice.
package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/rules"
)

// AutoRuleThreshold is the correction count at which a rule is synthesised.
const AutoRuleThreshold = 2

// AutoRuleConfidence is assigned to synthesised rules.
const AutoRuleConfidence = 0.95

// Note records one correction with its context.
type Note struct {
	Note      string    `json:"note,omitempty"`
	Original  string    `json:"original,omitempty"`
	Corrected string    `json:"corrected"`
	Timestamp time.Time `json:"timestamp"`
}

// VendorHistory accumulates corrections for one normalised vendor.
type VendorHistory struct {
	Accounts      map[string]int `json:"accounts"`
	Notes         []Note         `json:"notes,omitempty"`
	LastTimestamp time.Time      `json:"last_timestamp"`
}

// History maps normalised vendors to their correction history.
type History map[string]*VendorHistory

// Recorder owns the history file.
type Recorder struct {
	historyPath string
	now         func() time.Time
	log         *zap.Logger
}

// NewRecorder creates a Recorder over the JSON history file.
func NewRecorder(historyPath string, log *zap.Logger) *Recorder {
	return &Recorder{historyPath: historyPath, now: time.Now, log: log}
}

// LoadHistory reads the history file. A missing file is an empty history.
func LoadHistory(path string) (History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(History), nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	if h == nil {
		h = make(History)
	}
	return h, nil
}

// RecordCorrection registers that the user moved vendor's transaction to
// correctedAccount. When the (vendor, account) counter reaches exactly
// AutoRuleThreshold, a new rule is synthesised and returned.
func (r *Recorder) RecordCorrection(vendor, correctedAccount, originalAccount, note string) (*rules.Rule, error) {
	history, err := LoadHistory(r.historyPath)
	if err != nil {
		return nil, err
	}

	key := NormalizeVendor(vendor)
	vh, ok := history[key]
	if !ok {
		vh = &VendorHistory{Accounts: make(map[string]int)}
		history[key] = vh
	}
	vh.Accounts[correctedAccount]++
	vh.LastTimestamp = r.now().UTC()
	if note != "" || originalAccount != "" {
		vh.Notes = append(vh.Notes, Note{
			Note:      note,
			Original:  originalAccount,
			Corrected: correctedAccount,
			Timestamp: vh.LastTimestamp,
		})
	}

	if err := r.save(history); err != nil {
		return nil, err
	}

	if vh.Accounts[correctedAccount] != AutoRuleThreshold {
		return nil, nil
	}

	rule := &rules.Rule{
		Name: "auto-" + truncate(Slug(vendor), 20),
		Condition: rules.Condition{
			Payee: regexp.QuoteMeta(vendor),
		},
		TargetAccount: correctedAccount,
		Confidence:    AutoRuleConfidence,
	}
	r.log.Info("synthesised auto rule",
		zap.String("rule", rule.Name), zap.String("account", correctedAccount))
	return rule, nil
}

// AccountCounts returns the per-account correction counts for a vendor.
func (r *Recorder) AccountCounts(vendor string) (map[string]int, error) {
	history, err := LoadHistory(r.historyPath)
	if err != nil {
		return nil, err
	}
	vh, ok := history[NormalizeVendor(vendor)]
	if !ok {
		return nil, nil
	}
	out := make(map[string]int, len(vh.Accounts))
	for k, v := range vh.Accounts {
		out[k] = v
	}
	return out, nil
}

func (r *Recorder) save(h History) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}
	if err := renameio.WriteFile(r.historyPath, data, 0o644); err != nil {
		return fmt.Errorf("writing history file: %w", err)
	}
	return nil
}

// NormalizeVendor uppercases and strips a vendor name for use as a history
// key.
func NormalizeVendor(vendor string) string {
	return strings.ToUpper(strings.TrimSpace(vendor))
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a vendor name and collapses runs of other characters to
// single hyphens.
func Slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
