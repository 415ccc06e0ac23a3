// Package llm implements the third tier of the categorisation cascade: a
// network classifier with a fixed prompt shape, a validated structured
// response, and an append-only audit log. Failures never propagate; they
// degrade to Unclassified.
package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Result is the validated structured output of one classification call.
type Result struct {
	Account    string  `json:"account" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Reasoning  string  `json:"reasoning"`
	IsCapex    bool    `json:"is_capex"`
}

// VendorHistoryItem summarises past categorisations of the same vendor.
type VendorHistoryItem struct {
	Account string
	Count   int
}

// SimilarTransaction is a previously categorised transaction offered as
// context.
type SimilarTransaction struct {
	Payee     string
	Narration string
	Amount    money.Money
	Account   string
}

// AccountSet enumerates the valid target accounts.
type AccountSet interface {
	Exists(name string) bool
	Expenses() []string
}

// Config wires the classifier to its provider.
type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	Timeout      time.Duration
	AuditLogPath string
	MaxRetries   uint64
}

// Classifier is the lazily constructed, cached LLM handle. Create it once
// during component initialisation and pass it by reference.
type Classifier struct {
	client   *resty.Client
	cfg      Config
	accounts AccountSet
	validate *validator.Validate
	audit    *AuditLog
	log      *zap.Logger
}

// NewClassifier creates a Classifier. The audit log directory is created on
// first append.
func NewClassifier(cfg Config, accounts AccountSet, log *zap.Logger) *Classifier {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("content-type", "application/json")
	return &Classifier{
		client:   client,
		cfg:      cfg,
		accounts: accounts,
		validate: validator.New(),
		audit:    NewAuditLog(cfg.AuditLogPath),
		log:      log,
	}
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens"`
}

type apiResponse struct {
	Content string `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Classify sends one transaction to the model. Network or parsing failures
// return Unclassified with confidence 0 and reasoning "API error"; a
// returned account outside the valid set downgrades to Unclassified with
// confidence 0.1. The call never returns an error to the caller.
func (c *Classifier) Classify(ctx context.Context, payee, narration string, amount money.Money,
	history []VendorHistoryItem, similar []SimilarTransaction) Result {

	system := systemPrompt()
	user := userPrompt(payee, narration, amount, c.accounts.Expenses(), history, similar)
	promptSHA := promptHash(system, user)

	resp, usageIn, usageOut, err := c.call(ctx, system, user)
	if err != nil {
		c.log.Warn("llm call failed", zap.String("payee", payee), zap.Error(err))
		resp = Result{Account: model.AccountUnclassified, Confidence: 0, Reasoning: "API error"}
	} else if !c.accounts.Exists(resp.Account) {
		resp = Result{
			Account:    model.AccountUnclassified,
			Confidence: 0.1,
			Reasoning:  fmt.Sprintf("model proposed unknown account %q; downgraded", resp.Account),
			IsCapex:    resp.IsCapex,
		}
	}

	if err := c.audit.Append(AuditRecord{
		Timestamp:    time.Now().UTC(),
		Payee:        payee,
		Narration:    narration,
		Amount:       amount.String(),
		PromptSHA256: promptSHA,
		Model:        c.cfg.Model,
		Account:      resp.Account,
		Confidence:   resp.Confidence,
		Reasoning:    resp.Reasoning,
		IsCapex:      resp.IsCapex,
		InputTokens:  usageIn,
		OutputTokens: usageOut,
	}); err != nil {
		c.log.Warn("llm audit append failed", zap.Error(err))
	}

	return resp
}

func (c *Classifier) call(ctx context.Context, system, user string) (Result, int, int, error) {
	req := apiRequest{
		Model:     c.cfg.Model,
		System:    system,
		Messages:  []apiMessage{{Role: "user", Content: user}},
		MaxTokens: 1024,
	}

	var api apiResponse
	operation := func() error {
		r, err := c.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&api).
			Post("/v1/messages")
		if err != nil {
			return err
		}
		if r.IsError() {
			return fmt.Errorf("llm endpoint returned %s", r.Status())
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return Result{}, 0, 0, err
	}

	var result Result
	if err := json.Unmarshal([]byte(api.Content), &result); err != nil {
		return Result{}, api.Usage.InputTokens, api.Usage.OutputTokens,
			fmt.Errorf("parsing structured response: %w", err)
	}
	if err := c.validate.Struct(result); err != nil {
		return Result{}, api.Usage.InputTokens, api.Usage.OutputTokens,
			fmt.Errorf("invalid structured response: %w", err)
	}
	return result, api.Usage.InputTokens, api.Usage.OutputTokens, nil
}

func promptHash(system, user string) string {
	sum := sha256.Sum256([]byte(system + "\n" + user))
	return hex.EncodeToString(sum[:])[:16]
}
