package intake

import (
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Build converts a statement line into an uncategorised ledger transaction:
// one posting against the bank account mirroring the statement amount, one
// against the unclassified account awaiting the pipeline.
func Build(tx BankTransaction, bankAccount string) *model.Transaction {
	out := &model.Transaction{
		Date:  tx.Date,
		Flag:  model.FlagCleared,
		Payee: tx.Description,
		Tags:  model.NewStringSet(),
		Meta:  model.NewMeta(),
	}
	out.Meta.Set(MetaImportID, Key(tx))

	bank := money.New(tx.Amount, money.DefaultCurrency).Quantize()
	out.Postings = []model.Posting{
		{Account: bankAccount, Units: bank, Meta: model.NewMeta()},
		{Account: model.AccountUnclassified, Units: bank.Neg(), Meta: model.NewMeta()},
	}
	return out
}
