package intake

import (
	"fmt"
	"strings"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// MetaImportID is set on every imported transaction so later imports of an
// overlapping statement can be deduplicated from the ledger alone.
const MetaImportID = "import_id"

const dedupNarrationLen = 20

// Key derives the deduplication key for a statement line. The bank's FITID
// is authoritative when present; otherwise date, amount and a description
// prefix stand in.
func Key(tx BankTransaction) string {
	if tx.FITID != "" {
		return "fitid:" + tx.FITID
	}
	desc := strings.ToUpper(strings.TrimSpace(tx.Description))
	if len(desc) > dedupNarrationLen {
		desc = desc[:dedupNarrationLen]
	}
	return fmt.Sprintf("%s:%s:%s", tx.Date.Format("2006-01-02"), tx.Amount.StringFixed(2), desc)
}

// KnownKeys collects the import keys already present in the ledger,
// including the pending file's staged transactions.
func KnownKeys(entries []model.Directive) map[string]bool {
	known := make(map[string]bool)
	for _, e := range entries {
		tx, ok := e.(*model.Transaction)
		if !ok {
			continue
		}
		if id, ok := tx.Meta.Get(MetaImportID); ok {
			known[id] = true
		}
	}
	return known
}

// FilterNew drops statement lines whose key is already in the ledger and
// returns the survivors with the duplicate count.
func FilterNew(txns []BankTransaction, known map[string]bool) ([]BankTransaction, int) {
	var fresh []BankTransaction
	duplicates := 0
	seen := make(map[string]bool)
	for _, tx := range txns {
		k := Key(tx)
		if known[k] || seen[k] {
			duplicates++
			continue
		}
		seen[k] = true
		fresh = append(fresh, tx)
	}
	return fresh, duplicates
}
