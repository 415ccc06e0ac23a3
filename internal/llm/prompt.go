package llm

import (
	"fmt"
	"strings"

	"github.com/grandlivre-dev/grandlivre/internal/money"
)

const maxContextItems = 5

func systemPrompt() string {
	return strings.TrimSpace(`
You are the accountant of a Québec incorporated IT consultancy. You
categorise bank transactions into a double-entry ledger.

Strict rules:
- Answer only with an account taken from the enumerated list of valid
  accounts. Never invent an account.
- Never mention Québec or federal taxes in the categorisation.
- Set is_capex to true only for true capital goods (equipment, furniture,
  vehicles, computers), never for services or consumables.
- Respond with a single JSON object: {"account": string, "confidence":
  number between 0 and 1, "reasoning": string, "is_capex": boolean}.
`)
}

func userPrompt(payee, narration string, amount money.Money, validAccounts []string,
	history []VendorHistoryItem, similar []SimilarTransaction) string {

	var b strings.Builder

	b.WriteString("Transaction:\n")
	fmt.Fprintf(&b, "- payee: %s\n", payee)
	fmt.Fprintf(&b, "- narration: %s\n", narration)
	fmt.Fprintf(&b, "- amount: %s\n\n", amount)

	b.WriteString("Valid accounts:\n")
	for _, a := range validAccounts {
		fmt.Fprintf(&b, "- %s\n", a)
	}

	if len(history) > 0 {
		b.WriteString("\nPast categorisations of this vendor:\n")
		for i, h := range history {
			if i == maxContextItems {
				break
			}
			fmt.Fprintf(&b, "- %s (%d times)\n", h.Account, h.Count)
		}
	}

	if len(similar) > 0 {
		b.WriteString("\nSimilar transactions:\n")
		for i, s := range similar {
			if i == maxContextItems {
				break
			}
			fmt.Fprintf(&b, "- %s | %s | %s -> %s\n", s.Payee, s.Narration, s.Amount, s.Account)
		}
	}

	return b.String()
}
