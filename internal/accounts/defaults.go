package accounts

import (
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// DefaultChart returns the default Open directives for a Québec incorporated
// IT consultancy, each carrying its GIFI code.
func DefaultChart(openDate time.Time) []*model.Open {
	entries := []struct {
		account string
		gifi    string
	}{
		{"Assets:Bank:Checking", "1001"},
		{"Assets:Bank:Savings", "1002"},
		{"Assets:TPS-Receivable", "1066"},
		{"Assets:TVQ-Receivable", "1066"},
		{"Assets:Equipment:Computers", "1774"},
		{"Assets:Equipment:Furniture", "1787"},
		{"Liabilities:CreditCard", "2600"},
		{"Liabilities:TPS-Payable", "2680"},
		{"Liabilities:TVQ-Payable", "2680"},
		{"Liabilities:Shareholder-Loan", "2780"},
		{"Liabilities:Payroll:FederalTax", "2620"},
		{"Liabilities:Payroll:QuebecTax", "2620"},
		{"Liabilities:Payroll:RRQ", "2620"},
		{"Liabilities:Payroll:RQAP", "2620"},
		{"Liabilities:Payroll:EI", "2620"},
		{"Liabilities:Payroll:FSS", "2620"},
		{"Liabilities:Payroll:CNESST", "2620"},
		{"Liabilities:Payroll:CNT", "2620"},
		{"Equity:Capital-Actions", "3500"},
		{"Equity:Benefices-Non-Repartis", "3600"},
		{"Income:Consulting", "8000"},
		{"Income:Interest", "8090"},
		{"Expenses:Unclassified", "9270"},
		{"Expenses:Salaires", "9060"},
		{"Expenses:ChargesSociales:RRQ", "9060"},
		{"Expenses:ChargesSociales:RQAP", "9060"},
		{"Expenses:ChargesSociales:EI", "9060"},
		{"Expenses:ChargesSociales:FSS", "9060"},
		{"Expenses:ChargesSociales:CNESST", "9060"},
		{"Expenses:ChargesSociales:CNT", "9060"},
		{"Expenses:Office:Telecom", "9225"},
		{"Expenses:Office:Supplies", "8810"},
		{"Expenses:Office:Rent", "8910"},
		{"Expenses:Software", "8810"},
		{"Expenses:Meals", "8523"},
		{"Expenses:Entertainment", "8523"},
		{"Expenses:Travel", "9200"},
		{"Expenses:Professional:Accounting", "8862"},
		{"Expenses:Professional:Legal", "8861"},
		{"Expenses:Insurance", "8690"},
		{"Expenses:Bank:Fees", "8715"},
	}

	opens := make([]*model.Open, 0, len(entries))
	for _, e := range entries {
		meta := model.NewMeta()
		meta.Set("gifi", e.gifi)
		opens = append(opens, &model.Open{
			Date:       openDate,
			Account:    e.account,
			Currencies: []string{"CAD"},
			Meta:       meta,
		})
	}
	return opens
}
