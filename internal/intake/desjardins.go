package intake

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DesjardinsParser parses Desjardins AccèsD chequing CSV exports. Rows carry
// separate debit and credit columns; exactly one is populated.
type DesjardinsParser struct{}

const (
	desjardinsDateFormat = "2006-01-02"
	desjardinsNumFields  = 7
	desjardinsColDate    = 1
	desjardinsColDesc    = 3
	desjardinsColDebit   = 4
	desjardinsColCredit  = 5
	desjardinsColType    = 2
)

// Format returns the parser name.
func (p *DesjardinsParser) Format() string { return "desjardins" }

// Parse reads a Desjardins CSV and returns BankTransactions.
func (p *DesjardinsParser) Parse(r io.Reader) ([]BankTransaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = desjardinsNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading desjardins CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var txns []BankTransaction
	for i, rec := range records[1:] {
		txn, err := parseDesjardinsRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseDesjardinsRow(rec []string) (BankTransaction, error) {
	date, err := time.Parse(desjardinsDateFormat, strings.TrimSpace(rec[desjardinsColDate]))
	if err != nil {
		return BankTransaction{}, fmt.Errorf("parsing date %q: %w", rec[desjardinsColDate], err)
	}

	amount, err := desjardinsAmount(rec[desjardinsColDebit], rec[desjardinsColCredit])
	if err != nil {
		return BankTransaction{}, err
	}

	return BankTransaction{
		Date:        date,
		Description: strings.TrimSpace(rec[desjardinsColDesc]),
		Amount:      amount,
		Type:        strings.TrimSpace(rec[desjardinsColType]),
	}, nil
}

// desjardinsAmount resolves the debit and credit columns to one signed
// amount. Debits leave the account and come out negative.
func desjardinsAmount(debit, credit string) (decimal.Decimal, error) {
	debit = normalizeAmount(debit)
	credit = normalizeAmount(credit)
	switch {
	case debit != "" && credit != "":
		return decimal.Zero, fmt.Errorf("row has both debit %q and credit %q", debit, credit)
	case debit != "":
		d, err := decimal.NewFromString(debit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing debit %q: %w", debit, err)
		}
		return d.Neg(), nil
	case credit != "":
		c, err := decimal.NewFromString(credit)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parsing credit %q: %w", credit, err)
		}
		return c, nil
	default:
		return decimal.Zero, fmt.Errorf("row has neither debit nor credit")
	}
}

// normalizeAmount strips spacing and converts the French decimal comma.
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	return s
}
