package intake

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OFXParser parses OFX and QFX statement downloads. OFX 1.x is SGML with
// unclosed tags, so the parser scans tag lines rather than using an XML
// decoder; OFX 2.x closes its tags, which the same scan tolerates.
type OFXParser struct{}

// Format returns the parser name.
func (p *OFXParser) Format() string { return "ofx" }

// Parse extracts every STMTTRN aggregate.
func (p *OFXParser) Parse(r io.Reader) ([]BankTransaction, error) {
	var txns []BankTransaction
	var current *BankTransaction

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		tag, value := splitTag(line)
		switch tag {
		case "STMTTRN":
			current = &BankTransaction{}
		case "/STMTTRN":
			if current != nil {
				if current.Date.IsZero() {
					return nil, fmt.Errorf("line %d: transaction missing DTPOSTED", lineNo)
				}
				txns = append(txns, *current)
				current = nil
			}
		case "DTPOSTED":
			if current == nil {
				continue
			}
			date, err := parseOFXDate(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			current.Date = date
		case "TRNAMT":
			if current == nil {
				continue
			}
			amount, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: parsing amount %q: %w", lineNo, value, err)
			}
			current.Amount = amount
		case "FITID":
			if current != nil {
				current.FITID = value
			}
		case "NAME", "MEMO":
			if current == nil {
				continue
			}
			if current.Description == "" {
				current.Description = value
			} else if tag == "MEMO" {
				current.Description += " " + value
			}
		case "TRNTYPE":
			if current != nil {
				current.Type = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OFX: %w", err)
	}
	return txns, nil
}

// splitTag returns the tag name and inline value of an OFX line. Lines
// without an opening angle bracket yield an empty tag.
func splitTag(line string) (string, string) {
	if !strings.HasPrefix(line, "<") {
		return "", ""
	}
	end := strings.IndexByte(line, '>')
	if end < 0 {
		return "", ""
	}
	tag := strings.ToUpper(line[1:end])
	value := line[end+1:]
	if close := strings.Index(value, "</"); close >= 0 {
		value = value[:close]
	}
	return tag, strings.TrimSpace(value)
}

// parseOFXDate reads YYYYMMDD with optional time and timezone suffixes,
// which are ignored.
func parseOFXDate(s string) (time.Time, error) {
	if len(s) < 8 {
		return time.Time{}, fmt.Errorf("parsing date %q: too short", s)
	}
	date, err := time.Parse("20060102", s[:8])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return date, nil
}
