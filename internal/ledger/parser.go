package ledger

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
)

// Options collects "option" directives from a ledger file set.
type Options map[string]string

var (
	accountRe = regexp.MustCompile(`^[A-Z][A-Za-z0-9-]*(?::[A-Za-z0-9-]+)+$`)
	metaRe    = regexp.MustCompile(`^([a-z][A-Za-z0-9_-]*):\s*(.*)$`)
	amountRe  = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s+([A-Z][A-Z0-9]{1,23})$`)
)

type parser struct {
	file     string
	lines    []string
	pos      int
	entries  []model.Directive
	includes []string
	options  Options
	errs     []error
}

// Parse parses beancount text. It returns the directives, the include paths,
// the options, and the per-line errors it could recover from.
func Parse(text, filename string) ([]model.Directive, []string, Options, []error) {
	p := &parser{
		file:    filename,
		lines:   strings.Split(text, "\n"),
		options: make(Options),
	}
	p.run()
	return p.entries, p.includes, p.options, p.errs
}

func (p *parser) run() {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, ";"):
			p.pos++
		case strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"):
			// Continuation line outside a directive.
			p.errorf("unexpected indented line")
			p.pos++
		case strings.HasPrefix(trimmed, "option "):
			p.parseOption(trimmed)
			p.pos++
		case strings.HasPrefix(trimmed, "include "):
			p.parseInclude(trimmed)
			p.pos++
		default:
			p.parseDated(trimmed)
		}
	}
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.errs = append(p.errs, &ParseError{File: p.file, Line: p.pos + 1, Msg: fmt.Sprintf(format, args...)})
}

func (p *parser) parseOption(line string) {
	parts := splitQuoted(strings.TrimPrefix(line, "option "))
	if len(parts) != 2 {
		p.errorf("malformed option directive")
		return
	}
	p.options[parts[0]] = parts[1]
}

func (p *parser) parseInclude(line string) {
	parts := splitQuoted(strings.TrimPrefix(line, "include "))
	if len(parts) != 1 {
		p.errorf("malformed include directive")
		return
	}
	p.includes = append(p.includes, parts[0])
}

func (p *parser) parseDated(line string) {
	fields := strings.SplitN(line, " ", 2)
	date, err := time.Parse("2006-01-02", fields[0])
	if err != nil || len(fields) < 2 {
		p.errorf("expected dated directive, got %q", line)
		p.pos++
		return
	}
	rest := strings.TrimSpace(fields[1])

	switch {
	case strings.HasPrefix(rest, "open "):
		p.parseOpen(date, strings.TrimPrefix(rest, "open "))
	case strings.HasPrefix(rest, "balance "):
		p.parseBalance(date, strings.TrimPrefix(rest, "balance "))
	case strings.HasPrefix(rest, "document "):
		p.parseDocument(date, strings.TrimPrefix(rest, "document "))
	case strings.HasPrefix(rest, "close ") || strings.HasPrefix(rest, "note ") ||
		strings.HasPrefix(rest, "price ") || strings.HasPrefix(rest, "commodity "),
		strings.HasPrefix(rest, "pad ") || strings.HasPrefix(rest, "event "):
		// Recognised but carry no behaviour here; skip with continuations.
		p.pos++
		p.skipContinuations()
	case strings.HasPrefix(rest, "* ") || strings.HasPrefix(rest, "! ") || strings.HasPrefix(rest, "txn "):
		p.parseTransaction(date, rest)
	default:
		p.errorf("unknown directive %q", rest)
		p.pos++
		p.skipContinuations()
	}
}

func (p *parser) skipContinuations() {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		p.pos++
	}
}

func (p *parser) parseOpen(date time.Time, rest string) {
	fields := strings.Fields(rest)
	if len(fields) == 0 || !accountRe.MatchString(fields[0]) {
		p.errorf("malformed open directive")
		p.pos++
		return
	}
	open := &model.Open{Date: date, Account: fields[0], Meta: model.NewMeta()}
	if len(fields) > 1 {
		for _, c := range strings.Split(fields[1], ",") {
			if c != "" {
				open.Currencies = append(open.Currencies, c)
			}
		}
	}
	p.pos++
	p.collectMeta(open.Meta)
	p.entries = append(p.entries, open)
}

func (p *parser) parseBalance(date time.Time, rest string) {
	fields := strings.Fields(rest)
	if len(fields) != 3 || !accountRe.MatchString(fields[0]) {
		p.errorf("malformed balance directive")
		p.pos++
		return
	}
	amt, err := money.FromString(fields[1], fields[2])
	if err != nil {
		p.errorf("balance amount: %v", err)
		p.pos++
		return
	}
	p.entries = append(p.entries, &model.Balance{Date: date, Account: fields[0], Amount: amt})
	p.pos++
}

func (p *parser) parseDocument(date time.Time, rest string) {
	fields := strings.SplitN(rest, " ", 2)
	if len(fields) != 2 || !accountRe.MatchString(fields[0]) {
		p.errorf("malformed document directive")
		p.pos++
		return
	}
	paths := splitQuoted(fields[1])
	if len(paths) != 1 {
		p.errorf("document path must be quoted")
		p.pos++
		return
	}
	p.entries = append(p.entries, &model.Document{Date: date, Account: fields[0], Path: paths[0]})
	p.pos++
}

func (p *parser) parseTransaction(date time.Time, rest string) {
	flag := model.FlagCleared
	switch {
	case strings.HasPrefix(rest, "! "):
		flag = model.FlagPending
		rest = rest[2:]
	case strings.HasPrefix(rest, "* "):
		rest = rest[2:]
	case strings.HasPrefix(rest, "txn "):
		rest = rest[4:]
	}

	strs, tail := leadingQuoted(rest)
	tx := &model.Transaction{
		Date:  date,
		Flag:  flag,
		Tags:  model.NewStringSet(),
		Links: model.NewStringSet(),
		Meta:  model.NewMeta(),
	}
	switch len(strs) {
	case 0:
	case 1:
		tx.Narration = strs[0]
	default:
		tx.Payee = strs[0]
		tx.Narration = strs[1]
	}
	for _, tok := range strings.Fields(tail) {
		switch {
		case strings.HasPrefix(tok, "#"):
			tx.Tags.Add(tok[1:])
		case strings.HasPrefix(tok, "^"):
			tx.Links.Add(tok[1:])
		default:
			p.errorf("unexpected token %q after transaction header", tok)
		}
	}

	p.pos++
	p.collectPostings(tx)
	p.entries = append(p.entries, tx)
}

// collectPostings consumes indented lines: metadata before the first posting
// belongs to the transaction, later metadata to the latest posting.
func (p *parser) collectPostings(tx *model.Transaction) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		if strings.HasPrefix(trimmed, ";") {
			p.pos++
			continue
		}

		if posting, ok := p.parsePostingLine(trimmed); ok {
			tx.Postings = append(tx.Postings, posting)
			p.pos++
			continue
		}
		if m := metaRe.FindStringSubmatch(trimmed); m != nil {
			value := strings.Trim(strings.TrimSpace(m[2]), `"`)
			if len(tx.Postings) > 0 {
				last := &tx.Postings[len(tx.Postings)-1]
				if last.Meta == nil {
					last.Meta = model.NewMeta()
				}
				last.Meta.Set(m[1], value)
			} else {
				tx.Meta.Set(m[1], value)
			}
			p.pos++
			continue
		}
		p.errorf("malformed posting line %q", trimmed)
		p.pos++
	}
}

func (p *parser) parsePostingLine(line string) (model.Posting, bool) {
	var posting model.Posting
	if strings.HasPrefix(line, "! ") || strings.HasPrefix(line, "* ") {
		posting.Flag = line[:1]
		line = strings.TrimSpace(line[2:])
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || !accountRe.MatchString(fields[0]) {
		return model.Posting{}, false
	}
	posting.Account = fields[0]
	if len(fields) == 1 {
		p.errorf("posting for %s is missing its amount", posting.Account)
		return posting, true
	}
	restStr := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))
	m := amountRe.FindStringSubmatch(restStr)
	if m == nil {
		p.errorf("malformed amount %q on posting for %s", restStr, posting.Account)
		return posting, true
	}
	amt, err := money.FromString(m[1], m[2])
	if err != nil {
		p.errorf("posting amount: %v", err)
		return posting, true
	}
	posting.Units = amt
	return posting, true
}

func (p *parser) collectMeta(meta *model.Meta) {
	for p.pos < len(p.lines) {
		line := p.lines[p.pos]
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			return
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			return
		}
		m := metaRe.FindStringSubmatch(trimmed)
		if m == nil {
			p.errorf("malformed metadata line %q", trimmed)
			p.pos++
			continue
		}
		meta.Set(m[1], strings.Trim(strings.TrimSpace(m[2]), `"`))
		p.pos++
	}
}

// splitQuoted extracts all double-quoted strings from a line.
func splitQuoted(s string) []string {
	var out []string
	for {
		start := strings.IndexByte(s, '"')
		if start < 0 {
			return out
		}
		end := strings.IndexByte(s[start+1:], '"')
		if end < 0 {
			return out
		}
		out = append(out, s[start+1:start+1+end])
		s = s[start+2+end:]
	}
}

// leadingQuoted extracts the quoted strings at the start of a transaction
// header and returns the unquoted tail (tags and links).
func leadingQuoted(s string) ([]string, string) {
	var strs []string
	for {
		s = strings.TrimLeft(s, " \t")
		if !strings.HasPrefix(s, `"`) {
			return strs, s
		}
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return strs, s
		}
		strs = append(strs, s[1:1+end])
		s = s[end+2:]
	}
}
