package ledger

import (
	"fmt"
	"strings"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

const dateLayout = "2006-01-02"

// RenderDirective serialises a directive back to beancount text, ending with
// a newline.
func RenderDirective(d model.Directive) string {
	switch v := d.(type) {
	case *model.Transaction:
		return RenderTransaction(v)
	case *model.Open:
		return renderOpen(v)
	case *model.Balance:
		return fmt.Sprintf("%s balance %s %s %s\n",
			v.Date.Format(dateLayout), v.Account, v.Amount.Amount.StringFixed(2), v.Amount.Currency)
	case *model.Document:
		return fmt.Sprintf("%s document %s %q\n", v.Date.Format(dateLayout), v.Account, v.Path)
	default:
		return ""
	}
}

// RenderTransaction serialises a transaction with its tags, links, metadata
// and postings.
func RenderTransaction(tx *model.Transaction) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", tx.Date.Format(dateLayout), tx.Flag)
	if tx.Payee != "" {
		fmt.Fprintf(&b, " %q", tx.Payee)
	}
	fmt.Fprintf(&b, " %q", tx.Narration)
	for _, tag := range tx.Tags.Sorted() {
		fmt.Fprintf(&b, " #%s", tag)
	}
	for _, link := range tx.Links.Sorted() {
		fmt.Fprintf(&b, " ^%s", link)
	}
	b.WriteByte('\n')

	for _, key := range tx.Meta.Keys() {
		value, _ := tx.Meta.Get(key)
		fmt.Fprintf(&b, "  %s: %q\n", key, value)
	}

	for _, p := range tx.Postings {
		b.WriteString("  ")
		if p.Flag != "" {
			b.WriteString(p.Flag)
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%-50s %12s %s\n", p.Account, p.Units.Amount.StringFixed(2), p.Units.Currency)
		for _, key := range p.Meta.Keys() {
			value, _ := p.Meta.Get(key)
			fmt.Fprintf(&b, "    %s: %q\n", key, value)
		}
	}

	return b.String()
}

func renderOpen(o *model.Open) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s open %s", o.Date.Format(dateLayout), o.Account)
	if len(o.Currencies) > 0 {
		fmt.Fprintf(&b, " %s", strings.Join(o.Currencies, ","))
	}
	b.WriteByte('\n')
	for _, key := range o.Meta.Keys() {
		value, _ := o.Meta.Get(key)
		fmt.Fprintf(&b, "  %s: %q\n", key, value)
	}
	return b.String()
}

// Header returns the fixed header written at the top of every monthly and
// pending file: the five top-level account classes aliased to their French
// display names.
func Header() string {
	var b strings.Builder
	b.WriteString(";; Fichier genere par grandlivre; conserver l'en-tete.\n")
	for _, root := range model.RootClasses {
		fmt.Fprintf(&b, "option \"name_%s\" %q\n", strings.ToLower(root), model.FrenchAlias[root])
	}
	b.WriteByte('\n')
	return b.String()
}
