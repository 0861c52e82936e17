// Package report renders payment receipts and monthly finance reports as
// thermal-printer text, PDF and XLSX.
package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"arwaeduc/internal/core"
)

// Formatter renders amounts for a locale followed by a currency label,
// e.g. "1 250,00 DH" for fr.
type Formatter struct {
	printer *message.Printer
	label   string
}

// NewFormatter falls back to French when locale does not parse.
func NewFormatter(locale, currencyLabel string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	return Formatter{printer: message.NewPrinter(tag), label: strings.TrimSpace(currencyLabel)}
}

func (f Formatter) Money(m core.Money) string {
	var s string
	if f.printer == nil {
		s = m.String()
	} else {
		s = f.printer.Sprintf("%.2f", m.Units())
	}
	if f.label == "" {
		return s
	}
	return s + " " + f.label
}

// Count renders an integer with locale grouping.
func (f Formatter) Count(n int) string {
	if f.printer == nil {
		return message.NewPrinter(language.Und).Sprintf("%d", n)
	}
	return f.printer.Sprintf("%d", n)
}

// plain swaps the no-break spaces some locales use for grouping with
// ordinary spaces; neither receipt printers nor the PDF core fonts carry them.
func plain(s string) string {
	return strings.NewReplacer("\u00a0", " ", "\u202f", " ").Replace(s)
}
