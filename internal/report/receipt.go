package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"

	"arwaeduc/internal/core"
)

// Thermal printer line widths in characters.
const (
	Width58mm = 32
	Width80mm = 48
)

var ErrReceiptWidth = errors.New("unsupported receipt width")

// Receipt is a payment with everything printed around it.
type Receipt struct {
	School   string
	Payment  core.Payment
	Student  core.Student
	Location *time.Location
}

func (r Receipt) date() string {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	return r.Payment.Date.In(loc).Format("02/01/2006 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

// RenderReceiptText lays the receipt out for a 32 or 48 column printer.
// No line is wider than width.
func RenderReceiptText(r Receipt, width int, f Formatter) (string, error) {
	if width != Width58mm && width != Width80mm {
		return "", fmt.Errorf("%w: %d", ErrReceiptWidth, width)
	}
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	sep := strings.Repeat("-", width)

	line(center(r.School, width))
	line(center("RECU DE PAIEMENT", width))
	line(sep)
	line(pair("Recu", shortID(r.Payment.ID), width))
	line(pair("Date", r.date(), width))
	line(pair("Eleve", r.Student.FullName(), width))
	line(sep)
	line(pair("MONTANT", plain(f.Money(r.Payment.Amount)), width))
	if note := strings.TrimSpace(r.Payment.Note); note != "" {
		for _, l := range wrap(note, width) {
			line(l)
		}
	}
	line(sep)
	line(center("Merci de votre confiance", width))
	return b.String(), nil
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func center(s string, width int) string {
	s = truncate(strings.TrimSpace(s), width)
	pad := (width - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// pair puts left and right on one line, shortening left when they collide.
func pair(left, right string, width int) string {
	right = truncate(right, width)
	room := width - utf8.RuneCountInString(right) - 1
	left = truncate(left, room)
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 && left != "" {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func wrap(s string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(s) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			lines = append(lines, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// BuildReceiptPDF renders the receipt on an 80 mm roll page.
func BuildReceiptPDF(r Receipt, f Formatter) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: 80, Ht: 140},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, tr(r.School), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, tr("Reçu de paiement"), "B", 1, "C", false, 0, "")
	pdf.Ln(2)

	row := func(label, value string) {
		pdf.CellFormat(22, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(value), "", 1, "R", false, 0, "")
	}
	row("Reçu", shortID(r.Payment.ID))
	row("Date", r.date())
	row("Élève", r.Student.FullName())
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(22, 7, "Montant", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr(plain(f.Money(r.Payment.Amount))), "T", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	if note := strings.TrimSpace(r.Payment.Note); note != "" {
		pdf.MultiCell(0, 4, tr(note), "", "L", false)
	}
	pdf.Ln(3)
	pdf.CellFormat(0, 5, "Merci de votre confiance", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
