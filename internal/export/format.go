package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

const missingPrice = "N/A"

var (
	tableHeader = []string{"N°", "Désignation", "Unité", "Quantité", "P.U. (HT)", "Montant (HT)"}
	frPrinter   = message.NewPrinter(language.French)
)

// FormatAmount renders a price the French way, e.g. "1 234,50".
// Grouping spaces are plain spaces so the core PDF fonts can draw them.
func FormatAmount(v *float64) string {
	if v == nil {
		return missingPrice
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, frPrinter.Sprintf("%.2f", *v))
}

// TableHeader returns the column titles of a line item table.
func TableHeader() []string {
	return append([]string(nil), tableHeader...)
}

// TableRow returns the cells of item in TableHeader order.
func TableRow(item project.LineItem) []string {
	return []string{
		item.Number,
		item.Designation,
		item.Unit,
		item.Quantity.String(),
		FormatAmount(item.UnitPrice),
		FormatAmount(item.TotalPrice),
	}
}
