package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFont         = "Helvetica"
	pdfMargin       = 14.0
	pdfBottomMargin = 15.0
	pdfTitleSize    = 18.0
	pdfBodySize     = 11.0
	pdfTableSize    = 8.0
	pdfLineHeight   = 5.5
	pdfCellHeight   = 4.5
)

var (
	// column widths in mm, designation takes what is left
	pdfColumnWidths = []float64{15, 0, 15, 20, 25, 25}
	pdfColumnAlign  = []string{"L", "L", "L", "R", "R", "R"}
	pdfHeaderFill   = [3]int{41, 128, 185}
	pdfHeadingSizes = map[blockKind]float64{
		blockHeading1: 16,
		blockHeading2: 14,
		blockHeading3: 12,
	}
)

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDFWriter(title string) *pdfWriter {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfBottomMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("ia-soumission", true)
	pdf.AddPage()

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	w.title(title)
	return w
}

func writePDF(out io.Writer, report Report) error {
	w := newPDFWriter(report.Title)
	if report.isTable() {
		w.table(report)
	} else {
		w.text(report.Text)
	}

	if err := w.pdf.Output(out); err != nil {
		return fmt.Errorf("rendering pdf %q: %w", report.Title, err)
	}
	return nil
}

func (w *pdfWriter) title(title string) {
	w.pdf.SetFont(pdfFont, "B", pdfTitleSize)
	w.pdf.MultiCell(0, 9, w.tr(title), "", "L", false)
	w.pdf.Ln(4)
}

func (w *pdfWriter) text(markdown string) {
	for _, b := range parseMarkdown(markdown) {
		switch b.Kind {
		case blockHeading1, blockHeading2, blockHeading3:
			w.pdf.Ln(2)
			w.pdf.SetFont(pdfFont, "B", pdfHeadingSizes[b.Kind])
			w.pdf.MultiCell(0, pdfLineHeight+1, w.tr(b.plain()), "", "L", false)
			w.pdf.Ln(1)
		case blockBullet:
			w.pdf.SetFont(pdfFont, "", pdfBodySize)
			w.pdf.Write(pdfLineHeight, w.tr("  • "))
			w.runs(b.Runs)
			w.pdf.Ln(pdfLineHeight)
		default:
			w.runs(b.Runs)
			w.pdf.Ln(pdfLineHeight)
		}
	}
}

func (w *pdfWriter) runs(runs []run) {
	for _, r := range runs {
		style := ""
		if r.Bold {
			style = "B"
		}
		w.pdf.SetFont(pdfFont, style, pdfBodySize)
		w.pdf.Write(pdfLineHeight, w.tr(r.Text))
	}
	w.pdf.SetFont(pdfFont, "", pdfBodySize)
}

func (w *pdfWriter) columnWidths() []float64 {
	pageWidth, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()

	widths := make([]float64, len(pdfColumnWidths))
	fixed := 0.0
	for _, cw := range pdfColumnWidths {
		fixed += cw
	}
	for i, cw := range pdfColumnWidths {
		if cw == 0 {
			cw = pageWidth - left - right - fixed
		}
		widths[i] = cw
	}
	return widths
}

func (w *pdfWriter) table(report Report) {
	widths := w.columnWidths()
	w.tableHeader(widths)

	w.pdf.SetFont(pdfFont, "", pdfTableSize)
	w.pdf.SetTextColor(0, 0, 0)
	for _, item := range report.Items {
		w.tableRow(widths, TableRow(item), false, widths)
	}
}

func (w *pdfWriter) tableHeader(widths []float64) {
	w.pdf.SetFont(pdfFont, "B", pdfTableSize)
	w.pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
	w.pdf.SetTextColor(255, 255, 255)
	w.tableRow(widths, tableHeader, true, nil)
	w.pdf.SetFont(pdfFont, "", pdfTableSize)
	w.pdf.SetTextColor(0, 0, 0)
}

// tableRow draws one row with wrapped cells of equal height. When the row
// does not fit on the page a new page is started and, if repeat is set, the
// header is drawn again.
func (w *pdfWriter) tableRow(widths []float64, cells []string, fill bool, repeat []float64) {
	texts := make([]string, len(cells))
	lines := 1
	for i, cell := range cells {
		texts[i] = w.tr(cell)
		if n := len(w.pdf.SplitLines([]byte(texts[i]), widths[i]-2)); n > lines {
			lines = n
		}
	}
	height := float64(lines) * pdfCellHeight

	_, pageHeight := w.pdf.GetPageSize()
	if w.pdf.GetY()+height > pageHeight-pdfBottomMargin {
		w.pdf.AddPage()
		if repeat != nil {
			w.tableHeader(repeat)
		}
	}

	left, _, _, _ := w.pdf.GetMargins()
	x, y := left, w.pdf.GetY()
	style := "D"
	if fill {
		style = "FD"
	}
	for i, text := range texts {
		w.pdf.Rect(x, y, widths[i], height, style)
		w.pdf.SetXY(x, y)
		w.pdf.MultiCell(widths[i], pdfCellHeight, text, "", pdfColumnAlign[i], false)
		x += widths[i]
	}
	w.pdf.SetXY(left, y+height)
}
