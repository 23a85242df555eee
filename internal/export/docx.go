package export

import (
	"fmt"
	"io"

	"github.com/fumiama/go-docx"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

const (
	docxHeaderFill  = "2980B9"
	docxHeaderColor = "FFFFFF"
	docxTitleSize   = "40"
	docxBullet      = "• "
)

// column widths in twips, 9000 spans the A4 text area
var docxColumnWidths = []int64{450, 4050, 900, 900, 1350, 1350}

// heading sizes in half-points
var docxHeadingSizes = map[blockKind]string{
	blockHeading1: "32",
	blockHeading2: "28",
	blockHeading3: "24",
}

func writeDOCX(out io.Writer, report Report) error {
	doc := docx.New().WithDefaultTheme()

	addDocxRun(doc.AddParagraph(), report.Title).Bold().Size(docxTitleSize)
	doc.AddParagraph()

	if report.isTable() {
		writeDocxTable(doc, report.Items)
		// Word expects the body to end with a paragraph
		doc.AddParagraph()
	} else {
		for _, b := range parseMarkdown(report.Text) {
			writeDocxBlock(doc.AddParagraph(), b)
		}
	}
	doc.WithA4Page()

	if _, err := doc.WriteTo(out); err != nil {
		return fmt.Errorf("rendering docx %q: %w", report.Title, err)
	}
	return nil
}

func writeDocxBlock(p *docx.Paragraph, b block) {
	size, heading := docxHeadingSizes[b.Kind]
	if b.Kind == blockBullet {
		addDocxRun(p, docxBullet)
	}
	for _, r := range b.Runs {
		run := addDocxRun(p, r.Text)
		if r.Bold || heading {
			run.Bold()
		}
		if heading {
			run.Size(size)
		}
	}
}

func writeDocxTable(doc *docx.Docx, items []project.LineItem) {
	heights := make([]int64, len(items)+1)
	table := doc.AddTableTwips(heights, docxColumnWidths, 0, nil)

	header := table.TableRows[0]
	for i, cell := range header.TableCells {
		cell.Shade("clear", "auto", docxHeaderFill)
		addDocxRun(cell.AddParagraph(), tableHeader[i]).Bold().Color(docxHeaderColor)
	}

	for r, item := range items {
		row := table.TableRows[r+1]
		for i, value := range TableRow(item) {
			p := row.TableCells[i].AddParagraph()
			if i >= 3 {
				p.Justification("right")
			}
			addDocxRun(p, value)
		}
	}
}

// addDocxRun appends text to p, keeping its leading and trailing spaces.
func addDocxRun(p *docx.Paragraph, text string) *docx.Run {
	r := p.AddText(text)
	for _, child := range r.Children {
		if t, ok := child.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
	return r
}
