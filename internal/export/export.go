// Package export renders bid reports as PDF or Word documents.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/utils"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrEmptyReport       = errors.New("report has no content")
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatDOCX, "word":
		return FormatDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

const (
	TitleSynthesis      = "Rapport de Synthèse CDC"
	TitleLegalAudit     = "Audit Juridique CDC"
	TitleTechnicalBrief = "Mémoire Technique"
	TitlePricedItems    = "BPU DQE Final Optimisé"
)

// Report is either a markdown text report or a line item table.
// Items takes precedence when both are set.
type Report struct {
	Title string
	Text  string
	Items []project.LineItem
}

func (r Report) isTable() bool {
	return len(r.Items) > 0
}

func (r Report) empty() bool {
	return !r.isTable() && len(parseMarkdown(r.Text)) == 0
}

// ProjectReports lists the reports available for p: one per analysis section
// and the priced schedule once items are priced.
func ProjectReports(p project.Project) []Report {
	reports := make([]Report, 0, 4)
	if a := p.CdcAnalysis; a != nil {
		reports = append(reports,
			Report{Title: TitleSynthesis, Text: a.Synthesis},
			Report{Title: TitleLegalAudit, Text: a.LegalAudit},
			Report{Title: TitleTechnicalBrief, Text: a.TechnicalBrief},
		)
	}
	if len(p.PricedItems) > 0 {
		reports = append(reports, Report{Title: TitlePricedItems, Items: project.CloneItems(p.PricedItems)})
	}
	return reports
}

// FileName is the report title with whitespace replaced by underscores plus
// the format extension.
func FileName(title string, format Format) string {
	name := utils.SafeFileName(title)
	if name == "" {
		name = "rapport"
	}
	return name + "." + string(format)
}

// Write renders report to w in the requested format.
func Write(w io.Writer, report Report, format Format) error {
	if report.empty() {
		return fmt.Errorf("%w: %s", ErrEmptyReport, report.Title)
	}

	switch format {
	case FormatPDF:
		return writePDF(w, report)
	case FormatDOCX:
		return writeDOCX(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Exporter writes reports as files into a directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
}

func NewExporter(dir string, logger *zap.Logger) *Exporter {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, logger: logger}
}

func (e *Exporter) Dir() string {
	return e.dir
}

// Export renders report and returns the path of the written file.
func (e *Exporter) Export(report Report, format Format) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, report, format); err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory %q: %w", e.dir, err)
	}

	path := filepath.Join(e.dir, FileName(report.Title, format))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing report %q: %w", path, err)
	}

	e.logger.Info("report exported",
		zap.String("title", report.Title),
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("bytes", buf.Len()),
	)
	return path, nil
}
