package gemini

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/logger"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/utils"
)

const (
	provider            = "gemini"
	defaultMaxLogLength = 200
	defaultBPUQuantity  = "1"
)

var (
	//go:embed prompts/ocr.md
	ocrPrompt string
	//go:embed prompts/cdc.md
	cdcPrompt string
	//go:embed prompts/items.md
	itemsPrompt string
	//go:embed prompts/xai.md
	xaiPrompt string
)

var (
	analysisOptions = Options{Temperature: 0.2, TopK: 40, TopP: 0.95, JSON: true}
	ocrOptions      = Options{Temperature: 0.1}
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string, opts Options) (string, error)
	GenerateFromDocument(ctx context.Context, prompt string, doc ai.Document, opts Options) (string, error)
	Model() string
}

// Analyst implements ai.Analyst on top of a Gemini generator.
type Analyst struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	now       func() time.Time
}

var _ ai.Analyst = (*Analyst)(nil)

func NewAnalyst(generator contentGenerator, maxLogLength int, log *zap.Logger) *Analyst {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyst{
		generator: generator,
		logger:    logger.WithCommonFields(log, provider, generator.Model()),
		maxLogLen: maxLogLength,
		now:       time.Now,
	}
}

func (a *Analyst) ExtractText(ctx context.Context, doc ai.Document) (string, error) {
	mimeType := strings.TrimSpace(doc.MIMEType)
	if mimeType == "" {
		mimeType = "application/octet-stream"
		doc.MIMEType = mimeType
	}

	prompt := strings.ReplaceAll(ocrPrompt, "{{MIME_TYPE}}", mimeType)
	a.logRequest("extract_text", prompt, zap.String("document", doc.Name), zap.Int("document_bytes", len(doc.Data)))

	raw, err := a.generator.GenerateFromDocument(ctx, prompt, doc, ocrOptions)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", doc.Name, err)
	}
	a.logResponse("extract_text", raw)

	text := stripFences(raw)
	if text == "" {
		return "", fmt.Errorf("%w: no text extracted from %s", ai.ErrMalformedResponse, doc.Name)
	}
	return text, nil
}

func (a *Analyst) AnalyzeRequirements(ctx context.Context, text string) (*project.CdcAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("requirements document text is empty")
	}

	prompt := strings.ReplaceAll(cdcPrompt, "{{DOCUMENT}}", text)
	raw, err := a.call(ctx, "analyze_requirements", prompt)
	if err != nil {
		return nil, fmt.Errorf("analyze requirements: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze requirements: %w", err)
	}
	return analysis, nil
}

func (a *Analyst) ExtractLineItems(ctx context.Context, text string, kind ai.Kind) ([]project.LineItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s document text is empty", strings.ToUpper(string(kind)))
	}

	columns := "'Numéro ordre', 'Désignation' et 'Unité de mesure'"
	example := `{"number": "1", "designation": "Produit A", "unit": "U"}`
	switch kind {
	case ai.KindDQE:
		columns = "'Numéro ordre', 'Désignation', 'Unité de mesure' et 'Quantité'"
		example = `{"number": "1.1", "designation": "Fourniture et pose de...", "unit": "m²", "quantity": "150"}`
	case ai.KindBPU:
	default:
		return nil, fmt.Errorf("unknown price schedule kind %q", kind)
	}

	prompt := strings.NewReplacer(
		"{{KIND}}", strings.ToUpper(string(kind)),
		"{{DOCUMENT}}", text,
		"{{COLUMNS}}", columns,
		"{{EXAMPLE}}", example,
	).Replace(itemsPrompt)

	raw, err := a.call(ctx, "extract_line_items", prompt, zap.String("kind", string(kind)))
	if err != nil {
		return nil, fmt.Errorf("extract %s items: %w", kind, err)
	}

	items, err := parseLineItems(raw, a.now())
	if err != nil {
		return nil, fmt.Errorf("extract %s items: %w", kind, err)
	}

	a.logger.Info("line items extracted", zap.String("kind", string(kind)), zap.Int("count", len(items)))
	return items, nil
}

func (a *Analyst) ExplainPrice(ctx context.Context, item project.LineItem) (*ai.Explanation, error) {
	unitPrice := "N/A"
	if item.UnitPrice != nil {
		unitPrice = strconv.FormatFloat(*item.UnitPrice, 'f', 2, 64)
	}

	prompt := strings.NewReplacer(
		"{{DESIGNATION}}", item.Designation,
		"{{UNIT}}", item.Unit,
		"{{QUANTITY}}", item.Quantity.String(),
		"{{UNIT_PRICE}}", unitPrice,
	).Replace(xaiPrompt)

	raw, err := a.call(ctx, "explain_price", prompt, zap.String("item_id", item.ID))
	if err != nil {
		return nil, fmt.Errorf("explain price of %s: %w", item.ID, err)
	}

	explanation, err := parseExplanation(raw)
	if err != nil {
		return nil, fmt.Errorf("explain price of %s: %w", item.ID, err)
	}
	return explanation, nil
}

func (a *Analyst) call(ctx context.Context, op, prompt string, fields ...zap.Field) (string, error) {
	a.logRequest(op, prompt, fields...)

	raw, err := a.generator.GenerateContent(ctx, prompt, analysisOptions)
	if err != nil {
		return "", err
	}

	a.logResponse(op, raw)
	return raw, nil
}

func (a *Analyst) logRequest(op, prompt string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("operation", op),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)
	a.logger.Debug("gemini generate content request", fields...)
}

func (a *Analyst) logResponse(op, raw string) {
	a.logger.Debug("gemini generate content response",
		zap.String("operation", op),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)
}

func parseAnalysis(raw string) (*project.CdcAnalysis, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	sections := make(map[string]string, 3)
	for _, key := range []string{"synthesis", "legalAudit", "technicalBrief"} {
		value, ok := data[key]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q section", ai.ErrMalformedResponse, key)
		}
		sections[key] = coerceString(value)
	}

	if sections["synthesis"] == "" && sections["legalAudit"] == "" && sections["technicalBrief"] == "" {
		return nil, fmt.Errorf("%w: all sections are empty", ai.ErrMalformedResponse)
	}

	return &project.CdcAnalysis{
		Synthesis:      sections["synthesis"],
		LegalAudit:     sections["legalAudit"],
		TechnicalBrief: sections["technicalBrief"],
	}, nil
}

type rowDraft struct {
	Number      string `json:"number"`
	Designation string `json:"designation"`
	Unit        string `json:"unit"`
	Quantity    any    `json:"quantity"`
}

func parseLineItems(raw string, now time.Time) ([]project.LineItem, error) {
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}

	stamp := now.UnixMilli()
	items := make([]project.LineItem, 0, len(rows))
	for _, row := range rows {
		var draft rowDraft
		if err := weakDecode(row, &draft); err != nil {
			return nil, err
		}

		draft.Number = strings.TrimSpace(draft.Number)
		draft.Designation = strings.TrimSpace(draft.Designation)
		if draft.Number == "" && draft.Designation == "" {
			continue
		}

		quantity := project.TextQuantity(defaultBPUQuantity)
		if draft.Quantity != nil {
			if quantity, err = project.QuantityFrom(draft.Quantity); err != nil {
				return nil, fmt.Errorf("%w: row %q: %v", ai.ErrMalformedResponse, draft.Number, err)
			}
		}

		items = append(items, project.LineItem{
			ID:          fmt.Sprintf("item-%d-%d", len(items), stamp),
			Number:      draft.Number,
			Designation: draft.Designation,
			Unit:        strings.TrimSpace(draft.Unit),
			Quantity:    quantity,
		})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no line items found", ai.ErrMalformedResponse)
	}
	return items, nil
}

func parseExplanation(raw string) (*ai.Explanation, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	text := coerceString(data["explanation"])
	if text == "" {
		return nil, fmt.Errorf("%w: missing explanation", ai.ErrMalformedResponse)
	}

	positive, err := parseFactors(data["positiveFactors"])
	if err != nil {
		return nil, err
	}
	negative, err := parseFactors(data["negativeFactors"])
	if err != nil {
		return nil, err
	}

	return &ai.Explanation{
		Explanation:     text,
		PositiveFactors: positive,
		NegativeFactors: negative,
	}, nil
}

func parseFactors(v any) ([]ai.Factor, error) {
	if v == nil {
		return []ai.Factor{}, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: factors must be a list", ai.ErrMalformedResponse)
	}

	factors := make([]ai.Factor, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: factor must be an object", ai.ErrMalformedResponse)
		}
		feature := coerceString(obj["feature"])
		impact := coerceFloat(obj["impact"])
		if feature == "" || math.IsNaN(impact) {
			return nil, fmt.Errorf("%w: factor needs a feature and a numeric impact", ai.ErrMalformedResponse)
		}
		factors = append(factors, ai.Factor{Feature: feature, Impact: impact})
	}
	return factors, nil
}
