package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
	lastOpts   Options
	lastDoc    *ai.Document
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string, opts Options) (string, error) {
	s.lastPrompt = prompt
	s.lastOpts = opts
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) GenerateFromDocument(_ context.Context, prompt string, doc ai.Document, opts Options) (string, error) {
	s.lastDoc = &doc
	return s.GenerateContent(context.Background(), prompt, opts)
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func newTestAnalyst(stub *stubGenerator) *Analyst {
	a := NewAnalyst(stub, 0, zap.NewNop())
	a.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return a
}

func TestAnalyzeRequirements(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"synthesis\": \"## Exigences\", \"legalAudit\": \"- Pénalités\", \"technicalBrief\": \"1. Plan\"}\n```"}
	a := newTestAnalyst(stub)

	analysis, err := a.AnalyzeRequirements(context.Background(), "Cahier des charges: lot unique")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Synthesis != "## Exigences" || analysis.LegalAudit != "- Pénalités" || analysis.TechnicalBrief != "1. Plan" {
		t.Fatalf("unexpected analysis: %+v", analysis)
	}
	if !strings.Contains(stub.lastPrompt, "Cahier des charges: lot unique") {
		t.Fatalf("expected document text in prompt")
	}
	if !stub.lastOpts.JSON || stub.lastOpts.TopK != 40 {
		t.Fatalf("unexpected options: %+v", stub.lastOpts)
	}
}

func TestAnalyzeRequirementsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":        "Voici mon analyse du document",
		"missing section": `{"synthesis": "a", "legalAudit": "b"}`,
		"all empty":       `{"synthesis": "", "legalAudit": " ", "technicalBrief": ""}`,
		"array":           `["synthesis"]`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := newTestAnalyst(&stubGenerator{response: response})
			_, err := a.AnalyzeRequirements(context.Background(), "cdc")
			if !errors.Is(err, ai.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
		})
	}
}

func TestAnalyzeRequirementsPropagatesGeneratorError(t *testing.T) {
	boom := errors.New("quota")
	a := newTestAnalyst(&stubGenerator{err: boom})

	if _, err := a.AnalyzeRequirements(context.Background(), "cdc"); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if _, err := a.AnalyzeRequirements(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestExtractLineItemsDQE(t *testing.T) {
	stub := &stubGenerator{response: `[
		{"number": "1.1", "designation": "Fourniture et pose", "unit": "m²", "quantity": "150,5"},
		{"number": 2, "designation": "Terrassement", "unit": "m3", "quantity": 40},
		{"number": "", "designation": "", "unit": ""}
	]`}
	a := newTestAnalyst(stub)

	items, err := a.ExtractLineItems(context.Background(), "DQE text", ai.KindDQE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].ID != "item-0-1700000000000" || items[1].ID != "item-1-1700000000000" {
		t.Fatalf("unexpected ids: %q %q", items[0].ID, items[1].ID)
	}
	if items[0].Quantity != project.TextQuantity("150,5") {
		t.Fatalf("unexpected quantity: %+v", items[0].Quantity)
	}
	if items[1].Number != "2" || items[1].Quantity != project.NumericQuantity(40) {
		t.Fatalf("unexpected second item: %+v", items[1])
	}
	if !strings.Contains(stub.lastPrompt, "'Quantité'") || !strings.Contains(stub.lastPrompt, "DQE") {
		t.Fatalf("expected dqe columns in prompt")
	}
}

func TestExtractLineItemsBPUDefaultsQuantity(t *testing.T) {
	stub := &stubGenerator{response: `{"items": [{"number": "1", "designation": "Produit A", "unit": "U"}]}`}
	a := newTestAnalyst(stub)

	items, err := a.ExtractLineItems(context.Background(), "BPU text", ai.KindBPU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Quantity != project.TextQuantity("1") {
		t.Fatalf("expected default quantity, got %+v", items[0].Quantity)
	}
	if strings.Contains(stub.lastPrompt, "'Quantité'") {
		t.Fatalf("bpu prompt must not ask for quantities")
	}
}

func TestExtractLineItemsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"prose":        "Aucun tableau trouvé",
		"empty list":   `[]`,
		"bad quantity": `[{"number": "1", "designation": "x", "quantity": true}]`,
		"bad row type": `[{"number": {"a": 1}, "designation": "x"}]`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := newTestAnalyst(&stubGenerator{response: response})
			_, err := a.ExtractLineItems(context.Background(), "text", ai.KindDQE)
			if !errors.Is(err, ai.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
		})
	}
}

func TestExtractLineItemsUnknownKind(t *testing.T) {
	a := newTestAnalyst(&stubGenerator{response: `[]`})
	if _, err := a.ExtractLineItems(context.Background(), "text", ai.Kind("cdc")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestExplainPrice(t *testing.T) {
	stub := &stubGenerator{response: `{
		"explanation": "Prix cohérent avec le marché.",
		"positiveFactors": [{"feature": "Coût des matériaux", "impact": 0.35}],
		"negativeFactors": [{"feature": "Volume de la commande", "impact": "-0,2"}]
	}`}
	a := newTestAnalyst(stub)

	unit := 1234.5
	item := project.LineItem{ID: "item-0", Designation: "Béton armé", Unit: "m3", Quantity: project.TextQuantity("12"), UnitPrice: &unit}

	explanation, err := a.ExplainPrice(context.Background(), item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if explanation.Explanation != "Prix cohérent avec le marché." {
		t.Fatalf("unexpected explanation: %q", explanation.Explanation)
	}
	if len(explanation.PositiveFactors) != 1 || explanation.PositiveFactors[0].Impact != 0.35 {
		t.Fatalf("unexpected positive factors: %+v", explanation.PositiveFactors)
	}
	if len(explanation.NegativeFactors) != 1 || explanation.NegativeFactors[0].Impact != -0.2 {
		t.Fatalf("unexpected negative factors: %+v", explanation.NegativeFactors)
	}
	if !strings.Contains(stub.lastPrompt, "1234.50 DA") || !strings.Contains(stub.lastPrompt, "Béton armé") {
		t.Fatalf("expected item details in prompt")
	}
}

func TestExplainPriceMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"no explanation":   `{"positiveFactors": []}`,
		"factors not list": `{"explanation": "x", "positiveFactors": "many"}`,
		"factor no impact": `{"explanation": "x", "negativeFactors": [{"feature": "f"}]}`,
	}

	for name, response := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			a := newTestAnalyst(&stubGenerator{response: response})
			_, err := a.ExplainPrice(context.Background(), project.LineItem{ID: "i"})
			if !errors.Is(err, ai.ErrMalformedResponse) {
				t.Fatalf("expected malformed response error, got %v", err)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	stub := &stubGenerator{response: "```text\nARTICLE 1 - Objet\nFourniture de mobilier\n```"}
	a := newTestAnalyst(stub)

	text, err := a.ExtractText(context.Background(), ai.Document{Name: "scan.png", MIMEType: "image/png", Data: []byte{0x89}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ARTICLE 1 - Objet\nFourniture de mobilier" {
		t.Fatalf("unexpected text: %q", text)
	}
	if stub.lastDoc == nil || stub.lastDoc.MIMEType != "image/png" {
		t.Fatalf("expected document to be forwarded")
	}
	if !strings.Contains(stub.lastPrompt, "(image/png)") {
		t.Fatalf("expected mime type in prompt")
	}
	if stub.lastOpts.JSON {
		t.Fatalf("ocr must not request json output")
	}
}

func TestExtractTextEmpty(t *testing.T) {
	a := newTestAnalyst(&stubGenerator{response: "```\n```"})

	_, err := a.ExtractText(context.Background(), ai.Document{Name: "blank.pdf", Data: []byte{1}})
	if !errors.Is(err, ai.ErrMalformedResponse) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestStripFences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect string
	}{
		{input: "plain", expect: "plain"},
		{input: "```json\n{}\n```", expect: "{}"},
		{input: "```{\"a\":1}```", expect: "{\"a\":1}"},
		{input: "```\nraw\n```", expect: "raw"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.input); got != tt.expect {
			t.Fatalf("stripFences(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}
