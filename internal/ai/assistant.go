package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

// ErrMalformedResponse is returned when the provider answered with something
// that does not match the expected shape.
var ErrMalformedResponse = errors.New("malformed ai response")

// Kind distinguishes the two price schedule variants.
type Kind string

const (
	// KindBPU is a unit price schedule without quantities.
	KindBPU Kind = "bpu"
	// KindDQE is a quantitative estimate with a quantity column.
	KindDQE Kind = "dqe"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBPU:
		return KindBPU, nil
	case KindDQE:
		return KindDQE, nil
	default:
		return "", fmt.Errorf("unknown price schedule kind %q (want bpu or dqe)", s)
	}
}

// Document is a binary document handed to the provider for text extraction.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Factor is one contribution to a predicted price.
type Factor struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

// Explanation justifies the predicted price of a line item.
type Explanation struct {
	Explanation     string   `json:"explanation"`
	PositiveFactors []Factor `json:"positiveFactors"`
	NegativeFactors []Factor `json:"negativeFactors"`
}

// TextExtractor turns a binary document into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc Document) (string, error)
}

// Analyst is the generative AI collaborator of the workflow.
type Analyst interface {
	TextExtractor
	AnalyzeRequirements(ctx context.Context, text string) (*project.CdcAnalysis, error)
	ExtractLineItems(ctx context.Context, text string, kind Kind) ([]project.LineItem, error)
	ExplainPrice(ctx context.Context, item project.LineItem) (*Explanation, error)
}
