package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/ai"
	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 2
	defaultBackoff    = 2 * time.Second
	// Longer quota delays are reported to the user instead of waited for.
	maxQuotaDelay = 30 * time.Second
)

var retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options tune a single generation request.
type Options struct {
	Temperature float32
	TopK        float32
	TopP        float32
	// JSON asks the model to answer with application/json.
	JSON bool
}

// Generator wraps the Google GenAI client with retries on transient failures.
type Generator struct {
	models     modelsAPI
	model      string
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, maxRetries, logger), nil
}

func newGenerator(models modelsAPI, model string, maxRetries int, logger *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:     models,
		model:      model,
		maxRetries: maxRetries,
		backoff:    defaultBackoff,
		logger:     logger,
	}
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// GenerateContent sends the prompt and returns the textual answer.
func (g *Generator) GenerateContent(ctx context.Context, prompt string, opts Options) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	return g.generate(ctx, genai.Text(prompt), opts)
}

// GenerateFromDocument sends the prompt together with an inline document.
func (g *Generator) GenerateFromDocument(ctx context.Context, prompt string, doc ai.Document, opts Options) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("document %q is empty", doc.Name)
	}

	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{Data: doc.Data, MIMEType: doc.MIMEType}},
		},
	}}
	return g.generate(ctx, contents, opts)
}

func (g *Generator) generate(ctx context.Context, contents []*genai.Content, opts Options) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	config := buildConfig(opts)

	// maxRetries counts the calls made after the first one
	attempts := g.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			return responseText(resp)
		}
		lastErr = err

		delay, retry := retryDelay(err, g.backoff*time.Duration(attempt))
		if !retry || attempt == attempts {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func buildConfig(opts Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(opts.Temperature)
	}
	if opts.TopK > 0 {
		cfg.TopK = genai.Ptr(opts.TopK)
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(opts.TopP)
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// retryDelay decides whether err is transient and how long to wait before the next attempt.
func retryDelay(err error, fallback time.Duration) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		m := retryDelayPattern.FindStringSubmatch(apiErr.Message)
		if m == nil {
			return fallback, true
		}
		seconds, perr := strconv.ParseFloat(m[1], 64)
		if perr != nil {
			return fallback, true
		}
		delay := time.Duration(seconds * float64(time.Second))
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	case apiErr.Code >= http.StatusInternalServerError:
		return fallback, true
	default:
		return 0, false
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}
