package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FranksOps/prospector/internal/storage"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when the caller does not pick one.
const DefaultModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini-backed extractor.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint, mainly for tests and proxies.
	BaseURL string

	// Retries and Backoff govern transient-failure handling. Zero values
	// mean a single attempt with no waiting.
	Retries int
	Backoff time.Duration
}

// Gemini extracts profile records with structured-output generation.
type Gemini struct {
	client *genai.Client
	model  string
	cfg    GeminiConfig
}

var _ Extractor = (*Gemini)(nil)

// recordSchema constrains the model to the exact object shape the sink
// stores, so a well-behaved response never needs repair.
var recordSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":  {Type: genai.TypeString},
		"role":  {Type: genai.TypeString},
		"email": {Type: genai.TypeString},
		"about": {Type: genai.TypeString},
		"url":   {Type: genai.TypeString},
	},
	Required: []string{"name", "role", "email", "about", "url"},
}

// NewGemini builds the extractor and validates its credentials.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model, cfg: cfg}, nil
}

// Extract asks the model for a structured record built from the page text.
// Transient API failures are retried; the returned record is always pinned
// to the requested url.
func (g *Gemini) Extract(ctx context.Context, url string, lines []string) (storage.ProfileRecord, error) {
	prompt := buildPrompt(url, lines)

	var lastErr error
	attempts := g.cfg.Retries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && g.cfg.Backoff > 0 {
			select {
			case <-ctx.Done():
				return storage.ProfileRecord{}, ctx.Err()
			case <-time.After(g.cfg.Backoff * time.Duration(attempt)):
			}
		}

		resp, err := g.client.Models.GenerateContent(
			ctx,
			g.model,
			genai.Text(prompt),
			&genai.GenerateContentConfig{
				CandidateCount:   1,
				ResponseMIMEType: "application/json",
				ResponseSchema:   recordSchema,
			},
		)
		if err != nil {
			lastErr = err
			if isTransient(err) {
				continue
			}
			return storage.ProfileRecord{}, fmt.Errorf("generate content: %w", err)
		}

		rec, err := DecodeRecord(resp.Text())
		if err != nil {
			return storage.ProfileRecord{}, fmt.Errorf("parse model response: %w", err)
		}
		return Reconcile(rec, url), nil
	}
	return storage.ProfileRecord{}, fmt.Errorf("generate content after %d attempts: %w", attempts, lastErr)
}

func buildPrompt(url string, lines []string) string {
	var b strings.Builder
	b.WriteString("You are a data extraction tool. Below is the visible text of a public profile page.\n")
	b.WriteString("Return ONLY a single JSON object with the keys name, role, email, about, url.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- If a field cannot be determined from the text, set it to an empty string.\n")
	b.WriteString("- Do not invent values and do not include extra keys.\n\n")
	fmt.Fprintf(&b, "Profile URL: %s\n\nPage text:\n", url)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Code/100 == 5
	}
	return false
}
