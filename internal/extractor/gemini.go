package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"journey-insights/internal/config"
)

// GeminiExtractor extracts signals via the Gemini API, falling back to the
// mock extractor when unconfigured or when a call fails
type GeminiExtractor struct {
	config   *config.AIConfig
	client   *http.Client
	fallback *MockExtractor
}

// NewGeminiExtractor creates an extractor from the given AI configuration
func NewGeminiExtractor(cfg *config.AIConfig) *GeminiExtractor {
	return &GeminiExtractor{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		fallback: NewMockExtractor(),
	}
}

// Extract calls Gemini for signal extraction. Any failure falls back to the
// deterministic mock so a flaky model never blocks ingestion.
func (g *GeminiExtractor) Extract(ctx context.Context, text string) (*Signals, error) {
	if !g.config.IsEnabled() {
		return g.fallback.Extract(ctx, text)
	}

	response, err := g.callGemini(ctx, g.buildExtractionPrompt(text))
	if err != nil {
		return g.fallback.Extract(ctx, text)
	}

	signals, err := RecoverSignals(response)
	if err != nil {
		return g.fallback.Extract(ctx, text)
	}
	signals.ModelID = g.config.Model
	return signals, nil
}

func (g *GeminiExtractor) callGemini(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", g.config.ModelEndpoint(), g.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	return "", fmt.Errorf("empty response from Gemini")
}

func (g *GeminiExtractor) buildExtractionPrompt(text string) string {
	return fmt.Sprintf(`You are analyzing a support-program participant's reflections and staff outcome notes. Return ONLY valid JSON matching this schema:
{
  "strengths": ["up to 6 short strength tags"],
  "improvements": ["up to 6 short growth-area tags"],
  "themes": ["up to 6 short theme tags"],
  "quotes": [{"text": "short verbatim excerpt", "theme": "one of the themes"}],
  "confidence": 0.0 to 1.0
}

Rules:
- Tags are 1-3 lowercase words.
- Quotes must be verbatim substrings of the source text, at most 2.
- confidence reflects how well the text supports the tags.

Text:
%s`, text)
}
