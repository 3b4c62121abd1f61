package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaCorrector fixes OCR artifacts with a locally served model via the
// Ollama generate API. An offline alternative to the Gemini corrector.
type OllamaCorrector struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewOllamaCorrector(baseURL, model string, timeout time.Duration) *OllamaCorrector {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3:instruct"
	}
	return &OllamaCorrector{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OllamaCorrector) Correct(ctx context.Context, text string) (string, error) {
	if len(text) < minCorrectableLength {
		return text, nil
	}

	reqBody := map[string]any{
		"model":  c.model,
		"system": correctorSystemPrompt,
		"prompt": correctorUserPrompt + text,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
			"top_p":       0.95,
		},
	}
	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ollama returned %d: %s", resp.StatusCode, body)
	}

	var raw struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	corrected := strings.TrimSpace(raw.Response)
	if corrected == "" {
		return "", fmt.Errorf("no text returned from ollama")
	}
	return corrected, nil
}
