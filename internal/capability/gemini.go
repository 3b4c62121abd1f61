package capability

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- OCR model prompts ---
const ocrSystemPrompt = "You are an expert in OCR. You extract text from page images accurately and completely."
const ocrUserPrompt = `Please extract the text from the image and return it in plain text format. Do not include any explanations or additional information.`

// --- Corrector model prompts ---
const correctorSystemPrompt = "You are an expert in fixing OCR errors. You correct text without changing its meaning or content."
const correctorUserPrompt = `Please correct the following text by focusing on:
- Fixing spelling errors
- Fixing contextual errors (words that don't make sense in context)
- Fixing formatting issues (paragraph breaks, lists, etc.)
- Fixing technical notation, numbers, and special characters

Please preserve the original meaning and content. Return only the corrected text without explanations.

Here is the text to fix: `

// minCorrectableLength guards against sending trivially short text to the
// model; anything below it is returned unmodified.
const minCorrectableLength = 20

// VertexClient holds the pre-configured generative models backing the
// Gemini capabilities.
type VertexClient struct {
	OCRModel       *genai.GenerativeModel
	CorrectorModel *genai.GenerativeModel
	baseClient     *genai.Client
}

// NewVertexClient creates a client holding both models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash-001"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	ocrModel := baseClient.GenerativeModel(modelName)
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ocrSystemPrompt)},
	}

	correctorModel := baseClient.GenerativeModel(modelName)
	correctorModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(correctorSystemPrompt)},
	}
	correctorModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.1),
		TopP:        genai.Ptr[float32](0.95),
	}

	return &VertexClient{
		OCRModel:       ocrModel,
		CorrectorModel: correctorModel,
		baseClient:     baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// GeminiExtractor performs OCR with a Gemini vision model.
type GeminiExtractor struct {
	model *genai.GenerativeModel
}

func NewGeminiExtractor(client *VertexClient) *GeminiExtractor {
	return &GeminiExtractor{model: client.OCRModel}
}

func (e *GeminiExtractor) Extract(ctx context.Context, image []byte) (string, error) {
	resp, err := e.model.GenerateContent(ctx,
		genai.Blob{MIMEType: "image/png", Data: image},
		genai.Text(ocrUserPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("no text returned from gemini")
	}
	return text, nil
}

// GeminiCorrector fixes OCR artifacts with a Gemini text model.
type GeminiCorrector struct {
	model *genai.GenerativeModel
}

func NewGeminiCorrector(client *VertexClient) *GeminiCorrector {
	return &GeminiCorrector{model: client.CorrectorModel}
}

func (c *GeminiCorrector) Correct(ctx context.Context, text string) (string, error) {
	if len(text) < minCorrectableLength {
		return text, nil
	}
	resp, err := c.model.GenerateContent(ctx, genai.Text(correctorUserPrompt+text))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	corrected := responseText(resp)
	if corrected == "" {
		return "", fmt.Errorf("no text returned from gemini")
	}
	return corrected, nil
}

// responseText concatenates the text parts of the first candidate and strips
// code fences the model sometimes wraps its output in.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	out := strings.TrimSpace(sb.String())
	out = strings.TrimPrefix(out, "```text")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out)
}
