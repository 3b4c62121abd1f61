package capability

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPPreprocessor calls the image preprocessing service over HTTP. The
// service accepts a multipart upload plus a named preset and answers with a
// base64-encoded processed image.
type HTTPPreprocessor struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPPreprocessor(baseURL string, timeout time.Duration) *HTTPPreprocessor {
	return &HTTPPreprocessor{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type preprocessResponse struct {
	ProcessedImage string `json:"processed_image"`
}

func (p *HTTPPreprocessor) Preprocess(ctx context.Context, image []byte, preset string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "page.png")
	if err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := fw.Write(image); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build multipart body: %w", err)
	}

	endpoint := p.baseURL + "/preprocess/"
	if preset != "" {
		endpoint += "?preset=" + url.QueryEscape(preset)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("preprocess request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("preprocess service returned %d: %s", resp.StatusCode, b)
	}

	var parsed preprocessResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode preprocess response: %w", err)
	}
	if parsed.ProcessedImage == "" {
		return nil, fmt.Errorf("preprocess service returned no image")
	}

	// The service may answer with a data URI; keep only the payload.
	encoded := parsed.ProcessedImage
	if i := strings.Index(encoded, "base64,"); i >= 0 {
		encoded = encoded[i+len("base64,"):]
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode processed image: %w", err)
	}
	return decoded, nil
}
