package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultGeminiEndpoint is the public Generative Language API.
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
)

// DefaultGeminiModels is the fallback order used when no models are configured.
var DefaultGeminiModels = []string{"gemini-2.5-pro", "gemini-2.0-flash", "gemini-1.5-flash"}

// GeminiProvider calls the Generative Language generateContent REST endpoint.
type GeminiProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewGeminiProvider(endpoint, apiKey string, timeout time.Duration) *GeminiProvider {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if base == "" {
		base = DefaultGeminiEndpoint
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GeminiProvider{
		endpoint: base,
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("gemini provider is nil")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return "", fmt.Errorf("gemini model is required")
	}
	if p.apiKey == "" {
		return "", fmt.Errorf("gemini api key is not configured")
	}

	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{Temperature: 0.2},
	}
	if req.JSON {
		payload.GenerationConfig.ResponseMIMEType = "application/json"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := strings.TrimSpace(string(respBody))
		var errPayload geminiErrorResponse
		if json.Unmarshal(respBody, &errPayload) == nil && strings.TrimSpace(errPayload.Error.Message) != "" {
			message = errPayload.Error.Message
		}
		return "", &StatusError{Provider: p.Name(), Model: model, Code: resp.StatusCode, Message: message}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		if reason := strings.TrimSpace(parsed.PromptFeedback.BlockReason); reason != "" {
			return "", fmt.Errorf("gemini blocked prompt: %s", reason)
		}
		return "", fmt.Errorf("gemini response missing candidates")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("gemini response was empty")
	}
	return out, nil
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
