package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
)

const maxResponseBytes = 1 << 20

// HuggingFaceClient calls the hosted text-generation endpoint of the Inference API.
type HuggingFaceClient struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewHuggingFaceClient creates a client. A zero timeout leaves requests bounded only by ctx.
func NewHuggingFaceClient(cfg config.HuggingFaceConfig, timeout time.Duration) *HuggingFaceClient {
	return &HuggingFaceClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens       int     `json:"max_new_tokens,omitempty"`
	Temperature        float64 `json:"temperature,omitempty"`
	DoSample           bool    `json:"do_sample"`
	NumReturnSequences int     `json:"num_return_sequences,omitempty"`
	TopK               int     `json:"top_k,omitempty"`
	TopP               float64 `json:"top_p,omitempty"`
}

type hfGeneration struct {
	GeneratedText *string `json:"generated_text"`
	Error         string  `json:"error"`
}

// Generate runs one text-generation request and returns the first sequence.
func (c *HuggingFaceClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			MaxNewTokens:       params.MaxNewTokens,
			Temperature:        params.Temperature,
			DoSample:           params.DoSample,
			NumReturnSequences: params.NumReturnSequences,
			TopK:               params.TopK,
			TopP:               params.TopP,
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + "/" + url.PathEscape(c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read inference response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr hfGeneration
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference api status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("inference api status %d", resp.StatusCode)
	}

	text, err := decodeGeneration(raw)
	if err != nil {
		return "", err
	}
	log.Printf("[ai] huggingface model=%s generated %d bytes", c.model, len(text))
	return text, nil
}

// decodeGeneration accepts both the list form and the single-object form of the response.
func decodeGeneration(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", ErrMalformedResponse
	}

	var gen hfGeneration
	if trimmed[0] == '[' {
		var list []hfGeneration
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if len(list) == 0 {
			return "", fmt.Errorf("%w: empty result list", ErrMalformedResponse)
		}
		gen = list[0]
	} else if err := json.Unmarshal(trimmed, &gen); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if gen.Error != "" {
		return "", fmt.Errorf("inference api error: %s", gen.Error)
	}
	if gen.GeneratedText == nil {
		return "", fmt.Errorf("%w: missing generated_text", ErrMalformedResponse)
	}
	return *gen.GeneratedText, nil
}
