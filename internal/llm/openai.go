package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAIAdapter speaks the OpenAI-compatible chat-completions wire format
// over plain net/http, so it works against OpenAI itself and any
// compatible gateway (local or hosted) by swapping baseURL.
type OpenAIAdapter struct {
	name        string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

// NewOpenAIAdapter builds an adapter bound to one model on one endpoint.
func NewOpenAIAdapter(name, baseURL, apiKey, model string, temperature float64) *OpenAIAdapter {
	return &OpenAIAdapter{
		name: name, baseURL: baseURL, apiKey: apiKey, model: model,
		temperature: temperature,
		client:      &http.Client{},
	}
}

func (a *OpenAIAdapter) Name() string { return a.name }

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (a *OpenAIAdapter) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model": a.model,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"temperature": a.temperature,
		"stream":      false,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return apiResp.Choices[0].Message.Content, nil
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}
