package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/ikoma/pkg/logger"
)

// OpenAIClient talks to any OpenAI-compatible chat-completions and
// embeddings API — in particular a local LM Studio or Ollama server, the
// original agent's default target. It implements Client with a single
// non-streaming Generate call and a single-document Embed call; there is
// no native function-calling here since plans are driven entirely by the
// PER loop's own JSON Schema contract, not provider tool-call messages.
type OpenAIClient struct {
	baseURL    string
	model      string
	embedModel string
	apiKey     string
	httpClient *http.Client
}

// Options configures an OpenAIClient.
type Options struct {
	BaseURL     string
	Model       string
	EmbedModel  string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New builds an OpenAIClient from Options, applying the original agent's
// defaults for any zero-valued field.
func New(opts Options) *OpenAIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if opts.Model == "" {
		opts.Model = "meta-llama-3-8b-instruct"
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = "nomic-ai/nomic-embed-text-v1.5-GGUF"
	}
	if opts.APIKey == "" {
		opts.APIKey = "sk-dummy"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 2000
	}

	return &OpenAIClient{
		baseURL:    opts.BaseURL,
		model:      opts.Model,
		embedModel: opts.EmbedModel,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

// Generate issues a single non-streaming chat completion request with
// prompt as the sole user message.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		Stream:      false,
	}

	logger.GetLogger().Debug("llm: generate", "model", c.model, "estimated_tokens", EstimateTokens(prompt))

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("llm: API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedData struct {
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data  []embedData `json:"data"`
	Error *apiError   `json:"error,omitempty"`
}

// Embed requests a single embedding vector for text. The API is called
// once per document, matching the original agent's per-document embedding
// behavior rather than a batched request.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embedRequest{Model: c.embedModel, Input: text}

	var resp embedResponse
	if err := c.post(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("llm: embedding API error: %s", resp.Error.Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("llm: no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAIClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: request to %s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}
