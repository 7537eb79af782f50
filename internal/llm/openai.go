package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	openAIBaseURL        = "https://api.openai.com/v1"
	openAIDefaultModel   = "gpt-4o-mini"
	ollamaDefaultBaseURL = "http://localhost:11434/v1"
	ollamaDefaultModel   = "llama3.2"
)

// OpenAIClient implements Client using the chat completions API.
// With a BaseURL it talks to any OpenAI-compatible server such as ollama.
type OpenAIClient struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	local     bool
	timeout   time.Duration
	client    *http.Client
}

// NewOpenAIClient creates a new OpenAIClient with the given configuration.
// If config.APIKey is empty, it falls back to the OPENAI_API_KEY environment variable.
// If config.Model is empty, it defaults to gpt-4o-mini (llama3.2 for ollama).
func NewOpenAIClient(config ClientConfig) *OpenAIClient {
	local := config.Provider == "ollama"

	apiKey := config.APIKey
	if apiKey == "" && !local {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	model := config.Model
	if model == "" {
		model = openAIDefaultModel
		if local {
			model = ollamaDefaultModel
		}
	}

	timeout := timeoutOrDefault(config.Timeout)

	return &OpenAIClient{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		model:     model,
		maxTokens: maxTokens(config.MaxTokens),
		local:     local,
		timeout:   timeout,
		client:    &http.Client{Timeout: timeout},
	}
}

type openAIChatRequest struct {
	Model     string              `json:"model"`
	Messages  []openAIChatMessage `json:"messages"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Name implements Named.
func (c *OpenAIClient) Name() string {
	if c.local {
		return "ollama"
	}
	return "openai"
}

// Available returns true if an API key is present. Local servers need none.
func (c *OpenAIClient) Available() bool {
	return c.local || c.apiKey != ""
}

// Complete sends prompt with the assistant system message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("openai: %w: missing API key", ErrUnavailable)
	}

	reqBody := openAIChatRequest{
		Model: c.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: c.maxTokens,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parsing API response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
