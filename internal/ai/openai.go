package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const azureAPIVersion = "2024-02-15-preview"

const estimatorSystemPrompt = "You are a senior software architect and project manager " +
	"with 15+ years of experience in estimating software development tasks. " +
	"Provide accurate, realistic estimates based on industry standards."

// AzureOpenAIProvider calls an Azure OpenAI chat-completions deployment.
type AzureOpenAIProvider struct {
	Endpoint   string
	APIKey     string
	Deployment string
	MaxTokens  int
	Client     *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p AzureOpenAIProvider) Name() string { return "azure_openai" }

func (p AzureOpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(p.Endpoint) == "" || strings.TrimSpace(p.APIKey) == "" {
		return "", fmt.Errorf("azure openai: endpoint or api key not set")
	}
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: estimatorSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(p.Endpoint, "/"), p.Deployment, azureAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure openai request: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("azure openai decode: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if parsed.Error != nil {
			return "", fmt.Errorf("azure openai: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("azure openai: http %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("azure openai: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}
