package quizgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// Client отправляет запросы генератору по OpenAI-совместимому
// chat-completions протоколу
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient создает новый клиент генератора
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
	}
}

type chatCompletionRequest struct {
	Model    string                  `json:"model"`
	Messages []chatCompletionMessage `json:"messages"`
	Stream   bool                    `json:"stream"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// Complete отправляет системную инструкцию и пользовательский запрос,
// возвращает сырой текст первого варианта ответа
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	request := chatCompletionRequest{
		Model: c.model,
		Messages: []chatCompletionMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create generator request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[QuizGenClient] Request failed: %v", err)
		return "", fmt.Errorf("generator request failed: %w", apperrors.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read generator response: %w", apperrors.ErrUpstream)
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("[QuizGenClient] Upstream returned status %d: %.200s", resp.StatusCode, string(body))
		return "", fmt.Errorf("generator returned status %d: %w", resp.StatusCode, apperrors.ErrUpstream)
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to decode generator response: %w", apperrors.ErrUpstreamParse)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generator response has no choices: %w", apperrors.ErrUpstreamParse)
	}
	return response.Choices[0].Message.Content, nil
}
