package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	defaultChatTimeout = 60 * time.Second
	defaultTemperature = 0.7
	maxErrorBody       = 512
	maxResponseBody    = 4 << 20
)

var errNoAPIKey = errors.New("api key not configured")

type ChatConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Chat talks to any OpenAI-compatible /chat/completions endpoint.
type Chat struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func newChat(name, defaultBase, defaultModel string, cfg ChatConfig) *Chat {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBase
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultChatTimeout
	}
	return &Chat{
		name:    name,
		baseURL: base,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func NewGroq(cfg ChatConfig) *Chat {
	return newChat("groq", "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile", cfg)
}

func NewDeepSeek(cfg ChatConfig) *Chat {
	return newChat("deepseek", "https://api.deepseek.com/v1", "deepseek-chat", cfg)
}

func NewOpenAI(cfg ChatConfig) *Chat {
	return newChat("openai", "https://api.openai.com/v1", "gpt-4o-mini", cfg)
}

func (c *Chat) Name() string  { return c.name }
func (c *Chat) Model() string { return c.model }

func (c *Chat) Available(_ context.Context) bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Chat) Complete(ctx context.Context, p Prompt) (string, error) {
	if c.apiKey == "" {
		return "", errNoAPIKey
	}
	payload := chatRequest{
		Model:       c.model,
		Temperature: defaultTemperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: p.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: p.User})
	if p.JSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}
	var decoded chatResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// truncate caps s at n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
