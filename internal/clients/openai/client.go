package openai

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

	"github.com/novamark/agencydesk-backend/internal/platform/logger"
)

// Client is the slice of the completion API the portal uses.
type Client interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type httpClient struct {
	log     *logger.Logger
	apiKey  string
	baseURL string
	model   string
	hc      *http.Client
}

func NewClient(baseLog *logger.Logger, baseURL, model string) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	return &httpClient{
		log:     baseLog.With("client", "OpenAI"),
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		hc:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatCompletionReq struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResp struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *httpClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatCompletionReq{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var out chatCompletionResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode completion response (%d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("completion api: %s (%s)", out.Error.Message, out.Error.Type)
	}
	if resp.StatusCode != http.StatusOK || len(out.Choices) == 0 {
		return "", fmt.Errorf("completion api: unexpected status %d", resp.StatusCode)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
