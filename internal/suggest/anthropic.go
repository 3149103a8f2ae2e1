package suggest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// ErrNoAPIKey is returned when no Anthropic key is configured
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY not set")

// Request describes the message to translate
type Request struct {
	ID           string
	Source       string
	Description  string
	Placeholders []string // upper-cased names, written $NAME$ in the text
	Locale       string
}

// Suggester asks the Anthropic API for translations
type Suggester struct {
	apiKey   string
	model    string
	Endpoint string
	Client   *http.Client
}

// New creates a new Suggester
func New(apiKey, model string) (*Suggester, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	return &Suggester{
		apiKey:   apiKey,
		model:    model,
		Endpoint: anthropicAPI,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Suggest returns a proposed translation of req.Source
func (s *Suggester) Suggest(ctx context.Context, req Request) (string, error) {
	resp, err := s.callAPI(ctx, buildPrompt(req))
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}

	return parseResponse(resp)
}

func buildPrompt(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Translate this user interface message into the language with BCP 47 tag %q.\n\n", req.Locale)
	sb.WriteString("Message id: ")
	sb.WriteString(req.ID)
	sb.WriteString("\nMessage:\n")
	sb.WriteString(req.Source)
	sb.WriteString("\n")

	if req.Description != "" {
		sb.WriteString("\nContext from the developer:\n")
		sb.WriteString(req.Description)
		sb.WriteString("\n")
	}

	if len(req.Placeholders) > 0 {
		sb.WriteString("\nKeep these placeholders exactly as written:\n")
		for _, name := range req.Placeholders {
			sb.WriteString("- $")
			sb.WriteString(name)
			sb.WriteString("$\n")
		}
	}

	sb.WriteString(`
Rules:
- Keep the tone and length of the original
- Do not add placeholders that are not in the original
- Return ONLY the translated message, no quotes, no explanation`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (s *Suggester) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     s.model,
		MaxTokens: 1024,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	for _, c := range apiResp.Content {
		if c.Type == "text" {
			return c.Text, nil
		}
	}
	return "", fmt.Errorf("empty response")
}

func parseResponse(resp string) (string, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```text")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	if len(resp) >= 2 && resp[0] == '"' && resp[len(resp)-1] == '"' {
		resp = resp[1 : len(resp)-1]
	}
	if resp == "" {
		return "", fmt.Errorf("empty translation")
	}
	return resp, nil
}
