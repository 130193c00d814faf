package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/chain"
	"rosary-digest/internal/segment"
)

// OpenAI summarizes via the chat completions API, iterating a
// configured ordered list of candidate models. Any per-model failure —
// model missing, quota exhausted, or otherwise — moves on to the next
// model; the backend fails only when the whole list is spent.
type OpenAI struct {
	apiKey  string
	models  []string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates the API backend. Models are tried in the order given.
func NewOpenAI(apiKey string, models []string) *OpenAI {
	return &OpenAI{
		apiKey:  apiKey,
		models:  models,
		baseURL: "https://api.openai.com/v1",
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// WithBaseURL points the backend at an alternate endpoint. Used by tests.
func (o *OpenAI) WithBaseURL(u string) *OpenAI {
	o.baseURL = u
	return o
}

func (o *OpenAI) Name() string { return "gpt" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Run issues one completion request per candidate model and returns the
// first non-empty response.
func (o *OpenAI) Run(ctx context.Context, content segment.Content) (Digest, error) {
	if o.apiKey == "" {
		return Digest{}, fmt.Errorf("openai: api key not configured: %w", chain.ErrUnavailable)
	}

	prompt := buildPrompt(content.TopicalText, apiPromptCeiling)

	var lastErr error
	for _, model := range o.models {
		text, err := o.complete(ctx, model, prompt)
		if err != nil {
			log.Printf("[WARN] openai: model %s failed (%s): %v", model, chain.Classify(err), err)
			lastErr = err
			continue
		}
		log.Printf("[INFO] openai: model %s produced summary", model)
		return parseDigest(text, o.Name()), nil
	}

	if lastErr == nil {
		return Digest{}, fmt.Errorf("openai: no models configured: %w", chain.ErrUnavailable)
	}
	return Digest{}, fmt.Errorf("openai: all models failed: %w", lastErr)
}

func (o *OpenAI) complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("api error (status %d): %s %s", resp.StatusCode, cr.Error.Code, cr.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty completion")
	}

	return cr.Choices[0].Message.Content, nil
}
