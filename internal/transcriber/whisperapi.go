package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"rosary-digest/internal/chain"
)

// WhisperAPI transcribes through the OpenAI audio transcriptions
// endpoint. Fastest and most accurate backend; fails on auth, quota,
// and network errors and lets the chain degrade to the local models.
type WhisperAPI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewWhisperAPI creates the remote backend.
func NewWhisperAPI(apiKey string) *WhisperAPI {
	return &WhisperAPI{
		apiKey:  apiKey,
		model:   "whisper-1",
		baseURL: "https://api.openai.com/v1",
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// WithBaseURL points the backend at an alternate endpoint. Used by tests.
func (t *WhisperAPI) WithBaseURL(u string) *WhisperAPI {
	t.baseURL = u
	return t
}

func (t *WhisperAPI) Name() string { return "whisper_api" }

type whisperResp struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (t *WhisperAPI) Run(ctx context.Context, in Input) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("whisper api: api key not configured: %w", chain.ErrUnavailable)
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return "", fmt.Errorf("whisper api: open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("whisper api: build payload: %w", err)
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(in.Path))
	if err != nil {
		return "", fmt.Errorf("whisper api: build payload: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("whisper api: read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper api: build payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("whisper api: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper api: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whisper api: read response: %w", err)
	}

	var wr whisperResp
	if err := json.Unmarshal(raw, &wr); err != nil {
		return "", fmt.Errorf("whisper api: parse response (status %d): %w", resp.StatusCode, err)
	}
	if wr.Error != nil {
		return "", fmt.Errorf("whisper api: api error (status %d): %s %s", resp.StatusCode, wr.Error.Code, wr.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whisper api: unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	if wr.Text == "" {
		return "", fmt.Errorf("whisper api: empty transcript")
	}

	return wr.Text, nil
}
