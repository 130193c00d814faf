// Package telegram delivers the rendered digest to a single chat via
// the Bot API sendMessage method.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/feed"
	"rosary-digest/internal/retry"
)

// messageLimit is the Bot API hard cap on message text length.
const messageLimit = 4096

// Sender posts digest messages to one Telegram chat.
type Sender struct {
	token       string
	chatID      string
	baseURL     string
	client      *http.Client
	retryConfig retry.Config
}

// NewSender creates a sender for the given bot token and chat.
func NewSender(token, chatID string) *Sender {
	return &Sender{
		token:       token,
		chatID:      chatID,
		baseURL:     "https://api.telegram.org",
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retry.DefaultConfig(),
	}
}

// WithBaseURL points the sender at a different API host, used in tests.
func (s *Sender) WithBaseURL(u string) *Sender {
	s.baseURL = u
	return s
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendDigest formats and delivers the summary for an episode.
func (s *Sender) SendDigest(ctx context.Context, ep *feed.EpisodeInfo, summary string) error {
	if s.token == "" || s.chatID == "" {
		return fmt.Errorf("telegram: bot token or chat id not configured")
	}

	message := FormatMessage(ep, summary)

	err := retry.WithBackoff(ctx, s.retryConfig, func(ctx context.Context) error {
		return s.sendMessage(ctx, message)
	})
	if err != nil {
		return fmt.Errorf("telegram: send digest: %w", err)
	}

	log.Printf("[INFO] telegram: digest for %q delivered", ep.Title)
	return nil
}

// sendMessage posts the text with Markdown formatting. When Telegram
// rejects the markup with a parse error, the same text goes out once
// more as plain text rather than losing the delivery.
func (s *Sender) sendMessage(ctx context.Context, text string) error {
	status, body, err := s.post(ctx, text, "Markdown")
	if err != nil {
		return err
	}

	if status == http.StatusBadRequest && isParseError(body) {
		log.Printf("[WARN] telegram: markdown rejected, resending as plain text")
		status, body, err = s.post(ctx, text, "")
		if err != nil {
			return err
		}
	}

	if status < 200 || status >= 300 {
		return fmt.Errorf("unexpected status %d: %s", status, body.Description)
	}
	if !body.OK {
		return fmt.Errorf("api error: %s", body.Description)
	}
	return nil
}

func (s *Sender) post(ctx context.Context, text, parseMode string) (int, apiResponse, error) {
	form := url.Values{
		"chat_id":                  {s.chatID},
		"text":                     {text},
		"disable_web_page_preview": {"true"},
	}
	if parseMode != "" {
		form.Set("parse_mode", parseMode)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, apiResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		body = apiResponse{}
	}
	return resp.StatusCode, body, nil
}

func isParseError(body apiResponse) bool {
	desc := strings.ToLower(body.Description)
	return strings.Contains(desc, "can't parse") || strings.Contains(desc, "markdown")
}

// FormatMessage builds the chat message: episode header, escaped
// summary, and a truncation notice when the text would exceed the API
// limit.
func FormatMessage(ep *feed.EpisodeInfo, summary string) string {
	header := fmt.Sprintf("🔮 **%s**\n📅 %s\n\n", ep.Title, ep.PublishedDate)
	clean := escapeMarkdown(summary)

	full := header + clean
	if len(full) > messageLimit {
		available := messageLimit - len(header) - 100
		if available < 0 {
			available = 0
		}
		if len(clean) > available {
			clean = truncateRunes(clean, available) + "\n\n*[Summary truncated due to length]*"
		}
		full = header + clean
	}
	return full
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// escapeMarkdown escapes characters that break Telegram's Markdown
// parser, then restores the intended ** bold markers.
func escapeMarkdown(text string) string {
	r := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	escaped := r.Replace(text)
	return strings.ReplaceAll(escaped, "\\*\\*", "**")
}
