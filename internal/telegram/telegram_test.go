package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosary-digest/internal/feed"
	"rosary-digest/internal/retry"
)

func testEpisode() *feed.EpisodeInfo {
	return &feed.EpisodeInfo{
		Title:         "Day 37 - The Visitation",
		PublishedDate: "Mon, 06 Jan 2025 05:00:00 +0000",
		Filename:      "Day 37 - The Visitation.mp3",
	}
}

func newTestSender(url string) *Sender {
	s := NewSender("test-token", "12345").WithBaseURL(url)
	s.retryConfig = retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond}
	return s
}

func TestSendDigestDelivers(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s := newTestSender(srv.URL)
	err := s.SendDigest(context.Background(), testEpisode(), "**🙏 Meditation Summary**\n\n• bullet one")

	require.NoError(t, err)
	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "12345", gotForm["chat_id"])
	assert.Equal(t, "Markdown", gotForm["parse_mode"])
	assert.Equal(t, "true", gotForm["disable_web_page_preview"])
	assert.Contains(t, gotForm["text"], "🔮 **Day 37 - The Visitation**")
	assert.Contains(t, gotForm["text"], "📅 Mon, 06 Jan 2025")
}

func TestSendDigestFallsBackToPlainText(t *testing.T) {
	var modes []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		mode := r.PostForm.Get("parse_mode")
		modes = append(modes, mode)
		if mode == "Markdown" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"description":"Bad Request: can't parse entities"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s := newTestSender(srv.URL)
	err := s.SendDigest(context.Background(), testEpisode(), "broken _markdown")

	require.NoError(t, err)
	assert.Equal(t, []string{"Markdown", ""}, modes)
}

func TestSendDigestRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s := newTestSender(srv.URL)
	err := s.SendDigest(context.Background(), testEpisode(), "summary")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSendDigestAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer srv.Close()

	s := newTestSender(srv.URL)
	err := s.SendDigest(context.Background(), testEpisode(), "summary")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendDigestMissingCredentials(t *testing.T) {
	s := NewSender("", "")
	err := s.SendDigest(context.Background(), testEpisode(), "summary")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestFormatMessageHeader(t *testing.T) {
	msg := FormatMessage(testEpisode(), "• Trust in God.")

	assert.True(t, strings.HasPrefix(msg, "🔮 **Day 37 - The Visitation**\n📅 Mon, 06 Jan 2025 05:00:00 +0000\n\n"))
	assert.Contains(t, msg, "• Trust in God.")
}

func TestFormatMessageEscapesMarkdown(t *testing.T) {
	msg := FormatMessage(testEpisode(), "keep **bold** but escape _this_ and [that]")

	assert.Contains(t, msg, "**bold**")
	assert.Contains(t, msg, "\\_this\\_")
	assert.Contains(t, msg, "\\[that\\]")
}

func TestFormatMessageTruncatesLongSummaries(t *testing.T) {
	long := strings.Repeat("meditation on the mysteries ", 300)
	msg := FormatMessage(testEpisode(), long)

	assert.LessOrEqual(t, len(msg), messageLimit)
	assert.Contains(t, msg, "*[Summary truncated due to length]*")
}

func TestFormatMessageOverlongTitle(t *testing.T) {
	ep := testEpisode()
	ep.Title = strings.Repeat("T", 4100)

	var msg string
	require.NotPanics(t, func() { msg = FormatMessage(ep, "short summary") })
	assert.Contains(t, msg, "*[Summary truncated due to length]*")
	assert.NotContains(t, msg, "short summary")
}

func TestFormatMessageTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("благодать и молитва ", 300)
	msg := FormatMessage(testEpisode(), long)

	assert.LessOrEqual(t, len(msg), messageLimit)
	assert.True(t, utf8.ValidString(msg))
	assert.Contains(t, msg, "*[Summary truncated due to length]*")
}

func TestFormatMessageShortSummaryUntouched(t *testing.T) {
	msg := FormatMessage(testEpisode(), "short summary")

	assert.NotContains(t, msg, "truncated")
}
