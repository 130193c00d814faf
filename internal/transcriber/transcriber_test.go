package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosary-digest/internal/chain"
)

type stubSTT struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubSTT) Name() string { return s.name }

func (s *stubSTT) Run(ctx context.Context, in Input) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestChainOrderAndFirstSuccess(t *testing.T) {
	api := &stubSTT{name: "whisper_api", err: errors.New("quota exceeded")}
	local := &stubSTT{name: "local_whisper", err: errors.New("ffmpeg missing")}
	raw := &stubSTT{name: "local_whisper_raw", text: "the transcript"}
	google := &stubSTT{name: "google_speech"}

	c := NewChain(api, local, raw, google)
	tr, err := c.Transcribe(context.Background(), Input{Path: "ep.mp3", Format: "mp3"})

	require.NoError(t, err)
	assert.Equal(t, "the transcript", tr.Text)
	assert.Equal(t, "local_whisper_raw", tr.ProducedBy)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 1, local.calls)
	assert.Zero(t, google.calls)
}

func TestChainExhaustionIsFatal(t *testing.T) {
	backends := []Backend{
		&stubSTT{name: "whisper_api", err: errors.New("401 unauthorized")},
		&stubSTT{name: "local_whisper", err: errors.New("binary missing")},
		&stubSTT{name: "local_whisper_raw", err: errors.New("decode failed")},
		&stubSTT{name: "google_speech", err: errors.New("conversion failed")},
	}

	c := NewChain(backends...)
	_, err := c.Transcribe(context.Background(), Input{Path: "ep.mp3"})

	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrExhausted)
}

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "episode.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake mp3 bytes"), 0o644))
	return path
}

func TestWhisperAPISuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))

		_ = json.NewEncoder(w).Encode(map[string]string{"text": "hello from whisper"})
	}))
	defer srv.Close()

	b := NewWhisperAPI("key").WithBaseURL(srv.URL)
	text, err := b.Run(context.Background(), Input{Path: writeTempAudio(t), Format: "mp3"})

	require.NoError(t, err)
	assert.Equal(t, "hello from whisper", text)
}

func TestWhisperAPIErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "insufficient_quota", "message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	b := NewWhisperAPI("key").WithBaseURL(srv.URL)
	_, err := b.Run(context.Background(), Input{Path: writeTempAudio(t)})

	require.Error(t, err)
	assert.Equal(t, chain.ReasonTransient, chain.Classify(err))
}

func TestWhisperAPIMissingKey(t *testing.T) {
	b := NewWhisperAPI("")
	_, err := b.Run(context.Background(), Input{Path: "nope.mp3"})

	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrUnavailable)
}

func TestLocalWhisperMissingBinaryIsUnavailable(t *testing.T) {
	b := NewLocalWhisper("definitely-not-a-real-binary-name", "model.bin", "en")
	_, err := b.Run(context.Background(), Input{Path: "ep.mp3"})

	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrUnavailable)
	assert.Equal(t, chain.ReasonUnavailable, chain.Classify(err))
}

func TestLocalWhisperNames(t *testing.T) {
	assert.Equal(t, "local_whisper", NewLocalWhisper("w", "m", "en").Name())
	assert.Equal(t, "local_whisper_raw", NewLocalWhisperRaw("w", "m", "en").Name())
}

func TestGoogleSpeechMissingKey(t *testing.T) {
	b := NewGoogleSpeech("", "en-US")
	_, err := b.Run(context.Background(), Input{Path: "ep.mp3"})

	require.Error(t, err)
	assert.ErrorIs(t, err, chain.ErrUnavailable)
}

func TestParseGoogleResponse(t *testing.T) {
	body := `{"result":[]}
{"result":[{"alternative":[{"transcript":"today we will be meditating","confidence":0.91}],"final":true}],"result_index":0}`

	text, err := parseGoogleResponse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "today we will be meditating", text)
}

func TestParseGoogleResponseEmpty(t *testing.T) {
	_, err := parseGoogleResponse(strings.NewReader(`{"result":[]}`))
	assert.Error(t, err)
}
