package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosary-digest/internal/feed"
	"rosary-digest/internal/segment"
	"rosary-digest/internal/store"
	"rosary-digest/internal/summarizer"
	"rosary-digest/internal/transcriber"
)

type mockSource struct {
	ep  *feed.EpisodeInfo
	err error
}

func (m *mockSource) Latest(ctx context.Context) (*feed.EpisodeInfo, error) {
	return m.ep, m.err
}

type mockFetcher struct {
	path   string
	err    error
	called bool
}

func (m *mockFetcher) Fetch(ctx context.Context, url, filename string) (string, error) {
	m.called = true
	return m.path, m.err
}

type mockTranscriber struct {
	text string
	err  error
}

func (m *mockTranscriber) Transcribe(ctx context.Context, in transcriber.Input) (transcriber.Transcript, error) {
	if m.err != nil {
		return transcriber.Transcript{}, m.err
	}
	return transcriber.Transcript{Text: m.text, ProducedBy: "whisper_api"}, nil
}

type mockSummarizer struct {
	content segment.Content
	err     error
}

func (m *mockSummarizer) Summarize(ctx context.Context, content segment.Content) (summarizer.Digest, error) {
	m.content = content
	if m.err != nil {
		return summarizer.Digest{}, m.err
	}
	return summarizer.Digest{
		Bullets:    []string{"Trust in God's providence."},
		Closing:    "Simple summary for hand copying and reflection",
		ProducedBy: "simple",
	}, nil
}

type mockDeliverer struct {
	summary string
	err     error
	called  bool
}

func (m *mockDeliverer) SendDigest(ctx context.Context, ep *feed.EpisodeInfo, summary string) error {
	m.called = true
	m.summary = summary
	return m.err
}

type mockState struct {
	delivered bool
	saved     []*store.Episode
}

func (m *mockState) Delivered(feedID, filename string) (bool, error) {
	return m.delivered, nil
}

func (m *mockState) Save(feedID string, episode *store.Episode) error {
	m.saved = append(m.saved, episode)
	return nil
}

func (m *mockState) lastStatus() store.Status {
	if len(m.saved) == 0 {
		return ""
	}
	return m.saved[len(m.saved)-1].Status
}

type mockCleaner struct {
	episodeCalls int
	sweeps       int
}

func (m *mockCleaner) EpisodeFiles(ctx context.Context, ep *feed.EpisodeInfo) { m.episodeCalls++ }

func (m *mockCleaner) OldTranscripts(maxAge time.Duration) int { m.sweeps++; return 0 }

func (m *mockCleaner) OldDownloads(maxAge time.Duration) int { m.sweeps++; return 0 }

const testTranscript = "Welcome everyone. Today we'll be meditating on the Annunciation and Mary's trust in God."

type fixture struct {
	runner      *Runner
	source      *mockSource
	fetcher     *mockFetcher
	transcriber *mockTranscriber
	summarizer  *mockSummarizer
	deliverer   *mockDeliverer
	state       *mockState
	cleaner     *mockCleaner
	files       *store.Files
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		source: &mockSource{ep: &feed.EpisodeInfo{
			Title:         "Day 1 - The Annunciation",
			AudioURL:      "https://cdn.example.com/day1.mp3",
			PublishedDate: "Mon, 06 Jan 2025 05:00:00 +0000",
			Filename:      "Day 1 - The Annunciation.mp3",
		}},
		fetcher:     &mockFetcher{path: filepath.Join(dir, "Day 1 - The Annunciation.mp3")},
		transcriber: &mockTranscriber{text: testTranscript},
		summarizer:  &mockSummarizer{},
		deliverer:   &mockDeliverer{},
		state:       &mockState{},
		cleaner:     &mockCleaner{},
		files:       &store.Files{Dir: dir},
	}
	f.runner = New("rosary", f.source, f.fetcher, f.transcriber, f.summarizer,
		f.deliverer, f.state, f.files, f.cleaner, segment.DefaultMarkers())
	f.runner.probe = func(string) (time.Duration, error) { return 20 * time.Minute, nil }
	return f
}

func TestRunHappyPath(t *testing.T) {
	f := newFixture(t)

	err := f.runner.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, f.fetcher.called)
	assert.True(t, f.deliverer.called)
	assert.Contains(t, f.deliverer.summary, "Trust in God's providence.")

	require.NotEmpty(t, f.state.saved)
	last := f.state.saved[len(f.state.saved)-1]
	assert.Equal(t, store.StatusDelivered, last.Status)
	assert.Equal(t, "simple", last.Summarizer)

	assert.Equal(t, 1, f.cleaner.episodeCalls)
	assert.Equal(t, 2, f.cleaner.sweeps)
}

func TestRunSavesTranscriptAndSummary(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background()))

	transcript, err := os.ReadFile(f.files.TranscriptPath("Day 1 - The Annunciation.mp3"))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), testTranscript)

	summary, err := os.ReadFile(f.files.SummaryPath("Day 1 - The Annunciation.mp3", "simple"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Summary Method: SIMPLE")
}

func TestRunSummarizesTopicalContentOnly(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.runner.Run(context.Background()))

	assert.Equal(t, "today we'll be meditating", f.summarizer.content.MarkerUsed)
	assert.NotContains(t, f.summarizer.content.TopicalText, "Welcome everyone.")
}

func TestRunSkipsDeliveredEpisode(t *testing.T) {
	f := newFixture(t)
	f.state.delivered = true

	err := f.runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, f.fetcher.called)
	assert.False(t, f.deliverer.called)
	assert.Empty(t, f.state.saved)
}

func TestRunDiscoveryFailure(t *testing.T) {
	f := newFixture(t)
	f.source.err = errors.New("feed unreachable")

	err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.False(t, f.fetcher.called)
}

func TestRunDownloadFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = errors.New("unexpected status 404")

	err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.False(t, f.deliverer.called)
	assert.Equal(t, store.StatusFailed, f.state.lastStatus())
}

func TestRunTranscriptionFailureAborts(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = errors.New("transcribe: all 4 backends failed")

	err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transcription")
	assert.False(t, f.deliverer.called)
	assert.Equal(t, store.StatusFailed, f.state.lastStatus())
	assert.Equal(t, 0, f.cleaner.episodeCalls, "files stay on disk after a failed run")
}

func TestRunDeliveryFailureKeepsFiles(t *testing.T) {
	f := newFixture(t)
	f.deliverer.err = errors.New("unexpected status 502")

	err := f.runner.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, store.StatusFailed, f.state.lastStatus())
	assert.Equal(t, 0, f.cleaner.episodeCalls)

	assert.FileExists(t, f.files.TranscriptPath("Day 1 - The Annunciation.mp3"))
}
