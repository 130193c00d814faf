// Package runner orchestrates one end-to-end pipeline run: discover the
// episode, download it, transcribe, segment, summarize, deliver, and
// clean up. Stages run strictly in order; only transcription exhaustion
// aborts a run, everything after it degrades instead of failing.
package runner

import (
	"context"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/audio"
	"rosary-digest/internal/feed"
	"rosary-digest/internal/segment"
	"rosary-digest/internal/store"
	"rosary-digest/internal/summarizer"
	"rosary-digest/internal/transcriber"
)

// EpisodeSource discovers the episode to process.
type EpisodeSource interface {
	Latest(ctx context.Context) (*feed.EpisodeInfo, error)
}

// AudioFetcher downloads episode audio and returns the local path.
type AudioFetcher interface {
	Fetch(ctx context.Context, url, filename string) (string, error)
}

// Transcriber converts audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, in transcriber.Input) (transcriber.Transcript, error)
}

// Summarizer turns segmented content into a digest.
type Summarizer interface {
	Summarize(ctx context.Context, content segment.Content) (summarizer.Digest, error)
}

// Deliverer sends the finished digest to the user.
type Deliverer interface {
	SendDigest(ctx context.Context, ep *feed.EpisodeInfo, summary string) error
}

// StateStore records episode progress between runs.
type StateStore interface {
	Delivered(feedID, filename string) (bool, error)
	Save(feedID string, episode *store.Episode) error
}

// Cleaner removes episode artifacts after delivery.
type Cleaner interface {
	EpisodeFiles(ctx context.Context, ep *feed.EpisodeInfo)
	OldTranscripts(maxAge time.Duration) int
	OldDownloads(maxAge time.Duration) int
}

// Runner wires the pipeline stages together.
type Runner struct {
	feedID        string
	source        EpisodeSource
	fetcher       AudioFetcher
	transcriber   Transcriber
	summarizer    Summarizer
	deliverer     Deliverer
	state         StateStore
	files         *store.Files
	cleaner       Cleaner
	markers       segment.Markers
	transcriptAge time.Duration
	downloadAge   time.Duration

	// probe is swappable in tests; decoding real mp3 frames needs a
	// real file.
	probe func(path string) (time.Duration, error)
}

// New creates a runner for one feed.
func New(feedID string, src EpisodeSource, f AudioFetcher, t Transcriber, s Summarizer,
	d Deliverer, state StateStore, files *store.Files, cleaner Cleaner, markers segment.Markers) *Runner {
	return &Runner{
		feedID:        feedID,
		source:        src,
		fetcher:       f,
		transcriber:   t,
		summarizer:    s,
		deliverer:     d,
		state:         state,
		files:         files,
		cleaner:       cleaner,
		markers:       markers,
		transcriptAge: 30 * 24 * time.Hour,
		downloadAge:   7 * 24 * time.Hour,
		probe:         audio.Duration,
	}
}

// WithRetention overrides the sweep ages used after a delivered run.
func (r *Runner) WithRetention(transcriptAge, downloadAge time.Duration) *Runner {
	r.transcriptAge = transcriptAge
	r.downloadAge = downloadAge
	return r
}

// Run executes the full pipeline once.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("[INFO] runner: starting pipeline for feed %s", r.feedID)

	ep, err := r.source.Latest(ctx)
	if err != nil {
		return fmt.Errorf("runner: discover episode: %w", err)
	}

	delivered, err := r.state.Delivered(r.feedID, ep.Filename)
	if err != nil {
		return fmt.Errorf("runner: check state: %w", err)
	}
	if delivered {
		log.Printf("[INFO] runner: %q already delivered, nothing to do", ep.Title)
		return nil
	}

	if err := r.state.Save(r.feedID, &store.Episode{
		Title:         ep.Title,
		Filename:      ep.Filename,
		PublishedDate: ep.PublishedDate,
		Status:        store.StatusProcessing,
	}); err != nil {
		return fmt.Errorf("runner: record episode: %w", err)
	}

	audioPath, err := r.fetcher.Fetch(ctx, ep.AudioURL, ep.Filename)
	if err != nil {
		r.markFailed(ep)
		return fmt.Errorf("runner: download: %w", err)
	}

	if ep.Title == "" {
		if title, terr := audio.TaggedTitle(audioPath); terr == nil {
			log.Printf("[INFO] runner: using tagged title %q", title)
			ep.Title = title
		}
	}

	if dur, err := r.probe(audioPath); err == nil {
		log.Printf("[INFO] runner: episode runs %s", dur.Round(time.Second))
	} else {
		log.Printf("[DEBUG] runner: duration probe failed, %v", err)
	}

	transcript, err := r.transcriber.Transcribe(ctx, transcriber.Input{Path: audioPath, Format: "mp3"})
	if err != nil {
		// Transcript-stage files stay on disk for a manual retry.
		r.markFailed(ep)
		return fmt.Errorf("runner: transcription: %w", err)
	}
	log.Printf("[INFO] runner: transcribed %d chars via %s", len(transcript.Text), transcript.ProducedBy)

	if _, err := r.files.SaveTranscript(ep.Title, ep.PublishedDate, ep.Filename, transcript.Text); err != nil {
		log.Printf("[WARN] runner: %v", err)
	}

	content := segment.Split(transcript.Text, r.markers)
	if content.MarkerUsed != "" {
		log.Printf("[INFO] runner: meditation starts at marker %q (offset %d)", content.MarkerUsed, content.BoundaryOffset)
	} else {
		log.Printf("[WARN] runner: no marker found, skipping first quarter of transcript")
	}

	digest, err := r.summarizer.Summarize(ctx, content)
	if err != nil {
		r.markFailed(ep)
		return fmt.Errorf("runner: summarization: %w", err)
	}
	summary := digest.Render()
	log.Printf("[INFO] runner: summary produced by %s", digest.ProducedBy)

	if _, err := r.files.SaveSummary(ep.Title, ep.PublishedDate, ep.Filename, digest.ProducedBy, summary); err != nil {
		log.Printf("[WARN] runner: %v", err)
	}

	if err := r.deliverer.SendDigest(ctx, ep, summary); err != nil {
		r.markFailed(ep)
		return fmt.Errorf("runner: delivery: %w", err)
	}

	if err := r.state.Save(r.feedID, &store.Episode{
		Title:         ep.Title,
		Filename:      ep.Filename,
		PublishedDate: ep.PublishedDate,
		Status:        store.StatusDelivered,
		Summarizer:    digest.ProducedBy,
	}); err != nil {
		log.Printf("[WARN] runner: record delivery, %v", err)
	}

	if r.cleaner != nil {
		r.cleaner.EpisodeFiles(ctx, ep)
		r.cleaner.OldTranscripts(r.transcriptAge)
		r.cleaner.OldDownloads(r.downloadAge)
	}

	log.Printf("[INFO] runner: pipeline completed for %q", ep.Title)
	return nil
}

func (r *Runner) markFailed(ep *feed.EpisodeInfo) {
	err := r.state.Save(r.feedID, &store.Episode{
		Title:         ep.Title,
		Filename:      ep.Filename,
		PublishedDate: ep.PublishedDate,
		Status:        store.StatusFailed,
	})
	if err != nil {
		log.Printf("[WARN] runner: record failure, %v", err)
	}
}
