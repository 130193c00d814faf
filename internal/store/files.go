package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Files writes transcripts and summaries next to the downloaded audio.
// All paths derive from the episode filename, so cleanup can find every
// artifact later.
type Files struct {
	Dir string
}

// TranscriptPath returns where the transcript for an episode lives.
func (f *Files) TranscriptPath(filename string) string {
	return filepath.Join(f.Dir, strings.TrimSuffix(filename, ".mp3")+"_transcript.txt")
}

// SummaryPath returns where the summary produced by a given backend lives.
func (f *Files) SummaryPath(filename, backend string) string {
	return filepath.Join(f.Dir, strings.TrimSuffix(filename, ".mp3")+"_summary_"+backend+".txt")
}

// SaveTranscript writes the transcript with a short header identifying
// the episode.
func (f *Files) SaveTranscript(title, published, filename, transcript string) (string, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create dir: %w", err)
	}

	path := f.TranscriptPath(filename)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Episode: %s\n", title)
	fmt.Fprintf(&sb, "Published: %s\n", published)
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString(transcript)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("store: write transcript: %w", err)
	}

	log.Printf("[INFO] store: transcript saved to %s", path)
	return path, nil
}

// SaveSummary writes the rendered summary with a header naming the
// backend that produced it and when.
func (f *Files) SaveSummary(title, published, filename, backend, summary string) (string, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("store: create dir: %w", err)
	}

	path := f.SummaryPath(filename, backend)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Episode: %s\n", title)
	fmt.Fprintf(&sb, "Published: %s\n", published)
	fmt.Fprintf(&sb, "Summary Method: %s\n", strings.ToUpper(backend))
	fmt.Fprintf(&sb, "Generated: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")
	sb.WriteString(summary)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("store: write summary: %w", err)
	}

	log.Printf("[INFO] store: summary saved to %s", path)
	return path, nil
}
