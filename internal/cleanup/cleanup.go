// Package cleanup removes episode artifacts after a successful
// delivery: the audio and summary files are deleted, the transcript is
// moved into an archive directory, and old archived files are swept by
// age. An optional S3 archiver uploads transcript and summary before
// anything is removed locally.
package cleanup

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/feed"
	"rosary-digest/internal/store"
)

// summaryBackends are the producers whose summary files may exist for
// an episode.
var summaryBackends = []string{"gpt", "chatgpt_web", "simple"}

// Archiver uploads files to remote storage before local removal.
type Archiver interface {
	Archive(ctx context.Context, objectName, filePath string) error
}

// Cleaner removes per-episode files from the download directory.
type Cleaner struct {
	files      *store.Files
	archiveDir string
	archiver   Archiver
	enabled    bool
}

// New creates a cleaner. With enabled false every call is a no-op, so
// all artifacts stay on disk for inspection.
func New(files *store.Files, archiveDir string, enabled bool) *Cleaner {
	return &Cleaner{files: files, archiveDir: archiveDir, enabled: enabled}
}

// WithArchiver attaches remote archiving.
func (c *Cleaner) WithArchiver(a Archiver) *Cleaner {
	c.archiver = a
	return c
}

// EpisodeFiles deletes the audio and summary files for an episode and
// moves its transcript to the archive directory. Individual failures
// are logged and skipped; cleanup never fails a run that already
// delivered.
func (c *Cleaner) EpisodeFiles(ctx context.Context, ep *feed.EpisodeInfo) {
	if !c.enabled {
		log.Printf("[INFO] cleanup: disabled, keeping files for %s", ep.Filename)
		return
	}

	c.archive(ctx, ep)

	if moved := c.moveTranscript(ep); moved {
		log.Printf("[INFO] cleanup: transcript archived to %s", c.archiveDir)
	}

	removed := 0
	for _, path := range c.episodePaths(ep) {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[WARN] cleanup: can't delete %s, %v", filepath.Base(path), err)
			continue
		}
		removed++
	}
	log.Printf("[INFO] cleanup: removed %d files for %s", removed, ep.Filename)
}

// episodePaths lists the audio file and every possible summary file.
func (c *Cleaner) episodePaths(ep *feed.EpisodeInfo) []string {
	paths := []string{filepath.Join(c.files.Dir, ep.Filename)}
	for _, backend := range summaryBackends {
		paths = append(paths, c.files.SummaryPath(ep.Filename, backend))
	}
	return paths
}

// archive uploads the transcript and any summaries to remote storage.
func (c *Cleaner) archive(ctx context.Context, ep *feed.EpisodeInfo) {
	if c.archiver == nil {
		return
	}

	upload := func(path string) {
		if _, err := os.Stat(path); err != nil {
			return
		}
		if err := c.archiver.Archive(ctx, filepath.Base(path), path); err != nil {
			log.Printf("[WARN] cleanup: archive %s failed, %v", filepath.Base(path), err)
		}
	}

	upload(c.files.TranscriptPath(ep.Filename))
	for _, backend := range summaryBackends {
		upload(c.files.SummaryPath(ep.Filename, backend))
	}
}

// moveTranscript relocates the transcript into the archive directory.
func (c *Cleaner) moveTranscript(ep *feed.EpisodeInfo) bool {
	src := c.files.TranscriptPath(ep.Filename)
	if _, err := os.Stat(src); err != nil {
		return false
	}

	if err := os.MkdirAll(c.archiveDir, 0o755); err != nil {
		log.Printf("[WARN] cleanup: create archive dir, %v", err)
		return false
	}

	dst := filepath.Join(c.archiveDir, filepath.Base(src))
	if err := moveFile(src, dst); err != nil {
		log.Printf("[WARN] cleanup: can't move transcript, %v", err)
		return false
	}
	return true
}

// moveFile renames, falling back to copy+remove for cross-device moves.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// OldTranscripts removes archived transcripts older than maxAge.
func (c *Cleaner) OldTranscripts(maxAge time.Duration) int {
	if !c.enabled {
		return 0
	}
	return sweep(c.archiveDir, maxAge, func(name string) bool {
		return strings.HasSuffix(name, "_transcript.txt")
	})
}

// OldDownloads removes any leftover files in the download directory
// older than maxAge, catching debris from failed runs.
func (c *Cleaner) OldDownloads(maxAge time.Duration) int {
	if !c.enabled {
		return 0
	}
	return sweep(c.files.Dir, maxAge, func(string) bool { return true })
}

func sweep(dir string, maxAge time.Duration, match func(name string) bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Printf("[WARN] cleanup: can't delete %s, %v", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("[INFO] cleanup: removed %d files older than %s from %s", removed, maxAge, dir)
	}
	return removed
}
