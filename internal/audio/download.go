// Package audio downloads episode audio and answers small questions
// about the file (duration, tagged title) before transcription starts.
package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/retry"
)

// Downloader fetches episode audio into the download directory.
type Downloader struct {
	dir         string
	client      *http.Client
	retryConfig retry.Config
}

// NewDownloader creates a downloader writing into dir.
func NewDownloader(dir string) *Downloader {
	return &Downloader{
		dir:         dir,
		client:      &http.Client{Timeout: 15 * time.Minute},
		retryConfig: retry.DefaultConfig(),
	}
}

// Fetch downloads url into filename under the download dir. Already
// present files are reused, which makes a re-run after a later-stage
// failure cheap.
func (d *Downloader) Fetch(ctx context.Context, url, filename string) (string, error) {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: create download dir: %w", err)
	}

	path := filepath.Join(d.dir, filename)
	if _, err := os.Stat(path); err == nil {
		log.Printf("[INFO] audio: %s already downloaded", filename)
		return path, nil
	}

	err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
		return d.download(ctx, url, path)
	})
	if err != nil {
		return "", fmt.Errorf("audio: download %s: %w", url, err)
	}

	return path, nil
}

func (d *Downloader) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp := path + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("finalize file: %w", err)
	}

	log.Printf("[INFO] audio: downloaded %s (%d bytes)", filepath.Base(path), written)
	return nil
}
