package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/chain"
)

// GoogleSpeech is the lowest-accuracy backup: the free Google dictation
// endpoint. It needs the audio converted to 16-kHz mono FLAC first; a
// failed conversion fails the backend. The intermediate file is removed
// on every exit path.
type GoogleSpeech struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
}

// NewGoogleSpeech creates the dictation backend.
func NewGoogleSpeech(apiKey, language string) *GoogleSpeech {
	return &GoogleSpeech{
		apiKey:   apiKey,
		language: language,
		baseURL:  "http://www.google.com/speech-api/v2/recognize",
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithBaseURL points the backend at an alternate endpoint. Used by tests.
func (t *GoogleSpeech) WithBaseURL(u string) *GoogleSpeech {
	t.baseURL = u
	return t
}

func (t *GoogleSpeech) Name() string { return "google_speech" }

type googleResp struct {
	Result []struct {
		Alternative []struct {
			Transcript string `json:"transcript"`
		} `json:"alternative"`
	} `json:"result"`
}

func (t *GoogleSpeech) Run(ctx context.Context, in Input) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("google speech: api key not configured: %w", chain.ErrUnavailable)
	}

	flacPath, err := t.convert(ctx, in.Path)
	if err != nil {
		return "", fmt.Errorf("google speech: conversion: %w", err)
	}
	defer os.Remove(flacPath)

	data, err := os.ReadFile(flacPath)
	if err != nil {
		return "", fmt.Errorf("google speech: read converted audio: %w", err)
	}

	url := fmt.Sprintf("%s?client=chromium&lang=%s&key=%s", t.baseURL, t.language, t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("google speech: create request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/x-flac; rate=16000")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google speech: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("google speech: unexpected status %d", resp.StatusCode)
	}

	text, err := parseGoogleResponse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("google speech: %w", err)
	}
	return text, nil
}

// convert produces the 16-kHz mono FLAC the dictation endpoint expects.
func (t *GoogleSpeech) convert(ctx context.Context, audioPath string) (string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", fmt.Errorf("ffmpeg missing: %w", chain.ErrUnavailable)
	}

	flacPath := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".flac"
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", audioPath, "-ac", "1", "-ar", "16000", flacPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(flacPath)
		return "", fmt.Errorf("ffmpeg failed: %v: %s", err, tail(string(out)))
	}

	log.Printf("[DEBUG] google speech: converted %s -> %s", audioPath, flacPath)
	return flacPath, nil
}

// parseGoogleResponse handles the endpoint's line-delimited JSON: the
// first line is usually an empty result, the transcript follows.
func parseGoogleResponse(r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parts []string
	for _, line := range strings.Split(buf.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var gr googleResp
		if err := json.Unmarshal([]byte(line), &gr); err != nil {
			continue
		}
		for _, res := range gr.Result {
			if len(res.Alternative) > 0 && res.Alternative[0].Transcript != "" {
				parts = append(parts, res.Alternative[0].Transcript)
			}
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no transcript in response")
	}
	return strings.Join(parts, " "), nil
}
