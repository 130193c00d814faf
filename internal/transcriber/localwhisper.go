package transcriber

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/chain"
)

// LocalWhisper runs a whisper.cpp binary on the audio file. Free and
// CPU-bound; far slower than the API but it works offline. The full
// pipeline expects ffmpeg for decoding; the raw variant hands the file
// straight to the binary's built-in decoder and is only attempted after
// the full pipeline is unavailable or has failed.
type LocalWhisper struct {
	binary    string
	modelPath string
	language  string
	raw       bool // skip the ffmpeg precondition
}

// NewLocalWhisper creates the full-pipeline local backend.
func NewLocalWhisper(binary, modelPath, language string) *LocalWhisper {
	return &LocalWhisper{binary: binary, modelPath: modelPath, language: language}
}

// NewLocalWhisperRaw creates the degraded variant that tolerates a
// missing ffmpeg.
func NewLocalWhisperRaw(binary, modelPath, language string) *LocalWhisper {
	return &LocalWhisper{binary: binary, modelPath: modelPath, language: language, raw: true}
}

func (t *LocalWhisper) Name() string {
	if t.raw {
		return "local_whisper_raw"
	}
	return "local_whisper"
}

func (t *LocalWhisper) Run(ctx context.Context, in Input) (string, error) {
	if t.binary == "" {
		return "", fmt.Errorf("local whisper: binary not configured: %w", chain.ErrUnavailable)
	}
	if _, err := exec.LookPath(t.binary); err != nil {
		return "", fmt.Errorf("local whisper: %v: %w", err, chain.ErrUnavailable)
	}
	if !t.raw {
		if _, err := exec.LookPath("ffmpeg"); err != nil {
			return "", fmt.Errorf("local whisper: ffmpeg missing: %w", chain.ErrUnavailable)
		}
	}
	if _, err := os.Stat(t.modelPath); err != nil {
		return "", fmt.Errorf("local whisper: model %s: %v: %w", t.modelPath, err, chain.ErrUnavailable)
	}

	outputPrefix := strings.TrimSuffix(in.Path, filepath.Ext(in.Path)) + "." + t.Name()

	args := []string{
		"-m", t.modelPath,
		"-f", in.Path,
		"-otxt",
		"-l", t.language,
		"--output-file", outputPrefix,
	}

	log.Printf("[INFO] local whisper (%s): transcribing %s", t.Name(), in.Path)
	cmd := exec.CommandContext(ctx, t.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("local whisper: %s failed: %v: %s", t.binary, err, tail(string(out)))
	}

	txtPath := outputPrefix + ".txt"
	defer os.Remove(txtPath)

	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", fmt.Errorf("local whisper: read output: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("local whisper: empty transcript")
	}
	return text, nil
}

// tail keeps error output readable in logs.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 400 {
		return "..." + s[len(s)-400:]
	}
	return s
}
