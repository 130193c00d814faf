package audio

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/tcolgate/mp3"
)

// Duration decodes the mp3 frame headers and sums the playing time.
// Purely informational: a failure here never blocks the pipeline.
func Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audio: open %s: %w", path, err)
	}
	defer f.Close()

	var total time.Duration
	var frame mp3.Frame
	skipped := 0

	dec := mp3.NewDecoder(f)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("audio: decode %s: %w", path, err)
		}
		total += frame.Duration()
	}

	return total, nil
}

// TaggedTitle reads the ID3 title frame, used as a fallback when the
// feed item carries no usable title.
func TaggedTitle(path string) (string, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return "", fmt.Errorf("audio: read tags %s: %w", path, err)
	}
	defer tag.Close()

	title := tag.Title()
	if title == "" {
		return "", fmt.Errorf("audio: %s has no title tag", path)
	}
	return title, nil
}
