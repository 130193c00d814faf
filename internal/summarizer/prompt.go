package summarizer

import "fmt"

// Input length ceilings per backend. The web UI tolerates less text in
// its input box than the API does in a request body.
const (
	apiPromptCeiling = 4000
	webPromptCeiling = 3000
)

const promptTemplate = `Please summarize ONLY the meditation/rosary content from this Catholic homily, ignoring any repetitive daily introduction.

Format requirements:
* First bullet: If an artwork/painting and artist are mentioned, include that (e.g., "Artwork: The Annunciation by Fra Angelico"). If no artwork mentioned, skip this bullet.
* Next 8 bullets: Key spiritual insights from the meditation (each bullet up to 150 characters)
* Focus on the main spiritual teachings and practical applications

Structure:
* Start with artwork info (if mentioned)
* Provide 8 bullet points with key insights
* End with a practical reflection in italics

MEDITATION CONTENT:
%s`

// buildPrompt renders the summarization prompt for the meditation
// content, truncated to the given ceiling.
func buildPrompt(topical string, maxLength int) string {
	return fmt.Sprintf(promptTemplate, truncateInput(topical, maxLength))
}
