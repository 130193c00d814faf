package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	log "github.com/go-pkgz/lgr"

	"rosary-digest/internal/segment"
)

// WebChat drives a browser against a web chat UI as a best-effort
// summarization strategy. It is inherently brittle — every selector
// below is coupled to a third party's markup — so it sits behind the
// same backend interface as the API strategy and is expected to fail
// often. Chain correctness never depends on it succeeding.
type WebChat struct {
	url         string
	wait        time.Duration // fixed window for the model to answer
	headless    bool
	minResponse int // shortest text accepted as an answer
}

// NewWebChat creates the browser-automation backend.
func NewWebChat(url string, wait time.Duration, headless bool) *WebChat {
	return &WebChat{url: url, wait: wait, headless: headless, minResponse: 50}
}

func (w *WebChat) Name() string { return "chatgpt_web" }

// Candidate selectors, tried in order, first match wins. The lists are
// long on purpose: the UI changes under us and localized variants ship
// different attributes.
var (
	inputSelectors = []string{
		"#prompt-textarea",
		"textarea[placeholder*='Message']",
		"textarea[data-id='root']",
		"div[contenteditable='true']",
		"[role='textbox']",
		"textarea",
	}
	sendSelectors = []string{
		"[data-testid='send-button']",
		"button[aria-label*='Send']",
		"button[type='submit']",
	}
	responseSelectors = []string{
		"[data-message-author-role='assistant']",
		"[data-testid*='conversation-turn']",
		".markdown",
		".prose",
		"[class*='message']",
		"[class*='assistant']",
		".whitespace-pre-wrap",
	}
)

// Run opens a browser session, submits the prompt, waits a fixed
// interval, and scrapes the response. The browser is closed on every
// exit path via the deferred context cancels.
func (w *WebChat) Run(ctx context.Context, content segment.Content) (Digest, error) {
	prompt := buildPrompt(content.TopicalText, webPromptCeiling)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", w.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(w.url),
		chromedp.Sleep(5*time.Second),
	); err != nil {
		return Digest{}, fmt.Errorf("webchat: open %s: %w", w.url, err)
	}

	inputSel, err := w.findFirst(browserCtx, inputSelectors)
	if err != nil {
		return Digest{}, fmt.Errorf("webchat: no input control found: %w", err)
	}
	log.Printf("[DEBUG] webchat: using input selector %q", inputSel)

	if err := chromedp.Run(browserCtx, chromedp.SendKeys(inputSel, prompt, chromedp.ByQuery)); err != nil {
		return Digest{}, fmt.Errorf("webchat: type prompt: %w", err)
	}

	if err := w.submit(browserCtx, inputSel); err != nil {
		return Digest{}, fmt.Errorf("webchat: submit: %w", err)
	}

	if err := chromedp.Run(browserCtx, chromedp.Sleep(w.wait)); err != nil {
		return Digest{}, fmt.Errorf("webchat: wait for response: %w", err)
	}

	text, err := w.scrapeResponse(browserCtx)
	if err != nil {
		return Digest{}, fmt.Errorf("webchat: %w", err)
	}

	return parseDigest(text, w.Name()), nil
}

// findFirst returns the first candidate selector that resolves to a
// visible element within its short per-selector window.
func (w *WebChat) findFirst(ctx context.Context, selectors []string) (string, error) {
	for _, sel := range selectors {
		tryCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := chromedp.Run(tryCtx, chromedp.WaitVisible(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return sel, nil
		}
		log.Printf("[DEBUG] webchat: selector %q not usable: %v", sel, err)
	}
	return "", fmt.Errorf("none of %d selectors matched", len(selectors))
}

// submit clicks the first workable send control, falling back to a
// newline keystroke in the input.
func (w *WebChat) submit(ctx context.Context, inputSel string) error {
	for _, sel := range sendSelectors {
		tryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := chromedp.Run(tryCtx, chromedp.Click(sel, chromedp.ByQuery))
		cancel()
		if err == nil {
			return nil
		}
		log.Printf("[DEBUG] webchat: send selector %q failed: %v", sel, err)
	}
	return chromedp.Run(ctx, chromedp.SendKeys(inputSel, "\n", chromedp.ByQuery))
}

// scrapeResponse walks the response selector candidates and returns the
// first element text that looks like a substantial answer.
func (w *WebChat) scrapeResponse(ctx context.Context) (string, error) {
	for _, sel := range responseSelectors {
		var texts []string
		expr := fmt.Sprintf(
			`Array.from(document.querySelectorAll(%q)).map(function(e) { return e.innerText })`, sel)

		tryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := chromedp.Run(tryCtx, chromedp.Evaluate(expr, &texts))
		cancel()
		if err != nil {
			log.Printf("[DEBUG] webchat: response selector %q failed: %v", sel, err)
			continue
		}

		for _, t := range texts {
			t = strings.TrimSpace(t)
			if len(t) > w.minResponse {
				log.Printf("[INFO] webchat: extracted response via %q (%d chars)", sel, len(t))
				return t, nil
			}
		}
	}
	return "", fmt.Errorf("no response extracted within the wait window")
}
