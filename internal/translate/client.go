// Package translate wraps the Google Translate v2 REST endpoint. The flow
// uses it in both directions: English question labels into the session
// language, and spoken answers back into English for canonical storage.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// ErrTranslationFailed wraps any failure from the translation service. The
// flow treats it as non-fatal and falls back to the untranslated text.
var ErrTranslationFailed = errors.New("translation failed")

// Client is a plain request/response translator. No retries: one failed call
// fails the step and the caller degrades gracefully.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// New creates a translation client. An empty endpoint selects the public
// Google API.
func New(apiKey, endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

// Translate converts text between two base language codes ("hi", "en").
// Same-language calls and empty text short-circuit without a round trip.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || sourceLang == targetLang {
		return text, nil
	}

	payload, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceLang,
		Target: targetLang,
		Format: "text",
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrTranslationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTranslationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTranslationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrTranslationFailed, resp.StatusCode)
	}

	var result translateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranslationFailed, err)
	}
	if len(result.Data.Translations) == 0 {
		return "", fmt.Errorf("%w: empty translation list", ErrTranslationFailed)
	}

	return result.Data.Translations[0].TranslatedText, nil
}
