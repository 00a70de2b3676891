package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultSynthesizeEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"

// Synthesizer calls the Google Cloud text:synthesize endpoint to read
// question prompts aloud in the session language.
type Synthesizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSynthesizer creates a synthesizer. An empty endpoint selects the public
// Google API.
func NewSynthesizer(apiKey, endpoint string, timeout time.Duration) *Synthesizer {
	if endpoint == "" {
		endpoint = defaultSynthesizeEndpoint
	}
	return &Synthesizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		Pitch         float64 `json:"pitch"`
		SpeakingRate  float64 `json:"speakingRate"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize renders text as MP3 audio in the given regional locale.
func (sc *Synthesizer) Synthesize(ctx context.Context, text, languageCode string) ([]byte, error) {
	var reqBody synthesizeRequest
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = languageCode
	reqBody.Voice.Name = voiceFor(languageCode)
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.Pitch = 0
	reqBody.AudioConfig.SpeakingRate = 1

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.endpoint+"?key="+sc.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesize request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("synthesize API error (status %d): %s", resp.StatusCode, truncate(body, 200))
	}

	var result synthesizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.AudioContent == "" {
		return nil, fmt.Errorf("no audio content generated")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}

// voiceFor picks a Wavenet voice for the locale, falling back to the
// service's default voice selection for unmapped locales.
func voiceFor(languageCode string) string {
	switch strings.ToLower(languageCode) {
	case "hi-in":
		return "hi-IN-Wavenet-A"
	case "bn-in":
		return "bn-IN-Wavenet-A"
	case "ml-in":
		return "ml-IN-Wavenet-A"
	default:
		return ""
	}
}
