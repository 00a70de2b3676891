// Package speech wraps the Google Cloud Speech REST endpoints used by the
// intake flow: speech:recognize for answer transcription and text:synthesize
// for reading questions aloud.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mauka-works/intake-engine/internal/capture"
)

const defaultRecognizeEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// Fixed audio profile: the browser records opus-in-webm at 48 kHz.
const (
	audioEncoding   = "WEBM_OPUS"
	sampleRateHertz = 48000
	recognizeModel  = "default"
)

var (
	// ErrNoSpeech means the service answered but produced no usable
	// alternative. Distinct from transport failure so the caller can tell the
	// user to try again rather than to come back later.
	ErrNoSpeech = errors.New("no speech recognized")
	// ErrUnavailable means the speech service could not be reached or
	// returned an error status.
	ErrUnavailable = errors.New("speech service unavailable")
)

// Recognizer calls the Google Cloud Speech recognize endpoint.
type Recognizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRecognizer creates a recognizer. An empty endpoint selects the public
// Google API; tests point it at a local server.
func NewRecognizer(apiKey, endpoint string, timeout time.Duration) *Recognizer {
	if endpoint == "" {
		endpoint = defaultRecognizeEndpoint
	}
	return &Recognizer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
	Model           string `json:"model"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize transcribes one clip. The language hint is a regional locale code
// like "hi-IN". Segment best alternatives are joined with single spaces in
// segment order.
func (rc *Recognizer) Recognize(ctx context.Context, clip capture.Clip, languageCode string) (string, error) {
	reqBody := recognizeRequest{
		Config: recognizeConfig{
			Encoding:        audioEncoding,
			SampleRateHertz: sampleRateHertz,
			LanguageCode:    languageCode,
			Model:           recognizeModel,
		},
		Audio: recognizeAudio{
			Content: base64.StdEncoding.EncodeToString(clip.Bytes),
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal recognize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.endpoint+"?key="+rc.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, truncate(body, 200))
	}

	var result recognizeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	var parts []string
	for _, r := range result.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := r.Alternatives[0].Transcript; t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}

	return strings.Join(parts, " "), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
