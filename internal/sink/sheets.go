// Package sink appends completed submissions to a Google Sheet, the primary
// record the placement team works from.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/flow"
)

// ErrPersistenceFailed wraps every append failure so callers can treat the
// sheet as a single degradable dependency.
var ErrPersistenceFailed = errors.New("spreadsheet append failed")

const defaultEndpoint = "https://sheets.googleapis.com/v4/spreadsheets"

// One tab per role; six columns cover the timestamp plus five answers.
var rangeForRole = map[flow.Role]string{
	flow.RoleJobSeeker: "JobSeekers!A:F",
	flow.RoleEmployer:  "Employers!A:F",
}

// Sheets appends one row per completed session via the Sheets values API.
type Sheets struct {
	spreadsheetID string
	token         string
	endpoint      string
	client        *http.Client
	log           zerolog.Logger
	now           func() time.Time
}

// New creates a Sheets sink. An empty endpoint selects the Google API.
func New(spreadsheetID, token, endpoint string, timeout time.Duration, log zerolog.Logger) *Sheets {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Sheets{
		spreadsheetID: spreadsheetID,
		token:         token,
		endpoint:      endpoint,
		client:        &http.Client{Timeout: timeout},
		log:           log.With().Str("component", "sheets_sink").Logger(),
		now:           time.Now,
	}
}

type appendRequest struct {
	Values [][]string `json:"values"`
}

// Append writes one row: ISO timestamp first, then the answers in question
// order. A missing value becomes a blank cell so the columns stay aligned.
func (s *Sheets) Append(ctx context.Context, role flow.Role, answers []flow.Answer) error {
	sheetRange, ok := rangeForRole[role]
	if !ok {
		return fmt.Errorf("%w: no sheet range for role %q", ErrPersistenceFailed, role)
	}

	row := make([]string, 0, len(answers)+1)
	row = append(row, s.now().UTC().Format(time.RFC3339))
	for _, a := range answers {
		row = append(row, a.Value)
	}

	body, err := json.Marshal(appendRequest{Values: [][]string{row}})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %v", ErrPersistenceFailed, err)
	}

	u := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED",
		s.endpoint, s.spreadsheetID, url.PathEscape(sheetRange))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrPersistenceFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrPersistenceFailed, resp.StatusCode, detail)
	}

	s.log.Info().
		Str("role", string(role)).
		Str("range", sheetRange).
		Int("columns", len(row)).
		Msg("row appended")
	return nil
}
