package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mauka-works/intake-engine/internal/flow"
)

// SeekerProfile is one archived jobseeker submission, flattened for matching.
type SeekerProfile struct {
	SessionID   string
	SubmittedAt time.Time
	Fields      map[string]string
}

// SaveSubmission archives a completed session. The answers are stored as a
// JSON array so question order survives.
func (db *DB) SaveSubmission(ctx context.Context, sessionID string, role flow.Role, language string, answers []flow.Answer) error {
	payload, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO submissions (session_id, role, ui_language, answers)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET answers = EXCLUDED.answers, ui_language = EXCLUDED.ui_language`,
		sessionID, string(role), language, payload)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	db.log.Debug().Str("session_id", sessionID).Str("role", string(role)).Msg("submission archived")
	return nil
}

// ListSeekerProfiles returns the most recent jobseeker submissions, newest
// first, as flattened field maps for the candidate matcher.
func (db *DB) ListSeekerProfiles(ctx context.Context, limit int) ([]SeekerProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT session_id, submitted_at, answers
		FROM submissions
		WHERE role = $1
		ORDER BY submitted_at DESC
		LIMIT $2`,
		string(flow.RoleJobSeeker), limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var profiles []SeekerProfile
	for rows.Next() {
		var (
			p       SeekerProfile
			payload []byte
		)
		if err := rows.Scan(&p.SessionID, &p.SubmittedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		var answers []flow.Answer
		if err := json.Unmarshal(payload, &answers); err != nil {
			db.log.Warn().Err(err).Str("session_id", p.SessionID).Msg("skipping submission with bad answers payload")
			continue
		}
		p.Fields = make(map[string]string, len(answers))
		for _, a := range answers {
			p.Fields[a.Key] = a.Value
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
