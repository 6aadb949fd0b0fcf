package calls

import (
	"context"
	"database/sql"
	"errors"

	"dialer-platform/pkg/utils"
)

// PostgresStore persists call sessions in the call_sessions table.
//
// The per-call critical section required by Store.Mutate is implemented with
// a FOR UPDATE row lock, so concurrent webhook deliveries for one call
// serialize at the database while different calls proceed in parallel.
//
// Assumed table:
//   call_sessions (call_id PK, direction, from_address, to_address, state,
//   campaign_id, conference_id, voicemail_dropped, recording_id,
//   recording_url, recording_duration, recording_status, created_at,
//   last_event_at, completed_at, duration_seconds)
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

const sessionColumns = `
call_id, direction, from_address, to_address, state, campaign_id, conference_id,
voicemail_dropped, recording_id, recording_url, recording_duration, recording_status,
created_at, last_event_at, completed_at, duration_seconds`

func (st *PostgresStore) Get(ctx context.Context, callID string) (CallSession, error) {
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE call_id = $1
`
	return scanSession(st.db.QueryRowContext(ctx, q, callID))
}

func (st *PostgresStore) Mutate(ctx context.Context, callID string, fn func(s *CallSession, created bool) error) (CallSession, error) {
	if callID == "" {
		return CallSession{}, errors.New("calls: call_id required")
	}

	var out CallSession
	err := utils.WithTx(ctx, st.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE call_id = $1
FOR UPDATE
`
		s, err := scanSession(tx.QueryRowContext(ctx, q, callID))
		created := false
		if errors.Is(err, ErrNotFound) {
			s = CallSession{CallID: callID}
			created = true
		} else if err != nil {
			return err
		}

		if err := fn(&s, created); err != nil {
			return err
		}
		s.CallID = callID

		if err := upsertSession(ctx, tx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return CallSession{}, err
	}
	return out, nil
}

func (st *PostgresStore) ListByCampaign(ctx context.Context, campaignID string) ([]CallSession, error) {
	if campaignID == "" {
		return nil, errors.New("calls: campaign_id required")
	}
	const q = `
SELECT ` + sessionColumns + `
FROM call_sessions
WHERE campaign_id = $1
ORDER BY created_at
`
	rows, err := st.db.QueryContext(ctx, q, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func upsertSession(ctx context.Context, tx *sql.Tx, s CallSession) error {
	const q = `
INSERT INTO call_sessions (
  call_id, direction, from_address, to_address, state, campaign_id, conference_id,
  voicemail_dropped, recording_id, recording_url, recording_duration, recording_status,
  created_at, last_event_at, completed_at, duration_seconds
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)
ON CONFLICT (call_id) DO UPDATE SET
  state = EXCLUDED.state,
  campaign_id = EXCLUDED.campaign_id,
  conference_id = EXCLUDED.conference_id,
  voicemail_dropped = EXCLUDED.voicemail_dropped,
  recording_id = EXCLUDED.recording_id,
  recording_url = EXCLUDED.recording_url,
  recording_duration = EXCLUDED.recording_duration,
  recording_status = EXCLUDED.recording_status,
  last_event_at = EXCLUDED.last_event_at,
  completed_at = EXCLUDED.completed_at,
  duration_seconds = EXCLUDED.duration_seconds
`
	var recID, recURL, recStatus sql.NullString
	var recDur sql.NullInt64
	if s.Recording != nil {
		recID = sql.NullString{String: s.Recording.RecordingID, Valid: true}
		recURL = sql.NullString{String: s.Recording.URL, Valid: true}
		recStatus = sql.NullString{String: s.Recording.Status, Valid: true}
		recDur = sql.NullInt64{Int64: int64(s.Recording.DurationSeconds), Valid: true}
	}
	var completedAt sql.NullTime
	if s.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *s.CompletedAt, Valid: true}
	}
	var duration sql.NullInt64
	if s.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: int64(*s.DurationSeconds), Valid: true}
	}

	_, err := tx.ExecContext(ctx, q,
		s.CallID,
		string(s.Direction),
		s.From,
		s.To,
		string(s.State),
		s.CampaignID,
		s.ConferenceID,
		s.VoicemailDropped,
		recID,
		recURL,
		recDur,
		recStatus,
		s.CreatedAt,
		s.LastEventAt,
		completedAt,
		duration,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (CallSession, error) {
	var s CallSession
	var direction, state string
	var recID, recURL, recStatus sql.NullString
	var recDur sql.NullInt64
	var completedAt sql.NullTime
	var duration sql.NullInt64

	err := row.Scan(
		&s.CallID,
		&direction,
		&s.From,
		&s.To,
		&state,
		&s.CampaignID,
		&s.ConferenceID,
		&s.VoicemailDropped,
		&recID,
		&recURL,
		&recDur,
		&recStatus,
		&s.CreatedAt,
		&s.LastEventAt,
		&completedAt,
		&duration,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallSession{}, ErrNotFound
		}
		return CallSession{}, err
	}

	s.Direction = Direction(direction)
	s.State = CallState(state)
	if recID.Valid {
		s.Recording = &Recording{
			RecordingID:     recID.String,
			URL:             recURL.String,
			DurationSeconds: int(recDur.Int64),
			Status:          recStatus.String,
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		s.CompletedAt = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		s.DurationSeconds = &d
	}
	return s, nil
}
