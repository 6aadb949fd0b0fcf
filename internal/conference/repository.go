package conference

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PostgresRepo persists bridges so conferences survive a process restart.
//
// Assumed table:
//   conference_bridges (bridge_id PK, participant_call_ids JSONB,
//   recording_enabled, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Get(ctx context.Context, bridgeID string) (Bridge, error) {
	const q = `
SELECT bridge_id, participant_call_ids, recording_enabled, created_at
FROM conference_bridges
WHERE bridge_id = $1
`
	var b Bridge
	var participants []byte
	err := r.db.QueryRowContext(ctx, q, bridgeID).Scan(
		&b.BridgeID,
		&participants,
		&b.RecordingEnabled,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bridge{}, ErrNotFound
		}
		return Bridge{}, err
	}

	var ids []string
	if len(participants) > 0 {
		if err := json.Unmarshal(participants, &ids); err != nil {
			return Bridge{}, err
		}
	}
	b.ParticipantCallIDs = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		b.ParticipantCallIDs[id] = struct{}{}
	}
	return b, nil
}

func (r *PostgresRepo) Save(ctx context.Context, b Bridge) error {
	const q = `
INSERT INTO conference_bridges (bridge_id, participant_call_ids, recording_enabled, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (bridge_id)
DO UPDATE SET participant_call_ids = EXCLUDED.participant_call_ids
`
	ids := make([]string, 0, len(b.ParticipantCallIDs))
	for id := range b.ParticipantCallIDs {
		ids = append(ids, id)
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, b.BridgeID, payload, b.RecordingEnabled, b.CreatedAt)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, bridgeID string) error {
	const q = `DELETE FROM conference_bridges WHERE bridge_id = $1`
	_, err := r.db.ExecContext(ctx, q, bridgeID)
	return err
}
