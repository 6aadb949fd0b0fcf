package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to the audit_events table.
//
// Assumed table:
//   audit_events (id PK, type, actor_agent_id, actor_role, campaign_id,
//   call_id, message, metadata, created_at)
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, actor_agent_id, actor_role, campaign_id, call_id, message, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.ActorAgentID, e.ActorRole,
		e.CampaignID, e.CallID, e.Message, e.Metadata, e.CreatedAt,
	)
	return err
}
