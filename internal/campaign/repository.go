package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"dialer-platform/pkg/utils"
)

// PostgresRepo persists campaigns and their outcome ledger.
//
// The per-campaign critical section required by Repository.Mutate uses a
// FOR UPDATE row lock. Outcome idempotence uses an append-only ledger keyed
// (campaign_id, call_id): MutateOutcome inserts the ledger row and the
// projection update in one transaction, so a duplicate terminal webhook
// hits the unique key and the statistics never double-count.
//
// Assumed tables:
//   dial_campaigns (campaign_id PK, name, mode, status, contact_queue JSONB,
//   cursor_position, goals JSONB, statistics JSONB, agent_id,
//   agent_available, overdial_ratio, created_at, updated_at)
//   campaign_outcomes (campaign_id, call_id, recorded_at,
//   PRIMARY KEY (campaign_id, call_id))
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const campaignColumns = `
campaign_id, name, mode, status, contact_queue, cursor_position, goals,
statistics, agent_id, agent_available, overdial_ratio, created_at, updated_at`

func (r *PostgresRepo) Create(ctx context.Context, c DialCampaign) error {
	const q = `
INSERT INTO dial_campaigns (
  campaign_id, name, mode, status, contact_queue, cursor_position, goals,
  statistics, agent_id, agent_available, overdial_ratio, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	queue, goals, stats, err := marshalCampaignDocs(c)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q,
		c.CampaignID, c.Name, string(c.Mode), string(c.Status),
		queue, c.Cursor, goals, stats,
		c.AgentID, c.AgentAvailable, c.OverdialRatio,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrAlreadyExists
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, campaignID string) (DialCampaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM dial_campaigns
WHERE campaign_id = $1
`
	return scanCampaign(r.db.QueryRowContext(ctx, q, campaignID))
}

func (r *PostgresRepo) List(ctx context.Context) ([]DialCampaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM dial_campaigns
ORDER BY created_at
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DialCampaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Mutate(ctx context.Context, campaignID string, fn func(c *DialCampaign) error) (DialCampaign, error) {
	var out DialCampaign
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		c, err := lockCampaign(ctx, tx, campaignID)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		if err := updateCampaign(ctx, tx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return DialCampaign{}, err
	}
	return out, nil
}

func (r *PostgresRepo) MutateOutcome(ctx context.Context, campaignID, callID string, fn func(c *DialCampaign) error) (DialCampaign, bool, error) {
	var (
		out     DialCampaign
		applied bool
	)
	err := utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		c, err := lockCampaign(ctx, tx, campaignID)
		if err != nil {
			return err
		}

		const ledger = `
INSERT INTO campaign_outcomes (campaign_id, call_id, recorded_at)
VALUES ($1, $2, now())
ON CONFLICT (campaign_id, call_id) DO NOTHING
`
		res, err := tx.ExecContext(ctx, ledger, campaignID, callID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Already settled; leave the projection untouched.
			out = c
			return nil
		}

		if err := fn(&c); err != nil {
			return err
		}
		if err := updateCampaign(ctx, tx, c); err != nil {
			return err
		}
		out = c
		applied = true
		return nil
	})
	if err != nil {
		return DialCampaign{}, false, err
	}
	return out, applied, nil
}

func lockCampaign(ctx context.Context, tx *sql.Tx, campaignID string) (DialCampaign, error) {
	const q = `
SELECT ` + campaignColumns + `
FROM dial_campaigns
WHERE campaign_id = $1
FOR UPDATE
`
	return scanCampaign(tx.QueryRowContext(ctx, q, campaignID))
}

func updateCampaign(ctx context.Context, tx *sql.Tx, c DialCampaign) error {
	const q = `
UPDATE dial_campaigns SET
  name = $2,
  mode = $3,
  status = $4,
  contact_queue = $5,
  cursor_position = $6,
  goals = $7,
  statistics = $8,
  agent_id = $9,
  agent_available = $10,
  overdial_ratio = $11,
  updated_at = $12
WHERE campaign_id = $1
`
	queue, goals, stats, err := marshalCampaignDocs(c)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, q,
		c.CampaignID, c.Name, string(c.Mode), string(c.Status),
		queue, c.Cursor, goals, stats,
		c.AgentID, c.AgentAvailable, c.OverdialRatio, c.UpdatedAt,
	)
	return err
}

func marshalCampaignDocs(c DialCampaign) (queue, goals, stats []byte, err error) {
	if queue, err = json.Marshal(c.ContactQueue); err != nil {
		return nil, nil, nil, err
	}
	if goals, err = json.Marshal(c.Goals); err != nil {
		return nil, nil, nil, err
	}
	if stats, err = json.Marshal(c.Statistics); err != nil {
		return nil, nil, nil, err
	}
	return queue, goals, stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (DialCampaign, error) {
	var (
		c            DialCampaign
		mode, status string
		queue        []byte
		goals        []byte
		stats        []byte
	)
	err := row.Scan(
		&c.CampaignID, &c.Name, &mode, &status,
		&queue, &c.Cursor, &goals, &stats,
		&c.AgentID, &c.AgentAvailable, &c.OverdialRatio,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DialCampaign{}, ErrNotFound
		}
		return DialCampaign{}, err
	}
	c.Mode = Mode(mode)
	c.Status = Status(status)
	if err := json.Unmarshal(queue, &c.ContactQueue); err != nil {
		return DialCampaign{}, err
	}
	if err := json.Unmarshal(goals, &c.Goals); err != nil {
		return DialCampaign{}, err
	}
	if err := json.Unmarshal(stats, &c.Statistics); err != nil {
		return DialCampaign{}, err
	}
	return c, nil
}
