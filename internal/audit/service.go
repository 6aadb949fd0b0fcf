package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only and best-effort: callers log append failures and
// move on.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogCampaignAction records an operator request against a campaign.
func (s *Service) LogCampaignAction(ctx context.Context, campaignID, agentID, role, action, metadata string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeCampaignAction,
		ActorAgentID: agentID,
		ActorRole:    role,
		CampaignID:   campaignID,
		Message:      action,
		Metadata:     metadata,
	})
}

// LogVoicemailDrop records an agent-triggered voicemail drop on a live call.
func (s *Service) LogVoicemailDrop(ctx context.Context, callID, agentID, role string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeVoicemailDrop,
		ActorAgentID: agentID,
		ActorRole:    role,
		CallID:       callID,
		Message:      "voicemail dropped",
	})
}
