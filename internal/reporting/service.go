package reporting

import (
	"context"
	"math"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
)

// Service derives campaign statistics by replaying stored call sessions.
// The orchestrator maintains the same numbers incrementally for O(1) reads;
// the replay exists to audit them.
type Service struct {
	sessions  calls.Store
	campaigns campaign.Repository
}

func NewService(sessions calls.Store, campaigns campaign.Repository) *Service {
	return &Service{sessions: sessions, campaigns: campaigns}
}

// Report compares the incrementally maintained statistics with a replay over
// the campaign's settled sessions.
type Report struct {
	CampaignID  string              `json:"campaignId"`
	Incremental campaign.Statistics `json:"incremental"`
	Replayed    campaign.Statistics `json:"replayed"`
	Consistent  bool                `json:"consistent"`
}

// Replay folds every settled session for the campaign through the same
// outcome classification the orchestrator uses. Appointments are operator
// input, not session-derived; they are carried over from the stored
// campaign so the conversion rate stays comparable.
func (s *Service) Replay(ctx context.Context, campaignID string) (Report, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return Report{}, err
	}

	sessions, err := s.sessions.ListByCampaign(ctx, campaignID)
	if err != nil {
		return Report{}, err
	}

	var replayed campaign.Statistics
	replayed.Appointments = c.Statistics.Appointments
	for _, sess := range sessions {
		if !sess.State.Terminal() {
			continue
		}
		campaign.FoldOutcome(&replayed, sess)
	}

	return Report{
		CampaignID:  campaignID,
		Incremental: c.Statistics,
		Replayed:    replayed,
		Consistent:  consistent(c.Statistics, replayed),
	}, nil
}

// consistent ignores drift the replay cannot see: failed originations never
// produce a session, so the incremental failed bucket (and the totals built
// on it) may legitimately run ahead of the replay.
func consistent(inc, rep campaign.Statistics) bool {
	if inc.Connected != rep.Connected ||
		inc.Voicemails != rep.Voicemails ||
		inc.NoAnswer != rep.NoAnswer {
		return false
	}
	if inc.Failed < rep.Failed || inc.TotalDialed < rep.TotalDialed {
		return false
	}
	return math.Abs(inc.AvgCallDurationSeconds-rep.AvgCallDurationSeconds) < 1e-9
}
