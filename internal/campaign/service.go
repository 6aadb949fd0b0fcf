package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dialer-platform/internal/audit"
	"dialer-platform/internal/auth"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/telephony"
	"dialer-platform/pkg/logger"
)

var (
	ErrInvalidArgument   = errors.New("campaign: invalid argument")
	ErrIllegalTransition = errors.New("campaign: illegal status transition")
	ErrNotPreview        = errors.New("campaign: confirm only applies to preview campaigns")
	ErrNotActive         = errors.New("campaign: not active")
	ErrQueueExhausted    = errors.New("campaign: contact queue exhausted")
	ErrDialInFlight      = errors.New("campaign: a dial is already in flight")
)

// Options carries the origination wiring shared by every campaign.
type Options struct {
	// CallerID is the outbound from-address.
	CallerID string

	// VoiceURL and StatusCallbackURL point the provider back at the webhook
	// handlers. The provider adapter tags them with the campaign id.
	VoiceURL          string
	StatusCallbackURL string

	// MaxOutstanding clamps predictive overdial per campaign.
	MaxOutstanding int

	// OriginateTimeout bounds one provider originate request.
	OriginateTimeout time.Duration
}

// Orchestrator drives campaign lifecycles and paces originations against
// agent availability. It feeds originated calls into the session state
// machine and listens for their terminal outcomes to advance the queue.
type Orchestrator struct {
	repo     Repository
	machine  *calls.StateMachine
	provider telephony.Provider
	sem      Semaphore
	auditor  *audit.Service
	opts     Options

	clock func() time.Time
	newID func() string
}

func NewOrchestrator(repo Repository, machine *calls.StateMachine, provider telephony.Provider, sem Semaphore, auditor *audit.Service, opts Options) *Orchestrator {
	if opts.MaxOutstanding <= 0 {
		opts.MaxOutstanding = 1
	}
	if opts.OriginateTimeout <= 0 {
		opts.OriginateTimeout = 10 * time.Second
	}
	return &Orchestrator{
		repo:     repo,
		machine:  machine,
		provider: provider,
		sem:      sem,
		auditor:  auditor,
		opts:     opts,
		clock:    time.Now,
		newID:    uuid.NewString,
	}
}

type CreateParams struct {
	Name          string
	Mode          Mode
	Contacts      []Contact
	Goals         Goals
	AgentID       string
	OverdialRatio float64
}

func (o *Orchestrator) Create(ctx context.Context, p CreateParams) (DialCampaign, error) {
	if strings.TrimSpace(p.Name) == "" {
		return DialCampaign{}, fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	if !p.Mode.Valid() {
		return DialCampaign{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, p.Mode)
	}
	if len(p.Contacts) == 0 {
		return DialCampaign{}, fmt.Errorf("%w: contact queue empty", ErrInvalidArgument)
	}
	if p.AgentID == "" {
		return DialCampaign{}, fmt.Errorf("%w: agent required", ErrInvalidArgument)
	}
	for i, c := range p.Contacts {
		if strings.TrimSpace(c.Number) == "" {
			return DialCampaign{}, fmt.Errorf("%w: contact %d has no number", ErrInvalidArgument, i)
		}
	}

	now := o.clock().UTC()
	c := DialCampaign{
		CampaignID:     o.newID(),
		Name:           p.Name,
		Mode:           p.Mode,
		Status:         StatusCreated,
		ContactQueue:   p.Contacts,
		Goals:          p.Goals,
		AgentID:        p.AgentID,
		AgentAvailable: true,
		OverdialRatio:  p.OverdialRatio,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := o.repo.Create(ctx, c); err != nil {
		return DialCampaign{}, err
	}
	o.logAction(ctx, c.CampaignID, "create")
	return c, nil
}

func (o *Orchestrator) Get(ctx context.Context, campaignID string) (DialCampaign, error) {
	return o.repo.Get(ctx, campaignID)
}

func (o *Orchestrator) List(ctx context.Context) ([]DialCampaign, error) {
	return o.repo.List(ctx)
}

// Start activates the campaign and begins dialing per the pacing mode.
// Already-active campaigns are returned unchanged.
func (o *Orchestrator) Start(ctx context.Context, campaignID string) (DialCampaign, error) {
	if _, err := o.transition(ctx, campaignID, StatusActive, "start"); err != nil {
		return DialCampaign{}, err
	}
	o.pump(ctx, campaignID)
	return o.repo.Get(ctx, campaignID)
}

func (o *Orchestrator) Pause(ctx context.Context, campaignID string) (DialCampaign, error) {
	return o.transition(ctx, campaignID, StatusPaused, "pause")
}

func (o *Orchestrator) Resume(ctx context.Context, campaignID string) (DialCampaign, error) {
	if _, err := o.transition(ctx, campaignID, StatusActive, "resume"); err != nil {
		return DialCampaign{}, err
	}
	o.pump(ctx, campaignID)
	return o.repo.Get(ctx, campaignID)
}

func (o *Orchestrator) Complete(ctx context.Context, campaignID string) (DialCampaign, error) {
	return o.transition(ctx, campaignID, StatusCompleted, "complete")
}

// transition moves the campaign to target. Requests for the state the
// campaign is already in return it unchanged; anything outside the status
// graph is rejected with the campaign untouched.
func (o *Orchestrator) transition(ctx context.Context, campaignID string, target Status, action string) (DialCampaign, error) {
	changed := false
	out, err := o.repo.Mutate(ctx, campaignID, func(c *DialCampaign) error {
		if c.Status == target {
			return nil
		}
		if !CanTransition(c.Status, target) {
			return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, c.Status, target)
		}
		c.Status = target
		c.UpdatedAt = o.clock().UTC()
		changed = true
		return nil
	})
	if err != nil {
		return DialCampaign{}, err
	}
	if changed {
		o.logAction(ctx, campaignID, action)
	}
	return out, nil
}

// SetAgentAvailable toggles the bound agent's availability. Marking the
// agent available nudges progressive and predictive campaigns forward.
func (o *Orchestrator) SetAgentAvailable(ctx context.Context, campaignID string, available bool) (DialCampaign, error) {
	if _, err := o.repo.Mutate(ctx, campaignID, func(c *DialCampaign) error {
		c.AgentAvailable = available
		c.UpdatedAt = o.clock().UTC()
		return nil
	}); err != nil {
		return DialCampaign{}, err
	}
	if available {
		o.pump(ctx, campaignID)
	}
	return o.repo.Get(ctx, campaignID)
}

// ConfirmDial issues the previewed contact's dial. Preview campaigns never
// advance without it.
func (o *Orchestrator) ConfirmDial(ctx context.Context, campaignID string) (DialCampaign, error) {
	c, err := o.repo.Get(ctx, campaignID)
	if err != nil {
		return DialCampaign{}, err
	}
	if c.Mode != ModePreview {
		return DialCampaign{}, ErrNotPreview
	}
	if c.Status != StatusActive {
		return DialCampaign{}, fmt.Errorf("%w: status %s", ErrNotActive, c.Status)
	}

	ok, err := o.sem.Acquire(ctx, campaignID, 1)
	if err != nil {
		return DialCampaign{}, err
	}
	if !ok {
		return DialCampaign{}, ErrDialInFlight
	}

	if err := o.dialNext(ctx, campaignID); err != nil {
		return DialCampaign{}, err
	}
	return o.repo.Get(ctx, campaignID)
}

// RecordAppointment marks one appointment booked from this campaign's calls
// and recomputes the conversion rate.
func (o *Orchestrator) RecordAppointment(ctx context.Context, campaignID string) (DialCampaign, error) {
	return o.repo.Mutate(ctx, campaignID, func(c *DialCampaign) error {
		c.Statistics.Appointments++
		recomputeConversion(&c.Statistics)
		c.UpdatedAt = o.clock().UTC()
		return nil
	})
}

// OnCallOutcome implements calls.OutcomeListener. It settles one outstanding
// slot, folds the outcome into the statistics exactly once per
// (campaign, call), and advances the queue per the pacing mode.
func (o *Orchestrator) OnCallOutcome(ctx context.Context, s calls.CallSession) {
	if s.CampaignID == "" {
		return
	}
	log := logger.From(ctx)

	if err := o.sem.Release(ctx, s.CampaignID); err != nil {
		log.Warn("semaphore release failed", "campaign_id", s.CampaignID, "err", err)
	}

	out, applied, err := o.repo.MutateOutcome(ctx, s.CampaignID, s.CallID, func(c *DialCampaign) error {
		applyOutcome(c, s)
		c.UpdatedAt = o.clock().UTC()
		return nil
	})
	if err != nil {
		log.Error("outcome apply failed", "campaign_id", s.CampaignID, "call_id", s.CallID, "err", err)
		return
	}
	if !applied {
		log.Debug("duplicate outcome ignored", "campaign_id", s.CampaignID, "call_id", s.CallID)
		return
	}

	if out.Status == StatusActive && autoAdvance(out) {
		o.pump(ctx, s.CampaignID)
	}
}

// applyOutcome folds one settled session into the campaign and fires
// auto-completion once the queue is drained and nothing is outstanding.
func applyOutcome(c *DialCampaign, s calls.CallSession) {
	FoldOutcome(&c.Statistics, s)

	if c.Status == StatusActive && c.QueueExhausted() && c.Outstanding() == 0 {
		c.Status = StatusCompleted
	}
}

// FoldOutcome classifies one settled session into the statistics buckets.
// A completed call that had a voicemail dropped counts as a voicemail, not a
// connect. Reporting replays the same fold over stored sessions to audit
// the incremental statistics.
func FoldOutcome(st *Statistics, s calls.CallSession) {
	st.TotalDialed++

	switch {
	case s.State == calls.StateCompleted && s.VoicemailDropped:
		st.Voicemails++
	case s.State == calls.StateCompleted:
		st.Connected++
		if s.DurationSeconds != nil {
			d := float64(*s.DurationSeconds)
			st.AvgCallDurationSeconds += (d - st.AvgCallDurationSeconds) / float64(st.Connected)
		}
	case s.State == calls.StateNoAnswer:
		st.NoAnswer++
	default:
		st.Failed++
	}
	recomputeConversion(st)
}

func recomputeConversion(st *Statistics) {
	if st.TotalDialed == 0 {
		st.ConversionRate = 0
		return
	}
	st.ConversionRate = float64(st.Appointments) / float64(st.TotalDialed)
}

// pump originates calls until the pacing limit, the queue, or the campaign
// status says stop. Each iteration claims one queue position atomically.
func (o *Orchestrator) pump(ctx context.Context, campaignID string) {
	log := logger.From(ctx)
	for {
		c, err := o.repo.Get(ctx, campaignID)
		if err != nil {
			log.Error("campaign load failed", "campaign_id", campaignID, "err", err)
			return
		}
		if c.Status != StatusActive || !autoAdvance(c) || c.QueueExhausted() {
			return
		}

		ok, err := o.sem.Acquire(ctx, campaignID, outstandingLimit(c, o.opts.MaxOutstanding))
		if err != nil {
			log.Error("semaphore acquire failed", "campaign_id", campaignID, "err", err)
			return
		}
		if !ok {
			return
		}

		if err := o.dialNext(ctx, campaignID); err != nil {
			if errors.Is(err, ErrQueueExhausted) || errors.Is(err, ErrNotActive) {
				return
			}
			// Origination failure already settled as a failed outcome; keep
			// draining the queue.
			log.Warn("origination failed", "campaign_id", campaignID, "err", err)
		}
	}
}

// dialNext atomically claims the contact at the cursor, then originates the
// call. The claim and the cursor advance happen in one critical section so
// racing outcome events cannot double-dial a position. The caller must hold
// one semaphore slot; dialNext gives it back on every path that does not
// leave a call outstanding.
func (o *Orchestrator) dialNext(ctx context.Context, campaignID string) error {
	var (
		contact  Contact
		position int
	)
	_, err := o.repo.Mutate(ctx, campaignID, func(c *DialCampaign) error {
		if c.Status != StatusActive {
			return fmt.Errorf("%w: status %s", ErrNotActive, c.Status)
		}
		if c.QueueExhausted() {
			return ErrQueueExhausted
		}
		position = c.Cursor
		contact = c.ContactQueue[c.Cursor]
		c.Cursor++
		c.UpdatedAt = o.clock().UTC()
		return nil
	})
	if err != nil {
		if relErr := o.sem.Release(ctx, campaignID); relErr != nil {
			logger.From(ctx).Warn("semaphore release failed", "campaign_id", campaignID, "err", relErr)
		}
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.opts.OriginateTimeout)
	defer cancel()
	res, oerr := o.provider.OriginateCall(callCtx, telephony.OriginateRequest{
		To:                contact.Number,
		From:              o.opts.CallerID,
		VoiceURL:          o.opts.VoiceURL,
		StatusCallbackURL: o.opts.StatusCallbackURL,
		CampaignID:        campaignID,
		Record:            true,
	})
	if oerr != nil {
		o.settleFailedOrigination(ctx, campaignID, position)
		return fmt.Errorf("campaign: originate contact %d: %w", position, oerr)
	}

	if _, err := o.machine.CreateOutbound(ctx, res.CallID, campaignID, o.opts.CallerID, contact.Number); err != nil {
		logger.From(ctx).Error("session create failed", "campaign_id", campaignID, "call_id", res.CallID, "err", err)
	}
	return nil
}

// settleFailedOrigination counts a rejected originate as a failed outcome so
// the queue does not stall on a bad contact. The ledger key is the queue
// position; a position is claimed exactly once.
func (o *Orchestrator) settleFailedOrigination(ctx context.Context, campaignID string, position int) {
	log := logger.From(ctx)
	if err := o.sem.Release(ctx, campaignID); err != nil {
		log.Warn("semaphore release failed", "campaign_id", campaignID, "err", err)
	}

	key := fmt.Sprintf("originate-failed:%d", position)
	_, _, err := o.repo.MutateOutcome(ctx, campaignID, key, func(c *DialCampaign) error {
		st := &c.Statistics
		st.TotalDialed++
		st.Failed++
		recomputeConversion(st)
		if c.Status == StatusActive && c.QueueExhausted() && c.Outstanding() == 0 {
			c.Status = StatusCompleted
		}
		c.UpdatedAt = o.clock().UTC()
		return nil
	})
	if err != nil {
		log.Error("failed-origination settle failed", "campaign_id", campaignID, "err", err)
	}
}

func (o *Orchestrator) logAction(ctx context.Context, campaignID, action string) {
	if o.auditor == nil {
		return
	}
	actor, _ := auth.AgentID(ctx)
	role, _ := auth.Role(ctx)
	if err := o.auditor.LogCampaignAction(ctx, campaignID, actor, role, action, ""); err != nil {
		logger.From(ctx).Warn("campaign audit append failed", "campaign_id", campaignID, "err", err)
	}
}
