package httpapi

import (
	"errors"
	"net/http"
	"time"

	"dialer-platform/internal/auth"
	"dialer-platform/internal/calls"
	"dialer-platform/internal/campaign"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/recording"
	"dialer-platform/internal/reporting"
	"dialer-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Campaigns  *campaign.Orchestrator
	Recordings *recording.Manager
	Reports    *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	AgentID     string `json:"agent_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.AgentID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "agent_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.AgentID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Campaigns ---

type createCampaignRequest struct {
	Name          string             `json:"name"`
	Mode          string             `json:"mode"`
	Contacts      []campaign.Contact `json:"contacts"`
	Goals         campaign.Goals     `json:"goals"`
	AgentID       string             `json:"agent_id"`
	OverdialRatio float64            `json:"overdial_ratio,omitempty"`
}

func (h Handlers) CreateCampaign(c *gin.Context) {
	var req createCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	agentID := req.AgentID
	if agentID == "" {
		agentID, _ = auth.AgentID(c.Request.Context())
	}
	out, err := h.Campaigns.Create(c.Request.Context(), campaign.CreateParams{
		Name:          req.Name,
		Mode:          campaign.Mode(req.Mode),
		Contacts:      req.Contacts,
		Goals:         req.Goals,
		AgentID:       agentID,
		OverdialRatio: req.OverdialRatio,
	})
	if err != nil {
		abortCampaignErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListCampaigns(c *gin.Context) {
	out, err := h.Campaigns.List(c.Request.Context())
	if err != nil {
		abortCampaignErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": out})
}

func (h Handlers) GetCampaign(c *gin.Context) {
	out, err := h.Campaigns.Get(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		abortCampaignErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// campaignAction wraps the lifecycle endpoints; each returns the campaign's
// current status and statistics snapshot.
func (h Handlers) campaignAction(c *gin.Context, fn func(ctx *gin.Context, id string) (campaign.DialCampaign, error)) {
	id := c.Param("campaign_id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "campaign_id required"})
		return
	}
	out, err := fn(c, id)
	if err != nil {
		abortCampaignErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) StartCampaign(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.Start(c.Request.Context(), id)
	})
}

func (h Handlers) PauseCampaign(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.Pause(c.Request.Context(), id)
	})
}

func (h Handlers) ResumeCampaign(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.Resume(c.Request.Context(), id)
	})
}

func (h Handlers) CompleteCampaign(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.Complete(c.Request.Context(), id)
	})
}

// ConfirmDial issues the previewed contact's dial on a preview campaign.
func (h Handlers) ConfirmDial(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.ConfirmDial(c.Request.Context(), id)
	})
}

func (h Handlers) RecordAppointment(c *gin.Context) {
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.RecordAppointment(c.Request.Context(), id)
	})
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (h Handlers) SetAgentAvailability(c *gin.Context) {
	var req availabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Available == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "available required"})
		return
	}
	h.campaignAction(c, func(c *gin.Context, id string) (campaign.DialCampaign, error) {
		return h.Campaigns.SetAgentAvailable(c.Request.Context(), id, *req.Available)
	})
}

func (h Handlers) ReplayCampaignStats(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	rep, err := h.Reports.Replay(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		abortCampaignErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// --- Calls ---

type voicemailDropRequest struct {
	Message string `json:"message"`
}

// DropVoicemail plays a message into a live call and ends it.
func (h Handlers) DropVoicemail(c *gin.Context) {
	if h.Recordings == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "recording not configured"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	var req voicemailDropRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	agentID, _ := auth.AgentID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Recordings.DropVoicemail(c.Request.Context(), callID, req.Message, agentID, role); err != nil {
		switch {
		case errors.Is(err, recording.ErrCallNotLive):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, recording.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			abortCampaignErr(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// abortCampaignErr maps service errors onto HTTP statuses. Provider
// rejections surface as 502 with the failed operation named, so an operator
// can retry the action deliberately.
func abortCampaignErr(c *gin.Context, err error) {
	var provErr *telephony.ProviderError
	switch {
	case errors.Is(err, campaign.ErrNotFound), errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, campaign.ErrIllegalTransition),
		errors.Is(err, campaign.ErrNotPreview),
		errors.Is(err, campaign.ErrNotActive),
		errors.Is(err, campaign.ErrDialInFlight),
		errors.Is(err, campaign.ErrQueueExhausted):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &provErr):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
