package main

import (
	"dialer-platform/internal/auth"
	"dialer-platform/internal/httpapi"
	"dialer-platform/internal/rbac"
	"dialer-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, webhooks *telephony.WebhookHandlers, api httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by provider signature
	// validation in production.
	{
		r.POST("/webhooks/telephony/voice", webhooks.HandleVoice)
		r.POST("/webhooks/telephony/status", webhooks.HandleStatus)
		r.POST("/webhooks/telephony/recording", webhooks.HandleRecording)
	}

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", api.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", func(c *gin.Context) {
			aid, _ := auth.AgentID(c.Request.Context())
			wid, _ := auth.WorkspaceID(c.Request.Context())
			role, _ := auth.Role(c.Request.Context())
			c.JSON(200, gin.H{"agent_id": aid, "workspace_id": wid, "role": role})
		})

		// CAMPAIGN routes
		campaigns := v1.Group("/campaigns")
		campaigns.Use(rbac.RequireWorkspace())
		{
			manage := campaigns.Group("")
			manage.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleSupervisor, rbac.RoleSuperAdmin))
			{
				manage.POST("", api.CreateCampaign)
				manage.POST("/:campaign_id/complete", api.CompleteCampaign)
			}

			operate := campaigns.Group("")
			operate.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSupervisor, rbac.RoleSuperAdmin))
			{
				operate.GET("", api.ListCampaigns)
				operate.GET("/:campaign_id", api.GetCampaign)
				operate.POST("/:campaign_id/start", api.StartCampaign)
				operate.POST("/:campaign_id/pause", api.PauseCampaign)
				operate.POST("/:campaign_id/resume", api.ResumeCampaign)
				operate.POST("/:campaign_id/confirm-dial", api.ConfirmDial)
				operate.POST("/:campaign_id/appointments", api.RecordAppointment)
				operate.PUT("/:campaign_id/agent-availability", api.SetAgentAvailability)
				operate.GET("/:campaign_id/stats/replay", api.ReplayCampaignStats)
			}
		}

		// CALL routes
		callRoutes := v1.Group("/calls")
		callRoutes.Use(rbac.RequireWorkspace())
		callRoutes.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgent, rbac.RoleSupervisor, rbac.RoleSuperAdmin))
		{
			callRoutes.POST("/:call_id/voicemail-drop", api.DropVoicemail)
		}
	}
}
