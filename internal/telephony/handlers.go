package telephony

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dialer-platform/internal/calls"
	"dialer-platform/internal/conference"
	"dialer-platform/internal/routing"
	"dialer-platform/pkg/logger"
)

// emptyDirective acknowledges a malformed voice request without giving the
// provider anything to execute; it hangs up on its own.
const emptyDirective = "<Response></Response>"

// WebhookHandlers terminates provider callbacks. Every handler answers 200:
// a non-2xx makes the provider retry, and retries of a malformed payload
// never succeed. Failures are logged instead.
type WebhookHandlers struct {
	Machine  *calls.StateMachine
	Resolver routing.Resolver
	Builder  DirectiveBuilder
	Bridges  *conference.Manager
}

// HandleVoice answers a voice-control request with the next directive for
// the call.
func (h *WebhookHandlers) HandleVoice(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("malformed voice request", "err", err)
		c.Data(http.StatusOK, "application/xml", []byte(emptyDirective))
		return
	}
	req, err := ParseVoiceRequest(c.Request.PostForm, c.Request.URL.Query())
	if err != nil {
		log.Warn("malformed voice request", "err", err)
		c.Data(http.StatusOK, "application/xml", []byte(emptyDirective))
		return
	}

	intent := h.Resolver.Resolve(routing.Request{
		To:         req.To,
		From:       req.From,
		JoinBridge: req.JoinBridge,
		BridgeID:   req.BridgeID,
	})

	var d Directive
	switch intent.Action {
	case routing.ActionJoinConference:
		bridge, err := h.Bridges.Join(c.Request.Context(), conference.JoinRequest{
			BridgeID:         intent.Target,
			CallID:           req.CallID,
			RecordingEnabled: req.RecordBridge,
		})
		if err != nil {
			log.Warn("conference join failed", "call_id", req.CallID, "bridge_id", intent.Target, "err", err)
			c.Data(http.StatusOK, "application/xml", []byte(emptyDirective))
			return
		}
		if _, err := h.Machine.SetConference(c.Request.Context(), req.CallID, bridge.BridgeID); err != nil {
			log.Warn("bridge back-reference update failed", "call_id", req.CallID, "err", err)
		}
		d = h.Builder.JoinConference(bridge.BridgeID, bridge.RecordingEnabled)
	case routing.ActionDialClient:
		d = h.Builder.DialClient(intent.Target)
	case routing.ActionForwardDefault:
		d = h.Builder.GreetAndForward()
	default:
		d = h.Builder.DialNumber(intent.Target)
	}

	body, err := Render(d)
	if err != nil {
		log.Error("directive render failed", "call_id", req.CallID, "err", err)
		c.Data(http.StatusOK, "application/xml", []byte(emptyDirective))
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(body))
}

// HandleStatus folds a status callback into the session store.
func (h *WebhookHandlers) HandleStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("malformed status callback", "err", err)
		ackJSON(c)
		return
	}
	ev, err := ParseStatusCallback(c.Request.PostForm, c.Query("campaign_id"))
	if err != nil {
		log.Warn("malformed status callback", "err", err)
		ackJSON(c)
		return
	}
	if _, err := h.Machine.ApplyStatus(c.Request.Context(), ev); err != nil {
		log.Error("status event apply failed", "call_id", ev.CallID, "err", err)
	}
	ackJSON(c)
}

// HandleRecording attaches recording metadata to the session.
func (h *WebhookHandlers) HandleRecording(c *gin.Context) {
	log := logger.FromGin(c)

	if err := c.Request.ParseForm(); err != nil {
		log.Warn("malformed recording callback", "err", err)
		ackJSON(c)
		return
	}
	ev, err := ParseRecordingCallback(c.Request.PostForm)
	if err != nil {
		log.Warn("malformed recording callback", "err", err)
		ackJSON(c)
		return
	}
	if _, err := h.Machine.AttachRecording(c.Request.Context(), ev); err != nil {
		log.Error("recording attach failed", "call_id", ev.CallID, "err", err)
	}
	ackJSON(c)
}

func ackJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
