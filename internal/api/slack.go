package api

import (
	"log/slog"
	"net/http"

	"github.com/hrbotdev/hrbot/internal/slackbot"
)

// SlackHandler receives Slack Events API callbacks.
type SlackHandler struct {
	relay  *slackbot.Relay
	logger *slog.Logger
}

// NewSlackHandler creates a SlackHandler.
func NewSlackHandler(relay *slackbot.Relay, logger *slog.Logger) *SlackHandler {
	return &SlackHandler{relay: relay, logger: logger}
}

type slackAck struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Events handles POST /api/v1/slack/events. Processing failures are
// still acknowledged with HTTP 200 so Slack does not retry events that
// will keep failing.
func (h *SlackHandler) Events(w http.ResponseWriter, r *http.Request) {
	var payload slackbot.EventPayload
	if err := DecodeJSON(w, r, &payload); err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	switch payload.Type {
	case slackbot.PayloadURLVerification:
		if payload.Challenge == "" {
			WriteValidationError(w, "url_verification without challenge")
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"challenge": payload.Challenge})
		return

	case slackbot.PayloadEventCallback:
		if !payload.Event.ShouldHandle() {
			WriteValidationError(w, "unsupported event type")
			return
		}

		outcome, err := h.relay.HandleEvent(r.Context(), payload.Event)
		if err != nil {
			h.logger.Error("slack event processing failed",
				"type", payload.Event.Type, "ts", payload.Event.EventTS, "error", err)
			WriteJSON(w, http.StatusOK, slackAck{Status: "error", Detail: err.Error()})
			return
		}
		if outcome == slackbot.OutcomeDuplicate {
			WriteJSON(w, http.StatusOK, slackAck{Status: "ok", Detail: "Duplicate event ignored"})
			return
		}
		WriteJSON(w, http.StatusOK, slackAck{Status: "ok"})
		return
	}

	WriteValidationError(w, "unsupported payload type")
}
