package api

import (
	"log/slog"
	"net/http"

	"github.com/hrbotdev/hrbot/internal/assistant"
	"github.com/hrbotdev/hrbot/internal/slackbot"
)

// MCPHandler exposes the assistant as tool endpoints with a stable
// message envelope, for callers that drive the bot outside the Slack
// Events API.
type MCPHandler struct {
	workspace *slackbot.Workspace
	answerer  slackbot.Answerer
	logger    *slog.Logger
}

// NewMCPHandler creates an MCPHandler.
func NewMCPHandler(workspace *slackbot.Workspace, answerer slackbot.Answerer, logger *slog.Logger) *MCPHandler {
	return &MCPHandler{
		workspace: workspace,
		answerer:  answerer,
		logger:    logger,
	}
}

type mcpRequest struct {
	Message string     `json:"message"`
	Context mcpContext `json:"context"`
}

type mcpContext struct {
	Channel   string   `json:"channel"`
	User      string   `json:"user"`
	History   []string `json:"history"`
	EventType string   `json:"event_type"`
	EventTS   string   `json:"event_ts"`
	ThreadTS  string   `json:"thread_ts"`
}

type mcpResponse struct {
	Type    string     `json:"type"`
	Content mcpContent `json:"content"`
	Status  string     `json:"status"`
}

type mcpContent struct {
	Message string `json:"message"`
}

// OnTaggedInChannel handles POST /api/v1/mcp/on_tagged_in_channel.
func (h *MCPHandler) OnTaggedInChannel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "channel")
}

// OnDMPersonally handles POST /api/v1/mcp/on_dm_personally.
func (h *MCPHandler) OnDMPersonally(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "im")
}

// Health handles GET /api/v1/mcp/health.
func (h *MCPHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *MCPHandler) respond(w http.ResponseWriter, r *http.Request, channelType string) {
	var req mcpRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteValidationError(w, err.Error())
		return
	}
	if req.Context.User == "" || req.Context.Channel == "" {
		WriteValidationError(w, "context.user and context.channel are required")
		return
	}

	name, email, err := h.workspace.UserProfile(r.Context(), req.Context.User)
	if err != nil {
		h.logger.Error("mcp user lookup failed", "user", req.Context.User, "error", err)
		WriteInternalError(w, "could not resolve user")
		return
	}

	text := slackbot.StripBotMention(req.Message)
	answer, err := h.answerer.Answer(r.Context(), assistant.Question{
		UserName:    name,
		UserEmail:   email,
		ChannelType: channelType,
		History:     req.Context.History,
		Text:        text,
	})
	if err != nil {
		h.logger.Error("mcp answer failed", "error", err)
		WriteInternalError(w, "could not answer")
		return
	}

	threadTS := ""
	if channelType == "channel" {
		threadTS = req.Context.ThreadTS
		if threadTS == "" {
			threadTS = req.Context.EventTS
		}
	}
	if err := h.workspace.Post(r.Context(), req.Context.Channel, threadTS, answer); err != nil {
		h.logger.Error("mcp post failed", "channel", req.Context.Channel, "error", err)
		WriteInternalError(w, "could not post reply")
		return
	}

	WriteJSON(w, http.StatusOK, mcpResponse{
		Type:    "message",
		Content: mcpContent{Message: answer},
		Status:  "ok",
	})
}
