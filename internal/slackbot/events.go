package slackbot

// EventPayload is the outer Slack Events API envelope.
type EventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	Event     Event  `json:"event"`
}

// Envelope types.
const (
	PayloadURLVerification = "url_verification"
	PayloadEventCallback   = "event_callback"
)

// Event is the inner Slack event.
type Event struct {
	Type        string `json:"type"`
	User        string `json:"user"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	EventTS     string `json:"event_ts"`
	TS          string `json:"ts"`
	BotID       string `json:"bot_id,omitempty"`
}

// ShouldHandle reports whether the bot responds to this event: direct
// mentions and direct messages from humans. Bot messages are ignored to
// avoid replying to ourselves.
func (e Event) ShouldHandle() bool {
	if e.BotID != "" {
		return false
	}
	switch e.Type {
	case "app_mention":
		return true
	case "message":
		return e.ChannelType == "im"
	}
	return false
}

// ThreadTS returns the timestamp replies should thread on.
func (e Event) ThreadTS() string {
	if e.TS != "" {
		return e.TS
	}
	return e.EventTS
}
