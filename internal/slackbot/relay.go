package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hrbotdev/hrbot/internal/assistant"
)

// Answerer produces an answer for one question.
type Answerer interface {
	Answer(ctx context.Context, q assistant.Question) (string, error)
}

// Relay drives one Slack event end to end: filter, deduplicate, gather
// context from the workspace, ask the assistant, and post the reply.
type Relay struct {
	workspace *Workspace
	dedup     *DedupStore
	answerer  Answerer
	logger    *slog.Logger
}

// NewRelay wires a Relay.
func NewRelay(workspace *Workspace, dedup *DedupStore, answerer Answerer, logger *slog.Logger) *Relay {
	return &Relay{
		workspace: workspace,
		dedup:     dedup,
		answerer:  answerer,
		logger:    logger,
	}
}

// Outcome classifies what HandleEvent did with an event.
type Outcome int

const (
	// OutcomeIgnored means the event is not one the bot responds to.
	OutcomeIgnored Outcome = iota
	// OutcomeDuplicate means a retried delivery was acknowledged without
	// reprocessing.
	OutcomeDuplicate
	// OutcomeReplied means the assistant's answer was posted.
	OutcomeReplied
)

// HandleEvent processes one event callback. Filtered and duplicate
// events are reported without side effects; Slack retries are expected
// and must stay cheap.
func (r *Relay) HandleEvent(ctx context.Context, ev Event) (Outcome, error) {
	if !ev.ShouldHandle() {
		r.logger.Debug("ignoring slack event", "type", ev.Type, "channel_type", ev.ChannelType)
		return OutcomeIgnored, nil
	}

	seen, err := r.dedup.Seen(ctx, ev.Type, ev.EventTS, ev.User)
	if err != nil {
		return OutcomeIgnored, err
	}
	if seen {
		r.logger.Debug("skipping duplicate slack event", "type", ev.Type, "ts", ev.EventTS)
		return OutcomeDuplicate, nil
	}

	userID := ev.User
	if userID == "" && ev.ChannelType == "im" {
		userID, err = r.workspace.DMPeer(ctx, ev.Channel)
		if err != nil {
			return OutcomeIgnored, fmt.Errorf("resolve dm sender: %w", err)
		}
	}

	name, email, err := r.workspace.UserProfile(ctx, userID)
	if err != nil {
		return OutcomeIgnored, err
	}

	text := ev.Text
	if ev.Type == "app_mention" {
		text = StripBotMention(text)
	}
	text = r.workspace.ExpandMentions(ctx, text)

	answer, err := r.answerer.Answer(ctx, assistant.Question{
		UserName:    name,
		UserEmail:   email,
		ChannelType: ev.ChannelType,
		History:     r.workspace.History(ctx, ev.Channel),
		Text:        text,
	})
	if err != nil {
		return OutcomeIgnored, err
	}

	threadTS := ""
	if ev.Type == "app_mention" {
		threadTS = ev.ThreadTS()
	}
	if err := r.workspace.Post(ctx, ev.Channel, threadTS, answer); err != nil {
		return OutcomeIgnored, err
	}
	return OutcomeReplied, nil
}
