package slackbot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/slack-go/slack"
)

// API is the subset of the Slack Web API the bot uses.
type API interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetUsersInConversationContext(ctx context.Context, params *slack.GetUsersInConversationParameters) ([]string, string, error)
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ API = (*slack.Client)(nil)

var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(\|[^>]+)?>`)

// historyLimit caps how many recent human messages feed the assistant.
const historyLimit = 10

// Workspace wraps the Slack Web API with the lookups the bot needs.
type Workspace struct {
	api    API
	logger *slog.Logger
}

// NewWorkspace creates a Workspace over the given API client.
func NewWorkspace(api API, logger *slog.Logger) *Workspace {
	return &Workspace{api: api, logger: logger}
}

// Post sends text to a channel, threading on threadTS when set.
func (w *Workspace) Post(ctx context.Context, channelID, threadTS, text string) error {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	_, _, err := w.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// UserProfile resolves a Slack user id to a display name and email.
// Name falls back through display name, profile real name, user real
// name, and finally the handle.
func (w *Workspace) UserProfile(ctx context.Context, userID string) (name, email string, err error) {
	user, err := w.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("get user %s: %w", userID, err)
	}

	name = user.Profile.DisplayName
	if name == "" {
		name = user.Profile.RealName
	}
	if name == "" {
		name = user.RealName
	}
	if name == "" {
		name = user.Name
	}
	return name, user.Profile.Email, nil
}

// ExpandMentions replaces <@U123> and <@U123|handle> references in text
// with @DisplayName. Unresolvable users keep their raw id.
func (w *Workspace) ExpandMentions(ctx context.Context, text string) string {
	return mentionPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := mentionPattern.FindStringSubmatch(match)
		userID := groups[1]
		name, _, err := w.UserProfile(ctx, userID)
		if err != nil || name == "" {
			w.logger.Debug("mention lookup failed", "user", userID)
			return "@" + userID
		}
		return "@" + name
	})
}

// History returns up to historyLimit recent human messages in the
// channel, oldest first, rendered as "Name: text". Bot messages are
// excluded. History failures degrade to an empty transcript.
func (w *Workspace) History(ctx context.Context, channelID string) []string {
	resp, err := w.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     historyLimit * 2,
	})
	if err != nil {
		w.logger.Warn("channel history unavailable", "channel", channelID, "error", err)
		return nil
	}

	// Slack returns newest first.
	var lines []string
	for _, msg := range resp.Messages {
		if msg.BotID != "" || msg.User == "" || msg.Text == "" {
			continue
		}
		name, _, err := w.UserProfile(ctx, msg.User)
		if err != nil || name == "" {
			name = msg.User
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, w.ExpandMentions(ctx, msg.Text)))
		if len(lines) == historyLimit {
			break
		}
	}

	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return lines
}

// DMPeer returns the non-bot member of a direct message channel.
func (w *Workspace) DMPeer(ctx context.Context, channelID string) (string, error) {
	auth, err := w.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth test: %w", err)
	}

	members, _, err := w.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
		ChannelID: channelID,
		Limit:     10,
	})
	if err != nil {
		return "", fmt.Errorf("conversation members: %w", err)
	}

	for _, member := range members {
		if member != auth.UserID {
			return member, nil
		}
	}
	return "", fmt.Errorf("no peer found in channel %s", channelID)
}

var leadingMentionPattern = regexp.MustCompile(`^\s*<@([A-Z0-9]+)(\|[^>]+)?>\s*`)

// StripBotMention removes the leading bot mention from app_mention text.
func StripBotMention(text string) string {
	return strings.TrimSpace(leadingMentionPattern.ReplaceAllString(text, ""))
}
