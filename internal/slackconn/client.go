// Package slackconn adapts the Slack Web API to the narrow conversations
// capability the reconciler consumes. All pagination happens here; callers
// see complete listings. "Not found" conditions surface as explicit
// results, never as errors the caller has to string-match.
package slackconn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/slack-go/slack"

	"github.com/goatkit/followup/internal/ticket"
)

// ErrChannelNotFound is returned when a channel name cannot be resolved
// after the full paginated channel listing is exhausted.
var ErrChannelNotFound = errors.New("slackconn: channel not found")

const pageLimit = 200

// Message is a channel message as the reconciler sees it.
type Message struct {
	TS      string
	Text    string
	Subtype string
}

// slackAPI is the slice of the slack-go client the adapter uses; narrowed
// so tests can stand in a fake transport.
type slackAPI interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	GetReactionsContext(ctx context.Context, item slack.ItemRef, params slack.GetReactionsParameters) ([]slack.ItemReaction, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	DeleteMessageContext(ctx context.Context, channel, messageTimestamp string) (string, string, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
}

// Client wraps a Slack Web API client.
type Client struct {
	api slackAPI
}

// Option applies configuration to the client.
type Option func(*Client)

// WithAPI replaces the underlying Web API client; used by tests.
func WithAPI(api slackAPI) Option {
	return func(c *Client) {
		c.api = api
	}
}

// New builds a client from a bot token.
func New(token string, opts ...Option) *Client {
	c := &Client{api: slack.New(token)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveChannelID converts a channel name (with or without a leading "#")
// to its stable ID by walking the paginated channel listing.
func (c *Client) ResolveChannelID(ctx context.Context, name string) (string, error) {
	name = strings.TrimPrefix(name, "#")

	cursor := ""
	for {
		channels, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:  []string{"public_channel", "private_channel"},
			Cursor: cursor,
			Limit:  pageLimit,
		})
		if err != nil {
			return "", fmt.Errorf("list channels: %w", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if next == "" {
			return "", fmt.Errorf("%w: %q", ErrChannelNotFound, name)
		}
		cursor = next
	}
}

// ChannelHistory fetches the full message history of a channel, following
// pagination until exhausted.
func (c *Client) ChannelHistory(ctx context.Context, channelID string) ([]Message, error) {
	var all []Message

	cursor := ""
	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     pageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("channel history: %w", err)
		}
		for _, msg := range resp.Messages {
			all = append(all, Message{
				TS:      msg.Timestamp,
				Text:    msg.Text,
				Subtype: msg.SubType,
			})
		}
		if resp.ResponseMetaData.NextCursor == "" {
			return all, nil
		}
		cursor = resp.ResponseMetaData.NextCursor
	}
}

// MessageHasReaction reports whether the message carries the named
// reaction. A message with no reaction item at all is simply "no".
func (c *Client) MessageHasReaction(ctx context.Context, channelID, ts, reaction string) (bool, error) {
	item := slack.NewRefToMessage(channelID, ts)
	reactions, err := c.api.GetReactionsContext(ctx, item, slack.GetReactionsParameters{})
	if err != nil {
		if isMissingItemErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("get reactions: %w", err)
	}
	for _, r := range reactions {
		if r.Name == reaction {
			return true, nil
		}
	}
	return false, nil
}

// PostMessage posts to a channel and returns the new message timestamp.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	return ts, nil
}

// PostThreadReply posts under an existing message's thread.
func (c *Client) PostThreadReply(ctx context.Context, channelID, threadTS, text string) (string, error) {
	_, ts, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return "", fmt.Errorf("post thread reply: %w", err)
	}
	return ts, nil
}

// DeleteMessage removes a previously posted message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, ts string) error {
	if _, _, err := c.api.DeleteMessageContext(ctx, channelID, ts); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// AddReaction adds a named reaction to a message. Re-adding a reaction the
// bot already placed is a no-op, not an error.
func (c *Client) AddReaction(ctx context.Context, reaction, channelID, ts string) error {
	err := c.api.AddReactionContext(ctx, reaction, slack.NewRefToMessage(channelID, ts))
	if err != nil && !strings.Contains(err.Error(), "already_reacted") {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

// ThreadReplies fetches every reply under a thread root, oldest first. The
// root message itself is excluded.
func (c *Client) ThreadReplies(ctx context.Context, channelID, threadTS string) ([]ticket.Reply, error) {
	var msgs []slack.Message

	cursor := ""
	for {
		page, _, next, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Limit:     pageLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("thread replies: %w", err)
		}
		msgs = append(msgs, page...)
		if next == "" {
			break
		}
		cursor = next
	}

	return convertReplies(msgs, threadTS), nil
}

func convertReplies(msgs []slack.Message, threadTS string) []ticket.Reply {
	var replies []ticket.Reply
	for _, msg := range msgs {
		if msg.Timestamp == threadTS {
			continue
		}
		replies = append(replies, ticket.Reply{
			Timestamp: msg.Timestamp,
			UserID:    msg.User,
			BotID:     msg.BotID,
			Subtype:   msg.SubType,
			Text:      msg.Text,
		})
	}
	sort.Slice(replies, func(i, j int) bool {
		return replies[i].Timestamp < replies[j].Timestamp
	})
	return replies
}

// The reactions endpoint reports an error for messages that never received
// a reaction; both codes mean "nothing there", not a failure.
func isMissingItemErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "message_not_found") || strings.Contains(msg, "no_item_specified")
}
