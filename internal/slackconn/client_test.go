package slackconn

import (
	"context"
	"errors"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	channelPages [][]slack.Channel
	historyPages []*slack.GetConversationHistoryResponse
	replyPages   [][]slack.Message
	reactions    []slack.ItemReaction
	reactionsErr error
	addErr       error

	posted  []string
	deleted []string
	added   []string
}

func (f *fakeAPI) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	page := 0
	if params.Cursor != "" {
		page = 1
	}
	if page >= len(f.channelPages) {
		return nil, "", nil
	}
	next := ""
	if page+1 < len(f.channelPages) {
		next = "cursor-1"
	}
	return f.channelPages[page], next, nil
}

func (f *fakeAPI) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	page := 0
	if params.Cursor != "" {
		page = 1
	}
	return f.historyPages[page], nil
}

func (f *fakeAPI) GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	page := 0
	if params.Cursor != "" {
		page = 1
	}
	next := ""
	if page+1 < len(f.replyPages) {
		next = "cursor-1"
	}
	return f.replyPages[page], next != "", next, nil
}

func (f *fakeAPI) GetReactionsContext(ctx context.Context, item slack.ItemRef, params slack.GetReactionsParameters) ([]slack.ItemReaction, error) {
	return f.reactions, f.reactionsErr
}

func (f *fakeAPI) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.posted = append(f.posted, channelID)
	return channelID, "111.222", nil
}

func (f *fakeAPI) DeleteMessageContext(ctx context.Context, channel, ts string) (string, string, error) {
	f.deleted = append(f.deleted, ts)
	return channel, ts, nil
}

func (f *fakeAPI) AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error {
	f.added = append(f.added, name)
	return f.addErr
}

func newTestClient(api *fakeAPI) *Client {
	return New("xoxb-test", WithAPI(api))
}

func channelNamed(id, name string) slack.Channel {
	ch := slack.Channel{}
	ch.ID = id
	ch.Name = name
	return ch
}

func TestResolveChannelIDPaginates(t *testing.T) {
	api := &fakeAPI{channelPages: [][]slack.Channel{
		{channelNamed("C1", "general")},
		{channelNamed("C2", "followups")},
	}}
	c := newTestClient(api)

	id, err := c.ResolveChannelID(context.Background(), "#followups")
	require.NoError(t, err)
	require.Equal(t, "C2", id)
}

func TestResolveChannelIDNotFound(t *testing.T) {
	api := &fakeAPI{channelPages: [][]slack.Channel{{channelNamed("C1", "general")}}}
	c := newTestClient(api)

	_, err := c.ResolveChannelID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrChannelNotFound)
}

func TestChannelHistoryPaginates(t *testing.T) {
	page1 := &slack.GetConversationHistoryResponse{}
	page1.Messages = []slack.Message{msgWith("2.0", "newer", "")}
	page1.ResponseMetaData.NextCursor = "cursor-1"
	page2 := &slack.GetConversationHistoryResponse{}
	page2.Messages = []slack.Message{msgWith("1.0", "older", "channel_join")}

	c := newTestClient(&fakeAPI{historyPages: []*slack.GetConversationHistoryResponse{page1, page2}})

	msgs, err := c.ChannelHistory(context.Background(), "C1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "2.0", msgs[0].TS)
	require.Equal(t, "channel_join", msgs[1].Subtype)
}

func TestMessageHasReaction(t *testing.T) {
	api := &fakeAPI{reactions: []slack.ItemReaction{{Name: "eyes"}, {Name: "white_check_mark"}}}
	c := newTestClient(api)

	ok, err := c.MessageHasReaction(context.Background(), "C1", "1.0", "white_check_mark")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.MessageHasReaction(context.Background(), "C1", "1.0", "rocket")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMessageHasReactionMissingItemIsFalse(t *testing.T) {
	api := &fakeAPI{reactionsErr: errors.New("message_not_found")}
	c := newTestClient(api)

	ok, err := c.MessageHasReaction(context.Background(), "C1", "1.0", "white_check_mark")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAddReactionAlreadyReactedIsNoOp(t *testing.T) {
	api := &fakeAPI{addErr: errors.New("already_reacted")}
	c := newTestClient(api)

	require.NoError(t, c.AddReaction(context.Background(), "eyes", "C1", "1.0"))
}

func TestThreadRepliesExcludesRootAndSorts(t *testing.T) {
	api := &fakeAPI{replyPages: [][]slack.Message{
		{msgFrom("1.0", "U0", ""), msgFrom("3.0", "U2", "")},
		{msgFrom("2.0", "U1", "bot_message")},
	}}
	c := newTestClient(api)

	replies, err := c.ThreadReplies(context.Background(), "C1", "1.0")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	require.Equal(t, "2.0", replies[0].Timestamp)
	require.Equal(t, "bot_message", replies[0].Subtype)
	require.Equal(t, "U2", replies[1].UserID)
}

func msgWith(ts, text, subtype string) slack.Message {
	m := slack.Message{}
	m.Timestamp = ts
	m.Text = text
	m.SubType = subtype
	return m
}

func msgFrom(ts, user, subtype string) slack.Message {
	m := msgWith(ts, "", subtype)
	m.User = user
	return m
}
