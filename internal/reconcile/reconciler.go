// Package reconcile drives the per-cycle ticket state machine. Each cycle
// re-derives every ticket's state (open, resolved, already alerted) from
// the channel's current messages and reactions, then issues the minimal
// set of side effects to converge local bookkeeping with remote state.
// Nothing survives a restart on purpose: remote truth is the database.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/goatkit/followup/internal/slackconn"
	"github.com/goatkit/followup/internal/ticket"
)

// Conversations is the slice of the messaging platform the reconciler
// consumes; *slackconn.Client satisfies it.
type Conversations interface {
	ResolveChannelID(ctx context.Context, name string) (string, error)
	ChannelHistory(ctx context.Context, channelID string) ([]slackconn.Message, error)
	MessageHasReaction(ctx context.Context, channelID, ts, reaction string) (bool, error)
	PostMessage(ctx context.Context, channelID, text string) (string, error)
	PostThreadReply(ctx context.Context, channelID, threadTS, text string) (string, error)
	DeleteMessage(ctx context.Context, channelID, ts string) error
	AddReaction(ctx context.Context, reaction, channelID, ts string) error
	ThreadReplies(ctx context.Context, channelID, threadTS string) ([]ticket.Reply, error)
}

// Settings is the fixed-at-startup configuration of a reconciler.
type Settings struct {
	MonitoredChannel string
	AlertsChannel    string
	// Interval is the pause between the end of one cycle and the start
	// of the next. Ignored when Schedule is set.
	Interval time.Duration
	// Schedule is an optional cron expression for wall-clock aligned
	// checks instead of the interval loop.
	Schedule       string
	CheckmarkEmoji string
	CheckedEmoji   string
}

// Stats summarizes one cycle's side effects.
type Stats struct {
	Scanned          int
	RemindersSent    int
	RemindersDeleted int
	NoticesPosted    int
	ActionErrors     int
}

// Reconciler owns the two bookkeeping maps and walks the monitored
// channel once per cycle. It is not safe for concurrent cycles; the run
// loop guarantees one at a time.
type Reconciler struct {
	conv     Conversations
	settings Settings
	logger   *log.Logger
	now      func() time.Time
	cron     *cron.Cron

	// reminders maps original message ts -> reminder message ts. An
	// entry exists iff a reminder was posted and not yet deleted.
	reminders map[string]string
	// resolved holds tickets whose end-of-ticket notice already went
	// out. Grows only, never shrinks.
	resolved map[string]struct{}
}

// New builds a reconciler around the given conversations capability.
func New(conv Conversations, settings Settings, opts ...Option) *Reconciler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler{
		conv:      conv,
		settings:  settings,
		logger:    o.Logger,
		now:       o.Clock,
		cron:      o.Cron,
		reminders: make(map[string]string),
		resolved:  make(map[string]struct{}),
	}
}

// System subtypes never enter the ticket state model.
var systemSubtypes = map[string]struct{}{
	"channel_join":    {},
	"channel_leave":   {},
	"channel_topic":   {},
	"channel_purpose": {},
}

func isSystemSubtype(subtype string) bool {
	_, ok := systemSubtypes[subtype]
	return ok
}

// RunCycle performs one full reconciliation pass. Individual action
// failures are logged and counted but only channel-level failures
// (resolution, history fetch) abort the cycle.
func (r *Reconciler) RunCycle(ctx context.Context) (Stats, error) {
	var stats Stats
	finish := globalCycleMetrics().recordCycle()
	defer func() { finish(stats) }()

	monitoredID, err := r.conv.ResolveChannelID(ctx, r.settings.MonitoredChannel)
	if err != nil {
		return stats, fmt.Errorf("resolve monitored channel %q: %w", r.settings.MonitoredChannel, err)
	}
	alertsID, err := r.conv.ResolveChannelID(ctx, r.settings.AlertsChannel)
	if err != nil {
		return stats, fmt.Errorf("resolve alerts channel %q: %w", r.settings.AlertsChannel, err)
	}

	messages, err := r.conv.ChannelHistory(ctx, monitoredID)
	if err != nil {
		return stats, fmt.Errorf("fetch channel history: %w", err)
	}
	r.logger.Printf("reconcile: scanning %d message(s) in %s", len(messages), r.settings.MonitoredChannel)

	for _, msg := range messages {
		if isSystemSubtype(msg.Subtype) {
			continue
		}
		stats.Scanned++

		hasCheckmark, err := r.conv.MessageHasReaction(ctx, monitoredID, msg.TS, r.settings.CheckmarkEmoji)
		if err != nil {
			r.logger.Printf("reconcile: failed to read reactions for %s: %v", msg.TS, err)
			stats.ActionErrors++
			continue
		}

		if hasCheckmark {
			r.finishResolved(ctx, monitoredID, alertsID, msg.TS, &stats)
			continue
		}
		if _, alerted := r.reminders[msg.TS]; alerted {
			continue
		}
		r.alert(ctx, monitoredID, alertsID, msg, &stats)
	}

	r.logger.Printf("reconcile: cycle done, %d reminder(s) sent, %d deleted, %d resolution notice(s)",
		stats.RemindersSent, stats.RemindersDeleted, stats.NoticesPosted)
	return stats, nil
}

// finishResolved converges a checkmarked ticket: the reminder, if still
// tracked, is deleted, and the one-time resolution notice is posted. Both
// legs are idempotent so re-observing a resolved ticket is a no-op.
func (r *Reconciler) finishResolved(ctx context.Context, monitoredID, alertsID, ts string, stats *Stats) {
	if reminderTS, tracked := r.reminders[ts]; tracked {
		if err := r.conv.DeleteMessage(ctx, alertsID, reminderTS); err != nil {
			// Entry stays; the delete is retried next cycle as long
			// as the checkmark holds.
			r.logger.Printf("reconcile: failed to delete reminder %s for ticket %s: %v", reminderTS, ts, err)
			stats.ActionErrors++
		} else {
			delete(r.reminders, ts)
			stats.RemindersDeleted++
			r.logger.Printf("reconcile: deleted reminder for resolved ticket %s", ts)
		}
	}

	if _, noticed := r.resolved[ts]; !noticed {
		notice := ticket.FormatResolvedNotice(r.now())
		if _, err := r.conv.PostThreadReply(ctx, monitoredID, ts, notice); err != nil {
			r.logger.Printf("reconcile: failed to post resolution notice for ticket %s: %v", ts, err)
			stats.ActionErrors++
		} else {
			r.resolved[ts] = struct{}{}
			stats.NoticesPosted++
		}
	}
}

// alert handles a newly unresolved ticket: reminder to the alerts channel,
// nudge into the ticket thread, checked reaction on the original. The
// later steps still run when an earlier one fails, except that without a
// posted reminder there is nothing to cross-reference and the ticket is
// retried wholesale next cycle.
func (r *Reconciler) alert(ctx context.Context, monitoredID, alertsID string, msg slackconn.Message, stats *Stats) {
	now := r.now()
	r.logger.Printf("reconcile: unresolved ticket %s: %s", msg.TS, truncate(msg.Text, 50))

	fields := ticket.ExtractFields(msg.Text)
	link := ticket.Permalink(monitoredID, msg.TS)
	openedAt, _ := ticket.ParseTimestamp(msg.TS)

	reminderTS, err := r.conv.PostMessage(ctx, alertsID, ticket.FormatReminder(fields, link, openedAt, now))
	if err != nil {
		r.logger.Printf("reconcile: failed to post reminder for ticket %s: %v", msg.TS, err)
		stats.ActionErrors++
		return
	}
	r.reminders[msg.TS] = reminderTS
	stats.RemindersSent++

	replies, err := r.conv.ThreadReplies(ctx, monitoredID, msg.TS)
	if err != nil {
		r.logger.Printf("reconcile: failed to fetch replies for ticket %s: %v", msg.TS, err)
		stats.ActionErrors++
		// Addressee resolution degrades to the no-replies rule.
	}
	addr := ticket.ResolveAddressee(msg.Text, replies)
	if _, err := r.conv.PostThreadReply(ctx, monitoredID, msg.TS, ticket.FormatThreadNudge(addr, now)); err != nil {
		r.logger.Printf("reconcile: failed to post thread nudge for ticket %s: %v", msg.TS, err)
		stats.ActionErrors++
	}

	if err := r.conv.AddReaction(ctx, r.settings.CheckedEmoji, monitoredID, msg.TS); err != nil {
		r.logger.Printf("reconcile: failed to add %s reaction to ticket %s: %v", r.settings.CheckedEmoji, msg.TS, err)
		stats.ActionErrors++
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
