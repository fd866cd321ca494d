package ticket

import (
	"fmt"
	"regexp"
	"strings"
)

// Reply is one message inside a ticket's thread, oldest first.
type Reply struct {
	Timestamp string
	UserID    string
	BotID     string
	Subtype   string
	Text      string
}

// Party identifies one side of a ticket conversation. Mention is the
// Slack-renderable tag; ID is the resolved user or subteam identifier and
// is empty when only a plain-text name could be parsed.
type Party struct {
	ID      string
	Mention string
}

// Resolved reports whether the party can be tagged at all.
func (p Party) Resolved() bool { return p.Mention != "" }

// Addressee is the outcome of the turn-taking decision: who the next
// nudge should tag, and why. Mention is empty when neither the sender nor
// the team could be parsed out of the ticket body.
type Addressee struct {
	Mention string
	Reason  string
}

// Turn-taking reasons, exactly as they appear in thread nudges.
const (
	ReasonNoReplies      = "no replies yet"
	ReasonWaitingForTeam = "sender replied, waiting for team"
	ReasonWaitingSender  = "team replied, waiting for sender"
	ReasonWaiting        = "waiting for response"
)

var (
	// The Sender label and its mention may be separated by arbitrary
	// text, including line breaks from Slack's rich-text form output.
	senderMentionRe = regexp.MustCompile(`(?is)Sender:.*?<@([A-Z0-9]+)>`)
	senderPlainRe   = regexp.MustCompile(`(?i)Sender:\s*@?([\w.\-]+)`)

	teamMentionRe = regexp.MustCompile(`(?is)To[\s_-]?Team:.*?<(@|!subteam\^)([A-Z0-9]+)>`)
	teamPlainRe   = regexp.MustCompile(`(?i)To[\s_-]?Team:\s*@?([\w.\-]+)`)
)

// SenderParty parses the reporting party out of the ticket body. A
// structured <@UID> mention after the Sender label wins; otherwise a plain
// name is rendered as an untaggable @name.
func SenderParty(text string) Party {
	if m := senderMentionRe.FindStringSubmatch(text); m != nil {
		return Party{ID: m[1], Mention: fmt.Sprintf("<@%s>", m[1])}
	}
	if m := senderPlainRe.FindStringSubmatch(text); m != nil {
		return Party{Mention: "@" + strings.TrimSpace(m[1])}
	}
	return Party{}
}

// TeamParty parses the responsible team out of the ticket body. Both user
// mentions and <!subteam^ID> group mentions are recognized; the subteam
// marker is preserved so Slack renders the group tag.
func TeamParty(text string) Party {
	if m := teamMentionRe.FindStringSubmatch(text); m != nil {
		return Party{ID: m[2], Mention: fmt.Sprintf("<%s%s>", m[1], m[2])}
	}
	if m := teamPlainRe.FindStringSubmatch(text); m != nil {
		return Party{Mention: "@" + strings.TrimSpace(m[1])}
	}
	return Party{}
}

// LastHumanReplier returns the user ID of the newest reply authored by a
// person (no bot ID, no subtype), or "" when no human has replied.
func LastHumanReplier(replies []Reply) string {
	for i := len(replies) - 1; i >= 0; i-- {
		r := replies[i]
		if r.UserID == "" || r.BotID != "" || r.Subtype != "" {
			continue
		}
		return r.UserID
	}
	return ""
}

// ResolveAddressee applies the turn-taking heuristic: whoever spoke last
// is waiting on the other side. Replies must be in chronological order.
func ResolveAddressee(text string, replies []Reply) Addressee {
	sender := SenderParty(text)
	team := TeamParty(text)
	last := LastHumanReplier(replies)

	switch {
	case last == "":
		return pick(sender, team, ReasonNoReplies)
	case sender.ID != "" && last == sender.ID:
		return pick(team, sender, ReasonWaitingForTeam)
	case team.ID != "" && last == team.ID:
		return pick(sender, team, ReasonWaitingSender)
	default:
		return pick(sender, team, ReasonWaiting)
	}
}

func pick(primary, fallback Party, reason string) Addressee {
	switch {
	case primary.Resolved():
		return Addressee{Mention: primary.Mention, Reason: reason}
	case fallback.Resolved():
		return Addressee{Mention: fallback.Mention, Reason: reason}
	default:
		return Addressee{Reason: reason}
	}
}
