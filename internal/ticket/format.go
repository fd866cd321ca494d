package ticket

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xeonx/timeago"
)

// Permalink builds the archive deep link for a message. The platform
// convention is the channel ID plus the timestamp with its decimal point
// stripped; treat it as an opaque format contract.
func Permalink(channelID, ts string) string {
	return fmt.Sprintf("https://slack.com/archives/%s/p%s", channelID, strings.ReplaceAll(ts, ".", ""))
}

// ParseTimestamp converts a message timestamp ("1712345678.000200") to a
// wall-clock time. The fractional part is a uniqueness counter but still
// reads as sub-second precision, which is close enough for age display.
func ParseTimestamp(ts string) (time.Time, bool) {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil || seconds <= 0 {
		return time.Time{}, false
	}
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec), true
}

// FormatReminder renders the alerts-channel summary for an unresolved
// ticket. Absent fields simply omit their line.
func FormatReminder(fields Fields, link string, openedAt time.Time, now time.Time) string {
	lines := []string{"⚠️ *Pending Ticket - Needs Attention*", ""}

	appendField := func(emoji, name string) {
		if v, ok := fields[name]; ok {
			lines = append(lines, fmt.Sprintf("%s *%s:* %s", emoji, name, v))
		}
	}
	appendField("📅", FieldDate)
	appendField("📍", FieldProvince)
	appendField("📁", FieldProject)
	appendField("🏷️", FieldType)
	appendField("👤", FieldCustomer)
	appendField("📝", FieldDescription)

	if !openedAt.IsZero() && openedAt.Before(now) {
		lines = append(lines, fmt.Sprintf("⏳ *Pending:* opened %s", timeago.English.FormatReference(openedAt, now)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("<%s|🔗 View Original Message>", link),
		"",
		"_React with ✅ on the original message when handled._",
	)
	return strings.Join(lines, "\n")
}

// FormatThreadNudge renders the contextual reply posted under the ticket
// itself. The addressee line is dropped when no party could be parsed.
func FormatThreadNudge(addr Addressee, now time.Time) string {
	lines := []string{"🔔 *Reminder Check*"}
	if addr.Mention != "" {
		lines = append(lines, fmt.Sprintf("%s this one is waiting on you (%s).", addr.Mention, addr.Reason))
	} else if addr.Reason != "" {
		lines = append(lines, fmt.Sprintf("Still open (%s).", addr.Reason))
	}
	lines = append(lines, fmt.Sprintf("_Checked at %s - No ✅ found. Reminder sent._", now.Format("2006-01-02 15:04:05")))
	return strings.Join(lines, "\n")
}

// FormatResolvedNotice renders the end-of-ticket thread notice posted once
// when the checkmark first appears.
func FormatResolvedNotice(now time.Time) string {
	return fmt.Sprintf("🎉 *Ticket Resolved*\n_Checkmark seen at %s. Reminder cleared, no further nudges._", now.Format("2006-01-02 15:04:05"))
}
