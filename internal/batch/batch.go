// Package batch turns pending Event Records into Outbound Messages, one per
// (source credential, destination credential) pair.
package batch

import (
	"strconv"
	"strings"

	"pushqueue/internal/event"
)

// Size limits sit below common push platform limits (Pushover: 250/1024) so
// the truncation marker always fits. Changing them changes what users see.
const (
	MaxTitleLen      = 247
	MaxBodyLen       = 1021
	TruncationMarker = "..."
)

// Message is one composed notification for a single destination.
type Message struct {
	Title   string
	Body    string
	APIKey  string
	UserKey string
	// IDs are the contributing record identities, in queue order. Never empty.
	IDs []int64
}

// Destination returns the (APIKey, UserKey) pair m is addressed to.
func (m Message) Destination() event.Destination {
	return event.Destination{APIKey: m.APIKey, UserKey: m.UserKey}
}

// Summarized reports whether m covers more than one record.
func (m Message) Summarized() bool { return len(m.IDs) > 1 }

// Compose groups records by destination, keeping queue order inside each
// group and first-seen order across groups.
//
// A group of one becomes "<summary>" / "<msg>". Larger groups become a per
// kind count title ("2 PROBLEM, 1 RECOVERY") with one summary line per record.
func Compose(records []event.Record) []Message {
	if len(records) == 0 {
		return nil
	}

	var order []event.Destination
	groups := make(map[event.Destination][]event.Record)
	for _, r := range records {
		d := r.Destination()
		if _, ok := groups[d]; !ok {
			order = append(order, d)
		}
		groups[d] = append(groups[d], r)
	}

	out := make([]Message, 0, len(order))
	for _, d := range order {
		out = append(out, composeGroup(d, groups[d]))
	}
	return out
}

func composeGroup(d event.Destination, group []event.Record) Message {
	m := Message{APIKey: d.APIKey, UserKey: d.UserKey, IDs: make([]int64, 0, len(group))}
	if len(group) == 1 {
		r := group[0]
		m.Title = Truncate(r.Summary(), MaxTitleLen)
		m.Body = Truncate(r.Msg, MaxBodyLen)
		m.IDs = append(m.IDs, r.ID)
		return m
	}

	var kinds []string
	counts := make(map[string]int)
	lines := make([]string, 0, len(group))
	for _, r := range group {
		if _, ok := counts[r.NotificationType]; !ok {
			kinds = append(kinds, r.NotificationType)
		}
		counts[r.NotificationType]++
		lines = append(lines, r.Summary())
		m.IDs = append(m.IDs, r.ID)
	}

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, strconv.Itoa(counts[k])+" "+k)
	}
	m.Title = Truncate(strings.Join(parts, ", "), MaxTitleLen)
	m.Body = Truncate(strings.Join(lines, "\n"), MaxBodyLen)
	return m
}

// Truncate cuts s to limit characters (not bytes) and appends TruncationMarker
// when anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}
