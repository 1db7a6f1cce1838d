package util

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/model"
	"google.golang.org/api/calendar/v3"
)

const (
	// WorkItemProperty is the private extended property linking an event to
	// its ATA work item.
	WorkItemProperty = "ata_work_item_id"

	DefaultMeetingDuration = time.Hour
	summaryPrefix          = "[ATA] "
)

var (
	workItemLineRe = regexp.MustCompile(`Work item #(\d+)`)
	ataPrefixRe    = regexp.MustCompile(`(?i)^\s*\[ata\]\s*`)
)

// EventNeedsUpdate returns a patch holding only the fields of target that
// differ from existing, or nil when they already agree.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.Location != target.Location {
		patch.Location = target.Location
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	if !sameAttendees(existing.Attendees, target.Attendees) {
		patch.Attendees = target.Attendees
		needsUpdate = true
	}

	sameStart, err := sameTime(existing.Start, target.Start)
	if err != nil {
		return nil, err
	}
	sameEnd, err := sameTime(existing.End, target.End)
	if err != nil {
		return nil, err
	}
	if !sameStart || !sameEnd {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

// sameAttendees compares attendee e-mails, ignoring order and case.
func sameAttendees(a, b []*calendar.EventAttendee) bool {
	emails := func(list []*calendar.EventAttendee) []string {
		var out []string
		for _, at := range list {
			if at != nil && at.Email != "" {
				out = append(out, strings.ToLower(at.Email))
			}
		}
		sort.Strings(out)
		return out
	}
	return slices.Equal(emails(a), emails(b))
}

// sameTime compares two event times, timed or all-day.
func sameTime(a, b *calendar.EventDateTime) (bool, error) {
	if a == nil || b == nil {
		return a == b, nil
	}
	if a.DateTime == "" || b.DateTime == "" {
		return a.DateTime == b.DateTime && a.Date == b.Date, nil
	}
	at, err := time.Parse(time.RFC3339, a.DateTime)
	if err != nil {
		return false, err
	}
	bt, err := time.Parse(time.RFC3339, b.DateTime)
	if err != nil {
		return false, err
	}
	return at.Equal(bt), nil
}

// MeetingSummary is the event title of an ATA: "[ATA] " and the issue title
// without the requerimento and date decorations.
func MeetingSummary(title string) string {
	issue := extract.FromWorkItemTitle(title, "").TituloIssue
	if issue == "" {
		issue = ataPrefixRe.ReplaceAllString(strings.TrimSpace(title), "")
	}
	return strings.TrimSpace(summaryPrefix + issue)
}

// ConvertATAToCalendarEvent builds the calendar event of an ATA meeting. A
// meeting without a time becomes an all-day event; one with a time lasts
// DefaultMeetingDuration in loc.
func ConvertATAToCalendarEvent(d *model.ATADetails, colorID string, loc *time.Location) (*calendar.Event, error) {
	if d == nil {
		return nil, fmt.Errorf("could not convert nil ATA details")
	}
	if d.Date == "" {
		return nil, fmt.Errorf("ATA %d has no meeting date", d.WorkItemID)
	}
	if loc == nil {
		loc = time.Local
	}

	day, err := time.ParseInLocation("2006-01-02", d.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid meeting date %q: %w", d.Date, err)
	}

	event := &calendar.Event{
		Summary:     MeetingSummary(d.Title),
		Location:    d.Location,
		ColorId:     colorID,
		Description: meetingDescription(d),
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				WorkItemProperty: strconv.Itoa(d.WorkItemID),
			},
		},
	}

	if d.Time == "" {
		event.Start = &calendar.EventDateTime{Date: day.Format("2006-01-02")}
		event.End = &calendar.EventDateTime{Date: day.AddDate(0, 0, 1).Format("2006-01-02")}
	} else {
		clock, err := time.Parse("15:04", d.Time)
		if err != nil {
			return nil, fmt.Errorf("invalid meeting time %q: %w", d.Time, err)
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		end := start.Add(DefaultMeetingDuration)
		event.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)}
		event.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)}
	}

	for _, p := range strings.Split(d.Participants, ",") {
		if p = strings.TrimSpace(p); strings.Contains(p, "@") {
			event.Attendees = append(event.Attendees, &calendar.EventAttendee{Email: p})
		}
	}
	return event, nil
}

func meetingDescription(d *model.ATADetails) string {
	var b strings.Builder
	if d.Participants != "" {
		fmt.Fprintf(&b, "Participantes: %s\n\n", d.Participants)
	}
	if s := strings.TrimSpace(d.Summary); s != "" {
		fmt.Fprintf(&b, "Objetivo:\n%s\n\n", s)
	}
	if steps := extract.ParseNextSteps(d.NextSteps); len(steps) > 0 {
		b.WriteString("Próximos passos:\n")
		for _, s := range steps {
			b.WriteString("‣ " + s.Action)
			if s.Responsible != "" {
				b.WriteString(" (" + s.Responsible + ")")
			}
			if s.Date != "" {
				b.WriteString(" até " + extract.NormalizeDate(s.Date))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Work item #%d", d.WorkItemID)
	return b.String()
}

// WorkItemIDFromEvent returns the ATA work item behind event, from its
// private property or, for events edited by hand, its description.
func WorkItemIDFromEvent(event *calendar.Event) (int, bool) {
	if event == nil {
		return 0, false
	}
	if event.ExtendedProperties != nil {
		if id, err := strconv.Atoi(event.ExtendedProperties.Private[WorkItemProperty]); err == nil {
			return id, true
		}
	}
	if m := workItemLineRe.FindStringSubmatch(event.Description); m != nil {
		id, _ := strconv.Atoi(m[1])
		return id, true
	}
	return 0, false
}
