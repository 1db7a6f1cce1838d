package google

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/helen-caroline/create-atas/pkg/colors"
	"github.com/helen-caroline/create-atas/pkg/index"
	"github.com/helen-caroline/create-atas/pkg/model"
	"github.com/helen-caroline/create-atas/pkg/util"
	"google.golang.org/api/calendar/v3"
)

// CalendarClient publishes ATA meetings to one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	colors     *colors.ColorCache
	location   *time.Location
}

// NewCalendarClient creates a new Google Calendar client. idx and cache may
// be nil.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, cache *colors.ColorCache) *CalendarClient {
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, colors: cache, location: time.Local}
}

func (c *CalendarClient) colorOf(company string) string {
	if c.colors == nil {
		return ""
	}
	return c.colors.GetColorID(company)
}

// findMeeting returns the event already published for a work item: first
// through the local index, then by private property.
func (c *CalendarClient) findMeeting(workItemID int) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(workItemID); eventID != "" {
			event, err := c.srv.Events.Get(c.calendarID, eventID).Do()
			if err == nil && event.Status != "cancelled" {
				return event, nil
			}
		}
	}
	return c.GetEventByWorkItemID(workItemID)
}

// SyncMeeting creates the event of an ATA meeting, or patches the existing
// one with whatever changed.
func (c *CalendarClient) SyncMeeting(d model.ATADetails) (*calendar.Event, error) {
	event, err := util.ConvertATAToCalendarEvent(&d, c.colorOf(d.Company), c.location)
	if err != nil {
		return nil, err
	}

	existing, err := c.findMeeting(d.WorkItemID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}

	if existing != nil {
		patch, err := util.EventNeedsUpdate(existing, event)
		if err != nil {
			log.Printf("could not compare ATA %d with its calendar event: %v", d.WorkItemID, err)
			return nil, err
		}
		if patch == nil {
			c.remember(d.WorkItemID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(existing.Id, patch)
		if err != nil {
			return nil, err
		}
		c.remember(d.WorkItemID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event: %w", err)
	}
	c.remember(d.WorkItemID, created.Id)
	return created, nil
}

func (c *CalendarClient) remember(workItemID int, eventID string) {
	if c.index != nil {
		c.index.Set(workItemID, eventID)
	}
}

// DeleteMeeting removes the event of a work item, if there is one.
func (c *CalendarClient) DeleteMeeting(workItemID int) error {
	existing, err := c.findMeeting(workItemID)
	if err != nil {
		return fmt.Errorf("error searching for event: %w", err)
	}
	if existing != nil {
		if err := c.DeleteEvent(existing.Id); err != nil {
			return err
		}
	}
	if c.index != nil {
		c.index.Remove(workItemID)
	}
	return nil
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Do()
}

// ListMeetings returns the ATA events starting after timeMin.
func (c *CalendarClient) ListMeetings(timeMin time.Time) ([]*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	var meetings []*calendar.Event
	for _, e := range events.Items {
		if _, ok := util.WorkItemIDFromEvent(e); ok {
			meetings = append(meetings, e)
		}
	}
	return meetings, nil
}

// GetEventByWorkItemID searches for the event tagged with workItemID.
func (c *CalendarClient) GetEventByWorkItemID(workItemID int) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(util.WorkItemProperty + "=" + strconv.Itoa(workItemID)).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}
