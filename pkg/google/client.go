package google

import (
	"context"
	"fmt"

	"github.com/helen-caroline/create-atas/pkg/auth"
	"github.com/helen-caroline/create-atas/pkg/colors"
	"github.com/helen-caroline/create-atas/pkg/index"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewClient authorizes against Google and returns a client for the calendar
// whose name is calendarName.
func NewClient(ctx context.Context, calendarName string, idx *index.EventIndex, cache *colors.ColorCache) (*CalendarClient, error) {
	client, err := auth.GetClient(ctx, auth.CalendarScopes)
	if err != nil {
		return nil, err
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	calendarID, err := FindCalendar(srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, cache), nil
}

// FindCalendar returns the id of the calendar named name.
func FindCalendar(srv *calendar.Service, name string) (string, error) {
	calendarList, err := srv.CalendarList.List().Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range calendarList.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", name)
}
