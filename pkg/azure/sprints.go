package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/helen-caroline/create-atas/pkg/model"
)

type iteration struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Attributes struct {
		StartDate  string `json:"startDate"`
		FinishDate string `json:"finishDate"`
		TimeFrame  string `json:"timeFrame"`
	} `json:"attributes"`
}

func (it iteration) sprint() model.Sprint {
	return model.Sprint{
		ID:        it.ID,
		Name:      it.Name,
		Path:      it.Path,
		StartDate: it.Attributes.StartDate,
		EndDate:   it.Attributes.FinishDate,
	}
}

// activeAt reports whether now falls between the iteration's start and
// finish dates, both inclusive. Iterations without dates are never active.
func (it iteration) activeAt(now time.Time) bool {
	start, err := time.Parse(time.RFC3339, it.Attributes.StartDate)
	if err != nil {
		return false
	}
	finish, err := time.Parse(time.RFC3339, it.Attributes.FinishDate)
	if err != nil {
		return false
	}
	return !now.Before(start) && !now.After(finish)
}

type iterationList struct {
	Count int         `json:"count"`
	Value []iteration `json:"value"`
}

func (c *Client) iterations(ctx context.Context, timeframe string) ([]iteration, error) {
	query := url.Values{}
	if timeframe != "" {
		query.Set("$timeframe", timeframe)
	}
	var list iterationList
	err := c.do(ctx, http.MethodGet, c.endpoint(c.project, c.team, "_apis/work/teamsettings/iterations"), query, nil, "", &list)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	return list.Value, nil
}

// currentIndex picks the iteration active today, else the one Azure flags as
// current, else the first.
func currentIndex(its []iteration, now time.Time) int {
	for i, it := range its {
		if it.activeAt(now) {
			return i
		}
	}
	for i, it := range its {
		if it.Attributes.TimeFrame == "current" {
			return i
		}
	}
	if len(its) > 0 {
		return 0
	}
	return -1
}

// CurrentSprint returns the team's active sprint, or ErrNoSprint.
func (c *Client) CurrentSprint(ctx context.Context) (*model.Sprint, error) {
	its, err := c.iterations(ctx, "current")
	if err != nil {
		return nil, err
	}
	i := currentIndex(its, c.now())
	if i < 0 {
		return nil, ErrNoSprint
	}
	s := its[i].sprint()
	return &s, nil
}

// Sprints lists every sprint of the team in the order Azure returns them,
// oldest first.
func (c *Client) Sprints(ctx context.Context) ([]model.Sprint, error) {
	its, err := c.iterations(ctx, "")
	if err != nil {
		return nil, err
	}
	sprints := make([]model.Sprint, 0, len(its))
	for _, it := range its {
		sprints = append(sprints, it.sprint())
	}
	return sprints, nil
}

// LastSprints returns up to n sprints: the current one followed by the ones
// before it, newest first.
func (c *Client) LastSprints(ctx context.Context, n int) ([]model.Sprint, error) {
	its, err := c.iterations(ctx, "")
	if err != nil {
		return nil, err
	}
	now := c.now()
	cur := -1
	for i, it := range its {
		if it.activeAt(now) || it.Attributes.TimeFrame == "current" {
			cur = i
			break
		}
	}
	if cur < 0 {
		// Nothing running: count back from the last sprint already started.
		for i, it := range its {
			if start, err := time.Parse(time.RFC3339, it.Attributes.StartDate); err == nil && start.Before(now) {
				cur = i
			}
		}
	}
	if cur < 0 {
		cur = len(its) - 1
	}
	var sprints []model.Sprint
	for i := cur; i >= 0 && len(sprints) < n; i-- {
		sprints = append(sprints, its[i].sprint())
	}
	return sprints, nil
}

// SprintByID fetches a single sprint of the team, or ErrSprintNotFound.
func (c *Client) SprintByID(ctx context.Context, id string) (*model.Sprint, error) {
	var it iteration
	err := c.do(ctx, http.MethodGet, c.endpoint(c.project, c.team, "_apis/work/teamsettings/iterations", id), nil, nil, "", &it)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("sprint %s: %w", id, ErrSprintNotFound)
		}
		return nil, fmt.Errorf("failed to get sprint %s: %w", id, err)
	}
	s := it.sprint()
	return &s, nil
}
