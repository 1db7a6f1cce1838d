package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/model"
)

type wiqlResult struct {
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	} `json:"workItems"`
}

type workItemList struct {
	Count int              `json:"count"`
	Value []model.WorkItem `json:"value"`
}

// patchOp is one JSON Patch operation on a work item.
type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func setField(field string, value any) patchOp {
	return patchOp{Op: "add", Path: "/fields/" + field, Value: value}
}

func wiqlQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (c *Client) myWorkItemsQuery(sprintPath string) string {
	return fmt.Sprintf(`SELECT [System.Id], [System.Title], [System.State], [System.WorkItemType], [System.AssignedTo], [System.CreatedDate], [System.ChangedDate], [Microsoft.VSTS.Common.Priority]
FROM WorkItems
WHERE [System.TeamProject] = %s
AND [System.IterationPath] = %s
AND [System.AssignedTo] = %s
ORDER BY [System.ChangedDate] DESC`, wiqlQuote(c.project), wiqlQuote(sprintPath), wiqlQuote(c.userName))
}

// MyWorkItems returns the items assigned to the configured user in the sprint
// at sprintPath, each tagged with the company read from its title. When
// company is not empty only that company's items are kept.
func (c *Client) MyWorkItems(ctx context.Context, sprintPath, company string) ([]model.WorkItem, error) {
	var result wiqlResult
	body := map[string]string{"query": c.myWorkItemsQuery(sprintPath)}
	if err := c.do(ctx, http.MethodPost, c.endpoint(c.project, "_apis/wit/wiql"), nil, body, contentJSON, &result); err != nil {
		return nil, fmt.Errorf("failed to run work item query: %w", err)
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}

	items, err := c.WorkItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	filtered := items[:0]
	for _, item := range items {
		item.Company = extract.Company(item.Title())
		if company != "" && !strings.EqualFold(item.Company, strings.TrimSpace(company)) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}

// WorkItems fetches the full fields of ids, chunkSize ids per request,
// keeping the order of ids.
func (c *Client) WorkItems(ctx context.Context, ids []int) ([]model.WorkItem, error) {
	items := make([]model.WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += chunkSize {
		end := min(start+chunkSize, len(ids))
		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.Itoa(id))
		}

		query := url.Values{}
		query.Set("ids", strings.Join(parts, ","))
		query.Set("$expand", "fields")

		var list workItemList
		if err := c.do(ctx, http.MethodGet, c.endpoint(c.project, "_apis/wit/workitems"), query, nil, "", &list); err != nil {
			return nil, fmt.Errorf("failed to fetch work items %d-%d: %w", start, end-1, err)
		}
		items = append(items, list.Value...)
	}
	return items, nil
}

// WorkItem fetches a single work item with all its fields.
func (c *Client) WorkItem(ctx context.Context, id int) (*model.WorkItem, error) {
	var item model.WorkItem
	if err := c.do(ctx, http.MethodGet, c.endpoint(c.project, "_apis/wit/workitems", strconv.Itoa(id)), nil, nil, "", &item); err != nil {
		return nil, fmt.Errorf("failed to get work item %d: %w", id, err)
	}
	return &item, nil
}

func (c *Client) patch(ctx context.Context, id int, ops []patchOp) (*model.WorkItem, error) {
	var item model.WorkItem
	if err := c.do(ctx, http.MethodPatch, c.endpoint(c.project, "_apis/wit/workitems", strconv.Itoa(id)), nil, ops, contentJSONPatch, &item); err != nil {
		return nil, fmt.Errorf("failed to update work item %d: %w", id, err)
	}
	return &item, nil
}

// UpdateStatus moves a work item to state.
func (c *Client) UpdateStatus(ctx context.Context, id int, state string) (*model.WorkItem, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return nil, errors.New("status is required")
	}
	return c.patch(ctx, id, []patchOp{setField(model.FieldState, state)})
}

// Board loads the sprint selected by q, or the current one, with the user's
// work items in it.
func (c *Client) Board(ctx context.Context, q model.BoardQuery) (model.Board, error) {
	var (
		sprint *model.Sprint
		err    error
	)
	if q.SprintID != "" {
		sprint, err = c.SprintByID(ctx, q.SprintID)
	} else {
		sprint, err = c.CurrentSprint(ctx)
	}
	switch {
	case errors.Is(err, ErrNoSprint):
		return model.Board{WorkItems: []model.WorkItem{}, Message: "Nenhuma sprint ativa encontrada"}, nil
	case errors.Is(err, ErrSprintNotFound):
		return model.Board{WorkItems: []model.WorkItem{}, Message: fmt.Sprintf("Sprint %s não encontrada", q.SprintID)}, nil
	}
	if err != nil {
		return model.Board{}, err
	}

	items, err := c.MyWorkItems(ctx, sprint.Path, q.Company)
	if err != nil {
		return model.Board{}, err
	}

	board := model.Board{Sprint: sprint, WorkItems: items, Total: len(items)}
	switch {
	case q.Company != "":
		board.Message = fmt.Sprintf("Encontrados %d work items filtrados por empresa: %s", len(items), q.Company)
	case q.SprintID != "":
		board.Message = fmt.Sprintf("Encontrados %d work items na sprint selecionada", len(items))
	default:
		board.Message = fmt.Sprintf("Encontrados %d work items na sprint ativa", len(items))
	}
	return board, nil
}
