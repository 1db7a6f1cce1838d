package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/helen-caroline/create-atas/pkg/config"
	"github.com/helen-caroline/create-atas/pkg/model"
)

const iterationsPath = "/org/proj/Team A/_apis/work/teamsettings/iterations"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.Azure{
		Organization: "org",
		Project:      "proj",
		Team:         "Team A",
		UserName:     "Ana O'Neil",
	}, srv.Client())
	c.BaseURL = srv.URL
	c.Limiter = nil
	c.now = func() time.Time { return time.Date(2025, 10, 8, 12, 0, 0, 0, time.UTC) }
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func sprintJSON(id, name, start, finish string) map[string]any {
	return map[string]any{
		"id":   id,
		"name": name,
		"path": `Consultoria\` + name,
		"attributes": map[string]string{
			"startDate":  start,
			"finishDate": finish,
		},
	}
}

var allSprints = []map[string]any{
	sprintJSON("s1", "Sprint 233", "2025-09-01T00:00:00Z", "2025-09-12T00:00:00Z"),
	sprintJSON("s2", "Sprint 234", "2025-09-15T00:00:00Z", "2025-09-26T00:00:00Z"),
	sprintJSON("s3", "Sprint 235", "2025-09-29T00:00:00Z", "2025-10-10T00:00:00Z"),
	sprintJSON("s4", "Sprint 236", "2025-10-13T00:00:00Z", "2025-10-24T00:00:00Z"),
}

func TestCurrentSprint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != iterationsPath {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("$timeframe"); got != "current" {
			t.Errorf("Expected $timeframe=current, got %q", got)
		}
		if got := r.URL.Query().Get("api-version"); got != apiVersion {
			t.Errorf("Expected api-version %s, got %q", apiVersion, got)
		}
		writeJSON(t, w, map[string]any{"value": []map[string]any{allSprints[1], allSprints[2]}})
	})

	sprint, err := c.CurrentSprint(context.Background())
	if err != nil {
		t.Fatalf("CurrentSprint failed: %v", err)
	}
	if sprint.ID != "s3" || sprint.Path != `Consultoria\Sprint 235` {
		t.Errorf("Expected the sprint running today, got %+v", sprint)
	}
}

func TestCurrentSprintNone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"value": []any{}})
	})
	if _, err := c.CurrentSprint(context.Background()); !errors.Is(err, ErrNoSprint) {
		t.Errorf("Expected ErrNoSprint, got %v", err)
	}
}

func TestLastSprints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"value": allSprints})
	})

	sprints, err := c.LastSprints(context.Background(), 3)
	if err != nil {
		t.Fatalf("LastSprints failed: %v", err)
	}
	var ids []string
	for _, s := range sprints {
		ids = append(ids, s.ID)
	}
	if strings.Join(ids, ",") != "s3,s2,s1" {
		t.Errorf("Expected s3,s2,s1, got %v", ids)
	}
}

func TestMyWorkItemsChunksAndFilters(t *testing.T) {
	const total = 450
	var chunks []int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/org/proj/_apis/wit/wiql":
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			var body struct{ Query string }
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("bad wiql body: %v", err)
				return
			}
			if !strings.Contains(body.Query, "[System.AssignedTo] = 'Ana O''Neil'") {
				t.Errorf("assignee not quoted in query: %s", body.Query)
			}
			if !strings.Contains(body.Query, `[System.IterationPath] = 'Consultoria\Sprint 235'`) {
				t.Errorf("iteration path missing from query: %s", body.Query)
			}
			refs := make([]map[string]int, 0, total)
			for i := 1; i <= total; i++ {
				refs = append(refs, map[string]int{"id": i})
			}
			writeJSON(t, w, map[string]any{"workItems": refs})
		case "/org/proj/_apis/wit/workitems":
			if got := r.URL.Query().Get("$expand"); got != "fields" {
				t.Errorf("Expected $expand=fields, got %q", got)
			}
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			chunks = append(chunks, len(ids))
			var items []map[string]any
			for _, id := range ids {
				var n int
				fmt.Sscan(id, &n)
				company := "ECAD"
				if n%3 == 0 {
					company = "TOTVS"
				}
				items = append(items, map[string]any{
					"id":     n,
					"fields": map[string]any{model.FieldTitle: fmt.Sprintf("[%s] item %d", company, n)},
				})
			}
			writeJSON(t, w, map[string]any{"count": len(items), "value": items})
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	items, err := c.MyWorkItems(context.Background(), `Consultoria\Sprint 235`, "totvs")
	if err != nil {
		t.Fatalf("MyWorkItems failed: %v", err)
	}
	if fmt.Sprint(chunks) != "[200 200 50]" {
		t.Errorf("Expected chunks of 200, got %v", chunks)
	}
	if len(items) != total/3 {
		t.Fatalf("Expected %d TOTVS items, got %d", total/3, len(items))
	}
	if items[0].ID != 3 || items[0].Company != "TOTVS" {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
}

func TestBoardWithoutSprint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"value": []any{}})
	})
	board, err := c.Board(context.Background(), model.BoardQuery{})
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if board.Sprint != nil || len(board.WorkItems) != 0 || board.Message == "" {
		t.Errorf("Expected an empty board with a message, got %+v", board)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "TF400813: not authorized", http.StatusUnauthorized)
	})
	_, err := c.Sprints(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || !strings.Contains(apiErr.Body, "TF400813") {
		t.Errorf("Unexpected error: %+v", apiErr)
	}
}

func TestUpdateStatus(t *testing.T) {
	var ops []patchOp
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/org/proj/_apis/wit/workitems/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != contentJSONPatch {
			t.Errorf("Expected json-patch content type, got %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&ops)
		writeJSON(t, w, map[string]any{"id": 42, "fields": map[string]any{model.FieldState: "Done"}})
	})

	if _, err := c.UpdateStatus(context.Background(), 42, "  "); err == nil {
		t.Errorf("Expected an error for an empty status")
	}
	item, err := c.UpdateStatus(context.Background(), 42, "Done")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if item.Fields.State != "Done" {
		t.Errorf("Expected state Done, got %q", item.Fields.State)
	}
	if len(ops) != 1 || ops[0].Op != "add" || ops[0].Path != "/fields/System.State" || ops[0].Value != "Done" {
		t.Errorf("Unexpected patch: %+v", ops)
	}
}

func TestATADetailsRoundTrip(t *testing.T) {
	details := model.ATADetails{
		Date:         "2025-09-22",
		Time:         "9:30",
		Location:     "Teams",
		Participants: "Ana, João & Carla",
		Summary:      "Revisar o backlog <priorizado>",
		NextSteps:    "- Enviar proposta; Ana; 10/10/2025\n- Validar contrato",
	}

	var stored string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPatch:
			var ops []patchOp
			if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
				t.Errorf("bad patch: %v", err)
				return
			}
			for _, op := range ops {
				if op.Path == "/fields/"+model.FieldDescription {
					stored, _ = op.Value.(string)
				}
			}
			writeJSON(t, w, map[string]any{"id": 7})
		case http.MethodGet:
			writeJSON(t, w, map[string]any{
				"id": 7,
				"fields": map[string]any{
					model.FieldTitle:       "[ATA][TOTVS] Review - Atividade do dia 22-09-2025",
					model.FieldState:       "Doing",
					model.FieldDescription: stored,
				},
			})
		}
	})

	ctx := context.Background()
	if err := c.SaveATADetails(ctx, 7, details); err != nil {
		t.Fatalf("SaveATADetails failed: %v", err)
	}
	if !strings.Contains(stored, "&lt;priorizado&gt;") {
		t.Errorf("Description was not escaped: %s", stored)
	}

	got, err := c.ATADetails(ctx, 7)
	if err != nil {
		t.Fatalf("ATADetails failed: %v", err)
	}
	want := details
	want.WorkItemID = 7
	want.Time = "09:30"
	want.Title = "[ATA][TOTVS] Review - Atividade do dia 22-09-2025"
	want.State = "Doing"
	want.Company = "TOTVS"
	if *got != want {
		t.Errorf("ATADetails() = %+v\nwant %+v", *got, want)
	}
}

func TestDescriptionText(t *testing.T) {
	markup := `<div>Data: 01/10/2025</div><div><br></div><p>Objetivo:<br>Alinhar&nbsp;escopo</p><ul><li>um</li><li>dois</li></ul>`
	want := "Data: 01/10/2025\n\nObjetivo:\nAlinhar escopo\num\ndois"
	if got := DescriptionText(markup); got != want {
		t.Errorf("DescriptionText() = %q, want %q", got, want)
	}
	if got := DescriptionText("linha 1\nlinha 2"); got != "linha 1\nlinha 2" {
		t.Errorf("plain text changed: %q", got)
	}
}

func TestDecodeBoard(t *testing.T) {
	input := `{
		"sprint": {"id": "s3", "name": "Sprint 235", "path": "Consultoria\\Sprint 235"},
		"work_items": [
			{"id": 1, "fields": {"System.Title": "[TOTVS] Review", "System.WorkItemType": "Task", "Microsoft.VSTS.Common.Priority": 2}},
			{"id": 2, "company": "TOTVS", "fields": {"System.Title": "[ATA] Review", "System.AssignedTo": {"displayName": "Ana"}}}
		]
	}`
	board, err := DecodeBoard(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeBoard failed: %v", err)
	}
	if board.Sprint == nil || board.Sprint.Name != "Sprint 235" {
		t.Errorf("Unexpected sprint: %+v", board.Sprint)
	}
	if board.Total != 2 || len(board.WorkItems) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(board.WorkItems))
	}
	if board.WorkItems[0].Fields.Priority != 2 {
		t.Errorf("Expected priority 2, got %d", board.WorkItems[0].Fields.Priority)
	}
	if board.WorkItems[1].Fields.AssignedTo.Name() != "Ana" || board.WorkItems[1].Company != "TOTVS" {
		t.Errorf("Unexpected second item: %+v", board.WorkItems[1])
	}
}

func TestDecodeWorkItems(t *testing.T) {
	input := `{"id": 1, "fields": {"System.Title": "one"}}
[{"id": 2, "fields": {}}, {"id": 3, "fields": {"System.Title": "three"}}]`
	items, err := DecodeWorkItems(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeWorkItems failed: %v", err)
	}
	if len(items) != 3 || items[2].Title() != "three" {
		t.Errorf("Unexpected items: %+v", items)
	}
	if _, err := DecodeWorkItems(strings.NewReader(`{"id": `)); err == nil {
		t.Errorf("Expected an error for truncated input")
	}
}

func TestBoardUnknownSprint(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "VS402815: iteration not found", http.StatusNotFound)
	})
	if _, err := c.SprintByID(context.Background(), "nope"); !errors.Is(err, ErrSprintNotFound) {
		t.Errorf("Expected ErrSprintNotFound, got %v", err)
	}
	board, err := c.Board(context.Background(), model.BoardQuery{SprintID: "nope"})
	if err != nil {
		t.Fatalf("Board failed: %v", err)
	}
	if board.Message != "Sprint nope não encontrada" || len(board.WorkItems) != 0 {
		t.Errorf("Unexpected board: %+v", board)
	}
}

func TestReadBoard(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{"board", `{"sprint": {"id": "s3", "name": "Sprint 235"}, "work_items": [{"id": 1, "fields": {}}]}`, []int{1}},
		{"array", `[{"id": 2, "fields": {}}, {"id": 3, "fields": {}}]`, []int{2, 3}},
		{"stream", "{\"id\": 4, \"fields\": {}}\n{\"id\": 5, \"fields\": {}}", []int{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, err := ReadBoard(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadBoard failed: %v", err)
			}
			var got []int
			for _, item := range board.WorkItems {
				got = append(got, item.ID)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) || board.Total != len(tt.want) {
				t.Errorf("got ids %v total %d, want %v", got, board.Total, tt.want)
			}
		})
	}
}

func TestSprints(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("$timeframe") {
			t.Errorf("Sprints should not filter by timeframe")
		}
		writeJSON(t, w, map[string]any{"value": allSprints})
	})
	sprints, err := c.Sprints(context.Background())
	if err != nil {
		t.Fatalf("Sprints failed: %v", err)
	}
	if len(sprints) != 4 || sprints[0].ID != "s1" || sprints[3].Name != "Sprint 236" {
		t.Errorf("Unexpected sprints: %+v", sprints)
	}
}
