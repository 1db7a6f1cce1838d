package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helen-caroline/create-atas/pkg/config"
	"github.com/helen-caroline/create-atas/pkg/model"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.0"

	// chunkSize is the most ids the work items endpoint accepts per call.
	chunkSize = 200

	contentJSON      = "application/json"
	contentJSONPatch = "application/json-patch+json"
)

var (
	ErrNoSprint       = errors.New("no active sprint found")
	ErrSprintNotFound = errors.New("sprint not found")
)

// APIError is returned for any non-2xx response from Azure DevOps.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure devops request failed: status %d, %s", e.StatusCode, e.Body)
}

// Client talks to the Azure DevOps Boards REST API for a single
// organization, project, team and assignee.
type Client struct {
	BaseURL string
	// Limiter paces requests; nil disables pacing.
	Limiter *rate.Limiter

	http         *http.Client
	organization string
	project      string
	team         string
	userName     string
	now          func() time.Time
}

// NewClient returns a client for cfg. httpClient must already carry the
// credentials (see auth.AzureHTTPClient).
func NewClient(cfg config.Azure, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		BaseURL:      DefaultBaseURL,
		Limiter:      rate.NewLimiter(rate.Limit(10), 5),
		http:         httpClient,
		organization: cfg.Organization,
		project:      cfg.Project,
		team:         cfg.Team,
		userName:     cfg.UserName,
		now:          time.Now,
	}
}

// endpoint joins the escaped path segments under the organization.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.BaseURL, "/"))
	b.WriteString("/")
	b.WriteString(url.PathEscape(c.organization))
	for _, s := range segments {
		b.WriteString("/")
		if strings.HasPrefix(s, "_apis") {
			b.WriteString(s)
			continue
		}
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any, contentType string, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint+"?"+query.Encode(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", contentJSON)
	if body != nil {
		if contentType == "" {
			contentType = contentJSON
		}
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

// DecodeBoard reads a saved "my work items" payload, the same shape Board
// returns, e.g. to render the cards offline.
func DecodeBoard(r io.Reader) (model.Board, error) {
	var board model.Board
	if err := json.NewDecoder(r).Decode(&board); err != nil {
		return model.Board{}, fmt.Errorf("failed to decode board json: %w", err)
	}
	if board.Total == 0 {
		board.Total = len(board.WorkItems)
	}
	return board, nil
}

// ReadBoard reads a saved payload that is either a board, as DecodeBoard
// expects, or bare work items as DecodeWorkItems expects.
func ReadBoard(r io.Reader) (model.Board, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Board{}, fmt.Errorf("failed to read board: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var head map[string]json.RawMessage
		if json.NewDecoder(bytes.NewReader(data)).Decode(&head) == nil {
			_, hasItems := head["work_items"]
			_, hasSprint := head["sprint"]
			if hasItems || hasSprint {
				return DecodeBoard(bytes.NewReader(data))
			}
		}
	}
	items, err := DecodeWorkItems(bytes.NewReader(data))
	if err != nil {
		return model.Board{}, err
	}
	return model.Board{WorkItems: items, Total: len(items)}, nil
}

// DecodeWorkItems reads a stream of work item objects, one JSON value after
// the other, or a single JSON array of them.
func DecodeWorkItems(r io.Reader) ([]model.WorkItem, error) {
	var items []model.WorkItem
	decoder := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode work item json: %w", err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			var batch []model.WorkItem
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, fmt.Errorf("failed to decode work item json: %w", err)
			}
			items = append(items, batch...)
			continue
		}
		var item model.WorkItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode work item json: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}
