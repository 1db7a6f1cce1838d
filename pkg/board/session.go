// Package board holds the state of one board view: the loaded sprint and
// work items, the active filters and the ATA being edited.
package board

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/group"
	"github.com/helen-caroline/create-atas/pkg/model"
)

// defaultPriority is what an item without a priority field counts as.
const defaultPriority = 4

var (
	ErrNotFound  = errors.New("work item not found")
	ErrNoEditing = errors.New("no work item is being edited")
)

// Source loads a board, e.g. *azure.Client.
type Source interface {
	Board(ctx context.Context, q model.BoardQuery) (model.Board, error)
}

// Store persists ATA details, e.g. *azure.Client.
type Store interface {
	SaveATADetails(ctx context.Context, id int, d model.ATADetails) error
}

// StepRecorder keeps the dated next steps of a work item, e.g. *overdue.Table.
type StepRecorder interface {
	Update(workItemID int, steps []model.NextStep)
}

// Criteria narrows the cards shown. Zero values match everything.
type Criteria struct {
	Search   string
	Type     string
	Status   string
	Priority int
}

func (c Criteria) match(item model.WorkItem) bool {
	if s := strings.ToLower(strings.TrimSpace(c.Search)); s != "" {
		if !strings.Contains(strings.ToLower(item.Title()), s) &&
			!strings.Contains(strings.ToLower(item.Fields.Description), s) &&
			!strings.Contains(strconv.Itoa(item.ID), s) {
			return false
		}
	}
	if c.Type != "" && !strings.EqualFold(group.Classify(item), strings.TrimSpace(c.Type)) {
		return false
	}
	if st := strings.ToLower(strings.TrimSpace(c.Status)); st != "" && !strings.Contains(strings.ToLower(item.Fields.State), st) {
		return false
	}
	if c.Priority != 0 {
		p := item.Fields.Priority
		if p == 0 {
			p = defaultPriority
		}
		if p != c.Priority {
			return false
		}
	}
	return true
}

// Session is owned by a single caller; it is not safe for concurrent use.
type Session struct {
	Sprint     *model.Sprint
	Items      []model.WorkItem
	Categories group.Categories
	Steps      StepRecorder

	editing int
}

func NewSession(cats group.Categories, steps StepRecorder) *Session {
	if len(cats) == 0 {
		cats = group.DefaultCategories()
	}
	return &Session{Categories: cats, Steps: steps}
}

// Load replaces the session content with the board from src. Items with
// neither an id nor fields are dropped.
func (s *Session) Load(ctx context.Context, src Source, q model.BoardQuery) (model.Board, error) {
	b, err := src.Board(ctx, q)
	if err != nil {
		return model.Board{}, fmt.Errorf("failed to load board: %w", err)
	}
	s.Set(b)
	return b, nil
}

// Set replaces the session content with b, e.g. a board read from a file.
func (s *Session) Set(b model.Board) {
	s.Sprint = b.Sprint
	s.Items = make([]model.WorkItem, 0, len(b.WorkItems))
	for _, item := range b.WorkItems {
		if item.Valid() {
			s.Items = append(s.Items, item)
		}
	}
	s.editing = 0
}

// Filter returns the loaded items matching c, in load order.
func (s *Session) Filter(c Criteria) []model.WorkItem {
	var out []model.WorkItem
	for _, item := range s.Items {
		if c.match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Tree groups the items matching c into the display tree.
func (s *Session) Tree(c Criteria) []*group.Node {
	return s.Categories.BuildTree(s.Filter(c))
}

// Companies lists the companies present in the loaded items.
func (s *Session) Companies() []string {
	return extract.Companies(s.Items)
}

// Item returns the loaded work item with id.
func (s *Session) Item(id int) (model.WorkItem, error) {
	for _, item := range s.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return model.WorkItem{}, fmt.Errorf("%d: %w", id, ErrNotFound)
}

// Edit starts editing the work item with id.
func (s *Session) Edit(id int) (model.WorkItem, error) {
	item, err := s.Item(id)
	if err != nil {
		return model.WorkItem{}, err
	}
	s.editing = id
	return item, nil
}

// Editing returns the id being edited, or 0.
func (s *Session) Editing() int {
	return s.editing
}

func (s *Session) Cancel() {
	s.editing = 0
}

// Save stores d for the item being edited, records its dated next steps
// and ends the edit.
func (s *Session) Save(ctx context.Context, store Store, d model.ATADetails) error {
	if s.editing == 0 {
		return ErrNoEditing
	}
	id := s.editing
	d.WorkItemID = id
	if err := store.SaveATADetails(ctx, id, d); err != nil {
		return fmt.Errorf("failed to save ATA %d: %w", id, err)
	}

	for i := range s.Items {
		if s.Items[i].ID != id {
			continue
		}
		if d.Title != "" {
			s.Items[i].Fields.Title = d.Title
		}
		if d.State != "" {
			s.Items[i].Fields.State = d.State
		}
	}
	if s.Steps != nil {
		s.Steps.Update(id, extract.ParseNextSteps(d.NextSteps))
	}
	s.editing = 0
	return nil
}
