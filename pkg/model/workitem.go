package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field reference names read by the board tooling.
const (
	FieldTitle        = "System.Title"
	FieldState        = "System.State"
	FieldDescription  = "System.Description"
	FieldWorkItemType = "System.WorkItemType"
	FieldPriority     = "Microsoft.VSTS.Common.Priority"
	FieldAssignedTo   = "System.AssignedTo"
	FieldCreatedDate  = "System.CreatedDate"
)

// Identity is the person a work item is assigned to.
type Identity struct {
	DisplayName string `json:"displayName,omitempty"`
	UniqueName  string `json:"uniqueName,omitempty"`
}

// Name returns the best available label for the identity.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.UniqueName
}

// UnmarshalJSON accepts both the identity object and the legacy
// "Display Name <unique@name>" string form.
func (i *Identity) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		name, unique, found := strings.Cut(s, "<")
		i.DisplayName = strings.TrimSpace(name)
		if found {
			i.UniqueName = strings.TrimSuffix(strings.TrimSpace(unique), ">")
		}
		return nil
	}
	type plain Identity
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("failed to decode identity: %w", err)
	}
	*i = Identity(p)
	return nil
}

// Fields holds the work item fields the tooling reads, plus every other
// field untouched in Extra.
type Fields struct {
	Title        string
	State        string
	Description  string
	WorkItemType string
	Priority     int
	AssignedTo   *Identity
	CreatedDate  string
	Extra        map[string]json.RawMessage
}

// UnmarshalJSON implements the json.Unmarshaler interface for Fields.
// Known fields with an unexpected shape are kept in Extra instead of failing
// the whole batch.
func (f *Fields) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("failed to decode work item fields: %w", err)
	}
	*f = Fields{}
	for key, value := range raw {
		if string(value) == "null" {
			continue
		}
		var ok bool
		switch key {
		case FieldTitle:
			ok = json.Unmarshal(value, &f.Title) == nil
		case FieldState:
			ok = json.Unmarshal(value, &f.State) == nil
		case FieldDescription:
			ok = json.Unmarshal(value, &f.Description) == nil
		case FieldWorkItemType:
			ok = json.Unmarshal(value, &f.WorkItemType) == nil
		case FieldCreatedDate:
			ok = json.Unmarshal(value, &f.CreatedDate) == nil
		case FieldPriority:
			var p float64
			if ok = json.Unmarshal(value, &p) == nil; ok {
				f.Priority = int(p)
			}
		case FieldAssignedTo:
			var id Identity
			if ok = json.Unmarshal(value, &id) == nil; ok {
				f.AssignedTo = &id
			}
		}
		if !ok {
			if f.Extra == nil {
				f.Extra = make(map[string]json.RawMessage)
			}
			f.Extra[key] = value
		}
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Fields.
func (f Fields) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(f.Extra)+7)
	for k, v := range f.Extra {
		out[k] = v
	}
	if f.Title != "" {
		out[FieldTitle] = f.Title
	}
	if f.State != "" {
		out[FieldState] = f.State
	}
	if f.Description != "" {
		out[FieldDescription] = f.Description
	}
	if f.WorkItemType != "" {
		out[FieldWorkItemType] = f.WorkItemType
	}
	if f.Priority != 0 {
		out[FieldPriority] = f.Priority
	}
	if f.AssignedTo != nil {
		out[FieldAssignedTo] = f.AssignedTo
	}
	if f.CreatedDate != "" {
		out[FieldCreatedDate] = f.CreatedDate
	}
	return json.Marshal(out)
}

// WorkItem is a single card on the board as returned by the boards API.
type WorkItem struct {
	ID      int    `json:"id"`
	URL     string `json:"url,omitempty"`
	Company string `json:"company,omitempty"`
	Fields  Fields `json:"fields"`
}

// Valid reports whether the item carries anything worth showing.
func (w WorkItem) Valid() bool {
	return w.ID != 0 || w.Fields.Title != "" || w.Fields.WorkItemType != "" || len(w.Fields.Extra) > 0
}

// Title returns the item title or "" when the field is absent.
func (w WorkItem) Title() string {
	return w.Fields.Title
}

// Sprint is a team iteration.
type Sprint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Board is the payload of "my work items": the sprint and the items
// assigned to the user in it.
type Board struct {
	Sprint    *Sprint    `json:"sprint"`
	WorkItems []WorkItem `json:"work_items"`
	Total     int        `json:"total_items"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BoardQuery selects which board to load. An empty SprintID means the
// current sprint; an empty Company means every company.
type BoardQuery struct {
	SprintID string
	Company  string
}
