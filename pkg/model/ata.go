package model

// NextStep is one follow-up action recorded in the minutes.
type NextStep struct {
	Action      string `json:"action"`
	Responsible string `json:"responsible,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD
}

// ATADetails is the meeting metadata edited for a single ATA work item.
type ATADetails struct {
	WorkItemID   int    `json:"work_item_id"`
	Title        string `json:"title"`
	State        string `json:"state,omitempty"`
	Company      string `json:"company,omitempty"`
	Date         string `json:"date,omitempty"` // YYYY-MM-DD
	Time         string `json:"time,omitempty"` // HH:MM
	Location     string `json:"location,omitempty"`
	Participants string `json:"participants,omitempty"`
	Summary      string `json:"summary,omitempty"`
	NextSteps    string `json:"next_steps,omitempty"`
}
