package util

import (
	"strings"
	"testing"
	"time"

	"github.com/helen-caroline/create-atas/pkg/model"
	"google.golang.org/api/calendar/v3"
)

var saoPaulo = time.FixedZone("BRT", -3*60*60)

func sampleDetails() *model.ATADetails {
	return &model.ATADetails{
		WorkItemID:   89016,
		Title:        "123 - [ATA][CINEMAX] Review - Atividade do dia 22-09-2025",
		Date:         "2025-09-22",
		Time:         "14:30",
		Location:     "Teams",
		Participants: "Ana, joao@cinemax.com.br",
		Summary:      "Revisar entregas da sprint",
		NextSteps:    "- Enviar proposta; Ana; 10/10/2025\n- Validar contrato",
	}
}

func TestConvertATAToCalendarEvent(t *testing.T) {
	event, err := ConvertATAToCalendarEvent(sampleDetails(), "5", saoPaulo)
	if err != nil {
		t.Fatalf("ConvertATAToCalendarEvent failed: %v", err)
	}

	if event.Summary != "[ATA] [CINEMAX] Review" {
		t.Errorf("Unexpected summary %q", event.Summary)
	}
	if event.ColorId != "5" || event.Location != "Teams" {
		t.Errorf("Unexpected color/location: %q %q", event.ColorId, event.Location)
	}
	if event.ExtendedProperties == nil || event.ExtendedProperties.Private[WorkItemProperty] != "89016" {
		t.Fatalf("Expected %s=89016, got %+v", WorkItemProperty, event.ExtendedProperties)
	}
	if event.Start.DateTime != "2025-09-22T14:30:00-03:00" || event.End.DateTime != "2025-09-22T15:30:00-03:00" {
		t.Errorf("Unexpected times: %s - %s", event.Start.DateTime, event.End.DateTime)
	}
	if len(event.Attendees) != 1 || event.Attendees[0].Email != "joao@cinemax.com.br" {
		t.Errorf("Unexpected attendees: %+v", event.Attendees)
	}
	for _, want := range []string{
		"Participantes: Ana, joao@cinemax.com.br",
		"Objetivo:\nRevisar entregas da sprint",
		"‣ Enviar proposta (Ana) até 10-10-2025",
		"‣ Validar contrato\n",
		"Work item #89016",
	} {
		if !strings.Contains(event.Description, want) {
			t.Errorf("Description missing %q:\n%s", want, event.Description)
		}
	}

	if id, ok := WorkItemIDFromEvent(event); !ok || id != 89016 {
		t.Errorf("WorkItemIDFromEvent() = %d, %v", id, ok)
	}
}

func TestConvertATAToCalendarEventAllDay(t *testing.T) {
	d := sampleDetails()
	d.Time = ""
	event, err := ConvertATAToCalendarEvent(d, "1", saoPaulo)
	if err != nil {
		t.Fatalf("ConvertATAToCalendarEvent failed: %v", err)
	}
	if event.Start.Date != "2025-09-22" || event.End.Date != "2025-09-23" || event.Start.DateTime != "" {
		t.Errorf("Expected an all-day event, got %+v - %+v", event.Start, event.End)
	}
}

func TestConvertATAToCalendarEventErrors(t *testing.T) {
	if _, err := ConvertATAToCalendarEvent(nil, "1", nil); err == nil {
		t.Errorf("Expected an error for nil details")
	}
	d := sampleDetails()
	d.Date = ""
	if _, err := ConvertATAToCalendarEvent(d, "1", nil); err == nil {
		t.Errorf("Expected an error without a date")
	}
	d = sampleDetails()
	d.Time = "25h"
	if _, err := ConvertATAToCalendarEvent(d, "1", nil); err == nil {
		t.Errorf("Expected an error for an invalid time")
	}
}

func TestMeetingSummary(t *testing.T) {
	tests := map[string]string{
		"[ATA] Kickoff":          "[ATA] Kickoff",
		"Reunião de alinhamento": "[ATA] Reunião de alinhamento",
		"4521 - Kickoff - atividade do dia 01/10/2025": "[ATA] Kickoff",
		"": "[ATA]",
	}
	for in, want := range tests {
		if got := MeetingSummary(in); got != want {
			t.Errorf("MeetingSummary(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEventNeedsUpdate(t *testing.T) {
	existing, _ := ConvertATAToCalendarEvent(sampleDetails(), "5", saoPaulo)
	target, _ := ConvertATAToCalendarEvent(sampleDetails(), "5", saoPaulo)

	patch, err := EventNeedsUpdate(existing, target)
	if err != nil {
		t.Fatalf("EventNeedsUpdate failed: %v", err)
	}
	if patch != nil {
		t.Errorf("Expected no patch for identical events, got %+v", patch)
	}

	// Same instant written in UTC is not a change.
	existing.Start = &calendar.EventDateTime{DateTime: "2025-09-22T17:30:00Z"}
	if patch, _ := EventNeedsUpdate(existing, target); patch != nil {
		t.Errorf("Expected no patch for equal instants, got %+v", patch)
	}

	d := sampleDetails()
	d.Time = "16:00"
	d.Location = "Sala 3"
	target, _ = ConvertATAToCalendarEvent(d, "5", saoPaulo)
	patch, err = EventNeedsUpdate(existing, target)
	if err != nil {
		t.Fatalf("EventNeedsUpdate failed: %v", err)
	}
	if patch == nil || patch.Location != "Sala 3" || patch.Start == nil || patch.Summary != "" {
		t.Errorf("Unexpected patch: %+v", patch)
	}

	allDay := &calendar.Event{Start: &calendar.EventDateTime{Date: "2025-09-22"}, End: &calendar.EventDateTime{Date: "2025-09-23"}}
	if patch, err := EventNeedsUpdate(allDay, target); err != nil || patch == nil || patch.Start.DateTime == "" {
		t.Errorf("Expected a switch to a timed event, got %+v, %v", patch, err)
	}

	broken := &calendar.Event{Start: &calendar.EventDateTime{DateTime: "not a time"}, End: target.End}
	if _, err := EventNeedsUpdate(broken, target); err == nil {
		t.Errorf("Expected an error for an unparseable time")
	}
}

func TestEventNeedsUpdateAttendees(t *testing.T) {
	existing, _ := ConvertATAToCalendarEvent(sampleDetails(), "5", saoPaulo)

	d := sampleDetails()
	d.Participants = "Ana, joao@cinemax.com.br, maria@cinemax.com.br"
	target, _ := ConvertATAToCalendarEvent(d, "5", saoPaulo)
	patch, err := EventNeedsUpdate(existing, target)
	if err != nil {
		t.Fatalf("EventNeedsUpdate failed: %v", err)
	}
	if patch == nil || len(patch.Attendees) != 2 {
		t.Fatalf("Expected both attendees in the patch, got %+v", patch)
	}

	// Order and case of the e-mails do not matter.
	existing.Attendees = []*calendar.EventAttendee{{Email: "Maria@cinemax.com.br"}, {Email: "joao@cinemax.com.br"}}
	existing.Description = target.Description
	if patch, _ := EventNeedsUpdate(existing, target); patch != nil {
		t.Errorf("Expected no patch for the same attendees, got %+v", patch)
	}
}
