package azure

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helen-caroline/create-atas/pkg/extract"
	"github.com/helen-caroline/create-atas/pkg/model"
	"golang.org/x/net/html"
)

// Labels of the meeting lines kept at the top of an ATA description.
const (
	labelDate         = "Data"
	labelTime         = "Horário"
	labelLocation     = "Local"
	labelParticipants = "Participantes"
)

var (
	blockTags = map[string]bool{
		"div": true, "p": true, "li": true, "tr": true, "ul": true, "ol": true, "table": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
	manyNewlinesRe = regexp.MustCompile(`\n{3,}`)
	clockRe        = regexp.MustCompile(`\b(\d{1,2})[:hH](\d{2})\b`)
)

// DescriptionText flattens the HTML stored in System.Description into plain
// text, one line per block element or <br>.
func DescriptionText(markup string) string {
	var b strings.Builder
	newline := func() {
		b.WriteString("\n")
	}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			lines := strings.Split(b.String(), "\n")
			for i, l := range lines {
				lines[i] = strings.TrimRight(l, " \t\u00a0")
			}
			text := manyNewlinesRe.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
			return strings.Trim(text, "\n")
		case html.TextToken:
			b.WriteString(strings.ReplaceAll(string(z.Text()), "\u00a0", " "))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				newline()
			} else if blockTags[string(name)] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				newline()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if blockTags[string(name)] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				newline()
			}
		}
	}
}

// DescriptionHTML renders text as one <div> per line, the way the boards
// editor stores it.
func DescriptionHTML(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString("<div><br></div>")
			continue
		}
		b.WriteString("<div>")
		b.WriteString(html.EscapeString(line))
		b.WriteString("</div>")
	}
	return b.String()
}

// ParseATADescription reads the meeting details out of a description
// written by FormatATADescription, or typed by hand in the same shape.
func ParseATADescription(text string) model.ATADetails {
	d := model.ATADetails{
		Date:         extract.ISODate(extract.Field(text, labelDate)),
		Location:     extract.Field(text, labelLocation),
		Participants: extract.Field(text, labelParticipants),
		Summary:      strings.TrimPrefix(extract.MainBody(text), "Objetivo:\n"),
		NextSteps:    extract.NextSteps(text),
	}
	if m := clockRe.FindStringSubmatch(extract.Field(text, labelTime, "Hora", "Horario")); m != nil {
		h, _ := strconv.Atoi(m[1])
		d.Time = fmt.Sprintf("%02d:%s", h, m[2])
	}
	return d
}

// FormatATADescription is the inverse of ParseATADescription.
func FormatATADescription(d model.ATADetails) string {
	var lines []string
	if d.Date != "" {
		date := d.Date
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			date = t.Format("02/01/2006")
		}
		lines = append(lines, labelDate+": "+date)
	}
	if d.Time != "" {
		lines = append(lines, labelTime+": "+d.Time)
	}
	if d.Location != "" {
		lines = append(lines, labelLocation+": "+d.Location)
	}
	if d.Participants != "" {
		lines = append(lines, labelParticipants+": "+d.Participants)
	}
	sections := []string{strings.Join(lines, "\n")}
	if s := strings.TrimSpace(d.Summary); s != "" {
		sections = append(sections, "Objetivo:\n"+s)
	}
	if s := strings.TrimSpace(d.NextSteps); s != "" {
		sections = append(sections, "Próximos passos:\n"+s)
	}
	return strings.TrimSpace(strings.Join(sections, "\n\n"))
}

// ATADetails loads a work item and reads its meeting details.
func (c *Client) ATADetails(ctx context.Context, id int) (*model.ATADetails, error) {
	item, err := c.WorkItem(ctx, id)
	if err != nil {
		return nil, err
	}
	d := ParseATADescription(DescriptionText(item.Fields.Description))
	d.WorkItemID = item.ID
	d.Title = item.Title()
	d.State = item.Fields.State
	d.Company = extract.Company(item.Title())
	if d.Date == "" {
		d.Date = extract.FromWorkItemTitle(item.Title(), "").Date
	}
	return &d, nil
}

// SaveATADetails writes the details back to the work item description, and
// the title and state when they are set.
func (c *Client) SaveATADetails(ctx context.Context, id int, d model.ATADetails) error {
	ops := []patchOp{setField(model.FieldDescription, DescriptionHTML(FormatATADescription(d)))}
	if t := strings.TrimSpace(d.Title); t != "" {
		ops = append(ops, setField(model.FieldTitle, t))
	}
	if s := strings.TrimSpace(d.State); s != "" {
		ops = append(ops, setField(model.FieldState, s))
	}
	_, err := c.patch(ctx, id, ops)
	return err
}
