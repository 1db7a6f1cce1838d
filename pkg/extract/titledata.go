package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/helen-caroline/create-atas/pkg/model"
)

var (
	anyDateRe       = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4}|\d{2})\b`)
	activitySuffix  = regexp.MustCompile(`(?i)\s*-\s*atividade do dia.*$`)
	trailingDateRe  = regexp.MustCompile(`\s*-?\s*\b\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2})\s*$`)
	reqPrefixRe     = regexp.MustCompile(`^#?(\d+)\s+-\s+`)
	ataMarkerRe     = regexp.MustCompile(`(?i)^\[ata\]\s*`)
	sprintNumberRe  = regexp.MustCompile(`Sprint \d+`)
	leadingDigitsRe = regexp.MustCompile(`^\s*#?(\d+)\b`)
)

// TitleData is what can be recovered from a work item title.
type TitleData struct {
	Date         string `json:"date"`         // YYYY-MM-DD or ""
	Requerimento string `json:"requerimento"` // digits
	TituloIssue  string `json:"tituloIssue"`
}

// FromWorkItemTitle derives the requerimento, meeting date and issue title
// from a work item title such as
// "123 - [ATA][CINEMAX] Review - Atividade do dia 22-09-2025".
//
// The requerimento comes from id (a leading '#' is dropped), else from the
// leading digits of the title, else "0000". The issue title keeps the
// company tag so it can be fed back to BuildFilename.
func FromWorkItemTitle(title, id string) TitleData {
	title = collapse(strings.ReplaceAll(title, "\r", ""))

	data := TitleData{Requerimento: strings.TrimPrefix(strings.TrimSpace(id), "#")}
	if data.Requerimento == "" {
		if m := leadingDigitsRe.FindStringSubmatch(title); m != nil {
			data.Requerimento = m[1]
		} else {
			data.Requerimento = defaultRequerimento
		}
	}

	if m := anyDateRe.FindStringSubmatch(title); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			y += 2000
		}
		if validDate(y, mo, d) {
			data.Date = fmt.Sprintf("%04d-%02d-%02d", y, mo, d)
		}
	}

	issue := title
	if loc := activitySuffix.FindStringIndex(issue); loc != nil {
		issue = issue[:loc[0]]
	} else {
		issue = trailingDateRe.ReplaceAllString(issue, "")
	}
	issue = reqPrefixRe.ReplaceAllString(strings.TrimSpace(issue), "")
	issue = ataMarkerRe.ReplaceAllString(issue, "")
	if loc := sprintNumberRe.FindStringIndex(issue); loc != nil {
		issue = issue[:loc[1]]
	}
	data.TituloIssue = strings.TrimSpace(issue)
	return data
}

// excludedCompanies are bracket tags naming a work item type, not a client.
var excludedCompanies = map[string]bool{
	"ATA":        true,
	"TASK":       true,
	"BUG":        true,
	"FEATURE":    true,
	"USER STORY": true,
}

// Company returns the client named by the leading bracket tags of title,
// skipping work item type tags and Copilot tags. "[ATA][TOTVS] Review"
// yields "TOTVS".
func Company(title string) string {
	s := strings.TrimSpace(title)
	for strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return ""
		}
		tag := strings.TrimSpace(s[1:end])
		s = strings.TrimSpace(s[end+1:])
		if tag == "" || excludedCompanies[strings.ToUpper(tag)] || strings.Contains(strings.ToLower(tag), "copilot") {
			continue
		}
		return tag
	}
	return ""
}

// Companies lists the distinct companies of items, upper-cased and sorted.
// The item's own Company wins over the one parsed from its title.
func Companies(items []model.WorkItem) []string {
	seen := make(map[string]bool)
	for _, item := range items {
		c := strings.TrimSpace(item.Company)
		if c == "" {
			c = Company(item.Title())
		}
		c = strings.ToUpper(c)
		if c == "" || excludedCompanies[c] {
			continue
		}
		seen[c] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
