package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRequerimento = "0000"
	activityPhrase      = "Atividade do dia"
)

var (
	isoDateRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slashDateRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	activityPrefix = regexp.MustCompile(`(?i)^atividade do dia\s*-?\s*`)
	bracketTagRe   = regexp.MustCompile(`\[[^\]]+\]`)
	bracketStripRe = regexp.MustCompile(`\s*\[[^\]]+\]\s*`)
	copilotWordRe  = regexp.MustCompile(`(?i)\bcopilot\b`)
)

// fallbackLayouts are tried when a date is neither ISO nor D/M/YYYY.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
}

// validDate reports whether y-m-d is a real calendar day.
func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 {
		return false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d && int(t.Month()) == m
}

func parseDate(s string) (y, m, d int, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, false
	}
	if p := isoDateRe.FindStringSubmatch(s); p != nil {
		y, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
		d, _ = strconv.Atoi(p[3])
		return y, m, d, validDate(y, m, d)
	}
	if p := slashDateRe.FindStringSubmatch(s); p != nil {
		d, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
		y, _ = strconv.Atoi(p[3])
		return y, m, d, validDate(y, m, d)
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), int(t.Month()), t.Day(), true
		}
	}
	return 0, 0, 0, false
}

// NormalizeDate formats s as DD-MM-YYYY. It accepts YYYY-MM-DD, D/M/YYYY and
// a handful of common layouts; anything else is returned trimmed, unchanged.
func NormalizeDate(s string) string {
	y, m, d, ok := parseDate(s)
	if !ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprintf("%02d-%02d-%04d", d, m, y)
}

// ISODate formats s as YYYY-MM-DD, or returns "" when s is not a date.
func ISODate(s string) string {
	y, m, d, ok := parseDate(s)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// FirstUsefulTag returns the first bracketed tag in title that does not
// mention Copilot, brackets included, or "".
func FirstUsefulTag(title string) string {
	for _, tag := range bracketTagRe.FindAllString(title, -1) {
		if !strings.Contains(strings.ToLower(tag), "copilot") {
			return tag
		}
	}
	return ""
}

// BuildFilename returns the document name for an ATA:
//
//	{requerimento} - [ATA]{tag} {title} - Atividade do dia {DD-MM-YYYY}
//
// The user title wins over fallbackTitle. The tag is the first bracketed tag
// of the user title that is not Copilot-like; every bracketed tag and the
// word "Copilot" are removed from the visible title.
func BuildFilename(requerimento, dateRaw, userTitleRaw, fallbackTitle string) string {
	req := clean(requerimento)
	if req == "" {
		req = defaultRequerimento
	}
	date := NormalizeDate(clean(dateRaw))

	userTitle := clean(userTitleRaw)
	title := userTitle
	if title == "" {
		title = clean(fallbackTitle)
	}
	if title == "" {
		title = activityPhrase
	}
	title = strings.TrimSpace(activityPrefix.ReplaceAllString(title, ""))

	tag := ""
	if userTitle != "" {
		tag = FirstUsefulTag(userTitle)
		title = strings.TrimSpace(bracketStripRe.ReplaceAllString(title, " "))
	}
	title = collapse(copilotWordRe.ReplaceAllString(title, ""))

	return fmt.Sprintf("%s - [ATA]%s %s - %s %s", req, tag, title, activityPhrase, date)
}
