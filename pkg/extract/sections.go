package extract

import (
	"regexp"
	"strings"
)

// rule is one step of a first-match-wins extraction chain.
type rule struct {
	name    string
	pattern *regexp.Regexp
	apply   func(re *regexp.Regexp, text string) string
}

func firstMatch(rules []rule, text string) string {
	for _, r := range rules {
		if v := r.apply(r.pattern, text); v != "" {
			return v
		}
	}
	return ""
}

var (
	blankLineRe    = regexp.MustCompile(`\n\s*\n`)
	nextHeadingRe  = regexp.MustCompile(`(?i)\n\s*pr[oó]ximos?\b`)
	objetivoRe     = regexp.MustCompile(`(?i)(?:^|\n)\s*objetivo\s*:?\s*`)
	titleHeadingRe = regexp.MustCompile(`^titulo(?:\s+da\s+ata)?$`)
)

var titleRules = []rule{
	{
		name:    "label",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*(?:t[ií]tulo|title)\s*:\s*(.+)`),
		apply:   submatchLine,
	},
	{
		name:    "heading-then-line",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*(?:t[ií]tulo(?:\s+da\s+ata)?|title(?:\s+of\s+the\s+ata)?)\s*\n\s*(.+)`),
		apply:   submatchLine,
	},
	{
		name:    "exact-heading-line",
		pattern: titleHeadingRe,
		apply: func(re *regexp.Regexp, text string) string {
			var lines []string
			for _, l := range strings.Split(text, "\n") {
				if l = strings.TrimSpace(l); l != "" {
					lines = append(lines, l)
				}
			}
			for i := 0; i+1 < len(lines); i++ {
				if re.MatchString(Fold(lines[i])) {
					return lines[i+1]
				}
			}
			return ""
		},
	},
}

var nextStepsRules = []rule{
	{
		name:    "inline",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*pr[oó]ximos?\s+passo?s?\s*:?\s*`),
		apply:   sectionUntilBlank,
	},
	{
		name:    "heading-block",
		pattern: regexp.MustCompile(`(?i)(?:^|\n)\s*pr[oó]ximos?\s+passo?s?[ \t]*\n`),
		apply:   sectionUntilBlank,
	},
}

func submatchLine(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	line, _, _ := strings.Cut(m[1], "\n")
	return strings.TrimSpace(line)
}

func sectionUntilBlank(re *regexp.Regexp, text string) string {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if end := blankLineRe.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return strings.TrimSpace(rest)
}

// Title returns the meeting title found in text, trying in order a
// "Título: X" line, a "Título da ATA" heading followed by the title, and a
// line that is exactly a "Título" heading. It returns "" when none applies.
func Title(text string) string {
	if text == "" {
		return ""
	}
	return firstMatch(titleRules, strings.ReplaceAll(text, "\r", ""))
}

// NextSteps returns the body of the "Próximos passos" section up to the
// next blank line or the end of text.
func NextSteps(text string) string {
	if text == "" {
		return ""
	}
	return firstMatch(nextStepsRules, strings.ReplaceAll(text, "\r", ""))
}

// MainBody returns the text from the "Objetivo" heading up to the
// "Próximos" section, prefixed with a normalized "Objetivo:" label.
func MainBody(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r", "")
	loc := objetivoRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	body := text[loc[1]:]
	if end := nextHeadingRe.FindStringIndex(body); end != nil {
		body = body[:end[0]]
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}
	return "Objetivo:\n" + body
}

// Field returns the value of the first "label: value" line whose label
// matches one of labels, ignoring case and accents.
func Field(text string, labels ...string) string {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[Fold(strings.TrimSpace(l))] = true
	}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if want[Fold(strings.TrimSpace(key))] {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Document is the structured view of a generated ATA.
type Document struct {
	Title     string `json:"titulo"`
	Body      string `json:"corpo"`
	NextSteps string `json:"proximos"`
}

// Parse runs the three section extractors over text.
func Parse(text string) Document {
	return Document{
		Title:     Title(text),
		Body:      MainBody(text),
		NextSteps: NextSteps(text),
	}
}

// Compose builds the full minutes shown to the user: title, main body (or
// the raw text when no "Objetivo" section exists) and the next steps block,
// separated by blank lines.
func Compose(doc Document, raw string) string {
	var parts []string
	if t := strings.TrimSpace(doc.Title); t != "" {
		parts = append(parts, t)
	}
	body := doc.Body
	if body == "" {
		body = clean(raw)
	}
	if body = strings.TrimSpace(body); body != "" {
		parts = append(parts, body)
	}
	if steps := strings.TrimSpace(doc.NextSteps); steps != "" {
		parts = append(parts, "Próximos passos:\n"+steps)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}
