package extract

import (
	"regexp"
	"strings"

	"github.com/helen-caroline/create-atas/pkg/model"
)

var (
	bulletRe      = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)
	responsibleRe = regexp.MustCompile(`(?i)\(?\s*respons[aá]vel\s*:\s*([^);]+)\)?`)
	stepSepRe     = regexp.MustCompile(`\s*[;|]\s*`)
)

// ParseNextSteps splits a next steps block into entries, one per non-empty
// line. Lines shaped "action; responsible; date" (or with '|') are split on
// the separator; otherwise a "Responsável: X" note and the first date found
// in the line are lifted out of the action.
func ParseNextSteps(text string) []model.NextStep {
	var steps []model.NextStep
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		line = strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if parts := stepSepRe.Split(line, -1); len(parts) > 1 {
			steps = append(steps, splitStep(parts))
			continue
		}
		step := model.NextStep{Action: line}
		if loc := anyDateRe.FindStringIndex(step.Action); loc != nil {
			step.Date = ISODate(slashed(step.Action[loc[0]:loc[1]]))
			step.Action = step.Action[:loc[0]] + step.Action[loc[1]:]
		}
		if m := responsibleRe.FindStringSubmatchIndex(step.Action); m != nil {
			step.Responsible = strings.Trim(collapse(step.Action[m[2]:m[3]]), " -–:")
			step.Action = step.Action[:m[0]] + step.Action[m[1]:]
		}
		step.Action = strings.Trim(collapse(step.Action), " -–:")
		steps = append(steps, step)
	}
	return steps
}

func splitStep(parts []string) model.NextStep {
	step := model.NextStep{Action: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case step.Date == "" && anyDateRe.MatchString(p):
			step.Date = ISODate(slashed(anyDateRe.FindString(p)))
		case step.Responsible == "":
			if m := responsibleRe.FindStringSubmatch(p); m != nil {
				p = strings.TrimSpace(m[1])
			}
			step.Responsible = p
		}
	}
	return step
}

// slashed rewrites D-M-YY(YY) as D/M/YYYY so ISODate accepts it.
func slashed(date string) string {
	m := anyDateRe.FindStringSubmatch(date)
	if m == nil {
		return date
	}
	y := m[3]
	if len(y) == 2 {
		y = "20" + y
	}
	return m[1] + "/" + m[2] + "/" + y
}
