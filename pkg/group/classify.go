// Package group arranges a flat list of work items into the tree shown on
// the board: category headers, tasks and the ATAs recorded for them.
package group

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helen-caroline/create-atas/pkg/model"
)

// Display types returned by Classify.
const (
	TypeATA     = "ATA"
	TypeTask    = "Task"
	TypeBug     = "Bug"
	TypeFeature = "Feature"
)

// typeKeywords is checked in order; the first keyword found in the title or
// the work item type wins.
var typeKeywords = []struct {
	typ     string
	keyword string
}{
	{TypeATA, "ata"},
	{TypeTask, "task"},
	{TypeBug, "bug"},
	{TypeFeature, "feature"},
}

// Classify returns the display type of item. Keywords are matched as plain
// substrings of the lower-cased title and work item type, so "[ATA]" in a
// title makes the item an ATA whatever its System.WorkItemType says. With
// no keyword the capitalized work item type is returned, or "Task".
func Classify(item model.WorkItem) string {
	title := strings.ToLower(item.Fields.Title)
	wit := strings.ToLower(item.Fields.WorkItemType)
	for _, k := range typeKeywords {
		if strings.Contains(title, k.keyword) || strings.Contains(wit, k.keyword) {
			return k.typ
		}
	}
	if wit == "" {
		return TypeTask
	}
	r, size := utf8.DecodeRuneInString(wit)
	return string(unicode.ToUpper(r)) + wit[size:]
}

// IsATA reports whether item is a meeting minutes record.
func IsATA(item model.WorkItem) bool {
	return Classify(item) == TypeATA
}
