package group

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/helen-caroline/create-atas/pkg/model"
)

// Node is an entry of the board tree. Category headers have no Item and a
// reserved ID; every other node wraps one work item.
type Node struct {
	ID       string
	Title    string
	Item     *model.WorkItem
	Children []*Node
}

// IsHeader reports whether n is a synthetic category header.
func (n *Node) IsHeader() bool {
	return n.Item == nil
}

func itemNode(item model.WorkItem) *Node {
	return &Node{ID: strconv.Itoa(item.ID), Title: item.Fields.Title, Item: &item}
}

var (
	leadingTagRe = regexp.MustCompile(`^\[.*?\]`)
	ataTagRe     = regexp.MustCompile(`(?i)^\[ata\]`)
	ddmmyyyyRe   = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
)

func normalizeTitle(s string) string {
	s = leadingTagRe.ReplaceAllString(strings.ToLower(s), "")
	return strings.Join(strings.Fields(s), " ")
}

// titlesMatch compares a task title against an ATA title: the task's
// leading tag and the ATA's leading [ATA] tag are dropped, then either
// contains the other, or they are equal once case, spacing and DD/MM/YYYY
// dates are normalized. Empty titles never match.
func titlesMatch(taskTitle, ataTitle string) bool {
	t := strings.TrimSpace(leadingTagRe.ReplaceAllString(taskTitle, ""))
	a := strings.TrimSpace(ataTagRe.ReplaceAllString(ataTitle, ""))
	if t == "" || a == "" {
		return false
	}
	if strings.Contains(a, t) || strings.Contains(t, a) {
		return true
	}
	nt, na := normalizeTitle(t), normalizeTitle(a)
	if nt == "" || na == "" {
		return false
	}
	if nt == na || strings.Contains(nt, na) || strings.Contains(na, nt) {
		return true
	}
	return ddmmyyyyRe.ReplaceAllString(nt, "DATE") == ddmmyyyyRe.ReplaceAllString(na, "DATE")
}

// PairTasksWithMinutes groups the ATAs of one category under the task they
// record. Tasks are visited in input order and the first task matching an
// ATA claims it; a task becomes a group even with no ATA. ATAs no task
// claimed are appended as single-node groups.
func PairTasksWithMinutes(items []model.WorkItem) []*Node {
	var tasks, atas []int
	for i, item := range items {
		if IsATA(item) {
			atas = append(atas, i)
		} else {
			tasks = append(tasks, i)
		}
	}

	used := make(map[int]bool, len(items))
	var groups []*Node
	for _, ti := range tasks {
		if used[ti] {
			continue
		}
		used[ti] = true
		parent := itemNode(items[ti])
		for _, ai := range atas {
			if used[ai] || !titlesMatch(items[ti].Fields.Title, items[ai].Fields.Title) {
				continue
			}
			used[ai] = true
			parent.Children = append(parent.Children, itemNode(items[ai]))
		}
		groups = append(groups, parent)
	}
	for _, ai := range atas {
		if !used[ai] {
			groups = append(groups, itemNode(items[ai]))
		}
	}
	return groups
}

// BuildTree categorizes items and pairs each category. Categories with
// items get a header node in table order; the default category's groups
// follow at top level without a header. A name repeated in the table gets
// a single header, at its first position.
func (c Categories) BuildTree(items []model.WorkItem) []*Node {
	byCategory := c.Categorize(items)
	defaultName := c.defaultName()

	var tree []*Node
	seen := make(map[string]bool, len(c))
	for _, cat := range c {
		if cat.Name == defaultName || seen[cat.Name] {
			continue
		}
		seen[cat.Name] = true
		members := byCategory[cat.Name]
		if len(members) == 0 {
			continue
		}
		tree = append(tree, &Node{
			ID:       cat.HeaderID(),
			Title:    cat.Display,
			Children: PairTasksWithMinutes(members),
		})
	}
	return append(tree, PairTasksWithMinutes(byCategory[defaultName])...)
}

// BuildTree uses DefaultCategories.
func BuildTree(items []model.WorkItem) []*Node {
	return DefaultCategories().BuildTree(items)
}

// Walk visits nodes depth first, parents before children.
func Walk(nodes []*Node, fn func(n *Node, depth int)) {
	var walk func([]*Node, int)
	walk = func(ns []*Node, depth int) {
		for _, n := range ns {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(nodes, 0)
}
