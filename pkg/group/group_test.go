package group

import (
	"reflect"
	"testing"

	"github.com/helen-caroline/create-atas/pkg/model"
)

func wi(id int, title, wit string) model.WorkItem {
	return model.WorkItem{ID: id, Fields: model.Fields{Title: title, WorkItemType: wit}}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		item model.WorkItem
		want string
	}{
		{"ata tag beats type", wi(1, "[ATA] Sprint Review", "Bug"), TypeATA},
		{"ata type", wi(2, "Reunião", "ATA"), TypeATA},
		{"task in title", wi(3, "[Task] Ajuste", "Feature"), TypeTask},
		{"bug type", wi(4, "Erro no login", "Bug"), TypeBug},
		{"feature title", wi(5, "New feature flag", ""), TypeFeature},
		{"capitalized fallback", wi(6, "Levantamento", "user story"), "User story"},
		{"empty fallback", wi(7, "Levantamento", ""), TypeTask},
		{"no fields", model.WorkItem{ID: 8}, TypeTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.item); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	items := []model.WorkItem{
		wi(1, "[TOTVS] Daily de acompanhamento", "Task"),
		wi(2, "Daily Sprint 236", "Task"),
		wi(3, "Sprint Planning", "Task"),
		wi(4, "Levantamento GitLab", "Task"),
		wi(5, "[ATA] Review cliente Totvs", "ATA"),
	}
	got := Categorize(items)
	ids := func(ws []model.WorkItem) []int {
		var out []int
		for _, w := range ws {
			out = append(out, w.ID)
		}
		return out
	}
	if want := []int{1, 5}; !reflect.DeepEqual(ids(got["totvs"]), want) {
		t.Errorf("totvs = %v, want %v", ids(got["totvs"]), want)
	}
	if want := []int{2, 3}; !reflect.DeepEqual(ids(got["rotina"]), want) {
		t.Errorf("rotina = %v, want %v", ids(got["rotina"]), want)
	}
	if want := []int{4}; !reflect.DeepEqual(ids(got[DefaultCategoryName]), want) {
		t.Errorf("outros = %v, want %v", ids(got[DefaultCategoryName]), want)
	}
}

func TestPairTasksWithMinutes(t *testing.T) {
	t.Run("ata attached to its task", func(t *testing.T) {
		groups := PairTasksWithMinutes([]model.WorkItem{
			wi(10, "[X] Sprint Review", "Task"),
			wi(11, "[ATA] Sprint Review - 10/10/2025", "ATA"),
		})
		if len(groups) != 1 {
			t.Fatalf("expected 1 group, got %d", len(groups))
		}
		if groups[0].ID != "10" || len(groups[0].Children) != 1 || groups[0].Children[0].ID != "11" {
			t.Errorf("unexpected grouping: %+v", groups[0])
		}
	})

	t.Run("ata differing only by date", func(t *testing.T) {
		groups := PairTasksWithMinutes([]model.WorkItem{
			wi(20, "[TOTVS] Alinhamento 29/09/2025", "Task"),
			wi(21, "[ATA] alinhamento   10/10/2025", "ATA"),
		})
		if len(groups) != 1 || len(groups[0].Children) != 1 {
			t.Fatalf("expected ATA under task, got %d groups", len(groups))
		}
	})

	t.Run("unrelated atas stay orphans", func(t *testing.T) {
		groups := PairTasksWithMinutes([]model.WorkItem{
			wi(30, "[ATA] Comitê 01/10/2025", "ATA"),
			wi(31, "[ATA] Comitê 08/10/2025", "ATA"),
		})
		if len(groups) != 2 {
			t.Fatalf("expected 2 orphan groups, got %d", len(groups))
		}
		for _, g := range groups {
			if len(g.Children) != 0 {
				t.Errorf("orphan %s has children", g.ID)
			}
		}
	})

	t.Run("first task wins and orphans come last", func(t *testing.T) {
		groups := PairTasksWithMinutes([]model.WorkItem{
			wi(40, "[ATA] Kickoff", "ATA"),
			wi(41, "[A] Kickoff", "Task"),
			wi(42, "[B] Kickoff", "Task"),
			wi(43, "[ATA] Fechamento", "ATA"),
		})
		var got []string
		for _, g := range groups {
			s := g.ID
			for _, c := range g.Children {
				s += ">" + c.ID
			}
			got = append(got, s)
		}
		want := []string{"41>40", "42", "43"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("groups = %v, want %v", got, want)
		}
	})

	t.Run("empty task title claims nothing", func(t *testing.T) {
		groups := PairTasksWithMinutes([]model.WorkItem{
			wi(50, "[X]", "Task"),
			wi(51, "[ATA] Qualquer", "ATA"),
		})
		if len(groups) != 2 || len(groups[0].Children) != 0 {
			t.Errorf("empty title absorbed an ATA: %+v", groups)
		}
	})
}

func treeIDs(nodes []*Node) []string {
	var out []string
	Walk(nodes, func(n *Node, depth int) {
		out = append(out, string(rune('0'+depth))+":"+n.ID)
	})
	return out
}

func TestBuildTree(t *testing.T) {
	items := []model.WorkItem{
		wi(1, "Levantamento GitLab", "Task"),
		wi(2, "[TOTVS] Módulo financeiro", "Task"),
		wi(3, "[ATA][TOTVS] Módulo financeiro - 22/09/2025", "ATA"),
		wi(4, "Daily Sprint 236", "Task"),
		wi(5, "[ATA] Levantamento GitLab", "ATA"),
	}
	tree := BuildTree(items)

	want := []string{
		"0:totvs-header", "1:2", "2:3",
		"0:rotina-header", "1:4",
		"0:1", "1:5",
	}
	if got := treeIDs(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
	if !tree[0].IsHeader() || tree[0].Title != "🏢 TOTVS" {
		t.Errorf("first node should be the TOTVS header, got %+v", tree[0])
	}

	again := BuildTree(items)
	if !reflect.DeepEqual(treeIDs(tree), treeIDs(again)) {
		t.Errorf("BuildTree is not idempotent")
	}
}

func TestBuildTreeOmitsEmptyCategories(t *testing.T) {
	tree := BuildTree([]model.WorkItem{wi(1, "Levantamento", "Task")})
	if len(tree) != 1 || tree[0].IsHeader() {
		t.Fatalf("expected a single headerless node, got %v", treeIDs(tree))
	}
	if len(BuildTree(nil)) != 0 {
		t.Errorf("empty input should produce an empty tree")
	}
}

func TestBuildTreeWithoutDefaultCategory(t *testing.T) {
	cats := Categories{{Name: "cliente", Display: "Cliente", Keywords: []string{"konia"}}}
	tree := cats.BuildTree([]model.WorkItem{
		wi(1, "[Konia] Review", "Task"),
		wi(2, "Outra coisa", "Task"),
	})
	want := []string{"0:cliente-header", "1:1", "0:2"}
	if got := treeIDs(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
}

func TestBuildTreeRepeatedCategoryName(t *testing.T) {
	cats := Categories{
		{Name: "cliente", Display: "Cliente", Keywords: []string{"totvs"}},
		{Name: "cliente", Display: "Cliente", Keywords: []string{"ecad"}},
	}
	tree := cats.BuildTree([]model.WorkItem{
		wi(1, "[TOTVS] Módulo financeiro", "Task"),
		wi(2, "[ECAD] Integração", "Task"),
	})
	want := []string{"0:cliente-header", "1:1", "1:2"}
	if got := treeIDs(tree); !reflect.DeepEqual(got, want) {
		t.Errorf("tree = %v, want %v", got, want)
	}
}
