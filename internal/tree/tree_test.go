package tree

import (
	"reflect"
	"testing"

	"github.com/pitabwire/studio/model"
)

func node(id, typ string, children ...*model.ComponentNode) *model.ComponentNode {
	return &model.ComponentNode{ID: id, Type: typ, Props: model.Props{}, Children: children}
}

// sampleTree builds:
//
//	Root-1
//	├── Row-1
//	│   ├── Text-1
//	│   └── Card-1
//	│       └── Button-1
//	└── Text-2
func sampleTree() *model.ComponentNode {
	return node("Root-1", "Root",
		node("Row-1", "Row",
			node("Text-1", "Text"),
			node("Card-1", "Card",
				node("Button-1", "Button"),
			),
		),
		node("Text-2", "Text"),
	)
}

func childIDs(n *model.ComponentNode) []string {
	ids := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestFind(t *testing.T) {
	root := sampleTree()
	n, ok := Find(root, "Button-1")
	if !ok {
		t.Fatal("Find(Button-1) not found")
	}
	if n.Type != "Button" {
		t.Errorf("Type = %q, want Button", n.Type)
	}
	if _, ok := Find(root, "missing"); ok {
		t.Error("Find(missing) found a node")
	}
	if n, ok := Find(root, "Root-1"); !ok || n != root {
		t.Error("Find(root id) should return the root itself")
	}
	if _, ok := Find(nil, "x"); ok {
		t.Error("Find(nil) found a node")
	}
}

func TestUpdate_locality(t *testing.T) {
	root := sampleTree()
	origRow := root.Children[0]
	origText1 := origRow.Children[0]
	origText2 := root.Children[1]
	origButton := origRow.Children[1].Children[0]

	out := Update(root, "Card-1", func(n *model.ComponentNode) {
		n.Props["title"] = "Changed"
	})

	if out == root {
		t.Fatal("root was not copied")
	}
	if out.Children[0] == origRow {
		t.Error("ancestor Row-1 was not copied")
	}
	if out.Children[1] != origText2 {
		t.Error("sibling Text-2 should be reference-identical")
	}
	if out.Children[0].Children[0] != origText1 {
		t.Error("sibling Text-1 should be reference-identical")
	}
	if out.Children[0].Children[1].Children[0] != origButton {
		t.Error("untouched child Button-1 should be shared")
	}
	card, _ := Find(out, "Card-1")
	if card.Props["title"] != "Changed" {
		t.Errorf("title = %v, want Changed", card.Props["title"])
	}
	origCard, _ := Find(root, "Card-1")
	if _, ok := origCard.Props["title"]; ok {
		t.Error("input tree was mutated")
	}
}

func TestUpdate_missingIDReturnsEqualTree(t *testing.T) {
	root := sampleTree()
	out := Update(root, "nope", func(n *model.ComponentNode) { n.Name = "x" })
	if !reflect.DeepEqual(out, sampleTree()) {
		t.Error("Update with a missing id changed the tree")
	}
}

func TestRemove(t *testing.T) {
	root := sampleTree()
	out := Remove(root, "Card-1")
	if _, ok := Find(out, "Card-1"); ok {
		t.Error("Card-1 still present")
	}
	if _, ok := Find(out, "Button-1"); ok {
		t.Error("Card-1's child still present")
	}
	if _, ok := Find(root, "Card-1"); !ok {
		t.Error("input tree was mutated")
	}
	if got := childIDs(out.Children[0]); !reflect.DeepEqual(got, []string{"Text-1"}) {
		t.Errorf("Row-1 children = %v", got)
	}
}

func TestRemove_duplicatesAtEveryLevel(t *testing.T) {
	root := node("Root-1", "Root",
		node("Dup", "Text"),
		node("Row-1", "Row", node("Dup", "Text"), node("Text-9", "Text")),
	)
	out := Remove(root, "Dup")
	if _, ok := Find(out, "Dup"); ok {
		t.Error("duplicate id survived removal")
	}
	if Count(out) != 3 {
		t.Errorf("Count = %d, want 3", Count(out))
	}
	again := Remove(out, "Dup")
	if !reflect.DeepEqual(again, out) {
		t.Error("Remove is not idempotent")
	}
}

func TestIsDescendant(t *testing.T) {
	root := sampleTree()
	tests := []struct {
		ancestor, target string
		want             bool
	}{
		{"Row-1", "Button-1", true},
		{"Row-1", "Row-1", true},
		{"Card-1", "Text-1", false},
		{"Text-2", "Row-1", false},
		{"missing", "Row-1", false},
		{"Root-1", "Text-2", true},
	}
	for _, tt := range tests {
		if got := IsDescendant(root, tt.ancestor, tt.target); got != tt.want {
			t.Errorf("IsDescendant(%s, %s) = %v, want %v", tt.ancestor, tt.target, got, tt.want)
		}
	}
}

func TestDetach(t *testing.T) {
	root := sampleTree()
	out, n, ok := Detach(root, "Card-1")
	if !ok {
		t.Fatal("Detach(Card-1) not found")
	}
	if n.ID != "Card-1" || len(n.Children) != 1 {
		t.Errorf("detached node = %+v", n)
	}
	if _, found := Find(out, "Card-1"); found {
		t.Error("Card-1 still in tree after detach")
	}
	if _, found := Find(root, "Card-1"); !found {
		t.Error("input tree was mutated")
	}
	if out.Children[1] != root.Children[1] {
		t.Error("sibling off the path should be shared")
	}
}

func TestDetach_missing(t *testing.T) {
	root := sampleTree()
	out, n, ok := Detach(root, "missing")
	if ok || n != nil {
		t.Errorf("Detach(missing) = %v, %v", n, ok)
	}
	if out != root {
		t.Error("Detach(missing) should return the input root")
	}
	leaf := node("Text-1", "Text")
	if out, _, ok := Detach(leaf, "Text-1"); ok || out != leaf {
		t.Error("Detach does not remove the root itself")
	}
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name  string
		index *int
		want  []string
	}{
		{"append when nil", nil, []string{"Row-1", "Text-2", "New"}},
		{"front", Index(0), []string{"New", "Row-1", "Text-2"}},
		{"middle", Index(1), []string{"Row-1", "New", "Text-2"}},
		{"end", Index(2), []string{"Row-1", "Text-2", "New"}},
		{"out of range", Index(5), []string{"Row-1", "Text-2", "New"}},
		{"negative", Index(-1), []string{"Row-1", "Text-2", "New"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := sampleTree()
			out := InsertAt(root, "Root-1", node("New", "Text"), tt.index)
			if got := childIDs(out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("children = %v, want %v", got, tt.want)
			}
			if len(root.Children) != 2 {
				t.Error("input tree was mutated")
			}
		})
	}
}

func TestInsertAt_intoLeaf(t *testing.T) {
	root := sampleTree()
	out := InsertAt(root, "Text-2", node("New", "Text"), nil)
	parent, _ := Find(out, "Text-2")
	if got := childIDs(parent); !reflect.DeepEqual(got, []string{"New"}) {
		t.Errorf("Text-2 children = %v", got)
	}
}

func TestWalkAndCount(t *testing.T) {
	root := sampleTree()
	var visited []string
	Walk(root, func(n *model.ComponentNode, depth int) bool {
		visited = append(visited, n.ID)
		return n.ID != "Card-1"
	})
	want := []string{"Root-1", "Row-1", "Text-1", "Card-1", "Text-2"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
	if Count(root) != 6 {
		t.Errorf("Count = %d, want 6", Count(root))
	}
}

func TestClone(t *testing.T) {
	root := sampleTree()
	c := Clone(root)
	if c == root {
		t.Fatal("Clone returned the same pointer")
	}
	if Count(c) != Count(root) {
		t.Errorf("Count = %d, want %d", Count(c), Count(root))
	}
	btn, _ := Find(c, "Button-1")
	orig, _ := Find(root, "Button-1")
	if btn == orig {
		t.Error("descendant shared between clone and original")
	}
	btn.Props["text"] = "changed"
	if orig.Props["text"] == "changed" {
		t.Error("props aliased between clone and original")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) != nil")
	}
}
