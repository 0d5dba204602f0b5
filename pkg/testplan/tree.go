package testplan

import (
	"sort"

	"github.com/stefanpenner/testpulse/pkg/telemetry"
)

const noParent = -1

// Node is one suite in a Tree. Parent is an index into Tree.Nodes, or -1.
type Node struct {
	Suite  telemetry.Suite
	Parent int
}

// Tree holds a plan's suites in a flat slice with parent and child indexes.
// Suites whose parent is unknown are treated as roots.
type Tree struct {
	Nodes    []Node
	byID     map[string]int
	children [][]int
}

// BuildTree indexes suites by ID. A duplicate ID keeps its first occurrence.
func BuildTree(suites []telemetry.Suite) *Tree {
	t := &Tree{byID: make(map[string]int, len(suites))}
	for _, s := range suites {
		if _, dup := t.byID[s.ID]; dup {
			continue
		}
		t.byID[s.ID] = len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Suite: s, Parent: noParent})
	}

	t.children = make([][]int, len(t.Nodes))
	for i := range t.Nodes {
		parentID := t.Nodes[i].Suite.ParentID
		if parentID == "" {
			continue
		}
		p, ok := t.byID[parentID]
		if !ok || p == i {
			continue
		}
		t.Nodes[i].Parent = p
		t.children[p] = append(t.children[p], i)
	}
	return t
}

// Lookup returns the suite with the given ID.
func (t *Tree) Lookup(id string) (telemetry.Suite, bool) {
	i, ok := t.byID[id]
	if !ok {
		return telemetry.Suite{}, false
	}
	return t.Nodes[i].Suite, true
}

// Roots returns the IDs of suites without a known parent, in input order.
func (t *Tree) Roots() []string {
	var out []string
	for _, n := range t.Nodes {
		if n.Parent == noParent {
			out = append(out, n.Suite.ID)
		}
	}
	return out
}

// Path returns the suite names from the root down to id.
func (t *Tree) Path(id string) []string {
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	var names []string
	visited := map[int]bool{}
	for i != noParent && !visited[i] {
		visited[i] = true
		names = append(names, t.Nodes[i].Suite.Name)
		i = t.Nodes[i].Parent
	}
	for l, r := 0, len(names)-1; l < r; l, r = l+1, r-1 {
		names[l], names[r] = names[r], names[l]
	}
	return names
}

// Descendants returns id and every suite below it, sorted by ID. Cycles in
// the upstream parent references are cut at the first revisit.
func (t *Tree) Descendants(id string) []string {
	start, ok := t.byID[id]
	if !ok {
		return nil
	}
	visited := map[int]bool{}
	stack := []int{start}
	var out []string
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			continue
		}
		visited[i] = true
		out = append(out, t.Nodes[i].Suite.ID)
		stack = append(stack, t.children[i]...)
	}
	sort.Strings(out)
	return out
}
