package variant

import (
	"github.com/dyluth/huddle/internal/authz"
	"github.com/dyluth/huddle/pkg/activity"
)

// Node is one element of a tree variant. Trees are stored as a flat arena;
// hierarchy is expressed only through ParentID.
type Node struct {
	Entry
	ParentID string `json:"parent_id,omitempty"`
	Kind     string `json:"kind"`
	Text     string `json:"text"`
}

// Tree is the payload shared by the hierarchical variants. Levels fixes the
// kind of node at each depth, so the level count is the depth ceiling.
type Tree struct {
	Center string `json:"center,omitempty"`
	Nodes  []Node `json:"nodes"`
}

// children builds the parent -> child ids index.
func children(nodes []Node) map[string][]string {
	index := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		index[n.ParentID] = append(index[n.ParentID], n.ID)
	}
	return index
}

// subtree returns rootID and all of its transitive descendants. The walk
// uses an explicit queue so depth never grows the stack.
func subtree(nodes []Node, rootID string) map[string]bool {
	index := children(nodes)
	seen := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range index[id] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return seen
}

// removeSubtree deletes a node with every descendant and returns the
// surviving nodes together with the number removed.
func removeSubtree(nodes []Node, rootID string) ([]Node, int) {
	doomed := subtree(nodes, rootID)
	kept := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if !doomed[n.ID] {
			kept = append(kept, n)
		}
	}
	return kept, len(nodes) - len(kept)
}

// depth returns the 0-based depth of id by following parent pointers.
// A parent cycle stops the walk after len(nodes) steps.
func depth(nodes []Node, id string) int {
	parent := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parent[n.ID] = n.ParentID
	}
	d := 0
	for cur := parent[id]; cur != "" && d < len(nodes); cur = parent[cur] {
		d++
	}
	return d
}

type addNodeInput struct {
	ID       string `json:"id,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Text     string `json:"text"`
}

type editNodeInput struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (in editNodeInput) Target() string { return in.ID }

type deleteNodeInput struct {
	ID string `json:"id"`
}

func (in deleteNodeInput) Target() string { return in.ID }

func nodeAuthor(p *Tree, id string) (string, bool) { return authorOf(p.Nodes, id) }

// treeActions returns add/edit/delete for a tree whose node kinds by depth
// are levels. With maxRoots > 0 the number of top-level nodes is capped.
func treeActions(levels []string, maxRoots int) []Action[Tree] {
	add := Do("add_node", authz.Open, func(p *Tree, c *Call, in addNodeInput) error {
		if in.ID != "" && indexOf(p.Nodes, in.ID) >= 0 {
			_, _, err := newEntry(c, p.Nodes, "nodes", in.ID)
			return err
		}

		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}

		level := 0
		if in.ParentID != "" {
			if indexOf(p.Nodes, in.ParentID) < 0 {
				return activity.InvalidField("parent_id", "no node with id %q", in.ParentID)
			}
			level = depth(p.Nodes, in.ParentID) + 1
		} else if maxRoots > 0 && len(children(p.Nodes)[""]) >= maxRoots {
			return activity.LimitExceeded("at most %d %s node(s)", maxRoots, levels[0])
		}
		if level >= len(levels) {
			return activity.LimitExceeded("tree is limited to %d levels", len(levels))
		}

		entry, _, err := newEntry(c, p.Nodes, "nodes", in.ID)
		if err != nil {
			return err
		}
		p.Nodes = append(p.Nodes, Node{Entry: entry, ParentID: in.ParentID, Kind: levels[level], Text: text})
		return nil
	})

	edit := Do("edit_node", authz.OwnerOrAdmin, func(p *Tree, c *Call, in editNodeInput) error {
		text, err := c.Text("text", in.Text, true)
		if err != nil {
			return err
		}
		p.Nodes[indexOf(p.Nodes, in.ID)].Text = text
		return nil
	}).OwnedBy(nodeAuthor)

	del := Do("delete_node", authz.OwnerOrAdmin, func(p *Tree, c *Call, in deleteNodeInput) error {
		p.Nodes, _ = removeSubtree(p.Nodes, in.ID)
		return nil
	}).OwnedBy(nodeAuthor)

	return []Action[Tree]{add, edit, del}
}
