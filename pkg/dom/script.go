package dom

import (
	"fmt"
	"strings"
)

// OpType is the type of an edit operation.
type OpType uint8

const (
	OpInsert  OpType = 0x01 // Insert a new subtree
	OpRemove  OpType = 0x02 // Remove a subtree
	OpUpdate  OpType = 0x03 // Apply an attribute diff
	OpMove    OpType = 0x04 // Move a child within its parent
	OpReplace OpType = 0x05 // Replace a subtree entirely
)

// String returns the string representation of the OpType.
func (t OpType) String() string {
	switch t {
	case OpInsert:
		return "Insert"
	case OpRemove:
		return "Remove"
	case OpUpdate:
		return "Update"
	case OpMove:
		return "Move"
	case OpReplace:
		return "Replace"
	default:
		return "Unknown"
	}
}

// Op is a single edit operation. Parent addresses the parent node as the
// tree looks after every earlier op of the script has been applied; Index
// is a slot in that parent's child sequence.
type Op struct {
	Type   OpType
	Parent Path     // Parent node; empty for the surface root slot
	Index  int      // Target slot (source slot for Move)
	To     int      // Destination slot for Move
	Node   *Node    // For Insert/Replace
	Attrs  AttrDiff // For Update
}

// Target returns the path of the node the op applies to.
func (o Op) Target() Path {
	return o.Parent.Child(o.Index)
}

// String formats the op as e.g. Update(/0, 1, {label: "Stop"}).
func (o Op) String() string {
	switch o.Type {
	case OpInsert:
		return fmt.Sprintf("Insert(%s, %d, %s)", o.Parent, o.Index, o.Node)
	case OpRemove:
		return fmt.Sprintf("Remove(%s, %d)", o.Parent, o.Index)
	case OpUpdate:
		return fmt.Sprintf("Update(%s, %d, %s)", o.Parent, o.Index, o.Attrs)
	case OpMove:
		return fmt.Sprintf("Move(%s, %d -> %d)", o.Parent, o.Index, o.To)
	case OpReplace:
		return fmt.Sprintf("Replace(%s, %d, %s)", o.Parent, o.Index, o.Node)
	default:
		return fmt.Sprintf("Unknown(%d)", o.Type)
	}
}

// Script is an ordered edit script. Ops must be applied strictly in order.
type Script []Op

// Count returns the number of ops of the given type.
func (s Script) Count(t OpType) int {
	n := 0
	for _, op := range s {
		if op.Type == t {
			n++
		}
	}
	return n
}

// String formats the script one op per line.
func (s Script) String() string {
	var b strings.Builder
	for i, op := range s {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(op.String())
	}
	return b.String()
}

// TeardownScript returns a script removing every node of the tree rooted at
// the surface slot, one Remove per node. Children are removed before their
// parent, last child first, so every index stays valid.
func TeardownScript(root *Node) Script {
	if root == nil {
		return nil
	}
	script := make(Script, 0, root.Count())
	teardown(root, Path{}, 0, &script)
	return script
}

func teardown(n *Node, parent Path, index int, script *Script) {
	self := parent.Child(index)
	for i := len(n.children) - 1; i >= 0; i-- {
		teardown(n.children[i], self, i, script)
	}
	*script = append(*script, Op{Type: OpRemove, Parent: parent, Index: index})
}
