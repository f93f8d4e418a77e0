package dom

// Diff compares two trees and returns the script that transforms prev into
// next. A nil tree is an empty surface. Diff is a pure function of its
// inputs and never fails.
func Diff(prev, next *Node) Script {
	var script Script
	diffSlot(prev, next, Path{}, 0, &script)
	return script
}

// diffSlot compares the nodes occupying one slot of a parent.
func diffSlot(prev, next *Node, parent Path, index int, script *Script) {
	switch {
	case prev == nil && next == nil:
		return
	case prev == nil:
		*script = append(*script, Op{Type: OpInsert, Parent: parent, Index: index, Node: next})
		return
	case next == nil:
		*script = append(*script, Op{Type: OpRemove, Parent: parent, Index: index})
		return
	}
	diffNode(prev, next, parent, index, script)
}

// diffNode compares two nodes known to be the same logical element.
func diffNode(prev, next *Node, parent Path, index int, script *Script) {
	if prev == next || prev.Fingerprint() == next.Fingerprint() {
		return
	}

	// Different kinds - replace without looking at children
	if prev.kind != next.kind {
		*script = append(*script, Op{Type: OpReplace, Parent: parent, Index: index, Node: next})
		return
	}

	if d := DiffAttrs(prev.attrs, next.attrs); len(d) > 0 {
		*script = append(*script, Op{Type: OpUpdate, Parent: parent, Index: index, Attrs: d})
	}

	diffChildren(prev.children, next.children, parent.Child(index), script)
}

// diffChildren reconciles two child sequences of the node at self.
//
// Ops are emitted in three phases: unmatched old children are removed from
// the highest index down, matched children are moved into their new
// relative order, and finally the new children are walked in order, diffing
// matched ones in place and inserting the rest. During the final walk every
// child before index j is already in place, so j is a valid slot.
func diffChildren(prev, next []*Node, self Path, script *Script) {
	if len(prev) == 0 && len(next) == 0 {
		return
	}

	matchOf, used := matchChildren(prev, next)

	// Remove unmatched old children
	for i := len(prev) - 1; i >= 0; i-- {
		if !used[i] {
			*script = append(*script, Op{Type: OpRemove, Parent: self, Index: i})
		}
	}

	moveMatched(prev, next, matchOf, used, self, script)

	for j, child := range next {
		if i := matchOf[j]; i >= 0 {
			diffNode(prev[i], child, self, j, script)
		} else {
			*script = append(*script, Op{Type: OpInsert, Parent: self, Index: j, Node: child})
		}
	}
}

// matchChildren pairs new children with old ones. Keyed children match the
// first old sibling with an equal key; unkeyed children match the unkeyed
// old child at the same index. matchOf[j] is the old index for next[j] or
// -1; used[i] reports whether prev[i] was matched.
func matchChildren(prev, next []*Node) (matchOf []int, used []bool) {
	var oldKeys map[string]int
	for i, c := range prev {
		if c.key == "" {
			continue
		}
		if oldKeys == nil {
			oldKeys = make(map[string]int)
		}
		if _, dup := oldKeys[c.key]; !dup {
			oldKeys[c.key] = i
		}
	}

	matchOf = make([]int, len(next))
	used = make([]bool, len(prev))

	for j, c := range next {
		matchOf[j] = -1
		if c.key != "" {
			if i, ok := oldKeys[c.key]; ok && !used[i] {
				matchOf[j] = i
				used[i] = true
			}
			continue
		}
		if j < len(prev) && prev[j].key == "" {
			matchOf[j] = j
			used[j] = true
		}
	}
	return matchOf, used
}

// moveMatched emits the Move ops that put the matched children, which after
// the removals sit in their old relative order, into their new relative
// order. Children on a longest increasing run stay; the others are moved
// from the last rank backwards, each directly in front of its successor.
func moveMatched(prev, next []*Node, matchOf []int, used []bool, self Path, script *Script) {
	// rank of each matched old child in the new order
	rankOfOld := make([]int, len(prev))
	m := 0
	for _, i := range matchOf {
		if i >= 0 {
			rankOfOld[i] = m
			m++
		}
	}
	if m < 2 {
		return
	}

	// current sequence of ranks, in old order
	cur := make([]int, 0, m)
	pinned := make([]bool, 0, m)
	for i, ok := range used {
		if ok {
			cur = append(cur, rankOfOld[i])
			pinned = append(pinned, prev[i].key == "")
		}
	}

	stable := stableRanks(cur, pinned)

	for r := m - 1; r >= 0; r-- {
		if stable[r] {
			continue
		}
		from := indexOf(cur, r)
		cur = append(cur[:from], cur[from+1:]...)

		to := len(cur)
		if r < m-1 {
			to = indexOf(cur, r+1)
		}
		cur = append(cur, 0)
		copy(cur[to+1:], cur[to:])
		cur[to] = r

		if from != to {
			*script = append(*script, Op{Type: OpMove, Parent: self, Index: from, To: to})
		}
	}
}

// stableRanks returns, indexed by rank, whether the child keeps its place.
// Positionally matched (pinned) children always keep their place.
func stableRanks(ranks []int, pinned []bool) []bool {
	eligible := pinnedCompatible(ranks, pinned)
	keep := longestIncreasing(ranks, eligible)

	stable := make([]bool, len(ranks))
	for p, ok := range keep {
		if ok {
			stable[ranks[p]] = true
		}
	}
	return stable
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
