package dom

import (
	"strconv"
	"strings"
)

// Path addresses a node from the surface. The empty path is the surface
// itself, Path{0} is the root node, Path{0, 2} the root's third child.
type Path []int

// Child returns a new path extended with index i. The receiver is never
// modified.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Equal reports whether both paths address the same slot.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String formats the path as /0/2. The surface is "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, i := range p {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(i))
	}
	return b.String()
}
