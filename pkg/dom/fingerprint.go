package dom

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/zeebo/blake3"
)

// Fingerprint is a BLAKE3 content hash of a subtree. Two subtrees with the
// same fingerprint have the same kinds, keys, attributes (in order) and
// children, so the differ can skip them without walking.
type Fingerprint [32]byte

// String returns the hex form of the first 8 bytes.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:8])
}

// Fingerprint returns the content hash of the subtree rooted at n.
// It is computed once; nodes are immutable.
func (n *Node) Fingerprint() Fingerprint {
	n.fpOnce.Do(func() {
		n.fp = n.computeFingerprint()
	})
	return n.fp
}

func (n *Node) computeFingerprint() Fingerprint {
	h := blake3.New()
	var scratch [binary.MaxVarintLen64]byte

	writeUvarint := func(v uint64) {
		k := binary.PutUvarint(scratch[:], v)
		h.Write(scratch[:k])
	}
	writeString := func(s string) {
		writeUvarint(uint64(len(s)))
		h.Write([]byte(s))
	}

	writeUvarint(uint64(n.kind))
	writeString(n.key)

	writeUvarint(uint64(len(n.attrs.list)))
	for _, at := range n.attrs.list {
		writeString(at.Name)
		writeUvarint(uint64(at.Value.typ))
		switch at.Value.typ {
		case TypeString:
			writeString(at.Value.str)
		case TypeInt, TypeBool:
			writeUvarint(uint64(at.Value.num))
		case TypeFloat:
			writeUvarint(math.Float64bits(at.Value.flt))
		}
	}

	writeUvarint(uint64(len(n.children)))
	for _, c := range n.children {
		fp := c.Fingerprint()
		h.Write(fp[:])
	}

	var out Fingerprint
	copy(out[:], h.Sum(nil))
	return out
}
