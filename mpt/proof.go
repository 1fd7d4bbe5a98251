// Package mpt verifies inclusion proofs for a simplified Merkle-Patricia
// trie with exactly two node kinds: branch nodes (16-way fan-out keyed by
// key nibbles) and leaf nodes (remaining key suffix plus value). There is no
// extension-node kind.
//
// The verifier replays a caller-supplied proof path top-down, recomputing
// each node's digest and checking the per-node key fragments against the
// queried key. Any structural mismatch, malformed node, or digest mismatch
// makes verification return false; the package never panics on bad input.
package mpt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// branchWidth is the fan-out of a branch node, one child per key nibble.
const branchWidth = 16

// ProofNode is a single node of a proof path. A branch node carries exactly
// 16 child digests and no value; a leaf node carries a value and no
// children. The Path field holds the node's key fragment as nibbles, one
// per byte, each in [0, 15].
type ProofNode struct {
	Path     []byte
	Children []common.Hash
	Value    []byte
}

// isBranch reports whether the node is a well-formed branch node.
func (n *ProofNode) isBranch() bool {
	return len(n.Children) == branchWidth && len(n.Value) == 0
}

// isLeaf reports whether the node is a well-formed leaf node.
func (n *ProofNode) isLeaf() bool {
	return len(n.Children) == 0 && len(n.Value) > 0
}

// Hash computes the node digest: the keccak256 of the node's list-format
// encoding.
func (n *ProofNode) Hash() common.Hash {
	raw, err := rlp.EncodeToBytes(n)
	if err != nil {
		panic("can't hash proof node: " + err.Error())
	}
	return crypto.Keccak256Hash(raw)
}

// NibblesOf expands a byte key into its nibble representation,
// high nibble first.
func NibblesOf(key []byte) []byte {
	nibbles := make([]byte, 0, len(key)*2)
	for _, b := range key {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles
}

// validNibbles reports whether every byte of the fragment is a nibble.
func validNibbles(path []byte) bool {
	for _, b := range path {
		if b > 0x0f {
			return false
		}
	}
	return true
}

// Prove verifies that key maps to a value whose keccak256 digest equals
// valueHash under the trie root, walking the supplied proof path from the
// root node down to a leaf. The concatenation of per-node key fragments
// (including the nibble consumed at each branch) must equal the key exactly.
func Prove(root common.Hash, key []byte, valueHash common.Hash, path []ProofNode) bool {
	if len(path) == 0 {
		return false
	}

	nibbles := NibblesOf(key)
	expected := root
	pos := 0

	for i := range path {
		node := &path[i]
		if node.Hash() != expected {
			return false
		}
		if !validNibbles(node.Path) {
			return false
		}
		if pos+len(node.Path) > len(nibbles) {
			return false
		}
		for j, nb := range node.Path {
			if nibbles[pos+j] != nb {
				return false
			}
		}
		pos += len(node.Path)

		switch {
		case node.isBranch():
			// A branch never terminates a path: the next expected digest is
			// the child selected by the next key nibble.
			if i == len(path)-1 || pos >= len(nibbles) {
				return false
			}
			expected = node.Children[nibbles[pos]]
			pos++
		case node.isLeaf():
			return i == len(path)-1 &&
				pos == len(nibbles) &&
				crypto.Keccak256Hash(node.Value) == valueHash
		default:
			return false
		}
	}
	return false
}
