package pki

import (
	"fmt"

	"github.com/securedrop/trustchain/shared/status"
)

// DefaultMaxChainDepth bounds how many parents VerifyChain follows before giving up
const DefaultMaxChainDepth = 8

// Node is one link of a trust chain: a public key and the signature over it made by Parent.
// A nil Parent means the node is signed directly by the anchor.
type Node struct {
	Name      string
	PublicKey []byte
	Signature []byte
	Parent    *Node
}

// VerifyChain walks from leaf towards the anchor. A node is trusted iff its signature verifies
// under its parent's key and the parent is the anchor or trusted itself. A node without a
// signature whose key equals anchor is the anchor.
func VerifyChain(leaf *Node, anchor VerifyingKey, maxDepth int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxChainDepth
	}
	return verifyNode(leaf, anchor, maxDepth, 0)
}

func verifyNode(node *Node, anchor VerifyingKey, maxDepth, depth int) error {
	if node == nil {
		return status.Errorf(status.InvalidArgument, "empty chain")
	}
	if depth >= maxDepth {
		return status.Errorf(status.InvalidArgument, "chain deeper than %d, last node %q", maxDepth, node.Name)
	}

	if len(node.Signature) == 0 {
		if node.Parent == nil && isAnchor(node.PublicKey, anchor) {
			return nil
		}
		return status.Errorf(status.SignatureInvalid, "%s is unsigned and is not the trust anchor", node.Name)
	}

	parentKey := anchor
	if node.Parent != nil {
		var err error
		parentKey, err = ParseVerifyingKey(node.Parent.PublicKey)
		if err != nil {
			return status.Wrapf(err, status.SignatureInvalid, "%s cannot sign %s", node.Parent.Name, node.Name)
		}
	}

	if err := Verify(parentKey, node.PublicKey, node.Signature); err != nil {
		return fmt.Errorf("%s: %w", node.Name, err)
	}

	if node.Parent == nil {
		return nil
	}

	return verifyNode(node.Parent, anchor, maxDepth, depth+1)
}

func isAnchor(key []byte, anchor VerifyingKey) bool {
	k, err := ParseVerifyingKey(key)
	if err != nil {
		return false
	}
	return k.Equal(anchor)
}

// IntermediateNode builds the chain link for an intermediate key signed by the anchor
func IntermediateNode(intermediate VerifyingKey, sig Signature) *Node {
	return &Node{Name: "intermediate", PublicKey: intermediate.Bytes(), Signature: sig.Bytes()}
}

// JournalistChain returns the leaf nodes for both keys of a journalist, each hanging off intermediate
func JournalistChain(name string, intermediate *Node, pj *PublicJournalist) (signing *Node, fetching *Node) {
	signing = &Node{
		Name:      name,
		PublicKey: pj.SigningKey.Bytes(),
		Signature: pj.SigningSignature.Bytes(),
		Parent:    intermediate,
	}
	fetchingKey := pj.FetchingKey
	fetching = &Node{
		Name:      name + "-fetching",
		PublicKey: fetchingKey[:],
		Signature: pj.FetchingSignature.Bytes(),
		Parent:    intermediate,
	}
	return signing, fetching
}
