package lightclient

import (
	"fmt"

	"github.com/Conflux-Chain/conflux-light-contracts/inter"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// ValidateHeaderChain checks that a contiguous batch of headers (ascending
// by height) links correctly to an already-trusted terminal. The walk runs
// in descending order: each header's canonical hash must equal the currently
// expected hash and its height the currently expected height, after which
// the header's parent hash and height-1 become the next expectation.
//
// On success the head (lowest-height) header of the batch is returned; the
// caller uses it to extend retained history downward.
func ValidateHeaderChain(headers []*inter.BlockHeader, expectedHeight idx.Block, expectedHash common.Hash) (*inter.BlockHeader, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: empty header batch", ErrHeaderChainBroken)
	}

	for i := len(headers) - 1; i >= 0; i-- {
		h := headers[i]
		if h.Height != expectedHeight {
			return nil, fmt.Errorf("%w: height %d, want %d", ErrHeaderChainBroken, h.Height, expectedHeight)
		}
		if hash := h.Hash(); hash != expectedHash {
			return nil, fmt.Errorf("%w: hash %v at height %d, want %v", ErrHeaderChainBroken, hash, h.Height, expectedHash)
		}
		if i > 0 {
			if h.Height == 0 {
				return nil, fmt.Errorf("%w: batch extends below genesis", ErrHeaderChainBroken)
			}
			expectedHeight = h.Height - 1
			expectedHash = h.ParentHash
		}
	}
	return headers[0], nil
}
