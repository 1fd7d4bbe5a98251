package inter

import (
	"errors"
	"io"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidBoolByte is returned when a list-format boolean decodes to
// anything other than a single 0x00 or 0x01 byte.
var ErrInvalidBoolByte = errors.New("rlp: invalid boolean byte")

// Bool is a boolean with this chain's list-format convention: false is
// serialized as the single byte 0x00 rather than as an empty byte string.
// The deviation must be reproduced exactly or all downstream header hashes
// mismatch.
type Bool bool

// EncodeRLP implements rlp.Encoder.
func (b Bool) EncodeRLP(w io.Writer) error {
	v := byte(0x00)
	if b {
		v = 0x01
	}
	_, err := w.Write([]byte{v})
	return err
}

// DecodeRLP implements rlp.Decoder.
func (b *Bool) DecodeRLP(s *rlp.Stream) error {
	bz, err := s.Bytes()
	if err != nil {
		return err
	}
	if len(bz) != 1 || bz[0] > 1 {
		return ErrInvalidBoolByte
	}
	*b = bz[0] == 1
	return nil
}

// PosReference is an optional link from a PoW header into the PoS consensus
// record chain, serialized as a list of zero or one block ids.
type PosReference []common.Hash

// BlockHeader is a source-chain PoW block header. Its canonical hash is a
// pure function of the fields: the keccak256 digest of the header's
// list-format encoding.
//
// Execution on the source chain is deferred: the receipts root carried by a
// header commits to the execution of an earlier block, hence the Deferred*
// field names.
type BlockHeader struct {
	ParentHash            common.Hash
	Height                idx.Block
	Timestamp             uint64
	Author                common.Address
	TransactionsRoot      common.Hash
	DeferredStateRoot     common.Hash
	DeferredReceiptsRoot  common.Hash
	DeferredLogsBloomHash common.Hash
	Blame                 uint32
	Difficulty            *big.Int
	Adaptive              Bool
	GasLimit              *big.Int
	RefereeHashes         []common.Hash
	Custom                [][]byte
	Nonce                 *big.Int
	PosReference          PosReference
}

// Hash computes the canonical header hash. Recomputing it from identical
// field values always yields an identical digest.
func (h *BlockHeader) Hash() common.Hash {
	raw, err := rlp.EncodeToBytes(h)
	if err != nil {
		panic("can't hash header: " + err.Error())
	}
	return crypto.Keccak256Hash(raw)
}

// KnownEmptyRoots are receipts-root values of headers that carry no
// receipts at all. Heights whose deferred receipts root matches one of
// these are never charged against the light client's retention budget.
var KnownEmptyRoots = []common.Hash{
	{},                                 // unset root
	crypto.Keccak256Hash(nil),          // keccak256 of empty input
	crypto.Keccak256Hash([]byte{0x80}), // keccak256 of the empty list-format string
}

// IsKnownEmptyRoot reports whether root matches a precomputed empty
// receipts root.
func IsKnownEmptyRoot(root common.Hash) bool {
	for _, known := range KnownEmptyRoots {
		if root == known {
			return true
		}
	}
	return false
}
