package inter

import (
	"math/big"

	"github.com/Conflux-Chain/conflux-light-contracts/mpt"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxLog is a single event log emitted by a transaction.
type TxLog struct {
	Addr   common.Address
	Topics []common.Hash
	Data   []byte
}

// StorageChange records collateral locked or released for one account
// during transaction execution.
type StorageChange struct {
	Account     common.Address
	Collaterals uint64
}

// TxReceipt is the execution receipt of a single transaction. Its canonical
// digest anchors the receipt under a block's receipts root.
type TxReceipt struct {
	AccumulatedGasUsed    uint64
	GasFee                *big.Int
	GasSponsorPaid        Bool
	LogBloom              []byte
	Logs                  []TxLog
	OutcomeStatus         uint8
	StorageSponsorPaid    Bool
	StorageCollateralized []StorageChange
	StorageReleased       []StorageChange
}

// Hash computes the receipt digest: the keccak256 of the receipt's
// list-format encoding. This is the leaf value hash of receipt inclusion
// proofs.
func (r *TxReceipt) Hash() common.Hash {
	raw, err := rlp.EncodeToBytes(r)
	if err != nil {
		panic("can't hash receipt: " + err.Error())
	}
	return crypto.Keccak256Hash(raw)
}

// ReceiptProof proves that one receipt was included in a finalized block.
// It is a two-segment trie proof: BlockProof anchors ReceiptsRoot under the
// root the light client retains for Height, and the receipt proof anchors
// the encoded receipt under ReceiptsRoot.
type ReceiptProof struct {
	// Height of the retained root the proof is anchored at.
	Height idx.Block
	// BlockIndex keys the per-block receipts root inside the retained root.
	BlockIndex []byte
	BlockProof []mpt.ProofNode
	// ReceiptsRoot is the per-block receipts trie root.
	ReceiptsRoot common.Hash
	// Index keys the receipt inside the receipts trie (transaction index).
	Index        []byte
	Receipt      TxReceipt
	ReceiptProof []mpt.ProofNode
}

// DecodeReceiptProof decodes a list-format encoded receipt proof, as
// accepted by VerifyProofData.
func DecodeReceiptProof(raw []byte) (*ReceiptProof, error) {
	proof := new(ReceiptProof)
	if err := rlp.DecodeBytes(raw, proof); err != nil {
		return nil, err
	}
	return proof, nil
}

// EncodeLogs serializes proven logs in the list format for callers that
// consume VerifyProofData's byte-oriented result.
func EncodeLogs(logs []TxLog) ([]byte, error) {
	return rlp.EncodeToBytes(logs)
}

// DecodeLogs is the inverse of EncodeLogs.
func DecodeLogs(raw []byte) ([]TxLog, error) {
	var logs []TxLog
	if err := rlp.DecodeBytes(raw, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
