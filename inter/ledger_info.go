// Package inter defines the core data structures of the PoS light client:
// signed ledger records produced by the source chain's consensus (serialized
// with the canonical record format, package utils/bcs) and PoW block headers
// and transaction receipts (serialized with the list format, go-ethereum RLP
// with this chain's boolean convention).
package inter

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/Conflux-Chain/conflux-light-contracts/utils/bcs"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// Errors related to ledger record serialization.
var (
	ErrSerMalformedRecord = errors.New("serialization of malformed record: structure violates protocol rules")
)

// ledgerInfoPrefix is the fixed 32-byte domain-separation prefix prepended to
// every signed ledger record before hashing or signing.
var ledgerInfoPrefix = sha256.Sum256([]byte("CFX::LedgerInfoWithSignatures"))

// Byte-length limits for validator key material.
const (
	// MaxPublicKeyLength bounds consensus public keys: 48 bytes compressed,
	// 96 bytes uncompressed, or 128 bytes in padded-coordinate form.
	MaxPublicKeyLength = 128
	// MaxVrfKeyLength bounds VRF public keys.
	MaxVrfKeyLength = 128
	// MaxSignatureLength bounds per-account consensus signatures
	// (192 bytes for an uncompressed G2 point).
	MaxSignatureLength = 192
)

// ValidatorInfo carries the key material and voting power of a single
// committee member. The consensus public key is kept in both compressed and
// uncompressed form; signature verification uses the uncompressed one.
type ValidatorInfo struct {
	CompressedPublicKey   []byte
	UncompressedPublicKey []byte
	VrfPublicKey          []byte // optional
	VotingPower           uint64
}

// ValidatorEntry binds a 32-byte account identifier to its validator info.
// Entries of an epoch are ordered by ascending account; the order is a
// serialization invariant, not just a convenience.
type ValidatorEntry struct {
	Account common.Hash
	Info    ValidatorInfo
}

// EpochState describes the validator committee of one epoch. It is produced
// once per epoch transition and never mutated afterwards.
type EpochState struct {
	Epoch             uint64
	Validators        []ValidatorEntry // ascending by account
	QuorumVotingPower uint64
	TotalVotingPower  uint64
	VrfSeed           []byte
}

// Decision is the pivot decision of a ledger record: the (hash, height) of
// the source-chain block the record finalizes.
type Decision struct {
	BlockHash common.Hash
	Height    idx.Block
}

// AccountSignature is one committee member's BLS signature over a record.
type AccountSignature struct {
	Account   common.Hash
	Signature []byte
}

// LedgerInfo is a consensus record signed by the committee. A record is
// accepted only when the accumulated voting power of its valid signers
// reaches the committee's quorum threshold.
type LedgerInfo struct {
	Epoch             uint64
	Round             uint64
	ID                common.Hash
	ExecutedStateID   common.Hash
	Version           uint64
	TimestampUsecs    uint64
	NextEpochState    *EpochState // non-nil on the last record of an epoch
	Pivot             *Decision   // non-nil when the record finalizes a block
	ConsensusDataHash common.Hash
	Signatures        []AccountSignature // ascending by account, no duplicates
}

// MarshalBCS writes the epoch state in the canonical record format.
// The validator map is encoded as a length-prefixed sequence of
// (account, info) pairs in key-ascending order.
func (es *EpochState) MarshalBCS(w *bcs.Writer) error {
	w.U64(es.Epoch)
	w.Uleb128(uint64(len(es.Validators)))
	prev := common.Hash{}
	for i, v := range es.Validators {
		if i > 0 && bytes.Compare(v.Account.Bytes(), prev.Bytes()) <= 0 {
			return ErrSerMalformedRecord
		}
		prev = v.Account
		w.FixedBytes(v.Account.Bytes())
		w.SliceBytes(v.Info.CompressedPublicKey)
		w.SliceBytes(v.Info.UncompressedPublicKey)
		w.Option(v.Info.VrfPublicKey != nil)
		if v.Info.VrfPublicKey != nil {
			w.SliceBytes(v.Info.VrfPublicKey)
		}
		w.U64(v.Info.VotingPower)
	}
	w.U64(es.QuorumVotingPower)
	w.U64(es.TotalVotingPower)
	w.SliceBytes(es.VrfSeed)
	return nil
}

func epochStateUnmarshalBCS(r *bcs.Reader, es *EpochState) error {
	es.Epoch = r.U64()
	num := r.Uleb128()
	if num > bcs.MaxAlloc/32 {
		return bcs.ErrTooLargeAlloc
	}
	es.Validators = make([]ValidatorEntry, 0, num)
	prev := common.Hash{}
	for i := uint64(0); i < num; i++ {
		var v ValidatorEntry
		r.FixedBytes(v.Account[:])
		if i > 0 && bytes.Compare(v.Account.Bytes(), prev.Bytes()) <= 0 {
			return bcs.ErrNonCanonicalEncoding
		}
		prev = v.Account
		v.Info.CompressedPublicKey = r.SliceBytes(MaxPublicKeyLength)
		v.Info.UncompressedPublicKey = r.SliceBytes(MaxPublicKeyLength)
		if r.Option() {
			v.Info.VrfPublicKey = r.SliceBytes(MaxVrfKeyLength)
		}
		v.Info.VotingPower = r.U64()
		es.Validators = append(es.Validators, v)
	}
	es.QuorumVotingPower = r.U64()
	es.TotalVotingPower = r.U64()
	es.VrfSeed = r.SliceBytes(bcs.MaxAlloc)
	return nil
}

// MarshalBCS writes the pivot decision in the canonical record format.
func (d *Decision) MarshalBCS(w *bcs.Writer) error {
	w.FixedBytes(d.BlockHash.Bytes())
	w.U64(uint64(d.Height))
	return nil
}

func decisionUnmarshalBCS(r *bcs.Reader, d *Decision) error {
	r.FixedBytes(d.BlockHash[:])
	d.Height = idx.Block(r.U64())
	return nil
}

// marshalBody writes every field of the record except the signature set.
// This is exactly the byte string committee members sign (after the domain
// prefix), so it must stay bit-exact across implementations.
func (li *LedgerInfo) marshalBody(w *bcs.Writer) error {
	w.U64(li.Epoch)
	w.U64(li.Round)
	w.FixedBytes(li.ID.Bytes())
	w.FixedBytes(li.ExecutedStateID.Bytes())
	w.U64(li.Version)
	w.U64(li.TimestampUsecs)
	w.Option(li.NextEpochState != nil)
	if li.NextEpochState != nil {
		if err := li.NextEpochState.MarshalBCS(w); err != nil {
			return err
		}
	}
	w.Option(li.Pivot != nil)
	if li.Pivot != nil {
		if err := li.Pivot.MarshalBCS(w); err != nil {
			return err
		}
	}
	w.FixedBytes(li.ConsensusDataHash.Bytes())
	return nil
}

// MarshalBCS writes the full record including its signature set.
func (li *LedgerInfo) MarshalBCS(w *bcs.Writer) error {
	if err := li.marshalBody(w); err != nil {
		return err
	}
	w.Uleb128(uint64(len(li.Signatures)))
	prev := common.Hash{}
	for i, s := range li.Signatures {
		if i > 0 && bytes.Compare(s.Account.Bytes(), prev.Bytes()) <= 0 {
			return ErrSerMalformedRecord
		}
		prev = s.Account
		w.FixedBytes(s.Account.Bytes())
		w.SliceBytes(s.Signature)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (li *LedgerInfo) MarshalBinary() ([]byte, error) {
	return bcs.MarshalBinaryAdapter(li.MarshalBCS)
}

func ledgerInfoUnmarshalBCS(r *bcs.Reader, li *LedgerInfo) error {
	li.Epoch = r.U64()
	li.Round = r.U64()
	r.FixedBytes(li.ID[:])
	r.FixedBytes(li.ExecutedStateID[:])
	li.Version = r.U64()
	li.TimestampUsecs = r.U64()
	if r.Option() {
		li.NextEpochState = new(EpochState)
		if err := epochStateUnmarshalBCS(r, li.NextEpochState); err != nil {
			return err
		}
	}
	if r.Option() {
		li.Pivot = new(Decision)
		if err := decisionUnmarshalBCS(r, li.Pivot); err != nil {
			return err
		}
	}
	r.FixedBytes(li.ConsensusDataHash[:])

	num := r.Uleb128()
	if num > bcs.MaxAlloc/32 {
		return bcs.ErrTooLargeAlloc
	}
	li.Signatures = make([]AccountSignature, 0, num)
	prev := common.Hash{}
	for i := uint64(0); i < num; i++ {
		var s AccountSignature
		r.FixedBytes(s.Account[:])
		if i > 0 && bytes.Compare(s.Account.Bytes(), prev.Bytes()) <= 0 {
			return bcs.ErrNonCanonicalEncoding
		}
		prev = s.Account
		s.Signature = r.SliceBytes(MaxSignatureLength)
		li.Signatures = append(li.Signatures, s)
	}
	return nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (li *LedgerInfo) UnmarshalBinary(raw []byte) error {
	return bcs.UnmarshalBinaryAdapter(raw, func(r *bcs.Reader) error {
		return ledgerInfoUnmarshalBCS(r, li)
	})
}

// SigningBytes returns the message committee members sign: the 32-byte
// domain-separation prefix followed by the canonical encoding of the record
// body (the signature set itself is excluded).
func (li *LedgerInfo) SigningBytes() ([]byte, error) {
	body, err := bcs.MarshalBinaryAdapter(li.marshalBody)
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(ledgerInfoPrefix)+len(body))
	msg = append(msg, ledgerInfoPrefix[:]...)
	msg = append(msg, body...)
	return msg, nil
}
