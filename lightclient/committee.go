package lightclient

import (
	"bytes"
	"fmt"

	"github.com/Conflux-Chain/conflux-light-contracts/crypto/bls"
	"github.com/Conflux-Chain/conflux-light-contracts/inter"
	"github.com/ethereum/go-ethereum/common"
)

// CommitteeMember is the live projection of one validator: the uncompressed
// consensus public key and its voting power.
type CommitteeMember struct {
	PublicKey   []byte
	VotingPower uint64
}

// Committee is the active validator set of the current epoch. It pairs a
// stable ascending account list (iteration order) with a hash index
// (membership lookups), kept in sync on every replacement. Exactly one
// Committee exists per light client instance; it is replaced wholesale on
// every epoch change, never merged.
type Committee struct {
	accounts []common.Hash
	members  map[common.Hash]CommitteeMember
	quorum   uint64
}

// Update replaces the committee with the validator set of es: every
// previously present account is dropped, then every validator of the new
// epoch is inserted. A validator with zero voting power, a malformed public
// key, or an out-of-order account list rejects the whole update and leaves
// the committee untouched.
func (c *Committee) Update(es *inter.EpochState) error {
	accounts := make([]common.Hash, 0, len(es.Validators))
	members := make(map[common.Hash]CommitteeMember, len(es.Validators))

	prev := common.Hash{}
	for i, v := range es.Validators {
		if i > 0 && bytes.Compare(v.Account.Bytes(), prev.Bytes()) <= 0 {
			return fmt.Errorf("%w: validators not sorted by account", ErrInvalidNextEpoch)
		}
		prev = v.Account
		if v.Info.VotingPower == 0 {
			return fmt.Errorf("%w: validator %v has zero voting power", ErrInvalidNextEpoch, v.Account)
		}
		if len(v.Info.UncompressedPublicKey) != bls.PublicKeyLength {
			return fmt.Errorf("%w: validator %v has malformed public key", ErrInvalidNextEpoch, v.Account)
		}
		accounts = append(accounts, v.Account)
		members[v.Account] = CommitteeMember{
			PublicKey:   v.Info.UncompressedPublicKey,
			VotingPower: v.Info.VotingPower,
		}
	}

	c.accounts = accounts
	c.members = members
	c.quorum = es.QuorumVotingPower
	return nil
}

// Validate checks a ledger record against the committee: signer accounts
// must be strictly increasing (which makes duplicate detection a linear
// scan), every signer must be a member, the batch BLS verification over the
// record's signing bytes must pass, and the accumulated voting power of the
// signers must reach the quorum threshold.
func (c *Committee) Validate(li *inter.LedgerInfo) error {
	var (
		power      uint64
		signatures = make([][]byte, 0, len(li.Signatures))
		publicKeys = make([][]byte, 0, len(li.Signatures))
	)

	prev := common.Hash{}
	for i, s := range li.Signatures {
		if i > 0 && bytes.Compare(s.Account.Bytes(), prev.Bytes()) <= 0 {
			return ErrSignatureOrderViolation
		}
		prev = s.Account

		member, ok := c.members[s.Account]
		if !ok {
			return fmt.Errorf("%w: %v", ErrUnknownSigner, s.Account)
		}
		power += member.VotingPower
		signatures = append(signatures, s.Signature)
		publicKeys = append(publicKeys, member.PublicKey)
	}

	if len(signatures) > 0 {
		message, err := li.SigningBytes()
		if err != nil {
			return err
		}
		ok, err := bls.BatchVerify(signatures, message, publicKeys)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSignatureInvalid
		}
	}

	if power < c.quorum {
		return fmt.Errorf("%w: %d < %d", ErrQuorumNotMet, power, c.quorum)
	}
	return nil
}

// Quorum returns the committee's quorum voting power threshold.
func (c *Committee) Quorum() uint64 {
	return c.quorum
}

// Size returns the number of committee members.
func (c *Committee) Size() int {
	return len(c.accounts)
}

// Accounts returns the member accounts in ascending order.
func (c *Committee) Accounts() []common.Hash {
	out := make([]common.Hash, len(c.accounts))
	copy(out, c.accounts)
	return out
}
