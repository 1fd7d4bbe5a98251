package inter

import (
	"testing"

	"github.com/Conflux-Chain/conflux-light-contracts/utils/bcs"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func fakeEpochState(epoch uint64) *EpochState {
	return &EpochState{
		Epoch: epoch,
		Validators: []ValidatorEntry{
			{
				Account: common.Hash{0x01},
				Info: ValidatorInfo{
					CompressedPublicKey:   make([]byte, 48),
					UncompressedPublicKey: make([]byte, 96),
					VrfPublicKey:          []byte{0xaa, 0xbb},
					VotingPower:           3,
				},
			},
			{
				Account: common.Hash{0x02},
				Info: ValidatorInfo{
					CompressedPublicKey:   make([]byte, 48),
					UncompressedPublicKey: make([]byte, 96),
					VotingPower:           5,
				},
			},
		},
		QuorumVotingPower: 6,
		TotalVotingPower:  8,
		VrfSeed:           []byte{0x01, 0x02, 0x03},
	}
}

func fakeLedgerInfo() *LedgerInfo {
	return &LedgerInfo{
		Epoch:             7,
		Round:             42,
		ID:                common.Hash{0x11},
		ExecutedStateID:   common.Hash{0x22},
		Version:           100,
		TimestampUsecs:    1700000000000000,
		NextEpochState:    fakeEpochState(8),
		Pivot:             &Decision{BlockHash: common.Hash{0x33}, Height: idx.Block(555)},
		ConsensusDataHash: common.Hash{0x44},
		Signatures: []AccountSignature{
			{Account: common.Hash{0x01}, Signature: make([]byte, 192)},
			{Account: common.Hash{0x02}, Signature: make([]byte, 192)},
		},
	}
}

func TestLedgerInfo_Serialization(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		require := require.New(t)

		li := fakeLedgerInfo()
		raw, err := li.MarshalBinary()
		require.NoError(err)

		got := new(LedgerInfo)
		require.NoError(got.UnmarshalBinary(raw))
		require.Equal(li, got)
	})

	t.Run("round trip without options", func(t *testing.T) {
		require := require.New(t)

		li := fakeLedgerInfo()
		li.NextEpochState = nil
		li.Pivot = nil
		li.Signatures = nil
		raw, err := li.MarshalBinary()
		require.NoError(err)

		got := new(LedgerInfo)
		require.NoError(got.UnmarshalBinary(raw))
		require.Nil(got.NextEpochState)
		require.Nil(got.Pivot)
		require.Empty(got.Signatures)
	})

	t.Run("deterministic", func(t *testing.T) {
		require := require.New(t)

		a, err := fakeLedgerInfo().MarshalBinary()
		require.NoError(err)
		b, err := fakeLedgerInfo().MarshalBinary()
		require.NoError(err)
		require.Equal(a, b)
	})

	t.Run("unsorted signatures rejected", func(t *testing.T) {
		li := fakeLedgerInfo()
		li.Signatures[0], li.Signatures[1] = li.Signatures[1], li.Signatures[0]
		_, err := li.MarshalBinary()
		require.ErrorIs(t, err, ErrSerMalformedRecord)
	})

	t.Run("duplicate signer rejected", func(t *testing.T) {
		li := fakeLedgerInfo()
		li.Signatures[1].Account = li.Signatures[0].Account
		_, err := li.MarshalBinary()
		require.ErrorIs(t, err, ErrSerMalformedRecord)
	})

	t.Run("unsorted validators rejected", func(t *testing.T) {
		li := fakeLedgerInfo()
		vs := li.NextEpochState.Validators
		vs[0], vs[1] = vs[1], vs[0]
		_, err := li.MarshalBinary()
		require.ErrorIs(t, err, ErrSerMalformedRecord)
	})

	t.Run("trailing bytes rejected", func(t *testing.T) {
		raw, err := fakeLedgerInfo().MarshalBinary()
		require.NoError(t, err)

		got := new(LedgerInfo)
		err = got.UnmarshalBinary(append(raw, 0x00))
		require.ErrorIs(t, err, bcs.ErrNonCanonicalEncoding)
	})

	t.Run("truncation rejected", func(t *testing.T) {
		raw, err := fakeLedgerInfo().MarshalBinary()
		require.NoError(t, err)

		got := new(LedgerInfo)
		err = got.UnmarshalBinary(raw[:len(raw)-1])
		require.Error(t, err)
	})
}

func TestLedgerInfo_SigningBytes(t *testing.T) {
	require := require.New(t)

	li := fakeLedgerInfo()
	msg, err := li.SigningBytes()
	require.NoError(err)
	require.Equal(ledgerInfoPrefix[:], msg[:32], "message starts with the domain prefix")

	// The signature set does not participate in the signed message.
	stripped := fakeLedgerInfo()
	stripped.Signatures = nil
	msg2, err := stripped.SigningBytes()
	require.NoError(err)
	require.Equal(msg, msg2)

	// Every body field does.
	changed := fakeLedgerInfo()
	changed.Round++
	msg3, err := changed.SigningBytes()
	require.NoError(err)
	require.NotEqual(msg, msg3)
}

// TestLedgerInfo_Layout pins the option-tag layout of a minimal record so the
// wire format cannot drift silently.
func TestLedgerInfo_Layout(t *testing.T) {
	require := require.New(t)

	li := &LedgerInfo{Epoch: 1, Round: 2}
	raw, err := li.MarshalBinary()
	require.NoError(err)

	// epoch(8) round(8) id(32) executed(32) version(8) timestamp(8)
	// option(1) option(1) consensus(32) sigcount(1)
	require.Len(raw, 8+8+32+32+8+8+1+1+32+1)
	require.Equal(byte(0x00), raw[96], "next epoch state absent")
	require.Equal(byte(0x00), raw[97], "pivot absent")
	require.Equal(byte(0x00), raw[len(raw)-1], "no signatures")
}
