package lightclient

import (
	"math/big"
	"testing"

	"github.com/Conflux-Chain/conflux-light-contracts/crypto/bls"
	"github.com/Conflux-Chain/conflux-light-contracts/inter"
	"github.com/Conflux-Chain/conflux-light-contracts/mpt"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/require"
	blst "github.com/supranational/blst/bindings/go"
)

// testValidator is a committee member with its signing key. Accounts are
// assigned in ascending order so fixtures satisfy the sorting invariants.
type testValidator struct {
	account common.Hash
	sk      *blst.SecretKey
	pk      []byte
	power   uint64
}

func newValidators(t *testing.T, powers ...uint64) []testValidator {
	return newValidatorsFrom(t, 1, powers...)
}

// newValidatorsFrom derives validators with accounts and keys seeded from
// base, so two committees built from different bases share nothing.
func newValidatorsFrom(t *testing.T, base byte, powers ...uint64) []testValidator {
	t.Helper()
	vals := make([]testValidator, 0, len(powers))
	for i, power := range powers {
		ikm := make([]byte, 32)
		ikm[0] = base + byte(i)
		sk := blst.KeyGen(ikm)
		require.NotNil(t, sk)
		vals = append(vals, testValidator{
			account: common.Hash{base + byte(i)},
			sk:      sk,
			pk:      new(blst.P1Affine).From(sk).Serialize(),
			power:   power,
		})
	}
	return vals
}

func epochStateOf(epoch, quorum uint64, vals []testValidator) *inter.EpochState {
	es := &inter.EpochState{
		Epoch:             epoch,
		QuorumVotingPower: quorum,
	}
	for _, v := range vals {
		es.Validators = append(es.Validators, inter.ValidatorEntry{
			Account: v.account,
			Info: inter.ValidatorInfo{
				UncompressedPublicKey: v.pk,
				VotingPower:           v.power,
			},
		})
		es.TotalVotingPower += v.power
	}
	return es
}

// signRecord fills in the record's signature set. Signers must be passed in
// ascending account order.
func signRecord(t *testing.T, li *inter.LedgerInfo, signers ...testValidator) {
	t.Helper()
	message, err := li.SigningBytes()
	require.NoError(t, err)

	li.Signatures = li.Signatures[:0]
	for _, v := range signers {
		sig := new(blst.P2Affine).Sign(v.sk, message, bls.DomainSeparationTag)
		li.Signatures = append(li.Signatures, inter.AccountSignature{
			Account:   v.account,
			Signature: sig.Serialize(),
		})
	}
}

func makeHeader(height idx.Block, parent common.Hash, receiptsRoot common.Hash) *inter.BlockHeader {
	return &inter.BlockHeader{
		ParentHash:           parent,
		Height:               height,
		Timestamp:            1700000000 + uint64(height),
		DeferredReceiptsRoot: receiptsRoot,
		Difficulty:           big.NewInt(1 << 20),
		GasLimit:             big.NewInt(30000000),
		Nonce:                big.NewInt(int64(height)),
	}
}

// makeProofFixture builds a minimal but cryptographically sound two-segment
// receipt proof: one leaf trie anchoring the per-block receipts root under
// the deferred root, and one leaf trie anchoring the receipt under the
// receipts root.
func makeProofFixture(t *testing.T, height idx.Block) (common.Hash, *inter.ReceiptProof) {
	t.Helper()

	receipt := inter.TxReceipt{
		AccumulatedGasUsed: 21000,
		GasFee:             big.NewInt(1000),
		LogBloom:           make([]byte, 256),
		Logs: []inter.TxLog{
			{
				Addr:   common.Address{0xaa},
				Topics: []common.Hash{{0xbb}},
				Data:   []byte{0xcc},
			},
		},
	}
	encodedReceipt, err := rlp.EncodeToBytes(&receipt)
	require.NoError(t, err)

	index := []byte{0x00}
	receiptLeaf := mpt.ProofNode{Path: mpt.NibblesOf(index), Value: encodedReceipt}
	receiptsRoot := receiptLeaf.Hash()

	blockIndex := []byte{0x67}
	blockLeaf := mpt.ProofNode{Path: mpt.NibblesOf(blockIndex), Value: receiptsRoot.Bytes()}
	deferredRoot := blockLeaf.Hash()

	return deferredRoot, &inter.ReceiptProof{
		Height:       height,
		BlockIndex:   blockIndex,
		BlockProof:   []mpt.ProofNode{blockLeaf},
		ReceiptsRoot: receiptsRoot,
		Index:        index,
		Receipt:      receipt,
		ReceiptProof: []mpt.ProofNode{receiptLeaf},
	}
}

// recordingNotifier captures post-commit notifications for assertions.
type recordingNotifier struct {
	clientUpdates []idx.Block // pivot heights
	headerRanges  [][2]idx.Block
}

func (n *recordingNotifier) OnClientUpdated(epoch, round uint64, pivotHeight idx.Block) {
	n.clientUpdates = append(n.clientUpdates, pivotHeight)
}

func (n *recordingNotifier) OnHeadersUpdated(start, end idx.Block) {
	n.headerRanges = append(n.headerRanges, [2]idx.Block{start, end})
}

// fixture is an initialized client over a three-member committee with voting
// powers 1/1/1 and quorum 2, anchored at a genesis block of height 100, plus
// a pre-built header chain for heights 101..105. Height 103 carries the
// deferred root of a provable receipt, height 104 carries no receipts.
type fixture struct {
	lc      *LightClient
	vals    []testValidator
	genesis *inter.BlockHeader
	headers []*inter.BlockHeader // ascending, heights 101..105
	proof   *inter.ReceiptProof  // valid at height 103
	notif   *recordingNotifier
}

const genesisHeight = idx.Block(100)

func newFixture(t *testing.T, maxBlocks uint64) *fixture {
	t.Helper()

	f := &fixture{
		vals:  newValidators(t, 1, 1, 1),
		notif: new(recordingNotifier),
	}

	var err error
	f.lc, err = NewLightClient(Config{
		Controller: common.Address{0x01},
		MaxBlocks:  maxBlocks,
		Notifier:   f.notif,
	})
	require.NoError(t, err)

	deferredRoot, proof := makeProofFixture(t, genesisHeight+3)
	f.proof = proof

	f.genesis = makeHeader(genesisHeight, common.Hash{0xee}, inter.KnownEmptyRoots[1])
	parent := f.genesis.Hash()
	for i := idx.Block(1); i <= 5; i++ {
		root := common.Hash{0xd0 + byte(i)}
		switch i {
		case 3:
			root = deferredRoot
		case 4:
			root = inter.KnownEmptyRoots[1]
		}
		h := makeHeader(genesisHeight+i, parent, root)
		f.headers = append(f.headers, h)
		parent = h.Hash()
	}

	genesis := &inter.LedgerInfo{
		Epoch:          0,
		NextEpochState: epochStateOf(1, 2, f.vals),
		Pivot:          &inter.Decision{BlockHash: f.genesis.Hash(), Height: genesisHeight},
	}
	require.NoError(t, f.lc.Initialize(genesis, f.genesis))
	return f
}

// headerAt returns the pre-built header of the given height.
func (f *fixture) headerAt(height idx.Block) *inter.BlockHeader {
	return f.headers[height-genesisHeight-1]
}

// record builds a committee-signed record for the fixture's current epoch.
func (f *fixture) record(t *testing.T, epoch, round uint64, pivot *inter.Decision, signers ...testValidator) *inter.LedgerInfo {
	t.Helper()
	li := &inter.LedgerInfo{
		Epoch: epoch,
		Round: round,
		Pivot: pivot,
	}
	signRecord(t, li, signers...)
	return li
}

// finalizeTip accepts a record finalizing the fixture's height-105 tip and
// relays the full header chain, leaving the client with a closed window.
func (f *fixture) finalizeTip(t *testing.T) {
	t.Helper()
	tip := f.headerAt(genesisHeight + 5)
	li := f.record(t, 1, 2, &inter.Decision{BlockHash: tip.Hash(), Height: tip.Height}, f.vals[0], f.vals[1])
	require.NoError(t, f.lc.UpdateLightClient(li))
	require.NoError(t, f.lc.UpdateBlockHeaders(f.headers))
}
