// Package lightclient implements a PoS light client for the source chain:
// it tracks the rotating BLS validator committee and a window of PoW block
// headers, and proves that an event log was emitted in a block the committee
// has finalized.
//
// A LightClient executes one operation at a time to completion; concurrent
// callers against the same instance must be serialized by the hosting
// environment. Every mutating operation either fully applies or aborts with
// no side effects.
package lightclient

import (
	"fmt"

	"github.com/Conflux-Chain/conflux-light-contracts/inter"
	"github.com/Conflux-Chain/conflux-light-contracts/mpt"
	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBlocks caps retained non-trivial history when the configuration
// leaves it unset.
const DefaultMaxBlocks = 1036800

// Notifier receives event-like notifications after a state transition has
// been committed. Calls are synchronous; implementations must not call back
// into the light client.
type Notifier interface {
	// OnClientUpdated fires after a consensus record is accepted.
	// pivotHeight is zero when the record advanced no pivot.
	OnClientUpdated(epoch, round uint64, pivotHeight idx.Block)
	// OnHeadersUpdated fires after a header batch is accepted.
	OnHeadersUpdated(start, end idx.Block)
}

// ClientState holds the scalar state of one light client instance. It is
// mutated only by the instance's own accept/prune operations.
type ClientState struct {
	Epoch uint64
	Round uint64

	// EarliestBlockNumber..FinalizedBlockNumber is the height range the
	// client can currently answer for, minus heights inside an open relay
	// window.
	EarliestBlockNumber  idx.Block
	FinalizedBlockNumber idx.Block

	// Blocks counts retained non-trivial heights; MaxBlocks caps it.
	Blocks    uint64
	MaxBlocks uint64

	// In-flight relay window: while a finalized range is still being walked
	// back to a known point, heights in [start, end] are not yet resolved.
	// The window is open iff end >= start.
	RelayBlockStartNumber idx.Block
	RelayBlockEndNumber   idx.Block
	RelayBlockEndHash     common.Hash
}

// relayOpen reports whether a header relay window is still being backfilled.
func (s *ClientState) relayOpen() bool {
	return s.RelayBlockEndNumber >= s.RelayBlockStartNumber
}

// Config carries the construction parameters of a light client instance.
type Config struct {
	// Controller is the administrative owner recorded for the hosting
	// layer's permission checks. Must be non-zero.
	Controller common.Address
	// MaxBlocks caps retained non-trivial history; 0 selects
	// DefaultMaxBlocks.
	MaxBlocks uint64
	// Logger receives structured operation logs; nil selects the standard
	// logger.
	Logger *logrus.Logger
	// Notifier, if non-nil, receives post-commit notifications.
	Notifier Notifier
}

// LightClient is the top-level controller. It owns its Committee and
// ClientState exclusively; there is no external mutation path besides the
// operations below.
type LightClient struct {
	cfg Config
	log *logrus.Entry

	committee   Committee
	state       ClientState
	roots       map[idx.Block]common.Hash // sparse height -> deferred receipts root
	initialized bool
}

// NewLightClient constructs an uninitialized instance.
func NewLightClient(cfg Config) (*LightClient, error) {
	if cfg.Controller == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero controller address", ErrInvalidConfiguration)
	}
	if cfg.MaxBlocks == 0 {
		cfg.MaxBlocks = DefaultMaxBlocks
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &LightClient{
		cfg:   cfg,
		log:   cfg.Logger.WithField("module", "lightclient"),
		roots: make(map[idx.Block]common.Hash),
	}, nil
}

// Initialize transitions the instance from uninitialized to active. The
// genesis record's embedded next-epoch committee becomes the first
// Committee, and its pivot decision becomes the finalized frontier. An
// optional genesis header must anchor to that pivot decision exactly.
func (lc *LightClient) Initialize(genesis *inter.LedgerInfo, genesisHeader *inter.BlockHeader) error {
	if lc.initialized {
		return fmt.Errorf("%w: already initialized", ErrInvalidConfiguration)
	}
	if genesis == nil || genesis.Pivot == nil {
		return fmt.Errorf("%w: genesis record carries no pivot decision", ErrInvalidConfiguration)
	}
	es := genesis.NextEpochState
	if es == nil {
		return fmt.Errorf("%w: genesis record carries no committee", ErrInvalidNextEpoch)
	}
	if es.Epoch != genesis.Epoch+1 {
		return fmt.Errorf("%w: epoch %d does not follow %d", ErrInvalidNextEpoch, es.Epoch, genesis.Epoch)
	}
	pivot := *genesis.Pivot
	if genesisHeader != nil {
		if genesisHeader.Height != pivot.Height {
			return fmt.Errorf("%w: genesis header height %d, want %d", ErrHeaderChainBroken, genesisHeader.Height, pivot.Height)
		}
		if hash := genesisHeader.Hash(); hash != pivot.BlockHash {
			return fmt.Errorf("%w: genesis header hash %v, want %v", ErrHeaderChainBroken, hash, pivot.BlockHash)
		}
	}
	if err := lc.committee.Update(es); err != nil {
		return err
	}

	lc.state = ClientState{
		Epoch:                es.Epoch,
		Round:                0, // awaiting first record of the new epoch
		EarliestBlockNumber:  pivot.Height,
		FinalizedBlockNumber: pivot.Height,
		MaxBlocks:            lc.cfg.MaxBlocks,
		// closed window: end < start
		RelayBlockStartNumber: pivot.Height + 1,
		RelayBlockEndNumber:   pivot.Height,
	}
	if genesisHeader != nil && !inter.IsKnownEmptyRoot(genesisHeader.DeferredReceiptsRoot) {
		lc.roots[pivot.Height] = genesisHeader.DeferredReceiptsRoot
		lc.state.Blocks = 1
	}
	lc.initialized = true

	lc.log.WithFields(logrus.Fields{
		"epoch":     lc.state.Epoch,
		"height":    pivot.Height,
		"committee": lc.committee.Size(),
		"quorum":    lc.committee.Quorum(),
	}).Info("Light client initialized")
	return nil
}

// UpdateLightClient accepts a committee-signed consensus record. The
// record's epoch must equal the current epoch and its round must strictly
// increase, unless it carries the next epoch's committee, in which case the
// epoch advances by one and the round resets. A record whose pivot height
// exceeds the finalized frontier advances the frontier and opens a header
// relay window that UpdateBlockHeaders must fully backfill before another
// record is accepted.
func (lc *LightClient) UpdateLightClient(li *inter.LedgerInfo) error {
	if !lc.initialized {
		return ErrUninitialized
	}
	s := lc.state
	if s.relayOpen() {
		return fmt.Errorf("%w: heights %d..%d", ErrRelayIncomplete, s.RelayBlockStartNumber, s.RelayBlockEndNumber)
	}
	if li.Epoch != s.Epoch {
		return fmt.Errorf("%w: got %d, want %d", ErrEpochMismatch, li.Epoch, s.Epoch)
	}
	if li.NextEpochState == nil && li.Round <= s.Round {
		return fmt.Errorf("%w: got %d, have %d", ErrRoundNotAdvancing, li.Round, s.Round)
	}
	if li.NextEpochState != nil && li.NextEpochState.Epoch != li.Epoch+1 {
		return fmt.Errorf("%w: epoch %d does not follow %d", ErrInvalidNextEpoch, li.NextEpochState.Epoch, li.Epoch)
	}

	// The current committee validates the record, including the record that
	// rotates it out.
	if err := lc.committee.Validate(li); err != nil {
		return err
	}

	// Stage the committee replacement without touching the live one, so a
	// rejected next epoch state leaves no trace.
	var next Committee
	if li.NextEpochState != nil {
		if err := next.Update(li.NextEpochState); err != nil {
			return err
		}
	}

	// All checks passed; commit.
	if li.NextEpochState != nil {
		lc.committee = next
		s.Epoch = li.Epoch + 1
		s.Round = 0
	} else {
		s.Round = li.Round
	}
	var pivotHeight idx.Block
	if li.Pivot != nil && li.Pivot.Height > s.FinalizedBlockNumber {
		s.RelayBlockStartNumber = s.FinalizedBlockNumber + 1
		s.RelayBlockEndNumber = li.Pivot.Height
		s.RelayBlockEndHash = li.Pivot.BlockHash
		s.FinalizedBlockNumber = li.Pivot.Height
		pivotHeight = li.Pivot.Height
	}
	lc.state = s

	lc.log.WithFields(logrus.Fields{
		"epoch":       s.Epoch,
		"round":       s.Round,
		"pivotHeight": pivotHeight,
	}).Info("Accepted consensus record")
	if lc.cfg.Notifier != nil {
		lc.cfg.Notifier.OnClientUpdated(s.Epoch, s.Round, pivotHeight)
	}
	return nil
}

// UpdateBlockHeaders accepts a batch of headers (ascending by height) that
// extends the open relay window downward. The batch must link to the
// window's end hash; heights whose deferred receipts root is a known-empty
// root are skipped and not charged against the retention budget. The window
// narrows to below the batch head, closing once the window start is reached.
func (lc *LightClient) UpdateBlockHeaders(headers []*inter.BlockHeader) error {
	if !lc.initialized {
		return ErrUninitialized
	}
	s := lc.state
	if !s.relayOpen() {
		return fmt.Errorf("%w: no pending relay window", ErrHeaderChainBroken)
	}

	head, err := ValidateHeaderChain(headers, s.RelayBlockEndNumber, s.RelayBlockEndHash)
	if err != nil {
		return err
	}
	if head.Height < s.RelayBlockStartNumber {
		return fmt.Errorf("%w: batch crosses relay window start %d", ErrHeaderChainBroken, s.RelayBlockStartNumber)
	}

	staged := make(map[idx.Block]common.Hash)
	for _, h := range headers {
		if !inter.IsKnownEmptyRoot(h.DeferredReceiptsRoot) {
			staged[h.Height] = h.DeferredReceiptsRoot
		}
	}

	// All checks passed; commit.
	for height, root := range staged {
		lc.roots[height] = root
	}
	s.Blocks += uint64(len(staged))
	end := s.RelayBlockEndNumber
	s.RelayBlockEndNumber = head.Height - 1
	s.RelayBlockEndHash = head.ParentHash
	lc.state = s

	lc.log.WithFields(logrus.Fields{
		"start":  head.Height,
		"end":    end,
		"blocks": s.Blocks,
	}).Info("Accepted block headers")
	if lc.cfg.Notifier != nil {
		lc.cfg.Notifier.OnHeadersUpdated(head.Height, end)
	}
	return nil
}

// resolvedFrontier is the highest height whose header has been walked:
// the finalized frontier, or just below an open relay window's start.
func (lc *LightClient) resolvedFrontier() idx.Block {
	if lc.state.relayOpen() {
		return lc.state.RelayBlockStartNumber - 1
	}
	return lc.state.FinalizedBlockNumber
}

// RemoveBlockHeaders reclaims at most limit units of retained non-trivial
// history from the earliest end, once the retained count exceeds the cap.
// Already-empty heights are skipped without being charged against limit.
func (lc *LightClient) RemoveBlockHeaders(limit uint64) error {
	if !lc.initialized {
		return ErrUninitialized
	}
	s := lc.state
	frontier := lc.resolvedFrontier()

	var removed uint64
	for removed < limit && s.Blocks > s.MaxBlocks && s.EarliestBlockNumber < frontier {
		if _, ok := lc.roots[s.EarliestBlockNumber]; ok {
			delete(lc.roots, s.EarliestBlockNumber)
			s.Blocks--
			removed++
		}
		s.EarliestBlockNumber++
	}
	lc.state = s

	if removed > 0 {
		lc.log.WithFields(logrus.Fields{
			"removed":  removed,
			"earliest": s.EarliestBlockNumber,
			"blocks":   s.Blocks,
		}).Info("Pruned block headers")
	}
	return nil
}

// VerifyReceiptProof proves that the proof's receipt was included in a
// finalized block and returns its logs. The queried height must lie inside
// the retained range and outside any open relay window; that is a hard
// error, while a rejected proof is reported as ok == false with no error.
func (lc *LightClient) VerifyReceiptProof(proof *inter.ReceiptProof) ([]inter.TxLog, bool, error) {
	if !lc.initialized {
		return nil, false, ErrUninitialized
	}
	s := lc.state
	height := proof.Height
	if height < s.EarliestBlockNumber || height > s.FinalizedBlockNumber {
		return nil, false, fmt.Errorf("%w: height %d outside [%d, %d]", ErrHeightOutOfRange, height, s.EarliestBlockNumber, s.FinalizedBlockNumber)
	}
	if s.relayOpen() && height >= s.RelayBlockStartNumber && height <= s.RelayBlockEndNumber {
		return nil, false, fmt.Errorf("%w: height %d not yet relayed", ErrHeightOutOfRange, height)
	}

	root, ok := lc.roots[height]
	if !ok {
		// Nothing was ever executed at that height; no log can be proven.
		return nil, false, nil
	}
	if !mpt.Prove(root, proof.BlockIndex, crypto.Keccak256Hash(proof.ReceiptsRoot.Bytes()), proof.BlockProof) {
		return nil, false, nil
	}
	if !mpt.Prove(proof.ReceiptsRoot, proof.Index, proof.Receipt.Hash(), proof.ReceiptProof) {
		return nil, false, nil
	}
	return proof.Receipt.Logs, true, nil
}

// VerifyProofData is the byte-oriented form of VerifyReceiptProof: it
// decodes a list-format encoded proof and returns list-format encoded logs.
// A rejected proof is an expected outcome, so failures surface as a
// human-readable message rather than an error.
func (lc *LightClient) VerifyProofData(encoded []byte) (success bool, message string, encodedLogs []byte) {
	proof, err := inter.DecodeReceiptProof(encoded)
	if err != nil {
		return false, "malformed proof data: " + err.Error(), nil
	}
	logs, ok, err := lc.VerifyReceiptProof(proof)
	if err != nil {
		return false, err.Error(), nil
	}
	if !ok {
		return false, "receipt proof verification failed", nil
	}
	raw, err := inter.EncodeLogs(logs)
	if err != nil {
		return false, err.Error(), nil
	}
	return true, "", raw
}

// State returns a snapshot of the client state.
func (lc *LightClient) State() ClientState {
	return lc.state
}

// Committee returns the member accounts and quorum of the live committee.
func (lc *LightClient) Committee() (accounts []common.Hash, quorum uint64) {
	return lc.committee.Accounts(), lc.committee.Quorum()
}

// VerifiableHeaderRange returns the contiguous height range proof queries
// are currently answered for. While a relay window is open, the range stops
// below the window start.
func (lc *LightClient) VerifiableHeaderRange() (earliest, latest idx.Block) {
	if !lc.initialized {
		return 0, 0
	}
	return lc.state.EarliestBlockNumber, lc.resolvedFrontier()
}
