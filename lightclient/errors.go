package lightclient

import "errors"

// Every error below rejects the whole call: mutating operations validate all
// preconditions first and commit no state on failure. Byte-length failures
// surface as bls.ErrLengthMismatch from the signature verifier.
var (
	// ErrInvalidConfiguration rejects initialization with zero
	// addresses/handles, or re-initialization of a live instance.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUninitialized rejects any operation before Initialize succeeded.
	ErrUninitialized = errors.New("light client not initialized")

	// Consensus record sequencing violations.
	ErrEpochMismatch     = errors.New("record epoch mismatch")
	ErrRoundNotAdvancing = errors.New("record round not advancing")
	ErrInvalidNextEpoch  = errors.New("invalid next epoch state")

	// Committee/BLS validation failures.
	ErrSignatureOrderViolation = errors.New("signature accounts not strictly increasing")
	ErrUnknownSigner           = errors.New("signer not in committee")
	ErrQuorumNotMet            = errors.New("accumulated voting power below quorum")
	ErrSignatureInvalid        = errors.New("aggregated signature verification failed")

	// ErrHeaderChainBroken rejects a header batch with a height or hash
	// mismatch while linking it to the trusted terminal.
	ErrHeaderChainBroken = errors.New("header chain broken")

	// ErrHeightOutOfRange rejects proof queries below the earliest retained
	// height, above the finalized frontier, or inside an open relay window.
	ErrHeightOutOfRange = errors.New("height out of verifiable range")

	// ErrRelayIncomplete rejects a consensus record while a previously
	// opened header relay window is still being backfilled.
	ErrRelayIncomplete = errors.New("pending header relay not finished")
)
