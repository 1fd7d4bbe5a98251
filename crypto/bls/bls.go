// Package bls verifies BLS12-381 multi-signatures over consensus records.
//
// The scheme keeps public keys in G1 (96-byte uncompressed points) and
// signatures in G2 (192-byte uncompressed points). Messages are mapped onto
// G2 with the XMD:SHA-256 SSWU hash-to-curve construction: the message is
// expanded into pseudorandom chunks, reduced into two field elements, mapped
// onto the curve's extension-field group, and the two resulting points are
// added. A signature is valid iff e(pk, H(m)) == e(G1, sig).
package bls

import (
	"errors"

	blst "github.com/supranational/blst/bindings/go"
)

// Exact byte lengths of signature and public key material. Any other length
// fails with ErrLengthMismatch before any curve arithmetic runs.
const (
	// SignatureLength is the size of an uncompressed G2 signature.
	SignatureLength = 192
	// PublicKeyLength is the size of an uncompressed G1 public key.
	PublicKeyLength = 96
)

// DomainSeparationTag is the hash-to-curve domain separation tag. Signers
// must hash with the same tag or verification fails.
var DomainSeparationTag = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// ErrLengthMismatch is returned for malformed signature or public key byte
// lengths, and for batch calls whose array lengths differ.
var ErrLengthMismatch = errors.New("length mismatch: malformed signature, public key or batch input")

// g1Gen is the G1 group generator, the fixed second pairing argument.
var g1Gen = blst.P1Generator().ToAffine()

// hashToG2 maps a message onto the G2 group. The result is reused across a
// whole batch, so the expand/reduce/map work happens once per message.
func hashToG2(message []byte) *blst.P2Affine {
	return blst.HashToG2(message, DomainSeparationTag).ToAffine()
}

// verifyHashed checks one signature against an already-hashed message point.
// A false result without error means the bytes parsed but the pairing check
// failed; the caller decides what that means.
func verifyHashed(hm *blst.P2Affine, signature, publicKey []byte) (bool, error) {
	if len(signature) != SignatureLength {
		return false, ErrLengthMismatch
	}
	if len(publicKey) != PublicKeyLength {
		return false, ErrLengthMismatch
	}

	pk := new(blst.P1Affine).Deserialize(publicKey)
	if pk == nil || !pk.InG1() {
		return false, nil
	}
	sig := new(blst.P2Affine).Deserialize(signature)
	if sig == nil || !sig.InG2() {
		return false, nil
	}

	// e(pk, H(m)) == e(G1, sig)
	left := blst.Fp12MillerLoop(hm, pk)
	right := blst.Fp12MillerLoop(sig, g1Gen)
	return blst.Fp12FinalVerify(left, right), nil
}

// Verify checks a single signature over message against publicKey.
func Verify(signature, message, publicKey []byte) (bool, error) {
	return verifyHashed(hashToG2(message), signature, publicKey)
}

// BatchVerify checks independent signatures over the same message, one per
// public key. The hashed message point is computed once and reused. The two
// arrays must have equal, non-zero length; verification fails as a whole if
// any single pairing check fails.
func BatchVerify(signatures [][]byte, message []byte, publicKeys [][]byte) (bool, error) {
	if len(signatures) == 0 || len(signatures) != len(publicKeys) {
		return false, ErrLengthMismatch
	}

	hm := hashToG2(message)
	for i := range signatures {
		ok, err := verifyHashed(hm, signatures[i], publicKeys[i])
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
