package musig2

import (
	"crypto/sha256"
	"encoding/binary"
)

// NonceSeed is the entropy source behind a fresh SecNonce. Production callers
// must supply a per-call CSPRNG draw; a fixed all-zero seed is a test-only
// placeholder the original implementation flags as a FIXME (reusing it across
// trades or SigCtx instances is catastrophic — see provider.go).
type NonceSeed [32]byte

// PubNonce is the standard MuSig2 66-byte public nonce: two compressed
// curve points, R1 and R2.
type PubNonce struct {
	R1, R2 Point
}

// DecodePubNonce parses the 66-byte wire encoding of a PubNonce.
func DecodePubNonce(b []byte) (PubNonce, error) {
	if len(b) != 66 {
		return PubNonce{}, ErrMalformedPubNonce
	}
	r1, err := ParsePoint(b[:33])
	if err != nil {
		return PubNonce{}, ErrMalformedPubNonce
	}
	r2, err := ParsePoint(b[33:])
	if err != nil {
		return PubNonce{}, ErrMalformedPubNonce
	}
	return PubNonce{R1: r1, R2: r2}, nil
}

// Serialize returns the 66-byte wire encoding.
func (n PubNonce) Serialize() []byte {
	out := make([]byte, 0, 66)
	out = append(out, n.R1.SerializeCompressed()...)
	out = append(out, n.R2.SerializeCompressed()...)
	return out
}

// SecNonce is the secret pre-image of a PubNonce: two scalars, k1 and k2,
// such that R1 = k1*G and R2 = k2*G. It is one-shot: sign_partial consumes
// it and any second use must fail with NonceReuse at the protocol layer.
type SecNonce struct {
	k1, k2 Scalar
}

// NewSecNonce derives a secret nonce pair bound to seed and the aggregated
// public key of the context the nonce will sign against (domain separation,
// per spec.md §4.2).
func NewSecNonce(seed NonceSeed, aggregatedPubKey Point) (SecNonce, PubNonce, error) {
	k1, err := deriveNonceScalar(seed, aggregatedPubKey, 1)
	if err != nil {
		return SecNonce{}, PubNonce{}, err
	}
	k2, err := deriveNonceScalar(seed, aggregatedPubKey, 2)
	if err != nil {
		return SecNonce{}, PubNonce{}, err
	}
	pub := PubNonce{R1: k1.BasePointMul(), R2: k2.BasePointMul()}
	return SecNonce{k1: k1, k2: k2}, pub, nil
}

func deriveNonceScalar(seed NonceSeed, aggregatedPubKey Point, index byte) (Scalar, error) {
	h := sha256.New()
	h.Write([]byte("musigd/nonce/v1"))
	h.Write(seed[:])
	if !aggregatedPubKey.IsIdentity() {
		h.Write(aggregatedPubKey.SerializeCompressed())
	}
	var idxBuf [1]byte
	idxBuf[0] = index
	h.Write(idxBuf[:])
	digest := h.Sum(nil)
	for ctr := uint32(0); ; ctr++ {
		candidate := sha256.New()
		candidate.Write(digest)
		var ctrBuf [4]byte
		binary.BigEndian.PutUint32(ctrBuf[:], ctr)
		candidate.Write(ctrBuf[:])
		s, err := DecodeMaybeScalar(candidate.Sum(nil))
		if err == nil && !s.IsZero() {
			return s, nil
		}
	}
}

// AggNonce is the sum, across both parties, of each party's R1 and R2 public
// nonce points.
type AggNonce struct {
	R1, R2 Point
}

// SumPubNonces aggregates two PubNonce values in the given order. The order
// must match the order used for key aggregation (spec.md §4.2).
func SumPubNonces(ordered [2]PubNonce) AggNonce {
	return AggNonce{
		R1: ordered[0].R1.Add(ordered[1].R1),
		R2: ordered[0].R2.Add(ordered[1].R2),
	}
}

// IsIdentity reports whether both component points are the identity, which
// would make the effective nonce degenerate; callers must reject this (spec
// design note in §9, "Zero aggregate nonce").
func (a AggNonce) IsIdentity() bool {
	return a.R1.IsIdentity() && a.R2.IsIdentity()
}
