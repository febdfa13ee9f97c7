package musig2

import "crypto/sha256"

// PartialSignature is one party's contribution to an aggregated (possibly
// adaptor) MuSig2 signature.
type PartialSignature struct {
	S Scalar
}

// DecodePartialSignature parses the 32-byte wire encoding of a partial
// signature. A partial signature is wire-shaped as a MaybeScalar: zero is
// representable, even though it would never verify.
func DecodePartialSignature(b []byte) (PartialSignature, error) {
	s, err := DecodeMaybeScalar(b)
	if err != nil {
		return PartialSignature{}, err
	}
	return PartialSignature{S: s}, nil
}

// Serialize returns the 32-byte big-endian encoding.
func (p PartialSignature) Serialize() []byte {
	b := p.S.Bytes()
	return b[:]
}

// Signature is an aggregated MuSig2 signature. When the session's adaptor
// point is the identity, it verifies as an ordinary Schnorr signature; when
// the adaptor point is a curve point T, it verifies as an adaptor signature
// that a holder of t with T=t*G can complete (see CompleteWithAdaptorSecret
// and ExtractAdaptorSecret).
type Signature struct {
	S Scalar
}

// Serialize returns the 32-byte big-endian encoding of the signature scalar.
// (The nonce point half of the signature is reconstructible by any verifier
// that holds the AggNonce, aggregated public key, adaptor point and message,
// exactly as it is on the signers' side; this mirrors how the aggregated
// nonce is carried in SigCtx rather than re-serialized per signature.)
func (s Signature) Serialize() []byte {
	b := s.S.Bytes()
	return b[:]
}

// nonceCoefficient computes MuSig2's "b" coefficient binding the two raw
// nonce points (R1, R2) of the aggregated nonce into a single effective
// point, per aggregated public key and message.
func nonceCoefficient(aggNonce AggNonce, aggPubKey Point, message []byte) Scalar {
	h := sha256.New()
	h.Write([]byte("musigd/adaptor/noncecoef/v1"))
	if !aggNonce.R1.IsIdentity() {
		h.Write(aggNonce.R1.SerializeCompressed())
	}
	if !aggNonce.R2.IsIdentity() {
		h.Write(aggNonce.R2.SerializeCompressed())
	}
	h.Write(aggPubKey.SerializeCompressed())
	h.Write(message)
	for ctr := uint32(0); ; ctr++ {
		d := sha256.New()
		d.Write(h.Sum(nil))
		d.Write([]byte{byte(ctr), byte(ctr >> 8), byte(ctr >> 16), byte(ctr >> 24)})
		s, err := DecodeMaybeScalar(d.Sum(nil))
		if err == nil {
			return s
		}
	}
}

// effectiveNonce combines R1 and R2 of a (possibly per-party) nonce pair
// using the binding coefficient b: R = R1 + b*R2.
func effectiveNonce(r1, r2 Point, b Scalar) Point {
	return r1.Add(r2.ScalarMul(b))
}

// challenge computes the Schnorr challenge e = H(R' || X || m) reduced mod n,
// where R' is the effective nonce point already offset by the adaptor point.
func challenge(effNonceWithAdaptor, aggPubKey Point, message []byte) Scalar {
	h := sha256.New()
	h.Write([]byte("musigd/adaptor/challenge/v1"))
	h.Write(effNonceWithAdaptor.SerializeCompressed())
	h.Write(aggPubKey.SerializeCompressed())
	h.Write(message)
	for ctr := uint32(0); ; ctr++ {
		d := sha256.New()
		d.Write(h.Sum(nil))
		d.Write([]byte{byte(ctr), byte(ctr >> 8), byte(ctr >> 16), byte(ctr >> 24)})
		s, err := DecodeMaybeScalar(d.Sum(nil))
		if err == nil {
			return s
		}
	}
}

// SignPartial produces this party's partial signature over message, under
// keyAggCtx's aggregated key, binding to aggNonce and adaptorPoint. index is
// this party's position (0 or 1) in the same ordering used to build
// keyAggCtx. secnonce is consumed by value — callers are responsible for the
// one-shot discipline (protocol.SigCtx enforces it).
func SignPartial(keyAggCtx *KeyAggContext, index int, seckey Scalar, secnonce SecNonce, aggNonce AggNonce, adaptorPoint Point, message []byte) (PartialSignature, error) {
	if aggNonce.IsIdentity() {
		return PartialSignature{}, ErrIdentityAggNonce
	}
	aggPubKey := keyAggCtx.AggregatedPubKey()
	b := nonceCoefficient(aggNonce, aggPubKey, message)
	r := effectiveNonce(aggNonce.R1, aggNonce.R2, b)
	rPrime := r.Add(adaptorPoint)
	e := challenge(rPrime, aggPubKey, message)
	coef := keyAggCtx.Coefficient(index)

	s := secnonce.k1.Add(b.Mul(secnonce.k2)).Add(e.Mul(coef).Mul(seckey))
	if s.IsZero() {
		return PartialSignature{}, ErrSigning
	}
	return PartialSignature{S: s}, nil
}

// AggregatePartialSignatures verifies each ordered partial signature against
// that party's own public nonce pair, then sums them into the aggregated
// (possibly adaptor) Signature. orderedPubNonces and orderedPartialSigs must
// use the same ordering as keyAggCtx.
func AggregatePartialSignatures(keyAggCtx *KeyAggContext, aggNonce AggNonce, adaptorPoint Point, orderedPubNonces [2]PubNonce, orderedPartialSigs [2]PartialSignature, message []byte) (Signature, error) {
	if aggNonce.IsIdentity() {
		return Signature{}, ErrIdentityAggNonce
	}
	aggPubKey := keyAggCtx.AggregatedPubKey()
	b := nonceCoefficient(aggNonce, aggPubKey, message)
	r := effectiveNonce(aggNonce.R1, aggNonce.R2, b)
	rPrime := r.Add(adaptorPoint)
	e := challenge(rPrime, aggPubKey, message)

	var total Scalar
	for i := range orderedPartialSigs {
		ri := effectiveNonce(orderedPubNonces[i].R1, orderedPubNonces[i].R2, b)
		coef := keyAggCtx.Coefficient(i)
		lhs := orderedPartialSigs[i].S.BasePointMul()
		// Each partial is checked against that party's own (pre-aggregation)
		// public key, not the aggregated key: SignPartial signs with the
		// individual secret key, scaled by the same coefficient used to fold
		// it into the aggregate.
		rhs := ri.Add(keyAggCtx.keys[i].ScalarMul(coef).ScalarMul(e))
		if !lhs.Equal(rhs) {
			return Signature{}, ErrVerify
		}
		total = total.Add(orderedPartialSigs[i].S)
	}
	return Signature{S: total}, nil
}

// Verify checks sig against aggNonce/aggPubKey/adaptorPoint/message. Pass the
// identity point for adaptorPoint to verify an ordinary (non-adaptor)
// signature (completed is ignored in that case, since R+T==R).
//
// For a real adaptor point T, set completed=false to check adaptor validity
// of a pre-signature (SignPartial/AggregatePartialSignatures never fold T
// into the scalar sum, only into the challenge hash, so a pre-signature
// satisfies S*G = R+eX) and completed=true to verify a signature that has
// already gone through CompleteWithAdaptorSecret (S*G = R+T+eX).
func Verify(sig Signature, aggNonce AggNonce, aggPubKey Point, adaptorPoint Point, message []byte, completed bool) bool {
	if aggNonce.IsIdentity() {
		return false
	}
	b := nonceCoefficient(aggNonce, aggPubKey, message)
	r := effectiveNonce(aggNonce.R1, aggNonce.R2, b)
	rPrime := r.Add(adaptorPoint)
	e := challenge(rPrime, aggPubKey, message)
	lhs := sig.S.BasePointMul()
	nonceTerm := r
	if completed {
		nonceTerm = rPrime
	}
	rhs := nonceTerm.Add(aggPubKey.ScalarMul(e))
	return lhs.Equal(rhs)
}

// CompleteWithAdaptorSecret turns an adaptor pre-signature into an ordinary
// signature over the effective nonce R+T, given the adaptor secret t with
// T=t*G.
func CompleteWithAdaptorSecret(preSig Signature, t Scalar) Signature {
	return Signature{S: preSig.S.Add(t)}
}

// ExtractAdaptorSecret recovers t from a completed signature and the
// retained adaptor pre-signature, satisfying base_point_mul(t) == adaptorPoint
// (spec.md §8 property 4).
func ExtractAdaptorSecret(completed, preSig Signature) Scalar {
	return completed.S.Add(preSig.S.Negate())
}
