package musig2

import (
	"crypto/rand"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Scalar is an element of the secp256k1 scalar field (integers mod the group
// order n), used for private keys, nonce pre-images, and signature values.
type Scalar struct {
	n btcec.ModNScalar
}

// ScalarOne is the multiplicative identity.
func ScalarOne() Scalar {
	var s Scalar
	s.n.SetInt(1)
	return s
}

// DecodeScalar parses a 32-byte big-endian scalar, rejecting the zero scalar.
func DecodeScalar(b []byte) (Scalar, error) {
	var s Scalar
	if len(b) != 32 {
		return Scalar{}, ErrMalformedScalar
	}
	overflow := s.n.SetByteSlice(b)
	if overflow || s.n.IsZero() {
		return Scalar{}, ErrMalformedScalar
	}
	return s, nil
}

// DecodeMaybeScalar parses a 32-byte big-endian scalar, accepting the zero
// scalar (used for wire fields such as partial signatures, where a zero
// value is mathematically valid even though key material rejects it).
func DecodeMaybeScalar(b []byte) (Scalar, error) {
	var s Scalar
	if len(b) != 32 {
		return Scalar{}, ErrMalformedScalar
	}
	if overflow := s.n.SetByteSlice(b); overflow {
		return Scalar{}, ErrMalformedScalar
	}
	return s, nil
}

// Bytes returns the big-endian 32-byte encoding of s.
func (s Scalar) Bytes() [32]byte {
	return s.n.Bytes()
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.n.IsZero()
}

// Add returns s + other mod n.
func (s Scalar) Add(other Scalar) Scalar {
	var out Scalar
	out.n = s.n
	out.n.Add(&other.n)
	return out
}

// Mul returns s * other mod n.
func (s Scalar) Mul(other Scalar) Scalar {
	var out Scalar
	out.n = s.n
	out.n.Mul(&other.n)
	return out
}

// Negate returns -s mod n.
func (s Scalar) Negate() Scalar {
	var out Scalar
	out.n = s.n
	out.n.Negate()
	return out
}

// Equals reports whether s and other represent the same residue.
func (s Scalar) Equals(other Scalar) bool {
	return s.n.Equals(&other.n)
}

// BasePointMul returns s*G, the public key corresponding to private scalar s.
func (s Scalar) BasePointMul() Point {
	var j btcec.JacobianPoint
	btcec.ScalarBaseMultNonConst(&s.n, &j)
	return pointFromJacobian(j)
}

// KeyGenProvider supplies fresh private-key scalars. Production callers must
// supply a CSPRNG-backed implementation; see provider.go for the test-only
// fixed-key stand-in the original flags as a FIXME.
type KeyGenProvider interface {
	GenerateKey() (Scalar, error)
}

// RandScalar draws a uniformly random non-zero scalar from r, retrying on the
// (astronomically unlikely) event of an overflowing or zero sample.
func RandScalar(r io.Reader) (Scalar, error) {
	if r == nil {
		r = rand.Reader
	}
	for {
		var buf [32]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return Scalar{}, err
		}
		s, err := DecodeMaybeScalar(buf[:])
		if err == nil && !s.IsZero() {
			return s, nil
		}
	}
}
