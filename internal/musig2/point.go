package musig2

import (
	"github.com/btcsuite/btcd/btcec/v2"
)

// Point is a secp256k1 curve point. The zero value is the identity element
// (the "MaybePoint" of the original implementation) so that an adaptor point
// can be carried through the protocol uniformly whether or not a trade is
// actually using the adaptor construction.
type Point struct {
	pub      *btcec.PublicKey
	identity bool
}

// Identity returns the point at infinity.
func Identity() Point {
	return Point{identity: true}
}

func pointFromJacobian(j btcec.JacobianPoint) Point {
	if j.Z.IsZero() {
		return Identity()
	}
	j.ToAffine()
	return Point{pub: btcec.NewPublicKey(&j.X, &j.Y)}
}

func (p Point) jacobian() btcec.JacobianPoint {
	var j btcec.JacobianPoint
	if p.identity || p.pub == nil {
		return j // Z == 0 => identity
	}
	p.pub.AsJacobian(&j)
	return j
}

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool {
	return p.identity || p.pub == nil
}

// ParsePoint decodes a 33-byte SEC1 compressed point.
func ParsePoint(b []byte) (Point, error) {
	if len(b) != 33 {
		return Point{}, ErrMalformedPoint
	}
	pub, err := btcec.ParsePubKey(b)
	if err != nil {
		return Point{}, ErrMalformedPoint
	}
	return Point{pub: pub}, nil
}

// SerializeCompressed returns the 33-byte SEC1 compressed encoding. Callers
// must not serialize the identity point; doing so panics, mirroring the
// upstream invariant that an adaptor point is never the identity on a live
// trade (spec.md §3.3).
func (p Point) SerializeCompressed() []byte {
	if p.IsIdentity() {
		panic("musig2: cannot serialize the identity point")
	}
	return p.pub.SerializeCompressed()
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	if p.IsIdentity() {
		return q
	}
	if q.IsIdentity() {
		return p
	}
	pj, qj := p.jacobian(), q.jacobian()
	var sum btcec.JacobianPoint
	btcec.AddNonConst(&pj, &qj, &sum)
	return pointFromJacobian(sum)
}

// ScalarMul returns s*p.
func (p Point) ScalarMul(s Scalar) Point {
	if p.IsIdentity() || s.IsZero() {
		return Identity()
	}
	pj := p.jacobian()
	var out btcec.JacobianPoint
	btcec.ScalarMultNonConst(&s.n, &pj, &out)
	return pointFromJacobian(out)
}

// Equal reports whether p and q are the same point.
func (p Point) Equal(q Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	return p.pub.IsEqual(q.pub)
}
