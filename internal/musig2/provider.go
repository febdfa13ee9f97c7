package musig2

import (
	"crypto/rand"
	"io"
)

// FixedKeyProvider hands out a single predetermined key every time. It exists
// for tests and local smoke runs only: a production signer must draw fresh
// key material from a CSPRNG, never reuse the same scalar across trades. The
// original implementation carries this exact caveat as a FIXME rather than an
// enforced constraint, so this type stays plain Go with no safety rail beyond
// its doc comment.
type FixedKeyProvider struct {
	Key Scalar
}

// GenerateKey returns the fixed key unconditionally.
func (p FixedKeyProvider) GenerateKey() (Scalar, error) {
	return p.Key, nil
}

// RandomKeyProvider draws a fresh scalar from a CSPRNG on every call.
type RandomKeyProvider struct {
	Rand io.Reader
}

// GenerateKey draws a fresh non-zero scalar.
func (p RandomKeyProvider) GenerateKey() (Scalar, error) {
	return RandScalar(p.Rand)
}

// NonceSeedProvider supplies the entropy behind a fresh SecNonce.
type NonceSeedProvider interface {
	GenerateNonceSeed() (NonceSeed, error)
}

// FixedNonceSeedProvider hands out a single predetermined seed every time.
// Reusing a nonce seed against the same aggregated key is catastrophic (it
// leaks the signer's private key share); this type is test-only, matching the
// original implementation's fixed all-zero seed placeholder.
type FixedNonceSeedProvider struct {
	Seed NonceSeed
}

// GenerateNonceSeed returns the fixed seed unconditionally.
func (p FixedNonceSeedProvider) GenerateNonceSeed() (NonceSeed, error) {
	return p.Seed, nil
}

// RandomNonceSeedProvider draws a fresh seed from a CSPRNG on every call.
type RandomNonceSeedProvider struct {
	Rand io.Reader
}

// GenerateNonceSeed draws 32 fresh random bytes.
func (p RandomNonceSeedProvider) GenerateNonceSeed() (NonceSeed, error) {
	var seed NonceSeed
	r := p.Rand
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return NonceSeed{}, err
	}
	return seed, nil
}
