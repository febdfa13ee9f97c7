package protocol

import "musigd/internal/musig2"

// KeyPair holds a public key together with the private scalar this node
// actually controls. It is always fully populated: a node never constructs
// one for a key it does not hold the private half of.
type KeyPair struct {
	PubKey musig2.Point
	PrvKey musig2.Scalar
}

func newKeyPair(gen musig2.KeyGenProvider) (KeyPair, error) {
	prv, err := gen.GenerateKey()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PubKey: prv.BasePointMul(), PrvKey: prv}, nil
}

// PeerKeyPair holds a public key whose private half may not be known yet —
// either because it belongs to the counterparty, or because it is the
// aggregated key and the aggregated private scalar hasn't been combined yet.
type PeerKeyPair struct {
	PubKey musig2.Point
	PrvKey *musig2.Scalar
}

func peerKeyPairFromPublic(pub musig2.Point) PeerKeyPair {
	return PeerKeyPair{PubKey: pub}
}

func (k *PeerKeyPair) setPrvKey(prv musig2.Scalar) error {
	if !k.PubKey.Equal(prv.BasePointMul()) {
		return ErrMismatchedKeyPair
	}
	k.PrvKey = &prv
	return nil
}

// NoncePair is a public nonce together with the secret pre-image this node
// controls, if it hasn't already been spent signing something.
type NoncePair struct {
	PubNonce musig2.PubNonce
	SecNonce *musig2.SecNonce
}

func newNoncePair(seedProvider musig2.NonceSeedProvider, aggregatedPubKey musig2.Point) (NoncePair, error) {
	seed, err := seedProvider.GenerateNonceSeed()
	if err != nil {
		return NoncePair{}, err
	}
	sec, pub, err := musig2.NewSecNonce(seed, aggregatedPubKey)
	if err != nil {
		return NoncePair{}, err
	}
	return NoncePair{PubNonce: pub, SecNonce: &sec}, nil
}
