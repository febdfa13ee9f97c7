package protocol

import "musigd/internal/musig2"

// KeyCtx tracks the two-party key-aggregation state for a single output:
// this node's own key share, the counterparty's key share once received, and
// the aggregated key once both are combined. amBuyer fixes the canonical
// ordering used for aggregation: own-then-peer when this node is the buyer,
// peer-then-own otherwise.
type KeyCtx struct {
	amBuyer       bool
	myKeyShare    *KeyPair
	peersKeyShare *PeerKeyPair
	aggregatedKey *PeerKeyPair
	keyAggCtx     *musig2.KeyAggContext
}

func newKeyCtx(amBuyer bool) *KeyCtx {
	return &KeyCtx{amBuyer: amBuyer}
}

func (c *KeyCtx) initMyKeyShare(gen musig2.KeyGenProvider) (KeyPair, error) {
	kp, err := newKeyPair(gen)
	if err != nil {
		return KeyPair{}, err
	}
	c.myKeyShare = &kp
	return kp, nil
}

func (c *KeyCtx) setPeersKeyShare(pub musig2.Point) {
	kp := peerKeyPairFromPublic(pub)
	c.peersKeyShare = &kp
}

func (c *KeyCtx) getKeyShares() ([2]musig2.Point, bool) {
	if c.myKeyShare == nil || c.peersKeyShare == nil {
		return [2]musig2.Point{}, false
	}
	if c.amBuyer {
		return [2]musig2.Point{c.myKeyShare.PubKey, c.peersKeyShare.PubKey}, true
	}
	return [2]musig2.Point{c.peersKeyShare.PubKey, c.myKeyShare.PubKey}, true
}

func (c *KeyCtx) aggregateKeyShares() error {
	keys, ok := c.getKeyShares()
	if !ok {
		return ErrMissingKeyShare
	}
	aggCtx, err := musig2.NewKeyAggContext(keys)
	if err != nil {
		return err
	}
	agg := peerKeyPairFromPublic(aggCtx.AggregatedPubKey())
	c.aggregatedKey = &agg
	c.keyAggCtx = aggCtx
	return nil
}

func (c *KeyCtx) getPrvKeyShares() ([2]musig2.Scalar, bool) {
	if c.myKeyShare == nil || c.peersKeyShare == nil || c.peersKeyShare.PrvKey == nil {
		return [2]musig2.Scalar{}, false
	}
	if c.amBuyer {
		return [2]musig2.Scalar{c.myKeyShare.PrvKey, *c.peersKeyShare.PrvKey}, true
	}
	return [2]musig2.Scalar{*c.peersKeyShare.PrvKey, c.myKeyShare.PrvKey}, true
}

// myIndex returns this node's position (0 or 1) in the canonical ordering
// used to build keyAggCtx.
func (c *KeyCtx) myIndex() int {
	if c.amBuyer {
		return 0
	}
	return 1
}

// aggregatePrvKeyShares combines both private key shares into the
// aggregated private scalar, verifying it actually reconstructs the
// aggregated public key cached in aggregateKeyShares.
func (c *KeyCtx) aggregatePrvKeyShares() (musig2.Scalar, error) {
	shares, ok := c.getPrvKeyShares()
	if !ok {
		return musig2.Scalar{}, ErrMissingKeyShare
	}
	if c.keyAggCtx == nil || c.aggregatedKey == nil {
		return musig2.Scalar{}, ErrMissingAggPubKey
	}
	aggPrv, err := c.keyAggCtx.AggregatedSecKey(shares)
	if err != nil {
		return musig2.Scalar{}, err
	}
	if err := c.aggregatedKey.setPrvKey(aggPrv); err != nil {
		return musig2.Scalar{}, err
	}
	return aggPrv, nil
}
