package protocol

import "musigd/internal/musig2"

// SigCtx tracks the per-input signing state machine: Empty -> Nonced ->
// AggNonced -> PartiallySigned -> Aggregated. The states aren't named as a
// type because each step's preconditions are exactly "the field I need is
// populated", which Go expresses more directly as nil checks than as an
// enum.
type SigCtx struct {
	amBuyer         bool
	adaptorPoint    musig2.Point
	myNonceShare    *NoncePair
	peersNonceShare *musig2.PubNonce
	aggregatedNonce *musig2.AggNonce
	message         []byte
	myPartialSig    *musig2.PartialSignature
	peersPartialSig *musig2.PartialSignature
	aggregatedSig   *musig2.Signature
}

func newSigCtx(amBuyer bool) *SigCtx {
	return &SigCtx{amBuyer: amBuyer, adaptorPoint: musig2.Identity()}
}

func (c *SigCtx) initMyNonceShare(keyCtx *KeyCtx, seedProvider musig2.NonceSeedProvider) error {
	if keyCtx.aggregatedKey == nil {
		return ErrMissingAggPubKey
	}
	np, err := newNoncePair(seedProvider, keyCtx.aggregatedKey.PubKey)
	if err != nil {
		return err
	}
	c.myNonceShare = &np
	return nil
}

func (c *SigCtx) getNonceShares() ([2]musig2.PubNonce, bool) {
	if c.myNonceShare == nil || c.peersNonceShare == nil {
		return [2]musig2.PubNonce{}, false
	}
	if c.amBuyer {
		return [2]musig2.PubNonce{c.myNonceShare.PubNonce, *c.peersNonceShare}, true
	}
	return [2]musig2.PubNonce{*c.peersNonceShare, c.myNonceShare.PubNonce}, true
}

func (c *SigCtx) aggregateNonceShares() error {
	shares, ok := c.getNonceShares()
	if !ok {
		return ErrMissingNonceShare
	}
	agg := musig2.SumPubNonces(shares)
	if agg.IsIdentity() {
		return ErrZeroAggNonce
	}
	c.aggregatedNonce = &agg
	return nil
}

// signPartial consumes this node's secret nonce and produces a partial
// signature over message. A second call after the first fails with
// ErrNonceReuse: the secret nonce is one-shot.
func (c *SigCtx) signPartial(keyCtx *KeyCtx, message []byte) (musig2.PartialSignature, error) {
	if keyCtx.keyAggCtx == nil {
		return musig2.PartialSignature{}, ErrMissingAggPubKey
	}
	if keyCtx.myKeyShare == nil {
		return musig2.PartialSignature{}, ErrMissingKeyShare
	}
	if c.myNonceShare == nil {
		return musig2.PartialSignature{}, ErrMissingNonceShare
	}
	if c.myNonceShare.SecNonce == nil {
		return musig2.PartialSignature{}, ErrNonceReuse
	}
	if c.aggregatedNonce == nil {
		return musig2.PartialSignature{}, ErrMissingAggNonce
	}
	secnonce := *c.myNonceShare.SecNonce
	c.myNonceShare.SecNonce = nil

	sig, err := musig2.SignPartial(keyCtx.keyAggCtx, keyCtx.myIndex(), keyCtx.myKeyShare.PrvKey, secnonce, *c.aggregatedNonce, c.adaptorPoint, message)
	if err != nil {
		return musig2.PartialSignature{}, err
	}
	c.message = message
	c.myPartialSig = &sig
	return sig, nil
}

func (c *SigCtx) getPartialSignatures() ([2]musig2.PartialSignature, bool) {
	if c.myPartialSig == nil || c.peersPartialSig == nil {
		return [2]musig2.PartialSignature{}, false
	}
	if c.amBuyer {
		return [2]musig2.PartialSignature{*c.myPartialSig, *c.peersPartialSig}, true
	}
	return [2]musig2.PartialSignature{*c.peersPartialSig, *c.myPartialSig}, true
}

// aggregatePartialSignatures combines both partial signatures into the
// aggregated (possibly adaptor) signature, internally verifying each partial
// before combining it.
func (c *SigCtx) aggregatePartialSignatures(keyCtx *KeyCtx) (musig2.Signature, error) {
	if keyCtx.keyAggCtx == nil {
		return musig2.Signature{}, ErrMissingAggPubKey
	}
	if c.aggregatedNonce == nil {
		return musig2.Signature{}, ErrMissingAggNonce
	}
	partials, ok := c.getPartialSignatures()
	if !ok {
		return musig2.Signature{}, ErrMissingPartialSig
	}
	if c.message == nil {
		return musig2.Signature{}, ErrMissingPartialSig
	}
	nonceShares, ok := c.getNonceShares()
	if !ok {
		return musig2.Signature{}, ErrMissingNonceShare
	}

	sig, err := musig2.AggregatePartialSignatures(keyCtx.keyAggCtx, *c.aggregatedNonce, c.adaptorPoint, nonceShares, partials, c.message)
	if err != nil {
		return musig2.Signature{}, err
	}
	c.aggregatedSig = &sig
	return sig, nil
}
