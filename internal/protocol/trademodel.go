package protocol

import "musigd/internal/musig2"

// TradeModel orchestrates the full two-party signing protocol for one
// trade: two key-aggregation contexts (the buyer output and the seller
// output) and seven per-input signature contexts (the swap tx input, both
// parties' inputs on both warning txs, and both parties' redirect tx
// inputs), wired together according to which side of the trade this node
// is on.
type TradeModel struct {
	TradeID string
	MyRole  Role

	TradeAmount             *uint64
	BuyersSecurityDeposit   *uint64
	SellersSecurityDeposit  *uint64
	DepositTxFeeRate        *float64
	PreparedTxFeeRate       *float64

	buyerOutputKeyCtx  *KeyCtx
	sellerOutputKeyCtx *KeyCtx

	swapTxInputSigCtx                  *SigCtx
	buyersWarningTxBuyerInputSigCtx    *SigCtx
	buyersWarningTxSellerInputSigCtx   *SigCtx
	sellersWarningTxBuyerInputSigCtx   *SigCtx
	sellersWarningTxSellerInputSigCtx  *SigCtx
	buyersRedirectTxInputSigCtx        *SigCtx
	sellersRedirectTxInputSigCtx       *SigCtx

	keyGen       musig2.KeyGenProvider
	nonceSeedGen musig2.NonceSeedProvider

	paymentStarted   bool
	paymentConfirmed bool
}

// NewTradeModel constructs a fresh TradeModel for tradeID in role myRole.
// keyGen and nonceSeedGen supply this node's key material and nonce
// entropy; production callers must pass CSPRNG-backed providers
// (musig2.RandomKeyProvider / musig2.RandomNonceSeedProvider) — fixed
// providers exist only for tests.
func NewTradeModel(tradeID string, myRole Role, keyGen musig2.KeyGenProvider, nonceSeedGen musig2.NonceSeedProvider) *TradeModel {
	amBuyer := myRole.AmBuyer()
	return &TradeModel{
		TradeID: tradeID,
		MyRole:  myRole,

		buyerOutputKeyCtx:  newKeyCtx(amBuyer),
		sellerOutputKeyCtx: newKeyCtx(amBuyer),

		swapTxInputSigCtx:                 newSigCtx(amBuyer),
		buyersWarningTxBuyerInputSigCtx:   newSigCtx(amBuyer),
		buyersWarningTxSellerInputSigCtx:  newSigCtx(amBuyer),
		sellersWarningTxBuyerInputSigCtx:  newSigCtx(amBuyer),
		sellersWarningTxSellerInputSigCtx: newSigCtx(amBuyer),
		buyersRedirectTxInputSigCtx:       newSigCtx(amBuyer),
		sellersRedirectTxInputSigCtx:      newSigCtx(amBuyer),

		keyGen:       keyGen,
		nonceSeedGen: nonceSeedGen,
	}
}

// AmBuyer reports whether this node owns the buyer output.
func (m *TradeModel) AmBuyer() bool {
	return m.MyRole.AmBuyer()
}

// ArmPaymentStarted records that off-chain payment has begun. Until this is
// called, GetMyPartialSignaturesOnPeerTxs withholds this node's partial
// signature on the swap tx input when this node is the buyer — releasing it
// any earlier would let the seller complete and publish the swap tx before
// payment occurs.
func (m *TradeModel) ArmPaymentStarted() {
	m.paymentStarted = true
}

// ArmPaymentConfirmed records that payment has been confirmed. Until this is
// called, GetMyPrivateKeyShareForPeerOutput refuses to release this node's
// private key share for the counterparty's output.
func (m *TradeModel) ArmPaymentConfirmed() {
	m.paymentStarted = true
	m.paymentConfirmed = true
}

// R0: InitMyKeyShares generates this node's key shares for both outputs. If
// this node is the seller, the buyer output's public key becomes known
// immediately (it's this node's own share), so the swap tx input's adaptor
// point can be set right away; the buyer learns it only once the seller's
// key share for that output is generated.
func (m *TradeModel) InitMyKeyShares() error {
	buyerOutputKeyPair, err := m.buyerOutputKeyCtx.initMyKeyShare(m.keyGen)
	if err != nil {
		return err
	}
	if _, err := m.sellerOutputKeyCtx.initMyKeyShare(m.keyGen); err != nil {
		return err
	}
	if !m.AmBuyer() {
		m.swapTxInputSigCtx.adaptorPoint = buyerOutputKeyPair.PubKey
	}
	return nil
}

// GetMyKeyShares returns this node's public keys for the buyer output and
// seller output, in that order.
func (m *TradeModel) GetMyKeyShares() (buyerOutputPubKey, sellerOutputPubKey musig2.Point, ok bool) {
	if m.buyerOutputKeyCtx.myKeyShare == nil || m.sellerOutputKeyCtx.myKeyShare == nil {
		return musig2.Point{}, musig2.Point{}, false
	}
	return m.buyerOutputKeyCtx.myKeyShare.PubKey, m.sellerOutputKeyCtx.myKeyShare.PubKey, true
}

// R1: SetPeerKeyShares records the counterparty's public keys for both
// outputs. When this node is the buyer, this is also when the swap tx
// input's adaptor point (the seller's buyer-output key) becomes known.
func (m *TradeModel) SetPeerKeyShares(buyerOutputPubKey, sellerOutputPubKey musig2.Point) {
	m.buyerOutputKeyCtx.setPeersKeyShare(buyerOutputPubKey)
	m.sellerOutputKeyCtx.setPeersKeyShare(sellerOutputPubKey)
	if m.AmBuyer() {
		m.swapTxInputSigCtx.adaptorPoint = buyerOutputPubKey
	}
}

// R1: AggregateKeyShares combines both outputs' key shares into their
// aggregated public keys.
func (m *TradeModel) AggregateKeyShares() error {
	if err := m.buyerOutputKeyCtx.aggregateKeyShares(); err != nil {
		return err
	}
	return m.sellerOutputKeyCtx.aggregateKeyShares()
}

func (m *TradeModel) buyerInputSigCtxs() [3]*SigCtx {
	return [3]*SigCtx{m.buyersWarningTxBuyerInputSigCtx, m.sellersWarningTxBuyerInputSigCtx, m.buyersRedirectTxInputSigCtx}
}

func (m *TradeModel) sellerInputSigCtxs() [4]*SigCtx {
	return [4]*SigCtx{m.swapTxInputSigCtx, m.buyersWarningTxSellerInputSigCtx, m.sellersWarningTxSellerInputSigCtx, m.sellersRedirectTxInputSigCtx}
}

// R2: InitMyNonceShares generates this node's nonce share for every input
// this node signs: the inputs keyed to the buyer output use
// buyerOutputKeyCtx's aggregated key for nonce domain separation, and
// likewise for the seller output.
func (m *TradeModel) InitMyNonceShares() error {
	for _, ctx := range m.buyerInputSigCtxs() {
		if err := ctx.initMyNonceShare(m.buyerOutputKeyCtx, m.nonceSeedGen); err != nil {
			return err
		}
	}
	for _, ctx := range m.sellerInputSigCtxs() {
		if err := ctx.initMyNonceShare(m.sellerOutputKeyCtx, m.nonceSeedGen); err != nil {
			return err
		}
	}
	return nil
}

// GetMyNonceShares returns this node's public nonce shares for all seven
// inputs, ready to send to the counterparty.
func (m *TradeModel) GetMyNonceShares() (ExchangedNonces, bool) {
	ctxs := []*SigCtx{
		m.swapTxInputSigCtx,
		m.buyersWarningTxBuyerInputSigCtx,
		m.buyersWarningTxSellerInputSigCtx,
		m.sellersWarningTxBuyerInputSigCtx,
		m.sellersWarningTxSellerInputSigCtx,
		m.buyersRedirectTxInputSigCtx,
		m.sellersRedirectTxInputSigCtx,
	}
	for _, c := range ctxs {
		if c.myNonceShare == nil {
			return ExchangedNonces{}, false
		}
	}
	return ExchangedNonces{
		SwapTxInputNonceShare:                 ctxs[0].myNonceShare.PubNonce,
		BuyersWarningTxBuyerInputNonceShare:   ctxs[1].myNonceShare.PubNonce,
		BuyersWarningTxSellerInputNonceShare:  ctxs[2].myNonceShare.PubNonce,
		SellersWarningTxBuyerInputNonceShare:  ctxs[3].myNonceShare.PubNonce,
		SellersWarningTxSellerInputNonceShare: ctxs[4].myNonceShare.PubNonce,
		BuyersRedirectTxInputNonceShare:       ctxs[5].myNonceShare.PubNonce,
		SellersRedirectTxInputNonceShare:      ctxs[6].myNonceShare.PubNonce,
	}, true
}

// R3: SetPeerNonceShares records the counterparty's nonce shares for all
// seven inputs.
func (m *TradeModel) SetPeerNonceShares(peer ExchangedNonces) {
	m.swapTxInputSigCtx.peersNonceShare = &peer.SwapTxInputNonceShare
	m.buyersWarningTxBuyerInputSigCtx.peersNonceShare = &peer.BuyersWarningTxBuyerInputNonceShare
	m.buyersWarningTxSellerInputSigCtx.peersNonceShare = &peer.BuyersWarningTxSellerInputNonceShare
	m.sellersWarningTxBuyerInputSigCtx.peersNonceShare = &peer.SellersWarningTxBuyerInputNonceShare
	m.sellersWarningTxSellerInputSigCtx.peersNonceShare = &peer.SellersWarningTxSellerInputNonceShare
	m.buyersRedirectTxInputSigCtx.peersNonceShare = &peer.BuyersRedirectTxInputNonceShare
	m.sellersRedirectTxInputSigCtx.peersNonceShare = &peer.SellersRedirectTxInputNonceShare
}

// R3: AggregateNonceShares combines both parties' nonce shares for all
// seven inputs.
func (m *TradeModel) AggregateNonceShares() error {
	for _, ctx := range []*SigCtx{
		m.swapTxInputSigCtx,
		m.buyersWarningTxBuyerInputSigCtx,
		m.buyersWarningTxSellerInputSigCtx,
		m.sellersWarningTxBuyerInputSigCtx,
		m.sellersWarningTxSellerInputSigCtx,
		m.buyersRedirectTxInputSigCtx,
		m.sellersRedirectTxInputSigCtx,
	} {
		if err := ctx.aggregateNonceShares(); err != nil {
			return err
		}
	}
	return nil
}

// R4: SignPartial produces this node's partial signature on every input it
// signs, against placeholder sighash messages. A production build replaces
// these constant messages with the actual computed sighash of each
// transaction, once those transactions are assembled upstream of this
// protocol package.
func (m *TradeModel) SignPartial() error {
	buyerKeyCtx, sellerKeyCtx := m.buyerOutputKeyCtx, m.sellerOutputKeyCtx

	if _, err := m.buyersWarningTxBuyerInputSigCtx.signPartial(buyerKeyCtx, []byte("buyer's warning tx buyer input")); err != nil {
		return err
	}
	if _, err := m.sellersWarningTxBuyerInputSigCtx.signPartial(buyerKeyCtx, []byte("seller's warning tx buyer input")); err != nil {
		return err
	}
	if _, err := m.buyersRedirectTxInputSigCtx.signPartial(buyerKeyCtx, []byte("buyer's redirect tx input")); err != nil {
		return err
	}

	if _, err := m.swapTxInputSigCtx.signPartial(sellerKeyCtx, []byte("swap tx input")); err != nil {
		return err
	}
	if _, err := m.buyersWarningTxSellerInputSigCtx.signPartial(sellerKeyCtx, []byte("buyer's warning tx seller input")); err != nil {
		return err
	}
	if _, err := m.sellersWarningTxSellerInputSigCtx.signPartial(sellerKeyCtx, []byte("seller's warning tx seller input")); err != nil {
		return err
	}
	if _, err := m.sellersRedirectTxInputSigCtx.signPartial(sellerKeyCtx, []byte("seller's redirect tx input")); err != nil {
		return err
	}
	return nil
}

// GetMyPartialSignaturesOnPeerTxs returns this node's partial signatures on
// the transactions the counterparty needs to finish signing (i.e. the
// inputs the counterparty doesn't already hold this node's share for
// locally). SwapTxInputPartialSignature is withheld (nil) when this node is
// the buyer and payment hasn't been armed as started yet.
func (m *TradeModel) GetMyPartialSignaturesOnPeerTxs() (ExchangedSigsOut, bool) {
	var out ExchangedSigsOut
	if m.AmBuyer() {
		if m.sellersWarningTxBuyerInputSigCtx.myPartialSig == nil ||
			m.sellersWarningTxSellerInputSigCtx.myPartialSig == nil ||
			m.sellersRedirectTxInputSigCtx.myPartialSig == nil ||
			m.swapTxInputSigCtx.myPartialSig == nil {
			return ExchangedSigsOut{}, false
		}
		out.PeersWarningTxBuyerInputPartialSignature = m.sellersWarningTxBuyerInputSigCtx.myPartialSig
		out.PeersWarningTxSellerInputPartialSignature = m.sellersWarningTxSellerInputSigCtx.myPartialSig
		out.PeersRedirectTxInputPartialSignature = m.sellersRedirectTxInputSigCtx.myPartialSig
		if m.paymentStarted {
			out.SwapTxInputPartialSignature = m.swapTxInputSigCtx.myPartialSig
		}
		return out, true
	}
	if m.buyersWarningTxBuyerInputSigCtx.myPartialSig == nil ||
		m.buyersWarningTxSellerInputSigCtx.myPartialSig == nil ||
		m.buyersRedirectTxInputSigCtx.myPartialSig == nil ||
		m.swapTxInputSigCtx.myPartialSig == nil {
		return ExchangedSigsOut{}, false
	}
	out.PeersWarningTxBuyerInputPartialSignature = m.buyersWarningTxBuyerInputSigCtx.myPartialSig
	out.PeersWarningTxSellerInputPartialSignature = m.buyersWarningTxSellerInputSigCtx.myPartialSig
	out.PeersRedirectTxInputPartialSignature = m.buyersRedirectTxInputSigCtx.myPartialSig
	out.SwapTxInputPartialSignature = m.swapTxInputSigCtx.myPartialSig
	return out, true
}

// R5: SetPeerPartialSignaturesOnMyTxs records the counterparty's partial
// signatures on this node's transactions. A nil SwapTxInputPartialSignature
// is the expected shape when the sender hasn't armed payment-started yet;
// it's filled in later via SetSwapTxInputPeersPartialSignature.
func (m *TradeModel) SetPeerPartialSignaturesOnMyTxs(sigs ExchangedSigsIn) {
	if m.AmBuyer() {
		m.buyersWarningTxBuyerInputSigCtx.peersPartialSig = &sigs.PeersWarningTxBuyerInputPartialSignature
		m.buyersWarningTxSellerInputSigCtx.peersPartialSig = &sigs.PeersWarningTxSellerInputPartialSignature
		m.buyersRedirectTxInputSigCtx.peersPartialSig = &sigs.PeersRedirectTxInputPartialSignature
		m.swapTxInputSigCtx.peersPartialSig = sigs.SwapTxInputPartialSignature
		return
	}
	m.sellersWarningTxBuyerInputSigCtx.peersPartialSig = &sigs.PeersWarningTxBuyerInputPartialSignature
	m.sellersWarningTxSellerInputSigCtx.peersPartialSig = &sigs.PeersWarningTxSellerInputPartialSignature
	m.sellersRedirectTxInputSigCtx.peersPartialSig = &sigs.PeersRedirectTxInputPartialSignature
	m.swapTxInputSigCtx.peersPartialSig = sigs.SwapTxInputPartialSignature
}

// R6: AggregatePartialSignatures combines both parties' partial signatures
// on the three inputs the counterparty signed for this node. The buyer also
// aggregates the swap tx input here, into an adaptor pre-signature; the
// seller aggregates the swap tx input separately, via
// AggregateSwapTxPartialSignatures.
func (m *TradeModel) AggregatePartialSignatures() error {
	if m.AmBuyer() {
		if _, err := m.buyersWarningTxBuyerInputSigCtx.aggregatePartialSignatures(m.buyerOutputKeyCtx); err != nil {
			return err
		}
		if _, err := m.buyersWarningTxSellerInputSigCtx.aggregatePartialSignatures(m.sellerOutputKeyCtx); err != nil {
			return err
		}
		if _, err := m.buyersRedirectTxInputSigCtx.aggregatePartialSignatures(m.buyerOutputKeyCtx); err != nil {
			return err
		}
		// This forms a validated adaptor signature on the swap tx for the
		// buyer, ensuring the seller's private key share is revealed if the
		// swap tx is ever published. The seller doesn't get this signature
		// (pre- or post-completion) until the buyer arms payment-started.
		// Signed and aggregated against seller_output_key_ctx, matching
		// SignPartial: the swap tx spends the seller's output.
		if _, err := m.swapTxInputSigCtx.aggregatePartialSignatures(m.sellerOutputKeyCtx); err != nil {
			return err
		}
		return nil
	}
	if _, err := m.sellersWarningTxBuyerInputSigCtx.aggregatePartialSignatures(m.buyerOutputKeyCtx); err != nil {
		return err
	}
	if _, err := m.sellersWarningTxSellerInputSigCtx.aggregatePartialSignatures(m.sellerOutputKeyCtx); err != nil {
		return err
	}
	if _, err := m.sellersRedirectTxInputSigCtx.aggregatePartialSignatures(m.sellerOutputKeyCtx); err != nil {
		return err
	}
	return nil
}

// SetSwapTxInputPeersPartialSignature records the counterparty's partial
// signature on the swap tx input, once they've revealed it (normally after
// ArmPaymentStarted on their side).
func (m *TradeModel) SetSwapTxInputPeersPartialSignature(sig musig2.PartialSignature) {
	m.swapTxInputSigCtx.peersPartialSig = &sig
}

// R8: AggregateSwapTxPartialSignatures combines both parties' partial
// signatures on the swap tx input. For either role the stored result is the
// adaptor pre-signature (the same one the buyer computes in
// AggregatePartialSignatures); it is not completed with the adaptor secret
// here, so it is not yet an ordinary publishable signature
// (musig2.CompleteWithAdaptorSecret does that step). The key context is
// always seller_output_key_ctx, regardless of role, since the swap tx spends
// the seller's output.
func (m *TradeModel) AggregateSwapTxPartialSignatures() error {
	_, err := m.swapTxInputSigCtx.aggregatePartialSignatures(m.sellerOutputKeyCtx)
	return err
}

// GetMyPrivateKeyShareForPeerOutput returns this node's private key share
// for the output the counterparty owns. It refuses until payment is
// confirmed (ArmPaymentConfirmed): releasing this any earlier would let the
// counterparty combine it with their own share and claim that output
// outright, independent of the trade's outcome.
func (m *TradeModel) GetMyPrivateKeyShareForPeerOutput() (musig2.Scalar, error) {
	if !m.paymentConfirmed {
		return musig2.Scalar{}, ErrPaymentNotConfirmed
	}
	peerKeyCtx := m.buyerOutputKeyCtx
	if m.AmBuyer() {
		peerKeyCtx = m.sellerOutputKeyCtx
	}
	if peerKeyCtx.myKeyShare == nil {
		return musig2.Scalar{}, ErrMissingKeyShare
	}
	return peerKeyCtx.myKeyShare.PrvKey, nil
}

func (m *TradeModel) myKeyCtx() *KeyCtx {
	if m.AmBuyer() {
		return m.buyerOutputKeyCtx
	}
	return m.sellerOutputKeyCtx
}

// SetPeerPrivateKeyShareForMyOutput records the counterparty's private key
// share for the output this node owns, verifying it matches the public key
// they committed to back in SetPeerKeyShares.
func (m *TradeModel) SetPeerPrivateKeyShareForMyOutput(prvKeyShare musig2.Scalar) error {
	keyCtx := m.myKeyCtx()
	if keyCtx.peersKeyShare == nil {
		return ErrMissingKeyShare
	}
	return keyCtx.peersKeyShare.setPrvKey(prvKeyShare)
}

// AggregatePrivateKeysForMyOutput combines both private key shares for the
// output this node owns into the single aggregated private key that
// unilaterally controls those funds. This is the final step of the
// cooperative close (R9), once both parties have exchanged their private key
// shares for each other's outputs.
func (m *TradeModel) AggregatePrivateKeysForMyOutput() (musig2.Scalar, error) {
	return m.myKeyCtx().aggregatePrvKeyShares()
}
