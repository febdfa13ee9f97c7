package protocol

import "musigd/internal/musig2"

// ExchangedNonces carries the seven public nonce shares exchanged between
// peers in rounds R2/R3 — one per signed input. The same shape is used for
// both outbound (this node's own shares) and inbound (the counterparty's)
// traffic: a PubNonce is a plain value with no optionality to distinguish.
type ExchangedNonces struct {
	SwapTxInputNonceShare                   musig2.PubNonce
	BuyersWarningTxBuyerInputNonceShare     musig2.PubNonce
	BuyersWarningTxSellerInputNonceShare    musig2.PubNonce
	SellersWarningTxBuyerInputNonceShare    musig2.PubNonce
	SellersWarningTxSellerInputNonceShare   musig2.PubNonce
	BuyersRedirectTxInputNonceShare         musig2.PubNonce
	SellersRedirectTxInputNonceShare        musig2.PubNonce
}

// ExchangedSigsOut carries this node's own partial signatures, borrowed out
// of the live TradeModel for immediate serialization. When the owning
// TradeModel is the buyer, SwapTxInputPartialSignature is nil until
// ArmPaymentStarted has been called on it (the seller always includes its
// own) — that's the event gate hardening the premature-exposure risk called out
// against the swap tx's partial signature specifically.
type ExchangedSigsOut struct {
	PeersWarningTxBuyerInputPartialSignature  *musig2.PartialSignature
	PeersWarningTxSellerInputPartialSignature *musig2.PartialSignature
	PeersRedirectTxInputPartialSignature      *musig2.PartialSignature
	SwapTxInputPartialSignature                *musig2.PartialSignature
}

// ExchangedSigsIn carries the counterparty's partial signatures as received
// off the wire: owned values, since nothing is borrowed from their state.
// SwapTxInputPartialSignature stays a pointer: a nil value here is the
// ordinary, expected shape until the sender arms payment-started on their
// side, not a decode error.
type ExchangedSigsIn struct {
	PeersWarningTxBuyerInputPartialSignature  musig2.PartialSignature
	PeersWarningTxSellerInputPartialSignature musig2.PartialSignature
	PeersRedirectTxInputPartialSignature      musig2.PartialSignature
	SwapTxInputPartialSignature                *musig2.PartialSignature
}
