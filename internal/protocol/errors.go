// Package protocol implements the two-party trade-signing state machine: key
// aggregation, nonce exchange, and adaptor/ordinary partial-signature
// aggregation across the seven transaction inputs a BTC trade needs signed,
// wired together by role (buyer/seller, maker/taker).
package protocol

import "errors"

// Sentinel errors returned by TradeModel, KeyCtx and SigCtx operations. Each
// maps to one gRPC status code at the rpc boundary (see rpc.errorToStatus).
var (
	ErrMissingKeyShare     = errors.New("protocol: missing key share")
	ErrMissingNonceShare   = errors.New("protocol: missing nonce share")
	ErrMissingPartialSig   = errors.New("protocol: missing partial signature")
	ErrMissingAggPubKey    = errors.New("protocol: missing aggregated public key")
	ErrMissingAggNonce     = errors.New("protocol: missing aggregated nonce")
	ErrNonceReuse          = errors.New("protocol: nonce has already been used")
	ErrMismatchedKeyPair   = errors.New("protocol: public/private key mismatch")
	ErrZeroAggNonce        = errors.New("protocol: aggregated nonce is the point at infinity")
	ErrDuplicateTrade      = errors.New("protocol: a trade with this ID already exists")
	ErrTradeNotFound       = errors.New("protocol: no trade with this ID")
	ErrPaymentNotStarted   = errors.New("protocol: payment has not been started for this trade")
	ErrPaymentNotConfirmed = errors.New("protocol: payment has not been confirmed for this trade")
)
