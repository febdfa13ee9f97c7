// Package rpc implements the wire-facing service boundary the coordinator
// exposes to trading clients: request/response DTOs shaped after the
// protobuf messages this service would normally be generated from, plus the
// MuSig and Greeter service implementations. Full protobuf codegen isn't run
// in this build; see SPEC_FULL.md §6.2 for why these structs stand in for
// generated stubs without losing error-code fidelity.
package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"musigd/internal/musig2"
	"musigd/internal/protocol"
)

// decodePoint parses a 33-byte compressed point off the wire, mapping a
// malformed value to the same invalid_argument status the original
// implementation's MyTryInto<Point> produces.
func decodePoint(b []byte) (musig2.Point, error) {
	p, err := musig2.ParsePoint(b)
	if err != nil {
		return musig2.Point{}, status.Error(codes.InvalidArgument, "could not decode point")
	}
	return p, nil
}

func decodePubNonce(b []byte) (musig2.PubNonce, error) {
	n, err := musig2.DecodePubNonce(b)
	if err != nil {
		return musig2.PubNonce{}, status.Error(codes.InvalidArgument, "could not decode pub nonce")
	}
	return n, nil
}

func decodeScalar(b []byte) (musig2.Scalar, error) {
	s, err := musig2.DecodeScalar(b)
	if err != nil {
		return musig2.Scalar{}, status.Error(codes.InvalidArgument, "could not decode scalar")
	}
	return s, nil
}

func decodePartialSignature(b []byte) (musig2.PartialSignature, error) {
	s, err := musig2.DecodePartialSignature(b)
	if err != nil {
		return musig2.PartialSignature{}, status.Error(codes.InvalidArgument, "could not decode scalar")
	}
	return s, nil
}

// decodeOptionalPartialSignature treats a nil/empty slice as "absent" rather
// than an encoding failure, mirroring Option<Vec<u8>> fields on the wire
// that carry the event-gated secrets (swap tx partial signature, peer's
// private key share at close_trade).
func decodeOptionalPartialSignature(b []byte) (*musig2.PartialSignature, error) {
	if len(b) == 0 {
		return nil, nil
	}
	s, err := decodePartialSignature(b)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeOptionalScalar(b []byte) (*musig2.Scalar, error) {
	if len(b) == 0 {
		return nil, nil
	}
	s, err := decodeScalar(b)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeRole(v int32) (protocol.Role, error) {
	switch v {
	case 0:
		return protocol.SellerAsMaker, nil
	case 1:
		return protocol.SellerAsTaker, nil
	case 2:
		return protocol.BuyerAsMaker, nil
	case 3:
		return protocol.BuyerAsTaker, nil
	default:
		return 0, status.Errorf(codes.OutOfRange, "unknown enum value: %d", v)
	}
}

// errorToStatus maps a protocol error to a gRPC status, mirroring the
// original's blanket From<ProtocolErrorKind> for Status (-> internal).
// ErrTradeNotFound is treated specially since the original implementation
// produces Status::not_found for it ad hoc at the lookup site rather than
// through the ProtocolErrorKind conversion.
func errorToStatus(err error) error {
	if err == nil {
		return nil
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return err
	}
	if err == protocol.ErrTradeNotFound {
		return status.Error(codes.NotFound, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// PubKeySharesRequest is init_trade's request.
type PubKeySharesRequest struct {
	TradeID string
	MyRole  int32
}

// PubKeySharesResponse is init_trade's response.
type PubKeySharesResponse struct {
	BuyerOutputPubKeyShare  []byte
	SellerOutputPubKeyShare []byte
	CurrentBlockHeight      uint64
}

// NonceSharesRequest is get_nonce_shares' request.
type NonceSharesRequest struct {
	TradeID                      string
	BuyerOutputPeersPubKeyShare  []byte
	SellerOutputPeersPubKeyShare []byte
	TradeAmount                  uint64
	BuyersSecurityDeposit        uint64
	SellersSecurityDeposit       uint64
	DepositTxFeeRate             float64
	PreparedTxFeeRate            float64
}

// RawNonceShares mirrors ExchangedNonces on the wire: one 66-byte PubNonce
// per input.
type RawNonceShares struct {
	SwapTxInputNonceShare                 []byte
	BuyersWarningTxBuyerInputNonceShare   []byte
	BuyersWarningTxSellerInputNonceShare  []byte
	SellersWarningTxBuyerInputNonceShare  []byte
	SellersWarningTxSellerInputNonceShare []byte
	BuyersRedirectTxInputNonceShare       []byte
	SellersRedirectTxInputNonceShare      []byte
}

// NonceSharesMessage is get_nonce_shares' response.
type NonceSharesMessage struct {
	WarningTxFeeBumpAddress   string
	RedirectTxFeeBumpAddress  string
	HalfDepositPsbt           []byte
	RawNonceShares
}

// PartialSignaturesRequest is get_partial_signatures' request.
type PartialSignaturesRequest struct {
	TradeID         string
	PeersNonceShares *RawNonceShares
}

// RawPartialSigs mirrors ExchangedSigs on the wire.
type RawPartialSigs struct {
	PeersWarningTxBuyerInputPartialSignature  []byte
	PeersWarningTxSellerInputPartialSignature []byte
	PeersRedirectTxInputPartialSignature      []byte
	SwapTxInputPartialSignature               []byte // empty means absent
}

// PartialSignaturesMessage is get_partial_signatures' response.
type PartialSignaturesMessage struct {
	RawPartialSigs
}

// DepositTxSignatureRequest is sign_deposit_tx's request.
type DepositTxSignatureRequest struct {
	TradeID                  string
	PeersPartialSignatures   *RawPartialSigs
}

// DepositPsbt is sign_deposit_tx's response.
type DepositPsbt struct {
	DepositPsbt []byte
}

// PublishDepositTxRequest is publish_deposit_tx's request.
type PublishDepositTxRequest struct {
	TradeID string
}

// TxConfirmationStatus is one item streamed back from publish_deposit_tx.
type TxConfirmationStatus struct {
	Tx                 []byte
	CurrentBlockHeight uint64
	NumConfirmations   uint32
}

// SwapTxSignatureRequest is sign_swap_tx's request.
type SwapTxSignatureRequest struct {
	TradeID                             string
	SwapTxInputPeersPartialSignature    []byte
}

// SwapTxSignatureResponse is sign_swap_tx's response.
type SwapTxSignatureResponse struct {
	SwapTx               []byte
	PeerOutputPrvKeyShare []byte
}

// CloseTradeRequest is close_trade's request. MyOutputPeersPrvKeyShare is
// the peer's private key share for this node's output, letting this node
// sweep that output unilaterally; it is empty when the peer has not handed
// their share over yet.
type CloseTradeRequest struct {
	TradeID                   string
	MyOutputPeersPrvKeyShare  []byte
}

// CloseTradeResponse is close_trade's response.
type CloseTradeResponse struct {
	PeerOutputPrvKeyShare []byte
}

// HelloRequest/HelloReply and ClockRequest/TickEvent back the Greeter smoke
// service, unchanged from the original implementation's purpose: a minimal
// liveness check independent of the MuSig protocol.
type HelloRequest struct {
	Name string
}

type HelloReply struct {
	Message string
}

type ClockRequest struct {
	TickPeriodMillis uint32
}

type TickEvent struct {
	CurrentTimeMillis uint64
}
