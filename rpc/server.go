package rpc

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"musigd/internal/musig2"
	"musigd/internal/protocol"
	"musigd/internal/telemetry"
)

// Service implements the MuSig and Greeter RPC surface over a trade store.
type Service struct {
	trades    *protocol.Store
	telemetry *telemetry.Logger
	keyGen    func() musig2.KeyGenProvider
	nonceGen  func() musig2.NonceSeedProvider
}

// NewService constructs a Service. keyGen and nonceGen are invoked once per
// init_trade call to obtain that trade's key/nonce providers — production
// deployments pass constructors that hand out CSPRNG-backed providers.
func NewService(trades *protocol.Store, telemetry *telemetry.Logger, keyGen func() musig2.KeyGenProvider, nonceGen func() musig2.NonceSeedProvider) *Service {
	return &Service{trades: trades, telemetry: telemetry, keyGen: keyGen, nonceGen: nonceGen}
}

func (s *Service) recordRound(round string) {
	if s.telemetry != nil {
		s.telemetry.RecordRoundCompleted(round)
	}
}

// InitTrade implements R0: constructs a fresh TradeModel, generates this
// node's key shares, and registers the trade.
func (s *Service) InitTrade(req PubKeySharesRequest) (PubKeySharesResponse, error) {
	role, err := decodeRole(req.MyRole)
	if err != nil {
		return PubKeySharesResponse{}, err
	}
	model := protocol.NewTradeModel(req.TradeID, role, s.keyGen(), s.nonceGen())
	if err := model.InitMyKeyShares(); err != nil {
		return PubKeySharesResponse{}, errorToStatus(err)
	}
	buyerPub, sellerPub, ok := model.GetMyKeyShares()
	if !ok {
		return PubKeySharesResponse{}, status.Error(codes.Internal, "missing key shares")
	}
	if err := s.trades.Add(model); err != nil {
		return PubKeySharesResponse{}, errorToStatus(err)
	}
	if s.telemetry != nil {
		s.telemetry.LogEvent(logrus.InfoLevel, "trade initialized", logrus.Fields{
			"trade_id": req.TradeID,
			"role":     role.String(),
			"is_maker": role.IsMaker(),
		})
	}
	s.recordRound("init_trade")
	return PubKeySharesResponse{
		BuyerOutputPubKeyShare:  buyerPub.SerializeCompressed(),
		SellerOutputPubKeyShare: sellerPub.SerializeCompressed(),
		CurrentBlockHeight:      900_000,
	}, nil
}

func decodeRawNonceShares(raw RawNonceShares) (protocol.ExchangedNonces, error) {
	var out protocol.ExchangedNonces
	var err error
	if out.SwapTxInputNonceShare, err = decodePubNonce(raw.SwapTxInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.BuyersWarningTxBuyerInputNonceShare, err = decodePubNonce(raw.BuyersWarningTxBuyerInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.BuyersWarningTxSellerInputNonceShare, err = decodePubNonce(raw.BuyersWarningTxSellerInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.SellersWarningTxBuyerInputNonceShare, err = decodePubNonce(raw.SellersWarningTxBuyerInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.SellersWarningTxSellerInputNonceShare, err = decodePubNonce(raw.SellersWarningTxSellerInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.BuyersRedirectTxInputNonceShare, err = decodePubNonce(raw.BuyersRedirectTxInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	if out.SellersRedirectTxInputNonceShare, err = decodePubNonce(raw.SellersRedirectTxInputNonceShare); err != nil {
		return protocol.ExchangedNonces{}, err
	}
	return out, nil
}

func encodeExchangedNonces(n protocol.ExchangedNonces) RawNonceShares {
	return RawNonceShares{
		SwapTxInputNonceShare:                 n.SwapTxInputNonceShare.Serialize(),
		BuyersWarningTxBuyerInputNonceShare:   n.BuyersWarningTxBuyerInputNonceShare.Serialize(),
		BuyersWarningTxSellerInputNonceShare:  n.BuyersWarningTxSellerInputNonceShare.Serialize(),
		SellersWarningTxBuyerInputNonceShare:  n.SellersWarningTxBuyerInputNonceShare.Serialize(),
		SellersWarningTxSellerInputNonceShare: n.SellersWarningTxSellerInputNonceShare.Serialize(),
		BuyersRedirectTxInputNonceShare:       n.BuyersRedirectTxInputNonceShare.Serialize(),
		SellersRedirectTxInputNonceShare:      n.SellersRedirectTxInputNonceShare.Serialize(),
	}
}

// GetNonceShares implements R1-R2: records the peer's key shares, aggregates
// keys, generates this node's nonce shares, and stashes the trade terms.
func (s *Service) GetNonceShares(req NonceSharesRequest) (NonceSharesMessage, error) {
	buyerPub, err := decodePoint(req.BuyerOutputPeersPubKeyShare)
	if err != nil {
		return NonceSharesMessage{}, err
	}
	sellerPub, err := decodePoint(req.SellerOutputPeersPubKeyShare)
	if err != nil {
		return NonceSharesMessage{}, err
	}

	var response NonceSharesMessage
	err = s.trades.Use(req.TradeID, func(model *protocol.TradeModel) error {
		model.SetPeerKeyShares(buyerPub, sellerPub)
		if err := model.AggregateKeyShares(); err != nil {
			return err
		}
		if err := model.InitMyNonceShares(); err != nil {
			return err
		}
		tradeAmount, buyersDeposit, sellersDeposit := req.TradeAmount, req.BuyersSecurityDeposit, req.SellersSecurityDeposit
		depositFeeRate, preparedFeeRate := req.DepositTxFeeRate, req.PreparedTxFeeRate
		model.TradeAmount = &tradeAmount
		model.BuyersSecurityDeposit = &buyersDeposit
		model.SellersSecurityDeposit = &sellersDeposit
		model.DepositTxFeeRate = &depositFeeRate
		model.PreparedTxFeeRate = &preparedFeeRate

		nonces, ok := model.GetMyNonceShares()
		if !ok {
			return status.Error(codes.Internal, "missing nonce shares")
		}
		response = NonceSharesMessage{
			WarningTxFeeBumpAddress:  "address1",
			RedirectTxFeeBumpAddress: "address2",
			HalfDepositPsbt:          nil,
			RawNonceShares:           encodeExchangedNonces(nonces),
		}
		return nil
	})
	if err != nil {
		return NonceSharesMessage{}, errorToStatus(err)
	}
	s.recordRound("get_nonce_shares")
	return response, nil
}

// GetPartialSignatures implements R3-R5: records the peer's nonce shares,
// aggregates nonces, signs every input this node owes a partial signature
// for, and returns the shares the peer needs. Once this node has signed, a
// repeat call leaves the nonce and signing state untouched and returns the
// stored partial signatures again.
func (s *Service) GetPartialSignatures(req PartialSignaturesRequest) (PartialSignaturesMessage, error) {
	if req.PeersNonceShares == nil {
		return PartialSignaturesMessage{}, status.Error(codes.NotFound, "missing request.peers_nonce_shares")
	}
	peerNonces, err := decodeRawNonceShares(*req.PeersNonceShares)
	if err != nil {
		return PartialSignaturesMessage{}, err
	}

	var response PartialSignaturesMessage
	err = s.trades.Use(req.TradeID, func(model *protocol.TradeModel) error {
		if sigs, ok := model.GetMyPartialSignaturesOnPeerTxs(); ok {
			response = PartialSignaturesMessage{RawPartialSigs: encodeExchangedSigsOut(sigs)}
			return nil
		}
		model.SetPeerNonceShares(peerNonces)
		if err := model.AggregateNonceShares(); err != nil {
			return err
		}
		if err := model.SignPartial(); err != nil {
			if err == protocol.ErrNonceReuse && s.telemetry != nil {
				s.telemetry.RecordNonceReuseRejected()
			}
			return err
		}
		sigs, ok := model.GetMyPartialSignaturesOnPeerTxs()
		if !ok {
			return status.Error(codes.Internal, "missing partial signatures")
		}
		response = PartialSignaturesMessage{RawPartialSigs: encodeExchangedSigsOut(sigs)}
		return nil
	})
	if err != nil {
		return PartialSignaturesMessage{}, errorToStatus(err)
	}
	s.recordRound("get_partial_signatures")
	return response, nil
}

func encodeExchangedSigsOut(s protocol.ExchangedSigsOut) RawPartialSigs {
	var swap []byte
	if s.SwapTxInputPartialSignature != nil {
		swap = s.SwapTxInputPartialSignature.Serialize()
	}
	return RawPartialSigs{
		PeersWarningTxBuyerInputPartialSignature:  s.PeersWarningTxBuyerInputPartialSignature.Serialize(),
		PeersWarningTxSellerInputPartialSignature: s.PeersWarningTxSellerInputPartialSignature.Serialize(),
		PeersRedirectTxInputPartialSignature:      s.PeersRedirectTxInputPartialSignature.Serialize(),
		SwapTxInputPartialSignature:               swap,
	}
}

func decodeRawPartialSigs(raw RawPartialSigs) (protocol.ExchangedSigsIn, error) {
	buyerWarn, err := decodePartialSignature(raw.PeersWarningTxBuyerInputPartialSignature)
	if err != nil {
		return protocol.ExchangedSigsIn{}, err
	}
	sellerWarn, err := decodePartialSignature(raw.PeersWarningTxSellerInputPartialSignature)
	if err != nil {
		return protocol.ExchangedSigsIn{}, err
	}
	redirect, err := decodePartialSignature(raw.PeersRedirectTxInputPartialSignature)
	if err != nil {
		return protocol.ExchangedSigsIn{}, err
	}
	swap, err := decodeOptionalPartialSignature(raw.SwapTxInputPartialSignature)
	if err != nil {
		return protocol.ExchangedSigsIn{}, err
	}
	return protocol.ExchangedSigsIn{
		PeersWarningTxBuyerInputPartialSignature:  buyerWarn,
		PeersWarningTxSellerInputPartialSignature: sellerWarn,
		PeersRedirectTxInputPartialSignature:      redirect,
		SwapTxInputPartialSignature:                swap,
	}, nil
}

// SignDepositTx implements R5-R6: records the peer's partial signatures and
// aggregates the inputs the peer signed for this node (for the buyer, this
// includes the swap tx input's adaptor pre-signature).
func (s *Service) SignDepositTx(req DepositTxSignatureRequest) (DepositPsbt, error) {
	if req.PeersPartialSignatures == nil {
		return DepositPsbt{}, status.Error(codes.NotFound, "missing request.peers_partial_signatures")
	}
	sigs, err := decodeRawPartialSigs(*req.PeersPartialSignatures)
	if err != nil {
		return DepositPsbt{}, err
	}

	err = s.trades.Use(req.TradeID, func(model *protocol.TradeModel) error {
		model.SetPeerPartialSignaturesOnMyTxs(sigs)
		return model.AggregatePartialSignatures()
	})
	if err != nil {
		return DepositPsbt{}, errorToStatus(err)
	}
	s.recordRound("sign_deposit_tx")
	return DepositPsbt{DepositPsbt: []byte("deposit_psbt")}, nil
}

// PublishDepositTx implements deposit broadcast; see stream.go for the
// streaming shape. Actual broadcast is out of scope for this coordinator
// (see SPEC_FULL.md Non-goals) — it returns a single synthetic confirmation
// event, matching the original implementation's stub.
func (s *Service) PublishDepositTx(req PublishDepositTxRequest) (<-chan TxConfirmationStatus, error) {
	if err := s.trades.Use(req.TradeID, func(*protocol.TradeModel) error { return nil }); err != nil {
		return nil, errorToStatus(err)
	}
	ch := make(chan TxConfirmationStatus, 1)
	ch <- TxConfirmationStatus{
		Tx:                 []byte("signed_deposit_tx"),
		CurrentBlockHeight: 900_001,
		NumConfirmations:   1,
	}
	close(ch)
	s.recordRound("publish_deposit_tx")
	return ch, nil
}

// SignSwapTx implements R8: records the peer's partial signature on the
// swap tx input, aggregates it, and releases this node's private key share
// for the peer's output — gated on ArmPaymentConfirmed having been called:
// before that, the call succeeds and PeerOutputPrvKeyShare is left empty.
func (s *Service) SignSwapTx(req SwapTxSignatureRequest) (SwapTxSignatureResponse, error) {
	peerSig, err := decodePartialSignature(req.SwapTxInputPeersPartialSignature)
	if err != nil {
		return SwapTxSignatureResponse{}, err
	}

	var prvKeyShare []byte
	err = s.trades.Use(req.TradeID, func(model *protocol.TradeModel) error {
		model.SetSwapTxInputPeersPartialSignature(peerSig)
		if err := model.AggregateSwapTxPartialSignatures(); err != nil {
			return err
		}
		share, err := model.GetMyPrivateKeyShareForPeerOutput()
		if err == protocol.ErrPaymentNotConfirmed {
			return nil
		}
		if err != nil {
			return err
		}
		b := share.Bytes()
		prvKeyShare = b[:]
		return nil
	})
	if err != nil {
		return SwapTxSignatureResponse{}, errorToStatus(err)
	}
	s.recordRound("sign_swap_tx")
	return SwapTxSignatureResponse{
		SwapTx:                []byte("signed_swap_tx"),
		PeerOutputPrvKeyShare: prvKeyShare,
	}, nil
}

// CloseTrade implements the cooperative close (R9): it returns this node's
// private key share for the peer's output and, if the peer supplied their
// private key share for this node's output, installs it and aggregates the
// full key so this node can sweep its own output unilaterally.
func (s *Service) CloseTrade(req CloseTradeRequest) (CloseTradeResponse, error) {
	peerShare, err := decodeOptionalScalar(req.MyOutputPeersPrvKeyShare)
	if err != nil {
		return CloseTradeResponse{}, err
	}

	var myShare musig2.Scalar
	err = s.trades.Use(req.TradeID, func(model *protocol.TradeModel) error {
		if peerShare != nil {
			if err := model.SetPeerPrivateKeyShareForMyOutput(*peerShare); err != nil {
				return err
			}
			if _, err := model.AggregatePrivateKeysForMyOutput(); err != nil {
				return err
			}
		}
		share, err := model.GetMyPrivateKeyShareForPeerOutput()
		if err != nil {
			return err
		}
		myShare = share
		return nil
	})
	if err != nil {
		return CloseTradeResponse{}, errorToStatus(err)
	}
	s.trades.Remove(req.TradeID)
	s.recordRound("close_trade")
	return CloseTradeResponse{PeerOutputPrvKeyShare: myShare.Bytes()[:]}, nil
}

// ArmPaymentStarted marks off-chain payment as begun for a trade, releasing
// the buyer's withheld swap tx partial signature on the next
// get_partial_signatures-derived read. This isn't part of the original
// protobuf surface; it's the hook the off-chain payment layer calls once the
// buyer actually starts paying, closing the premature-exposure gap noted in
// SPEC_FULL.md §4.6.
func (s *Service) ArmPaymentStarted(tradeID string) error {
	return errorToStatus(s.trades.Use(tradeID, func(model *protocol.TradeModel) error {
		model.ArmPaymentStarted()
		return nil
	}))
}

// ArmPaymentConfirmed marks payment as confirmed for a trade, releasing
// this node's private key share for the counterparty's output.
func (s *Service) ArmPaymentConfirmed(tradeID string) error {
	return errorToStatus(s.trades.Use(tradeID, func(model *protocol.TradeModel) error {
		model.ArmPaymentConfirmed()
		return nil
	}))
}

// Greeter is the liveness-check service kept alongside the MuSig service,
// independent of any trade state.
type Greeter struct{}

// SayHello implements the smoke-test RPC.
func (Greeter) SayHello(req HelloRequest) (HelloReply, error) {
	return HelloReply{Message: fmt.Sprintf("Hello, %s!", req.Name)}, nil
}
