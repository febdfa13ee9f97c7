package protocol

import (
	"bytes"
	"testing"

	"musigd/internal/musig2"
)

func fixedKeyGen(b byte) musig2.KeyGenProvider {
	buf := bytes.Repeat([]byte{b}, 32)
	k, err := musig2.DecodeScalar(buf)
	if err != nil {
		panic(err)
	}
	return musig2.FixedKeyProvider{Key: k}
}

// seqKeyGen hands out the key with every byte set to b, then that key plus
// one, and so on, so a party's buyer-output and seller-output key shares
// differ.
func seqKeyGen(b byte) musig2.KeyGenProvider {
	buf := bytes.Repeat([]byte{b}, 32)
	k, err := musig2.DecodeScalar(buf)
	if err != nil {
		panic(err)
	}
	return &seqKeyProvider{next: k}
}

type seqKeyProvider struct {
	next musig2.Scalar
}

func (p *seqKeyProvider) GenerateKey() (musig2.Scalar, error) {
	k := p.next
	p.next = p.next.Add(musig2.ScalarOne())
	return k, nil
}

func fixedNonceGen(b byte) musig2.NonceSeedProvider {
	var seed musig2.NonceSeed
	seed[0] = b
	return musig2.FixedNonceSeedProvider{Seed: seed}
}

// runHappyPath drives both parties' TradeModels through R0-R6 and returns
// them for further assertions. buyerRole/sellerRole let callers exercise
// either maker/taker pairing: the buyer opening the trade (BuyerAsMaker,
// SellerAsTaker) or the seller opening it (SellerAsMaker, BuyerAsTaker).
// The wire protocol and signing math don't care which side is the maker,
// only AmBuyer (buyer/seller output ownership) does.
func runHappyPath(t *testing.T, buyerRole, sellerRole Role) (buyer, seller *TradeModel) {
	t.Helper()
	if !buyerRole.AmBuyer() || sellerRole.AmBuyer() {
		t.Fatalf("runHappyPath requires a buyer role and a seller role, got %s/%s", buyerRole, sellerRole)
	}
	if buyerRole.IsMaker() == sellerRole.IsMaker() {
		t.Fatalf("runHappyPath requires exactly one maker, got %s/%s", buyerRole, sellerRole)
	}
	buyer = NewTradeModel("trade-1", buyerRole, seqKeyGen(0x10), fixedNonceGen(0x20))
	seller = NewTradeModel("trade-1", sellerRole, seqKeyGen(0x11), fixedNonceGen(0x21))

	if err := buyer.InitMyKeyShares(); err != nil {
		t.Fatalf("buyer init key shares: %v", err)
	}
	if err := seller.InitMyKeyShares(); err != nil {
		t.Fatalf("seller init key shares: %v", err)
	}

	buyerBuyerOutPub, buyerSellerOutPub, ok := buyer.GetMyKeyShares()
	if !ok {
		t.Fatalf("buyer key shares not ready")
	}
	sellerBuyerOutPub, sellerSellerOutPub, ok := seller.GetMyKeyShares()
	if !ok {
		t.Fatalf("seller key shares not ready")
	}

	buyer.SetPeerKeyShares(sellerBuyerOutPub, sellerSellerOutPub)
	seller.SetPeerKeyShares(buyerBuyerOutPub, buyerSellerOutPub)

	if err := buyer.AggregateKeyShares(); err != nil {
		t.Fatalf("buyer aggregate key shares: %v", err)
	}
	if err := seller.AggregateKeyShares(); err != nil {
		t.Fatalf("seller aggregate key shares: %v", err)
	}

	if err := buyer.InitMyNonceShares(); err != nil {
		t.Fatalf("buyer init nonce shares: %v", err)
	}
	if err := seller.InitMyNonceShares(); err != nil {
		t.Fatalf("seller init nonce shares: %v", err)
	}

	buyerNonces, ok := buyer.GetMyNonceShares()
	if !ok {
		t.Fatalf("buyer nonce shares not ready")
	}
	sellerNonces, ok := seller.GetMyNonceShares()
	if !ok {
		t.Fatalf("seller nonce shares not ready")
	}

	buyer.SetPeerNonceShares(sellerNonces)
	seller.SetPeerNonceShares(buyerNonces)

	if err := buyer.AggregateNonceShares(); err != nil {
		t.Fatalf("buyer aggregate nonce shares: %v", err)
	}
	if err := seller.AggregateNonceShares(); err != nil {
		t.Fatalf("seller aggregate nonce shares: %v", err)
	}

	if err := buyer.SignPartial(); err != nil {
		t.Fatalf("buyer sign partial: %v", err)
	}
	if err := seller.SignPartial(); err != nil {
		t.Fatalf("seller sign partial: %v", err)
	}

	buyer.ArmPaymentStarted()

	buyerSigs, ok := buyer.GetMyPartialSignaturesOnPeerTxs()
	if !ok {
		t.Fatalf("buyer partial sigs not ready")
	}
	sellerSigs, ok := seller.GetMyPartialSignaturesOnPeerTxs()
	if !ok {
		t.Fatalf("seller partial sigs not ready")
	}

	seller.SetPeerPartialSignaturesOnMyTxs(ExchangedSigsIn{
		PeersWarningTxBuyerInputPartialSignature:  *buyerSigs.PeersWarningTxBuyerInputPartialSignature,
		PeersWarningTxSellerInputPartialSignature: *buyerSigs.PeersWarningTxSellerInputPartialSignature,
		PeersRedirectTxInputPartialSignature:      *buyerSigs.PeersRedirectTxInputPartialSignature,
		SwapTxInputPartialSignature:               buyerSigs.SwapTxInputPartialSignature,
	})
	buyer.SetPeerPartialSignaturesOnMyTxs(ExchangedSigsIn{
		PeersWarningTxBuyerInputPartialSignature:  *sellerSigs.PeersWarningTxBuyerInputPartialSignature,
		PeersWarningTxSellerInputPartialSignature: *sellerSigs.PeersWarningTxSellerInputPartialSignature,
		PeersRedirectTxInputPartialSignature:      *sellerSigs.PeersRedirectTxInputPartialSignature,
		SwapTxInputPartialSignature:               sellerSigs.SwapTxInputPartialSignature,
	})

	if err := buyer.AggregatePartialSignatures(); err != nil {
		t.Fatalf("buyer aggregate partial signatures: %v", err)
	}
	if err := seller.AggregatePartialSignatures(); err != nil {
		t.Fatalf("seller aggregate partial signatures: %v", err)
	}

	return buyer, seller
}

func TestHappyPathThroughDepositSigning(t *testing.T) {
	// S2: seller=taker, buyer=maker.
	runHappyPath(t, BuyerAsMaker, SellerAsTaker)
}

func TestHappyPathWithSellerAsMaker(t *testing.T) {
	// S1: seller=maker, buyer=taker. The same round sequence must succeed
	// regardless of which side opened the trade.
	runHappyPath(t, BuyerAsTaker, SellerAsMaker)
}

func TestSwapTxSignatureWithheldUntilPaymentStarted(t *testing.T) {
	buyer := NewTradeModel("trade-2", BuyerAsMaker, fixedKeyGen(0x30), fixedNonceGen(0x40))
	seller := NewTradeModel("trade-2", SellerAsTaker, fixedKeyGen(0x31), fixedNonceGen(0x41))

	mustWire(t, buyer, seller)

	sigs, ok := buyer.GetMyPartialSignaturesOnPeerTxs()
	if !ok {
		t.Fatalf("buyer partial sigs not ready")
	}
	if sigs.SwapTxInputPartialSignature != nil {
		t.Fatalf("swap tx partial signature must be withheld before ArmPaymentStarted")
	}

	buyer.ArmPaymentStarted()
	sigs, ok = buyer.GetMyPartialSignaturesOnPeerTxs()
	if !ok {
		t.Fatalf("buyer partial sigs not ready")
	}
	if sigs.SwapTxInputPartialSignature == nil {
		t.Fatalf("swap tx partial signature must be released once payment is armed started")
	}
}

// mustWire drives both models through key- and nonce-aggregation and partial
// signing, stopping short of exchanging partial signatures.
func mustWire(t *testing.T, buyer, seller *TradeModel) {
	t.Helper()
	if err := buyer.InitMyKeyShares(); err != nil {
		t.Fatalf("buyer init key shares: %v", err)
	}
	if err := seller.InitMyKeyShares(); err != nil {
		t.Fatalf("seller init key shares: %v", err)
	}
	bb, bs, _ := buyer.GetMyKeyShares()
	sb, ss, _ := seller.GetMyKeyShares()
	buyer.SetPeerKeyShares(sb, ss)
	seller.SetPeerKeyShares(bb, bs)
	if err := buyer.AggregateKeyShares(); err != nil {
		t.Fatalf("buyer aggregate key shares: %v", err)
	}
	if err := seller.AggregateKeyShares(); err != nil {
		t.Fatalf("seller aggregate key shares: %v", err)
	}
	if err := buyer.InitMyNonceShares(); err != nil {
		t.Fatalf("buyer init nonce shares: %v", err)
	}
	if err := seller.InitMyNonceShares(); err != nil {
		t.Fatalf("seller init nonce shares: %v", err)
	}
	bn, _ := buyer.GetMyNonceShares()
	sn, _ := seller.GetMyNonceShares()
	buyer.SetPeerNonceShares(sn)
	seller.SetPeerNonceShares(bn)
	if err := buyer.AggregateNonceShares(); err != nil {
		t.Fatalf("buyer aggregate nonce shares: %v", err)
	}
	if err := seller.AggregateNonceShares(); err != nil {
		t.Fatalf("seller aggregate nonce shares: %v", err)
	}
	if err := buyer.SignPartial(); err != nil {
		t.Fatalf("buyer sign partial: %v", err)
	}
	if err := seller.SignPartial(); err != nil {
		t.Fatalf("seller sign partial: %v", err)
	}
}

func TestNonceReuseRejected(t *testing.T) {
	buyer := NewTradeModel("trade-3", BuyerAsMaker, fixedKeyGen(0x50), fixedNonceGen(0x60))
	seller := NewTradeModel("trade-3", SellerAsTaker, fixedKeyGen(0x51), fixedNonceGen(0x61))
	mustWire(t, buyer, seller)

	if err := buyer.SignPartial(); err == nil {
		t.Fatalf("expected second SignPartial call to fail with nonce reuse")
	}
}

func TestPrivateKeyShareWithheldUntilPaymentConfirmed(t *testing.T) {
	buyer := NewTradeModel("trade-4", BuyerAsMaker, fixedKeyGen(0x70), fixedNonceGen(0x80))
	seller := NewTradeModel("trade-4", SellerAsTaker, fixedKeyGen(0x71), fixedNonceGen(0x81))
	mustWire(t, buyer, seller)

	if _, err := seller.GetMyPrivateKeyShareForPeerOutput(); err != ErrPaymentNotConfirmed {
		t.Fatalf("expected ErrPaymentNotConfirmed, got %v", err)
	}

	seller.ArmPaymentConfirmed()
	if _, err := seller.GetMyPrivateKeyShareForPeerOutput(); err != nil {
		t.Fatalf("unexpected error after ArmPaymentConfirmed: %v", err)
	}
}

func TestCooperativeCloseRecoversAggregatedKey(t *testing.T) {
	buyer, seller := runHappyPath(t, BuyerAsMaker, SellerAsTaker)
	buyer.ArmPaymentConfirmed()
	seller.ArmPaymentConfirmed()

	buyerShareForSeller, err := buyer.GetMyPrivateKeyShareForPeerOutput()
	if err != nil {
		t.Fatalf("buyer private key share: %v", err)
	}
	sellerShareForBuyer, err := seller.GetMyPrivateKeyShareForPeerOutput()
	if err != nil {
		t.Fatalf("seller private key share: %v", err)
	}

	if err := seller.SetPeerPrivateKeyShareForMyOutput(buyerShareForSeller); err != nil {
		t.Fatalf("seller set peer private key share: %v", err)
	}
	if err := buyer.SetPeerPrivateKeyShareForMyOutput(sellerShareForBuyer); err != nil {
		t.Fatalf("buyer set peer private key share: %v", err)
	}

	sellerAggKey, err := seller.AggregatePrivateKeysForMyOutput()
	if err != nil {
		t.Fatalf("seller aggregate private key: %v", err)
	}
	buyerAggKey, err := buyer.AggregatePrivateKeysForMyOutput()
	if err != nil {
		t.Fatalf("buyer aggregate private key: %v", err)
	}
	if sellerAggKey.Equals(buyerAggKey) {
		t.Fatalf("buyer and seller own different outputs, their aggregated keys must differ")
	}
}

func TestMismatchedPrivateKeyShareRejected(t *testing.T) {
	buyer := NewTradeModel("trade-5", BuyerAsMaker, fixedKeyGen(0x90), fixedNonceGen(0xa0))
	seller := NewTradeModel("trade-5", SellerAsTaker, fixedKeyGen(0x91), fixedNonceGen(0xa1))
	mustWire(t, buyer, seller)
	buyer.ArmPaymentConfirmed()

	wrongKey := fixedKeyGen(0xfe)
	wrong, _ := wrongKey.GenerateKey()
	if err := seller.SetPeerPrivateKeyShareForMyOutput(wrong); err != ErrMismatchedKeyPair {
		t.Fatalf("expected ErrMismatchedKeyPair, got %v", err)
	}
}

func TestStoreRejectsDuplicateTradeID(t *testing.T) {
	store := NewStore()
	m1 := NewTradeModel("dup", BuyerAsMaker, fixedKeyGen(0x01), fixedNonceGen(0x02))
	m2 := NewTradeModel("dup", SellerAsTaker, fixedKeyGen(0x03), fixedNonceGen(0x04))

	if err := store.Add(m1); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := store.Add(m2); err != ErrDuplicateTrade {
		t.Fatalf("expected ErrDuplicateTrade, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected exactly one trade in store, got %d", store.Len())
	}
}

func TestAggregatePartialSignaturesOutOfOrder(t *testing.T) {
	buyer := NewTradeModel("trade-6", BuyerAsMaker, fixedKeyGen(0xb0), fixedNonceGen(0xc0))
	seller := NewTradeModel("trade-6", SellerAsTaker, fixedKeyGen(0xb1), fixedNonceGen(0xc1))
	mustWire(t, buyer, seller)

	// R5 (exchanging partials) is skipped entirely: aggregate_partial_signatures
	// is called against SigCtx instances that never received the peer's share.
	if err := buyer.AggregatePartialSignatures(); err != ErrMissingPartialSig {
		t.Fatalf("expected ErrMissingPartialSig, got %v", err)
	}
}

// TestCheatBranchAdaptorExtraction drives the S5 scenario: the seller
// publishes the swap tx without the buyer ever confirming payment. The swap
// tx input's adaptor point is the seller's own buyer-output key share, so
// completing the pre-signature (something only a holder of that share can
// do) and later observing the completed signature on-chain lets the buyer
// recover it, exactly as R9' describes. Completion/extraction happen
// outside TradeModel's state machine (an on-chain observer's job), so this
// drives the musig2 primitives directly against the pre-signature the two
// TradeModels already agreed on during AggregatePartialSignatures.
func TestCheatBranchAdaptorExtraction(t *testing.T) {
	buyer, seller := runHappyPath(t, BuyerAsMaker, SellerAsTaker)

	preSig := buyer.swapTxInputSigCtx.aggregatedSig
	if preSig == nil {
		t.Fatalf("buyer swap tx pre-signature not produced")
	}
	// The seller's R6 AggregatePartialSignatures deliberately skips the swap
	// tx input (it's withheld for R8's separate AggregateSwapTxPartialSignatures
	// step); the seller already holds the buyer's swap-tx partial from R5
	// since runHappyPath arms payment-started before exchanging partials.
	if err := seller.AggregateSwapTxPartialSignatures(); err != nil {
		t.Fatalf("seller aggregate swap tx partial signatures: %v", err)
	}
	if seller.swapTxInputSigCtx.aggregatedSig == nil || !seller.swapTxInputSigCtx.aggregatedSig.S.Equals(preSig.S) {
		t.Fatalf("buyer and seller disagree on the swap tx pre-signature")
	}

	sellerBuyerOutputShare := seller.buyerOutputKeyCtx.myKeyShare.PrvKey
	completed := musig2.CompleteWithAdaptorSecret(*preSig, sellerBuyerOutputShare)

	extracted := musig2.ExtractAdaptorSecret(completed, *preSig)
	if !extracted.Equals(sellerBuyerOutputShare) {
		t.Fatalf("extracted scalar does not match the seller's buyer-output private key share")
	}
}

func TestStoreUnknownTrade(t *testing.T) {
	store := NewStore()
	err := store.Use("missing", func(*TradeModel) error { return nil })
	if err != ErrTradeNotFound {
		t.Fatalf("expected ErrTradeNotFound, got %v", err)
	}
}
