package musig2

import (
	"bytes"
	"testing"
)

func mustKey(t *testing.T, b byte) Scalar {
	t.Helper()
	buf := bytes.Repeat([]byte{b}, 32)
	s, err := DecodeScalar(buf)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	return s
}

func TestKeyAggregationOrderingSymmetry(t *testing.T) {
	a := mustKey(t, 0x01)
	b := mustKey(t, 0x02)
	A, B := a.BasePointMul(), b.BasePointMul()

	ctx1, err := NewKeyAggContext([2]Point{A, B})
	if err != nil {
		t.Fatalf("keyagg: %v", err)
	}
	ctx2, err := NewKeyAggContext([2]Point{B, A})
	if err != nil {
		t.Fatalf("keyagg: %v", err)
	}
	if ctx1.AggregatedPubKey().Equal(ctx2.AggregatedPubKey()) {
		t.Fatalf("expected ordering to change the aggregated key")
	}

	if _, err := ctx1.AggregatedSecKey([2]Scalar{a, b}); err != nil {
		t.Fatalf("consistent order should aggregate: %v", err)
	}
	if _, err := ctx1.AggregatedSecKey([2]Scalar{b, a}); err == nil {
		t.Fatalf("swapped secret order should fail consistency check")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	a := mustKey(t, 0x11)
	b := mustKey(t, 0x22)
	A, B := a.BasePointMul(), b.BasePointMul()

	ctx, err := NewKeyAggContext([2]Point{A, B})
	if err != nil {
		t.Fatalf("keyagg: %v", err)
	}

	secA, pubA, err := NewSecNonce(NonceSeed{0x01}, ctx.AggregatedPubKey())
	if err != nil {
		t.Fatalf("nonce a: %v", err)
	}
	secB, pubB, err := NewSecNonce(NonceSeed{0x02}, ctx.AggregatedPubKey())
	if err != nil {
		t.Fatalf("nonce b: %v", err)
	}
	aggNonce := SumPubNonces([2]PubNonce{pubA, pubB})

	msg := []byte("swap-tx-sighash")

	sigA, err := SignPartial(ctx, 0, a, secA, aggNonce, Identity(), msg)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	sigB, err := SignPartial(ctx, 1, b, secB, aggNonce, Identity(), msg)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}

	full, err := AggregatePartialSignatures(ctx, aggNonce, Identity(), [2]PubNonce{pubA, pubB}, [2]PartialSignature{sigA, sigB}, msg)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if !Verify(full, aggNonce, ctx.AggregatedPubKey(), Identity(), msg, false) {
		t.Fatalf("expected aggregated signature to verify")
	}
	if Verify(full, aggNonce, ctx.AggregatedPubKey(), Identity(), []byte("different message"), false) {
		t.Fatalf("signature must not verify against a different message")
	}
}

func TestAdaptorSignCompleteExtract(t *testing.T) {
	a := mustKey(t, 0x33)
	b := mustKey(t, 0x44)
	A, B := a.BasePointMul(), b.BasePointMul()

	ctx, err := NewKeyAggContext([2]Point{A, B})
	if err != nil {
		t.Fatalf("keyagg: %v", err)
	}

	secA, pubA, _ := NewSecNonce(NonceSeed{0x05}, ctx.AggregatedPubKey())
	secB, pubB, _ := NewSecNonce(NonceSeed{0x06}, ctx.AggregatedPubKey())
	aggNonce := SumPubNonces([2]PubNonce{pubA, pubB})

	t_, err := DecodeScalar(bytes.Repeat([]byte{0x07}, 32))
	if err != nil {
		t.Fatalf("adaptor secret: %v", err)
	}
	adaptorPoint := t_.BasePointMul()

	msg := []byte("swap-tx-sighash")

	sigA, err := SignPartial(ctx, 0, a, secA, aggNonce, adaptorPoint, msg)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	sigB, err := SignPartial(ctx, 1, b, secB, aggNonce, adaptorPoint, msg)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}

	preSig, err := AggregatePartialSignatures(ctx, aggNonce, adaptorPoint, [2]PubNonce{pubA, pubB}, [2]PartialSignature{sigA, sigB}, msg)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if Verify(preSig, aggNonce, ctx.AggregatedPubKey(), Identity(), msg, false) {
		t.Fatalf("pre-signature must not verify as an ordinary signature")
	}
	if !Verify(preSig, aggNonce, ctx.AggregatedPubKey(), adaptorPoint, msg, false) {
		t.Fatalf("pre-signature must verify as an adaptor signature")
	}

	completed := CompleteWithAdaptorSecret(preSig, t_)
	if !Verify(completed, aggNonce, ctx.AggregatedPubKey(), adaptorPoint, msg, true) {
		t.Fatalf("completed signature must verify over R+T")
	}

	extracted := ExtractAdaptorSecret(completed, preSig)
	if !extracted.Equals(t_) {
		t.Fatalf("extracted adaptor secret does not match")
	}
	if !extracted.BasePointMul().Equal(adaptorPoint) {
		t.Fatalf("extracted secret does not reproduce the adaptor point")
	}
}

func TestAggregatePartialSignaturesRejectsTamperedShare(t *testing.T) {
	a := mustKey(t, 0x51)
	b := mustKey(t, 0x52)
	A, B := a.BasePointMul(), b.BasePointMul()

	ctx, err := NewKeyAggContext([2]Point{A, B})
	if err != nil {
		t.Fatalf("keyagg: %v", err)
	}
	secA, pubA, _ := NewSecNonce(NonceSeed{0x09}, ctx.AggregatedPubKey())
	secB, pubB, _ := NewSecNonce(NonceSeed{0x0a}, ctx.AggregatedPubKey())
	aggNonce := SumPubNonces([2]PubNonce{pubA, pubB})
	msg := []byte("msg")

	sigA, err := SignPartial(ctx, 0, a, secA, aggNonce, Identity(), msg)
	if err != nil {
		t.Fatalf("sign a: %v", err)
	}
	_, err = SignPartial(ctx, 1, b, secB, aggNonce, Identity(), msg)
	if err != nil {
		t.Fatalf("sign b: %v", err)
	}

	tampered := PartialSignature{S: sigA.S.Add(ScalarOne())}
	if _, err := AggregatePartialSignatures(ctx, aggNonce, Identity(), [2]PubNonce{pubA, pubB}, [2]PartialSignature{tampered, sigA}, msg); err == nil {
		t.Fatalf("expected tampered partial signature to be rejected")
	}
}

func TestNonceReuseIsObservableAtTheNonceLevel(t *testing.T) {
	seed := NonceSeed{0x0b}
	agg := ScalarOne().BasePointMul()
	_, pub1, err := NewSecNonce(seed, agg)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	_, pub2, err := NewSecNonce(seed, agg)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	if !pub1.R1.Equal(pub2.R1) || !pub1.R2.Equal(pub2.R2) {
		t.Fatalf("deriving from the same seed and key must be deterministic")
	}
}
