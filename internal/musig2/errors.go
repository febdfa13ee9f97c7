package musig2

import "errors"

// Cryptographic failure classes surfaced by this package. These mirror the
// error variants forwarded from the musig2/secp crates in the original
// implementation (musig2::errors::{KeyAggError, SigningError, VerifyError,
// InvalidSecretKeysError} and secp::errors::ZeroScalarError).
var (
	ErrZeroScalar         = errors.New("musig2: scalar is zero")
	ErrInvalidSecretKeys  = errors.New("musig2: invalid secret key material")
	ErrKeyAgg             = errors.New("musig2: key aggregation failed")
	ErrSigning            = errors.New("musig2: partial signing failed")
	ErrVerify             = errors.New("musig2: signature verification failed")
	ErrIdentityAggNonce   = errors.New("musig2: aggregate nonce is the point at infinity")
	ErrMalformedPoint     = errors.New("musig2: could not decode point")
	ErrMalformedScalar    = errors.New("musig2: could not decode scalar")
	ErrMalformedPubNonce  = errors.New("musig2: could not decode pub nonce")
)
