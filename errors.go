package x402

import (
	"errors"
	"fmt"
)

// Standard x402 error definitions. Wrap these with fmt.Errorf and %w so
// callers can match them with errors.Is.

var (
	// ErrPaymentRequired indicates that payment is required to access the resource.
	ErrPaymentRequired = errors.New("x402: payment required")

	// ErrInvalidPayment indicates that the provided payment is invalid.
	ErrInvalidPayment = errors.New("x402: invalid payment")

	// ErrMalformedHeader indicates that the X-PAYMENT header is malformed.
	ErrMalformedHeader = errors.New("x402: malformed payment header")

	// ErrUnsupportedVersion indicates an unsupported x402 protocol version.
	ErrUnsupportedVersion = errors.New("x402: unsupported protocol version")

	// ErrUnsupportedScheme indicates an unsupported payment scheme.
	ErrUnsupportedScheme = errors.New("x402: unsupported payment scheme")

	// ErrUnsupportedNetwork indicates an unsupported blockchain network.
	ErrUnsupportedNetwork = errors.New("x402: unsupported network")

	// ErrInvalidSignature indicates an invalid cryptographic signature.
	ErrInvalidSignature = errors.New("x402: invalid signature")

	// ErrInvalidAuthorization indicates invalid payment authorization data.
	ErrInvalidAuthorization = errors.New("x402: invalid authorization")

	// ErrExpiredAuthorization indicates the payment authorization has expired.
	ErrExpiredAuthorization = errors.New("x402: expired authorization")

	// ErrInsufficientFunds indicates the payer has insufficient funds.
	ErrInsufficientFunds = errors.New("x402: insufficient funds")

	// ErrInvalidNonce indicates an invalid or reused nonce.
	ErrInvalidNonce = errors.New("x402: invalid nonce")

	// ErrRecipientMismatch indicates payment recipient doesn't match requirements.
	ErrRecipientMismatch = errors.New("x402: recipient mismatch")

	// ErrAmountMismatch indicates payment amount doesn't meet requirements.
	ErrAmountMismatch = errors.New("x402: amount mismatch")

	// ErrFacilitatorUnavailable indicates the facilitator service is unavailable.
	ErrFacilitatorUnavailable = errors.New("x402: facilitator service unavailable")

	// ErrSettlementFailed indicates on-chain settlement failed.
	ErrSettlementFailed = errors.New("x402: payment settlement failed")

	// ErrVerificationFailed indicates payment verification failed.
	ErrVerificationFailed = errors.New("x402: payment verification failed")

	// ErrTimeout indicates the operation timed out.
	ErrTimeout = errors.New("x402: operation timed out")

	// ErrNoValidSigner indicates no configured signer can satisfy any of
	// the offered payment requirements.
	ErrNoValidSigner = errors.New("x402: no signer can satisfy payment requirements")

	// ErrAmountExceeded indicates the required amount is above a configured
	// spending limit.
	ErrAmountExceeded = errors.New("x402: payment amount exceeds per-call limit")

	// ErrInvalidRequirements indicates malformed payment requirements.
	ErrInvalidRequirements = errors.New("x402: invalid payment requirements")

	// ErrSigningFailed indicates the signer failed to produce a signature.
	ErrSigningFailed = errors.New("x402: payment signing failed")

	// ErrNetworkError indicates a network-level failure during payment.
	ErrNetworkError = errors.New("x402: network error during payment")

	// ErrInvalidAmount indicates an amount that could not be parsed.
	ErrInvalidAmount = errors.New("x402: invalid amount")

	// ErrInvalidKey indicates an unusable private key.
	ErrInvalidKey = errors.New("x402: invalid private key")

	// ErrInvalidNetwork indicates an invalid network in signer configuration.
	ErrInvalidNetwork = errors.New("x402: invalid or unsupported network")

	// ErrInvalidToken indicates an invalid token configuration.
	ErrInvalidToken = errors.New("x402: invalid token configuration")

	// ErrInvalidKeystore indicates an unreadable or undecryptable keystore file.
	ErrInvalidKeystore = errors.New("x402: invalid keystore file")

	// ErrInvalidMnemonic indicates an invalid BIP-39 mnemonic phrase.
	ErrInvalidMnemonic = errors.New("x402: invalid mnemonic phrase")

	// ErrNoTokens indicates a signer configured without any spendable tokens.
	ErrNoTokens = errors.New("x402: no tokens configured")

	// ErrInvalidPrice indicates a price that could not be resolved into an
	// atomic token amount.
	ErrInvalidPrice = errors.New("x402: invalid price")

	// ErrInvalidConfig indicates invalid middleware or client configuration.
	ErrInvalidConfig = errors.New("x402: invalid configuration")

	// ErrUnknownToken indicates no known settlement token for the network.
	ErrUnknownToken = errors.New("x402: no known token for network")
)

// ErrorCode classifies payment failures for programmatic handling.
type ErrorCode string

const (
	// ErrCodeNoValidSigner indicates no signer matched the requirements.
	ErrCodeNoValidSigner ErrorCode = "NO_VALID_SIGNER"

	// ErrCodeAmountExceeded indicates the payment exceeds the configured cap.
	ErrCodeAmountExceeded ErrorCode = "AMOUNT_EXCEEDED"

	// ErrCodeInvalidRequirements indicates malformed payment requirements.
	ErrCodeInvalidRequirements ErrorCode = "INVALID_REQUIREMENTS"

	// ErrCodeSigningFailed indicates signature generation failed.
	ErrCodeSigningFailed ErrorCode = "SIGNING_FAILED"

	// ErrCodeNetworkError indicates a network-level failure.
	ErrCodeNetworkError ErrorCode = "NETWORK_ERROR"

	// ErrCodeUnsupportedScheme indicates an unsupported payment scheme.
	ErrCodeUnsupportedScheme ErrorCode = "UNSUPPORTED_SCHEME"

	// ErrCodeUnsupportedVersion indicates an unsupported protocol version.
	ErrCodeUnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"
)

// PaymentError provides structured error information for payment failures.
type PaymentError struct {
	// Code classifies the failure.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details carries additional failure context.
	Details map[string]interface{}

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a PaymentError with the given code and message.
func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// WithDetails attaches additional context to the error and returns it.
func (e *PaymentError) WithDetails(key string, value interface{}) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}
