package staking

import "errors"

// ErrUnauthorized is deliberately opaque: admin checks must not reveal which
// branch rejected the caller.
var (
	ErrNilState                 = errors.New("staking: state not configured")
	ErrAlreadyInitialized       = errors.New("staking: pool already initialized")
	ErrPoolNotFound             = errors.New("staking: pool not initialized")
	ErrUnauthorized             = errors.New("staking: not permitted")
	ErrInvalidAmount            = errors.New("staking: invalid amount")
	ErrInsufficientStake        = errors.New("staking: insufficient stake")
	ErrInsufficientVaultBalance = errors.New("staking: insufficient vault balance")
	ErrNothingToClaim           = errors.New("staking: nothing to claim")
	ErrDistributionNotActive    = errors.New("staking: distribution not active")
	ErrDistributionActive       = errors.New("staking: distribution already active")
	ErrDistributionEnded        = errors.New("staking: distribution ended")
	ErrSequenceMismatch         = errors.New("staking: sequence mismatch")
	ErrUnderflow                = errors.New("staking: amount underflow")
)
