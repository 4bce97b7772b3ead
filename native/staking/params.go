package staking

import (
	"errors"
	"fmt"
)

// BpsDenominator defines the fixed denominator used for basis-point rates.
const BpsDenominator = 10_000

// DefaultOptimalLockSeconds is the lock period at which the weight multiplier
// reaches its cap and the early-exit penalty stops applying (30 days).
const DefaultOptimalLockSeconds uint64 = 30 * 24 * 60 * 60

// Params holds the tunable curve and fee schedule for the pool. The curve
// shape (linear to cap) is fixed; the cap, lock period, and rates are not.
type Params struct {
	OptimalLockSeconds  uint64
	MaxMultiplierBps    uint64
	EarlyExitPenaltyBps uint64
	UnstakeFeeBps       uint64
}

// DefaultParams returns the production defaults: 1.2x cap at 30 days, 5%
// early-exit reward penalty, 0.5% flat unstaking fee.
func DefaultParams() Params {
	return Params{
		OptimalLockSeconds:  DefaultOptimalLockSeconds,
		MaxMultiplierBps:    12_000,
		EarlyExitPenaltyBps: 500,
		UnstakeFeeBps:       50,
	}
}

// Validate ensures the configuration values fall within acceptable bounds.
func (p Params) Validate() error {
	if p.OptimalLockSeconds == 0 {
		return errors.New("optimal lock period must be positive")
	}
	if p.MaxMultiplierBps < BpsDenominator {
		return fmt.Errorf("max multiplier must be >= %d bps", BpsDenominator)
	}
	if p.EarlyExitPenaltyBps > BpsDenominator {
		return fmt.Errorf("early exit penalty must be <= %d bps", BpsDenominator)
	}
	if p.UnstakeFeeBps > BpsDenominator {
		return fmt.Errorf("unstake fee must be <= %d bps", BpsDenominator)
	}
	return nil
}
