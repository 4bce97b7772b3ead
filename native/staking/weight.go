package staking

import "math/big"

// Multiplier returns the time-weight bonus in basis points for a stake held
// elapsed seconds: 10_000 (1.0x) at zero, rising linearly to
// MaxMultiplierBps at the optimal lock period, flat afterwards. The curve is
// monotonic non-decreasing and bounded, so an earlier staker can never end up
// with less weight than a later one at the same elapsed time.
func (p Params) Multiplier(elapsed int64) uint64 {
	if elapsed <= 0 {
		return BpsDenominator
	}
	if uint64(elapsed) >= p.OptimalLockSeconds {
		return p.MaxMultiplierBps
	}
	span := p.MaxMultiplierBps - BpsDenominator
	return BpsDenominator + span*uint64(elapsed)/p.OptimalLockSeconds
}

// EarlyExitPenaltyBpsAt returns the reward forfeit rate applied when
// unstaking after elapsed seconds: the configured penalty inside the lock
// period, zero at or beyond it. The penalty hits unclaimed rewards, never
// principal.
func (p Params) EarlyExitPenaltyBpsAt(elapsed int64) uint64 {
	if elapsed >= 0 && uint64(elapsed) >= p.OptimalLockSeconds {
		return 0
	}
	return p.EarlyExitPenaltyBps
}

// WeightedStake returns floor(principal * multiplier(elapsed) / 10_000).
// With a multiplier floor of 1.0x the result is never below the principal.
func (p Params) WeightedStake(principal *big.Int, elapsed int64) *big.Int {
	return mulBps(principal, p.Multiplier(elapsed))
}

// blendedStakeTimestamp computes the weighted-average stake timestamp applied
// on a top-up: the old and new deposit times are averaged by amount so a
// small re-deposit cannot reset (or be used to game) the lock window.
func blendedStakeTimestamp(oldTs int64, oldPrincipal *big.Int, now int64, amount *big.Int) int64 {
	total := addAmount(oldPrincipal, amount)
	if total.Sign() == 0 {
		return now
	}
	if oldPrincipal == nil || oldPrincipal.Sign() == 0 {
		return now
	}
	weighted := new(big.Int).Mul(big.NewInt(oldTs), oldPrincipal)
	weighted.Add(weighted, new(big.Int).Mul(big.NewInt(now), amount))
	weighted.Div(weighted, total)
	return weighted.Int64()
}
