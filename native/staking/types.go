package staking

import "math/big"

// StakingPool is the singleton ledger aggregate. VaultStakeBalance mirrors
// TotalStaked at rest; the two only diverge after a break-glass admin
// withdrawal of stake tokens.
type StakingPool struct {
	Authority             [20]byte `json:"authority"`
	TotalStaked           *big.Int `json:"totalStaked"`
	TotalWeightedStake    *big.Int `json:"totalWeightedStake"`
	VaultStakeBalance     *big.Int `json:"vaultStakeBalance"`
	VaultSolRewardBalance *big.Int `json:"vaultSolRewardBalance"`
	VaultSplRewardBalance *big.Int `json:"vaultSplRewardBalance"`
	DistributionActive    bool     `json:"distributionActive"`
	DistributionEnded     bool     `json:"distributionEnded"`
	CurrentEpoch          uint64   `json:"currentEpoch"`
	EpochStartTime        int64    `json:"epochStartTime"`
	SequenceNumber        uint64   `json:"sequenceNumber"`
}

// Normalize replaces nil balances with zero so arithmetic never trips over a
// freshly decoded record.
func (p *StakingPool) Normalize() *StakingPool {
	if p == nil {
		return nil
	}
	if p.TotalStaked == nil {
		p.TotalStaked = big.NewInt(0)
	}
	if p.TotalWeightedStake == nil {
		p.TotalWeightedStake = big.NewInt(0)
	}
	if p.VaultStakeBalance == nil {
		p.VaultStakeBalance = big.NewInt(0)
	}
	if p.VaultSolRewardBalance == nil {
		p.VaultSolRewardBalance = big.NewInt(0)
	}
	if p.VaultSplRewardBalance == nil {
		p.VaultSplRewardBalance = big.NewInt(0)
	}
	return p
}

// Clone produces a deep copy to protect internal references.
func (p *StakingPool) Clone() *StakingPool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.TotalStaked = copyBigInt(p.TotalStaked)
	clone.TotalWeightedStake = copyBigInt(p.TotalWeightedStake)
	clone.VaultStakeBalance = copyBigInt(p.VaultStakeBalance)
	clone.VaultSolRewardBalance = copyBigInt(p.VaultSolRewardBalance)
	clone.VaultSplRewardBalance = copyBigInt(p.VaultSplRewardBalance)
	return &clone
}

// UserStakeAccount is the per-user ledger entry. WeightedStake is a derived
// value recomputed on every touch; AccruedPenalty is the lifetime total of
// rewards forfeited to early exits, kept for audit after full exit.
type UserStakeAccount struct {
	Owner               [20]byte `json:"owner"`
	Principal           *big.Int `json:"principal"`
	StakeTimestamp      int64    `json:"stakeTimestamp"`
	WeightedStake       *big.Int `json:"weightedStake"`
	IsActive            bool     `json:"isActive"`
	AccruedPenalty      *big.Int `json:"accruedPenalty"`
	ClaimableSolRewards *big.Int `json:"claimableSolRewards"`
	ClaimableSplRewards *big.Int `json:"claimableSplRewards"`
	LastEpochClaimed    uint64   `json:"lastEpochClaimed"`
}

// Normalize replaces nil balances with zero.
func (a *UserStakeAccount) Normalize() *UserStakeAccount {
	if a == nil {
		return nil
	}
	if a.Principal == nil {
		a.Principal = big.NewInt(0)
	}
	if a.WeightedStake == nil {
		a.WeightedStake = big.NewInt(0)
	}
	if a.AccruedPenalty == nil {
		a.AccruedPenalty = big.NewInt(0)
	}
	if a.ClaimableSolRewards == nil {
		a.ClaimableSolRewards = big.NewInt(0)
	}
	if a.ClaimableSplRewards == nil {
		a.ClaimableSplRewards = big.NewInt(0)
	}
	return a
}

// Clone produces a deep copy to protect internal references.
func (a *UserStakeAccount) Clone() *UserStakeAccount {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Principal = copyBigInt(a.Principal)
	clone.WeightedStake = copyBigInt(a.WeightedStake)
	clone.AccruedPenalty = copyBigInt(a.AccruedPenalty)
	clone.ClaimableSolRewards = copyBigInt(a.ClaimableSolRewards)
	clone.ClaimableSplRewards = copyBigInt(a.ClaimableSplRewards)
	return &clone
}

// refreshWeight recomputes the account's weighted stake as of now and returns
// the previous value so callers can adjust the pool aggregate.
func (a *UserStakeAccount) refreshWeight(params Params, now int64) *big.Int {
	previous := copyBigInt(a.WeightedStake)
	if !a.IsActive || a.Principal.Sign() == 0 {
		a.WeightedStake = big.NewInt(0)
		return previous
	}
	a.WeightedStake = params.WeightedStake(a.Principal, now-a.StakeTimestamp)
	return previous
}
