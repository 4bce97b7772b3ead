package events

import "math/big"

const (
	// TypeStakeDeposited captures a principal deposit into the pool vault.
	TypeStakeDeposited = "staking.deposited"
	// TypeStakeWithdrawn captures a principal withdrawal, including the fee
	// and any reward forfeits charged on the way out.
	TypeStakeWithdrawn = "staking.withdrawn"
	// TypeRewardsClaimed is emitted when a staker drains their claimable
	// reward balances.
	TypeRewardsClaimed = "staking.rewardsClaimed"
	// TypeRewardsDeposited is emitted when the authority funds a reward
	// vault ahead of an epoch close.
	TypeRewardsDeposited = "staking.rewardsDeposited"
	// TypeEpochClosed summarises a finished distribution epoch.
	TypeEpochClosed = "staking.epochClosed"
	// TypeDistributionStarted marks the distribution program turning active.
	TypeDistributionStarted = "staking.distributionStarted"
	// TypeDistributionStopped marks a pause of the distribution program.
	TypeDistributionStopped = "staking.distributionStopped"
	// TypeDistributionEnded marks the terminal shutdown of the program.
	TypeDistributionEnded = "staking.distributionEnded"
	// TypeAdminWithdrawal records a break-glass vault withdrawal.
	TypeAdminWithdrawal = "staking.adminWithdrawal"
)

// StakeDeposited captures the account state realised by a deposit.
type StakeDeposited struct {
	Owner         [20]byte
	Amount        *big.Int
	Principal     *big.Int
	WeightedStake *big.Int
	Sequence      uint64
}

func (StakeDeposited) EventType() string { return TypeStakeDeposited }

// StakeWithdrawn captures a withdrawal and the charges applied to it.
type StakeWithdrawn struct {
	Owner         [20]byte
	Amount        *big.Int
	Fee           *big.Int
	Payout        *big.Int
	ForfeitedSol  *big.Int
	ForfeitedSpl  *big.Int
	Principal     *big.Int
	WeightedStake *big.Int
	Sequence      uint64
}

func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// RewardsClaimed captures the amounts handed to the custody layer for payout.
type RewardsClaimed struct {
	Owner    [20]byte
	Sol      *big.Int
	Spl      *big.Int
	Epoch    uint64
	Sequence uint64
}

func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// RewardsDeposited captures an authority top-up of a reward vault.
type RewardsDeposited struct {
	Vault    string
	Amount   *big.Int
	Balance  *big.Int
	Sequence uint64
}

func (RewardsDeposited) EventType() string { return TypeRewardsDeposited }

// EpochClosed summarises the distribution outcome for one epoch.
type EpochClosed struct {
	Epoch        uint64
	SolBudget    *big.Int
	SolPaid      *big.Int
	SplBudget    *big.Int
	SplPaid      *big.Int
	Stakers      int
	Sequence     uint64
	EpochStarted int64
}

func (EpochClosed) EventType() string { return TypeEpochClosed }

// DistributionStarted marks the Inactive -> Active transition.
type DistributionStarted struct {
	Epoch    uint64
	Sequence uint64
}

func (DistributionStarted) EventType() string { return TypeDistributionStarted }

// DistributionStopped marks an Active -> Inactive transition.
type DistributionStopped struct {
	Epoch    uint64
	Sequence uint64
}

func (DistributionStopped) EventType() string { return TypeDistributionStopped }

// DistributionEnded marks the terminal state; no further epochs will run.
type DistributionEnded struct {
	Epoch    uint64
	Sequence uint64
}

func (DistributionEnded) EventType() string { return TypeDistributionEnded }

// AdminWithdrawal records an authority-driven vault drain.
type AdminWithdrawal struct {
	Vault    string
	Amount   *big.Int
	Balance  *big.Int
	Sequence uint64
}

func (AdminWithdrawal) EventType() string { return TypeAdminWithdrawal }
