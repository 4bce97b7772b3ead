package staking

import (
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"stakeledger/core/events"
)

// Vault identifiers used by deposit, withdrawal, and event payloads.
const (
	VaultSol   = "sol"
	VaultSpl   = "spl"
	VaultStake = "stake"
)

type engineState interface {
	StakingPoolGet() (*StakingPool, bool, error)
	StakingPoolPut(*StakingPool) error
	StakeAccountGet(owner [20]byte) (*UserStakeAccount, bool, error)
	StakeAccountPut(*UserStakeAccount) error
	// StakeAccountsActive lists every active account. Order is up to the
	// backend; the distributor re-sorts before computing shares.
	StakeAccountsActive() ([]*UserStakeAccount, error)
}

// Custody performs the actual balance movement backing a ledger mutation. The
// ledger records state; custody moves funds. Both must commit together or
// accounting diverges from reality, so custody runs inside the operation and
// a custody failure aborts it with no state written.
type Custody interface {
	DepositStake(owner [20]byte, amount *big.Int) error
	WithdrawStake(owner [20]byte, amount *big.Int) error
	PayoutRewards(owner [20]byte, sol, spl *big.Int) error
	AdminWithdraw(vault string, amount *big.Int) error
}

// NoopCustody satisfies Custody without moving anything. It stands in when
// the ledger runs against a backend that settles balances elsewhere.
type NoopCustody struct{}

func (NoopCustody) DepositStake([20]byte, *big.Int) error            { return nil }
func (NoopCustody) WithdrawStake([20]byte, *big.Int) error           { return nil }
func (NoopCustody) PayoutRewards([20]byte, *big.Int, *big.Int) error { return nil }
func (NoopCustody) AdminWithdraw(string, *big.Int) error             { return nil }

// Engine exposes the staking ledger operations and enforces the cross-entity
// invariants atomically. Every pool-mutating operation is serialised behind a
// single mutex (one writer domain over the pool aggregate); reads return
// deep-cloned snapshots. Each mutating call carries the caller's expected
// pool sequence number and is rejected with ErrSequenceMismatch before any
// state is touched when it does not match, so replayed or re-ordered requests
// apply at most once.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	emitter events.Emitter
	custody Custody
	params  Params
	nowFn   func() int64
}

// NewEngine creates a staking engine with default params, a no-op emitter,
// and no-op custody. Callers override collaborators via the setters.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		custody: NoopCustody{},
		params:  DefaultParams(),
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetParams overrides the weight curve and fee schedule. Invalid params are
// ignored in favour of the current configuration.
func (e *Engine) SetParams(params Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params
	return nil
}

// Params returns the engine's active parameter set.
func (e *Engine) Params() Params { return e.params }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetCustody configures the custody collaborator. Passing nil resets it to
// the no-op implementation.
func (e *Engine) SetCustody(custody Custody) {
	if custody == nil {
		e.custody = NoopCustody{}
		return
	}
	e.custody = custody
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// receiptRef derives an opaque receipt reference for a committed mutation.
// It stands in for the transaction signature a chain-backed custody layer
// would return.
func receiptRef(op string, owner [20]byte, amount *big.Int, sequence uint64) [32]byte {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	return ethcrypto.Keccak256Hash([]byte(op), owner[:], copyBigInt(amount).Bytes(), seq[:])
}

func (e *Engine) loadPool() (*StakingPool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	pool, ok, err := e.state.StakingPoolGet()
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool.Normalize(), nil
}

// checkSequence rejects a mutation whose expected sequence number does not
// match the pool counter. Runs before any state is modified.
func checkSequence(pool *StakingPool, nonce uint64) error {
	if pool.SequenceNumber != nonce {
		return ErrSequenceMismatch
	}
	return nil
}

// InitializePool creates the singleton pool with zeroed totals. It is not
// idempotent: a second call fails with ErrAlreadyInitialized.
func (e *Engine) InitializePool(authority [20]byte) (*StakingPool, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok, err := e.state.StakingPoolGet()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrAlreadyInitialized
	}
	pool := (&StakingPool{
		Authority:      authority,
		EpochStartTime: e.now(),
	}).Normalize()
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// StakeReceipt captures the account state realised by a deposit.
type StakeReceipt struct {
	Owner          [20]byte
	Amount         *big.Int
	Principal      *big.Int
	WeightedStake  *big.Int
	StakeTimestamp int64
	Sequence       uint64
	Ref            [32]byte
}

// Stake adds amount to the owner's principal, creating the account lazily on
// first deposit. A top-up blends the stake timestamp by amount rather than
// resetting it, so small re-deposits cannot restart the lock window.
func (e *Engine) Stake(owner [20]byte, amount *big.Int, nonce uint64) (*StakeReceipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkSequence(pool, nonce); err != nil {
		return nil, err
	}

	account, ok, err := e.state.StakeAccountGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		account = &UserStakeAccount{Owner: owner}
	}
	account = account.Clone().Normalize()
	now := e.now()

	if account.IsActive && account.Principal.Sign() > 0 {
		account.StakeTimestamp = blendedStakeTimestamp(account.StakeTimestamp, account.Principal, now, amount)
	} else {
		account.StakeTimestamp = now
	}
	account.Principal = addAmount(account.Principal, amount)
	account.IsActive = true
	previousWeight := account.refreshWeight(e.params, now)

	pool = pool.Clone()
	pool.TotalStaked = addAmount(pool.TotalStaked, amount)
	pool.VaultStakeBalance = addAmount(pool.VaultStakeBalance, amount)
	if pool.TotalWeightedStake, err = subAmount(addAmount(pool.TotalWeightedStake, account.WeightedStake), previousWeight); err != nil {
		return nil, err
	}

	if err := e.custody.DepositStake(owner, amount); err != nil {
		return nil, err
	}
	pool.SequenceNumber = nonce + 1
	if err := e.state.StakeAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}

	receipt := &StakeReceipt{
		Owner:          owner,
		Amount:         copyBigInt(amount),
		Principal:      copyBigInt(account.Principal),
		WeightedStake:  copyBigInt(account.WeightedStake),
		StakeTimestamp: account.StakeTimestamp,
		Sequence:       pool.SequenceNumber,
		Ref:            receiptRef("stake", owner, amount, pool.SequenceNumber),
	}
	e.emit(events.StakeDeposited{
		Owner:         owner,
		Amount:        copyBigInt(amount),
		Principal:     copyBigInt(account.Principal),
		WeightedStake: copyBigInt(account.WeightedStake),
		Sequence:      pool.SequenceNumber,
	})
	return receipt, nil
}

// WithdrawReceipt captures the charges applied to an unstake: the flat fee on
// principal, and the reward forfeits when exiting inside the lock period.
type WithdrawReceipt struct {
	Owner         [20]byte
	Amount        *big.Int
	Fee           *big.Int
	Payout        *big.Int
	ForfeitedSol  *big.Int
	ForfeitedSpl  *big.Int
	Principal     *big.Int
	WeightedStake *big.Int
	Sequence      uint64
	Ref           [32]byte
}

// Unstake withdraws amount from the owner's principal. The flat fee applies
// regardless of duration and is redistributed through the token reward vault;
// exiting before the optimal lock period additionally forfeits a share of any
// unclaimed rewards back to their vaults. The net payout is amount minus fee.
func (e *Engine) Unstake(owner [20]byte, amount *big.Int, nonce uint64) (*WithdrawReceipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkSequence(pool, nonce); err != nil {
		return nil, err
	}

	account, ok, err := e.state.StakeAccountGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return nil, ErrInsufficientStake
	}
	account = account.Clone().Normalize()
	if !account.IsActive || account.Principal.Cmp(amount) < 0 {
		return nil, ErrInsufficientStake
	}

	now := e.now()
	elapsed := now - account.StakeTimestamp
	fee := mulBps(amount, e.params.UnstakeFeeBps)
	payout, err := subAmount(amount, fee)
	if err != nil {
		return nil, err
	}

	pool = pool.Clone()
	forfeitSol := big.NewInt(0)
	forfeitSpl := big.NewInt(0)
	if penaltyBps := e.params.EarlyExitPenaltyBpsAt(elapsed); penaltyBps > 0 {
		forfeitSol = mulBps(account.ClaimableSolRewards, penaltyBps)
		forfeitSpl = mulBps(account.ClaimableSplRewards, penaltyBps)
		if account.ClaimableSolRewards, err = subAmount(account.ClaimableSolRewards, forfeitSol); err != nil {
			return nil, err
		}
		if account.ClaimableSplRewards, err = subAmount(account.ClaimableSplRewards, forfeitSpl); err != nil {
			return nil, err
		}
		// Forfeits are redistributed, not burned.
		pool.VaultSolRewardBalance = addAmount(pool.VaultSolRewardBalance, forfeitSol)
		pool.VaultSplRewardBalance = addAmount(pool.VaultSplRewardBalance, forfeitSpl)
		account.AccruedPenalty = addAmount(account.AccruedPenalty, addAmount(forfeitSol, forfeitSpl))
	}

	if account.Principal, err = subAmount(account.Principal, amount); err != nil {
		return nil, err
	}
	if account.Principal.Sign() == 0 {
		account.IsActive = false
	}
	previousWeight := account.refreshWeight(e.params, now)

	if pool.TotalStaked, err = subAmount(pool.TotalStaked, amount); err != nil {
		return nil, err
	}
	if pool.VaultStakeBalance, err = subAmount(pool.VaultStakeBalance, amount); err != nil {
		return nil, err
	}
	if pool.TotalWeightedStake, err = subAmount(addAmount(pool.TotalWeightedStake, account.WeightedStake), previousWeight); err != nil {
		return nil, err
	}
	// The fee stays in custody and rolls into the next token reward epoch.
	pool.VaultSplRewardBalance = addAmount(pool.VaultSplRewardBalance, fee)

	if err := e.custody.WithdrawStake(owner, payout); err != nil {
		return nil, err
	}
	pool.SequenceNumber = nonce + 1
	if err := e.state.StakeAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}

	receipt := &WithdrawReceipt{
		Owner:         owner,
		Amount:        copyBigInt(amount),
		Fee:           fee,
		Payout:        payout,
		ForfeitedSol:  forfeitSol,
		ForfeitedSpl:  forfeitSpl,
		Principal:     copyBigInt(account.Principal),
		WeightedStake: copyBigInt(account.WeightedStake),
		Sequence:      pool.SequenceNumber,
		Ref:           receiptRef("unstake", owner, amount, pool.SequenceNumber),
	}
	e.emit(events.StakeWithdrawn{
		Owner:         owner,
		Amount:        copyBigInt(amount),
		Fee:           copyBigInt(fee),
		Payout:        copyBigInt(payout),
		ForfeitedSol:  copyBigInt(forfeitSol),
		ForfeitedSpl:  copyBigInt(forfeitSpl),
		Principal:     copyBigInt(account.Principal),
		WeightedStake: copyBigInt(account.WeightedStake),
		Sequence:      pool.SequenceNumber,
	})
	return receipt, nil
}

// ClaimReceipt carries the reward amounts handed to custody for payout.
type ClaimReceipt struct {
	Owner    [20]byte
	Sol      *big.Int
	Spl      *big.Int
	Epoch    uint64
	Sequence uint64
	Ref      [32]byte
}

// ClaimRewards drains the owner's claimable reward balances. Claiming twice
// without an intervening epoch close fails with ErrNothingToClaim and changes
// nothing.
func (e *Engine) ClaimRewards(owner [20]byte, nonce uint64) (*ClaimReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkSequence(pool, nonce); err != nil {
		return nil, err
	}

	account, ok, err := e.state.StakeAccountGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return nil, ErrNothingToClaim
	}
	account = account.Clone().Normalize()
	sol := copyBigInt(account.ClaimableSolRewards)
	spl := copyBigInt(account.ClaimableSplRewards)
	if sol.Sign() == 0 && spl.Sign() == 0 {
		return nil, ErrNothingToClaim
	}

	account.ClaimableSolRewards = big.NewInt(0)
	account.ClaimableSplRewards = big.NewInt(0)
	account.LastEpochClaimed = pool.CurrentEpoch

	if err := e.custody.PayoutRewards(owner, sol, spl); err != nil {
		return nil, err
	}
	pool = pool.Clone()
	pool.SequenceNumber = nonce + 1
	if err := e.state.StakeAccountPut(account); err != nil {
		return nil, err
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}

	receipt := &ClaimReceipt{
		Owner:    owner,
		Sol:      sol,
		Spl:      spl,
		Epoch:    pool.CurrentEpoch,
		Sequence: pool.SequenceNumber,
		Ref:      receiptRef("claim", owner, addAmount(sol, spl), pool.SequenceNumber),
	}
	e.emit(events.RewardsClaimed{
		Owner:    owner,
		Sol:      copyBigInt(sol),
		Spl:      copyBigInt(spl),
		Epoch:    pool.CurrentEpoch,
		Sequence: pool.SequenceNumber,
	})
	return receipt, nil
}

// requireAuthority verifies the caller against the pool authority. The error
// is the same regardless of why the check failed.
func requireAuthority(pool *StakingPool, caller [20]byte) error {
	if caller != pool.Authority {
		return ErrUnauthorized
	}
	return nil
}

// StartDistribution transitions the distribution program from Inactive to
// Active. It can never succeed once the program has been ended permanently.
func (e *Engine) StartDistribution(caller [20]byte, nonce uint64) error {
	return e.adminMutatePool(caller, nonce, func(pool *StakingPool) (events.Event, error) {
		if pool.DistributionEnded {
			return nil, ErrDistributionEnded
		}
		if pool.DistributionActive {
			return nil, ErrDistributionActive
		}
		pool.DistributionActive = true
		pool.EpochStartTime = e.now()
		return events.DistributionStarted{Epoch: pool.CurrentEpoch, Sequence: nonce + 1}, nil
	})
}

// StopDistribution transitions Active back to Inactive. The pause is
// repeatable; stopping an idle program fails.
func (e *Engine) StopDistribution(caller [20]byte, nonce uint64) error {
	return e.adminMutatePool(caller, nonce, func(pool *StakingPool) (events.Event, error) {
		if !pool.DistributionActive {
			return nil, ErrDistributionNotActive
		}
		pool.DistributionActive = false
		return events.DistributionStopped{Epoch: pool.CurrentEpoch, Sequence: nonce + 1}, nil
	})
}

// EndDistribution shuts the distribution program down for good. The Ended
// state is terminal: no transition ever leaves it.
func (e *Engine) EndDistribution(caller [20]byte, nonce uint64) error {
	return e.adminMutatePool(caller, nonce, func(pool *StakingPool) (events.Event, error) {
		if pool.DistributionEnded {
			return nil, ErrDistributionEnded
		}
		pool.DistributionActive = false
		pool.DistributionEnded = true
		return events.DistributionEnded{Epoch: pool.CurrentEpoch, Sequence: nonce + 1}, nil
	})
}

// DepositSolRewards credits the SOL reward vault. No user balance changes
// until the epoch closes.
func (e *Engine) DepositSolRewards(caller [20]byte, amount *big.Int, nonce uint64) error {
	return e.depositRewards(caller, VaultSol, amount, nonce)
}

// DepositSplRewards credits the token reward vault. No user balance changes
// until the epoch closes.
func (e *Engine) DepositSplRewards(caller [20]byte, amount *big.Int, nonce uint64) error {
	return e.depositRewards(caller, VaultSpl, amount, nonce)
}

func (e *Engine) depositRewards(caller [20]byte, vault string, amount *big.Int, nonce uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return e.adminMutatePool(caller, nonce, func(pool *StakingPool) (events.Event, error) {
		var balance *big.Int
		switch vault {
		case VaultSol:
			pool.VaultSolRewardBalance = addAmount(pool.VaultSolRewardBalance, amount)
			balance = pool.VaultSolRewardBalance
		case VaultSpl:
			pool.VaultSplRewardBalance = addAmount(pool.VaultSplRewardBalance, amount)
			balance = pool.VaultSplRewardBalance
		default:
			return nil, ErrInvalidAmount
		}
		return events.RewardsDeposited{
			Vault:    vault,
			Amount:   copyBigInt(amount),
			Balance:  copyBigInt(balance),
			Sequence: nonce + 1,
		}, nil
	})
}

// EpochReceipt summarises a closed epoch.
type EpochReceipt struct {
	Epoch     uint64
	SolBudget *big.Int
	SolPaid   *big.Int
	SplBudget *big.Int
	SplPaid   *big.Int
	Stakers   int
	Sequence  uint64
}

// CloseEpoch distributes both reward vaults proportionally to weighted stake
// and advances the epoch counter. Every active account's weight is refreshed
// to the close time first, so the snapshot and the pool aggregate agree.
// Flooring remainders stay in the vaults for the next epoch.
func (e *Engine) CloseEpoch(caller [20]byte, nonce uint64) (*EpochReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if err := checkSequence(pool, nonce); err != nil {
		return nil, err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return nil, err
	}
	if pool.DistributionEnded {
		return nil, ErrDistributionEnded
	}
	if !pool.DistributionActive {
		return nil, ErrDistributionNotActive
	}

	accounts, err := e.state.StakeAccountsActive()
	if err != nil {
		return nil, err
	}
	now := e.now()
	pool = pool.Clone()

	totalWeighted := big.NewInt(0)
	entries := make([]DistributionEntry, 0, len(accounts))
	refreshed := make([]*UserStakeAccount, 0, len(accounts))
	for _, account := range accounts {
		account = account.Clone().Normalize()
		account.refreshWeight(e.params, now)
		totalWeighted = addAmount(totalWeighted, account.WeightedStake)
		entries = append(entries, DistributionEntry{Owner: account.Owner, WeightedStake: account.WeightedStake})
		refreshed = append(refreshed, account)
	}

	solOutcome, err := ComputeDistribution(pool.VaultSolRewardBalance, entries, totalWeighted)
	if err != nil {
		return nil, err
	}
	splOutcome, err := ComputeDistribution(pool.VaultSplRewardBalance, entries, totalWeighted)
	if err != nil {
		return nil, err
	}

	solByOwner := make(map[[20]byte]*big.Int, len(solOutcome.Payouts))
	for _, payout := range solOutcome.Payouts {
		solByOwner[payout.Owner] = payout.Amount
	}
	splByOwner := make(map[[20]byte]*big.Int, len(splOutcome.Payouts))
	for _, payout := range splOutcome.Payouts {
		splByOwner[payout.Owner] = payout.Amount
	}
	for _, account := range refreshed {
		if share, ok := solByOwner[account.Owner]; ok {
			account.ClaimableSolRewards = addAmount(account.ClaimableSolRewards, share)
		}
		if share, ok := splByOwner[account.Owner]; ok {
			account.ClaimableSplRewards = addAmount(account.ClaimableSplRewards, share)
		}
	}

	if pool.VaultSolRewardBalance, err = subAmount(pool.VaultSolRewardBalance, solOutcome.TotalPaid); err != nil {
		return nil, err
	}
	if pool.VaultSplRewardBalance, err = subAmount(pool.VaultSplRewardBalance, splOutcome.TotalPaid); err != nil {
		return nil, err
	}
	pool.TotalWeightedStake = totalWeighted
	epochStarted := pool.EpochStartTime
	closedEpoch := pool.CurrentEpoch
	pool.CurrentEpoch++
	pool.EpochStartTime = now
	pool.SequenceNumber = nonce + 1

	for _, account := range refreshed {
		if err := e.state.StakeAccountPut(account); err != nil {
			return nil, err
		}
	}
	if err := e.state.StakingPoolPut(pool); err != nil {
		return nil, err
	}

	receipt := &EpochReceipt{
		Epoch:     closedEpoch,
		SolBudget: solOutcome.Budget,
		SolPaid:   solOutcome.TotalPaid,
		SplBudget: splOutcome.Budget,
		SplPaid:   splOutcome.TotalPaid,
		Stakers:   len(refreshed),
		Sequence:  pool.SequenceNumber,
	}
	e.emit(events.EpochClosed{
		Epoch:        closedEpoch,
		SolBudget:    copyBigInt(solOutcome.Budget),
		SolPaid:      copyBigInt(solOutcome.TotalPaid),
		SplBudget:    copyBigInt(splOutcome.Budget),
		SplPaid:      copyBigInt(splOutcome.TotalPaid),
		Stakers:      len(refreshed),
		Sequence:     pool.SequenceNumber,
		EpochStarted: epochStarted,
	})
	return receipt, nil
}

// AdminWithdrawSol drains amount from the SOL reward vault. Break-glass:
// guarded only by the authority check and the vault balance.
func (e *Engine) AdminWithdrawSol(caller [20]byte, amount *big.Int, nonce uint64) error {
	return e.adminWithdraw(caller, VaultSol, amount, nonce)
}

// AdminWithdrawSpl drains amount from the token reward vault.
func (e *Engine) AdminWithdrawSpl(caller [20]byte, amount *big.Int, nonce uint64) error {
	return e.adminWithdraw(caller, VaultSpl, amount, nonce)
}

// AdminWithdrawStakeTokens drains amount from the stake vault. This is the
// one operation that lets VaultStakeBalance fall below TotalStaked; it exists
// for emergency recovery and is expected to be reconciled out of band.
func (e *Engine) AdminWithdrawStakeTokens(caller [20]byte, amount *big.Int, nonce uint64) error {
	return e.adminWithdraw(caller, VaultStake, amount, nonce)
}

func (e *Engine) adminWithdraw(caller [20]byte, vault string, amount *big.Int, nonce uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return e.adminMutatePool(caller, nonce, func(pool *StakingPool) (events.Event, error) {
		var target **big.Int
		switch vault {
		case VaultSol:
			target = &pool.VaultSolRewardBalance
		case VaultSpl:
			target = &pool.VaultSplRewardBalance
		case VaultStake:
			target = &pool.VaultStakeBalance
		default:
			return nil, ErrInvalidAmount
		}
		remaining, err := subAmount(*target, amount)
		if err != nil {
			return nil, ErrInsufficientVaultBalance
		}
		if err := e.custody.AdminWithdraw(vault, amount); err != nil {
			return nil, err
		}
		*target = remaining
		return events.AdminWithdrawal{
			Vault:    vault,
			Amount:   copyBigInt(amount),
			Balance:  copyBigInt(remaining),
			Sequence: nonce + 1,
		}, nil
	})
}

// adminMutatePool runs an authority-only mutation against a working copy of
// the pool, committing and emitting only when the mutation succeeds.
func (e *Engine) adminMutatePool(caller [20]byte, nonce uint64, mutate func(*StakingPool) (events.Event, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := checkSequence(pool, nonce); err != nil {
		return err
	}
	if err := requireAuthority(pool, caller); err != nil {
		return err
	}
	pool = pool.Clone()
	event, err := mutate(pool)
	if err != nil {
		return err
	}
	pool.SequenceNumber = nonce + 1
	if err := e.state.StakingPoolPut(pool); err != nil {
		return err
	}
	e.emit(event)
	return nil
}

// Pool returns a snapshot of the pool aggregate.
func (e *Engine) Pool() (*StakingPool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return pool.Clone(), nil
}

// UserStake returns a snapshot of the owner's stake account. The weighted
// stake in the snapshot is refreshed to the read time without being written
// back, so callers see the weight they would settle at right now.
func (e *Engine) UserStake(owner [20]byte) (*UserStakeAccount, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	account, ok, err := e.state.StakeAccountGet(owner)
	if err != nil {
		return nil, err
	}
	if !ok || account == nil {
		return nil, ErrInsufficientStake
	}
	snapshot := account.Clone().Normalize()
	snapshot.refreshWeight(e.params, e.now())
	return snapshot, nil
}
