package staking

import (
	"bytes"
	"math/big"
	"sort"
)

// DistributionEntry carries the weight snapshot for one active staker when an
// epoch closes.
type DistributionEntry struct {
	Owner         [20]byte
	WeightedStake *big.Int
}

// Payout is the computed share for one staker.
type Payout struct {
	Owner  [20]byte
	Amount *big.Int
}

// DistributionOutcome summarises the proportional split of one reward vault
// for a single epoch. TotalPaid never exceeds Budget; the flooring remainder
// stays in the vault and rolls into the next epoch.
type DistributionOutcome struct {
	Budget    *big.Int
	TotalPaid *big.Int
	Remainder *big.Int
	Payouts   []Payout
}

// ComputeDistribution splits budget across entries in proportion to weighted
// stake. Each share is floored, so reward mass is conserved: the sum of all
// payouts plus the remainder equals the budget exactly. Entries are sorted by
// owner before iteration, making the outcome independent of input order;
// identical weights always produce identical shares.
func ComputeDistribution(budget *big.Int, entries []DistributionEntry, totalWeightedStake *big.Int) (*DistributionOutcome, error) {
	outcome := &DistributionOutcome{
		Budget:    copyBigInt(budget),
		TotalPaid: big.NewInt(0),
		Remainder: copyBigInt(budget),
		Payouts:   []Payout{},
	}
	if budget == nil || budget.Sign() <= 0 {
		return outcome, nil
	}
	if totalWeightedStake == nil || totalWeightedStake.Sign() <= 0 {
		return outcome, nil
	}

	ordered := make([]DistributionEntry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i].Owner[:], ordered[j].Owner[:]) < 0
	})

	totalPaid := big.NewInt(0)
	payouts := make([]Payout, 0, len(ordered))
	for _, entry := range ordered {
		if entry.WeightedStake == nil || entry.WeightedStake.Sign() <= 0 {
			continue
		}
		share, err := mulRatio(budget, entry.WeightedStake, totalWeightedStake)
		if err != nil {
			return nil, err
		}
		if share.Sign() <= 0 {
			continue
		}
		payouts = append(payouts, Payout{Owner: entry.Owner, Amount: share})
		totalPaid.Add(totalPaid, share)
	}

	remainder, err := subAmount(budget, totalPaid)
	if err != nil {
		// Floored shares cannot sum past the budget.
		return nil, err
	}
	outcome.TotalPaid = totalPaid
	outcome.Remainder = remainder
	outcome.Payouts = payouts
	return outcome, nil
}
