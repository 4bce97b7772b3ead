package staking

import (
	"math/big"
	"testing"
)

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestComputeDistributionProportional(t *testing.T) {
	entries := []DistributionEntry{
		{Owner: addr(1), WeightedStake: big.NewInt(100)},
		{Owner: addr(2), WeightedStake: big.NewInt(300)},
	}
	outcome, err := ComputeDistribution(big.NewInt(1_000), entries, big.NewInt(400))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(outcome.Payouts) != 2 {
		t.Fatalf("expected 2 payouts, got %d", len(outcome.Payouts))
	}
	if outcome.Payouts[0].Amount.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("first share: got %s want 250", outcome.Payouts[0].Amount)
	}
	if outcome.Payouts[1].Amount.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("second share: got %s want 750", outcome.Payouts[1].Amount)
	}
	if outcome.Remainder.Sign() != 0 {
		t.Fatalf("remainder: got %s want 0", outcome.Remainder)
	}
}

func TestComputeDistributionConservesBudget(t *testing.T) {
	// Three equal stakers over a budget of 100: floored thirds leave a
	// remainder of 1 in the vault.
	entries := []DistributionEntry{
		{Owner: addr(1), WeightedStake: big.NewInt(7)},
		{Owner: addr(2), WeightedStake: big.NewInt(7)},
		{Owner: addr(3), WeightedStake: big.NewInt(7)},
	}
	outcome, err := ComputeDistribution(big.NewInt(100), entries, big.NewInt(21))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	total := big.NewInt(0)
	for _, payout := range outcome.Payouts {
		if payout.Amount.Cmp(big.NewInt(33)) != 0 {
			t.Fatalf("identical weights must get identical shares, got %s", payout.Amount)
		}
		total.Add(total, payout.Amount)
	}
	if total.Cmp(outcome.TotalPaid) != 0 {
		t.Fatalf("total paid mismatch: %s vs %s", total, outcome.TotalPaid)
	}
	sum := new(big.Int).Add(outcome.TotalPaid, outcome.Remainder)
	if sum.Cmp(outcome.Budget) != 0 {
		t.Fatalf("reward mass not conserved: paid %s + remainder %s != budget %s", outcome.TotalPaid, outcome.Remainder, outcome.Budget)
	}
	if outcome.Remainder.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("remainder: got %s want 1", outcome.Remainder)
	}
}

func TestComputeDistributionOrderIndependent(t *testing.T) {
	forward := []DistributionEntry{
		{Owner: addr(1), WeightedStake: big.NewInt(10)},
		{Owner: addr(2), WeightedStake: big.NewInt(20)},
		{Owner: addr(3), WeightedStake: big.NewInt(31)},
	}
	reversed := []DistributionEntry{forward[2], forward[1], forward[0]}

	a, err := ComputeDistribution(big.NewInt(999), forward, big.NewInt(61))
	if err != nil {
		t.Fatalf("distribute forward: %v", err)
	}
	b, err := ComputeDistribution(big.NewInt(999), reversed, big.NewInt(61))
	if err != nil {
		t.Fatalf("distribute reversed: %v", err)
	}
	if len(a.Payouts) != len(b.Payouts) {
		t.Fatalf("payout count differs: %d vs %d", len(a.Payouts), len(b.Payouts))
	}
	for i := range a.Payouts {
		if a.Payouts[i].Owner != b.Payouts[i].Owner || a.Payouts[i].Amount.Cmp(b.Payouts[i].Amount) != 0 {
			t.Fatalf("payout %d differs between iteration orders", i)
		}
	}
}

func TestComputeDistributionEmpty(t *testing.T) {
	outcome, err := ComputeDistribution(big.NewInt(500), nil, big.NewInt(0))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(outcome.Payouts) != 0 {
		t.Fatalf("expected no payouts")
	}
	if outcome.Remainder.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("budget must stay in the vault, remainder %s", outcome.Remainder)
	}
}
