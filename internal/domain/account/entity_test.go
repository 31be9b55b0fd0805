// internal/domain/account/entity_test.go
package account

import "testing"

func TestSplitSpendBonusFirst(t *testing.T) {
	acc := &OwnerAccount{RealBalance: 1000, BonusBalance: 300}

	tests := []struct {
		name      string
		total     int64
		wantBonus int64
		wantReal  int64
		wantOK    bool
	}{
		{"bonus covers everything", 200, 200, 0, true},
		{"bonus drained then real", 500, 300, 200, true},
		{"exact total balance", 1300, 300, 1000, true},
		{"one over the total", 1301, 0, 0, false},
		{"zero spend", 0, 0, 0, true},
		{"negative spend", -1, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, ok := acc.SplitSpend(tt.total)
			if ok != tt.wantOK {
				t.Fatalf("SplitSpend(%d) ok = %v, want %v", tt.total, ok, tt.wantOK)
			}
			if split.FromBonus != tt.wantBonus || split.FromReal != tt.wantReal {
				t.Errorf("SplitSpend(%d) = {bonus %d, real %d}, want {bonus %d, real %d}",
					tt.total, split.FromBonus, split.FromReal, tt.wantBonus, tt.wantReal)
			}
		})
	}
}

func TestSplitSpendNeverNegative(t *testing.T) {
	acc := &OwnerAccount{RealBalance: 50, BonusBalance: 70}

	for total := int64(0); total <= 120; total++ {
		split, ok := acc.SplitSpend(total)
		if !ok {
			t.Fatalf("SplitSpend(%d) rejected an affordable spend", total)
		}
		if split.FromBonus+split.FromReal != total {
			t.Fatalf("SplitSpend(%d) split does not sum to total: %+v", total, split)
		}
		if acc.BonusBalance-split.FromBonus < 0 || acc.RealBalance-split.FromReal < 0 {
			t.Fatalf("SplitSpend(%d) drives a balance negative: %+v", total, split)
		}
	}

	if _, ok := acc.SplitSpend(121); ok {
		t.Error("SplitSpend accepted a spend above the total balance")
	}
}

func TestReplayConservation(t *testing.T) {
	// top-up 5000 real, grant 500 bonus, spend 3000 (bonus 500 + real
	// 2500), spend 2000 real, gift 700 bonus.
	txs := []Transaction{
		{Amount: 5000, Type: TransactionTopUp},
		{Amount: 500, Type: TransactionBonusGrant},
		{Amount: -3000, Type: TransactionPromotionPurchase},
		{Amount: -2000, Type: TransactionSubscriptionPurchase},
		{Amount: 700, Type: TransactionGiftActivation},
	}

	real, bonus := Replay(txs)
	if real != 500 || bonus != 700 {
		t.Errorf("Replay = {real %d, bonus %d}, want {real 500, bonus 700}", real, bonus)
	}

	if real, bonus := Replay(nil); real != 0 || bonus != 0 {
		t.Errorf("Replay(nil) = {real %d, bonus %d}, want zeros", real, bonus)
	}
}

func TestReplayRoutesCreditsByType(t *testing.T) {
	real, bonus := Replay([]Transaction{
		{Amount: 1000, Type: TransactionTopUp},
		{Amount: 200, Type: TransactionRefund},
		{Amount: 300, Type: TransactionBonusGrant},
		{Amount: 400, Type: TransactionGiftActivation},
	})
	if real != 1200 || bonus != 700 {
		t.Errorf("Replay = {real %d, bonus %d}, want {real 1200, bonus 700}", real, bonus)
	}
}

func TestReplayDetectsCrossBalanceLeak(t *testing.T) {
	// A combined-total fold would pass this: the ledger says 100 real,
	// zero bonus, but the stored balances leaked it the other way.
	acc := &OwnerAccount{RealBalance: 0, BonusBalance: 100}

	real, bonus := Replay([]Transaction{{Amount: 100, Type: TransactionTopUp}})
	if real+bonus != acc.Spendable() {
		t.Fatalf("totals diverged: ledger %d, balances %d", real+bonus, acc.Spendable())
	}
	if real == acc.RealBalance || bonus == acc.BonusBalance {
		t.Errorf("Replay = {real %d, bonus %d} matched corrupted balances {real %d, bonus %d}",
			real, bonus, acc.RealBalance, acc.BonusBalance)
	}
}

func TestTrialAvailable(t *testing.T) {
	acc := &OwnerAccount{}
	if !acc.TrialAvailable() {
		t.Error("fresh account should have the trial available")
	}
	acc.TrialActivated = true
	if acc.TrialAvailable() {
		t.Error("trial must not be claimable a second time")
	}
}

func TestCashback(t *testing.T) {
	tests := []struct {
		amount  int64
		percent int64
		want    int64
	}{
		{1000, 10, 100},
		{999, 10, 99},   // floored, never rounded up
		{5, 10, 0},      // too small to earn anything
		{0, 10, 0},
		{-100, 10, 0},
		{1000, 0, 0},
	}

	for _, tt := range tests {
		if got := Cashback(tt.amount, tt.percent); got != tt.want {
			t.Errorf("Cashback(%d, %d) = %d, want %d", tt.amount, tt.percent, got, tt.want)
		}
	}
}
