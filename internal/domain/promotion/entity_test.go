// internal/domain/promotion/entity_test.go
package promotion

import (
	"testing"
	"time"
)

func TestCityTiersValidate(t *testing.T) {
	valid := testTiers()
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	t.Run("missing tier", func(t *testing.T) {
		ct := testTiers()
		delete(ct, PackageSilver)
		if err := ct.Validate(); err == nil {
			t.Error("config without silver accepted")
		}
	})

	t.Run("overlapping ranges", func(t *testing.T) {
		ct := testTiers()
		tier := ct[PackageSilver]
		tier.RangeMin = 5 // reaches into gold's range
		ct[PackageSilver] = tier
		if err := ct.Validate(); err == nil {
			t.Error("overlapping ranges accepted")
		}
	})

	t.Run("bronze outranks silver", func(t *testing.T) {
		ct := CityTiers{
			PackageGold:   {PackageType: PackageGold, Price: 7000, RangeMin: 1, RangeMax: 10},
			PackageSilver: {PackageType: PackageSilver, Price: 5000, RangeMin: 31, RangeMax: 50},
			PackageBronze: {PackageType: PackageBronze, Price: 3000, RangeMin: 11, RangeMax: 30},
		}
		if err := ct.Validate(); err == nil {
			t.Error("bronze placed above silver accepted")
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		ct := testTiers()
		tier := ct[PackageBronze]
		tier.RangeMin, tier.RangeMax = tier.RangeMax, tier.RangeMin
		ct[PackageBronze] = tier
		if err := ct.Validate(); err == nil {
			t.Error("inverted range accepted")
		}
	})

	t.Run("zero price", func(t *testing.T) {
		ct := testTiers()
		tier := ct[PackageGold]
		tier.Price = 0
		ct[PackageGold] = tier
		if err := ct.Validate(); err == nil {
			t.Error("zero price accepted")
		}
	})
}

func TestTierConfigSlots(t *testing.T) {
	tier := TierConfig{RangeMin: 11, RangeMax: 30}
	if got := tier.Slots(); got != 20 {
		t.Errorf("Slots = %d, want 20", got)
	}
	if !tier.Contains(11) || !tier.Contains(30) {
		t.Error("Contains must include the range bounds")
	}
	if tier.Contains(10) || tier.Contains(31) {
		t.Error("Contains must exclude positions outside the range")
	}
}

func TestPackageExpired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	open := &PromotionPackage{EndDate: now.Add(time.Hour)}
	if open.Expired(now) {
		t.Error("package ending in an hour reported expired")
	}

	closed := &PromotionPackage{EndDate: now}
	if !closed.Expired(now) {
		t.Error("package ending exactly now must be expired")
	}
}

func TestPackageOverlaps(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	active := &PromotionPackage{StartDate: now.Add(-10 * 24 * time.Hour), EndDate: now.Add(20 * 24 * time.Hour)}

	// The window a purchase would open while the first package is still
	// running. The purchase guard rejects it, and the windows confirm why.
	stacked := &PromotionPackage{StartDate: now, EndDate: now.Add(PackageDuration)}
	if !active.Overlaps(stacked) {
		t.Error("window opened during an active package reported no overlap")
	}

	after := &PromotionPackage{StartDate: active.EndDate, EndDate: active.EndDate.Add(PackageDuration)}
	if active.Overlaps(after) {
		t.Error("back-to-back windows reported as overlapping")
	}
	if !after.Overlaps(after) {
		t.Error("a window must overlap itself")
	}
}
