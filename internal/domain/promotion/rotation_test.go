// internal/domain/promotion/rotation_test.go
package promotion

import (
	"testing"
	"time"
)

func testTiers() CityTiers {
	return CityTiers{
		PackageGold:   {PackageType: PackageGold, Price: 7000, RangeMin: 1, RangeMax: 10},
		PackageSilver: {PackageType: PackageSilver, Price: 5000, RangeMin: 11, RangeMax: 30},
		PackageBronze: {PackageType: PackageBronze, Price: 3000, RangeMin: 31, RangeMax: 50},
	}
}

func testPool() []*PromotionPackage {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var pool []*PromotionPackage
	id := int64(1)
	add := func(tier PackageType, n int) {
		for i := 0; i < n; i++ {
			pool = append(pool, &PromotionPackage{
				ID:          id,
				PackageType: tier,
				StartDate:   start.Add(time.Duration(id) * time.Hour),
			})
			id++
		}
	}
	add(PackageGold, 7)
	add(PackageSilver, 15)
	add(PackageBronze, 12)
	return pool
}

func TestAssignPositionsInRangeAndCollisionFree(t *testing.T) {
	tiers := testTiers()
	pool := testPool()

	AssignPositions(pool, tiers, DailySeed("Москва", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), time.UTC))

	seen := make(map[int]int64)
	for _, p := range pool {
		tier := tiers[p.PackageType]
		if !tier.Contains(p.CurrentPosition) {
			t.Errorf("package %d (%s) landed at %d, outside [%d, %d]",
				p.ID, p.PackageType, p.CurrentPosition, tier.RangeMin, tier.RangeMax)
		}
		if other, dup := seen[p.CurrentPosition]; dup {
			t.Errorf("packages %d and %d share position %d", other, p.ID, p.CurrentPosition)
		}
		seen[p.CurrentPosition] = p.ID
	}
}

func TestAssignPositionsDeterministicPerDay(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	seed := DailySeed("Казань", day, time.UTC)

	first := testPool()
	AssignPositions(first, testTiers(), seed)

	second := testPool()
	AssignPositions(second, testTiers(), seed)

	for i := range first {
		if first[i].CurrentPosition != second[i].CurrentPosition {
			t.Fatalf("re-run diverged at package %d: %d vs %d",
				first[i].ID, first[i].CurrentPosition, second[i].CurrentPosition)
		}
	}
}

func TestAssignPositionsChangesAcrossDays(t *testing.T) {
	city := "Казань"
	day1 := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	a := testPool()
	AssignPositions(a, testTiers(), DailySeed(city, day1, time.UTC))
	b := testPool()
	AssignPositions(b, testTiers(), DailySeed(city, day2, time.UTC))

	moved := 0
	for i := range a {
		if a[i].CurrentPosition != b[i].CurrentPosition {
			moved++
		}
	}
	if moved == 0 {
		t.Error("no package moved between days; rotation is not rotating")
	}
}

func TestAssignPositionsOverflowKeepsPosition(t *testing.T) {
	// Shrunk range: 3 slots for 5 packages. The overflow keeps whatever
	// position it had.
	tiers := CityTiers{
		PackageGold: {PackageType: PackageGold, Price: 7000, RangeMin: 1, RangeMax: 3},
	}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var pool []*PromotionPackage
	for i := int64(1); i <= 5; i++ {
		pool = append(pool, &PromotionPackage{
			ID: i, PackageType: PackageGold,
			StartDate:       start.Add(time.Duration(i) * time.Hour),
			CurrentPosition: 99,
		})
	}

	AssignPositions(pool, tiers, 42)

	assigned := 0
	for _, p := range pool {
		if p.CurrentPosition != 99 {
			assigned++
			if p.CurrentPosition < 1 || p.CurrentPosition > 3 {
				t.Errorf("package %d assigned out-of-range position %d", p.ID, p.CurrentPosition)
			}
		}
	}
	if assigned != 3 {
		t.Errorf("assigned %d packages, want 3 (one per slot)", assigned)
	}
	// Earliest start dates win the slots.
	for _, p := range pool[3:] {
		if p.CurrentPosition != 99 {
			t.Errorf("overflow package %d was reassigned to %d", p.ID, p.CurrentPosition)
		}
	}
}

func TestDailySeedVariesByCityAndDay(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	if DailySeed("Москва", day, time.UTC) == DailySeed("Казань", day, time.UTC) {
		t.Error("different cities share a seed")
	}
	if DailySeed("Москва", day, time.UTC) == DailySeed("Москва", day.AddDate(0, 0, 1), time.UTC) {
		t.Error("consecutive days share a seed")
	}
	if DailySeed("Москва", day, time.UTC) != DailySeed("Москва", day.Add(6*time.Hour), time.UTC) {
		t.Error("seed must depend on the date only, not the time of day")
	}
}

func TestDailySeedUsesRotationZoneDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	// 22:30 UTC is already past midnight in MSK. A forced tick on a UTC
	// clock and the scheduled MSK-midnight tick must seed the same day.
	forced := time.Date(2025, 6, 15, 22, 30, 0, 0, time.UTC)
	boundary := time.Date(2025, 6, 16, 0, 0, 0, 0, msk)

	if DailySeed("Москва", forced, msk) != DailySeed("Москва", boundary, msk) {
		t.Error("forced tick near midnight seeded a different day than the schedule")
	}
	if DailySeed("Москва", forced, msk) == DailySeed("Москва", forced, time.UTC) {
		t.Error("seed ignored the rotation zone when deriving the date")
	}
}
