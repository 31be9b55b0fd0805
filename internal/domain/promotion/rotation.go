// internal/domain/promotion/rotation.go
package promotion

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"
)

// DailySeed derives the rotation seed for one city and day. The date is
// taken in the rotation timezone, so a forced tick and the scheduled
// midnight tick agree on the day even when the server clock sits in
// another zone. Seeding by (city, date) keeps a day's assignment stable
// if the tick is re-run.
func DailySeed(city string, at time.Time, loc *time.Location) uint64 {
	h := fnv.New64a()
	h.Write([]byte(city))
	h.Write([]byte(at.In(loc).Format("2006-01-02")))
	return h.Sum64()
}

// AssignPositions reassigns current_position for every package in the
// rotation pool of one city. Packages are grouped by tier; each tier's
// slot range is shuffled as a whole and the prefix handed out to the
// tier's packages ordered by (start_date, id), so no two same-tier
// packages can collide and every position stays in range.
//
// The caller filters the pool: expired packages and packages whose
// listing subscription has lapsed must not be passed in.
//
// Tiers holding more packages than slots keep the overflow packages'
// positions untouched; the purchase path caps sales at the tier capacity
// so this only happens on a shrunk range config.
func AssignPositions(pool []*PromotionPackage, tiers CityTiers, seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	byTier := make(map[PackageType][]*PromotionPackage)
	for _, p := range pool {
		byTier[p.PackageType] = append(byTier[p.PackageType], p)
	}

	// Stable tier order so the single rng stream is reproducible.
	for _, pt := range []PackageType{PackageGold, PackageSilver, PackageBronze} {
		packages := byTier[pt]
		tier, ok := tiers[pt]
		if !ok || len(packages) == 0 {
			continue
		}

		sort.Slice(packages, func(i, j int) bool {
			if packages[i].StartDate.Equal(packages[j].StartDate) {
				return packages[i].ID < packages[j].ID
			}
			return packages[i].StartDate.Before(packages[j].StartDate)
		})

		slots := make([]int, tier.Slots())
		for i := range slots {
			slots[i] = tier.RangeMin + i
		}
		rng.Shuffle(len(slots), func(i, j int) {
			slots[i], slots[j] = slots[j], slots[i]
		})

		for i, p := range packages {
			if i >= len(slots) {
				break
			}
			p.CurrentPosition = slots[i]
		}
	}
}

// InitialPosition draws the position a freshly purchased package starts
// at, uniform over its tier's range.
func InitialPosition(tier TierConfig, rng *rand.Rand) int {
	return tier.RangeMin + rng.IntN(tier.Slots())
}
