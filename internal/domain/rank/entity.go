// internal/domain/rank/entity.go
package rank

import (
	"sort"

	"pochasovo-service/internal/domain/promotion"
)

// RankedListing is one row of the public catalog order for a city.
type RankedListing struct {
	Position    int                   `json:"position"`
	ListingID   int64                 `json:"listing_id"`
	Title       string                `json:"title"`
	Promoted    bool                  `json:"promoted"`
	PackageType promotion.PackageType `json:"package_type,omitempty"`
}

// Candidate is a visible listing entering the ranking, with its active
// package if it holds one.
type Candidate struct {
	ListingID int64
	Title     string
	Package   *promotion.PromotionPackage
}

// Merge produces the city catalog order: promoted listings occupy their
// package's current_position; everyone else fills the free slots in
// listing-id order. Callers pass only visible listings, so archived and
// subscription-lapsed rows never reach this point.
func Merge(candidates []Candidate) []RankedListing {
	promoted := make(map[int]Candidate)
	var rest []Candidate
	for _, c := range candidates {
		if c.Package != nil {
			// Last write wins on a position conflict across tiers; tier
			// ranges are disjoint so this only guards corrupted data.
			promoted[c.Package.CurrentPosition] = c
		} else {
			rest = append(rest, c)
		}
	}

	sort.Slice(rest, func(i, j int) bool { return rest[i].ListingID < rest[j].ListingID })

	total := len(candidates)
	out := make([]RankedListing, 0, total)
	restIdx := 0
	for pos := 1; len(out) < total; pos++ {
		if c, ok := promoted[pos]; ok {
			out = append(out, RankedListing{
				Position:    pos,
				ListingID:   c.ListingID,
				Title:       c.Title,
				Promoted:    true,
				PackageType: c.Package.PackageType,
			})
			continue
		}
		if restIdx < len(rest) {
			c := rest[restIdx]
			restIdx++
			out = append(out, RankedListing{
				Position:  pos,
				ListingID: c.ListingID,
				Title:     c.Title,
			})
			continue
		}
		// Only promoted rows remain, sitting at positions past the
		// current cursor; jump the cursor instead of spinning.
		next := 0
		for p := range promoted {
			if p >= pos && (next == 0 || p < next) {
				next = p
			}
		}
		if next == 0 {
			break
		}
		pos = next - 1
	}
	return out
}
