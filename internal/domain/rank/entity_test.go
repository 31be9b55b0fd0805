// internal/domain/rank/entity_test.go
package rank

import (
	"testing"

	"pochasovo-service/internal/domain/promotion"
)

func promotedCandidate(listingID int64, pos int, tier promotion.PackageType) Candidate {
	return Candidate{
		ListingID: listingID,
		Package:   &promotion.PromotionPackage{ListingID: listingID, CurrentPosition: pos, PackageType: tier},
	}
}

func TestMergePromotedHoldTheirPositions(t *testing.T) {
	candidates := []Candidate{
		{ListingID: 100},
		promotedCandidate(7, 2, promotion.PackageGold),
		{ListingID: 50},
		promotedCandidate(9, 4, promotion.PackageSilver),
		{ListingID: 60},
	}

	out := Merge(candidates)
	if len(out) != 5 {
		t.Fatalf("Merge returned %d rows, want 5", len(out))
	}

	wantOrder := []int64{50, 7, 60, 9, 100}
	for i, row := range out {
		if row.Position != i+1 {
			t.Errorf("row %d has position %d, want %d", i, row.Position, i+1)
		}
		if row.ListingID != wantOrder[i] {
			t.Errorf("position %d holds listing %d, want %d", i+1, row.ListingID, wantOrder[i])
		}
	}

	if !out[1].Promoted || out[1].PackageType != promotion.PackageGold {
		t.Error("position 2 must be the promoted gold listing")
	}
	if out[0].Promoted {
		t.Error("position 1 must be organic")
	}
}

func TestMergeJumpsToFarPromotedSlots(t *testing.T) {
	// One organic listing and a promoted one sitting far down the range:
	// the output must not stall when organic rows run out.
	candidates := []Candidate{
		{ListingID: 3},
		promotedCandidate(8, 25, promotion.PackageSilver),
	}

	out := Merge(candidates)
	if len(out) != 2 {
		t.Fatalf("Merge returned %d rows, want 2", len(out))
	}
	if out[0].ListingID != 3 || out[0].Position != 1 {
		t.Errorf("first row = listing %d at %d, want listing 3 at 1", out[0].ListingID, out[0].Position)
	}
	if out[1].ListingID != 8 || out[1].Position != 25 {
		t.Errorf("second row = listing %d at %d, want listing 8 at 25", out[1].ListingID, out[1].Position)
	}
}

func TestMergeOnlyPromoted(t *testing.T) {
	candidates := []Candidate{
		promotedCandidate(5, 40, promotion.PackageBronze),
		promotedCandidate(2, 12, promotion.PackageSilver),
	}

	out := Merge(candidates)
	if len(out) != 2 {
		t.Fatalf("Merge returned %d rows, want 2", len(out))
	}
	if out[0].ListingID != 2 || out[0].Position != 12 {
		t.Errorf("first promoted row = listing %d at %d, want listing 2 at 12", out[0].ListingID, out[0].Position)
	}
	if out[1].ListingID != 5 || out[1].Position != 40 {
		t.Errorf("second promoted row = listing %d at %d, want listing 5 at 40", out[1].ListingID, out[1].Position)
	}
}

func TestMergeEmpty(t *testing.T) {
	if out := Merge(nil); len(out) != 0 {
		t.Errorf("Merge(nil) returned %d rows", len(out))
	}
}

func TestMergeOrganicSortedByListingID(t *testing.T) {
	candidates := []Candidate{
		{ListingID: 30},
		{ListingID: 10},
		{ListingID: 20},
	}

	out := Merge(candidates)
	want := []int64{10, 20, 30}
	for i, row := range out {
		if row.ListingID != want[i] {
			t.Errorf("position %d holds listing %d, want %d", i+1, row.ListingID, want[i])
		}
	}
}
