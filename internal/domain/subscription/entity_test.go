// internal/domain/subscription/entity_test.go
package subscription

import (
	"database/sql"
	"testing"
	"time"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeSub(expiresIn time.Duration) ListingSubscription {
	return ListingSubscription{
		ExpiresAt: sql.NullTime{Time: now.Add(expiresIn), Valid: true},
	}
}

func TestIsActive(t *testing.T) {
	if s := (ListingSubscription{}); s.IsActive(now) {
		t.Error("subscription with no expiry must be inactive")
	}
	if s := activeSub(-time.Minute); s.IsActive(now) {
		t.Error("subscription expired a minute ago must be inactive")
	}
	if s := activeSub(time.Minute); !s.IsActive(now) {
		t.Error("subscription with a minute left must be active")
	}
}

func TestExtendFromBanksUnusedTime(t *testing.T) {
	// 10 days left + 30 purchased = 40 days from now.
	s := activeSub(10 * 24 * time.Hour)
	got := s.ExtendFrom(now, 30)
	want := now.Add(10 * 24 * time.Hour).AddDate(0, 0, 30)
	if !got.Equal(want) {
		t.Errorf("ExtendFrom on active sub = %v, want %v", got, want)
	}
}

func TestExtendFromLapsedStartsAtNow(t *testing.T) {
	s := activeSub(-5 * 24 * time.Hour)
	got := s.ExtendFrom(now, 30)
	want := now.AddDate(0, 0, 30)
	if !got.Equal(want) {
		t.Errorf("ExtendFrom on lapsed sub = %v, want %v", got, want)
	}

	fresh := ListingSubscription{}
	if got := fresh.ExtendFrom(now, 14); !got.Equal(now.AddDate(0, 0, 14)) {
		t.Errorf("ExtendFrom on fresh sub = %v, want %v", got, now.AddDate(0, 0, 14))
	}
}

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name string
		sub  ListingSubscription
		want int
	}{
		{"no subscription", ListingSubscription{}, 0},
		{"expired", activeSub(-time.Hour), 0},
		{"exactly three days", activeSub(3 * 24 * time.Hour), 3},
		{"partial day rounds up", activeSub(2*24*time.Hour + time.Minute), 3},
		{"under one day", activeSub(5 * time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.DaysRemaining(now); got != tt.want {
				t.Errorf("DaysRemaining = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResettable(t *testing.T) {
	tests := []struct {
		name string
		sub  ListingSubscription
		want bool
	}{
		{"staff granted", ListingSubscription{}, true},
		{"owner paid", ListingSubscription{PurchasedByOwner: true}, false},
		{"gifted", ListingSubscription{IsGift: true}, false},
		{"paid and gifted", ListingSubscription{PurchasedByOwner: true, IsGift: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.Resettable(); got != tt.want {
				t.Errorf("Resettable = %v, want %v", got, tt.want)
			}
		})
	}
}
