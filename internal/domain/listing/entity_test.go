// internal/domain/listing/entity_test.go
package listing

import (
	"database/sql"
	"testing"
	"time"
)

func TestVisible(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	live := Listing{}
	live.Subscription.ExpiresAt = sql.NullTime{Time: now.Add(24 * time.Hour), Valid: true}
	if !live.Visible(now) {
		t.Error("listing with a running subscription reported invisible")
	}
	if !live.PromotionEligible(now) {
		t.Error("visible listing reported promotion-ineligible")
	}

	lapsed := Listing{}
	lapsed.Subscription.ExpiresAt = sql.NullTime{Time: now.Add(-time.Hour), Valid: true}
	if lapsed.Visible(now) {
		t.Error("lapsed listing reported visible")
	}

	archived := live
	archived.IsArchived = true
	if archived.Visible(now) {
		t.Error("archived listing reported visible despite a live window")
	}
}

func TestExtendable(t *testing.T) {
	l := Listing{}
	if !l.Extendable() {
		t.Error("live listing must accept subscription days")
	}

	l.IsArchived = true
	if l.Extendable() {
		t.Error("archived listing must not gain subscription days")
	}
}
