// internal/domain/gift/entity_test.go
package gift

import (
	"database/sql"
	"testing"
	"time"

	xerrors "pochasovo-service/internal/pkg/errors"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCanActivate(t *testing.T) {
	tests := []struct {
		name    string
		gift    Gift
		wantErr error
	}{
		{
			"pending without ttl",
			Gift{Status: StatusPending},
			nil,
		},
		{
			"pending with ttl ahead",
			Gift{Status: StatusPending, ExpiresAt: sql.NullTime{Time: now.Add(time.Hour), Valid: true}},
			nil,
		},
		{
			"already activated",
			Gift{Status: StatusActivated},
			xerrors.ErrGiftAlreadyActivated,
		},
		{
			"swept expired",
			Gift{Status: StatusExpired},
			xerrors.ErrGiftExpired,
		},
		{
			"ttl lapsed but not yet swept",
			Gift{Status: StatusPending, ExpiresAt: sql.NullTime{Time: now.Add(-time.Minute), Valid: true}},
			xerrors.ErrGiftExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gift.CanActivate(now)
			if !xerrors.Is(err, tt.wantErr) && err != tt.wantErr {
				t.Errorf("CanActivate = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTTLExpired(t *testing.T) {
	noTTL := Gift{}
	if noTTL.TTLExpired(now) {
		t.Error("gift without a TTL can never TTL-expire")
	}

	onBoundary := Gift{ExpiresAt: sql.NullTime{Time: now, Valid: true}}
	if !onBoundary.TTLExpired(now) {
		t.Error("gift expiring exactly now must count as expired")
	}
}

func TestValidGiftType(t *testing.T) {
	if !ValidGiftType(GiftSubscriptionDays) || !ValidGiftType(GiftBonusBalance) {
		t.Error("known gift types rejected")
	}
	if ValidGiftType("free_lunch") {
		t.Error("unknown gift type accepted")
	}
}
