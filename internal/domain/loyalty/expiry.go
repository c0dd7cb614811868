package loyalty

import (
	"time"

	"github.com/google/uuid"
)

// ApplyExpiry partitions ledger lots into still-valid and expired as of the
// given instant. It returns the remaining point total across valid lots and
// the ids of expired lots, which the caller records with a follow-up expire
// ledger entry. Lots without an expiry never expire.
func ApplyExpiry(lots []Lot, asOf time.Time) (remaining int64, expired []uuid.UUID) {
	for _, lot := range lots {
		if lot.ExpiresAt != nil && !lot.ExpiresAt.After(asOf) {
			expired = append(expired, lot.ID)
			continue
		}
		remaining += lot.Points
	}
	return remaining, expired
}
