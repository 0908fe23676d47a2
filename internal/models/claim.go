package models

import "time"

// ReviewClaim marks an application as being worked on by a single reviewer.
// The claim is advisory coordination between humans; the decision transaction
// remains the final gate against double decisions.
type ReviewClaim struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ApplicationID string    `gorm:"type:uuid;uniqueIndex;not null" json:"application_id"`
	ReviewerID    string    `gorm:"size:32;not null" json:"reviewer_id"`
	ClaimedAt     time.Time `gorm:"not null" json:"claimed_at"`
}

// ExpiredAt reports whether the claim is older than the configured time-to-live.
func (c ReviewClaim) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.ClaimedAt) > ttl
}
