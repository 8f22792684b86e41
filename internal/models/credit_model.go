package models

import "time"

// CreditReservation holds credits for a scheduled post until it publishes.
// One row per post; the post itself is already a single platform target.
type CreditReservation struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	Amount    int       `db:"amount" json:"amount"`
	Status    string    `db:"status" json:"status"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	ReservationActive   = "active"
	ReservationConsumed = "consumed"
	ReservationReleased = "released"
	ReservationExpired  = "expired"
)
