package models

import "time"

type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	Tier           string    `db:"tier" json:"tier"`
	Credits        int       `db:"credits" json:"credits"`
	IsAdmin        bool      `db:"is_admin" json:"is_admin"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const (
	TierFree     = "free"
	TierPro      = "pro"
	TierBusiness = "business"
)
