package repository

import "errors"

var (
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrDuplicateReservation = errors.New("an active reservation already exists for this post")
	ErrNoActiveReservation  = errors.New("no active reservation for this post")
	ErrNotFound             = errors.New("record not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
)
