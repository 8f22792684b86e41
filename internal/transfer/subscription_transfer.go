package transfer

import "time"

// SubscriptionEvent is the payment collaborator's webhook payload.
type SubscriptionEvent struct {
	EventType string `json:"event_type"`
	Object    struct {
		ID                   string    `json:"id"`
		Tier                 string    `json:"tier"`
		AmountPaid           int       `json:"amount_paid"`
		Status               string    `json:"status"`
		CurrentPeriodEndDate time.Time `json:"current_period_end_date"`
		Customer             struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"object"`
}
