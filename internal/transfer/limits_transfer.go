package transfer

// LimitStatus reports one quota category. For tier quotas Limit is the
// tier's cap. The credits category is the exception: Limit is the user's
// current balance, Current the credits held by active reservations, and
// Remaining what is spendable right now.
type LimitStatus struct {
	Current    int     `json:"current"`
	Limit      int     `json:"limit"`
	Remaining  int     `json:"remaining"`
	Percentage float64 `json:"percentage"`
	IsAtLimit  bool    `json:"is_at_limit"`
}

type LimitsResponse struct {
	Tier              string                 `json:"tier"`
	Credits           LimitStatus            `json:"credits"`
	ConnectedAccounts LimitStatus            `json:"connected_accounts"`
	Scheduling        LimitStatus            `json:"scheduling"`
	DailyGenerations  LimitStatus            `json:"daily_generations"`
	DailyPosts        map[string]LimitStatus `json:"daily_posts"`
	Automation        LimitStatus            `json:"automation"`
}
