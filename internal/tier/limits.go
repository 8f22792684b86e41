package tier

import "github.com/postpilothq/postpilot/internal/models"

// Limits is the static quota table for one subscription tier.
type Limits struct {
	MonthlyCredits               int
	TotalConnectedAccounts       int
	ConnectedAccountsPerPlatform int
	DailyPostsPerPlatform        int
	DailyGenerations             int
	QueueSize                    int
	AdvanceSchedulingDays        int
	AutomationEnabled            bool
	MaxAutomationRules           int
}

var limitsByTier = map[string]Limits{
	models.TierFree: {
		MonthlyCredits:               10,
		TotalConnectedAccounts:       2,
		ConnectedAccountsPerPlatform: 1,
		DailyPostsPerPlatform:        5,
		DailyGenerations:             5,
		QueueSize:                    10,
		AdvanceSchedulingDays:        7,
		AutomationEnabled:            false,
		MaxAutomationRules:           0,
	},
	models.TierPro: {
		MonthlyCredits:               100,
		TotalConnectedAccounts:       6,
		ConnectedAccountsPerPlatform: 2,
		DailyPostsPerPlatform:        20,
		DailyGenerations:             50,
		QueueSize:                    50,
		AdvanceSchedulingDays:        30,
		AutomationEnabled:            true,
		MaxAutomationRules:           5,
	},
	models.TierBusiness: {
		MonthlyCredits:               500,
		TotalConnectedAccounts:       20,
		ConnectedAccountsPerPlatform: 5,
		DailyPostsPerPlatform:        100,
		DailyGenerations:             200,
		QueueSize:                    200,
		AdvanceSchedulingDays:        90,
		AutomationEnabled:            true,
		MaxAutomationRules:           25,
	},
}

// LimitsFor returns the quota table for a tier, falling back to free for
// anything unknown.
func LimitsFor(tier string) Limits {
	if l, ok := limitsByTier[tier]; ok {
		return l
	}
	return limitsByTier[models.TierFree]
}
