// Package tier holds the quota decision functions. They are pure on
// purpose: the scheduling path, the immediate-publish path and the
// automation path all call the same checks with no shared state.
package tier

import (
	"fmt"
	"time"
)

// Check is the outcome of a single policy decision.
type Check struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
	Limit   int    `json:"limit"`
	Current int    `json:"current"`
}

func allow(limit, current int) Check {
	return Check{Allowed: true, Limit: limit, Current: current}
}

func deny(limit, current int, format string, args ...any) Check {
	return Check{
		Allowed: false,
		Message: fmt.Sprintf(format, args...),
		Limit:   limit,
		Current: current,
	}
}

// CanConnect decides whether one more account on platform may be connected.
func CanConnect(tierName string, countsByPlatform map[string]int, platform string) Check {
	l := LimitsFor(tierName)

	total := 0
	for _, n := range countsByPlatform {
		total += n
	}
	if total >= l.TotalConnectedAccounts {
		return deny(l.TotalConnectedAccounts, total,
			"account limit reached (%d of %d connected)", total, l.TotalConnectedAccounts)
	}
	if countsByPlatform[platform] >= l.ConnectedAccountsPerPlatform {
		return deny(l.ConnectedAccountsPerPlatform, countsByPlatform[platform],
			"limit of %d %s account(s) reached", l.ConnectedAccountsPerPlatform, platform)
	}
	return allow(l.TotalConnectedAccounts, total)
}

// CanPost decides whether one more post to platform fits today's quota.
func CanPost(tierName, platform string, dailyByPlatform map[string]int) Check {
	l := LimitsFor(tierName)
	current := dailyByPlatform[platform]
	if current >= l.DailyPostsPerPlatform {
		return deny(l.DailyPostsPerPlatform, current,
			"daily limit of %d posts to %s reached", l.DailyPostsPerPlatform, platform)
	}
	return allow(l.DailyPostsPerPlatform, current)
}

// CanSchedule decides whether a post may enter the queue for scheduledDate.
func CanSchedule(tierName string, queueSize int, scheduledDate, now time.Time) Check {
	l := LimitsFor(tierName)
	if queueSize >= l.QueueSize {
		return deny(l.QueueSize, queueSize,
			"scheduling queue is full (%d of %d)", queueSize, l.QueueSize)
	}
	if scheduledDate.Before(now) {
		return deny(l.QueueSize, queueSize, "scheduled date is in the past")
	}
	window := now.AddDate(0, 0, l.AdvanceSchedulingDays)
	if scheduledDate.After(window) {
		return deny(l.AdvanceSchedulingDays, queueSize,
			"cannot schedule more than %d days ahead", l.AdvanceSchedulingDays)
	}
	return allow(l.QueueSize, queueSize)
}

// CanGenerate decides whether one more AI generation fits today's quota.
func CanGenerate(tierName string, generationsToday int) Check {
	l := LimitsFor(tierName)
	if generationsToday >= l.DailyGenerations {
		return deny(l.DailyGenerations, generationsToday,
			"daily limit of %d generations reached", l.DailyGenerations)
	}
	return allow(l.DailyGenerations, generationsToday)
}

// CanAddAutomationRule decides whether one more rule may be created.
func CanAddAutomationRule(tierName string, ruleCount int) Check {
	l := LimitsFor(tierName)
	if !l.AutomationEnabled {
		return deny(0, ruleCount, "automation is not available on the %s tier", tierName)
	}
	if ruleCount >= l.MaxAutomationRules {
		return deny(l.MaxAutomationRules, ruleCount,
			"automation rule limit of %d reached", l.MaxAutomationRules)
	}
	return allow(l.MaxAutomationRules, ruleCount)
}

// HasEnoughCredits checks spendable credits against a cost. Reserved
// credits are committed elsewhere and never spendable twice.
func HasEnoughCredits(balance, reserved, cost int) Check {
	available := balance - reserved
	if available < cost {
		return deny(cost, available, "insufficient credits: need %d, have %d available", cost, available)
	}
	return allow(cost, available)
}

// CalculatePostCredits prices a publish action: one credit per platform.
func CalculatePostCredits(platforms []string) int {
	return len(platforms)
}
